package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vigil/internal/dao"
	"vigil/internal/model"
)

const cameraSourceKey = "camera_source"

func SetCameraSourceToContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("camera_id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid camera_id",
			})
			return
		}

		src, err := model.GetCameraSourceById(id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
			return
		} else if src == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "source not found",
			})
			return
		}
		c.Set(cameraSourceKey, src)
		c.Next()
	}
}

// handleListCameraSources lists camera sources
// @Summary List camera sources
// @Tags camera sources
// @Produce json
// @Success 200 {array} dao.CameraSource
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/camera-sources [get]
func (s *Server) handleListCameraSources(c *gin.Context) {
	sources, err := model.ListCameraSources()
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	resp := make([]dao.CameraSource, 0, len(sources))
	for i := range sources {
		resp = append(resp, *dao.FromCameraSourceModel(&sources[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleCreateCameraSource creates a camera source
// @Summary Create camera source
// @Description Create a camera source; credentials in the url are kept server side only
// @Tags camera sources
// @Accept json
// @Produce json
// @Param req body dao.CameraSourceCreateRequest true "camera source"
// @Success 200 {object} dao.CameraSource
// @Failure 400 {object} ErrorResponse "invalid request"
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/camera-sources [post]
func (s *Server) handleCreateCameraSource(c *gin.Context) {
	var req dao.CameraSourceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	src := req.ToModel()
	if err := model.CreateCameraSource(src); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, dao.FromCameraSourceModel(src))
}

// handleUpdateCameraSource updates a camera source
// @Summary Update camera source
// @Tags camera sources
// @Accept json
// @Produce json
// @Param camera_id path int true "camera source id"
// @Param req body dao.SourceUpdateRequest true "fields to update"
// @Success 200 {object} dao.CameraSource
// @Failure 400 {object} ErrorResponse "invalid request"
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/camera-sources/{camera_id} [patch]
func (s *Server) handleUpdateCameraSource(c *gin.Context) {
	var req dao.SourceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	src := c.MustGet(cameraSourceKey).(*model.CameraSource)
	req.UpdateCameraModel(src)
	if err := model.UpdateCameraSource(src); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	if !src.IsActive {
		s.runner.Stop(model.SourceKindCamera, src.Id)
	}
	c.JSON(http.StatusOK, dao.FromCameraSourceModel(src))
}

// handleDeleteCameraSource soft deletes a camera source
// @Summary Delete camera source
// @Tags camera sources
// @Produce json
// @Param camera_id path int true "camera source id"
// @Success 200 {object} dao.Result
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/camera-sources/{camera_id} [delete]
func (s *Server) handleDeleteCameraSource(c *gin.Context) {
	src := c.MustGet(cameraSourceKey).(*model.CameraSource)

	ok, err := model.DeleteCameraSource(src.Id)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	} else if !ok {
		s.writeError(c, http.StatusNotFound, errors.New("source not found"))
		return
	}

	s.runner.Stop(model.SourceKindCamera, src.Id)
	c.JSON(http.StatusOK, dao.Result{Ok: true})
}

// handleListCameraInferences lists detections of a camera source
// @Summary List camera source inferences
// @Description Inferences with t > since_t in ascending t order
// @Tags camera sources
// @Produce json
// @Param camera_id path int true "camera source id"
// @Param since_t query number false "exclusive lower bound of t, unix seconds"
// @Param limit query int false "page size, at most 5000" default(1000)
// @Success 200 {array} dao.Inference
// @Failure 400 {object} ErrorResponse "invalid request"
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/camera-sources/{camera_id}/inferences [get]
func (s *Server) handleListCameraInferences(c *gin.Context) {
	src := c.MustGet(cameraSourceKey).(*model.CameraSource)
	s.listInferences(c, model.SourceKindCamera, src.Id)
}

// handleInferCameraSource starts inference of a camera source
// @Summary Start camera source inference
// @Tags camera sources
// @Produce json
// @Param camera_id path int true "camera source id"
// @Success 200 {object} dao.CameraSource
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/camera-sources/{camera_id}/tasks/infer [post]
func (s *Server) handleInferCameraSource(c *gin.Context) {
	src := c.MustGet(cameraSourceKey).(*model.CameraSource)
	if err := s.runner.Start(model.SourceKindCamera, src.Id); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, dao.FromCameraSourceModel(src))
}

// handleGetCameraInferTask reports the inference task of a camera source
// @Summary Get camera source inference status
// @Tags camera sources
// @Produce json
// @Param camera_id path int true "camera source id"
// @Success 200 {object} dao.TaskStatus
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/camera-sources/{camera_id}/tasks/infer [get]
func (s *Server) handleGetCameraInferTask(c *gin.Context) {
	src := c.MustGet(cameraSourceKey).(*model.CameraSource)
	s.taskStatus(c, model.SourceKindCamera, src.Id)
}
