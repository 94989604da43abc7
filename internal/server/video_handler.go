package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vigil/internal/dao"
	"vigil/internal/model"
)

const videoSourceKey = "video_source"

func SetVideoSourceToContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("video_id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid video_id",
			})
			return
		}

		src, err := model.GetVideoSourceById(id)
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
		c.Set(videoSourceKey, src)
		c.Next()
	}
}

// syncInferenceTask starts the task of an active source and stops it otherwise.
func (s *Server) syncInferenceTask(kind model.SourceKind, id int, active bool) {
	if !active {
		s.runner.Stop(kind, id)
		return
	}
	if err := s.runner.Start(kind, id); err != nil {
		s.logger.WithError(err).Errorf("start inference of %s %d failed", kind, id)
	}
}

// handleListVideoSources lists video sources
// @Summary List video sources
// @Tags video sources
// @Produce json
// @Success 200 {array} dao.VideoSource
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/video-sources [get]
func (s *Server) handleListVideoSources(c *gin.Context) {
	sources, err := model.ListVideoSources()
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	resp := make([]dao.VideoSource, 0, len(sources))
	for i := range sources {
		resp = append(resp, *dao.FromVideoSourceModel(&sources[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleCreateVideoSource creates a video source
// @Summary Create video source
// @Description Create a video source over an uploaded file; an active source starts inference
// @Tags video sources
// @Accept json
// @Produce json
// @Param req body dao.VideoSourceCreateRequest true "video source"
// @Success 200 {object} dao.VideoSource
// @Failure 400 {object} ErrorResponse "invalid request"
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/video-sources [post]
func (s *Server) handleCreateVideoSource(c *gin.Context) {
	var req dao.VideoSourceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	file, err := model.GetFileById(req.FileId)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	} else if file == nil {
		s.writeError(c, http.StatusBadRequest, errors.New("file not found"))
		return
	}

	src := req.ToModel(time.Now())
	if err := model.CreateVideoSource(src); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	src.File = file

	s.syncInferenceTask(model.SourceKindVideo, src.Id, src.IsActive)
	c.JSON(http.StatusOK, dao.FromVideoSourceModel(src))
}

// handleUpdateVideoSource updates a video source
// @Summary Update video source
// @Description Partially update a video source; inference follows is_active
// @Tags video sources
// @Accept json
// @Produce json
// @Param video_id path int true "video source id"
// @Param req body dao.SourceUpdateRequest true "fields to update"
// @Success 200 {object} dao.VideoSource
// @Failure 400 {object} ErrorResponse "invalid request"
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/video-sources/{video_id} [patch]
func (s *Server) handleUpdateVideoSource(c *gin.Context) {
	var req dao.SourceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	src := c.MustGet(videoSourceKey).(*model.VideoSource)
	req.UpdateVideoModel(src)
	if err := model.UpdateVideoSource(src); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	s.syncInferenceTask(model.SourceKindVideo, src.Id, src.IsActive)
	c.JSON(http.StatusOK, dao.FromVideoSourceModel(src))
}

// handleDeleteVideoSource soft deletes a video source
// @Summary Delete video source
// @Tags video sources
// @Produce json
// @Param video_id path int true "video source id"
// @Success 200 {object} dao.Result
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/video-sources/{video_id} [delete]
func (s *Server) handleDeleteVideoSource(c *gin.Context) {
	src := c.MustGet(videoSourceKey).(*model.VideoSource)

	ok, err := model.DeleteVideoSource(src.Id)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	} else if !ok {
		s.writeError(c, http.StatusNotFound, errors.New("source not found"))
		return
	}

	s.runner.Stop(model.SourceKindVideo, src.Id)
	c.JSON(http.StatusOK, dao.Result{Ok: true})
}

// handleListVideoInferences lists detections of a video source
// @Summary List video source inferences
// @Description Inferences with t > since_t in ascending t order
// @Tags video sources
// @Produce json
// @Param video_id path int true "video source id"
// @Param since_t query number false "exclusive lower bound of t, unix seconds"
// @Param limit query int false "page size, at most 5000" default(1000)
// @Success 200 {array} dao.Inference
// @Failure 400 {object} ErrorResponse "invalid request"
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/video-sources/{video_id}/inferences [get]
func (s *Server) handleListVideoInferences(c *gin.Context) {
	src := c.MustGet(videoSourceKey).(*model.VideoSource)
	s.listInferences(c, model.SourceKindVideo, src.Id)
}

// handleInferVideoSource (re)starts inference of a video source
// @Summary Start video source inference
// @Description Restart the inference task, wiping previous detections
// @Tags video sources
// @Produce json
// @Param video_id path int true "video source id"
// @Success 200 {object} dao.VideoSource
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/video-sources/{video_id}/tasks/infer [post]
func (s *Server) handleInferVideoSource(c *gin.Context) {
	src := c.MustGet(videoSourceKey).(*model.VideoSource)
	if err := s.runner.Start(model.SourceKindVideo, src.Id); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, dao.FromVideoSourceModel(src))
}

// handleGetVideoInferTask reports the inference task of a video source
// @Summary Get video source inference status
// @Tags video sources
// @Produce json
// @Param video_id path int true "video source id"
// @Success 200 {object} dao.TaskStatus
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 404 {object} ErrorResponse "source not found"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/video-sources/{video_id}/tasks/infer [get]
func (s *Server) handleGetVideoInferTask(c *gin.Context) {
	src := c.MustGet(videoSourceKey).(*model.VideoSource)
	s.taskStatus(c, model.SourceKindVideo, src.Id)
}
