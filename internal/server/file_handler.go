package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vigil/internal/dao"
	"vigil/internal/model"
)

const defaultUploadExpire = 600 * time.Second

func (s *Server) uploadExpire() time.Duration {
	if s.conf.S3.UploadExpire > 0 {
		return time.Duration(s.conf.S3.UploadExpire) * time.Second
	}
	return defaultUploadExpire
}

// handleCreateFile registers a file and signs its direct upload
// @Summary Create file
// @Description Register a file and return a presigned POST form to upload its content to object storage
// @Tags files
// @Accept json
// @Produce json
// @Param req body dao.FileCreateRequest true "file to create"
// @Success 200 {object} dao.FileCreateResponse
// @Failure 400 {object} ErrorResponse "invalid request"
// @Failure 401 {object} ErrorResponse "unauthorized"
// @Failure 500 {object} ErrorResponse "internal server error"
// @Router /v1/files [post]
func (s *Server) handleCreateFile(c *gin.Context) {
	var req dao.FileCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	key := uuid.New().String()
	url, fields, err := s.store.PresignedPost(c, key, req.ContentType, s.uploadExpire())
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	file := &model.File{
		Name:        req.Name,
		ContentType: req.ContentType,
		S3Bucket:    s.store.Bucket(),
		S3Key:       key,
	}
	if err := model.CreateFile(file); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, dao.FileCreateResponse{
		File:              dao.FromFileModel(file),
		S3PresignedFields: fields,
		S3PresignedUrl:    url,
	})
}
