package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vigil/internal/dao"
	"vigil/internal/model"
)

const defaultInferenceLimit = 1000

func (s *Server) listInferences(c *gin.Context, kind model.SourceKind, id int) {
	var req dao.ListInferencesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultInferenceLimit
	}

	inferences, err := model.GetInferences(kind, id, req.SinceT, req.Limit)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	resp := make([]dao.Inference, 0, len(inferences))
	for i := range inferences {
		resp = append(resp, dao.FromInferenceModel(&inferences[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) taskStatus(c *gin.Context, kind model.SourceKind, id int) {
	status, err := s.runner.Status(kind, id)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
