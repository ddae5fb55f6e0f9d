package materials

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvforge-backend/internal/resumes"
	"cvforge-backend/internal/shared/server/middleware"
	"cvforge-backend/internal/shared/server/respond"
)

// Handler exposes the materials-generation endpoint.
type Handler struct {
	Service *Service
}

// Register mounts the materials route on the given group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/resumes/:id/materials", h.generate)
}

// GenerateRequest carries the target job description.
type GenerateRequest struct {
	JobDescription string `json:"jobDescription"`
}

func (h *Handler) generate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	c.Set("resumeId", resumeID)

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	pkg, err := h.Service.Generate(c.Request.Context(), userID, resumeID, req.JobDescription)
	if err != nil {
		switch {
		case errors.Is(err, resumes.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		case errors.Is(err, resumes.ErrNotCompleted):
			respond.Error(c, http.StatusConflict, "not_completed", "resume processing is not completed", nil)
		case errors.Is(err, ErrJobDescriptionTooShort), errors.Is(err, ErrCVTooShort):
			respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "generation_failed", "failed to generate application materials", nil)
		}
		return
	}
	respond.OK(c, pkg)
}
