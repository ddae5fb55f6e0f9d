package resumes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cvforge-backend/internal/extract"
	"cvforge-backend/internal/shared/server/middleware"
	"cvforge-backend/internal/shared/server/respond"
)

// maxUploadBytes caps multipart resume uploads.
const maxUploadBytes = 10 << 20

// Handler exposes the resume endpoints.
type Handler struct {
	Service *Service
}

// Register mounts the resume routes on the given group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/resumes", h.create)
	g.POST("/resumes/upload", h.upload)
	g.POST("/resumes/:id/process", h.process)
	g.GET("/resumes", h.list)
	g.GET("/resumes/:id", h.get)
	g.GET("/resumes/:id/structured", h.getStructured)
	g.PUT("/resumes/:id/structured", h.putStructured)
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	rec, err := h.Service.Create(c.Request.Context(), userID, CreateInput{
		FileName:         req.FileName,
		Source:           req.Source,
		StorageKey:       req.StorageKey,
		MimeType:         req.MimeType,
		SizeBytes:        req.SizeBytes,
		RawText:          req.RawText,
		SelectedTemplate: req.SelectedTemplate,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to create resume", nil)
		return
	}

	c.Set("resumeId", rec.ID)
	respond.Created(c, CreateResponse{ResumeID: rec.ID, Status: rec.Status})
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "bad_request", "multipart field 'file' is required", nil)
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the 10MB limit", nil)
		return
	}

	rec, err := h.Service.Upload(c.Request.Context(), userID, header.Filename, file)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to store upload", nil)
		return
	}

	c.Set("resumeId", rec.ID)
	respond.Created(c, CreateResponse{ResumeID: rec.ID, Status: rec.Status})
}

func (h *Handler) process(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	c.Set("resumeId", resumeID)

	var req ProcessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
			return
		}
	}

	if req.Async {
		err := h.Service.Enqueue(c.Request.Context(), userID, resumeID, req.SelectedTemplate, c.GetString("requestId"))
		switch {
		case err == nil:
			respond.JSON(c, http.StatusAccepted, gin.H{"resumeId": resumeID, "status": StatusProcessing, "queued": true})
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		case errors.Is(err, ErrQueueNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "asynchronous processing is not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal", "failed to enqueue pipeline run", nil)
		}
		return
	}

	result, err := h.Service.Process(c.Request.Context(), userID, resumeID, req.SelectedTemplate)
	if err != nil {
		h.respondProcessError(c, result, err)
		return
	}

	c.Set("pipelineStage", "completed")
	respond.OK(c, result)
}

func (h *Handler) respondProcessError(c *gin.Context, result PipelineResult, err error) {
	se := AsStageError(err)
	stage := ""
	if se != nil {
		stage = se.Stage
		c.Set("pipelineStage", stage)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		respond.StageError(c, http.StatusNotFound, "not_found", "resume not found", stage, nil)
	case errors.Is(err, ErrRunInFlight):
		respond.StageError(c, http.StatusConflict, "run_in_flight", "a pipeline run is already in flight for this resume", stage, nil)
	case errors.Is(err, ErrInvalidInput):
		respond.StageError(c, http.StatusBadRequest, "invalid_input", err.Error(), stage, nil)
	default:
		code := "pipeline_failed"
		message := err.Error()
		status := http.StatusInternalServerError
		if xe := extract.AsError(err); xe != nil {
			code = xe.Code
			message = xe.Message
			status = http.StatusUnprocessableEntity
			respond.StageError(c, status, code, message, stage, gin.H{"suggestion": xe.Suggestion, "status": result.Status})
			return
		}
		respond.StageError(c, status, code, message, stage, gin.H{"status": result.Status})
	}
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := parseQueryInt(c, "limit", 20)
	offset := parseQueryInt(c, "offset", 0)

	recs, err := h.Service.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to list resumes", nil)
		return
	}

	items := make([]ListItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toListItem(rec))
	}
	respond.OK(c, gin.H{"resumes": items, "limit": limit, "offset": offset})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	c.Set("resumeId", resumeID)

	rec, err := h.Service.Get(c.Request.Context(), userID, resumeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to load resume", nil)
		return
	}

	includeText := c.Query("includeText") == "true"
	respond.OK(c, toDetail(rec, includeText))
}

func (h *Handler) getStructured(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	c.Set("resumeId", resumeID)

	rec, err := h.Service.Get(c.Request.Context(), userID, resumeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to load resume", nil)
		return
	}
	if rec.StructuredData == nil {
		respond.Error(c, http.StatusNotFound, "not_structured", "resume has no structured data yet", nil)
		return
	}
	respond.OK(c, toStructured(rec))
}

func (h *Handler) putStructured(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := c.Param("id")
	c.Set("resumeId", resumeID)

	var req UpdateStructuredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	rec, err := h.Service.UpdateStructured(c.Request.Context(), userID, resumeID, req.StructuredData, req.SelectedTemplate)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		case errors.Is(err, ErrVersionConflict):
			respond.Error(c, http.StatusConflict, "version_conflict", "the resume was modified concurrently, reload and retry", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal", "failed to update structured data", nil)
		}
		return
	}
	respond.OK(c, toStructured(rec))
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return def
	}
	return val
}
