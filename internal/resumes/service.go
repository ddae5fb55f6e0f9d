package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cvforge-backend/internal/extract"
	"cvforge-backend/internal/queue"
	"cvforge-backend/internal/scoring"
	"cvforge-backend/internal/shared/metrics"
	"cvforge-backend/internal/shared/storage/object"
	"cvforge-backend/internal/shared/telemetry"
	"cvforge-backend/internal/structure"
)

const (
	structuringAttempts = 3
	backoffUnit         = time.Second
)

// Structurer turns normalized text into a structured resume.
type Structurer interface {
	Structure(ctx context.Context, normalizedText, templateID string) (*structure.StructuredResume, error)
}

// Service owns the resume lifecycle: creation, the processing pipeline,
// and reads/edits of its outputs.
type Service struct {
	Repo       Repo
	Store      object.ObjectStore
	Structurer Structurer

	// Queue, when set, enables asynchronous pipeline triggers.
	Queue queue.Client

	// StructuringTimeout bounds each structuring attempt.
	StructuringTimeout time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// NewService wires a Service with wall-clock time and real sleeping.
func NewService(repo Repo, store object.ObjectStore, structurer Structurer, structuringTimeout time.Duration) *Service {
	if structuringTimeout <= 0 {
		structuringTimeout = 60 * time.Second
	}
	return &Service{
		Repo:               repo,
		Store:              store,
		Structurer:         structurer,
		StructuringTimeout: structuringTimeout,
		now:                time.Now,
		sleep:              time.Sleep,
	}
}

// CreateInput is the creation-gateway payload.
type CreateInput struct {
	FileName         string
	Source           string
	StorageKey       string
	MimeType         string
	SizeBytes        int64
	RawText          string
	SelectedTemplate string
}

// Create enforces the source contract and persists a new record in the
// processing state.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (ResumeRecord, error) {
	if strings.TrimSpace(in.FileName) == "" {
		return ResumeRecord{}, fmt.Errorf("%w: fileName is required", ErrInvalidInput)
	}
	if !ValidTemplate(in.SelectedTemplate) {
		return ResumeRecord{}, fmt.Errorf("%w: unknown template %q", ErrInvalidInput, in.SelectedTemplate)
	}

	rec := ResumeRecord{
		ID:               uuid.NewString(),
		UserID:           userID,
		FileName:         strings.TrimSpace(in.FileName),
		Source:           in.Source,
		SelectedTemplate: in.SelectedTemplate,
		Status:           StatusProcessing,
		Version:          1,
		CreatedAt:        s.now().UTC(),
	}

	switch in.Source {
	case SourceUpload:
		if strings.TrimSpace(in.RawText) != "" {
			return ResumeRecord{}, fmt.Errorf("%w: rawText is not allowed for uploads", ErrInvalidInput)
		}
		if strings.TrimSpace(in.StorageKey) == "" || strings.TrimSpace(in.MimeType) == "" {
			return ResumeRecord{}, fmt.Errorf("%w: storageKey and mimeType are required for uploads", ErrInvalidInput)
		}
		rec.StorageKey = in.StorageKey
		rec.MimeType = in.MimeType
		rec.SizeBytes = in.SizeBytes
	case SourceManual, SourceTemplate:
		if strings.TrimSpace(in.StorageKey) != "" || strings.TrimSpace(in.MimeType) != "" {
			return ResumeRecord{}, fmt.Errorf("%w: storageKey and mimeType are not allowed for %s resumes", ErrInvalidInput, in.Source)
		}
		normalized := extract.Normalize(in.RawText)
		if len(normalized) < extract.MinTextLength {
			return ResumeRecord{}, fmt.Errorf("%w: rawText must be at least %d characters", ErrInvalidInput, extract.MinTextLength)
		}
		rec.NormalizedText = normalized
	default:
		return ResumeRecord{}, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, in.Source)
	}

	if err := s.Repo.Create(ctx, rec); err != nil {
		return ResumeRecord{}, err
	}
	telemetry.Info("resume.created", map[string]any{
		"resume_id": rec.ID,
		"source":    rec.Source,
		"user_id":   rec.UserID,
	})
	return rec, nil
}

// Upload stores the file and creates the record in one step.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (ResumeRecord, error) {
	if strings.TrimSpace(fileName) == "" {
		return ResumeRecord{}, fmt.Errorf("%w: fileName is required", ErrInvalidInput)
	}
	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return ResumeRecord{}, err
	}
	return s.Create(ctx, userID, CreateInput{
		FileName:   fileName,
		Source:     SourceUpload,
		StorageKey: storageKey,
		MimeType:   mimeType,
		SizeBytes:  size,
	})
}

// Get returns a record scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, resumeID string) (ResumeRecord, error) {
	return s.Repo.GetByID(ctx, userID, resumeID)
}

// List returns records for a user, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]ResumeRecord, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// UpdateStructured replaces the structured data, stamps the edit time, and
// re-scores synchronously so the persisted score never trails an edit.
func (s *Service) UpdateStructured(ctx context.Context, userID, resumeID string, data *structure.StructuredResume, templateID string) (ResumeRecord, error) {
	if data == nil {
		return ResumeRecord{}, fmt.Errorf("%w: structured data is required", ErrInvalidInput)
	}
	if !ValidTemplate(templateID) {
		return ResumeRecord{}, fmt.Errorf("%w: unknown template %q", ErrInvalidInput, templateID)
	}

	rec, err := s.Repo.GetByID(ctx, userID, resumeID)
	if err != nil {
		return ResumeRecord{}, err
	}

	data.Normalize()
	analysis := scoring.Score(data)
	now := s.now().UTC()

	rec.StructuredData = data
	rec.ATSScore = &analysis.Score
	rec.Issues = analysis.Issues
	rec.Recommendations = analysis.Recommendations
	rec.LastEditedAt = &now
	if templateID != "" {
		rec.SelectedTemplate = templateID
	}

	updated, err := s.Repo.Update(ctx, rec)
	if err != nil {
		return ResumeRecord{}, err
	}
	return updated, nil
}

// Enqueue hands the pipeline run to the queue consumer. The record is
// verified to exist before the message is sent.
func (s *Service) Enqueue(ctx context.Context, userID, resumeID, templateID, requestID string) error {
	if s.Queue == nil {
		return ErrQueueNotConfigured
	}
	if _, err := s.Repo.GetByID(ctx, userID, resumeID); err != nil {
		return err
	}
	msg := queue.Message{
		ResumeID:   resumeID,
		UserID:     userID,
		RequestID:  requestID,
		TemplateID: templateID,
		EnqueuedAt: s.now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue pipeline run: %w", err)
	}
	telemetry.Info("resume.enqueued", map[string]any{
		"resume_id":  resumeID,
		"user_id":    userID,
		"request_id": requestID,
	})
	return nil
}

// PipelineMetrics captures timing and effort for one pipeline run.
type PipelineMetrics struct {
	TotalMs             int64 `json:"totalMs"`
	StructuringMs       int64 `json:"structuringMs"`
	StructuringAttempts int   `json:"structuringAttempts"`
	TextLength          int   `json:"textLength"`
}

// PipelineResult is the outcome of a pipeline run.
type PipelineResult struct {
	ResumeID string          `json:"resumeId"`
	Status   string          `json:"status"`
	ATSScore *int            `json:"atsScore,omitempty"`
	Metrics  PipelineMetrics `json:"metrics"`
}

// Process drives the pipeline for one record: Load, MarkProcessing,
// Conversion, Structuring, Scoring, FinalPersist. Re-invoking on the same
// id after a failure resumes: stages whose outputs are already persisted
// are skipped.
func (s *Service) Process(ctx context.Context, userID, resumeID, templateID string) (PipelineResult, error) {
	start := s.now()
	metrics.IncPipelineStarted()

	// Load. Failures here are fatal and never mutate status.
	rec, err := s.Repo.GetByID(ctx, userID, resumeID)
	if err != nil {
		metrics.IncPipelineFailed()
		return PipelineResult{}, &StageError{Stage: StageLoad, Err: err}
	}

	// A finished record short-circuits; reprocessing is a no-op.
	if rec.Processed && rec.StructuredData != nil && rec.ATSScore != nil {
		return PipelineResult{
			ResumeID: rec.ID,
			Status:   rec.Status,
			ATSScore: rec.ATSScore,
			Metrics:  PipelineMetrics{TextLength: len(rec.NormalizedText)},
		}, nil
	}

	if templateID != "" {
		if !ValidTemplate(templateID) {
			metrics.IncPipelineFailed()
			return PipelineResult{}, &StageError{Stage: StageLoad, Err: fmt.Errorf("%w: unknown template %q", ErrInvalidInput, templateID)}
		}
		rec.SelectedTemplate = templateID
	}

	// MarkProcessing. The CAS doubles as the in-flight lock: a stale
	// version means another run holds the record.
	s.logTransition(rec.ID, rec.Status, StatusProcessing, "")
	rec.Status = StatusProcessing
	rec.FailedStage = ""
	rec.ErrorMessage = ""
	rec, err = s.Repo.Update(ctx, rec)
	if err != nil {
		metrics.IncPipelineFailed()
		if errors.Is(err, ErrVersionConflict) {
			return PipelineResult{}, &StageError{Stage: StageMarkProcessing, Err: ErrRunInFlight}
		}
		return PipelineResult{}, &StageError{Stage: StageMarkProcessing, Err: err}
	}

	// Conversion, skipped when text is already present.
	if rec.NormalizedText == "" {
		if rec.StorageKey == "" {
			return s.fail(ctx, rec, StageConversion, ErrNoSourceText, start)
		}
		text, err := extract.FromStore(ctx, s.Store, rec.StorageKey, rec.MimeType, rec.FileName)
		if err != nil {
			return s.fail(ctx, rec, StageConversion, err, start)
		}
		rec.NormalizedText = text
		// Persist immediately so a later retry skips conversion.
		rec, err = s.Repo.Update(ctx, rec)
		if err != nil {
			return s.fail(ctx, rec, StagePersist, err, start)
		}
	}

	// Structuring with bounded retries and linear backoff.
	structStart := s.now()
	structured, attempts, err := s.structureWithRetry(ctx, rec.NormalizedText, rec.SelectedTemplate)
	structuringMs := s.now().Sub(structStart).Milliseconds()
	metrics.ObserveStructuringDurationMs(float64(structuringMs))
	if err != nil {
		return s.fail(ctx, rec, StageStructuring, err, start)
	}

	// Scoring is pure; a failure here is a logic defect, tracked on its
	// own metric.
	analysis, err := scoreSafely(structured)
	if err != nil {
		metrics.IncScoringDefect()
		return s.fail(ctx, rec, StageScoring, err, start)
	}

	// FinalPersist: one write carrying every output.
	rec.StructuredData = structured
	rec.ATSScore = &analysis.Score
	rec.Issues = analysis.Issues
	rec.Recommendations = analysis.Recommendations
	s.logTransition(rec.ID, StatusProcessing, StatusCompleted, "")
	rec.Status = StatusCompleted
	rec.Processed = true
	rec, err = s.Repo.Update(ctx, rec)
	if err != nil {
		return s.fail(ctx, rec, StagePersist, err, start)
	}

	totalMs := s.now().Sub(start).Milliseconds()
	metrics.IncPipelineCompleted()
	metrics.ObservePipelineDurationMs(float64(totalMs))

	return PipelineResult{
		ResumeID: rec.ID,
		Status:   rec.Status,
		ATSScore: rec.ATSScore,
		Metrics: PipelineMetrics{
			TotalMs:             totalMs,
			StructuringMs:       structuringMs,
			StructuringAttempts: attempts,
			TextLength:          len(rec.NormalizedText),
		},
	}, nil
}

func (s *Service) structureWithRetry(ctx context.Context, text, templateID string) (*structure.StructuredResume, int, error) {
	var lastErr error
	for attempt := 1; attempt <= structuringAttempts; attempt++ {
		metrics.IncStructuringAttempt()
		attemptCtx, cancel := context.WithTimeout(ctx, s.StructuringTimeout)
		structured, err := s.Structurer.Structure(attemptCtx, text, templateID)
		cancel()
		if err == nil {
			return structured, attempt, nil
		}
		lastErr = err
		telemetry.Warn("resume.structuring.attempt_failed", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if errors.Is(err, structure.ErrTextTooShort) || ctx.Err() != nil {
			break
		}
		if attempt < structuringAttempts {
			s.sleep(time.Duration(attempt) * backoffUnit)
		}
	}
	return nil, structuringAttempts, lastErr
}

func scoreSafely(structured *structure.StructuredResume) (analysis scoring.Analysis, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("scoring panic: %v", rec)
		}
	}()
	return scoring.Score(structured), nil
}

// fail records the failing stage on the record. The status write is
// best-effort: its own failure is logged and never masks the stage error.
func (s *Service) fail(ctx context.Context, rec ResumeRecord, stage string, cause error, start time.Time) (PipelineResult, error) {
	metrics.IncPipelineFailed()
	s.logTransition(rec.ID, rec.Status, StatusFailed, stage)

	rec.Status = StatusFailed
	rec.Processed = false
	rec.FailedStage = stage
	rec.ErrorMessage = cause.Error()
	if _, err := s.Repo.Update(ctx, rec); err != nil {
		telemetry.Error("resume.failure_write_failed", map[string]any{
			"resume_id": rec.ID,
			"stage":     stage,
			"error":     err.Error(),
		})
	}

	totalMs := s.now().Sub(start).Milliseconds()
	metrics.ObservePipelineDurationMs(float64(totalMs))

	return PipelineResult{
		ResumeID: rec.ID,
		Status:   StatusFailed,
		Metrics:  PipelineMetrics{TotalMs: totalMs, TextLength: len(rec.NormalizedText)},
	}, &StageError{Stage: stage, Err: cause}
}

func (s *Service) logTransition(resumeID, from, to, stage string) {
	fields := map[string]any{
		"resume_id":         resumeID,
		"status_transition": from + "->" + to,
	}
	if stage != "" {
		fields["stage"] = stage
	}
	telemetry.Info("resume.status", fields)
}
