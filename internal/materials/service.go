package materials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cvforge-backend/internal/resumes"
	"cvforge-backend/internal/shared/storage/object"
	"cvforge-backend/internal/shared/telemetry"
	"cvforge-backend/internal/structure"
)

const (
	// MinJobDescriptionLength is the floor for a usable job description.
	MinJobDescriptionLength = 50
	// MinCVLength is the floor for the rendered CV text.
	MinCVLength = 100
)

var (
	// ErrJobDescriptionTooShort rejects job descriptions under the floor.
	ErrJobDescriptionTooShort = fmt.Errorf("job description must be at least %d characters long", MinJobDescriptionLength)
	// ErrCVTooShort rejects records whose rendered CV is too thin to
	// generate from.
	ErrCVTooShort = fmt.Errorf("rendered CV must be at least %d characters long", MinCVLength)
)

// GenerationError wraps a model-output defect together with the raw output
// for diagnosis.
type GenerationError struct {
	RawOutput string
	Err       error
}

func (e *GenerationError) Error() string { return e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// Package is the generated application bundle.
type Package struct {
	RewrittenCV        string   `json:"rewrittenCV"`
	CoverLetter        string   `json:"coverLetter"`
	SkillsMatch        []string `json:"skillsMatch"`
	SkillsGap          []string `json:"skillsGap"`
	InterviewQuestions []string `json:"interviewQuestions"`
	Summary            string   `json:"summary"`
}

// Completer produces one chat completion for a system/user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Service generates application materials for completed resumes.
type Service struct {
	Resumes   *resumes.Service
	Completer Completer
	Store     object.ObjectStore
}

// Generate builds the application package for a completed resume against a
// target job description. A copy of the package is persisted next to the
// resume's other artifacts, best-effort.
func (s *Service) Generate(ctx context.Context, userID, resumeID, jobDescription string) (Package, error) {
	if len(strings.TrimSpace(jobDescription)) < MinJobDescriptionLength {
		return Package{}, ErrJobDescriptionTooShort
	}

	rec, err := s.Resumes.Get(ctx, userID, resumeID)
	if err != nil {
		return Package{}, err
	}
	if !rec.Processed || rec.StructuredData == nil {
		return Package{}, resumes.ErrNotCompleted
	}

	cv := RenderPlainText(rec.StructuredData)
	if len(cv) < MinCVLength {
		return Package{}, ErrCVTooShort
	}

	prompt := fmt.Sprintf(generatePromptTemplate, cv, strings.TrimSpace(jobDescription))
	raw, err := s.Completer.Complete(ctx, systemPromptCoach, prompt)
	if err != nil {
		return Package{}, err
	}

	pkg, err := parsePackage(raw)
	if err != nil {
		return Package{}, err
	}

	s.persistCopy(ctx, userID, resumeID, pkg)

	telemetry.Info("materials.generated", map[string]any{
		"resume_id":    resumeID,
		"user_id":      userID,
		"skills_match": len(pkg.SkillsMatch),
		"skills_gap":   len(pkg.SkillsGap),
	})
	return pkg, nil
}

func parsePackage(raw string) (Package, error) {
	cleaned := structure.StripFences(raw)
	if !json.Valid([]byte(cleaned)) {
		return Package{}, &GenerationError{RawOutput: raw, Err: errors.New("model output is not valid JSON")}
	}
	var pkg Package
	if err := json.Unmarshal([]byte(cleaned), &pkg); err != nil {
		return Package{}, &GenerationError{RawOutput: raw, Err: err}
	}
	if strings.TrimSpace(pkg.RewrittenCV) == "" || strings.TrimSpace(pkg.CoverLetter) == "" {
		return Package{}, &GenerationError{RawOutput: raw, Err: errors.New("model output is missing required fields")}
	}
	if pkg.SkillsMatch == nil {
		pkg.SkillsMatch = []string{}
	}
	if pkg.SkillsGap == nil {
		pkg.SkillsGap = []string{}
	}
	if pkg.InterviewQuestions == nil {
		pkg.InterviewQuestions = []string{}
	}
	return pkg, nil
}

// persistCopy writes the package to the blob store. Failures are logged and
// never surfaced; the response already carries the content.
func (s *Service) persistCopy(ctx context.Context, userID, resumeID string, pkg Package) {
	if s.Store == nil {
		return
	}
	payload, err := json.Marshal(pkg)
	if err != nil {
		return
	}
	key := userID + "/" + resumeID + ".materials.json"
	if _, err := s.Store.SaveWithKey(ctx, key, "application/json", strings.NewReader(string(payload))); err != nil {
		telemetry.Warn("materials.persist_failed", map[string]any{
			"resume_id": resumeID,
			"error":     err.Error(),
		})
	}
}
