package structure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cvforge-backend/internal/llm"
	"cvforge-backend/internal/shared/telemetry"
)

// MinTextLength guards the LLM from inputs that cannot be a resume.
const MinTextLength = 50

// ErrTextTooShort is returned before any LLM call for undersized input.
var ErrTextTooShort = errors.New("resume text is too short to structure")

// StructuringError wraps a parse or validation failure and carries the raw
// model output for diagnostics.
type StructuringError struct {
	RawOutput string
	Err       error
}

func (e *StructuringError) Error() string {
	return fmt.Sprintf("structuring failed: %v", e.Err)
}

func (e *StructuringError) Unwrap() error { return e.Err }

// Service turns normalized resume text into a validated StructuredResume.
type Service struct {
	client llm.Client
}

// NewService builds a structuring service on top of an LLM client.
func NewService(client llm.Client) *Service {
	return &Service{client: client}
}

// Structure runs one structuring pass. It performs no internal retries;
// transient failures are the caller's to retry.
func (s *Service) Structure(ctx context.Context, normalizedText, templateID string) (*StructuredResume, error) {
	if len(strings.TrimSpace(normalizedText)) < MinTextLength {
		return nil, ErrTextTooShort
	}

	raw, err := s.client.StructureResume(ctx, llm.StructureInput{
		ResumeText: normalizedText,
		TemplateID: templateID,
	})
	if err != nil {
		return nil, fmt.Errorf("llm structure: %w", err)
	}

	return Parse(raw)
}

// Parse decodes raw model output into a normalized StructuredResume.
// Markdown fences are tolerated, the payload is schema-validated, and nil
// sections are filled in.
func Parse(raw []byte) (*StructuredResume, error) {
	cleaned := StripFences(string(raw))
	if !json.Valid([]byte(cleaned)) {
		telemetry.Error("structure.invalid_json", map[string]any{"raw_len": len(raw)})
		return nil, &StructuringError{RawOutput: string(raw), Err: errors.New("model returned invalid JSON")}
	}

	if err := ValidateJSON([]byte(cleaned)); err != nil {
		telemetry.Error("structure.schema_violation", map[string]any{"error": err.Error()})
		return nil, &StructuringError{RawOutput: string(raw), Err: err}
	}

	var resume StructuredResume
	if err := json.Unmarshal([]byte(cleaned), &resume); err != nil {
		return nil, &StructuringError{RawOutput: string(raw), Err: fmt.Errorf("decode: %w", err)}
	}

	resume.Normalize()
	return &resume, nil
}

// StripFences removes markdown code fences some models wrap around JSON.
func StripFences(s string) string {
	out := strings.TrimSpace(s)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSpace(out)
	}
	if strings.HasSuffix(out, "```") {
		out = strings.TrimSuffix(out, "```")
		out = strings.TrimSpace(out)
	}
	return out
}
