package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts LLM providers for resume structuring.
type Client interface {
	StructureResume(ctx context.Context, input StructureInput) (json.RawMessage, error)
}

// Completer abstracts single-prompt JSON completions, used for
// application-materials generation.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// StructureInput captures the inputs for a structuring request.
type StructureInput struct {
	ResumeText string
	TemplateID string
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// StructureResume returns ErrNotImplemented.
func (PlaceholderClient) StructureResume(ctx context.Context, input StructureInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}
