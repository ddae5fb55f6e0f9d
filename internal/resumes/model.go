package resumes

import (
	"time"

	"cvforge-backend/internal/structure"
)

// Source identifies how a resume record was created.
const (
	SourceUpload   = "upload"
	SourceManual   = "manual"
	SourceTemplate = "template"
)

// Status values for the pipeline state machine.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Template identifiers accepted as structuring hints.
var knownTemplates = map[string]struct{}{
	"modern-clean":         {},
	"professional-classic": {},
	"executive":            {},
	"technical":            {},
	"simple-ats":           {},
}

// ValidTemplate reports whether id names a known template. Empty is valid;
// the hint is optional.
func ValidTemplate(id string) bool {
	if id == "" {
		return true
	}
	_, ok := knownTemplates[id]
	return ok
}

// ResumeRecord is the persisted state of one resume and its pipeline run.
type ResumeRecord struct {
	ID       string
	UserID   string
	FileName string
	Source   string

	StorageKey string
	MimeType   string
	SizeBytes  int64

	NormalizedText string
	StructuredData *structure.StructuredResume

	ATSScore        *int
	Issues          []string
	Recommendations []string

	Status       string
	Processed    bool
	FailedStage  string
	ErrorMessage string

	SelectedTemplate string

	// Version is the optimistic-concurrency token. Every persisted stage
	// transition is a compare-and-swap on this counter.
	Version int64

	CreatedAt    time.Time
	LastEditedAt *time.Time
}
