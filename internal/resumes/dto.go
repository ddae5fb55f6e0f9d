package resumes

import (
	"time"

	"cvforge-backend/internal/structure"
)

// CreateRequest is the creation-gateway payload.
type CreateRequest struct {
	FileName         string `json:"fileName"`
	Source           string `json:"source"`
	StorageKey       string `json:"storageKey,omitempty"`
	MimeType         string `json:"mimeType,omitempty"`
	SizeBytes        int64  `json:"sizeBytes,omitempty"`
	RawText          string `json:"rawText,omitempty"`
	SelectedTemplate string `json:"selectedTemplate,omitempty"`
}

// CreateResponse acknowledges a created record.
type CreateResponse struct {
	ResumeID string `json:"resumeId"`
	Status   string `json:"status"`
}

// ProcessRequest optionally overrides the template hint for this run. Async
// hands the run to the queue consumer instead of running inline.
type ProcessRequest struct {
	SelectedTemplate string `json:"selectedTemplate,omitempty"`
	Async            bool   `json:"async,omitempty"`
}

// ListItem is the list projection of a record.
type ListItem struct {
	ResumeID  string    `json:"resumeId"`
	FileName  string    `json:"fileName"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	Processed bool      `json:"processed"`
	ATSScore  *int      `json:"atsScore,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DetailResponse is the full status projection of a record.
type DetailResponse struct {
	ResumeID         string                      `json:"resumeId"`
	FileName         string                      `json:"fileName"`
	Source           string                      `json:"source"`
	Status           string                      `json:"status"`
	Processed        bool                        `json:"processed"`
	ATSScore         *int                        `json:"atsScore,omitempty"`
	Issues           []string                    `json:"issues,omitempty"`
	Recommendations  []string                    `json:"recommendations,omitempty"`
	StructuredData   *structure.StructuredResume `json:"structuredData,omitempty"`
	NormalizedText   string                      `json:"normalizedText,omitempty"`
	FailedStage      string                      `json:"failedStage,omitempty"`
	ErrorMessage     string                      `json:"errorMessage,omitempty"`
	SelectedTemplate string                      `json:"selectedTemplate,omitempty"`
	CreatedAt        time.Time                   `json:"createdAt"`
	LastEditedAt     *time.Time                  `json:"lastEditedAt,omitempty"`
}

// StructuredResponse carries structured data and its score state.
type StructuredResponse struct {
	ResumeID         string                      `json:"resumeId"`
	StructuredData   *structure.StructuredResume `json:"structuredData"`
	ATSScore         *int                        `json:"atsScore,omitempty"`
	Issues           []string                    `json:"issues,omitempty"`
	Recommendations  []string                    `json:"recommendations,omitempty"`
	SelectedTemplate string                      `json:"selectedTemplate,omitempty"`
	LastEditedAt     *time.Time                  `json:"lastEditedAt,omitempty"`
}

// UpdateStructuredRequest replaces structured data, optionally retargeting
// the template.
type UpdateStructuredRequest struct {
	StructuredData   *structure.StructuredResume `json:"structuredData"`
	SelectedTemplate string                      `json:"selectedTemplate,omitempty"`
}

func toListItem(rec ResumeRecord) ListItem {
	return ListItem{
		ResumeID:  rec.ID,
		FileName:  rec.FileName,
		Source:    rec.Source,
		Status:    rec.Status,
		Processed: rec.Processed,
		ATSScore:  rec.ATSScore,
		CreatedAt: rec.CreatedAt,
	}
}

func toDetail(rec ResumeRecord, includeText bool) DetailResponse {
	resp := DetailResponse{
		ResumeID:         rec.ID,
		FileName:         rec.FileName,
		Source:           rec.Source,
		Status:           rec.Status,
		Processed:        rec.Processed,
		ATSScore:         rec.ATSScore,
		Issues:           rec.Issues,
		Recommendations:  rec.Recommendations,
		StructuredData:   rec.StructuredData,
		FailedStage:      rec.FailedStage,
		ErrorMessage:     rec.ErrorMessage,
		SelectedTemplate: rec.SelectedTemplate,
		CreatedAt:        rec.CreatedAt,
		LastEditedAt:     rec.LastEditedAt,
	}
	if includeText {
		resp.NormalizedText = rec.NormalizedText
	}
	return resp
}

func toStructured(rec ResumeRecord) StructuredResponse {
	return StructuredResponse{
		ResumeID:         rec.ID,
		StructuredData:   rec.StructuredData,
		ATSScore:         rec.ATSScore,
		Issues:           rec.Issues,
		Recommendations:  rec.Recommendations,
		SelectedTemplate: rec.SelectedTemplate,
		LastEditedAt:     rec.LastEditedAt,
	}
}
