package resumes

import "context"

// Repo defines persistence operations for resume records.
// Update is a compare-and-swap: it matches on (ID, UserID, Version),
// increments the version on success, and returns ErrVersionConflict when
// the stored version has moved on.
type Repo interface {
	Create(ctx context.Context, rec ResumeRecord) error
	GetByID(ctx context.Context, userID, resumeID string) (ResumeRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]ResumeRecord, error)
	Update(ctx context.Context, rec ResumeRecord) (ResumeRecord, error)
}
