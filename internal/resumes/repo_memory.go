package resumes

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo, used in dev mode and
// in tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]ResumeRecord // id -> record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]ResumeRecord)}
}

// Create stores a new record.
func (r *MemoryRepo) Create(ctx context.Context, rec ResumeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rec.ID] = rec
	return nil
}

// GetByID returns a record by ID scoped to its owner.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, resumeID string) (ResumeRecord, error) {
	if err := ctx.Err(); err != nil {
		return ResumeRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[resumeID]
	if !ok || rec.UserID != userID {
		return ResumeRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListByUser returns records for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]ResumeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	recs := make([]ResumeRecord, 0)
	for _, rec := range r.data {
		if rec.UserID == userID {
			recs = append(recs, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})

	if offset >= len(recs) {
		return []ResumeRecord{}, nil
	}
	end := len(recs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return recs[offset:end], nil
}

// Update applies a compare-and-swap on the record's version.
func (r *MemoryRepo) Update(ctx context.Context, rec ResumeRecord) (ResumeRecord, error) {
	if err := ctx.Err(); err != nil {
		return ResumeRecord{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.data[rec.ID]
	if !ok || stored.UserID != rec.UserID {
		return ResumeRecord{}, ErrNotFound
	}
	if stored.Version != rec.Version {
		return ResumeRecord{}, ErrVersionConflict
	}
	rec.Version++
	r.data[rec.ID] = rec
	return rec, nil
}

var _ Repo = (*MemoryRepo)(nil)
