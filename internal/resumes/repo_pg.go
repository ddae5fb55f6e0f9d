package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cvforge-backend/internal/structure"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const resumeColumns = `
id, user_id, file_name, source, storage_key, mime_type, size_bytes,
normalized_text, structured_data, ats_score, issues, recommendations,
status, processed, failed_stage, error_message, selected_template,
version, created_at, last_edited_at`

// Create inserts a new record.
func (r *PGRepo) Create(ctx context.Context, rec ResumeRecord) error {
	const query = `
INSERT INTO resumes (
	id, user_id, file_name, source, storage_key, mime_type, size_bytes,
	normalized_text, structured_data, ats_score, issues, recommendations,
	status, processed, failed_stage, error_message, selected_template,
	version, created_at, last_edited_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	structuredPayload, err := marshalJSONB(rec.StructuredData)
	if err != nil {
		return fmt.Errorf("marshal structured data: %w", err)
	}
	issuesPayload, err := marshalJSONB(rec.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	recsPayload, err := marshalJSONB(rec.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.FileName,
		rec.Source,
		nullString(rec.StorageKey),
		nullString(rec.MimeType),
		rec.SizeBytes,
		nullString(rec.NormalizedText),
		structuredPayload,
		nullInt(rec.ATSScore),
		issuesPayload,
		recsPayload,
		rec.Status,
		rec.Processed,
		nullString(rec.FailedStage),
		nullString(rec.ErrorMessage),
		nullString(rec.SelectedTemplate),
		rec.Version,
		rec.CreatedAt,
		nullTime(rec.LastEditedAt),
	)
	return err
}

// GetByID returns a record by ID scoped to its owner.
func (r *PGRepo) GetByID(ctx context.Context, userID, resumeID string) (ResumeRecord, error) {
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE id = $1 AND user_id = $2
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, resumeID, userID)
	rec, err := scanResume(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ResumeRecord{}, ErrNotFound
		}
		return ResumeRecord{}, err
	}
	return rec, nil
}

// ListByUser returns records for a user, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]ResumeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []ResumeRecord{}
	for rows.Next() {
		rec, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Update applies a compare-and-swap on the record's version.
func (r *PGRepo) Update(ctx context.Context, rec ResumeRecord) (ResumeRecord, error) {
	const query = `
UPDATE resumes SET
	file_name = $4,
	normalized_text = $5,
	structured_data = $6,
	ats_score = $7,
	issues = $8,
	recommendations = $9,
	status = $10,
	processed = $11,
	failed_stage = $12,
	error_message = $13,
	selected_template = $14,
	last_edited_at = $15,
	version = version + 1
WHERE id = $1 AND user_id = $2 AND version = $3`

	structuredPayload, err := marshalJSONB(rec.StructuredData)
	if err != nil {
		return ResumeRecord{}, fmt.Errorf("marshal structured data: %w", err)
	}
	issuesPayload, err := marshalJSONB(rec.Issues)
	if err != nil {
		return ResumeRecord{}, fmt.Errorf("marshal issues: %w", err)
	}
	recsPayload, err := marshalJSONB(rec.Recommendations)
	if err != nil {
		return ResumeRecord{}, fmt.Errorf("marshal recommendations: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Version,
		rec.FileName,
		nullString(rec.NormalizedText),
		structuredPayload,
		nullInt(rec.ATSScore),
		issuesPayload,
		recsPayload,
		rec.Status,
		rec.Processed,
		nullString(rec.FailedStage),
		nullString(rec.ErrorMessage),
		nullString(rec.SelectedTemplate),
		nullTime(rec.LastEditedAt),
	)
	if err != nil {
		return ResumeRecord{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ResumeRecord{}, err
	}
	if affected == 0 {
		// Distinguish a stale version from a missing record.
		var exists bool
		checkErr := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1 AND user_id = $2)`,
			rec.ID, rec.UserID).Scan(&exists)
		if checkErr != nil {
			return ResumeRecord{}, checkErr
		}
		if exists {
			return ResumeRecord{}, ErrVersionConflict
		}
		return ResumeRecord{}, ErrNotFound
	}
	rec.Version++
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (ResumeRecord, error) {
	var rec ResumeRecord
	var storageKey sql.NullString
	var mimeType sql.NullString
	var normalizedText sql.NullString
	var structuredData sql.NullString
	var atsScore sql.NullInt64
	var issues sql.NullString
	var recommendations sql.NullString
	var failedStage sql.NullString
	var errorMessage sql.NullString
	var selectedTemplate sql.NullString
	var lastEditedAt sql.NullTime

	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.FileName,
		&rec.Source,
		&storageKey,
		&mimeType,
		&rec.SizeBytes,
		&normalizedText,
		&structuredData,
		&atsScore,
		&issues,
		&recommendations,
		&rec.Status,
		&rec.Processed,
		&failedStage,
		&errorMessage,
		&selectedTemplate,
		&rec.Version,
		&rec.CreatedAt,
		&lastEditedAt,
	); err != nil {
		return ResumeRecord{}, err
	}

	rec.StorageKey = storageKey.String
	rec.MimeType = mimeType.String
	rec.NormalizedText = normalizedText.String
	rec.FailedStage = failedStage.String
	rec.ErrorMessage = errorMessage.String
	rec.SelectedTemplate = selectedTemplate.String
	if structuredData.Valid {
		var parsed structure.StructuredResume
		if err := json.Unmarshal([]byte(structuredData.String), &parsed); err == nil {
			rec.StructuredData = &parsed
		}
	}
	if atsScore.Valid {
		score := int(atsScore.Int64)
		rec.ATSScore = &score
	}
	if issues.Valid {
		_ = json.Unmarshal([]byte(issues.String), &rec.Issues)
	}
	if recommendations.Valid {
		_ = json.Unmarshal([]byte(recommendations.String), &rec.Recommendations)
	}
	if lastEditedAt.Valid {
		rec.LastEditedAt = &lastEditedAt.Time
	}
	return rec, nil
}

func marshalJSONB(v any) (any, error) {
	switch val := v.(type) {
	case *structure.StructuredResume:
		if val == nil {
			return nil, nil
		}
	case []string:
		if val == nil {
			return nil, nil
		}
	default:
		if v == nil {
			return nil, nil
		}
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var _ Repo = (*PGRepo)(nil)
