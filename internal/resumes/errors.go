package resumes

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both a missing record and an ownership mismatch.
	ErrNotFound = errors.New("resume not found")
	// ErrInvalidInput flags a creation-contract violation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVersionConflict is returned by repos when a compare-and-swap
	// update observes a stale version.
	ErrVersionConflict = errors.New("version conflict")
	// ErrRunInFlight rejects a pipeline trigger while another run holds
	// the record.
	ErrRunInFlight = errors.New("pipeline run already in flight")
	// ErrNotCompleted guards operations that need a completed record.
	ErrNotCompleted = errors.New("resume processing not completed")
	// ErrNoSourceText marks a record with neither normalized text nor a
	// stored file to extract from.
	ErrNoSourceText = errors.New("no source text or stored file")
	// ErrQueueNotConfigured rejects async triggers without a queue backend.
	ErrQueueNotConfigured = errors.New("job queue not configured")
)

// Pipeline stage names, recorded on failure and used in responses.
const (
	StageLoad           = "load"
	StageMarkProcessing = "mark_processing"
	StageConversion     = "conversion"
	StageStructuring    = "structuring"
	StageScoring        = "scoring"
	StagePersist        = "persist"
)

// StageError tags a pipeline failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// AsStageError returns the stage error inside err, or nil.
func AsStageError(err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
