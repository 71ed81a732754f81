package jobs

import (
	"context"
	"fmt"
)

// Store is the persistence contract consumed by the pipeline. A nil job
// or nil chunk payload with a nil error means "not found".
//
// SaveChunkOutput is an upsert (last write wins) and also upserts the
// job's completion record for the kind, clears any prior error message
// and bumps UpdatedAt.
type Store interface {
	GetJob(ctx context.Context, id string) (*Job, error)
	// CreateJob creates a job in phase created. Creating an existing id
	// with identical input is a no-op; a different input is rejected so
	// a job's frozen input is never silently overwritten.
	CreateJob(ctx context.Context, id string, input PipelineInput) error
	UpdatePhase(ctx context.Context, id string, phase Phase) error
	// SetChunkFailed marks the job failed and records the stage error.
	SetChunkFailed(ctx context.Context, id string, kind ChunkKind, message string) error
	GetChunkOutput(ctx context.Context, id string, kind ChunkKind) ([]byte, error)
	SaveChunkOutput(ctx context.Context, id string, kind ChunkKind, payload any) error
}

// ErrJobExists indicates a create collided with an existing job whose
// input differs.
type ErrJobExists struct {
	ID string
}

func (e *ErrJobExists) Error() string {
	return fmt.Sprintf("job already exists with different input: %s", e.ID)
}

// ErrJobNotFound indicates the referenced job does not exist.
type ErrJobNotFound struct {
	ID string
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.ID)
}

// ErrUnknownKind indicates a chunk kind outside ValidKinds.
type ErrUnknownKind struct {
	Kind ChunkKind
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown chunk kind: %s", e.Kind)
}

// KnownKind reports whether kind is one of ValidKinds.
func KnownKind(kind ChunkKind) bool {
	for _, k := range ValidKinds {
		if k == kind {
			return true
		}
	}
	return false
}
