package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kolavi/blog-pipeline/internal/jobs"
)

// JobStore implements jobs.Store on top of PostgreSQL.
type JobStore struct {
	db *DB
}

// NewJobStore wraps a DB as a jobs.Store.
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

var _ jobs.Store = (*JobStore)(nil)

// GetJob retrieves a job with its completion records, or nil when absent.
func (s *JobStore) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	var job jobs.Job
	var inputJSON []byte
	var errorMessage *string

	err := s.db.pool.QueryRow(ctx,
		`SELECT id, input, phase, error_message, created_at, updated_at
		 FROM blog_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &inputJSON, &job.Phase, &errorMessage, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if err := json.Unmarshal(inputJSON, &job.Input); err != nil {
		return nil, fmt.Errorf("failed to decode job input: %w", err)
	}
	if errorMessage != nil {
		job.ErrorMessage = *errorMessage
	}

	rows, err := s.db.pool.Query(ctx,
		`SELECT kind, completed_at FROM blog_chunks
		 WHERE job_id = $1 ORDER BY completed_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c jobs.CompletedChunk
		if err := rows.Scan(&c.Kind, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed chunk: %w", err)
		}
		job.CompletedChunks = append(job.CompletedChunks, c)
	}

	return &job, nil
}

// CreateJob inserts a job in phase created. Re-creating an existing id
// with identical input is a no-op; a different input is rejected.
func (s *JobStore) CreateJob(ctx context.Context, id string, input jobs.PipelineInput) error {
	if id == "" {
		return fmt.Errorf("job id is required")
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal job input: %w", err)
	}

	tag, err := s.db.pool.Exec(ctx,
		`INSERT INTO blog_jobs (id, input, phase)
		 VALUES ($1, $2, 'created')
		 ON CONFLICT (id) DO NOTHING`,
		id, inputJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var existingJSON []byte
	err = s.db.pool.QueryRow(ctx,
		`SELECT input FROM blog_jobs WHERE id = $1`, id,
	).Scan(&existingJSON)
	if err != nil {
		return fmt.Errorf("failed to read existing job: %w", err)
	}

	var existing jobs.PipelineInput
	if err := json.Unmarshal(existingJSON, &existing); err != nil {
		return fmt.Errorf("failed to decode existing job input: %w", err)
	}
	normalized, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("failed to compare job input: %w", err)
	}
	if string(normalized) == string(inputJSON) {
		return nil
	}
	return &jobs.ErrJobExists{ID: id}
}

// UpdatePhase sets the job phase.
func (s *JobStore) UpdatePhase(ctx context.Context, id string, phase jobs.Phase) error {
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE blog_jobs SET phase = $1, updated_at = NOW() WHERE id = $2`,
		phase, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update phase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &jobs.ErrJobNotFound{ID: id}
	}
	return nil
}

// SetChunkFailed marks the job failed and records the stage error.
func (s *JobStore) SetChunkFailed(ctx context.Context, id string, kind jobs.ChunkKind, message string) error {
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE blog_jobs
		 SET phase = 'failed', error_message = $1, updated_at = NOW()
		 WHERE id = $2`,
		fmt.Sprintf("%s: %s", kind, message), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &jobs.ErrJobNotFound{ID: id}
	}
	return nil
}

// GetChunkOutput retrieves the raw chunk payload, or nil when absent.
func (s *JobStore) GetChunkOutput(ctx context.Context, id string, kind jobs.ChunkKind) ([]byte, error) {
	if !jobs.KnownKind(kind) {
		return nil, &jobs.ErrUnknownKind{Kind: kind}
	}

	var payload []byte
	err := s.db.pool.QueryRow(ctx,
		`SELECT payload FROM blog_chunks WHERE job_id = $1 AND kind = $2`,
		id, kind,
	).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s chunk: %w", kind, err)
	}
	return payload, nil
}

// SaveChunkOutput validates and upserts the chunk payload, refreshes the
// completion record and clears any prior error message. The two writes
// run in one transaction so a completed chunk is never visible on a job
// that still carries a stale failure.
func (s *JobStore) SaveChunkOutput(ctx context.Context, id string, kind jobs.ChunkKind, payload any) error {
	raw, err := jobs.MarshalPayload(kind, payload)
	if err != nil {
		return err
	}

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE blog_jobs SET error_message = NULL, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &jobs.ErrJobNotFound{ID: id}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO blog_chunks (job_id, kind, payload, completed_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (job_id, kind) DO UPDATE SET payload = $3, completed_at = NOW()`,
		id, kind, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s chunk: %w", kind, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunk save: %w", err)
	}
	return nil
}
