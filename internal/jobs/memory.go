package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and database-less
// runs. Safe for concurrent use; chunk upserts are last-write-wins.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	chunks map[string]map[ChunkKind][]byte
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string]*Job),
		chunks: make(map[string]map[ChunkKind][]byte),
		now:    time.Now,
	}
}

// GetJob returns a copy of the job, or nil when absent.
func (m *MemoryStore) GetJob(_ context.Context, id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	cp.CompletedChunks = append([]CompletedChunk(nil), job.CompletedChunks...)
	return &cp, nil
}

// CreateJob creates a job in phase created. Re-creating with identical
// input is a no-op.
func (m *MemoryStore) CreateJob(_ context.Context, id string, input PipelineInput) error {
	if id == "" {
		return fmt.Errorf("job id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.jobs[id]; ok {
		if sameInput(existing.Input, input) {
			return nil
		}
		return &ErrJobExists{ID: id}
	}

	now := m.now()
	m.jobs[id] = &Job{
		ID:        id,
		Input:     input,
		Phase:     PhaseCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdatePhase sets the job phase.
func (m *MemoryStore) UpdatePhase(_ context.Context, id string, phase Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return &ErrJobNotFound{ID: id}
	}
	job.Phase = phase
	job.UpdatedAt = m.now()
	return nil
}

// SetChunkFailed marks the job failed and records the stage error.
func (m *MemoryStore) SetChunkFailed(_ context.Context, id string, kind ChunkKind, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return &ErrJobNotFound{ID: id}
	}
	job.Phase = PhaseFailed
	job.ErrorMessage = fmt.Sprintf("%s: %s", kind, message)
	job.UpdatedAt = m.now()
	return nil
}

// GetChunkOutput returns the raw chunk payload, or nil when absent.
func (m *MemoryStore) GetChunkOutput(_ context.Context, id string, kind ChunkKind) ([]byte, error) {
	if !KnownKind(kind) {
		return nil, &ErrUnknownKind{Kind: kind}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.chunks[id][kind]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}

// SaveChunkOutput validates and upserts the chunk payload, upserts the
// completion record and clears any prior error message.
func (m *MemoryStore) SaveChunkOutput(_ context.Context, id string, kind ChunkKind, payload any) error {
	raw, err := MarshalPayload(kind, payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return &ErrJobNotFound{ID: id}
	}

	if m.chunks[id] == nil {
		m.chunks[id] = make(map[ChunkKind][]byte)
	}
	m.chunks[id][kind] = raw

	now := m.now()
	upsertCompletion(job, kind, now)
	job.ErrorMessage = ""
	job.UpdatedAt = now
	return nil
}

// upsertCompletion records completion of kind exactly once, refreshing
// the timestamp on re-runs.
func upsertCompletion(job *Job, kind ChunkKind, at time.Time) {
	for i, c := range job.CompletedChunks {
		if c.Kind == kind {
			job.CompletedChunks[i].CompletedAt = at
			return
		}
	}
	job.CompletedChunks = append(job.CompletedChunks, CompletedChunk{Kind: kind, CompletedAt: at})
}

func sameInput(a, b PipelineInput) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}
