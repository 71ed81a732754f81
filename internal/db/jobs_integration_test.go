//go:build integration

package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolavi/blog-pipeline/internal/jobs"
)

func getTestStore(t *testing.T) (*JobStore, *DB) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	require.NoError(t, db.EnsureSchema(ctx))

	// Clean up test data before each test
	_, _ = db.pool.Exec(ctx, "DELETE FROM blog_jobs WHERE id LIKE 'it-job-%'")

	return NewJobStore(db), db
}

func TestIntegration_JobLifecycle(t *testing.T) {
	store, db := getTestStore(t)
	defer db.Close()
	ctx := context.Background()

	input := jobs.PipelineInput{PrimaryKeyword: "integration testing"}

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, store.CreateJob(ctx, "it-job-1", input))

		job, err := store.GetJob(ctx, "it-job-1")
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, jobs.PhaseCreated, job.Phase)
		assert.Equal(t, input, job.Input)
	})

	t.Run("idempotent create", func(t *testing.T) {
		assert.NoError(t, store.CreateJob(ctx, "it-job-1", input))
	})

	t.Run("conflicting create rejected", func(t *testing.T) {
		err := store.CreateJob(ctx, "it-job-1", jobs.PipelineInput{PrimaryKeyword: "other"})
		var exists *jobs.ErrJobExists
		require.True(t, errors.As(err, &exists))
	})

	t.Run("save chunk records completion and clears error", func(t *testing.T) {
		require.NoError(t, store.SetChunkFailed(ctx, "it-job-1", jobs.KindResearchSerp, "boom"))

		chunk := jobs.SerpChunk{Results: []jobs.SerpResult{{URL: "https://a.com", Title: "A", Position: 1}}}
		require.NoError(t, store.SaveChunkOutput(ctx, "it-job-1", jobs.KindResearchSerp, chunk))

		job, err := store.GetJob(ctx, "it-job-1")
		require.NoError(t, err)
		assert.Empty(t, job.ErrorMessage)
		assert.True(t, job.HasChunk(jobs.KindResearchSerp))

		got, err := jobs.GetSerp(ctx, store, "it-job-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Results, 1)
	})

	t.Run("upsert keeps one completion record", func(t *testing.T) {
		chunk := jobs.SerpChunk{Results: []jobs.SerpResult{}}
		require.NoError(t, store.SaveChunkOutput(ctx, "it-job-1", jobs.KindResearchSerp, chunk))
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, store.SaveChunkOutput(ctx, "it-job-1", jobs.KindResearchSerp, chunk))

		job, err := store.GetJob(ctx, "it-job-1")
		require.NoError(t, err)
		count := 0
		for _, c := range job.CompletedChunks {
			if c.Kind == jobs.KindResearchSerp {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("missing job is nil", func(t *testing.T) {
		job, err := store.GetJob(ctx, "it-job-none")
		require.NoError(t, err)
		assert.Nil(t, job)
	})
}
