package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput() PipelineInput {
	return PipelineInput{
		PrimaryKeyword:    "project management software",
		SecondaryKeywords: []string{"task tracking"},
		Intents:           []SearchIntent{IntentInformational},
	}
}

func newTestStore(t *testing.T) (*MemoryStore, context.Context) {
	t.Helper()
	return NewMemoryStore(), context.Background()
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store, ctx := newTestStore(t)

	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, PhaseCreated, job.Phase)
	assert.Equal(t, testInput(), job.Input)
	assert.Empty(t, job.CompletedChunks)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestMemoryStore_GetJob_Missing(t *testing.T) {
	store, ctx := newTestStore(t)

	job, err := store.GetJob(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestMemoryStore_CreateJob_IdempotentOnSameInput(t *testing.T) {
	store, ctx := newTestStore(t)

	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))
	assert.NoError(t, store.CreateJob(ctx, "job-1", testInput()))
}

func TestMemoryStore_CreateJob_RejectsDifferentInput(t *testing.T) {
	store, ctx := newTestStore(t)

	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	other := testInput()
	other.PrimaryKeyword = "something else"
	err := store.CreateJob(ctx, "job-1", other)
	require.Error(t, err)

	var exists *ErrJobExists
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, "job-1", exists.ID)
}

func TestMemoryStore_CreateJob_RequiresID(t *testing.T) {
	store, ctx := newTestStore(t)
	assert.Error(t, store.CreateJob(ctx, "", testInput()))
}

func TestMemoryStore_UpdatePhase(t *testing.T) {
	store, ctx := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	require.NoError(t, store.UpdatePhase(ctx, "job-1", PhaseResearching))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseResearching, job.Phase)
}

func TestMemoryStore_UpdatePhase_MissingJob(t *testing.T) {
	store, ctx := newTestStore(t)

	err := store.UpdatePhase(ctx, "nope", PhaseResearching)
	var notFound *ErrJobNotFound
	require.True(t, errors.As(err, &notFound))
}

func TestMemoryStore_SaveChunkOutput_RecordsCompletion(t *testing.T) {
	store, ctx := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	chunk := SerpChunk{Results: []SerpResult{{URL: "https://a.com", Title: "A", Position: 1, IsArticle: true}}}
	require.NoError(t, store.SaveChunkOutput(ctx, "job-1", KindResearchSerp, chunk))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, job.CompletedChunks, 1)
	assert.Equal(t, KindResearchSerp, job.CompletedChunks[0].Kind)
	assert.True(t, job.HasChunk(KindResearchSerp))

	got, err := GetSerp(ctx, store, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, chunk.Results, got.Results)
}

func TestMemoryStore_SaveChunkOutput_UpsertKeepsSingleCompletion(t *testing.T) {
	store, ctx := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	store.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	chunk := SerpChunk{Results: []SerpResult{}}
	require.NoError(t, store.SaveChunkOutput(ctx, "job-1", KindResearchSerp, chunk))

	later := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return later }
	require.NoError(t, store.SaveChunkOutput(ctx, "job-1", KindResearchSerp, chunk))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, job.CompletedChunks, 1)
	assert.Equal(t, later, job.CompletedChunks[0].CompletedAt)
	assert.Equal(t, later, job.UpdatedAt)
}

func TestMemoryStore_SaveChunkOutput_RejectsInvalidPayload(t *testing.T) {
	store, ctx := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	// Draft content must be non-empty.
	err := store.SaveChunkOutput(ctx, "job-1", KindDraft, DraftChunk{Title: "T", Slug: "t"})
	assert.Error(t, err)

	raw, err := store.GetChunkOutput(ctx, "job-1", KindDraft)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestMemoryStore_SaveChunkOutput_ClearsErrorMessage(t *testing.T) {
	store, ctx := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	require.NoError(t, store.SetChunkFailed(ctx, "job-1", KindResearch, "all fetches failed"))
	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, job.Phase)
	assert.Equal(t, "research: all fetches failed", job.ErrorMessage)

	chunk := ResearchChunk{
		Competitors: []CompetitorArticle{{URL: "https://a.com", Content: "text", WordCount: 1, FetchSuccess: true}},
		FetchedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.SaveChunkOutput(ctx, "job-1", KindResearch, chunk))

	job, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, job.ErrorMessage)
}

func TestMemoryStore_GetChunkOutput_UnknownKind(t *testing.T) {
	store, ctx := newTestStore(t)

	_, err := store.GetChunkOutput(ctx, "job-1", ChunkKind("bogus"))
	var unknown *ErrUnknownKind
	require.True(t, errors.As(err, &unknown))
}

func TestMemoryStore_GetChunkOutput_AbsentIsNil(t *testing.T) {
	store, ctx := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))

	raw, err := store.GetChunkOutput(ctx, "job-1", KindDraft)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestMemoryStore_GetJob_ReturnsCopy(t *testing.T) {
	store, ctx := newTestStore(t)
	require.NoError(t, store.CreateJob(ctx, "job-1", testInput()))
	require.NoError(t, store.SaveChunkOutput(ctx, "job-1", KindResearchSerp, SerpChunk{Results: []SerpResult{}}))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	job.CompletedChunks[0].Kind = ChunkKind("mutated")
	job.Phase = PhaseFailed

	fresh, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, KindResearchSerp, fresh.CompletedChunks[0].Kind)
	assert.Equal(t, PhaseCreated, fresh.Phase)
}
