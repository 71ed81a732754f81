package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolavi/blog-pipeline/internal/jobs"
)

// seedResearchedJob runs SERP and fetch so the brief stage can follow.
func seedResearchedJob(t *testing.T, f *runnerFixture, jobID string) {
	t.Helper()
	seedReviewedJob(t, f, jobID)
	_, err := f.runner.RunFetch(context.Background(), FetchRequest{
		JobID:        jobID,
		SelectedURLs: []string{"https://alpha.example.com/guide", "https://beta.example.com/review"},
	}, nil)
	require.NoError(t, err)
}

func TestRunBrief(t *testing.T) {
	ctx := context.Background()

	t.Run("synthesizes brief and outline", func(t *testing.T) {
		f := newTestRunner()
		seedResearchedJob(t, f, "job-1")

		analysis, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1"}, nil)
		require.NoError(t, err)
		assert.Len(t, analysis.Brief.TitleCandidates, 2)
		assert.Len(t, analysis.Brief.TitleMetaVariants, 2)
		assert.Len(t, analysis.Outline, 3)
		assert.False(t, analysis.Revised)
		// Target comes from the competitor-derived recommendation.
		assert.Equal(t, 2000, analysis.Brief.TargetWordCount)

		job, err := f.store.GetJob(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, jobs.PhaseDrafting, job.Phase)

		topics, err := jobs.GetTopicExtraction(ctx, f.store, "job-1")
		require.NoError(t, err)
		require.NotNil(t, topics)
		assert.Len(t, topics.Topics, 2)
	})

	t.Run("explicit job input target wins over recommendation", func(t *testing.T) {
		f := newTestRunner()
		input := testPipelineInput()
		input.WordCountTarget = 3000
		_, err := f.runner.RunSerp(ctx, "job-1", input, nil)
		require.NoError(t, err)
		_, err = f.runner.RunFetch(ctx, FetchRequest{JobID: "job-1", SelectedURLs: []string{"https://alpha.example.com/guide"}}, nil)
		require.NoError(t, err)

		analysis, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3000, analysis.Brief.TargetWordCount)
	})

	t.Run("revise requires a word count target in range", func(t *testing.T) {
		f := newTestRunner()
		seedResearchedJob(t, f, "job-1")
		var ve *ValidationError

		_, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1", Revise: true}, nil)
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "wordCountTarget (500-6000) is required when revise is true", ve.Message)

		_, err = f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1", Revise: true, WordCountTarget: 6500}, nil)
		require.ErrorAs(t, err, &ve)
	})

	t.Run("revise reuses cached topic extraction", func(t *testing.T) {
		f := newTestRunner()
		seedResearchedJob(t, f, "job-1")

		_, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1"}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, f.llm.callsFor(promptKeyTopics))

		revised, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1", Revise: true, WordCountTarget: 1200}, nil)
		require.NoError(t, err)
		assert.True(t, revised.Revised)
		assert.Equal(t, 1200, revised.Brief.TargetWordCount)
		// The extraction call did not repeat; only the synthesis did.
		assert.Equal(t, 1, f.llm.callsFor(promptKeyTopics))
		assert.Equal(t, 2, f.llm.callsFor(promptKeyBrief))
	})

	t.Run("missing job is not found", func(t *testing.T) {
		f := newTestRunner()
		_, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-ghost"}, nil)
		var nf *jobs.ErrJobNotFound
		require.ErrorAs(t, err, &nf)
	})

	t.Run("incomplete research is rejected with its code", func(t *testing.T) {
		f := newTestRunner()
		seedReviewedJob(t, f, "job-1")

		_, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1"}, nil)
		var pe *PreconditionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, CodeResearchIncomplete, pe.Code)
	})

	t.Run("synthesis failure marks job failed", func(t *testing.T) {
		f := newTestRunner()
		seedResearchedJob(t, f, "job-1")
		delete(f.llm.jsonByKey, promptKeyBrief)

		_, err := f.runner.RunBrief(ctx, BriefRequest{JobID: "job-1"}, nil)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "brief", se.Stage)

		job, err := f.store.GetJob(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, jobs.PhaseFailed, job.Phase)
	})
}

func TestNormalizeTitleMetaVariants(t *testing.T) {
	t.Run("backfills from title candidates when the model returns none", func(t *testing.T) {
		brief := jobs.Brief{
			TitleCandidates: []string{"First Title", "Second Title", "Third Title"},
			MetaDescription: "A shared meta description for backfilled variants.",
		}
		normalizeTitleMetaVariants(&brief)

		require.Len(t, brief.TitleMetaVariants, minTitleMetaVariants)
		assert.Equal(t, "First Title", brief.TitleMetaVariants[0].Title)
		assert.Equal(t, "Second Title", brief.TitleMetaVariants[1].Title)
		assert.Equal(t, brief.MetaDescription, brief.TitleMetaVariants[0].MetaDescription)
	})

	t.Run("drops incomplete variants and caps at four", func(t *testing.T) {
		brief := jobs.Brief{
			TitleCandidates: []string{"Fallback Title"},
			MetaDescription: "Fallback meta.",
			TitleMetaVariants: []jobs.TitleMetaVariant{
				{Title: "One", MetaDescription: "Meta one", Approach: "how-to"},
				{Title: "", MetaDescription: "Orphan meta"},
				{Title: "Two", MetaDescription: "Meta two", Approach: "listicle"},
				{Title: "Three", MetaDescription: "Meta three", Approach: "comparison"},
				{Title: "Four", MetaDescription: "Meta four", Approach: "question"},
				{Title: "Five", MetaDescription: "Meta five", Approach: "news"},
			},
		}
		normalizeTitleMetaVariants(&brief)

		require.Len(t, brief.TitleMetaVariants, maxTitleMetaVariants)
		assert.Equal(t, "Four", brief.TitleMetaVariants[3].Title)
	})

	t.Run("partial model output is topped up without duplicating titles", func(t *testing.T) {
		brief := jobs.Brief{
			TitleCandidates: []string{"Only Title", "Extra Title"},
			MetaDescription: "Meta.",
			TitleMetaVariants: []jobs.TitleMetaVariant{
				{Title: "Only Title", MetaDescription: "Model meta", Approach: "how-to"},
			},
		}
		normalizeTitleMetaVariants(&brief)

		require.Len(t, brief.TitleMetaVariants, 2)
		assert.Equal(t, "Extra Title", brief.TitleMetaVariants[1].Title)
		assert.Equal(t, "brief candidate", brief.TitleMetaVariants[1].Approach)
	})
}

func TestResolveWordTarget(t *testing.T) {
	topics := &jobs.TopicExtractionChunk{RecommendedWords: 2400}

	assert.Equal(t, 1500, resolveWordTarget(1500, 3000, topics))
	assert.Equal(t, 3000, resolveWordTarget(0, 3000, topics))
	assert.Equal(t, 2400, resolveWordTarget(0, 0, topics))
	assert.Equal(t, DefaultWordCountTarget, resolveWordTarget(0, 0, nil))
	// Out-of-range values clamp to the accepted bounds.
	assert.Equal(t, MinWordCountTarget, resolveWordTarget(100, 0, nil))
	assert.Equal(t, MaxWordCountTarget, resolveWordTarget(9000, 0, nil))
}
