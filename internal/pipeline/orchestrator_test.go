package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolavi/blog-pipeline/internal/jobs"
)

func TestRunOneShot(t *testing.T) {
	ctx := context.Background()

	t.Run("runs every stage back to back", func(t *testing.T) {
		f := newTestRunner()
		rec := &eventRecorder{}

		result, err := f.runner.RunOneShot(ctx, "job-1", testPipelineInput(), rec.callback())
		require.NoError(t, err)
		assert.Equal(t, "job-1", result.JobID)
		require.NotNil(t, result.Postprocess)

		assert.NotEmpty(t, result.Article.Content)
		assert.Equal(t, "Project Management Software: The Complete Guide", result.Article.Title)
		assert.Equal(t, "project-management-software-guide", result.Article.Slug)
		assert.Equal(t, []string{
			"What Is Project Management Software",
			"Integrations That Matter",
			"Frequently Asked Questions",
			"How much does it cost?",
		}, result.Article.Outline)
		assert.Greater(t, result.Article.WordCount, 0)

		require.Len(t, result.TitleMetaVariants, 2)
		assert.Equal(t, "comparison", result.TitleMetaVariants[1].Approach)
		for _, v := range result.TitleMetaVariants {
			assert.NotEmpty(t, v.Title)
			assert.NotEmpty(t, v.MetaDescription)
		}

		// Every planned H2 appears in the canned draft.
		assert.Empty(t, result.OutlineDrift)

		job, err := f.store.GetJob(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, jobs.PhaseCompleted, job.Phase)
		assert.Equal(t, StepCompleted, NextStep(job.CompletedKinds()))

		// Only article results were fetched; the video result was skipped.
		assert.NotContains(t, f.fetcher.fetched, "https://www.youtube.com/watch?v=x")
	})

	t.Run("reports outline drift when the draft drops sections", func(t *testing.T) {
		f := newTestRunner()
		f.llm.content = `<h2>What Is Project Management Software</h2>
<p>Project management software helps teams plan and track work in one shared place.</p>`

		result, err := f.runner.RunOneShot(ctx, "job-1", testPipelineInput(), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Integrations That Matter", "Frequently Asked Questions"}, result.OutlineDrift)
	})

	t.Run("deadline yields the pipeline timeout error", func(t *testing.T) {
		f := newTestRunner()
		f.runner.Config.Budgets.OneShot = time.Nanosecond

		_, err := f.runner.RunOneShot(ctx, "job-1", testPipelineInput(), nil)
		var te *PipelineTimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "research", te.Stage)
	})

	t.Run("search failure surfaces as a stage error", func(t *testing.T) {
		f := newTestRunner()
		f.search.err = fmt.Errorf("invalid API key")

		_, err := f.runner.RunOneShot(ctx, "job-1", testPipelineInput(), nil)
		var se *StageError
		require.ErrorAs(t, err, &se)
	})
}

func TestAutoSelectURLs(t *testing.T) {
	t.Run("prefers article results up to the limit", func(t *testing.T) {
		selected := autoSelectURLs(testSerpResults(), 3)
		assert.Equal(t, []string{
			"https://alpha.example.com/guide",
			"https://beta.example.com/review",
			"https://gamma.example.com/comparison",
		}, selected)
	})

	t.Run("falls back to any valid result when nothing looks like an article", func(t *testing.T) {
		results := []jobs.SerpResult{
			{URL: "https://www.youtube.com/watch?v=x", IsArticle: false},
			{URL: "not a url", IsArticle: false},
		}
		assert.Equal(t, []string{"https://www.youtube.com/watch?v=x"}, autoSelectURLs(results, 3))
	})

	t.Run("empty results select nothing", func(t *testing.T) {
		assert.Empty(t, autoSelectURLs(nil, 3))
	})
}

func TestOutlineDrift(t *testing.T) {
	outline := []jobs.OutlineSection{
		{Heading: "Getting Started", Level: "h2"},
		{Heading: "Pricing Deep Dive", Level: "h2"},
		{Heading: "A Subsection", Level: "h3"},
	}

	t.Run("matching is case insensitive", func(t *testing.T) {
		draft := `<h2>GETTING STARTED</h2><p>x</p><h2>Pricing Deep Dive</h2><p>y</p>`
		assert.Empty(t, outlineDrift(outline, draft))
	})

	t.Run("dropped h2 is reported, h3 never is", func(t *testing.T) {
		draft := `<h2>Getting Started</h2><p>x</p>`
		assert.Equal(t, []string{"Pricing Deep Dive"}, outlineDrift(outline, draft))
	})
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(fmt.Errorf("googleapi: Error 429: rate limit exceeded")))
	assert.True(t, isTransient(fmt.Errorf("upstream returned 503")))
	assert.True(t, isTransient(fmt.Errorf("request timed out")))

	assert.False(t, isTransient(&ValidationError{Message: "bad input"}))
	assert.False(t, isTransient(&PreconditionError{Code: CodeDraftMissing, Message: "no draft"}))
	assert.False(t, isTransient(&jobs.ErrJobNotFound{ID: "x"}))
	assert.False(t, isTransient(fmt.Errorf("invalid API key")))
}

func TestRetryStage(t *testing.T) {
	ctx := context.Background()
	orig := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = orig }()

	t.Run("retries transient errors then succeeds", func(t *testing.T) {
		calls := 0
		got, err := retryStage(ctx, func() (string, error) {
			calls++
			if calls < 3 {
				return "", fmt.Errorf("upstream returned 502")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		_, err := retryStage(ctx, func() (string, error) {
			calls++
			return "", &ValidationError{Message: "bad input"}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after the retry limit", func(t *testing.T) {
		calls := 0
		_, err := retryStage(ctx, func() (string, error) {
			calls++
			return "", fmt.Errorf("upstream returned 503")
		})
		require.Error(t, err)
		assert.Equal(t, maxRetries+1, calls)
	})
}
