package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolavi/blog-pipeline/internal/jobs"
)

// seedDraftedJob runs the pipeline through the draft stage.
func seedDraftedJob(t *testing.T, f *runnerFixture, jobID string) {
	t.Helper()
	seedBriefedJob(t, f, jobID)
	_, err := f.runner.RunDraft(context.Background(), DraftRequest{JobID: jobID}, nil)
	require.NoError(t, err)
}

func TestRunValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("runs all four engines and completes the job", func(t *testing.T) {
		f := newTestRunner()
		seedDraftedJob(t, f, "job-1")
		rec := &eventRecorder{}

		chunk, err := f.runner.RunValidate(ctx, "job-1", rec.callback())
		require.NoError(t, err)

		assert.True(t, chunk.FAQEnforcement.Passed)
		assert.GreaterOrEqual(t, chunk.AuditResult.Score, 0)
		assert.LessOrEqual(t, chunk.AuditResult.Score, 100)
		assert.NotEmpty(t, chunk.AuditResult.Items)
		assert.True(t, chunk.FactCheck.Verified)
		assert.Equal(t, "Project Management Software: The Complete Guide", chunk.SchemaMarkup.Article.Headline)
		require.NotNil(t, chunk.SchemaMarkup.FAQ)
		assert.NotEmpty(t, chunk.FinalContent)

		job, err := f.store.GetJob(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, jobs.PhaseCompleted, job.Phase)

		stored, err := jobs.GetPostprocess(ctx, f.store, "job-1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, chunk.AuditResult.Score, stored.AuditResult.Score)
		assert.Contains(t, rec.statuses(), StatusCompleted)
	})

	t.Run("final content carries the faq corrections", func(t *testing.T) {
		f := newTestRunner()
		seedBriefedJob(t, f, "job-1")
		longAnswer := "Most vendors charge per seat per month and the exact figure depends on the plan you pick and the size of your team and the billing interval you choose and whether you need enterprise features like single sign-on and audit logs and advanced permissions and priority support and a dedicated customer success manager and onboarding assistance and custom contracts and invoicing and regional data residency options too."
		f.llm.content = "<h2>Overview</h2><p>Pick a tool that fits.</p><h2>Frequently Asked Questions</h2><h3>How much does it cost?</h3><p>" + longAnswer + "</p>"
		_, err := f.runner.RunDraft(ctx, DraftRequest{JobID: "job-1"}, nil)
		require.NoError(t, err)

		chunk, err := f.runner.RunValidate(ctx, "job-1", nil)
		require.NoError(t, err)
		assert.False(t, chunk.FAQEnforcement.Passed)
		require.Len(t, chunk.FAQEnforcement.Violations, 1)
		assert.NotContains(t, chunk.FinalContent, longAnswer)
	})

	t.Run("missing draft is a precondition failure", func(t *testing.T) {
		f := newTestRunner()
		seedBriefedJob(t, f, "job-1")

		_, err := f.runner.RunValidate(ctx, "job-1", nil)
		var pe *PreconditionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, CodeDraftMissing, pe.Code)
	})

	t.Run("missing job is not found", func(t *testing.T) {
		f := newTestRunner()
		_, err := f.runner.RunValidate(ctx, "job-ghost", nil)
		var nf *jobs.ErrJobNotFound
		require.ErrorAs(t, err, &nf)
	})

	t.Run("revalidation is idempotent", func(t *testing.T) {
		f := newTestRunner()
		seedDraftedJob(t, f, "job-1")

		first, err := f.runner.RunValidate(ctx, "job-1", nil)
		require.NoError(t, err)
		second, err := f.runner.RunValidate(ctx, "job-1", nil)
		require.NoError(t, err)

		assert.Equal(t, first.AuditResult.Score, second.AuditResult.Score)
		assert.Equal(t, first.FinalContent, second.FinalContent)
		assert.Equal(t, first.FactCheck, second.FactCheck)
	})
}
