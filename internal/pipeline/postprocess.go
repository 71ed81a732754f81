package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

// RunValidate runs the four deterministic validation engines over the
// draft and persists the aggregate. Requires a non-empty draft. The
// engines are pure functions of stored state, so re-running validation
// is idempotent.
func (r *Runner) RunValidate(ctx context.Context, jobID string, cb ProgressCallback) (*jobs.PostprocessChunk, error) {
	start := time.Now()
	var err error
	defer func() { r.record("validate", start, err) }()

	job, err := r.Store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		err = &jobs.ErrJobNotFound{ID: jobID}
		return nil, err
	}

	draft, err := jobs.GetDraft(ctx, r.Store, jobID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.Content == "" {
		err = &PreconditionError{
			Code:    CodeDraftMissing,
			Message: fmt.Sprintf("no draft exists for job %s: run the draft stage first", jobID),
		}
		return nil, err
	}

	research, err := jobs.GetResearch(ctx, r.Store, jobID)
	if err != nil {
		return nil, err
	}
	topics, err := jobs.GetTopicExtraction(ctx, r.Store, jobID)
	if err != nil {
		return nil, err
	}
	analysis, err := jobs.GetAnalysis(ctx, r.Store, jobID)
	if err != nil {
		return nil, err
	}

	emit(cb, "validate", StatusStarted, "Running validation checks", jobID, nil)

	metaDescription := ""
	if analysis != nil {
		metaDescription = analysis.Brief.MetaDescription
	}
	var facts []seo.SourceFact
	if research != nil && research.CurrentData != nil {
		for _, f := range research.CurrentData.Facts {
			facts = append(facts, seo.SourceFact{Fact: f.Fact, Source: f.Source})
		}
	}

	chunk := &jobs.PostprocessChunk{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		chunk.FAQEnforcement = seo.EnforceFAQLimit(draft.Content, r.Config.FAQAnswerMaxChars)
		emit(cb, "validate", StatusProgress, "FAQ enforcement done", jobID, nil)
		return nil
	})
	g.Go(func() error {
		chunk.AuditResult = seo.AuditArticle(seo.AuditInput{
			Content:           draft.Content,
			Title:             draft.Title,
			MetaDescription:   metaDescription,
			Slug:              draft.Slug,
			PrimaryKeyword:    job.Input.PrimaryKeyword,
			SecondaryKeywords: job.Input.SecondaryKeywords,
			ExtraValueTopics:  differentiatorTopics(topics),
		}, seo.AuditConfig{MinPublishScore: r.Config.PublishScoreCutoff})
		emit(cb, "validate", StatusProgress, "SEO audit done", jobID, nil)
		return nil
	})
	g.Go(func() error {
		chunk.FactCheck = seo.VerifyFacts(draft.Content, facts, job.Input.PrimaryKeyword, r.Config.MaxHallucinations)
		emit(cb, "validate", StatusProgress, "Fact check done", jobID, nil)
		return nil
	})
	g.Go(func() error {
		chunk.SchemaMarkup = seo.GenerateSchemaMarkup(draft.Content, draft.Title, metaDescription, draft.Slug, allKeywords(job.Input), r.Config.SiteURL, time.Now().UTC())
		emit(cb, "validate", StatusProgress, "Schema markup done", jobID, nil)
		return nil
	})
	if err = g.Wait(); err != nil {
		err = r.failStage(ctx, jobID, jobs.KindPostprocess, "validate", err)
		return nil, err
	}

	chunk.FinalContent = draft.Content
	if chunk.FAQEnforcement.FixedHTML != "" {
		chunk.FinalContent = chunk.FAQEnforcement.FixedHTML
	}

	if err = r.Store.SaveChunkOutput(ctx, jobID, jobs.KindPostprocess, chunk); err != nil {
		return nil, err
	}
	if err = r.Store.UpdatePhase(ctx, jobID, jobs.PhaseCompleted); err != nil {
		return nil, err
	}

	emit(cb, "validate", StatusCompleted, fmt.Sprintf("Validation complete: audit score %d/100", chunk.AuditResult.Score), jobID, nil)
	r.Logger.Info().
		Str("jobId", jobID).
		Int("auditScore", chunk.AuditResult.Score).
		Bool("publishable", chunk.AuditResult.Publishable).
		Bool("faqPassed", chunk.FAQEnforcement.Passed).
		Bool("factsVerified", chunk.FactCheck.Verified).
		Msg("validate stage completed")
	return chunk, nil
}

func differentiatorTopics(topics *jobs.TopicExtractionChunk) []string {
	if topics == nil {
		return nil
	}
	var out []string
	for _, t := range topics.Topics {
		if t.Importance == "differentiator" {
			out = append(out, t.Name)
		}
	}
	return out
}

func allKeywords(input jobs.PipelineInput) []string {
	out := []string{input.PrimaryKeyword}
	out = append(out, input.SecondaryKeywords...)
	return out
}
