package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/llm"
	"github.com/kolavi/blog-pipeline/internal/metrics"
	"github.com/kolavi/blog-pipeline/internal/search"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

// Budgets holds the per-stage wall-clock budgets.
type Budgets struct {
	Serp     time.Duration
	Fetch    time.Duration
	Brief    time.Duration
	Draft    time.Duration
	Validate time.Duration
	Humanize time.Duration
	OneShot  time.Duration
}

// DefaultBudgets returns the default stage budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		Serp:     DefaultSerpBudget,
		Fetch:    DefaultFetchBudget,
		Brief:    DefaultBriefBudget,
		Draft:    DefaultDraftBudget,
		Validate: DefaultValidateBudget,
		Humanize: DefaultHumanizeBudget,
		OneShot:  DefaultOneShotBudget,
	}
}

// Config holds pipeline tunables.
type Config struct {
	// SiteURL is the canonical site root used in generated schema markup.
	SiteURL string
	// PublishScoreCutoff is the minimum audit score for publishability.
	PublishScoreCutoff int
	// FAQAnswerMaxChars caps FAQ answer length during enforcement.
	FAQAnswerMaxChars int
	// MaxHallucinations is the unsourced-claim tolerance of the fact check.
	MaxHallucinations int
	Budgets           Budgets
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() Config {
	return Config{
		SiteURL:            "https://example.com",
		PublishScoreCutoff: seo.MinPublishScore,
		FAQAnswerMaxChars:  seo.FAQAnswerMaxChars,
		MaxHallucinations:  seo.MaxAllowedHallucinations,
		Budgets:            DefaultBudgets(),
	}
}

// Fetcher retrieves one competitor article. FetchSuccess is false on the
// returned article only when the fetcher salvaged partial content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*jobs.CompetitorArticle, error)
}

// Runner executes pipeline stages against a job store. All stages are
// idempotent per job: re-running a stage overwrites its chunk.
type Runner struct {
	Store   jobs.Store
	LLM     llm.Client
	Search  search.Provider
	Fetcher Fetcher
	Metrics *metrics.Recorder
	Logger  zerolog.Logger
	Config  Config
}

// NewRunner wires a runner with default config where zero values are given.
func NewRunner(store jobs.Store, llmClient llm.Client, provider search.Provider, fetcher Fetcher, recorder *metrics.Recorder, logger zerolog.Logger, cfg Config) *Runner {
	if cfg.PublishScoreCutoff == 0 {
		cfg.PublishScoreCutoff = seo.MinPublishScore
	}
	if cfg.FAQAnswerMaxChars == 0 {
		cfg.FAQAnswerMaxChars = seo.FAQAnswerMaxChars
	}
	if cfg.MaxHallucinations == 0 {
		cfg.MaxHallucinations = seo.MaxAllowedHallucinations
	}
	if cfg.Budgets == (Budgets{}) {
		cfg.Budgets = DefaultBudgets()
	}
	return &Runner{
		Store:   store,
		LLM:     llmClient,
		Search:  provider,
		Fetcher: fetcher,
		Metrics: recorder,
		Logger:  logger,
		Config:  cfg,
	}
}

// record reports a stage sample to the metrics recorder when one is wired.
func (r *Runner) record(stage string, start time.Time, err error) {
	if r.Metrics != nil {
		r.Metrics.Record(stage, time.Since(start), err == nil)
	}
}

// failStage records the failure on the job and wraps the cause. Store
// errors while recording are logged, not returned; the original cause
// wins. A spent deadline becomes the distinguished stage timeout.
func (r *Runner) failStage(ctx context.Context, jobID string, kind jobs.ChunkKind, stage string, cause error) error {
	if err := r.Store.SetChunkFailed(ctx, jobID, kind, cause.Error()); err != nil {
		r.Logger.Error().Err(err).Str("jobId", jobID).Str("stage", stage).Msg("failed to record stage failure")
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return &StageTimeoutError{Stage: stage, Budget: r.stageBudget(kind), Cause: cause}
	}
	return &StageError{Stage: stage, Cause: cause}
}

// stageBudget maps a chunk kind to its configured wall-clock budget.
func (r *Runner) stageBudget(kind jobs.ChunkKind) time.Duration {
	switch kind {
	case jobs.KindResearchSerp:
		return r.Config.Budgets.Serp
	case jobs.KindResearch:
		return r.Config.Budgets.Fetch
	case jobs.KindAnalysis, jobs.KindTopicExtraction:
		return r.Config.Budgets.Brief
	case jobs.KindDraft:
		return r.Config.Budgets.Draft
	case jobs.KindPostprocess:
		return r.Config.Budgets.Validate
	}
	return 0
}
