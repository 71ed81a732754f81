package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/llm"
	"github.com/kolavi/blog-pipeline/internal/prompts"
	"github.com/kolavi/blog-pipeline/internal/search"
)

const (
	// MinSelectedURLs and MaxSelectedURLs bound how many SERP results the
	// reviewer may pick for full-text fetching.
	MinSelectedURLs = 1
	MaxSelectedURLs = 3

	perFetchTimeout = 30 * time.Second
)

// RunSerp queries the search provider for the primary keyword, persists
// the results and parks the job for human review. Creating the job is
// idempotent for identical input.
func (r *Runner) RunSerp(ctx context.Context, jobID string, input jobs.PipelineInput, cb ProgressCallback) (*jobs.SerpChunk, error) {
	start := time.Now()
	var err error
	defer func() { r.record("serp", start, err) }()

	if jobID == "" {
		err = &ValidationError{Message: "jobId is required"}
		return nil, err
	}
	if input.PrimaryKeyword == "" {
		err = &ValidationError{Message: "primaryKeyword is required"}
		return nil, err
	}
	if err = r.Store.CreateJob(ctx, jobID, input); err != nil {
		return nil, err
	}

	emit(cb, "research", StatusStarted, fmt.Sprintf("Searching for %q", input.PrimaryKeyword), jobID, nil)

	budget := NewTimeBudget(r.Config.Budgets.Serp)
	searchCtx, cancel := context.WithTimeout(ctx, budget.Cap(perFetchTimeout))
	defer cancel()

	results, searchErr := r.Search.Search(searchCtx, input.PrimaryKeyword, search.DefaultResultCount)
	if searchErr != nil {
		err = r.failStage(ctx, jobID, jobs.KindResearchSerp, "research", searchErr)
		return nil, err
	}

	chunk := &jobs.SerpChunk{Results: results}
	if err = r.Store.SaveChunkOutput(ctx, jobID, jobs.KindResearchSerp, chunk); err != nil {
		return nil, err
	}
	if err = r.Store.UpdatePhase(ctx, jobID, jobs.PhaseWaitingForReview); err != nil {
		return nil, err
	}

	emit(cb, "research", StatusCompleted, fmt.Sprintf("Found %d results, waiting for review", len(results)), jobID, chunk)
	r.Logger.Info().Str("jobId", jobID).Int("results", len(results)).Msg("serp stage completed")
	return chunk, nil
}

// FetchRequest carries the reviewer's URL selection. Input and
// SerpResults allow the job to be rebuilt from client state when the
// server lost it.
type FetchRequest struct {
	JobID        string
	Input        *jobs.PipelineInput
	SerpResults  []jobs.SerpResult
	SelectedURLs []string
}

// RunFetch fetches the selected competitor articles concurrently and
// persists the research chunk. Partial fetch failure is tolerated; the
// stage fails only when every fetch fails. Re-running with the same URL
// set overwrites the chunk with equivalent content.
func (r *Runner) RunFetch(ctx context.Context, req FetchRequest, cb ProgressCallback) (*jobs.ResearchChunk, error) {
	start := time.Now()
	var err error
	defer func() { r.record("fetch", start, err) }()

	if len(req.SelectedURLs) < MinSelectedURLs || len(req.SelectedURLs) > MaxSelectedURLs {
		err = &ValidationError{Message: fmt.Sprintf("select between %d and %d URLs", MinSelectedURLs, MaxSelectedURLs)}
		return nil, err
	}

	job, err := r.Store.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		// Server-side state is gone; rebuild the job from the client's copy.
		if req.Input == nil || len(req.SerpResults) == 0 {
			err = &jobs.ErrJobNotFound{ID: req.JobID}
			return nil, err
		}
		if err = r.Store.CreateJob(ctx, req.JobID, *req.Input); err != nil {
			return nil, err
		}
		if err = r.Store.SaveChunkOutput(ctx, req.JobID, jobs.KindResearchSerp, &jobs.SerpChunk{Results: req.SerpResults}); err != nil {
			return nil, err
		}
		job, err = r.Store.GetJob(ctx, req.JobID)
		if err != nil {
			return nil, err
		}
	}

	serpResults := req.SerpResults
	if stored, serpErr := jobs.GetSerp(ctx, r.Store, req.JobID); serpErr == nil && stored != nil && len(stored.Results) > 0 {
		serpResults = stored.Results
	}

	known := make(map[string]bool, len(serpResults))
	for _, res := range serpResults {
		known[res.URL] = true
	}
	for _, u := range req.SelectedURLs {
		if !known[u] {
			err = &ValidationError{Message: "Selected URLs must be from the search results for this job"}
			return nil, err
		}
	}

	if err = r.Store.UpdatePhase(ctx, req.JobID, jobs.PhaseResearching); err != nil {
		return nil, err
	}
	emit(cb, "research", StatusStarted, fmt.Sprintf("Fetching %d competitor articles", len(req.SelectedURLs)), req.JobID, nil)

	budget := NewTimeBudget(r.Config.Budgets.Fetch)
	urls := sortedURLs(req.SelectedURLs)

	var mu sync.Mutex
	competitors := make([]jobs.CompetitorArticle, 0, len(urls))
	var fetchErrs []error

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, budget.Cap(perFetchTimeout))
			defer cancel()

			article, fetchErr := r.Fetcher.Fetch(fetchCtx, u)

			mu.Lock()
			defer mu.Unlock()
			if fetchErr != nil {
				fetchErrs = append(fetchErrs, fetchErr)
				r.Logger.Warn().Err(fetchErr).Str("url", u).Msg("competitor fetch failed")
				emit(cb, "research", StatusProgress, fmt.Sprintf("Failed to fetch %s", u), req.JobID, nil)
				return nil
			}
			competitors = append(competitors, *article)
			emit(cb, "research", StatusProgress, fmt.Sprintf("Fetched %s (%d words)", u, article.WordCount), req.JobID, nil)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		err = r.failStage(ctx, req.JobID, jobs.KindResearch, "research", err)
		return nil, err
	}

	if len(competitors) == 0 {
		cause := fmt.Errorf("all fetches failed: %d errors", len(fetchErrs))
		err = r.failStage(ctx, req.JobID, jobs.KindResearch, "research", cause)
		return nil, err
	}

	sort.Slice(competitors, func(i, j int) bool { return competitors[i].URL < competitors[j].URL })

	chunk := &jobs.ResearchChunk{
		Competitors: competitors,
		FetchedAt:   time.Now().UTC(),
	}
	if current := r.gatherCurrentData(ctx, budget, job.Input, cb); current != nil {
		chunk.CurrentData = current
	}

	if err = r.Store.SaveChunkOutput(ctx, req.JobID, jobs.KindResearch, chunk); err != nil {
		return nil, err
	}

	emit(cb, "research", StatusCompleted, fmt.Sprintf("Research complete: %d of %d articles fetched", len(competitors), len(urls)), req.JobID, nil)
	r.Logger.Info().Str("jobId", req.JobID).Int("fetched", len(competitors)).Int("failed", len(fetchErrs)).Msg("fetch stage completed")
	return chunk, nil
}

// gatherCurrentData asks the LLM for recent facts about the keyword. The
// call is best-effort; research succeeds without it.
func (r *Runner) gatherCurrentData(ctx context.Context, budget *TimeBudget, input jobs.PipelineInput, cb ProgressCallback) *jobs.CurrentData {
	if r.LLM == nil || budget.Exhausted() {
		return nil
	}

	prompt := buildCurrentDataPrompt(input)
	llmCtx, cancel := context.WithTimeout(ctx, budget.Cap(perFetchTimeout))
	defer cancel()

	raw, err := r.LLM.GenerateJSON(llmCtx, prompt, llm.TierStandard)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("current data lookup failed, continuing without it")
		return nil
	}

	var current jobs.CurrentData
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		r.Logger.Warn().Err(err).Msg("current data response was not valid JSON, continuing without it")
		return nil
	}
	if len(current.Facts) == 0 {
		return nil
	}
	if current.LastUpdated == "" {
		current.LastUpdated = time.Now().UTC().Format("2006-01-02")
	}
	emit(cb, "research", StatusProgress, fmt.Sprintf("Gathered %d current facts", len(current.Facts)), "", nil)
	return &current
}

func buildCurrentDataPrompt(input jobs.PipelineInput) string {
	return prompts.Format(prompts.MustGet("current_data"), map[string]string{
		"Keyword": input.PrimaryKeyword,
	})
}

func sortedURLs(urls []string) []string {
	out := make([]string, len(urls))
	copy(out, urls)
	sort.Strings(out)
	return out
}
