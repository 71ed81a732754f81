package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

// maxRetries is the retry count for transient external failures during a
// one-shot run.
const maxRetries = 2

var retryDelay = 2 * time.Second

// OneShotArticle is the finished article payload of a one-shot run.
type OneShotArticle struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	// Outline lists the drafted section headings in document order.
	Outline   []string `json:"outline"`
	WordCount int      `json:"wordCount"`
}

// OneShotResult is the outcome of a full back-to-back pipeline run.
type OneShotResult struct {
	JobID             string                  `json:"jobId"`
	Article           OneShotArticle          `json:"article"`
	Postprocess       *jobs.PostprocessChunk  `json:"postprocess"`
	TitleMetaVariants []jobs.TitleMetaVariant `json:"titleMetaVariants"`
	// OutlineDrift lists planned H2 headings the draft did not keep.
	OutlineDrift []string `json:"outlineDrift,omitempty"`
}

// RunOneShot executes every stage back to back under a single deadline.
// SERP results are not reviewed by a human; the top article results are
// selected automatically. On deadline the run fails with a
// PipelineTimeoutError and no partial result, though completed chunks
// remain stored for stage-by-stage resumption.
func (r *Runner) RunOneShot(ctx context.Context, jobID string, input jobs.PipelineInput, cb ProgressCallback) (*OneShotResult, error) {
	start := time.Now()
	var err error
	defer func() { r.record("one_shot", start, err) }()

	deadline := r.Config.Budgets.OneShot
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	stage := "research"
	serp, err := retryStage(ctx, func() (*jobs.SerpChunk, error) {
		return r.RunSerp(ctx, jobID, input, cb)
	})
	if err != nil {
		return nil, r.oneShotError(stage, deadline, err)
	}

	selected := autoSelectURLs(serp.Results, MaxSelectedURLs)
	if len(selected) == 0 {
		err = &StageError{Stage: stage, Cause: fmt.Errorf("no usable article results for %q", input.PrimaryKeyword)}
		return nil, err
	}

	_, err = retryStage(ctx, func() (*jobs.ResearchChunk, error) {
		return r.RunFetch(ctx, FetchRequest{JobID: jobID, SelectedURLs: selected}, cb)
	})
	if err != nil {
		return nil, r.oneShotError(stage, deadline, err)
	}

	stage = "brief"
	analysis, err := retryStage(ctx, func() (*jobs.AnalysisChunk, error) {
		return r.RunBrief(ctx, BriefRequest{JobID: jobID}, cb)
	})
	if err != nil {
		return nil, r.oneShotError(stage, deadline, err)
	}

	stage = "draft"
	draft, err := retryStage(ctx, func() (*jobs.DraftChunk, error) {
		return r.RunDraft(ctx, DraftRequest{JobID: jobID}, cb)
	})
	if err != nil {
		return nil, r.oneShotError(stage, deadline, err)
	}

	stage = "validate"
	post, err := retryStage(ctx, func() (*jobs.PostprocessChunk, error) {
		return r.RunValidate(ctx, jobID, cb)
	})
	if err != nil {
		return nil, r.oneShotError(stage, deadline, err)
	}

	result := &OneShotResult{
		JobID: jobID,
		Article: OneShotArticle{
			Content:   draft.Content,
			Title:     draft.Title,
			Slug:      draft.Slug,
			Outline:   draftedOutline(draft.Content),
			WordCount: draft.WordCount,
		},
		Postprocess:       post,
		TitleMetaVariants: analysis.Brief.TitleMetaVariants,
		OutlineDrift:      outlineDrift(analysis.Outline, draft.Content),
	}
	r.Logger.Info().
		Str("jobId", jobID).
		Dur("elapsed", time.Since(start)).
		Int("auditScore", post.AuditResult.Score).
		Msg("one-shot pipeline completed")
	return result, nil
}

// oneShotError maps a context deadline into the distinguished pipeline
// timeout, tagged with the stage that was running.
func (r *Runner) oneShotError(stage string, deadline time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &PipelineTimeoutError{Deadline: deadline, Stage: stage}
	}
	return err
}

// retryStage retries f on transient failures: timeouts, rate limits and
// upstream 5xx responses. A spent parent context is never retried.
func retryStage[T any](ctx context.Context, f func() (T, error)) (T, error) {
	var result T
	var err error
	for attempt := 0; ; attempt++ {
		result, err = f()
		if err == nil || attempt >= maxRetries || ctx.Err() != nil || !isTransient(err) {
			return result, err
		}
		select {
		case <-ctx.Done():
			return result, err
		case <-time.After(retryDelay):
		}
	}
}

// isTransient reports whether the error looks like a timeout, rate limit
// or upstream server failure worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ve *ValidationError
	var pe *PreconditionError
	var nf *jobs.ErrJobNotFound
	if errors.As(err, &ve) || errors.As(err, &pe) || errors.As(err, &nf) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "429", "rate limit", "500", "502", "503", "504", "unavailable", "overloaded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// autoSelectURLs picks the top article results, skipping results the
// article heuristic rejected. Falls back to any result when the
// heuristic rejects everything.
func autoSelectURLs(results []jobs.SerpResult, max int) []string {
	var selected []string
	for _, res := range results {
		if len(selected) == max {
			break
		}
		if res.IsArticle && validURL(res.URL) {
			selected = append(selected, res.URL)
		}
	}
	if len(selected) == 0 {
		for _, res := range results {
			if len(selected) == max {
				break
			}
			if validURL(res.URL) {
				selected = append(selected, res.URL)
			}
		}
	}
	return selected
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// draftedOutline lists the H2 and H3 headings of the drafted article in
// document order.
func draftedOutline(draftHTML string) []string {
	headings := seo.ExtractHeadings(draftHTML)
	out := make([]string, 0, len(headings))
	for _, h := range headings {
		if h.Level == 2 || h.Level == 3 {
			out = append(out, h.Text)
		}
	}
	return out
}

// outlineDrift returns the planned H2 headings that have no matching H2
// in the drafted content. Matching is case-insensitive on the heading
// text.
func outlineDrift(outline []jobs.OutlineSection, draftHTML string) []string {
	drafted := make(map[string]bool)
	for _, h := range seo.ExtractHeadings(draftHTML) {
		if h.Level == 2 {
			drafted[normalizeHeading(h.Text)] = true
		}
	}

	var drift []string
	for _, sec := range outline {
		if sec.Level != "h2" {
			continue
		}
		if !drafted[normalizeHeading(sec.Heading)] {
			drift = append(drift, sec.Heading)
		}
	}
	return drift
}

func normalizeHeading(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
