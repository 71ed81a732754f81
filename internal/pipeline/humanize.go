package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kolavi/blog-pipeline/internal/llm"
	"github.com/kolavi/blog-pipeline/internal/prompts"
)

// RunHumanize rewrites finished article HTML into less mechanical prose
// while preserving keywords, headings, and structure. The pass is
// stateless: it takes the content directly and touches no job record.
// When the model returns nothing usable the original content comes back
// unchanged rather than an error.
func (r *Runner) RunHumanize(ctx context.Context, content string) (string, error) {
	start := time.Now()
	var err error
	defer func() { r.record("humanize", start, err) }()

	if strings.TrimSpace(content) == "" {
		err = &ValidationError{Message: "content is required"}
		return "", err
	}

	prompt := prompts.Format(prompts.MustGet("humanize_rules"), map[string]string{
		"Content": content,
	})

	llmCtx, cancel := context.WithTimeout(ctx, r.Config.Budgets.Humanize)
	defer cancel()

	rewritten, llmErr := r.LLM.GenerateContent(llmCtx, prompt, llm.TierAdvanced)
	if llmErr != nil {
		if errors.Is(llmErr, context.DeadlineExceeded) {
			err = &StageTimeoutError{Stage: "humanize", Budget: r.Config.Budgets.Humanize, Cause: llmErr}
		} else {
			err = &StageError{Stage: "humanize", Cause: llmErr}
		}
		return "", err
	}

	rewritten = cleanDraftHTML(rewritten)
	if rewritten == "" {
		r.Logger.Warn().Msg("humanize pass returned empty content, keeping the original")
		return content, nil
	}

	r.Logger.Info().Int("inputChars", len(content)).Int("outputChars", len(rewritten)).Msg("humanize pass completed")
	return rewritten, nil
}
