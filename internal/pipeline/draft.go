package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/llm"
	"github.com/kolavi/blog-pipeline/internal/prompts"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

const draftCallTimeout = 150 * time.Second

// DraftRequest carries optional reviewer overrides applied on top of the
// stored brief.
type DraftRequest struct {
	JobID           string
	TitleOverride   string
	OutlineOverride []jobs.OutlineSection
}

// RunDraft generates the full article HTML from the brief. Requires a
// completed analysis chunk.
func (r *Runner) RunDraft(ctx context.Context, req DraftRequest, cb ProgressCallback) (*jobs.DraftChunk, error) {
	start := time.Now()
	var err error
	defer func() { r.record("draft", start, err) }()

	job, err := r.Store.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		err = &jobs.ErrJobNotFound{ID: req.JobID}
		return nil, err
	}

	analysis, err := jobs.GetAnalysis(ctx, r.Store, req.JobID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		err = &PreconditionError{
			Code:    CodeAnalysisMissing,
			Message: fmt.Sprintf("no brief exists for job %s: run the brief stage first", req.JobID),
		}
		return nil, err
	}

	title := req.TitleOverride
	if title == "" {
		title = analysis.Brief.TitleCandidates[0]
	}
	outline := analysis.Outline
	if len(req.OutlineOverride) > 0 {
		outline = req.OutlineOverride
	}

	emit(cb, "draft", StatusStarted, fmt.Sprintf("Drafting %q (%d sections)", title, len(outline)), req.JobID, nil)
	budget := NewTimeBudget(r.Config.Budgets.Draft)

	research, err := jobs.GetResearch(ctx, r.Store, req.JobID)
	if err != nil {
		return nil, err
	}

	prompt := buildDraftPrompt(job.Input, analysis, title, outline, research)
	llmCtx, cancel := context.WithTimeout(ctx, budget.Cap(draftCallTimeout))
	defer cancel()

	content, err := r.LLM.GenerateContent(llmCtx, prompt, llm.TierAdvanced)
	if err != nil {
		err = r.failStage(ctx, req.JobID, jobs.KindDraft, "draft", fmt.Errorf("draft generation failed: %w", err))
		return nil, err
	}
	content = cleanDraftHTML(content)
	if strings.TrimSpace(content) == "" {
		err = r.failStage(ctx, req.JobID, jobs.KindDraft, "draft", fmt.Errorf("draft generation returned empty content"))
		return nil, err
	}

	slug := analysis.Brief.Slug
	if slug == "" {
		slug = Slugify(title)
	}

	chunk := &jobs.DraftChunk{
		Content:   content,
		Title:     title,
		Slug:      slug,
		WordCount: seo.CountWords(seo.StripHTML(content)),
	}
	if err = r.Store.SaveChunkOutput(ctx, req.JobID, jobs.KindDraft, chunk); err != nil {
		return nil, err
	}
	if err = r.Store.UpdatePhase(ctx, req.JobID, jobs.PhaseValidating); err != nil {
		return nil, err
	}

	emit(cb, "draft", StatusCompleted, fmt.Sprintf("Draft complete: %d words", chunk.WordCount), req.JobID, nil)
	r.Logger.Info().Str("jobId", req.JobID).Int("words", chunk.WordCount).Msg("draft stage completed")
	return chunk, nil
}

var (
	slugInvalidRe  = regexp.MustCompile(`[^a-z0-9-]`)
	slugCollapseRe = regexp.MustCompile(`-+`)
)

// Slugify derives a URL slug from a title: lowercase, spaces to hyphens,
// strip everything outside [a-z0-9-], collapse runs of hyphens, trim,
// truncate to the slug length limit.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugInvalidRe.ReplaceAllString(s, "")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > seo.SlugMaxChars {
		s = s[:seo.SlugMaxChars]
		s = strings.TrimRight(s, "-")
	}
	return s
}

// cleanDraftHTML strips markdown code fences the model sometimes wraps
// around the HTML body.
func cleanDraftHTML(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```html")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func buildDraftPrompt(input jobs.PipelineInput, analysis *jobs.AnalysisChunk, title string, outline []jobs.OutlineSection, research *jobs.ResearchChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a complete blog article titled %q targeting the keyword %q.\n", title, input.PrimaryKeyword)
	if len(input.SecondaryKeywords) > 0 {
		fmt.Fprintf(&b, "Work in these secondary keywords naturally: %s.\n", strings.Join(input.SecondaryKeywords, ", "))
	}
	fmt.Fprintf(&b, "Target length: %d words.\n\n", analysis.Brief.TargetWordCount)

	b.WriteString("Follow this outline exactly, one section per entry:\n")
	for _, sec := range outline {
		fmt.Fprintf(&b, "- [%s, ~%d words] %s", strings.ToUpper(sec.Level), sec.TargetWords, sec.Heading)
		if len(sec.Topics) > 0 {
			fmt.Fprintf(&b, " (cover: %s)", strings.Join(sec.Topics, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(analysis.Brief.Entities) > 0 {
		fmt.Fprintf(&b, "Mention these entities where relevant: %s.\n", strings.Join(analysis.Brief.Entities, ", "))
	}
	if research != nil && research.CurrentData != nil && len(research.CurrentData.Facts) > 0 {
		b.WriteString("Use only these sourced facts for any statistics, and name the source in the sentence:\n")
		for _, f := range research.CurrentData.Facts {
			fmt.Fprintf(&b, "- %s (source: %s)\n", f.Fact, f.Source)
		}
	}

	b.WriteString("\n")
	b.WriteString(prompts.Format(prompts.MustGet("draft_rules"), map[string]string{
		"Keyword":           input.PrimaryKeyword,
		"ParagraphMaxWords": strconv.Itoa(seo.ParagraphMaxWords),
	}))
	return b.String()
}
