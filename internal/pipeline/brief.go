package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/llm"
	"github.com/kolavi/blog-pipeline/internal/prompts"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

// Word count bounds accepted for an explicit target.
const (
	MinWordCountTarget = 500
	MaxWordCountTarget = 6000

	// DefaultWordCountTarget is used when neither the job input nor the
	// competitor corpus yields a target.
	DefaultWordCountTarget = 2000

	// competitorExcerptChars caps how much of each competitor article goes
	// into the topic extraction prompt.
	competitorExcerptChars = 4000

	briefCallTimeout = 60 * time.Second
)

// BriefRequest carries the brief stage parameters. Revise forces a fresh
// synthesis toward WordCountTarget while reusing the cached topic
// extraction.
type BriefRequest struct {
	JobID           string
	Revise          bool
	WordCountTarget int
}

// RunBrief synthesizes the content brief and outline from completed
// research. Requires at least one fetched competitor.
func (r *Runner) RunBrief(ctx context.Context, req BriefRequest, cb ProgressCallback) (*jobs.AnalysisChunk, error) {
	start := time.Now()
	var err error
	defer func() { r.record("brief", start, err) }()

	if req.Revise && (req.WordCountTarget < MinWordCountTarget || req.WordCountTarget > MaxWordCountTarget) {
		err = &ValidationError{Message: fmt.Sprintf("wordCountTarget (%d-%d) is required when revise is true", MinWordCountTarget, MaxWordCountTarget)}
		return nil, err
	}

	job, err := r.Store.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		err = &jobs.ErrJobNotFound{ID: req.JobID}
		return nil, err
	}

	research, err := jobs.GetResearch(ctx, r.Store, req.JobID)
	if err != nil {
		return nil, err
	}
	if !research.Complete() {
		err = NewResearchIncompleteError(req.JobID)
		return nil, err
	}

	emit(cb, "brief", StatusStarted, "Analyzing competitor content", req.JobID, nil)
	budget := NewTimeBudget(r.Config.Budgets.Brief)

	topics, err := r.topicExtraction(ctx, budget, job, research, cb)
	if err != nil {
		err = r.failStage(ctx, req.JobID, jobs.KindAnalysis, "brief", err)
		return nil, err
	}

	target := resolveWordTarget(req.WordCountTarget, job.Input.WordCountTarget, topics)

	emit(cb, "brief", StatusProgress, "Synthesizing content brief", req.JobID, nil)
	analysis, err := r.synthesizeBrief(ctx, budget, job, research, topics, target)
	if err != nil {
		err = r.failStage(ctx, req.JobID, jobs.KindAnalysis, "brief", err)
		return nil, err
	}
	analysis.Revised = req.Revise

	if err = r.Store.SaveChunkOutput(ctx, req.JobID, jobs.KindAnalysis, analysis); err != nil {
		return nil, err
	}
	if err = r.Store.UpdatePhase(ctx, req.JobID, jobs.PhaseDrafting); err != nil {
		return nil, err
	}

	emit(cb, "brief", StatusCompleted, fmt.Sprintf("Brief ready: %d outline sections, %d word target", len(analysis.Outline), analysis.Brief.TargetWordCount), req.JobID, analysis)
	r.Logger.Info().Str("jobId", req.JobID).Int("sections", len(analysis.Outline)).Bool("revised", req.Revise).Msg("brief stage completed")
	return analysis, nil
}

// topicExtraction returns the cached extraction when present, otherwise
// runs it and caches the result.
func (r *Runner) topicExtraction(ctx context.Context, budget *TimeBudget, job *jobs.Job, research *jobs.ResearchChunk, cb ProgressCallback) (*jobs.TopicExtractionChunk, error) {
	cached, err := jobs.GetTopicExtraction(ctx, r.Store, job.ID)
	if err != nil {
		return nil, err
	}
	if cached != nil && len(cached.Topics) > 0 {
		emit(cb, "brief", StatusProgress, "Reusing cached topic analysis", job.ID, nil)
		return cached, nil
	}

	prompt := buildTopicExtractionPrompt(job.Input, research)
	llmCtx, cancel := context.WithTimeout(ctx, budget.Cap(briefCallTimeout))
	defer cancel()

	raw, err := r.LLM.GenerateJSON(llmCtx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("topic extraction failed: %w", err)
	}

	var chunk jobs.TopicExtractionChunk
	if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
		return nil, fmt.Errorf("topic extraction returned invalid JSON: %w", err)
	}
	if len(chunk.Topics) == 0 {
		return nil, fmt.Errorf("topic extraction returned no topics")
	}

	if chunk.CompetitorAvgWords == 0 {
		chunk.CompetitorAvgWords = competitorAvgWords(research)
	}
	if chunk.RecommendedWords == 0 && chunk.CompetitorAvgWords > 0 {
		chunk.RecommendedWords = clampWordTarget(chunk.CompetitorAvgWords * 11 / 10)
	}

	if err := r.Store.SaveChunkOutput(ctx, job.ID, jobs.KindTopicExtraction, &chunk); err != nil {
		return nil, err
	}
	emit(cb, "brief", StatusProgress, fmt.Sprintf("Extracted %d topics from %d competitors", len(chunk.Topics), len(research.Competitors)), job.ID, nil)
	return &chunk, nil
}

func (r *Runner) synthesizeBrief(ctx context.Context, budget *TimeBudget, job *jobs.Job, research *jobs.ResearchChunk, topics *jobs.TopicExtractionChunk, target int) (*jobs.AnalysisChunk, error) {
	prompt := buildBriefPrompt(job.Input, research, topics, target)
	llmCtx, cancel := context.WithTimeout(ctx, budget.Cap(briefCallTimeout))
	defer cancel()

	raw, err := r.LLM.GenerateJSON(llmCtx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("brief synthesis failed: %w", err)
	}

	var analysis jobs.AnalysisChunk
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("brief synthesis returned invalid JSON: %w", err)
	}
	if len(analysis.Brief.TitleCandidates) == 0 {
		return nil, fmt.Errorf("brief synthesis returned no title candidates")
	}
	if len(analysis.Outline) == 0 {
		return nil, fmt.Errorf("brief synthesis returned no outline")
	}

	analysis.Brief.TargetWordCount = target
	if analysis.Brief.Slug == "" {
		analysis.Brief.Slug = Slugify(analysis.Brief.TitleCandidates[0])
	}
	normalizeTitleMetaVariants(&analysis.Brief)
	return &analysis, nil
}

// Bounds on the title/meta variant list stored with the brief.
const (
	minTitleMetaVariants = 2
	maxTitleMetaVariants = 4
)

// normalizeTitleMetaVariants drops incomplete variants, caps the list at
// four and backfills from the title candidates when the model returned
// fewer than two usable pairings.
func normalizeTitleMetaVariants(brief *jobs.Brief) {
	var kept []jobs.TitleMetaVariant
	for _, v := range brief.TitleMetaVariants {
		if strings.TrimSpace(v.Title) == "" || strings.TrimSpace(v.MetaDescription) == "" {
			continue
		}
		kept = append(kept, v)
		if len(kept) == maxTitleMetaVariants {
			break
		}
	}

	for _, title := range brief.TitleCandidates {
		if len(kept) >= minTitleMetaVariants {
			break
		}
		if strings.TrimSpace(title) == "" || hasVariantTitle(kept, title) {
			continue
		}
		kept = append(kept, jobs.TitleMetaVariant{
			Title:           title,
			MetaDescription: brief.MetaDescription,
			Approach:        "brief candidate",
		})
	}
	brief.TitleMetaVariants = kept
}

func hasVariantTitle(variants []jobs.TitleMetaVariant, title string) bool {
	for _, v := range variants {
		if strings.EqualFold(v.Title, title) {
			return true
		}
	}
	return false
}

// resolveWordTarget picks the explicit request target, then the job
// input target, then the competitor-derived recommendation.
func resolveWordTarget(requested, inputTarget int, topics *jobs.TopicExtractionChunk) int {
	if requested > 0 {
		return clampWordTarget(requested)
	}
	if inputTarget > 0 {
		return clampWordTarget(inputTarget)
	}
	if topics != nil && topics.RecommendedWords > 0 {
		return clampWordTarget(topics.RecommendedWords)
	}
	return DefaultWordCountTarget
}

func clampWordTarget(n int) int {
	if n < MinWordCountTarget {
		return MinWordCountTarget
	}
	if n > MaxWordCountTarget {
		return MaxWordCountTarget
	}
	return n
}

func competitorAvgWords(research *jobs.ResearchChunk) int {
	if len(research.Competitors) == 0 {
		return 0
	}
	total := 0
	for _, c := range research.Competitors {
		total += c.WordCount
	}
	return total / len(research.Competitors)
}

func buildTopicExtractionPrompt(input jobs.PipelineInput, research *jobs.ResearchChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these %d top-ranking articles for the keyword %q and extract the topics they cover.\n\n", len(research.Competitors), input.PrimaryKeyword)

	for i, c := range research.Competitors {
		fmt.Fprintf(&b, "--- Article %d: %s (%s, %d words) ---\n%s\n\n", i+1, c.Title, c.URL, c.WordCount, excerpt(c.Content, competitorExcerptChars))
	}

	b.WriteString(prompts.MustGet("topic_extraction_shape"))
	return b.String()
}

func buildBriefPrompt(input jobs.PipelineInput, research *jobs.ResearchChunk, topics *jobs.TopicExtractionChunk, target int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a content brief and outline for an article targeting the keyword %q.\n", input.PrimaryKeyword)
	if len(input.SecondaryKeywords) > 0 {
		fmt.Fprintf(&b, "Secondary keywords: %s.\n", strings.Join(input.SecondaryKeywords, ", "))
	}
	if len(input.PeopleAlsoSearchFor) > 0 {
		fmt.Fprintf(&b, "People also search for: %s.\n", strings.Join(input.PeopleAlsoSearchFor, ", "))
	}
	if len(input.Intents) > 0 {
		intents := make([]string, len(input.Intents))
		for i, in := range input.Intents {
			intents[i] = string(in)
		}
		fmt.Fprintf(&b, "Search intents: %s.\n", strings.Join(intents, ", "))
	}
	fmt.Fprintf(&b, "Target word count: %d.\n\n", target)

	topicsJSON, _ := json.Marshal(topics.Topics)
	fmt.Fprintf(&b, "Topics to cover (from competitor analysis):\n%s\n\n", topicsJSON)

	if research.CurrentData != nil && len(research.CurrentData.Facts) > 0 {
		factsJSON, _ := json.Marshal(research.CurrentData.Facts)
		fmt.Fprintf(&b, "Current facts to work in where relevant:\n%s\n\n", factsJSON)
	}

	b.WriteString(prompts.Format(prompts.MustGet("brief_shape"), map[string]string{
		"TitleMaxChars": strconv.Itoa(seo.TitleMaxChars),
		"MetaMinChars":  strconv.Itoa(seo.MetaDescriptionMinChars),
		"MetaMaxChars":  strconv.Itoa(seo.MetaDescriptionMaxChars),
		"SlugMaxChars":  strconv.Itoa(seo.SlugMaxChars),
		"TargetWords":   strconv.Itoa(target),
	}))
	return b.String()
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
