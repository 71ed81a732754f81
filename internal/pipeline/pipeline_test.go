package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/llm"
)

// fakeLLM serves canned responses keyed by a substring of the prompt.
type fakeLLM struct {
	mu         sync.Mutex
	jsonByKey  map[string]string
	content    string
	contentErr error
	jsonCalls  []string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.contentErr != nil {
		return "", f.contentErr
	}
	return f.content, nil
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, resp := range f.jsonByKey {
		if strings.Contains(prompt, key) {
			f.jsonCalls = append(f.jsonCalls, key)
			return resp, nil
		}
	}
	return "", fmt.Errorf("no canned response for prompt")
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake-model" }

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) callsFor(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.jsonCalls {
		if c == key {
			n++
		}
	}
	return n
}

// Prompt substrings the fake keys on.
const (
	promptKeyTopics      = "extract the topics"
	promptKeyBrief       = "content brief"
	promptKeyCurrentData = "up-to-date statistics"
)

const (
	topicsJSON = `{
		"topics": [
			{"name": "Pricing", "importance": "essential"},
			{"name": "Integrations", "importance": "differentiator"}
		],
		"competitorAvgWords": 1800,
		"recommendedWords": 2000
	}`
	briefJSON = `{
		"brief": {
			"titleCandidates": ["Project Management Software: The Complete Guide", "Choosing Project Management Software"],
			"metaDescription": "Everything you need to pick the right project management software for your team, from pricing to integrations.",
			"slug": "project-management-software-guide",
			"targetWordCount": 2000,
			"entities": ["Asana", "Jira"],
			"topics": ["Pricing", "Integrations"],
			"titleMetaVariants": [
				{"title": "Project Management Software: The Complete Guide", "metaDescription": "Everything you need to pick the right project management software for your team.", "approach": "how-to"},
				{"title": "12 Project Management Tools Compared", "metaDescription": "We compared twelve project management tools on pricing, features and support.", "approach": "comparison"}
			]
		},
		"outline": [
			{"heading": "What Is Project Management Software", "level": "h2", "topics": ["Pricing"], "targetWords": 800},
			{"heading": "Integrations That Matter", "level": "h2", "topics": ["Integrations"], "targetWords": 800},
			{"heading": "Frequently Asked Questions", "level": "h2", "targetWords": 400}
		]
	}`
	currentDataJSON = `{
		"facts": [{"fact": "The project management software market reached $7.2 billion in 2024", "source": "Gartner", "date": "2024-11"}],
		"recentDevelopments": ["Several vendors shipped AI scheduling assistants"]
	}`
)

type fakeSearch struct {
	results []jobs.SerpResult
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, query string, limit int) ([]jobs.SerpResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeFetcher struct {
	mu       sync.Mutex
	articles map[string]*jobs.CompetitorArticle
	errs     map[string]error
	fetched  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*jobs.CompetitorArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if article, ok := f.articles[url]; ok {
		copied := *article
		return &copied, nil
	}
	return nil, fmt.Errorf("fetch error for %s: HTTP status 404", url)
}

func testSerpResults() []jobs.SerpResult {
	return []jobs.SerpResult{
		{URL: "https://alpha.example.com/guide", Title: "Alpha Guide", Position: 1, IsArticle: true},
		{URL: "https://beta.example.com/review", Title: "Beta Review", Position: 2, IsArticle: true},
		{URL: "https://www.youtube.com/watch?v=x", Title: "Video", Position: 3, IsArticle: false},
		{URL: "https://gamma.example.com/comparison", Title: "Gamma Comparison", Position: 4, IsArticle: true},
	}
}

func testArticle(url string) *jobs.CompetitorArticle {
	return &jobs.CompetitorArticle{
		URL:          url,
		Title:        "Competitor Article",
		Content:      strings.Repeat("Teams use project management software to plan and track work. ", 40),
		WordCount:    400,
		FetchSuccess: true,
	}
}

func testPipelineInput() jobs.PipelineInput {
	return jobs.PipelineInput{
		PrimaryKeyword:    "project management software",
		SecondaryKeywords: []string{"team collaboration tools"},
	}
}

type runnerFixture struct {
	runner  *Runner
	store   *jobs.MemoryStore
	llm     *fakeLLM
	search  *fakeSearch
	fetcher *fakeFetcher
}

func newTestRunner() *runnerFixture {
	store := jobs.NewMemoryStore()
	llmClient := &fakeLLM{
		jsonByKey: map[string]string{
			promptKeyTopics:      topicsJSON,
			promptKeyBrief:       briefJSON,
			promptKeyCurrentData: currentDataJSON,
		},
		content: testDraftHTML,
	}
	provider := &fakeSearch{results: testSerpResults()}
	fetcher := &fakeFetcher{
		articles: map[string]*jobs.CompetitorArticle{
			"https://alpha.example.com/guide":      testArticle("https://alpha.example.com/guide"),
			"https://beta.example.com/review":      testArticle("https://beta.example.com/review"),
			"https://gamma.example.com/comparison": testArticle("https://gamma.example.com/comparison"),
		},
	}
	runner := NewRunner(store, llmClient, provider, fetcher, nil, zerolog.Nop(), Config{})
	return &runnerFixture{runner: runner, store: store, llm: llmClient, search: provider, fetcher: fetcher}
}

const testDraftHTML = `<h2>What Is Project Management Software</h2>
<p>Project management software helps teams plan, assign and track work in one place.</p>
<h2>Integrations That Matter</h2>
<p>Look for native connections to the tools your team already uses every day.</p>
<h2>Frequently Asked Questions</h2>
<h3>How much does it cost?</h3>
<p>Most tools charge per seat per month, with free tiers for small teams.</p>`

// collectEvents drains a callback's events into a slice for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (e *eventRecorder) callback() ProgressCallback {
	return func(ev ProgressEvent) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.events = append(e.events, ev)
	}
}

func (e *eventRecorder) statuses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Status
	}
	return out
}
