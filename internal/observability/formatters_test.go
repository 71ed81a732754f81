package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

func TestPrintSerpResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSerpResults([]jobs.SerpResult{
		{URL: "https://alpha.example.com/guide", Title: "Alpha Guide", Position: 1, IsArticle: true},
		{URL: "https://video.example.com/watch", Title: "Video Result", Position: 2, IsArticle: false},
	})

	out := buf.String()
	assert.Contains(t, out, "SEARCH RESULTS")
	assert.Contains(t, out, "* 1. Alpha Guide")
	assert.Contains(t, out, "  2. Video Result")
}

func TestPrintSerpResults_TruncatesLongLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	results := make([]jobs.SerpResult, 8)
	for i := range results {
		results[i] = jobs.SerpResult{URL: "https://example.com", Title: "Result", Position: i + 1}
	}
	p.PrintSerpResults(results)

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintBrief(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintBrief(&jobs.AnalysisChunk{
		Brief: jobs.Brief{
			TitleCandidates: []string{"First Title", "Second Title"},
			Slug:            "first-title",
			TargetWordCount: 2000,
		},
		Outline: []jobs.OutlineSection{
			{Heading: "Intro", Level: "h2", TargetWords: 300},
			{Heading: "Details", Level: "h3", TargetWords: 200},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "CONTENT BRIEF")
	assert.Contains(t, out, "1. First Title")
	assert.Contains(t, out, "first-title")
	assert.Contains(t, out, "- Intro (~300 words)")
}

func TestPrintBrief_NilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBrief(nil)
	assert.Empty(t, buf.String())
}

func TestPrintValidationReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintValidationReport(&jobs.PostprocessChunk{
		FAQEnforcement: seo.FAQEnforcementResult{
			Passed:     false,
			Violations: []seo.FAQViolation{{Question: "Q?", CharCount: 400}},
		},
		FactCheck:   seo.FactCheckResult{Verified: true},
		AuditResult: seo.AuditResult{Score: 82, Publishable: true},
	})

	out := buf.String()
	assert.Contains(t, out, "VALIDATION")
	assert.Contains(t, out, "1 answers over limit")
	assert.Contains(t, out, "Fact check:      verified")
	assert.Contains(t, out, "82/100")
	// The full audit report follows the summary box.
	assert.Contains(t, out, "SEO Audit: score 82/100, PUBLISHABLE")
}
