// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSerpResults outputs the search results found for the primary keyword.
func (p *Printer) PrintSerpResults(results []jobs.SerpResult) {
	var sb strings.Builder

	for i, r := range results {
		if i >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(results)-maxItemsToShow))
			break
		}
		marker := " "
		if r.IsArticle {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s\n", marker, r.Position, r.Title))
		sb.WriteString(fmt.Sprintf("     %s\n", r.URL))
	}
	sb.WriteString("\n* = article candidate")

	p.printBox("SEARCH RESULTS", sb.String())
}

// PrintTopics outputs the competitor topic analysis.
func (p *Printer) PrintTopics(topics *jobs.TopicExtractionChunk) {
	if topics == nil {
		return
	}

	var sb strings.Builder
	for _, t := range topics.Topics {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", t.Importance, t.Name))
	}
	if topics.CompetitorAvgWords > 0 {
		sb.WriteString(fmt.Sprintf("\nCompetitor avg: %d words", topics.CompetitorAvgWords))
	}
	if topics.RecommendedWords > 0 {
		sb.WriteString(fmt.Sprintf("\nRecommended:    %d words", topics.RecommendedWords))
	}

	p.printBox("TOPIC ANALYSIS", sb.String())
}

// PrintBrief outputs a human-readable summary of the content brief.
func (p *Printer) PrintBrief(analysis *jobs.AnalysisChunk) {
	if analysis == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString("Titles:\n")
	for i, title := range analysis.Brief.TitleCandidates {
		if i >= maxItemsToShow {
			break
		}
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, title))
	}
	sb.WriteString(fmt.Sprintf("Slug:   %s\n", analysis.Brief.Slug))
	sb.WriteString(fmt.Sprintf("Target: %d words\n", analysis.Brief.TargetWordCount))
	sb.WriteString("\nOutline:\n")
	for _, sec := range analysis.Outline {
		indent := ""
		if sec.Level == "h3" {
			indent = "  "
		}
		sb.WriteString(fmt.Sprintf("  %s- %s (~%d words)\n", indent, sec.Heading, sec.TargetWords))
	}

	p.printBox("CONTENT BRIEF", sb.String())
}

// PrintDraftSummary outputs the key figures of a generated draft.
func (p *Printer) PrintDraftSummary(draft *jobs.DraftChunk) {
	if draft == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title: %s\n", draft.Title))
	sb.WriteString(fmt.Sprintf("Slug:  %s\n", draft.Slug))
	sb.WriteString(fmt.Sprintf("Words: %d", draft.WordCount))

	p.printBox("DRAFT", sb.String())
}

// PrintValidationReport outputs the results of the validation engines,
// including the full SEO audit report.
func (p *Printer) PrintValidationReport(post *jobs.PostprocessChunk) {
	if post == nil {
		return
	}

	var sb strings.Builder

	faq := "passed"
	if !post.FAQEnforcement.Passed {
		faq = fmt.Sprintf("%d answers over limit (corrected)", len(post.FAQEnforcement.Violations))
	}
	sb.WriteString(fmt.Sprintf("FAQ enforcement: %s\n", faq))

	facts := "verified"
	if !post.FactCheck.Verified {
		facts = fmt.Sprintf("%d hallucinated claims", post.FactCheck.Hallucinations)
	}
	sb.WriteString(fmt.Sprintf("Fact check:      %s\n", facts))
	sb.WriteString(fmt.Sprintf("Audit score:     %d/100 (publishable: %t)", post.AuditResult.Score, post.AuditResult.Publishable))

	p.printBox("VALIDATION", sb.String())

	//nolint:errcheck
	fmt.Fprintln(p.out, seo.FormatAuditReport(post.AuditResult))
}
