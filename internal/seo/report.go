package seo

import (
	"fmt"
	"strings"
)

func severityIcon(s Severity) string {
	switch s {
	case SeverityPass:
		return "✓"
	case SeverityWarn:
		return "⚠"
	default:
		return "✗"
	}
}

func sourceTag(s Source) string {
	switch s {
	case SourceRankMath:
		return " [Rank Math]"
	case SourceEditorial:
		return " [Editorial]"
	default:
		return ""
	}
}

// FormatAuditReport renders an audit result as a plain-text report for
// logs and progress events.
func FormatAuditReport(result AuditResult) string {
	var sb strings.Builder

	verdict := "NOT PUBLISHABLE"
	if result.Publishable {
		verdict = "PUBLISHABLE"
	}
	fmt.Fprintf(&sb, "SEO Audit: score %d/100, %s\n", result.Score, verdict)
	fmt.Fprintf(&sb, "%d passed, %d warnings, %d failures\n\n",
		result.Summary.Pass, result.Summary.Warn, result.Summary.Fail)

	for _, item := range result.Items {
		fmt.Fprintf(&sb, "%s [L%d]%s %s: %s\n",
			severityIcon(item.Severity), item.Level, sourceTag(item.Source), item.Label, item.Message)
		if item.Value != "" {
			fmt.Fprintf(&sb, "    value: %s\n", item.Value)
		}
		if item.Threshold != "" {
			fmt.Fprintf(&sb, "    threshold: %s\n", item.Threshold)
		}
		if item.Guideline != "" && item.Severity != SeverityPass {
			fmt.Fprintf(&sb, "    %s\n", item.Guideline)
		}
	}

	return sb.String()
}
