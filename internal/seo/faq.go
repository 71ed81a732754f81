package seo

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FAQViolation is one answer that exceeded the character cap.
type FAQViolation struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CharCount int    `json:"charCount"`
}

// FAQEnforcementResult reports the outcome of FAQ answer length
// enforcement. FixedHTML always holds publishable content: the original
// when no violations were found, otherwise the corrected article.
type FAQEnforcementResult struct {
	Passed     bool           `json:"passed"`
	Violations []FAQViolation `json:"violations,omitempty"`
	FixedHTML  string         `json:"fixedHtml,omitempty"`
}

// EnforceFAQLimit caps every FAQ answer at maxChars. Answers over the cap
// are recorded as violations and rewritten in place with a truncated
// version, so the result is always safe to publish.
func EnforceFAQLimit(html string, maxChars int) FAQEnforcementResult {
	if maxChars <= 0 {
		maxChars = FAQAnswerMaxChars
	}

	doc, err := parseFragment(html)
	if err != nil {
		return FAQEnforcementResult{Passed: true, FixedHTML: html}
	}

	faqH2 := findFAQHeading(doc)
	if faqH2 == nil {
		return FAQEnforcementResult{Passed: true, FixedHTML: html}
	}

	var violations []FAQViolation
	// Enforcement stops at the next H2: answers live only inside the FAQ
	// block, never in later sections.
	for sel := faqH2.Next(); sel.Length() > 0; sel = sel.Next() {
		name := goquery.NodeName(sel)
		if name == "h2" {
			break
		}
		if name != "h3" {
			continue
		}
		question := strings.TrimSpace(whitespaceRe.ReplaceAllString(sel.Text(), " "))
		for ans := sel.Next(); ans.Length() > 0; ans = ans.Next() {
			name := goquery.NodeName(ans)
			if name == "h3" || name == "h2" {
				break
			}
			if name != "p" {
				continue
			}
			answer := strings.TrimSpace(whitespaceRe.ReplaceAllString(ans.Text(), " "))
			if len([]rune(answer)) > maxChars {
				violations = append(violations, FAQViolation{
					Question:  question,
					Answer:    answer,
					CharCount: len([]rune(answer)),
				})
				ans.SetText(truncateAnswer(answer, maxChars))
			}
			break
		}
	}

	if len(violations) == 0 {
		return FAQEnforcementResult{Passed: true, FixedHTML: html}
	}

	fixed, err := doc.Find("body").Html()
	if err != nil || fixed == "" {
		fixed = html
	}
	return FAQEnforcementResult{
		Passed:     false,
		Violations: violations,
		FixedHTML:  fixed,
	}
}

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

// truncateAnswer shortens an answer to fit maxChars, preferring complete
// sentences: first two if they fit, then one, then a hard cut at the last
// word boundary.
func truncateAnswer(answer string, maxChars int) string {
	sentences := splitSentences(answer)
	if len(sentences) >= 2 {
		twoSentences := sentences[0] + " " + sentences[1]
		if len([]rune(twoSentences)) <= maxChars {
			return twoSentences
		}
	}
	if len(sentences) >= 1 && len([]rune(sentences[0])) <= maxChars {
		return sentences[0]
	}

	runes := []rune(answer)
	cut := maxChars - 1
	if cut > len(runes) {
		cut = len(runes)
	}
	truncated := string(runes[:cut])
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.TrimRight(truncated, " ,;:") + "."
}

func splitSentences(text string) []string {
	marked := sentenceEndRe.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
