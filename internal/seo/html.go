// Package seo provides the deterministic validation engines run against a
// drafted article: rule-based audit, FAQ length enforcement, fact
// checking against the research corpus, and JSON-LD schema markup.
package seo

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags and collapses whitespace.
func StripHTML(html string) string {
	text := tagRe.ReplaceAllString(html, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Heading is one H2-H6 heading with its level.
type Heading struct {
	Level int
	Text  string
}

func parseFragment(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ExtractHeadings returns H2-H6 headings in document order.
func ExtractHeadings(html string) []Heading {
	doc, err := parseFragment(html)
	if err != nil {
		return nil
	}

	var out []Heading
	doc.Find("h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		level := 0
		switch goquery.NodeName(sel) {
		case "h2":
			level = 2
		case "h3":
			level = 3
		case "h4":
			level = 4
		case "h5":
			level = 5
		case "h6":
			level = 6
		}
		if level > 0 {
			out = append(out, Heading{Level: level, Text: StripHTML(strings.TrimSpace(sel.Text()))})
		}
	})
	return out
}

// ExtractParagraphs returns the plain text of each <p> element.
func ExtractParagraphs(html string) []string {
	doc, err := parseFragment(html)
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(whitespaceRe.ReplaceAllString(sel.Text(), " "))
		if text != "" {
			out = append(out, text)
		}
	})
	return out
}

var faqHeadingRe = regexp.MustCompile(`(?i)FAQ|Frequently Asked`)

// FAQEntry is one question/answer pair from the article's FAQ section.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ExtractFAQ parses the FAQ section: an H2 matching "FAQ" or "Frequently
// Asked" followed by H3 question / paragraph answer pairs. Returns nil
// when no FAQ section exists.
func ExtractFAQ(html string) []FAQEntry {
	doc, err := parseFragment(html)
	if err != nil {
		return nil
	}

	faqH2 := findFAQHeading(doc)
	if faqH2 == nil {
		return nil
	}

	var entries []FAQEntry
	// Walk siblings after the FAQ H2; each H3 opens a question and the
	// first following <p> is its answer. The next H2 ends the FAQ block.
	for sel := faqH2.Next(); sel.Length() > 0; sel = sel.Next() {
		name := goquery.NodeName(sel)
		if name == "h2" {
			break
		}
		if name != "h3" {
			continue
		}
		question := strings.TrimSpace(whitespaceRe.ReplaceAllString(sel.Text(), " "))
		answer := ""
		for ans := sel.Next(); ans.Length() > 0; ans = ans.Next() {
			name := goquery.NodeName(ans)
			if name == "h3" || name == "h2" {
				break
			}
			if name == "p" {
				answer = strings.TrimSpace(whitespaceRe.ReplaceAllString(ans.Text(), " "))
				break
			}
		}
		if question != "" {
			entries = append(entries, FAQEntry{Question: question, Answer: answer})
		}
	}
	return entries
}

func findFAQHeading(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("h2").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if faqHeadingRe.MatchString(sel.Text()) {
			found = sel
			return false
		}
		return true
	})
	return found
}
