package seo

import (
	"strings"
	"time"
)

// ArticleSchema is the JSON-LD Article descriptor.
type ArticleSchema struct {
	Context       string `json:"@context"`
	Type          string `json:"@type"`
	Headline      string `json:"headline"`
	Description   string `json:"description,omitempty"`
	Keywords      string `json:"keywords,omitempty"`
	DatePublished string `json:"datePublished"`
	DateModified  string `json:"dateModified"`
}

// FAQQuestionSchema is one Question entity in a FAQPage.
type FAQQuestionSchema struct {
	Type           string          `json:"@type"`
	Name           string          `json:"name"`
	AcceptedAnswer FAQAnswerSchema `json:"acceptedAnswer"`
}

// FAQAnswerSchema is the accepted answer of a Question entity.
type FAQAnswerSchema struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

// FAQPageSchema is the JSON-LD FAQPage descriptor.
type FAQPageSchema struct {
	Context    string              `json:"@context"`
	Type       string              `json:"@type"`
	MainEntity []FAQQuestionSchema `json:"mainEntity"`
}

// BreadcrumbItemSchema is one ListItem in a BreadcrumbList.
type BreadcrumbItemSchema struct {
	Type     string `json:"@type"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item,omitempty"`
}

// BreadcrumbSchema is the JSON-LD BreadcrumbList descriptor.
type BreadcrumbSchema struct {
	Context         string                 `json:"@context"`
	Type            string                 `json:"@type"`
	ItemListElement []BreadcrumbItemSchema `json:"itemListElement"`
}

// SchemaMarkup bundles the JSON-LD blocks generated for an article.
type SchemaMarkup struct {
	Article       ArticleSchema    `json:"article"`
	FAQ           *FAQPageSchema   `json:"faq,omitempty"`
	Breadcrumb    BreadcrumbSchema `json:"breadcrumb"`
	FAQSchemaNote string           `json:"faqSchemaNote,omitempty"`
}

// GenerateSchemaMarkup builds Article, FAQPage, and BreadcrumbList
// JSON-LD for the article. FAQ answers are capped at the same character
// limit the enforcement pass applies, so the markup never diverges from
// the published content.
func GenerateSchemaMarkup(html, title, metaDescription, slug string, keywords []string, siteURL string, now time.Time) SchemaMarkup {
	date := now.Format("2006-01-02")

	markup := SchemaMarkup{
		Article: ArticleSchema{
			Context:       "https://schema.org",
			Type:          "Article",
			Headline:      title,
			Description:   metaDescription,
			Keywords:      strings.Join(keywords, ", "),
			DatePublished: date,
			DateModified:  date,
		},
		Breadcrumb: BreadcrumbSchema{
			Context: "https://schema.org",
			Type:    "BreadcrumbList",
			ItemListElement: []BreadcrumbItemSchema{
				{Type: "ListItem", Position: 1, Name: "Home", Item: siteURL},
				{Type: "ListItem", Position: 2, Name: "Blog", Item: siteURL + "/blog"},
				{Type: "ListItem", Position: 3, Name: title, Item: siteURL + "/blog/" + slug},
			},
		},
	}

	entries := ExtractFAQ(html)
	var questions []FAQQuestionSchema
	for _, e := range entries {
		if e.Question == "" || e.Answer == "" {
			continue
		}
		answer := e.Answer
		if len([]rune(answer)) > FAQAnswerMaxChars {
			answer = truncateAnswer(answer, FAQAnswerMaxChars)
		}
		questions = append(questions, FAQQuestionSchema{
			Type: "Question",
			Name: e.Question,
			AcceptedAnswer: FAQAnswerSchema{
				Type: "Answer",
				Text: answer,
			},
		})
	}

	if len(questions) > 0 {
		markup.FAQ = &FAQPageSchema{
			Context:    "https://schema.org",
			Type:       "FAQPage",
			MainEntity: questions,
		}
		markup.FAQSchemaNote = "FAQ section detected; FAQPage schema generated."
	} else {
		markup.FAQSchemaNote = "No FAQ section detected; FAQPage schema omitted."
	}

	return markup
}
