package seo

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Audit thresholds. Title and meta limits track Google SERP truncation;
// the Rank Math items mirror that tool's checklist.
const (
	TitleMaxChars            = 60
	TitleWarnChars           = 55
	MetaDescriptionMaxChars  = 160
	MetaDescriptionMinChars  = 70
	SlugMaxChars             = 75
	ParagraphMaxWords        = 120
	ContentThinWords         = 300
	ContentMinWordsPillar    = 2500
	KeywordStuffingWarn      = 0.025
	KeywordStuffingFail      = 2 * KeywordStuffingWarn
	KeywordCheckMinWords     = 100
	MinPublishScore          = 75
	MinImageCount            = 4
	FAQAnswerMaxChars        = 300
	MaxAllowedHallucinations = 6
)

// Severity of a single audit item.
type Severity string

const (
	SeverityPass Severity = "pass"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// Source identifies which checklist an audit item belongs to.
type Source string

const (
	SourceGoogle    Source = "google"
	SourceRankMath  Source = "rankmath"
	SourceEditorial Source = "editorial"
)

// AuditItem is one evaluated rule.
type AuditItem struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Severity  Severity `json:"severity"`
	Level     int      `json:"level"`
	Source    Source   `json:"source"`
	Message   string   `json:"message"`
	Value     string   `json:"value,omitempty"`
	Threshold string   `json:"threshold,omitempty"`
	Guideline string   `json:"guideline,omitempty"`
}

// AuditSummary counts items per severity.
type AuditSummary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// AuditResult is the full outcome of an article audit.
type AuditResult struct {
	Items       []AuditItem  `json:"items"`
	Score       int          `json:"score"`
	Summary     AuditSummary `json:"summary"`
	Publishable bool         `json:"publishable"`
}

// AuditInput carries everything the audit rules inspect.
type AuditInput struct {
	Content           string
	Title             string
	MetaDescription   string
	Slug              string
	PrimaryKeyword    string
	SecondaryKeywords []string
	// ExtraValueTopics are the differentiator topics from the brief, used
	// by the editorial coverage check.
	ExtraValueTopics []string
}

// AuditConfig tunes the publishability gate.
type AuditConfig struct {
	MinPublishScore int
}

// DefaultAuditConfig returns the standard gate.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{MinPublishScore: MinPublishScore}
}

// AuditArticle runs every rule against the input and computes the score
// and publishability verdict. The audit is deterministic: the same input
// always yields the same result.
func AuditArticle(input AuditInput, cfg AuditConfig) AuditResult {
	if cfg.MinPublishScore <= 0 {
		cfg.MinPublishScore = MinPublishScore
	}

	text := StripHTML(input.Content)
	totalWords := CountWords(text)
	headings := ExtractHeadings(input.Content)

	var items []AuditItem
	items = append(items, auditTitle(input.Title))
	items = append(items, auditMetaDescription(input.MetaDescription))
	items = append(items, auditSlug(input.Slug))
	items = append(items, auditContentThinness(totalWords))
	items = append(items, auditKeywordStuffing(text, totalWords, input.PrimaryKeyword))
	items = append(items, auditHeadingStructure(input.Content, headings)...)
	items = append(items, auditParagraphLength(input.Content))
	items = append(items, auditRankMath(input, text, totalWords, headings)...)
	items = append(items, auditTypography(input.Content))
	items = append(items, auditGenericPhrases(text))
	items = append(items, auditExtraValueCoverage(text, input.ExtraValueTopics))

	sortItems(items)

	summary := AuditSummary{}
	scoreable := 0
	passed := 0
	levelOneFail := false
	for _, item := range items {
		switch item.Severity {
		case SeverityPass:
			summary.Pass++
		case SeverityWarn:
			summary.Warn++
		case SeverityFail:
			summary.Fail++
		}
		if !isScoreable(item) {
			continue
		}
		scoreable++
		if item.Severity == SeverityPass {
			passed++
		}
		if item.Level == 1 && item.Severity == SeverityFail {
			levelOneFail = true
		}
	}

	score := 100
	if scoreable > 0 {
		score = int(math.Round(float64(passed) / float64(scoreable) * 100))
	}

	return AuditResult{
		Items:       items,
		Score:       score,
		Summary:     summary,
		Publishable: score >= cfg.MinPublishScore && !levelOneFail,
	}
}

// isScoreable excludes editorial items (except AI typography, which is a
// hard content quality signal) and the always-pass informational items.
func isScoreable(item AuditItem) bool {
	if item.ID == "rm-content-length" || item.ID == "rm-image-count" {
		return false
	}
	if item.Source == SourceEditorial && item.ID != "ai-typography" {
		return false
	}
	return true
}

var sourceOrder = map[Source]int{
	SourceGoogle:    0,
	SourceRankMath:  1,
	SourceEditorial: 2,
}

var severityOrder = map[Severity]int{
	SeverityFail: 0,
	SeverityWarn: 1,
	SeverityPass: 2,
}

func sortItems(items []AuditItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if sourceOrder[a.Source] != sourceOrder[b.Source] {
			return sourceOrder[a.Source] < sourceOrder[b.Source]
		}
		return severityOrder[a.Severity] < severityOrder[b.Severity]
	})
}

func auditTitle(title string) AuditItem {
	item := AuditItem{
		ID:        "title-length",
		Label:     "Title length",
		Level:     1,
		Source:    SourceGoogle,
		Value:     fmt.Sprintf("%d chars", len([]rune(title))),
		Threshold: fmt.Sprintf("max %d chars", TitleMaxChars),
		Guideline: "Titles over 60 characters are truncated in search results.",
	}
	n := len([]rune(title))
	switch {
	case title == "":
		item.Severity = SeverityFail
		item.Message = "Title is missing."
	case n > TitleMaxChars:
		item.Severity = SeverityFail
		item.Message = fmt.Sprintf("Title is %d characters; it will be truncated in search results.", n)
	case n > TitleWarnChars:
		item.Severity = SeverityWarn
		item.Message = fmt.Sprintf("Title is %d characters; close to the truncation limit.", n)
	default:
		item.Severity = SeverityPass
		item.Message = "Title length is within limits."
	}
	return item
}

func auditMetaDescription(meta string) AuditItem {
	item := AuditItem{
		ID:        "meta-description",
		Label:     "Meta description",
		Level:     1,
		Source:    SourceGoogle,
		Value:     fmt.Sprintf("%d chars", len([]rune(meta))),
		Threshold: fmt.Sprintf("%d-%d chars", MetaDescriptionMinChars, MetaDescriptionMaxChars),
		Guideline: "Descriptions over 160 characters are truncated; under 70 they waste SERP space.",
	}
	n := len([]rune(meta))
	switch {
	case meta == "":
		item.Severity = SeverityFail
		item.Message = "Meta description is missing."
	case n > MetaDescriptionMaxChars:
		item.Severity = SeverityFail
		item.Message = fmt.Sprintf("Meta description is %d characters; it will be truncated.", n)
	case n < MetaDescriptionMinChars:
		item.Severity = SeverityWarn
		item.Message = fmt.Sprintf("Meta description is %d characters; consider expanding it.", n)
	default:
		item.Severity = SeverityPass
		item.Message = "Meta description length is within limits."
	}
	return item
}

var slugCharRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func auditSlug(slug string) AuditItem {
	item := AuditItem{
		ID:        "url-slug",
		Label:     "URL slug",
		Level:     1,
		Source:    SourceGoogle,
		Value:     slug,
		Threshold: fmt.Sprintf("max %d chars, lowercase hyphenated", SlugMaxChars),
	}
	switch {
	case slug == "":
		item.Severity = SeverityFail
		item.Message = "Slug is missing."
	case len(slug) > SlugMaxChars:
		item.Severity = SeverityFail
		item.Message = fmt.Sprintf("Slug is %d characters; keep it under %d.", len(slug), SlugMaxChars)
	case !slugCharRe.MatchString(slug):
		item.Severity = SeverityFail
		item.Message = "Slug contains characters outside lowercase letters, digits, and hyphens."
	default:
		item.Severity = SeverityPass
		item.Message = "Slug is well formed."
	}
	return item
}

func auditContentThinness(totalWords int) AuditItem {
	item := AuditItem{
		ID:        "content-thin",
		Label:     "Content depth",
		Level:     1,
		Source:    SourceGoogle,
		Value:     fmt.Sprintf("%d words", totalWords),
		Threshold: fmt.Sprintf("min %d words", ContentThinWords),
		Guideline: "Pages under 300 words rarely rank for competitive queries.",
	}
	if totalWords < ContentThinWords {
		item.Severity = SeverityFail
		item.Message = fmt.Sprintf("Article has only %d words; thin content is unlikely to rank.", totalWords)
	} else {
		item.Severity = SeverityPass
		item.Message = "Content depth is sufficient."
	}
	return item
}

func auditKeywordStuffing(text string, totalWords int, keyword string) AuditItem {
	item := AuditItem{
		ID:        "keyword-stuffing",
		Label:     "Keyword density",
		Level:     1,
		Source:    SourceGoogle,
		Threshold: fmt.Sprintf("warn over %.1f%%, fail over %.1f%%", KeywordStuffingWarn*100, KeywordStuffingFail*100),
	}
	if keyword == "" || totalWords < KeywordCheckMinWords {
		item.Severity = SeverityPass
		item.Message = "Not enough content to evaluate keyword density."
		return item
	}

	kwWords := CountWords(keyword)
	phraseCount := strings.Count(strings.ToLower(text), strings.ToLower(keyword))
	ratio := float64(phraseCount*kwWords) / float64(totalWords)
	item.Value = fmt.Sprintf("%.2f%% (%d occurrences)", ratio*100, phraseCount)

	switch {
	case ratio > KeywordStuffingFail:
		item.Severity = SeverityFail
		item.Message = fmt.Sprintf("Primary keyword density is %.1f%%; this reads as keyword stuffing.", ratio*100)
	case ratio > KeywordStuffingWarn:
		item.Severity = SeverityWarn
		item.Message = fmt.Sprintf("Primary keyword density is %.1f%%; consider varying phrasing.", ratio*100)
	default:
		item.Severity = SeverityPass
		item.Message = "Keyword density is natural."
	}
	return item
}

var h1Re = regexp.MustCompile(`(?is)<h1[\s>]`)

func auditHeadingStructure(html string, headings []Heading) []AuditItem {
	present := AuditItem{
		ID:     "headings-present",
		Label:  "Section headings",
		Level:  1,
		Source: SourceGoogle,
	}
	if len(headings) == 0 {
		present.Severity = SeverityWarn
		present.Message = "Article body has no H2-H6 headings."
	} else {
		present.Severity = SeverityPass
		present.Message = fmt.Sprintf("Article has %d section headings.", len(headings))
	}

	hierarchy := AuditItem{
		ID:       "heading-hierarchy",
		Label:    "Heading hierarchy",
		Level:    2,
		Source:   SourceGoogle,
		Severity: SeverityPass,
		Message:  "Heading levels descend without gaps.",
	}
	prev := 0
	for _, h := range headings {
		if prev > 0 && h.Level > prev+1 {
			hierarchy.Severity = SeverityWarn
			hierarchy.Message = fmt.Sprintf("Heading skips from H%d to H%d (%q).", prev, h.Level, h.Text)
			break
		}
		prev = h.Level
	}

	h1 := AuditItem{
		ID:       "h1-in-body",
		Label:    "H1 in body",
		Level:    2,
		Source:   SourceGoogle,
		Severity: SeverityPass,
		Message:  "Body contains no H1; the page template owns the H1.",
	}
	if h1Re.MatchString(html) {
		h1.Severity = SeverityWarn
		h1.Message = "Body contains an H1 element; the page template already renders one."
	}

	return []AuditItem{present, hierarchy, h1}
}

func auditParagraphLength(html string) AuditItem {
	item := AuditItem{
		ID:        "paragraph-length",
		Label:     "Paragraph length",
		Level:     2,
		Source:    SourceGoogle,
		Threshold: fmt.Sprintf("max %d words per paragraph", ParagraphMaxWords),
	}
	long := 0
	longest := 0
	for _, p := range ExtractParagraphs(html) {
		n := CountWords(p)
		if n > ParagraphMaxWords {
			long++
		}
		if n > longest {
			longest = n
		}
	}
	item.Value = fmt.Sprintf("longest %d words", longest)
	if long > 0 {
		item.Severity = SeverityWarn
		item.Message = fmt.Sprintf("%d paragraph(s) exceed %d words; break them up for readability.", long, ParagraphMaxWords)
	} else {
		item.Severity = SeverityPass
		item.Message = "All paragraphs are readable length."
	}
	return item
}

func auditRankMath(input AuditInput, text string, totalWords int, headings []Heading) []AuditItem {
	keyword := strings.ToLower(input.PrimaryKeyword)
	lowerText := strings.ToLower(text)
	items := make([]AuditItem, 0, 7)

	rm := func(id, label string, pass bool, passMsg, failMsg string) AuditItem {
		item := AuditItem{ID: id, Label: label, Level: 3, Source: SourceRankMath}
		if pass {
			item.Severity = SeverityPass
			item.Message = passMsg
		} else {
			item.Severity = SeverityFail
			item.Message = failMsg
		}
		return item
	}

	items = append(items, rm("rm-meta-keyword", "Keyword in meta description",
		keyword != "" && strings.Contains(strings.ToLower(input.MetaDescription), keyword),
		"Meta description contains the primary keyword.",
		"Meta description does not mention the primary keyword."))

	// First 10% of the content, with a floor so short articles still get a
	// meaningful window.
	window := totalWords / 10
	if window < 50 {
		window = 50
	}
	words := strings.Fields(lowerText)
	if window > len(words) {
		window = len(words)
	}
	opening := strings.Join(words[:window], " ")
	items = append(items, rm("rm-keyword-intro", "Keyword in opening",
		keyword != "" && strings.Contains(opening, keyword),
		"Primary keyword appears early in the article.",
		"Primary keyword does not appear in the first 10% of the article."))

	slugHasKw := false
	for _, w := range strings.Fields(keyword) {
		if w != "" && strings.Contains(input.Slug, strings.ToLower(w)) {
			slugHasKw = true
			break
		}
	}
	items = append(items, rm("rm-slug-keyword", "Keyword in slug",
		slugHasKw,
		"Slug contains a keyword term.",
		"Slug does not contain any keyword term."))

	subheadingHasKw := false
	for _, h := range headings {
		if keyword != "" && strings.Contains(strings.ToLower(h.Text), keyword) {
			subheadingHasKw = true
			break
		}
	}
	items = append(items, rm("rm-subheading-keyword", "Keyword in subheading",
		subheadingHasKw,
		"A subheading contains the primary keyword.",
		"No subheading contains the primary keyword."))

	// Informational item only; pillar length is a goal, not a gate, so this
	// never fails and is excluded from the score.
	length := AuditItem{
		ID:        "rm-content-length",
		Label:     "Pillar content length",
		Level:     3,
		Source:    SourceRankMath,
		Severity:  SeverityPass,
		Value:     fmt.Sprintf("%d words", totalWords),
		Threshold: fmt.Sprintf("%d words for pillar content", ContentMinWordsPillar),
	}
	if totalWords >= ContentMinWordsPillar {
		length.Message = "Article meets the pillar content length."
	} else {
		length.Message = fmt.Sprintf("Article is %d words; pillar pages target %d or more.", totalWords, ContentMinWordsPillar)
	}
	items = append(items, length)

	titleLower := strings.ToLower(input.Title)
	kwPos := strings.Index(titleLower, keyword)
	items = append(items, rm("rm-title-keyword-position", "Keyword position in title",
		keyword != "" && kwPos >= 0 && kwPos <= len(titleLower)/2,
		"Primary keyword appears in the first half of the title.",
		"Primary keyword is missing from the first half of the title."))

	items = append(items, rm("rm-number-in-title", "Number in title",
		strings.ContainsAny(input.Title, "0123456789"),
		"Title contains a number.",
		"Title contains no number; numbered titles tend to earn more clicks."))

	items = append(items, auditImageCount(input.Content))

	return items
}

var imgTagRe = regexp.MustCompile(`(?i)<img[\s>/]`)

// auditImageCount reports how many images the body carries against the
// Rank Math target. Generated drafts ship without images and get them
// attached at publish time, so like pillar length this item is
// informational and never counts toward the score.
func auditImageCount(html string) AuditItem {
	count := len(imgTagRe.FindAllString(html, -1))
	item := AuditItem{
		ID:        "rm-image-count",
		Label:     "Image count",
		Level:     3,
		Source:    SourceRankMath,
		Severity:  SeverityPass,
		Value:     fmt.Sprintf("%d images", count),
		Threshold: fmt.Sprintf("min %d images", MinImageCount),
	}
	if count >= MinImageCount {
		item.Message = "Article body meets the image count target."
	} else {
		item.Message = fmt.Sprintf("Article body has %d image(s); add media for %d or more before publishing.", count, MinImageCount)
	}
	return item
}

var typographyChars = []struct {
	char string
	name string
}{
	{"—", "em dash"},
	{"–", "en dash"},
	{"“", "curly double quote"},
	{"”", "curly double quote"},
	{"‘", "curly single quote"},
	{"’", "curly single quote"},
}

// auditTypography flags punctuation the house style forbids in article
// bodies. Unlike the other editorial items this one counts toward the
// score.
func auditTypography(html string) AuditItem {
	item := AuditItem{
		ID:     "ai-typography",
		Label:  "Typography",
		Level:  2,
		Source: SourceEditorial,
	}
	found := map[string]int{}
	total := 0
	for _, tc := range typographyChars {
		if n := strings.Count(html, tc.char); n > 0 {
			found[tc.name] += n
			total += n
		}
	}
	if total == 0 {
		item.Severity = SeverityPass
		item.Message = "No forbidden punctuation found."
		return item
	}
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	item.Severity = SeverityFail
	item.Value = fmt.Sprintf("%d occurrences", total)
	item.Message = fmt.Sprintf("Found forbidden punctuation: %s.", strings.Join(names, ", "))
	return item
}

var genericPhrases = []string{
	"in today's fast-paced world",
	"in the ever-evolving landscape",
	"delve into",
	"it's important to note that",
	"at the end of the day",
	"game-changer",
	"unlock the potential",
	"seamlessly integrate",
	"in conclusion,",
	"navigate the complexities",
	"robust solution",
	"leverage the power",
}

func auditGenericPhrases(text string) AuditItem {
	item := AuditItem{
		ID:     "generic-phrases",
		Label:  "Generic phrasing",
		Level:  3,
		Source: SourceEditorial,
	}
	lower := strings.ToLower(text)
	var hits []string
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			hits = append(hits, phrase)
		}
	}
	if len(hits) == 0 {
		item.Severity = SeverityPass
		item.Message = "No boilerplate phrasing found."
	} else {
		item.Severity = SeverityWarn
		item.Value = strings.Join(hits, "; ")
		item.Message = fmt.Sprintf("Found %d boilerplate phrase(s); rewrite in the house voice.", len(hits))
	}
	return item
}

func auditExtraValueCoverage(text string, topics []string) AuditItem {
	item := AuditItem{
		ID:     "extra-value-coverage",
		Label:  "Differentiator coverage",
		Level:  3,
		Source: SourceEditorial,
	}
	if len(topics) == 0 {
		item.Severity = SeverityPass
		item.Message = "No differentiator topics were planned."
		return item
	}
	lower := strings.ToLower(text)
	covered := 0
	var missing []string
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(topic)) {
			covered++
		} else {
			missing = append(missing, topic)
		}
	}
	item.Value = fmt.Sprintf("%d/%d covered", covered, len(topics))
	if len(missing) == 0 {
		item.Severity = SeverityPass
		item.Message = "All planned differentiator topics are covered."
	} else {
		item.Severity = SeverityWarn
		item.Message = fmt.Sprintf("Missing differentiator topics: %s.", strings.Join(missing, ", "))
	}
	return item
}
