package seo

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// SourceFact is one research fact with its attribution, used as the
// ground truth for fact checking.
type SourceFact struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
}

// FactIssue is one statement the checker could not trace to a source.
type FactIssue struct {
	Statement string `json:"statement"`
	Kind      string `json:"kind"` // number | attribution
	Detail    string `json:"detail"`
}

// FactCheckResult is the outcome of checking a draft against the research
// corpus. Verified is true when the hallucination count stays within the
// allowed budget.
type FactCheckResult struct {
	Verified          bool        `json:"verified"`
	Issues            []FactIssue `json:"issues,omitempty"`
	Hallucinations    int         `json:"hallucinations"`
	SkippedRhetorical int         `json:"skippedRhetorical"`
}

type refNumber struct {
	value float64
	raw   string
}

var (
	magnitudeRe = regexp.MustCompile(`(?i)\$?(\d+(?:\.\d+)?)\s*(trillion|billion|million|thousand|tn|bn|mn|[tbmk])\b`)
	percentRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	plainNumRe  = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

	statLikeRe = regexp.MustCompile(`(?i)\$\d[\d,]*(?:\.\d+)?(?:\s*(?:trillion|billion|million|thousand|tn|bn|mn|[tbmk])\b)?|\d+(?:\.\d+)?\s*%|\d{1,3}(?:,\d{3})+`)
)

var magnitudes = map[string]float64{
	"trillion": 1e12, "tn": 1e12, "t": 1e12,
	"billion": 1e9, "bn": 1e9, "b": 1e9,
	"million": 1e6, "mn": 1e6, "m": 1e6,
	"thousand": 1e3, "k": 1e3,
}

// extractNumbers pulls every numeric value out of a fact, normalizing
// magnitude suffixes so "$2.5 billion" and "2500000000" compare equal.
func extractNumbers(text string) []refNumber {
	var out []refNumber
	consumed := make([]bool, len(text))

	for _, loc := range magnitudeRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		numStr := text[loc[2]:loc[3]]
		unit := strings.ToLower(text[loc[4]:loc[5]])
		v, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			continue
		}
		out = append(out, refNumber{value: v * magnitudes[unit], raw: raw})
		// The scaled form also matters for tolerance matching against the
		// bare mantissa ("2.5" in "2.5 billion").
		out = append(out, refNumber{value: v, raw: numStr})
		for i := loc[0]; i < loc[1]; i++ {
			consumed[i] = true
		}
	}

	for _, loc := range percentRe.FindAllStringSubmatchIndex(text, -1) {
		if consumed[loc[0]] {
			continue
		}
		numStr := text[loc[2]:loc[3]]
		v, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			continue
		}
		out = append(out, refNumber{value: v, raw: text[loc[0]:loc[1]]})
		for i := loc[0]; i < loc[1]; i++ {
			consumed[i] = true
		}
	}

	for _, loc := range plainNumRe.FindAllStringIndex(text, -1) {
		if consumed[loc[0]] {
			continue
		}
		raw := text[loc[0]:loc[1]]
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, refNumber{value: v, raw: raw})
	}

	return out
}

var rhetoricalRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?%\s+of\s+(?:the\s+|your\s+)?(?:quality|cost|time|budget|effort|work|value)`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?%\s+(?:cheaper|faster|slower|quicker|more|less|fewer)`),
	regexp.MustCompile(`(?i)(?:nearly|almost|roughly|about|around|approximately)\s+\d`),
	regexp.MustCompile(`(?i)\d+\s+years?\s+ago`),
	regexp.MustCompile(`(?i)(?:first|top|number)\s+\d+`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?x\s+(?:more|faster|cheaper|better|higher|lower)`),
	regexp.MustCompile(`(?i)(?:means|leaves|remaining|the\s+other)\s+\d+(?:\.\d+)?%`),
	regexp.MustCompile(`(?i)\d+\s+(?:out\s+of|in)\s+\d+`),
	regexp.MustCompile(`(?i)(?:up\s+to|starting\s+at|from)\s+\$?\d`),
	regexp.MustCompile(`(?i)\d+\s+(?:seconds?|minutes?|hours?|days?|weeks?|months?|steps?)\b`),
}

// isRhetoricalNumber reports whether the number in context is rhetorical
// or illustrative rather than a factual claim needing a source.
func isRhetoricalNumber(context string) bool {
	for _, re := range rhetoricalRes {
		if re.MatchString(context) {
			return true
		}
	}
	return false
}

// isDerivedFromRefs reports whether v is arithmetically derivable from
// the reference numbers: a percentage complement or the sum or difference
// of two references.
func isDerivedFromRefs(v float64, refs []refNumber) bool {
	tol := func(base float64) float64 {
		return math.Max(math.Abs(base)*0.01, 0.5)
	}
	for _, r := range refs {
		if r.value <= 100 && math.Abs((100-r.value)-v) <= 0.5 {
			return true
		}
	}
	for i := range refs {
		for j := i + 1; j < len(refs); j++ {
			sum := refs[i].value + refs[j].value
			diff := math.Abs(refs[i].value - refs[j].value)
			if math.Abs(sum-v) <= tol(v) || math.Abs(diff-v) <= tol(v) {
				return true
			}
		}
	}
	return false
}

func matchesRef(raw string, v float64, refs []refNumber) bool {
	cleaned := strings.ReplaceAll(raw, ",", "")
	for _, r := range refs {
		tolerance := math.Max(math.Abs(r.value)*0.005, 0.01)
		if math.Abs(v-r.value) <= tolerance {
			return true
		}
		if strings.Contains(strings.ReplaceAll(r.raw, ",", ""), cleaned) {
			return true
		}
	}
	return false
}

func parseStatValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)

	mult := 1.0
	lower := strings.ToLower(s)
	for unit, m := range magnitudes {
		if strings.HasSuffix(lower, unit) {
			s = strings.TrimSpace(s[:len(s)-len(unit)])
			mult = m
			break
		}
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}

// context returns a window of text around a match for rhetorical
// classification and issue reporting.
func contextWindow(text string, start, end int) string {
	lo := start - 60
	if lo < 0 {
		lo = 0
	}
	hi := end + 60
	if hi > len(text) {
		hi = len(text)
	}
	// Back off to rune boundaries so the window never splits a multibyte
	// character.
	for lo > 0 && text[lo]&0xC0 == 0x80 {
		lo--
	}
	for hi < len(text) && text[hi]&0xC0 == 0x80 {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}

var (
	attributionRe = regexp.MustCompile(`(?i)(?:according to|as reported by|data from|research (?:by|from)|a (?:study|report|survey) (?:by|from))\s+([A-Z][A-Za-z0-9&.\- ]{1,40}?)(?:[,.;:)]|\s+(?:in|shows|found|reports|says|data)\b)`)
	reporterRe    = regexp.MustCompile(`([A-Z][A-Za-z&\- ]{1,30}?)\s+(?:reported|announced|estimates|estimated|projects|projected|found that|forecasts)\b`)

	nonAttributionRe = regexp.MustCompile(`(?i)^per\s+(?:capita|unit|year|month|week|day|hour|user|seat|person|article|page|click|integration|platform|segment)\b`)
)

var corporateAliases = []string{
	"the company", "researchers", "analysts", "the study", "the report",
	"the survey", "industry analysts", "industry experts", "experts",
	"economists", "the team",
}

// buildSourceAliases derives every name an attribution could legitimately
// use: source hostnames, entities named inside facts, the target keyword,
// and generic corporate references.
func buildSourceAliases(facts []SourceFact, primaryKeyword string) []string {
	seen := map[string]bool{}
	var aliases []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) > 2 && !seen[s] {
			seen[s] = true
			aliases = append(aliases, s)
		}
	}

	for _, f := range facts {
		src := strings.TrimSpace(f.Source)
		if src == "" {
			continue
		}
		if u, err := url.Parse(src); err == nil && u.Host != "" {
			host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
			add(host)
			if idx := strings.Index(host, "."); idx > 0 {
				add(host[:idx])
			}
		} else {
			add(src)
			for _, part := range strings.FieldsFunc(src, func(r rune) bool { return r == ',' || r == '/' }) {
				add(part)
			}
		}
		for _, m := range attributionRe.FindAllStringSubmatch(f.Fact, -1) {
			add(m[1])
		}
		for _, m := range reporterRe.FindAllStringSubmatch(f.Fact, -1) {
			add(m[1])
		}
	}

	add(primaryKeyword)
	for _, w := range strings.Fields(primaryKeyword) {
		add(w)
	}
	for _, c := range corporateAliases {
		add(c)
	}
	return aliases
}

func aliasMatch(name string, aliases []string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if len(lower) <= 2 {
		return true
	}
	for _, a := range aliases {
		if strings.Contains(lower, a) || strings.Contains(a, lower) {
			return true
		}
	}
	return false
}

// VerifyFacts checks the article's statistical claims and source
// attributions against the research facts. It is fully deterministic:
// numbers must match a reference within tolerance or be derivable from
// references, and named sources must alias to a known source. Up to
// maxHallucinations unverifiable claims are tolerated before the result
// is marked unverified.
func VerifyFacts(articleHTML string, facts []SourceFact, primaryKeyword string, maxHallucinations int) FactCheckResult {
	if maxHallucinations <= 0 {
		maxHallucinations = MaxAllowedHallucinations
	}

	text := StripHTML(articleHTML)

	var refs []refNumber
	for _, f := range facts {
		refs = append(refs, extractNumbers(f.Fact)...)
	}

	result := FactCheckResult{}

	seen := map[string]bool{}
	for _, loc := range statLikeRe.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		ctx := contextWindow(text, loc[0], loc[1])

		if isRhetoricalNumber(ctx) {
			result.SkippedRhetorical++
			continue
		}

		v, ok := parseStatValue(raw)
		if !ok {
			continue
		}
		if matchesRef(raw, v, refs) || isDerivedFromRefs(v, refs) {
			continue
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		result.Issues = append(result.Issues, FactIssue{
			Statement: ctx,
			Kind:      "number",
			Detail:    fmt.Sprintf("statistic %q has no matching source fact", raw),
		})
		result.Hallucinations++
	}

	aliases := buildSourceAliases(facts, primaryKeyword)
	seenAttr := map[string]bool{}
	for _, kind := range []*regexp.Regexp{attributionRe, reporterRe} {
		for _, loc := range kind.FindAllStringSubmatchIndex(text, -1) {
			name := strings.TrimSpace(text[loc[2]:loc[3]])
			if nonAttributionRe.MatchString(name) {
				continue
			}
			if aliasMatch(name, aliases) {
				continue
			}
			key := strings.ToLower(name)
			if seenAttr[key] {
				continue
			}
			seenAttr[key] = true
			result.Issues = append(result.Issues, FactIssue{
				Statement: contextWindow(text, loc[0], loc[1]),
				Kind:      "attribution",
				Detail:    fmt.Sprintf("attribution to %q does not match any research source", name),
			})
			result.Hallucinations++
		}
	}

	result.Verified = result.Hallucinations <= maxHallucinations
	return result
}
