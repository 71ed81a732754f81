package llm

import "strings"

// CleanJSONBlock strips a markdown code fence from a model response.
// Models frequently wrap JSON in ```json fences even when told not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	rest, fenced := strings.CutPrefix(text, "```")
	if !fenced {
		return text
	}

	// Drop a language tag on the fence line ("json", "javascript", ...).
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if len(tag) < 20 && !strings.ContainsAny(tag, " {") {
			rest = rest[nl+1:]
		}
	}

	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
