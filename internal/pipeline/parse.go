package pipeline

import (
	"fmt"
	"strings"

	"github.com/kolavi/blog-pipeline/internal/jobs"
)

// Limits applied when normalizing raw generation input.
const (
	MaxSecondaryKeywords   = 5
	MaxPeopleAlsoSearchFor = 5
)

// Word count presets.
const (
	PresetAuto     = "auto"
	PresetConcise  = "concise"
	PresetStandard = "standard"
	PresetInDepth  = "in_depth"
	PresetCustom   = "custom"
)

var presetWordCounts = map[string]int{
	PresetConcise:  1250,
	PresetStandard: 2000,
	PresetInDepth:  3200,
}

// GenerateInput is the raw one-shot generation request before
// normalization.
type GenerateInput struct {
	Keywords            string   `json:"keywords" validate:"required"`
	PeopleAlsoSearchFor []string `json:"peopleAlsoSearchFor,omitempty"`
	Intents             []string `json:"intents,omitempty"`
	WordCountPreset     string   `json:"wordCountPreset,omitempty"`
	CustomWordCount     int      `json:"customWordCount,omitempty"`
}

// ParseGenerateInput normalizes a raw generation request into frozen
// pipeline input. The first comma-separated keyword is primary; up to
// five more become secondary keywords.
func ParseGenerateInput(raw GenerateInput) (jobs.PipelineInput, error) {
	var input jobs.PipelineInput

	keywords := splitCSV(raw.Keywords)
	if len(keywords) == 0 {
		return input, &ValidationError{Message: "keywords is required"}
	}
	input.PrimaryKeyword = keywords[0]
	if len(keywords) > 1 {
		secondary := keywords[1:]
		if len(secondary) > MaxSecondaryKeywords {
			secondary = secondary[:MaxSecondaryKeywords]
		}
		input.SecondaryKeywords = secondary
	}

	pasf := trimAll(raw.PeopleAlsoSearchFor)
	if len(pasf) > MaxPeopleAlsoSearchFor {
		pasf = pasf[:MaxPeopleAlsoSearchFor]
	}
	input.PeopleAlsoSearchFor = pasf

	intents, err := ParseIntents(raw.Intents)
	if err != nil {
		return jobs.PipelineInput{}, err
	}
	input.Intents = intents

	target, err := resolvePresetWordCount(raw.WordCountPreset, raw.CustomWordCount)
	if err != nil {
		return jobs.PipelineInput{}, err
	}
	input.WordCountTarget = target

	return input, nil
}

// ParseIntents normalizes and validates search intent names.
func ParseIntents(raw []string) ([]jobs.SearchIntent, error) {
	var intents []jobs.SearchIntent
	for _, s := range raw {
		intent := jobs.SearchIntent(strings.ToLower(strings.TrimSpace(s)))
		if !jobs.ValidIntent(intent) {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown search intent: %q", s)}
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

// resolvePresetWordCount maps a preset name to its word target. Auto and
// empty mean derive from competitors (0). Custom requires an explicit
// in-range count.
func resolvePresetWordCount(preset string, custom int) (int, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", PresetAuto:
		return 0, nil
	case PresetConcise, PresetStandard, PresetInDepth:
		return presetWordCounts[strings.ToLower(strings.TrimSpace(preset))], nil
	case PresetCustom:
		if custom < MinWordCountTarget || custom > MaxWordCountTarget {
			return 0, &ValidationError{Message: fmt.Sprintf("customWordCount must be between %d and %d", MinWordCountTarget, MaxWordCountTarget)}
		}
		return custom, nil
	default:
		return 0, &ValidationError{Message: fmt.Sprintf("unknown wordCountPreset: %q", preset)}
	}
}

func splitCSV(s string) []string {
	return trimAll(strings.Split(s, ","))
}

func trimAll(parts []string) []string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
