// Package prompts embeds the LLM prompt templates used by the article
// pipeline and resolves their placeholders.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed pipeline.json
var catalogJSON []byte

var (
	loadOnce sync.Once
	catalog  map[string]string
	loadErr  error
)

func load() (map[string]string, error) {
	loadOnce.Do(func() {
		if err := json.Unmarshal(catalogJSON, &catalog); err != nil {
			loadErr = fmt.Errorf("parse prompt catalog: %w", err)
		}
	})
	return catalog, loadErr
}

// Get returns the template stored under key in the embedded catalog.
func Get(key string) (string, error) {
	templates, err := load()
	if err != nil {
		return "", err
	}
	tmpl, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", key)
	}
	return tmpl, nil
}

// MustGet is Get for templates the pipeline cannot run without.
func MustGet(key string) string {
	tmpl, err := Get(key)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Format replaces {{.Key}} placeholders with values from data. Unknown
// placeholders are left intact so missing substitutions show up in tests.
func Format(template string, data map[string]string) string {
	for key, value := range data {
		template = strings.ReplaceAll(template, "{{."+key+"}}", value)
	}
	return template
}

// Keys lists the template names in the catalog.
func Keys() ([]string, error) {
	templates, err := load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(templates))
	for key := range templates {
		keys = append(keys, key)
	}
	return keys, nil
}
