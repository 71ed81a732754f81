// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Credentials
	APIKey            string `json:"api_key,omitempty"`             // Gemini API key
	SearchAPIKey      string `json:"search_api_key,omitempty"`      // Google Custom Search API key
	SearchEngineID    string `json:"search_engine_id,omitempty"`    // Google Custom Search engine ID
	AdminPasswordHash string `json:"admin_password_hash,omitempty"` // Bcrypt hash of the admin password
	DatabaseURL       string `json:"database_url,omitempty"`        // PostgreSQL connection URL

	// Site
	SiteURL string `json:"site_url,omitempty"` // Base URL used in generated schema markup
	Port    int    `json:"port,omitempty"`     // HTTP listen port

	// Validation thresholds
	PublishScoreCutoff int `json:"publish_score_cutoff,omitempty"` // Minimum audit score to mark publishable (0-100)
	FAQAnswerMaxChars  int `json:"faq_answer_max_chars,omitempty"` // Maximum FAQ answer length before trimming
	MaxHallucinations  int `json:"max_hallucinations,omitempty"`   // Hallucinated claims tolerated by the fact check

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty"` // Use headless browser for SPA competitor sites
	Verbose    bool `json:"verbose,omitempty"`     // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	if c.PublishScoreCutoff < 0 || c.PublishScoreCutoff > 100 {
		return fmt.Errorf("config error: 'publish_score_cutoff' must be between 0 and 100")
	}
	if c.FAQAnswerMaxChars < 0 {
		return fmt.Errorf("config error: 'faq_answer_max_chars' must be non-negative")
	}
	if c.MaxHallucinations < 0 {
		return fmt.Errorf("config error: 'max_hallucinations' must be non-negative")
	}

	if c.SiteURL != "" {
		u, err := url.Parse(c.SiteURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: 'site_url' must be an absolute URL: %s", c.SiteURL)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchEngineID == "" {
		result.SearchEngineID = defaults.SearchEngineID
	}
	if result.AdminPasswordHash == "" {
		result.AdminPasswordHash = defaults.AdminPasswordHash
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SiteURL == "" {
		result.SiteURL = defaults.SiteURL
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.PublishScoreCutoff == 0 {
		result.PublishScoreCutoff = defaults.PublishScoreCutoff
	}
	if result.FAQAnswerMaxChars == 0 {
		result.FAQAnswerMaxChars = defaults.FAQAnswerMaxChars
	}
	if result.MaxHallucinations == 0 {
		result.MaxHallucinations = defaults.MaxHallucinations
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
