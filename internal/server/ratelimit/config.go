package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig sets the limit for one route. A Path ending in "/" is
// treated as a prefix by the matcher; Burst defaults to Limit when zero.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// LoadConfig builds the limiter configuration from RATE_LIMIT_* environment
// variables, with the endpoint tiers from DefaultEndpointConfigs.
func LoadConfig() *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPSet(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPSet(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs tiers the routes by cost: LLM-heavy stages get the
// tightest budgets, external fetch and search sit in the middle, and the
// deterministic validators are nearly free.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/blog/generate", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/blog/draft", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/blog/brief", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/blog/humanize", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},

		{Path: "/blog/research", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},
		{Path: "/blog/research/fetch", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},

		{Path: "/blog/validate", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/auth/login", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},

		// Reads fall through to the default limit; the health check is
		// unlimited via a special case in the matcher.
	}
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseIPSet splits a comma-separated address list into a lookup set.
func parseIPSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
