package ratelimit

import "strings"

// unlimited marks endpoints exempt from limiting.
var unlimited = EndpointConfig{}

// MatchEndpoint resolves the endpoint configuration for a request.
// Exact path matches win over prefix matches; prefix entries must end
// with "/" (so "/blog/jobs/" covers "/blog/jobs/{id}"). Returns nil when
// no entry applies.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &unlimited
	}

	for i := range configs {
		if configs[i].Method == method && configs[i].Path == path {
			return &configs[i]
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}

	return nil
}
