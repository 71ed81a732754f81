// Package fetch - platform.go provides publishing platform detection and
// platform-specific content selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known publishing platform.
type Platform string

const (
	// PlatformMedium is Medium and Medium-hosted publications
	PlatformMedium Platform = "medium"
	// PlatformSubstack is Substack newsletters
	PlatformSubstack Platform = "substack"
	// PlatformWordPress is WordPress-hosted blogs
	PlatformWordPress Platform = "wordpress"
	// PlatformGhost is Ghost-hosted blogs
	PlatformGhost Platform = "ghost"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the publishing platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)

	if strings.Contains(host, "medium.com") {
		return PlatformMedium
	}
	if strings.Contains(host, "substack.com") {
		return PlatformSubstack
	}
	if strings.Contains(host, "wordpress.com") {
		return PlatformWordPress
	}
	if strings.Contains(host, "ghost.io") {
		return PlatformGhost
	}

	return PlatformUnknown
}

// PlatformSelectors returns content selectors tuned for a platform,
// falling back to the generic article selectors.
func PlatformSelectors(platform Platform) []string {
	switch platform {
	case PlatformMedium:
		return append([]string{"article section"}, ArticleSelectors()...)
	case PlatformSubstack:
		return append([]string{".available-content", ".body.markup"}, ArticleSelectors()...)
	case PlatformWordPress:
		return append([]string{".entry-content"}, ArticleSelectors()...)
	case PlatformGhost:
		return append([]string{".gh-content", ".post-full-content"}, ArticleSelectors()...)
	default:
		return ArticleSelectors()
	}
}

// PlatformNoiseSelectors returns extra noise selectors for a platform.
func PlatformNoiseSelectors(platform Platform) []string {
	switch platform {
	case PlatformMedium:
		return []string{".pw-subscribe-prompt", ".speechify-ignore"}
	case PlatformSubstack:
		return []string{".subscribe-widget", ".subscription-widget-wrap"}
	default:
		return nil
	}
}
