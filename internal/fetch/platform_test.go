package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://medium.com/@author/some-post-abc123", PlatformMedium},
		{"https://engineering.medium.com/post", PlatformMedium},
		{"https://newsletter.substack.com/p/post", PlatformSubstack},
		{"https://someblog.wordpress.com/2026/01/post", PlatformWordPress},
		{"https://blog.ghost.io/post", PlatformGhost},
		{"https://example.com/blog/post", PlatformUnknown},
		{"not a url at all ://", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}

func TestPlatformSelectors(t *testing.T) {
	t.Run("medium adds platform selector first", func(t *testing.T) {
		selectors := PlatformSelectors(PlatformMedium)
		assert.Equal(t, "article section", selectors[0])
		assert.Contains(t, selectors, "article")
	})

	t.Run("unknown falls back to generic", func(t *testing.T) {
		assert.Equal(t, ArticleSelectors(), PlatformSelectors(PlatformUnknown))
	})
}

func TestPlatformNoiseSelectors(t *testing.T) {
	assert.NotEmpty(t, PlatformNoiseSelectors(PlatformSubstack))
	assert.Nil(t, PlatformNoiseSelectors(PlatformUnknown))
}
