package pipeline

import (
	"context"
	"strings"

	"github.com/kolavi/blog-pipeline/internal/fetch"
	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

// minArticleChars is the threshold below which extracted text is treated
// as a failed extraction (consent walls, JS shells, bot pages).
const minArticleChars = 200

// ArticleFetcher fetches competitor articles over HTTP and extracts the
// main text with platform-aware selectors. When the static fetch yields a
// JS shell and a browser is enabled, it falls back to headless rendering.
type ArticleFetcher struct {
	Options    *fetch.Options
	UseBrowser bool
}

var _ Fetcher = (*ArticleFetcher)(nil)

// NewArticleFetcher returns a fetcher with default HTTP options.
func NewArticleFetcher() *ArticleFetcher {
	return &ArticleFetcher{Options: fetch.DefaultOptions()}
}

// Fetch retrieves url and returns the extracted article.
func (f *ArticleFetcher) Fetch(ctx context.Context, url string) (*jobs.CompetitorArticle, error) {
	result, err := fetch.URL(ctx, url, f.Options)
	if err != nil {
		return nil, err
	}

	platform := fetch.DetectPlatform(url)
	text, err := fetch.ExtractMainText(result.HTML, fetch.PlatformSelectors(platform), fetch.PlatformNoiseSelectors(platform)...)
	if err != nil {
		return nil, err
	}

	if f.UseBrowser && fetch.ShouldUseBrowser(text) {
		rendered, browserErr := fetch.WithBrowser(ctx, url, f.Options.Timeout)
		if browserErr == nil {
			if renderedText, extractErr := fetch.ExtractMainText(rendered, fetch.PlatformSelectors(platform), fetch.PlatformNoiseSelectors(platform)...); extractErr == nil && len(renderedText) > len(text) {
				text = renderedText
				result.HTML = rendered
			}
		}
	}

	text = strings.TrimSpace(text)
	if len(text) < minArticleChars {
		return nil, &fetch.Error{URL: url, Message: "extracted content too short"}
	}

	return &jobs.CompetitorArticle{
		URL:          url,
		Title:        fetch.ExtractTitle(result.HTML),
		Content:      text,
		WordCount:    seo.CountWords(text),
		FetchSuccess: true,
	}, nil
}
