// Package search provides SERP retrieval for the research stage via the
// Google Custom Search API.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/kolavi/blog-pipeline/internal/jobs"
)

// DefaultResultCount is how many results one search returns.
const DefaultResultCount = 10

// Provider abstracts the SERP source so tests can stub it.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]jobs.SerpResult, error)
}

// GoogleClient implements Provider using Google Custom Search.
type GoogleClient struct {
	svc      *customsearch.Service
	engineID string
}

// NewGoogleClient creates a Custom Search client. engineID is the
// programmable search engine ID the queries run against.
func NewGoogleClient(ctx context.Context, apiKey, engineID string) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search API key is required")
	}
	if engineID == "" {
		return nil, fmt.Errorf("search engine ID is required")
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	return &GoogleClient{svc: svc, engineID: engineID}, nil
}

// Search runs one query and returns the organic results in rank order.
func (c *GoogleClient) Search(ctx context.Context, query string, limit int) ([]jobs.SerpResult, error) {
	if limit <= 0 || limit > DefaultResultCount {
		limit = DefaultResultCount
	}

	resp, err := c.svc.Cse.List().
		Q(query).
		Cx(c.engineID).
		Num(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search failed for %q: %w", query, err)
	}

	return mapResults(resp.Items), nil
}

func mapResults(items []*customsearch.Result) []jobs.SerpResult {
	results := make([]jobs.SerpResult, 0, len(items))
	for i, item := range items {
		if item == nil || item.Link == "" {
			continue
		}
		results = append(results, jobs.SerpResult{
			URL:       item.Link,
			Title:     item.Title,
			Position:  i + 1,
			Snippet:   item.Snippet,
			IsArticle: IsArticleURL(item.Link),
		})
	}
	return results
}

// Hosts whose results are never long-form articles worth fetching.
var nonArticleHosts = []string{
	"youtube.com",
	"reddit.com",
	"amazon.com",
	"pinterest.com",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
	"twitter.com",
	"x.com",
	"quora.com",
}

var nonArticlePathParts = []string{
	"/product/",
	"/products/",
	"/category/",
	"/tag/",
	"/shop/",
	"/pricing",
}

// IsArticleURL applies a heuristic for whether a SERP result points at a
// long-form article rather than a homepage, product page, or video.
func IsArticleURL(urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	for _, h := range nonArticleHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return false
		}
	}

	path := strings.ToLower(parsed.Path)
	if path == "" || path == "/" {
		return false
	}
	for _, part := range nonArticlePathParts {
		if strings.Contains(path+"/", part) {
			return false
		}
	}
	return true
}
