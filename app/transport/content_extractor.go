package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ContentExtractor fills in article bodies for items whose feed entry
// carried no content, by fetching the linked page and running it through
// readability.
type ContentExtractor struct {
	fetcher *Fetcher
}

func NewContentExtractor(fetcher *Fetcher) *ContentExtractor {
	return &ContentExtractor{fetcher: fetcher}
}

func (e *ContentExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	data, err := e.fetcher.FetchRaw(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty page at %s", pageURL)
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = nil
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	slog.Debug("Content extracted",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(article.Content))

	return article.Content, nil
}
