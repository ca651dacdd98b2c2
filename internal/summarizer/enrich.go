package summarizer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// maxPageBytes bounds how much of an article page is read for extraction.
const maxPageBytes = 2 << 20

// Enricher recovers article text when the provider returned no body.
type Enricher interface {
	Enrich(ctx context.Context, pageURL string) (string, error)
}

// ReadabilityEnricher downloads the article page and extracts its main text.
type ReadabilityEnricher struct {
	httpClient *http.Client
}

func NewReadabilityEnricher(timeout time.Duration) *ReadabilityEnricher {
	return &ReadabilityEnricher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e *ReadabilityEnricher) Enrich(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(raw)), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	return plainText(article.Content), nil
}
