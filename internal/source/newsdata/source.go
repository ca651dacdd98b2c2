package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"newsdigest/internal/domain"
)

const (
	SourceID   = "newsdata"
	SourceName = "newsdata.io"
)

// categoryMap translates internal categories to the provider taxonomy.
var categoryMap = map[domain.Category]string{
	domain.CategoryInternational: "top",
	domain.CategoryIndian:        "top",
	domain.CategorySports:        "sports",
	domain.CategoryTech:          "technology",
}

// countryFilter restricts a category to one country.
var countryFilter = map[domain.Category]string{
	domain.CategoryIndian: "in",
}

// Config holds newsdata source configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Language       string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches latest articles per category from newsdata.io.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	language       string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new newsdata source.
func New(cfg Config, logger *slog.Logger) *Source {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		language:       cfg.Language,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// Fetch returns the latest articles for category in provider order.
func (s *Source) Fetch(ctx context.Context, category domain.Category) ([]domain.RawArticle, error) {
	reqURL, err := s.buildURL(category)
	if err != nil {
		return nil, err
	}

	var resp *APIResponse
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, reqURL)
		if err == nil {
			break
		}

		if attempt == s.maxAttempts {
			if s.maxAttempts > 1 {
				err = fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
			}
			return nil, fmt.Errorf("fetch %s: %w", category, err)
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"category", category,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	s.logger.Debug("fetched category",
		"category", category,
		"articles", len(resp.Results),
	)

	return transform(resp.Results), nil
}

func (s *Source) buildURL(category domain.Category) (string, error) {
	mapped, ok := categoryMap[category]
	if !ok {
		mapped = string(category)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("apikey", s.apiKey)
	q.Set("category", mapped)
	q.Set("language", s.language)
	if country, ok := countryFilter[category]; ok {
		q.Set("country", country)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (s *Source) doRequest(ctx context.Context, reqURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Results.Message != "" {
			return nil, fmt.Errorf("unexpected status: %d: %s", resp.StatusCode, apiErr.Results.Message)
		}
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func transform(results []Result) []domain.RawArticle {
	articles := make([]domain.RawArticle, 0, len(results))

	for _, r := range results {
		sourceName := r.SourceName
		if r.Source != nil && r.Source.Name != "" {
			sourceName = r.Source.Name
		}
		if sourceName == "" {
			sourceName = r.SourceID
		}

		articles = append(articles, domain.RawArticle{
			Title:       r.Title,
			Description: r.Description,
			Content:     r.Content,
			FullContent: r.FullContent,
			Link:        r.Link,
			URL:         r.URL,
			SourceName:  sourceName,
		})
	}

	return articles
}
