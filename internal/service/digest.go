package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsdigest/internal/domain"
	"newsdigest/internal/summarizer"
)

type DigestService struct {
	fetcher    Fetcher
	summarizer Summarizer
	seen       SeenCache
	articles   ArticleStore
	digests    DigestStore
	txManager  TransactionManager
	publisher  Publisher
	limiter    Limiter
	logger     *slog.Logger
	location   *time.Location
	now        func() time.Time
}

// NewDigestService wires a digest run. publisher may be nil.
func NewDigestService(
	fetcher Fetcher,
	summarizer Summarizer,
	seen SeenCache,
	articles ArticleStore,
	digests DigestStore,
	txManager TransactionManager,
	publisher Publisher,
	limiter Limiter,
	logger *slog.Logger,
	location *time.Location,
) *DigestService {
	if location == nil {
		location = time.UTC
	}
	return &DigestService{
		fetcher:    fetcher,
		summarizer: summarizer,
		seen:       seen,
		articles:   articles,
		digests:    digests,
		txManager:  txManager,
		publisher:  publisher,
		limiter:    limiter,
		logger:     logger.With("component", "digest"),
		location:   location,
		now:        time.Now,
	}
}

// CreateDigest fetches every category, summarizes unseen articles, stores
// them and saves a digest for today linking all of today's articles.
func (s *DigestService) CreateDigest(ctx context.Context) (*domain.Digest, *domain.RunStats, error) {
	startTime := s.now()
	stats := &domain.RunStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)
	logger.Info("starting digest run")

	sentences := make(map[domain.Category][]string, len(domain.Categories))
	for _, category := range domain.Categories {
		catSentences, err := s.processCategory(ctx, logger, category, stats, true)
		if err != nil {
			return nil, stats, err
		}
		sentences[category] = catSentences
	}

	from, to := s.dayBounds(startTime)

	body := renderParagraphs(sentences)
	if body == "" {
		stats.Fallback = true
		stored, err := s.articles.ListPublishedBetween(ctx, from, to)
		if err != nil {
			return nil, stats, fmt.Errorf("list today's articles: %w", err)
		}
		logger.Info("no new sentences, using fallback", "stored_articles", len(stored))
		body = renderFallback(stored)
	}

	digest := &domain.Digest{
		Date:    from,
		Summary: renderSummary(body, s.now().In(s.location)),
	}

	var linked int64
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		id, err := s.digests.Create(txCtx, digest)
		if err != nil {
			return fmt.Errorf("create digest: %w", err)
		}
		digest.ID = id

		n, err := s.digests.AttachArticlesByDate(txCtx, digest.ID, from, to)
		if err != nil {
			return fmt.Errorf("attach articles: %w", err)
		}
		linked = n
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	saved, err := s.digests.Get(ctx, digest.ID)
	if err != nil {
		return nil, stats, fmt.Errorf("reload digest: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishDigest(ctx, saved); err != nil {
			logger.Error("publish digest failed", "digest_id", saved.ID, "error", err)
		}
	}

	stats.Duration = s.now().Sub(startTime)

	logger.Info("digest run completed",
		"digest_id", saved.ID,
		"date", saved.Date.Format(time.DateOnly),
		"fetched", stats.Fetched,
		"skipped_seen", stats.SkippedSeen,
		"skipped_no_url", stats.SkippedNoURL,
		"summarized", stats.Summarized,
		"degraded", stats.Degraded,
		"failed", stats.Failed,
		"created", stats.Created,
		"fetch_errors", stats.FetchErrors,
		"fallback", stats.Fallback,
		"linked", linked,
		"duration", stats.Duration,
	)

	return saved, stats, nil
}

// BuildSections runs the fetch, dedupe and summarize steps without storing
// articles or a digest. Seen markers are still written.
func (s *DigestService) BuildSections(ctx context.Context) ([]domain.Section, error) {
	stats := &domain.RunStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)
	logger.Info("building digest sections")

	sections := []domain.Section{}
	for _, category := range domain.Categories {
		sentences, err := s.processCategory(ctx, logger, category, stats, false)
		if err != nil {
			return nil, err
		}
		if len(sentences) == 0 {
			continue
		}
		sections = append(sections, domain.Section{
			Category:  category.Label(),
			Paragraph: joinSentences(sentences),
		})
	}

	logger.Info("digest sections built",
		"sections", len(sections),
		"summarized", stats.Summarized,
		"degraded", stats.Degraded,
		"failed", stats.Failed,
		"fetch_errors", stats.FetchErrors,
	)
	return sections, nil
}

// processCategory returns the rendered sentences of one category. A fetch
// error only empties the category; cache and store errors abort the run.
func (s *DigestService) processCategory(
	ctx context.Context,
	logger *slog.Logger,
	category domain.Category,
	stats *domain.RunStats,
	persist bool,
) ([]string, error) {
	logger = logger.With("category", category)

	raws, err := s.fetcher.Fetch(ctx, category)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", category, ctx.Err())
		}
		stats.FetchErrors++
		logger.Error("fetch failed", "error", err)
		return nil, nil
	}
	stats.Fetched += len(raws)
	logger.Debug("fetched articles", "count", len(raws))

	var sentences []string
	for _, raw := range raws {
		url := raw.CanonicalURL()
		if url == "" {
			stats.SkippedNoURL++
			continue
		}

		seen, err := s.seen.IsSeen(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("check seen: %w", err)
		}
		if seen {
			stats.SkippedSeen++
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for summarizer: %w", err)
		}

		result := s.summarizer.Summarize(ctx, raw)
		switch result.Status {
		case summarizer.StatusFailed:
			stats.Failed++
			if ctx.Err() != nil {
				return nil, fmt.Errorf("summarize: %w", ctx.Err())
			}
			logger.Warn("skipping article", "url", url, "error", result.Err)
			continue
		case summarizer.StatusDegraded:
			stats.Degraded++
		default:
			stats.Summarized++
		}

		if err := s.seen.MarkSeen(ctx, url); err != nil {
			return nil, fmt.Errorf("mark seen: %w", err)
		}

		if persist {
			article := &domain.Article{
				Title:       domain.TruncateTitle(raw.Title),
				URL:         url,
				Content:     raw.StoredContent(),
				PublishedAt: s.now(),
				Category:    category,
				Source:      domain.TruncateSource(raw.SourceName),
			}
			if _, err := s.articles.Create(ctx, article); err != nil {
				return nil, fmt.Errorf("create article: %w", err)
			}
			stats.Created++
		}

		text := result.Text
		if text == "" {
			text = raw.Title
		}
		sentences = append(sentences, anchor(url, text))
	}

	return sentences, nil
}

// dayBounds returns [midnight, next midnight) of t's day in the configured
// location.
func (s *DigestService) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.location)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return from, from.AddDate(0, 0, 1)
}
