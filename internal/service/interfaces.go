package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"newsdigest/internal/domain"
	"newsdigest/internal/summarizer"
)

type Fetcher interface {
	Fetch(ctx context.Context, category domain.Category) ([]domain.RawArticle, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, article domain.RawArticle) summarizer.Result
}

type SeenCache interface {
	IsSeen(ctx context.Context, url string) (bool, error)
	MarkSeen(ctx context.Context, url string) error
}

type ArticleStore interface {
	Create(ctx context.Context, article *domain.Article) (int64, error)
	ListPublishedBetween(ctx context.Context, from, to time.Time) ([]domain.Article, error)
}

type DigestStore interface {
	Create(ctx context.Context, digest *domain.Digest) (int64, error)
	AttachArticlesByDate(ctx context.Context, digestID int64, from, to time.Time) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Digest, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishDigest(ctx context.Context, digest *domain.Digest) error
}

type Limiter interface {
	Wait(ctx context.Context) error
}
