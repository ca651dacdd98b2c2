package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"newsdigest/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const articleColumns = "a.id, a.title, a.url, a.content, a.published_at, a.category, a.source"

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func (s *ArticleStore) Create(ctx context.Context, article *domain.Article) (int64, error) {
	query := `
		INSERT INTO articles (title, url, content, published_at, category, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		article.Title,
		article.URL,
		article.Content,
		article.PublishedAt,
		article.Category,
		article.Source,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	article.ID = id
	return id, nil
}

// ListPublishedBetween returns articles with from <= published_at < to,
// oldest first.
func (s *ArticleStore) ListPublishedBetween(ctx context.Context, from, to time.Time) ([]domain.Article, error) {
	query, args, err := psql.
		Select(articleColumns).
		From("articles a").
		Where(sq.GtOrEq{"a.published_at": from}).
		Where(sq.Lt{"a.published_at": to}).
		OrderBy("a.published_at ASC", "a.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	articles := []domain.Article{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &articles, query, args...); err != nil {
		return nil, err
	}
	return articles, nil
}

// List returns articles newest first.
func (s *ArticleStore) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	builder := psql.
		Select(articleColumns).
		From("articles a").
		OrderBy("a.published_at DESC", "a.id DESC")

	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"a.category": filter.Category})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	articles := []domain.Article{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &articles, query, args...); err != nil {
		return nil, err
	}
	return articles, nil
}

type digestArticleRow struct {
	DigestID int64 `db:"digest_id"`
	domain.Article
}

// ListByDigestIDs groups the articles linked to each digest, newest first.
func (s *ArticleStore) ListByDigestIDs(ctx context.Context, digestIDs []int64) (map[int64][]domain.Article, error) {
	result := make(map[int64][]domain.Article, len(digestIDs))
	if len(digestIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT da.digest_id, ` + articleColumns + `
		FROM digest_articles da
		INNER JOIN articles a ON a.id = da.article_id
		WHERE da.digest_id = ANY($1)
		ORDER BY a.published_at DESC, a.id DESC`

	var rows []digestArticleRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, pq.Array(digestIDs)); err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.DigestID] = append(result[row.DigestID], row.Article)
	}
	return result, nil
}
