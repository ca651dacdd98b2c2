package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"newsdigest/internal/domain"
)

const dateLayout = "2006-01-02"

type DigestStore struct {
	db       *sqlx.DB
	articles *ArticleStore
}

func NewDigestStore(db *sqlx.DB, articles *ArticleStore) *DigestStore {
	return &DigestStore{db: db, articles: articles}
}

// Create inserts the digest row. Date is stored as a calendar date in the
// location it carries.
func (s *DigestStore) Create(ctx context.Context, digest *domain.Digest) (int64, error) {
	query := `
		INSERT INTO digests (date, summary)
		VALUES ($1::date, $2)
		RETURNING id, created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		digest.Date.Format(dateLayout),
		digest.Summary,
	).Scan(&digest.ID, &digest.CreatedAt)
	if err != nil {
		return 0, err
	}

	return digest.ID, nil
}

// AttachArticlesByDate links every article with from <= published_at < to
// to the digest, replacing any previous association. It returns the number
// of linked articles.
func (s *DigestStore) AttachArticlesByDate(ctx context.Context, digestID int64, from, to time.Time) (int64, error) {
	exec := GetExecutor(ctx, s.db)

	if _, err := exec.ExecContext(ctx, "DELETE FROM digest_articles WHERE digest_id = $1", digestID); err != nil {
		return 0, fmt.Errorf("clear digest articles: %w", err)
	}

	query := `
		INSERT INTO digest_articles (digest_id, article_id)
		SELECT $1, id FROM articles
		WHERE published_at >= $2 AND published_at < $3
		ON CONFLICT DO NOTHING`

	res, err := exec.ExecContext(ctx, query, digestID, from, to)
	if err != nil {
		return 0, fmt.Errorf("link digest articles: %w", err)
	}

	return res.RowsAffected()
}

// Get returns the digest with its articles, or domain.ErrNotFound.
func (s *DigestStore) Get(ctx context.Context, id int64) (*domain.Digest, error) {
	var digest domain.Digest
	query := `SELECT id, date, summary, created_at FROM digests WHERE id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &digest, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	byDigest, err := s.articles.ListByDigestIDs(ctx, []int64{id})
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}
	digest.Articles = nonNil(byDigest[id])

	return &digest, nil
}

// List returns digests newest first with their articles. A zero limit
// returns every digest.
func (s *DigestStore) List(ctx context.Context, limit, offset uint64) ([]domain.Digest, error) {
	builder := psql.
		Select("id", "date", "summary", "created_at").
		From("digests").
		OrderBy("date DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	if offset > 0 {
		builder = builder.Offset(offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	digests := []domain.Digest{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &digests, query, args...); err != nil {
		return nil, err
	}
	if len(digests) == 0 {
		return digests, nil
	}

	ids := make([]int64, len(digests))
	for i, d := range digests {
		ids[i] = d.ID
	}

	byDigest, err := s.articles.ListByDigestIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}
	for i := range digests {
		digests[i].Articles = nonNil(byDigest[digests[i].ID])
	}

	return digests, nil
}

func nonNil(articles []domain.Article) []domain.Article {
	if articles == nil {
		return []domain.Article{}
	}
	return articles
}
