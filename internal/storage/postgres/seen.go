package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SeenStore implements seen.Store on the seen_urls table.
type SeenStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSeenStore(db *sqlx.DB) *SeenStore {
	return &SeenStore{db: db, now: time.Now}
}

func (s *SeenStore) Get(ctx context.Context, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM seen_urls WHERE key = $1 AND expires_at > $2)`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists, query, key, s.now())
	return exists, err
}

func (s *SeenStore) SetWithTTL(ctx context.Context, key string, ttl time.Duration) error {
	query := `
		INSERT INTO seen_urls (key, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET expires_at = EXCLUDED.expires_at`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, key, s.now().Add(ttl))
	return err
}

// DeleteExpired removes markers that can no longer be read as seen.
func (s *SeenStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM seen_urls WHERE expires_at <= $1", s.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
