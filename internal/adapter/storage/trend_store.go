// internal/adapter/storage/trend_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trendpress/internal/domain/trend"
)

// appendRetries bounds how often a content append is retried after losing a
// serialization race before the task is surfaced as failed.
const appendRetries = 3

// TrendStore implements trend.Store on PostgreSQL.
type TrendStore struct {
	db *pgxpool.Pool
}

// NewTrendStore creates a new trend store.
func NewTrendStore(db *pgxpool.Pool) *TrendStore {
	return &TrendStore{db: db}
}

// Init creates the trends table if it does not exist.
func (s *TrendStore) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS trends (
			name TEXT NOT NULL,
			location_woeid BIGINT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL,
			rating DOUBLE PRECISION NOT NULL,
			content JSONB,
			has_content BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (name, location_woeid, observed_at)
		);

		CREATE INDEX IF NOT EXISTS idx_trends_location_content
			ON trends (location_woeid, has_content, rating DESC, observed_at DESC);
	`

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating trends schema: %w", err)
	}

	return nil
}

// SaveAll upserts a batch of trends.
func (s *TrendStore) SaveAll(ctx context.Context, trends []trend.Trend) error {
	query := `
		INSERT INTO trends (name, location_woeid, observed_at, rating, content, has_content)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name, location_woeid, observed_at) DO UPDATE
		SET rating = $4
	`

	for _, t := range trends {
		contentJSON, err := marshalContent(t.Content)
		if err != nil {
			return err
		}

		_, err = s.db.Exec(ctx, query,
			t.Name, t.LocationWOEID, t.ObservedAt, t.Rating, contentJSON, len(t.Content) > 0)
		if err != nil {
			return fmt.Errorf("error saving trend %s: %w", t.Name, err)
		}
	}

	return nil
}

// Get retrieves a trend by its composite key.
func (s *TrendStore) Get(ctx context.Context, key trend.Key) (*trend.Trend, error) {
	query := `
		SELECT name, location_woeid, observed_at, rating, content, has_content
		FROM trends
		WHERE name = $1 AND location_woeid = $2 AND observed_at = $3
	`

	t, err := scanTrend(s.db.QueryRow(ctx, query, key.Name, key.LocationWOEID, key.ObservedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trend.ErrNotFound
		}
		return nil, fmt.Errorf("error querying trend: %w", err)
	}

	return t, nil
}

// AppendContent attaches content to the trend with the given key and rescales
// its rating. The row is locked for the duration of the read-modify-write so
// concurrent appends for the same key serialize; items whose link is already
// attached are dropped, which makes redelivery of the same task a no-op.
func (s *TrendStore) AppendContent(ctx context.Context, key trend.Key, content []trend.ContentItem) error {
	if len(content) == 0 {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		lastErr = s.appendContentOnce(ctx, key, content)
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", trend.ErrConflict, lastErr)
}

func (s *TrendStore) appendContentOnce(ctx context.Context, key trend.Key, content []trend.ContentItem) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT name, location_woeid, observed_at, rating, content, has_content
		FROM trends
		WHERE name = $1 AND location_woeid = $2 AND observed_at = $3
		FOR UPDATE
	`

	t, err := scanTrend(tx.QueryRow(ctx, query, key.Name, key.LocationWOEID, key.ObservedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trend.ErrNotFound
		}
		return fmt.Errorf("error locking trend row: %w", err)
	}

	merged, fresh := trend.MergeContent(t.Content, content)

	// Everything already attached: redelivered task, nothing to do.
	if fresh == 0 {
		return tx.Commit(ctx)
	}

	t.Content = merged
	t.Rating = trend.ScaleRating(t.Rating + float64(fresh))

	contentJSON, err := marshalContent(t.Content)
	if err != nil {
		return err
	}

	update := `
		UPDATE trends
		SET rating = $4, content = $5, has_content = TRUE
		WHERE name = $1 AND location_woeid = $2 AND observed_at = $3
	`

	if _, err := tx.Exec(ctx, update,
		key.Name, key.LocationWOEID, key.ObservedAt, t.Rating, contentJSON); err != nil {
		return fmt.Errorf("error updating trend content: %w", err)
	}

	return tx.Commit(ctx)
}

// PreviousRating returns the most recent rating recorded for the trend name
// at the location.
func (s *TrendStore) PreviousRating(ctx context.Context, name string, locationWOEID int64) (float64, error) {
	query := `
		SELECT rating
		FROM trends
		WHERE name = $1 AND location_woeid = $2
		ORDER BY observed_at DESC
		LIMIT 1
	`

	var rating float64
	err := s.db.QueryRow(ctx, query, name, locationWOEID).Scan(&rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, trend.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("error querying previous rating: %w", err)
	}

	return rating, nil
}

// TopWithContent returns the most recent count trends with content for the
// location, ordered by rating descending then observation time descending.
func (s *TrendStore) TopWithContent(ctx context.Context, locationWOEID int64, count int) ([]trend.Trend, error) {
	if count <= 0 {
		return nil, nil
	}

	query := `
		SELECT name, location_woeid, observed_at, rating, content, has_content
		FROM trends
		WHERE location_woeid = $1 AND has_content = TRUE
		ORDER BY rating DESC, observed_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, locationWOEID, count)
	if err != nil {
		return nil, fmt.Errorf("error querying trends: %w", err)
	}
	defer rows.Close()

	var trends []trend.Trend
	for rows.Next() {
		t, err := scanTrend(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning trend: %w", err)
		}
		trends = append(trends, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trends: %w", err)
	}

	return trends, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrend(row rowScanner) (*trend.Trend, error) {
	var t trend.Trend
	var contentJSON []byte

	if err := row.Scan(&t.Name, &t.LocationWOEID, &t.ObservedAt,
		&t.Rating, &contentJSON, &t.HasContent); err != nil {
		return nil, err
	}

	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &t.Content); err != nil {
			return nil, fmt.Errorf("error unmarshaling content: %w", err)
		}
	}

	return &t, nil
}

func marshalContent(content []trend.ContentItem) ([]byte, error) {
	if len(content) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("error marshaling content: %w", err)
	}

	return raw, nil
}

// retryable reports whether the error is a serialization or deadlock failure
// worth retrying with a fresh read.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
