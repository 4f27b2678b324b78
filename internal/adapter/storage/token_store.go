// internal/adapter/storage/token_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrTokenNotFound is returned when no token is recorded under the given id.
var ErrTokenNotFound = errors.New("api token not found")

// TokenStore is the durable fallback for upstream bearer tokens. The cache
// layer sits in front of it; this store survives cache evictions.
type TokenStore struct {
	db *pgxpool.Pool
}

// NewTokenStore creates a new token store.
func NewTokenStore(db *pgxpool.Pool) *TokenStore {
	return &TokenStore{db: db}
}

// Init creates the api_tokens table if it does not exist.
func (s *TokenStore) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS api_tokens (
			id TEXT PRIMARY KEY,
			bearer_token TEXT NOT NULL,
			last_modified TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating tokens schema: %w", err)
	}

	return nil
}

// Get returns the bearer token stored under id.
func (s *TokenStore) Get(ctx context.Context, id string) (string, error) {
	var token string
	err := s.db.QueryRow(ctx, `SELECT bearer_token FROM api_tokens WHERE id = $1`, id).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error querying token %s: %w", id, err)
	}

	return token, nil
}

// Set records the bearer token under id, replacing any previous value.
func (s *TokenStore) Set(ctx context.Context, id, token string) error {
	query := `
		INSERT INTO api_tokens (id, bearer_token, last_modified)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET bearer_token = $2, last_modified = $3
	`

	if _, err := s.db.Exec(ctx, query, id, token, time.Now()); err != nil {
		return fmt.Errorf("error storing token %s: %w", id, err)
	}

	return nil
}

// Delete removes the token stored under id.
func (s *TokenStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM api_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting token %s: %w", id, err)
	}
	return nil
}
