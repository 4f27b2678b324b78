// internal/adapter/storage/image_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ImageStore keeps copies of article images, content-addressed by hash. It
// backs the deployment variant that serves images from our own storage
// instead of hotlinking the origin.
type ImageStore struct {
	db *pgxpool.Pool
}

// NewImageStore creates a new image store.
func NewImageStore(db *pgxpool.Pool) *ImageStore {
	return &ImageStore{db: db}
}

// Init creates the content_images table if it does not exist.
func (s *ImageStore) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS content_images (
			hash TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating images schema: %w", err)
	}

	return nil
}

// Put stores image bytes under the given content hash and returns the hash
// as the stable reference. Re-putting the same hash is a no-op.
func (s *ImageStore) Put(ctx context.Context, data []byte, contentType, hash string) (string, error) {
	if len(data) == 0 || contentType == "" {
		return "", fmt.Errorf("empty image payload for hash %s", hash)
	}

	query := `
		INSERT INTO content_images (hash, content_type, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO NOTHING
	`

	if _, err := s.db.Exec(ctx, query, hash, contentType, data); err != nil {
		return "", fmt.Errorf("error storing image %s: %w", hash, err)
	}

	return hash, nil
}

// Get returns the stored bytes and content type for the given hash.
func (s *ImageStore) Get(ctx context.Context, hash string) ([]byte, string, error) {
	query := `SELECT data, content_type FROM content_images WHERE hash = $1`

	var data []byte
	var contentType string
	err := s.db.QueryRow(ctx, query, hash).Scan(&data, &contentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("image %s not found", hash)
	}
	if err != nil {
		return nil, "", fmt.Errorf("error querying image %s: %w", hash, err)
	}

	return data, contentType, nil
}
