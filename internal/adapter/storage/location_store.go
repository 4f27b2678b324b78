// internal/adapter/storage/location_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trendpress/internal/domain/location"
)

// LocationStore implements location.Store on PostgreSQL.
type LocationStore struct {
	db *pgxpool.Pool
}

// NewLocationStore creates a new location store.
func NewLocationStore(db *pgxpool.Pool) *LocationStore {
	return &LocationStore{db: db}
}

// Init creates the locations table if it does not exist.
func (s *LocationStore) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS locations (
			woeid BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			type_name TEXT,
			type_code INTEGER,
			parent_woeid BIGINT,
			country TEXT,
			country_code TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_locations_name ON locations (name);
	`

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating locations schema: %w", err)
	}

	return nil
}

// SaveAll upserts a batch of locations. Locations are immutable once
// observed, so a conflicting insert leaves the existing row untouched.
func (s *LocationStore) SaveAll(ctx context.Context, locations []location.Location) error {
	query := `
		INSERT INTO locations (woeid, name, type_name, type_code, parent_woeid, country, country_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (woeid) DO NOTHING
	`

	for _, loc := range locations {
		_, err := s.db.Exec(ctx, query,
			loc.WOEID, loc.Name, loc.TypeName, loc.TypeCode,
			loc.ParentWOEID, loc.Country, loc.CountryCode)
		if err != nil {
			return fmt.Errorf("error saving location %s: %w", loc.Name, err)
		}
	}

	return nil
}

// Get retrieves a location by WOEID.
func (s *LocationStore) Get(ctx context.Context, woeid int64) (*location.Location, error) {
	query := `
		SELECT woeid, name, type_name, type_code, parent_woeid, country, country_code
		FROM locations
		WHERE woeid = $1
	`

	return s.scanOne(s.db.QueryRow(ctx, query, woeid))
}

// GetByName retrieves a location by its display name.
func (s *LocationStore) GetByName(ctx context.Context, name string) (*location.Location, error) {
	query := `
		SELECT woeid, name, type_name, type_code, parent_woeid, country, country_code
		FROM locations
		WHERE name = $1
		LIMIT 1
	`

	return s.scanOne(s.db.QueryRow(ctx, query, name))
}

func (s *LocationStore) scanOne(row pgx.Row) (*location.Location, error) {
	var loc location.Location
	err := row.Scan(&loc.WOEID, &loc.Name, &loc.TypeName, &loc.TypeCode,
		&loc.ParentWOEID, &loc.Country, &loc.CountryCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, location.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying location: %w", err)
	}

	return &loc, nil
}
