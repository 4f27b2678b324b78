package location

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no location matches the lookup.
var ErrNotFound = errors.New("location not found")

// Location models a geographic place that the upstream API reports trends
// for. Locations are immutable once observed; re-observation is a no-op.
type Location struct {
	WOEID       int64  `json:"woeid"`
	Name        string `json:"name"`
	TypeName    string `json:"type_name"`
	TypeCode    int    `json:"type_code"`
	ParentWOEID int64  `json:"parent_woeid"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Store defines persistence for locations.
type Store interface {
	// SaveAll upserts a batch of locations. Existing rows are left untouched.
	SaveAll(ctx context.Context, locations []Location) error

	// Get retrieves a location by WOEID.
	Get(ctx context.Context, woeid int64) (*Location, error)

	// GetByName retrieves a location by its display name.
	GetByName(ctx context.Context, name string) (*Location, error)
}
