package store

import (
	"context"
	"errors"
	"time"

	"github.com/hopekit/targeting/internal/wire"
)

// ErrNotFound is returned when a targeting does not exist.
var ErrNotFound = errors.New("targeting not found")

// Store defines the interface for targeting persistence operations.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// ListTargetings retrieves the targetings of a programme, or of every
	// programme when programmeID is empty, ordered by name.
	ListTargetings(ctx context.Context, programmeID string) ([]Targeting, error)

	// GetTargeting retrieves a single targeting by ID.
	// Returns ErrNotFound if it does not exist.
	GetTargeting(ctx context.Context, id string) (*Targeting, error)

	// UpsertTargeting creates or updates a targeting. An empty ID creates a
	// new targeting with a generated ID.
	UpsertTargeting(ctx context.Context, params UpsertParams) (*Targeting, error)

	// DeleteTargeting removes a targeting by ID and reports whether it existed.
	DeleteTargeting(ctx context.Context, id string) (bool, error)

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// Targeting is a saved targeting definition. Criteria are kept in their
// wire form so the stored document is exactly what the query engine reads.
type Targeting struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	ProgrammeID string              `json:"programmeId"`
	Description string              `json:"description"`
	Definition  wire.WireDefinition `json:"definition"`
	Fingerprint string              `json:"fingerprint"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// UpsertParams contains the parameters for upserting a targeting.
type UpsertParams struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"`
	ProgrammeID string              `json:"programmeId"`
	Description string              `json:"description"`
	Definition  wire.WireDefinition `json:"definition"`
}
