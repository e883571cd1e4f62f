package orders

import (
	"context"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// Repository persists order records.
//
// Sync and workflow writes go through separate methods because they own
// disjoint column sets: SaveSynced never writes a workflow column and
// UpdateWorkflowField never writes a synchronized one. That split is what
// lets an operator edit and an in-flight poll touch the same record without
// a cross-field lock.
type Repository interface {
	// FindByID finds an order by its natural identity
	FindByID(ctx context.Context, marketplace feed.Marketplace, orderID string) (*Order, error)

	// KnownIDs returns which of the given order ids already exist for the
	// marketplace, for post-filtering new-only feeds without cursor support.
	KnownIDs(ctx context.Context, marketplace feed.Marketplace, orderIDs []string) (map[string]bool, error)

	// Create inserts a first-sighting record with default workflow fields
	Create(ctx context.Context, order *Order) error

	// SaveSynced overwrites the synchronized fields of an existing record,
	// leaving every workflow column untouched. Returns
	// shared.ErrConcurrencyConflict when the stored version moved since the
	// record was read; the caller must re-read and re-merge.
	SaveSynced(ctx context.Context, order *Order) error

	// UpdateWorkflowField writes exactly one workflow column,
	// last-write-wins at field granularity.
	UpdateWorkflowField(ctx context.Context, marketplace feed.Marketplace, orderID string, field WorkflowField, value interface{}) error

	// FindAll lists orders matching the filter with stable pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Count counts orders matching the filter, ignoring pagination
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Delete removes an order by operator action; sync never deletes
	Delete(ctx context.Context, marketplace feed.Marketplace, orderID string) error
}
