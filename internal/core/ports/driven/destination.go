package driven

import (
	"context"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// BulkResult is the per-item outcome of a bulk operation, in request order.
type BulkResult struct {
	// Index is the position of the item in the submitted batch.
	Index int

	// DestinationID is set on success for create operations.
	DestinationID string

	// Err is set when the destination rejected this item.
	Err error
}

// Destination performs CRUD operations against the destination index.
// Implementations classify transport failures into domain.ErrTransient,
// domain.ErrRejected and domain.ErrNotFound so the dispatcher can apply
// its retry policy without knowing the wire protocol.
type Destination interface {
	// Create publishes a new record and returns the destination identifier.
	Create(ctx context.Context, article *domain.Article) (string, error)

	// Update replaces the record stored under id.
	Update(ctx context.Context, id string, article *domain.Article) error

	// Delete removes the record stored under id.
	Delete(ctx context.Context, id string) error

	// Get fetches the record stored under id.
	// Returns domain.ErrNotFound if the destination has no such record.
	Get(ctx context.Context, id string) (*domain.Article, error)

	// CreateBulk publishes a batch of records in one request. A nil error
	// with per-item errors in the results means the batch was accepted but
	// individual items were rejected.
	CreateBulk(ctx context.Context, articles []*domain.Article) ([]BulkResult, error)

	// DeleteBulk removes a batch of records in one request.
	DeleteBulk(ctx context.Context, ids []string) ([]BulkResult, error)
}
