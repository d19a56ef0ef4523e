package driven

import (
	"context"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// MappingStore persists the PID to destination-identifier mapping. It is
// the only mutable state in the system; the dispatcher writes to it only
// after a successful destination operation.
type MappingStore interface {
	// Get retrieves the mapping for a PID.
	// Returns domain.ErrNotFound if the PID has never been synced.
	Get(ctx context.Context, pid string) (*domain.Mapping, error)

	// Save stores or updates a mapping.
	Save(ctx context.Context, mapping domain.Mapping) error

	// Delete removes the mapping for a PID. Deleting an absent PID is not
	// an error.
	Delete(ctx context.Context, pid string) error

	// List returns all mappings, ordered by PID.
	List(ctx context.Context) ([]domain.Mapping, error)
}
