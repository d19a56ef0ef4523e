package driven

import (
	"context"
	"time"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// IdentifierFilter restricts an identifier query. Zero-value fields are
// open bounds: a nil FromDate means "from epoch", a nil UntilDate means
// "through now", an empty Collection spans all collections.
type IdentifierFilter struct {
	Collection string
	FromDate   *time.Time
	UntilDate  *time.Time
}

// SourceClient queries the source catalogue. Implementations exist for the
// restful and thrift transports; the core is agnostic to which one was
// selected at construction time.
type SourceClient interface {
	// Document fetches the full source record for one PID.
	// Returns domain.ErrNotFound if the PID is unknown to the source.
	Document(ctx context.Context, collection, pid string) (*domain.SourceDocument, error)

	// Identifiers streams the identifiers of documents whose last-modified
	// date falls inside the filter bounds. The sequence is finite and
	// restartable: each call issues a fresh query. Both channels are
	// closed when the sequence ends.
	Identifiers(ctx context.Context, filter IdentifierFilter) (<-chan domain.Identifier, <-chan error)

	// Close releases transport resources.
	Close() error
}
