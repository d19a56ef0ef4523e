package driven

import "github.com/scieloorg/doaj-exporter/internal/core/domain"

// SchemaMapper converts a source record into the destination schema.
// Implementations must be pure: no network I/O, no mutation of the input,
// identical input always yields identical output.
type SchemaMapper interface {
	// Map derives the destination record. Fails with domain.ErrMapping
	// when a required destination field has no derivable source value.
	Map(doc *domain.SourceDocument) (*domain.Article, error)

	// ContentHash computes a stable hash over the payload, excluding
	// mapping-time timestamps and the destination identifier.
	ContentHash(article *domain.Article) (string, error)
}
