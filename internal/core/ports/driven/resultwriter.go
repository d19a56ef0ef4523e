package driven

import "github.com/scieloorg/doaj-exporter/internal/core/domain"

// ResultWriter records per-PID results as they complete, plus the final
// run summary. The file adapter writes machine-parseable JSON lines.
type ResultWriter interface {
	// Write records one per-PID result.
	Write(result domain.Result) error

	// WriteSummary records the final run summary.
	WriteSummary(summary *domain.RunSummary) error

	// Close flushes and releases the underlying writer.
	Close() error
}
