// Package driving defines the inbound ports of the exporter core. The CLI
// drives the core exclusively through these contracts.
package driving

import (
	"context"
	"time"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// RunOptions selects which documents one invocation operates on. Exactly
// one selection strategy applies, resolved in precedence order: PID, then
// PIDs, then date range, then (for update and delete) all managed
// documents.
type RunOptions struct {
	Collection string
	PID        string

	// PIDs is the de-duplicated list read from a --pids file.
	PIDs []string

	FromDate  *time.Time
	UntilDate *time.Time

	// Bulk batches create and delete dispatches.
	Bulk bool
}

// Exporter runs one verb over the selected documents and reports the
// aggregated outcome. Per-item failures are captured in the summary; an
// error return means the run itself could not proceed.
type Exporter interface {
	Run(ctx context.Context, verb domain.Verb, opts RunOptions) (*domain.RunSummary, error)
}
