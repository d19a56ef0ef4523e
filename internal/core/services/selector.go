package services

import (
	"context"
	"fmt"
	"time"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driving"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// Selector produces the ordered sequence of candidate identifiers for one
// run. Selection strategies are resolved in precedence order: an explicit
// --pid wins over a --pids file, which wins over a date range; update and
// delete fall back to every previously synced document when no filter is
// given.
type Selector struct {
	source   driven.SourceClient
	mappings driven.MappingStore
}

// NewSelector creates a selector over the given source and mapping store.
func NewSelector(source driven.SourceClient, mappings driven.MappingStore) *Selector {
	return &Selector{source: source, mappings: mappings}
}

// Select resolves the candidate sequence for the given verb and options.
// Both returned channels are closed when the sequence ends; a value on the
// error channel terminates the sequence.
func (s *Selector) Select(
	ctx context.Context,
	verb domain.Verb,
	opts driving.RunOptions,
) (<-chan domain.Identifier, <-chan error) {
	switch {
	case opts.PID != "":
		if opts.PIDs != nil {
			logger.Warn("both --pid and --pids given; using --pid %s and ignoring the file", opts.PID)
		}
		// An explicit --pid is checked against the source up front; a
		// typo aborts the run instead of producing a failure report.
		if err := s.Validate(ctx, opts.Collection, opts.PID); err != nil {
			return failSelection(fmt.Errorf("validating %s: %w", opts.PID, err))
		}
		return s.byPIDs(ctx, opts.Collection, []string{opts.PID})

	case len(opts.PIDs) > 0:
		return s.byPIDs(ctx, opts.Collection, opts.PIDs)

	case opts.FromDate != nil || opts.UntilDate != nil:
		return s.byDateRange(ctx, opts.FromDate, opts.UntilDate, opts.Collection)

	case verb == domain.VerbUpdate || verb == domain.VerbDelete:
		return s.allManaged(ctx)

	default:
		return failSelection(fmt.Errorf("%w: %s requires at least one of --from-date, --until-date, --pid or --pids", domain.ErrConfig, verb))
	}
}

// failSelection returns an already-terminated sequence carrying one error.
func failSelection(err error) (<-chan domain.Identifier, <-chan error) {
	ids := make(chan domain.Identifier)
	errs := make(chan error, 1)
	close(ids)
	errs <- err
	close(errs)
	return ids, errs
}

// byPIDs emits each PID once, preserving the first occurrence of
// duplicates. Unknown PIDs from a file surface as per-item failures
// downstream rather than aborting the sequence.
func (s *Selector) byPIDs(ctx context.Context, collection string, pids []string) (<-chan domain.Identifier, <-chan error) {
	ids := make(chan domain.Identifier)
	errs := make(chan error, 1)

	go func() {
		defer close(ids)
		defer close(errs)

		seen := make(map[string]struct{}, len(pids))
		for _, pid := range pids {
			if _, dup := seen[pid]; dup {
				continue
			}
			seen[pid] = struct{}{}

			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case ids <- domain.Identifier{PID: pid, Collection: collection}:
			}
		}
	}()

	return ids, errs
}

// byDateRange re-queries the source each call; there is no client-side
// caching, so the sequence is restartable. Future bounds are clamped to
// now.
func (s *Selector) byDateRange(ctx context.Context, from, until *time.Time, collection string) (<-chan domain.Identifier, <-chan error) {
	return s.source.Identifiers(ctx, driven.IdentifierFilter{
		Collection: collection,
		FromDate:   clampToNow(from),
		UntilDate:  clampToNow(until),
	})
}

// allManaged enumerates every document with a recorded destination
// mapping; each such document passed the allow-list when it was created.
func (s *Selector) allManaged(ctx context.Context) (<-chan domain.Identifier, <-chan error) {
	ids := make(chan domain.Identifier)
	errs := make(chan error, 1)

	go func() {
		defer close(ids)
		defer close(errs)

		mappings, err := s.mappings.List(ctx)
		if err != nil {
			errs <- fmt.Errorf("listing mappings: %w", err)
			return
		}

		for _, m := range mappings {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case ids <- domain.Identifier{PID: m.PID, Collection: m.Collection}:
			}
		}
	}()

	return ids, errs
}

// Validate checks that a single PID is known to the source. Returns
// domain.ErrNotFound for unknown PIDs.
func (s *Selector) Validate(ctx context.Context, collection, pid string) error {
	if _, err := s.source.Document(ctx, collection, pid); err != nil {
		return err
	}
	return nil
}

// clampToNow caps a future bound at the current time.
func clampToNow(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	now := time.Now()
	if t.After(now) {
		return &now
	}
	return t
}
