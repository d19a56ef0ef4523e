package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driving"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// Ensure ExportOrchestrator implements the interface.
var _ driving.Exporter = (*ExportOrchestrator)(nil)

// progressInterval is how many processed documents separate two progress
// lines on long runs.
const progressInterval = 100

// ExportOrchestrator composes selection, mapping, decision and dispatch
// into one pipeline per verb. Per-item failures are folded into the run
// summary; a returned error means the run could not proceed at all.
type ExportOrchestrator struct {
	selector   *Selector
	engine     *DecisionEngine
	dispatcher *Dispatcher
	source     driven.SourceClient
	results    driven.ResultWriter
	maxWorkers int
}

// NewExportOrchestrator creates an orchestrator.
func NewExportOrchestrator(
	selector *Selector,
	engine *DecisionEngine,
	dispatcher *Dispatcher,
	source driven.SourceClient,
	results driven.ResultWriter,
	settings domain.Settings,
) *ExportOrchestrator {
	workers := settings.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &ExportOrchestrator{
		selector:   selector,
		engine:     engine,
		dispatcher: dispatcher,
		source:     source,
		results:    results,
		maxWorkers: workers,
	}
}

// Run executes one verb over the selected documents.
func (o *ExportOrchestrator) Run(
	ctx context.Context,
	verb domain.Verb,
	opts driving.RunOptions,
) (*domain.RunSummary, error) {
	summary := domain.NewRunSummary(uuid.NewString())

	ids, errs := o.selector.Select(ctx, verb, opts)

	logger.Info("starting %s run %s", verb, summary.RunID)

	var runErr error
	if opts.Bulk {
		runErr = o.runBulk(ctx, verb, ids, errs, summary)
	} else {
		runErr = o.runParallel(ctx, verb, ids, errs, summary)
	}
	if runErr != nil {
		return summary, runErr
	}

	if err := o.results.WriteSummary(summary); err != nil {
		return summary, fmt.Errorf("writing summary: %w", err)
	}

	succeeded, failed, skipped := summary.Counts()
	logger.Info("run %s complete: %d succeeded, %d failed, %d skipped",
		summary.RunID, succeeded, failed, skipped)
	return summary, nil
}

// runParallel dispatches per item with bounded parallelism. Workers pull
// identifiers straight off the selector stream; no two workers ever hold
// the same PID because each identifier is consumed exactly once.
func (o *ExportOrchestrator) runParallel(
	ctx context.Context,
	verb domain.Verb,
	ids <-chan domain.Identifier,
	errs <-chan error,
	summary *domain.RunSummary,
) error {
	var wg sync.WaitGroup
	for i := 0; i < o.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				// Cancellation is honoured between PIDs; the
				// in-flight operation runs to its own timeout.
				if ctx.Err() != nil {
					return
				}
				res := o.processOne(ctx, verb, id)
				o.record(res, summary)
			}
		}()
	}

	var selErr error
	for err := range errs {
		if err != nil && selErr == nil {
			selErr = err
		}
	}
	wg.Wait()

	if selErr != nil {
		return fmt.Errorf("selecting documents: %w", selErr)
	}
	return ctx.Err()
}

// runBulk decides every candidate first, then dispatches the decided
// actions in batches. Bulk mode is mutually exclusive with per-item
// parallel dispatch.
func (o *ExportOrchestrator) runBulk(
	ctx context.Context,
	verb domain.Verb,
	ids <-chan domain.Identifier,
	errs <-chan error,
	summary *domain.RunSummary,
) error {
	var actions []domain.SyncAction
	var selErr error

	for ids != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil && selErr == nil {
				selErr = err
			}

		case id, ok := <-ids:
			if !ok {
				ids = nil
				continue
			}
			action, res := o.decideOne(ctx, verb, id)
			if res != nil {
				// Fetch or decision failure, recorded directly.
				o.record(*res, summary)
				continue
			}
			actions = append(actions, action)
		}
	}

	if selErr != nil {
		return fmt.Errorf("selecting documents: %w", selErr)
	}

	for _, res := range o.dispatcher.DispatchBulk(ctx, actions) {
		o.record(res, summary)
	}
	return ctx.Err()
}

// processOne runs the full select-map-decide-dispatch pipeline for one
// identifier.
func (o *ExportOrchestrator) processOne(ctx context.Context, verb domain.Verb, id domain.Identifier) domain.Result {
	action, res := o.decideOne(ctx, verb, id)
	if res != nil {
		return *res
	}
	return o.dispatcher.Dispatch(ctx, action)
}

// decideOne fetches the source record and decides the action for it. A
// non-nil Result short-circuits dispatch: the item already failed.
func (o *ExportOrchestrator) decideOne(
	ctx context.Context,
	verb domain.Verb,
	id domain.Identifier,
) (domain.SyncAction, *domain.Result) {
	logger.Debug("processing %s (%s)", id.PID, id.Collection)

	doc, err := o.source.Document(ctx, id.Collection, id.PID)
	if err != nil {
		return domain.SyncAction{}, failedResult(id.PID, fmt.Errorf("fetching document: %w", err))
	}

	action, err := o.engine.Decide(ctx, verb, doc)
	if err != nil {
		return domain.SyncAction{}, failedResult(id.PID, err)
	}
	return action, nil
}

// record writes one result to the output and folds it into the summary.
func (o *ExportOrchestrator) record(res domain.Result, summary *domain.RunSummary) {
	processed := summary.Record(res)
	if processed%progressInterval == 0 {
		logger.Progress("processed %d documents", processed)
	}
	if err := o.results.Write(res); err != nil {
		logger.Error("writing result for %s: %v", res.PID, err)
	}
	if res.Outcome == domain.OutcomeFailed {
		logger.Warn("%s failed: %s", res.PID, res.Error)
	}
}

// failedResult builds a failure result for an item that never reached the
// dispatcher.
func failedResult(pid string, err error) *domain.Result {
	res := failed(domain.SyncAction{PID: pid}, 0, err)
	return &res
}
