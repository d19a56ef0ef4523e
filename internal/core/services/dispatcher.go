package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// Dispatcher executes decided actions against the destination, in single
// or bulk mode. Transient transport errors are retried with exponential
// backoff; rejections fail immediately. The mapping store is written only
// after the destination has acknowledged the operation.
type Dispatcher struct {
	destination driven.Destination
	mappings    driven.MappingStore
	maxRetries  int
	backoff     time.Duration
	bulkSize    int
}

// NewDispatcher creates a dispatcher with the run's retry and batching
// settings.
func NewDispatcher(destination driven.Destination, mappings driven.MappingStore, settings domain.Settings) *Dispatcher {
	return &Dispatcher{
		destination: destination,
		mappings:    mappings,
		maxRetries:  settings.MaxRetries,
		backoff:     settings.RetryBackoff,
		bulkSize:    settings.BulkSize,
	}
}

// Dispatch executes one action and reports its result. Errors are folded
// into the result, never returned: a failed item must not abort the run.
func (d *Dispatcher) Dispatch(ctx context.Context, action domain.SyncAction) domain.Result {
	switch action.Kind {
	case domain.ActionSkip:
		return d.skip(action)

	case domain.ActionCreate:
		return d.create(ctx, action)

	case domain.ActionUpdate:
		return d.update(ctx, action)

	case domain.ActionDelete:
		return d.delete(ctx, action)

	case domain.ActionGet:
		return d.get(ctx, action)

	default:
		return result(action, domain.Result{
			Outcome: domain.OutcomeFailed,
			Error:   fmt.Sprintf("unknown action kind %q", action.Kind),
		})
	}
}

// DispatchBulk executes a slice of actions, batching creates and deletes
// into bulk requests. A failed batch is decomposed and retried at per-item
// granularity, so one bad record cannot fail an entire batch. Results are
// returned in action order.
func (d *Dispatcher) DispatchBulk(ctx context.Context, actions []domain.SyncAction) []domain.Result {
	results := make([]domain.Result, len(actions))

	var creates, deletes []int
	for i, action := range actions {
		switch action.Kind {
		case domain.ActionCreate:
			creates = append(creates, i)
		case domain.ActionDelete:
			deletes = append(deletes, i)
		default:
			// Updates, gets and skips have no bulk endpoint.
			results[i] = d.Dispatch(ctx, actions[i])
		}
	}

	d.bulkCreate(ctx, actions, creates, results)
	d.bulkDelete(ctx, actions, deletes, results)
	return results
}

func (d *Dispatcher) skip(action domain.SyncAction) domain.Result {
	// Mapping failures surface as per-item failures so the run exits
	// non-zero; every other skip is benign.
	if action.Reason == domain.SkipMappingError {
		detail := "mapping failed"
		if action.Err != nil {
			detail = action.Err.Error()
		}
		return result(action, domain.Result{
			Outcome:    domain.OutcomeFailed,
			SkipReason: action.Reason,
			Error:      detail,
		})
	}
	return result(action, domain.Result{
		Outcome:    domain.OutcomeSkipped,
		SkipReason: action.Reason,
	})
}

func (d *Dispatcher) create(ctx context.Context, action domain.SyncAction) domain.Result {
	var destID string
	retries, err := d.withRetry(ctx, func(ctx context.Context) error {
		var opErr error
		destID, opErr = d.destination.Create(ctx, action.Payload)
		return opErr
	})
	if err != nil {
		return failed(action, retries, err)
	}

	if err := d.persist(ctx, action, destID); err != nil {
		return failed(action, retries, err)
	}

	return result(action, domain.Result{
		Outcome:       domain.OutcomeSucceeded,
		DestinationID: destID,
		Retries:       retries,
	})
}

func (d *Dispatcher) update(ctx context.Context, action domain.SyncAction) domain.Result {
	retries, err := d.withRetry(ctx, func(ctx context.Context) error {
		return d.destination.Update(ctx, action.DestinationID, action.Payload)
	})
	if err != nil {
		return failed(action, retries, err)
	}

	if err := d.persist(ctx, action, action.DestinationID); err != nil {
		return failed(action, retries, err)
	}

	return result(action, domain.Result{
		Outcome:       domain.OutcomeSucceeded,
		DestinationID: action.DestinationID,
		Retries:       retries,
	})
}

func (d *Dispatcher) delete(ctx context.Context, action domain.SyncAction) domain.Result {
	retries, err := d.withRetry(ctx, func(ctx context.Context) error {
		return d.destination.Delete(ctx, action.DestinationID)
	})
	if err != nil {
		return failed(action, retries, err)
	}

	if err := d.mappings.Delete(ctx, action.PID); err != nil {
		return failed(action, retries, fmt.Errorf("removing mapping: %w", err))
	}

	return result(action, domain.Result{
		Outcome:       domain.OutcomeSucceeded,
		DestinationID: action.DestinationID,
		Retries:       retries,
	})
}

func (d *Dispatcher) get(ctx context.Context, action domain.SyncAction) domain.Result {
	var record *domain.Article
	retries, err := d.withRetry(ctx, func(ctx context.Context) error {
		var opErr error
		record, opErr = d.destination.Get(ctx, action.DestinationID)
		return opErr
	})
	if err != nil {
		return failed(action, retries, err)
	}

	return result(action, domain.Result{
		Outcome:       domain.OutcomeSucceeded,
		DestinationID: action.DestinationID,
		Retries:       retries,
		Record:        record,
	})
}

// bulkCreate submits creates in batches. Indices reference positions in
// the original action slice so results land in order.
func (d *Dispatcher) bulkCreate(ctx context.Context, actions []domain.SyncAction, indices []int, results []domain.Result) {
	for _, chunk := range chunks(indices, d.bulkSize) {
		payloads := make([]*domain.Article, len(chunk))
		for i, idx := range chunk {
			payloads[i] = actions[idx].Payload
		}

		var batch []driven.BulkResult
		retries, err := d.withRetry(ctx, func(ctx context.Context) error {
			var opErr error
			batch, opErr = d.destination.CreateBulk(ctx, payloads)
			return opErr
		})
		if err != nil {
			logger.Warn("bulk create of %d items failed, retrying items individually: %v", len(chunk), err)
			d.decompose(ctx, actions, chunk, results)
			continue
		}

		for _, br := range batch {
			idx := chunk[br.Index]
			action := actions[idx]
			if br.Err != nil {
				results[idx] = failed(action, retries, br.Err)
				continue
			}
			if perr := d.persist(ctx, action, br.DestinationID); perr != nil {
				results[idx] = failed(action, retries, perr)
				continue
			}
			results[idx] = result(action, domain.Result{
				Outcome:       domain.OutcomeSucceeded,
				DestinationID: br.DestinationID,
				Retries:       retries,
			})
		}
	}
}

// bulkDelete submits deletes in batches, mirroring bulkCreate.
func (d *Dispatcher) bulkDelete(ctx context.Context, actions []domain.SyncAction, indices []int, results []domain.Result) {
	for _, chunk := range chunks(indices, d.bulkSize) {
		ids := make([]string, len(chunk))
		for i, idx := range chunk {
			ids[i] = actions[idx].DestinationID
		}

		var batch []driven.BulkResult
		retries, err := d.withRetry(ctx, func(ctx context.Context) error {
			var opErr error
			batch, opErr = d.destination.DeleteBulk(ctx, ids)
			return opErr
		})
		if err != nil {
			logger.Warn("bulk delete of %d items failed, retrying items individually: %v", len(chunk), err)
			d.decompose(ctx, actions, chunk, results)
			continue
		}

		for _, br := range batch {
			idx := chunk[br.Index]
			action := actions[idx]
			if br.Err != nil {
				results[idx] = failed(action, retries, br.Err)
				continue
			}
			if derr := d.mappings.Delete(ctx, action.PID); derr != nil {
				results[idx] = failed(action, retries, fmt.Errorf("removing mapping: %w", derr))
				continue
			}
			results[idx] = result(action, domain.Result{
				Outcome:       domain.OutcomeSucceeded,
				DestinationID: action.DestinationID,
				Retries:       retries,
			})
		}
	}
}

// decompose falls back to per-item dispatch for every action in a failed
// batch.
func (d *Dispatcher) decompose(ctx context.Context, actions []domain.SyncAction, chunk []int, results []domain.Result) {
	for _, idx := range chunk {
		results[idx] = d.Dispatch(ctx, actions[idx])
	}
}

// persist records the destination identifier and content hash after a
// successful create or update. The row's creation time is preserved by the
// store on update.
func (d *Dispatcher) persist(ctx context.Context, action domain.SyncAction, destID string) error {
	now := time.Now().UTC()
	err := d.mappings.Save(ctx, domain.Mapping{
		PID:           action.PID,
		ISSN:          action.ISSN,
		Collection:    action.Collection,
		DestinationID: destID,
		ContentHash:   action.ContentHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return fmt.Errorf("saving mapping: %w", err)
	}
	return nil
}

// withRetry runs op, retrying transient errors up to maxRetries times with
// exponential backoff. The returned count is the number of retries
// performed, not total attempts.
func (d *Dispatcher) withRetry(ctx context.Context, op func(context.Context) error) (int, error) {
	backoff := d.backoff
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil || !errors.Is(err, domain.ErrTransient) || attempt >= d.maxRetries {
			return attempt, err
		}

		logger.Debug("transient error, retrying in %s: %v", backoff, err)
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// chunks splits indices into slices of at most size elements.
func chunks(indices []int, size int) [][]int {
	if size <= 0 {
		size = 1
	}
	var out [][]int
	for start := 0; start < len(indices); start += size {
		end := start + size
		if end > len(indices) {
			end = len(indices)
		}
		out = append(out, indices[start:end])
	}
	return out
}

// result stamps the shared fields of a dispatch result.
func result(action domain.SyncAction, r domain.Result) domain.Result {
	r.PID = action.PID
	r.Action = action.Kind
	r.ProcessedAt = time.Now().UTC()
	return r
}

// failed builds a failure result from the final error.
func failed(action domain.SyncAction, retries int, err error) domain.Result {
	return result(action, domain.Result{
		Outcome: domain.OutcomeFailed,
		Retries: retries,
		Error:   err.Error(),
	})
}
