package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
)

// DecisionEngine decides, per PID, whether a document should be created,
// updated, deleted or skipped at the destination. Decisions are
// independent across PIDs; the engine holds no per-run state beyond the
// allow-list and the mapping store it consults.
type DecisionEngine struct {
	managed  domain.ISSNSet
	mappings driven.MappingStore
	mapper   driven.SchemaMapper
}

// NewDecisionEngine creates a decision engine.
func NewDecisionEngine(
	managed domain.ISSNSet,
	mappings driven.MappingStore,
	mapper driven.SchemaMapper,
) *DecisionEngine {
	return &DecisionEngine{managed: managed, mappings: mappings, mapper: mapper}
}

// Decide evaluates one document under the given verb. A non-nil error is
// returned only for mapping-store failures; mapping errors resolve to
// Skip(mapping-error) so they surface per item without aborting the run.
func (e *DecisionEngine) Decide(
	ctx context.Context,
	verb domain.Verb,
	doc *domain.SourceDocument,
) (domain.SyncAction, error) {
	// Documents outside the managed set are never touched, whatever the
	// verb.
	if !e.managed.ContainsAny(doc.ISSNs()...) {
		return domain.SyncAction{
			Kind:   domain.ActionSkip,
			PID:    doc.PID,
			Reason: domain.SkipUnmanaged,
		}, nil
	}

	mapping, err := e.mappings.Get(ctx, doc.PID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.SyncAction{}, fmt.Errorf("get mapping for %s: %w", doc.PID, err)
	}

	switch verb {
	case domain.VerbExport, domain.VerbUpdate:
		return e.decideWrite(verb, doc, mapping)

	case domain.VerbDelete:
		if mapping == nil {
			return domain.SyncAction{
				Kind:   domain.ActionSkip,
				PID:    doc.PID,
				Reason: domain.SkipNotPresent,
			}, nil
		}
		return domain.SyncAction{
			Kind:          domain.ActionDelete,
			PID:           doc.PID,
			DestinationID: mapping.DestinationID,
		}, nil

	case domain.VerbGet:
		if mapping == nil {
			return domain.SyncAction{
				Kind:   domain.ActionSkip,
				PID:    doc.PID,
				Reason: domain.SkipNotPresent,
			}, nil
		}
		return domain.SyncAction{
			Kind:          domain.ActionGet,
			PID:           doc.PID,
			DestinationID: mapping.DestinationID,
		}, nil

	default:
		return domain.SyncAction{}, fmt.Errorf("%w: unknown verb %q", domain.ErrInvalidInput, verb)
	}
}

// decideWrite resolves export and update. The two verbs differ only in the
// create branch: export creates unseen documents, update strictly skips
// them.
func (e *DecisionEngine) decideWrite(
	verb domain.Verb,
	doc *domain.SourceDocument,
	mapping *domain.Mapping,
) (domain.SyncAction, error) {
	payload, err := e.mapper.Map(doc)
	if err != nil {
		return domain.SyncAction{
			Kind:   domain.ActionSkip,
			PID:    doc.PID,
			Reason: domain.SkipMappingError,
			Err:    err,
		}, nil
	}

	hash, err := e.mapper.ContentHash(payload)
	if err != nil {
		return domain.SyncAction{
			Kind:   domain.ActionSkip,
			PID:    doc.PID,
			Reason: domain.SkipMappingError,
			Err:    fmt.Errorf("%w: hashing payload for %s: %v", domain.ErrMapping, doc.PID, err),
		}, nil
	}

	issn := ""
	if issns := doc.ISSNs(); len(issns) > 0 {
		issn = issns[0]
	}

	if mapping == nil {
		if verb == domain.VerbUpdate {
			return domain.SyncAction{
				Kind:   domain.ActionSkip,
				PID:    doc.PID,
				Reason: domain.SkipUnseen,
			}, nil
		}
		return domain.SyncAction{
			Kind:        domain.ActionCreate,
			PID:         doc.PID,
			Payload:     payload,
			ContentHash: hash,
			ISSN:        issn,
			Collection:  doc.Collection,
		}, nil
	}

	if mapping.ContentHash == hash {
		return domain.SyncAction{
			Kind:   domain.ActionSkip,
			PID:    doc.PID,
			Reason: domain.SkipUnchanged,
		}, nil
	}

	payload.ID = mapping.DestinationID
	return domain.SyncAction{
		Kind:          domain.ActionUpdate,
		PID:           doc.PID,
		Payload:       payload,
		DestinationID: mapping.DestinationID,
		ContentHash:   hash,
		ISSN:          issn,
		Collection:    doc.Collection,
	}, nil
}
