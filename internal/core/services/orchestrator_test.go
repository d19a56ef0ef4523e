package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scieloorg/doaj-exporter/internal/adapters/driven/storage/memory"
	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driving"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// captureWriter records results and summaries in memory.
type captureWriter struct {
	mu        sync.Mutex
	results   []domain.Result
	summaries []*domain.RunSummary
	closed    bool
}

var _ driven.ResultWriter = (*captureWriter)(nil)

func (w *captureWriter) Write(result domain.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, result)
	return nil
}

func (w *captureWriter) WriteSummary(summary *domain.RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.summaries = append(w.summaries, summary)
	return nil
}

func (w *captureWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *captureWriter) byPID() map[string]domain.Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]domain.Result, len(w.results))
	for _, res := range w.results {
		out[res.PID] = res
	}
	return out
}

// pipeline bundles a fully wired orchestrator with its fakes.
type pipeline struct {
	source *mockSourceClient
	dest   *mockDestination
	store  driven.MappingStore
	writer *captureWriter
	orch   *ExportOrchestrator
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	source := newMockSourceClient()
	dest := newMockDestination()
	store := memory.NewMappingStore()
	writer := &captureWriter{}
	settings := testSettings()

	orch := NewExportOrchestrator(
		NewSelector(source, store),
		NewDecisionEngine(domain.ISSNSet{"0001-0001": {}}, store, &stubMapper{}),
		NewDispatcher(dest, store, settings),
		source,
		writer,
		settings,
	)
	return &pipeline{source: source, dest: dest, store: store, writer: writer, orch: orch}
}

func (p *pipeline) run(t *testing.T, verb domain.Verb, opts driving.RunOptions) *domain.RunSummary {
	t.Helper()
	summary, err := p.orch.Run(context.Background(), verb, opts)
	require.NoError(t, err)
	return summary
}

func TestRun_ExportMixedAllowList(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")
	p.source.docs["S0002"] = unmanagedDocument("S0002")

	summary := p.run(t, domain.VerbExport, driving.RunOptions{
		Collection: "scl",
		PIDs:       []string{"S0001", "S0002"},
	})

	succeeded, failed, skipped := summary.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, skipped)
	assert.False(t, summary.HasFailures())

	results := p.writer.byPID()
	require.Len(t, results, 2)
	assert.Equal(t, domain.OutcomeSucceeded, results["S0001"].Outcome)
	assert.Equal(t, domain.ActionCreate, results["S0001"].Action)
	assert.NotEmpty(t, results["S0001"].DestinationID)
	assert.Equal(t, domain.OutcomeSkipped, results["S0002"].Outcome)
	assert.Equal(t, domain.SkipUnmanaged, results["S0002"].SkipReason)

	// Only the managed document gains a mapping.
	_, err := p.store.Get(context.Background(), "S0001")
	assert.NoError(t, err)
	_, err = p.store.Get(context.Background(), "S0002")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.Len(t, p.writer.summaries, 1)
	assert.Same(t, summary, p.writer.summaries[0])
}

func TestRun_RejectedPayloadFailsWithoutRetry(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0003"] = managedDocument("S0003")
	p.dest.createQueue = []error{rejectedErr()}

	summary := p.run(t, domain.VerbExport, driving.RunOptions{
		Collection: "scl",
		PID:        "S0003",
	})

	assert.True(t, summary.HasFailures())
	require.Len(t, summary.FailedPIDs, 1)
	assert.Equal(t, "S0003", summary.FailedPIDs[0].PID)

	res := p.writer.byPID()["S0003"]
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Zero(t, res.Retries)
	assert.Equal(t, 1, p.dest.createCalls)
}

func TestRun_ExportTwiceIsIdempotent(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")
	opts := driving.RunOptions{Collection: "scl", PID: "S0001"}

	first := p.run(t, domain.VerbExport, opts)
	succeeded, _, _ := first.Counts()
	assert.Equal(t, 1, succeeded)

	second := p.run(t, domain.VerbExport, opts)
	succeeded, failed, skipped := second.Counts()
	assert.Zero(t, succeeded)
	assert.Zero(t, failed)
	assert.Equal(t, 1, skipped)

	// One create, no update: the content hash did not change.
	assert.Equal(t, 1, p.dest.createCalls)
	assert.Zero(t, p.dest.updateCalls)
}

func TestRun_ChangedDocumentIsUpdated(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")
	opts := driving.RunOptions{Collection: "scl", PID: "S0001"}

	p.run(t, domain.VerbExport, opts)

	changed := *p.source.docs["S0001"]
	changed.Title = "Revised title"
	p.source.docs["S0001"] = &changed

	summary := p.run(t, domain.VerbExport, opts)
	succeeded, _, _ := summary.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, p.dest.updateCalls)

	mapping, err := p.store.Get(context.Background(), "S0001")
	require.NoError(t, err)
	assert.Equal(t, "hash:Revised title", mapping.ContentHash)
}

func TestRun_CreateDeleteCreateRoundTrip(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")
	opts := driving.RunOptions{Collection: "scl", PID: "S0001"}
	ctx := context.Background()

	p.run(t, domain.VerbExport, opts)
	first, err := p.store.Get(ctx, "S0001")
	require.NoError(t, err)

	summary := p.run(t, domain.VerbDelete, opts)
	succeeded, _, _ := summary.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, []string{first.DestinationID}, p.dest.deleted)
	_, err = p.store.Get(ctx, "S0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A fresh export creates again under a new destination id.
	p.run(t, domain.VerbExport, opts)
	second, err := p.store.Get(ctx, "S0001")
	require.NoError(t, err)
	assert.NotEqual(t, first.DestinationID, second.DestinationID)
	assert.Equal(t, 2, p.dest.createCalls)
}

func TestRun_UpdateSkipsUnseen(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")

	summary := p.run(t, domain.VerbUpdate, driving.RunOptions{
		Collection: "scl",
		PID:        "S0001",
	})

	res := p.writer.byPID()["S0001"]
	assert.Equal(t, domain.OutcomeSkipped, res.Outcome)
	assert.Equal(t, domain.SkipUnseen, res.SkipReason)
	assert.False(t, summary.HasFailures())
	assert.Zero(t, p.dest.createCalls)
}

func TestRun_GetReturnsStoredRecord(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")
	opts := driving.RunOptions{Collection: "scl", PID: "S0001"}

	p.run(t, domain.VerbExport, opts)
	mapping, err := p.store.Get(context.Background(), "S0001")
	require.NoError(t, err)

	p.writer.results = nil
	summary := p.run(t, domain.VerbGet, opts)
	succeeded, _, _ := summary.Counts()
	assert.Equal(t, 1, succeeded)

	res := p.writer.byPID()["S0001"]
	require.NotNil(t, res.Record)
	assert.Equal(t, "Managed document", res.Record.Bibjson.Title)
	assert.Equal(t, mapping.DestinationID, res.DestinationID)
}

func TestRun_UnknownPIDAbortsRun(t *testing.T) {
	p := newPipeline(t)

	_, err := p.orch.Run(context.Background(), domain.VerbExport, driving.RunOptions{
		Collection: "scl",
		PID:        "S9999",
	})

	// An explicit --pid is validated before anything is dispatched.
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, p.writer.results)
	assert.Empty(t, p.writer.summaries)
}

func TestRun_UnknownPIDInFileFails(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")

	summary := p.run(t, domain.VerbExport, driving.RunOptions{
		Collection: "scl",
		PIDs:       []string{"S0001", "S9999"},
	})

	// A stale entry in a PID file fails on its own without sinking the
	// rest of the batch.
	assert.True(t, summary.HasFailures())
	res := p.writer.byPID()["S9999"]
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Error, "fetching document")
	assert.Equal(t, domain.OutcomeSucceeded, p.writer.byPID()["S0001"].Outcome)
}

func TestRun_SelectorErrorAbortsRun(t *testing.T) {
	p := newPipeline(t)

	_, err := p.orch.Run(context.Background(), domain.VerbExport, driving.RunOptions{
		Collection: "scl",
	})

	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Empty(t, p.writer.summaries)
}

func TestRun_BulkExport(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")
	doc2 := managedDocument("S0002")
	doc2.Title = "Second document"
	p.source.docs["S0002"] = doc2
	p.source.docs["S0003"] = unmanagedDocument("S0003")

	summary := p.run(t, domain.VerbExport, driving.RunOptions{
		Collection: "scl",
		PIDs:       []string{"S0001", "S0002", "S0003"},
		Bulk:       true,
	})

	succeeded, failed, skipped := summary.Counts()
	assert.Equal(t, 2, succeeded)
	assert.Zero(t, failed)
	assert.Equal(t, 1, skipped)

	// Creates went through the bulk endpoint, not one by one.
	assert.Equal(t, 1, p.dest.bulkCreateCalls)
	assert.Zero(t, p.dest.createCalls)

	for _, pid := range []string{"S0001", "S0002"} {
		_, err := p.store.Get(context.Background(), pid)
		assert.NoError(t, err, pid)
	}
}

func TestRun_ProgressReportedEveryHundredDocuments(t *testing.T) {
	p := newPipeline(t)
	batch := make([]string, 150)
	for i := range batch {
		pid := fmt.Sprintf("S%04d", i+1)
		batch[i] = pid
		p.source.docs[pid] = managedDocument(pid)
	}

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	// Bulk mode records results sequentially, so the count crosses the
	// interval exactly once.
	summary := p.run(t, domain.VerbExport, driving.RunOptions{
		Collection: "scl",
		PIDs:       batch,
		Bulk:       true,
	})

	succeeded, _, _ := summary.Counts()
	assert.Equal(t, 150, succeeded)
	assert.Contains(t, buf.String(), "processed 100 documents")
	assert.Equal(t, 1, strings.Count(buf.String(), "[PROGRESS]"))
}

func TestRun_BulkDelete(t *testing.T) {
	p := newPipeline(t)
	p.source.docs["S0001"] = managedDocument("S0001")
	doc2 := managedDocument("S0002")
	doc2.Title = "Second document"
	p.source.docs["S0002"] = doc2

	p.run(t, domain.VerbExport, driving.RunOptions{
		Collection: "scl",
		PIDs:       []string{"S0001", "S0002"},
	})

	summary := p.run(t, domain.VerbDelete, driving.RunOptions{
		Collection: "scl",
		PIDs:       []string{"S0001", "S0002"},
		Bulk:       true,
	})

	succeeded, _, _ := summary.Counts()
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, p.dest.bulkDeleteCalls)

	mappings, err := p.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mappings)
}
