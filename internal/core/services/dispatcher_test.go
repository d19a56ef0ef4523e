package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scieloorg/doaj-exporter/internal/adapters/driven/storage/memory"
	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
)

// mockDestination implements driven.Destination with scripted failures.
// Error queues are popped one entry per call; a nil entry (or an empty
// queue) means the call succeeds.
type mockDestination struct {
	mu sync.Mutex

	created map[string]*domain.Article
	updated map[string]*domain.Article
	deleted []string
	records map[string]*domain.Article

	createQueue []error
	updateQueue []error
	deleteQueue []error
	bulkQueue   []error

	// bulkItemErrs rejects individual items of an otherwise accepted
	// batch, keyed by batch index.
	bulkItemErrs map[int]error

	nextID          int
	createCalls     int
	updateCalls     int
	deleteCalls     int
	bulkCreateCalls int
	bulkDeleteCalls int
}

var _ driven.Destination = (*mockDestination)(nil)

func newMockDestination() *mockDestination {
	return &mockDestination{
		created: make(map[string]*domain.Article),
		updated: make(map[string]*domain.Article),
		records: make(map[string]*domain.Article),
	}
}

func pop(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (m *mockDestination) Create(_ context.Context, article *domain.Article) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if err := pop(&m.createQueue); err != nil {
		return "", err
	}
	m.nextID++
	id := fmt.Sprintf("doaj-%d", m.nextID)
	m.created[id] = article
	return id, nil
}

func (m *mockDestination) Update(_ context.Context, id string, article *domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if err := pop(&m.updateQueue); err != nil {
		return err
	}
	m.updated[id] = article
	return nil
}

func (m *mockDestination) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCalls++
	if err := pop(&m.deleteQueue); err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	delete(m.created, id)
	delete(m.updated, id)
	return nil
}

// Get serves whatever the destination currently holds under the id: the
// latest update wins over the original create, and explicitly seeded
// records back both.
func (m *mockDestination) Get(_ context.Context, id string) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record, ok := m.updated[id]; ok {
		return record, nil
	}
	if record, ok := m.created[id]; ok {
		return record, nil
	}
	if record, ok := m.records[id]; ok {
		return record, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockDestination) CreateBulk(_ context.Context, articles []*domain.Article) ([]driven.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bulkCreateCalls++
	if err := pop(&m.bulkQueue); err != nil {
		return nil, err
	}

	results := make([]driven.BulkResult, len(articles))
	for i, article := range articles {
		if err, rejected := m.bulkItemErrs[i]; rejected {
			results[i] = driven.BulkResult{Index: i, Err: err}
			continue
		}
		m.nextID++
		id := fmt.Sprintf("doaj-%d", m.nextID)
		m.created[id] = article
		results[i] = driven.BulkResult{Index: i, DestinationID: id}
	}
	return results, nil
}

func (m *mockDestination) DeleteBulk(_ context.Context, ids []string) ([]driven.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bulkDeleteCalls++
	if err := pop(&m.bulkQueue); err != nil {
		return nil, err
	}

	results := make([]driven.BulkResult, len(ids))
	for i, id := range ids {
		m.deleted = append(m.deleted, id)
		results[i] = driven.BulkResult{Index: i, DestinationID: id}
	}
	return results, nil
}

func testSettings() domain.Settings {
	settings := domain.DefaultSettings()
	settings.RetryBackoff = time.Millisecond
	return settings
}

func createAction(pid string) domain.SyncAction {
	return domain.SyncAction{
		Kind:        domain.ActionCreate,
		PID:         pid,
		Payload:     &domain.Article{Bibjson: domain.Bibjson{Title: "t-" + pid}},
		ContentHash: "hash-" + pid,
		ISSN:        "0001-0001",
		Collection:  "scl",
	}
}

func transientErr() error {
	return fmt.Errorf("%w: connection timed out", domain.ErrTransient)
}

func rejectedErr() error {
	return fmt.Errorf("%w: field 'bibjson.title' is required", domain.ErrRejected)
}

func TestDispatcher_CreatePersistsMapping(t *testing.T) {
	dest := newMockDestination()
	store := memory.NewMappingStore()
	d := NewDispatcher(dest, store, testSettings())

	res := d.Dispatch(context.Background(), createAction("S0001"))

	assert.Equal(t, domain.OutcomeSucceeded, res.Outcome)
	assert.Equal(t, domain.ActionCreate, res.Action)
	assert.Equal(t, "doaj-1", res.DestinationID)
	assert.Zero(t, res.Retries)

	mapping, err := store.Get(context.Background(), "S0001")
	require.NoError(t, err)
	assert.Equal(t, "doaj-1", mapping.DestinationID)
	assert.Equal(t, "hash-S0001", mapping.ContentHash)
	assert.Equal(t, "0001-0001", mapping.ISSN)
	assert.Equal(t, "scl", mapping.Collection)
}

func TestDispatcher_RetriesTransientErrors(t *testing.T) {
	dest := newMockDestination()
	dest.createQueue = []error{transientErr(), transientErr()}
	d := NewDispatcher(dest, memory.NewMappingStore(), testSettings())

	res := d.Dispatch(context.Background(), createAction("S0001"))

	assert.Equal(t, domain.OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 2, res.Retries)
	assert.Equal(t, 3, dest.createCalls)
}

func TestDispatcher_RetriesExhausted(t *testing.T) {
	dest := newMockDestination()
	dest.createQueue = []error{transientErr(), transientErr(), transientErr(), transientErr()}
	settings := testSettings()
	settings.MaxRetries = 2
	store := memory.NewMappingStore()
	d := NewDispatcher(dest, store, settings)

	res := d.Dispatch(context.Background(), createAction("S0001"))

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, 2, res.Retries)
	assert.Equal(t, 3, dest.createCalls) // initial attempt + 2 retries
	assert.Contains(t, res.Error, "timed out")

	// No mapping is recorded for a failed create.
	_, err := store.Get(context.Background(), "S0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatcher_RejectedNotRetried(t *testing.T) {
	dest := newMockDestination()
	dest.createQueue = []error{rejectedErr()}
	d := NewDispatcher(dest, memory.NewMappingStore(), testSettings())

	res := d.Dispatch(context.Background(), createAction("S0003"))

	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Zero(t, res.Retries)
	assert.Equal(t, 1, dest.createCalls)
	assert.Contains(t, res.Error, "rejected by destination")
}

func TestDispatcher_DeleteRemovesMapping(t *testing.T) {
	dest := newMockDestination()
	store := memory.NewMappingStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Mapping{PID: "S0001", DestinationID: "doaj-9"}))
	d := NewDispatcher(dest, store, testSettings())

	res := d.Dispatch(ctx, domain.SyncAction{
		Kind:          domain.ActionDelete,
		PID:           "S0001",
		DestinationID: "doaj-9",
	})

	assert.Equal(t, domain.OutcomeSucceeded, res.Outcome)
	assert.Equal(t, []string{"doaj-9"}, dest.deleted)

	_, err := store.Get(ctx, "S0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatcher_UpdateRefreshesHash(t *testing.T) {
	dest := newMockDestination()
	store := memory.NewMappingStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Mapping{PID: "S0001", DestinationID: "doaj-9", ContentHash: "old"}))
	d := NewDispatcher(dest, store, testSettings())

	action := createAction("S0001")
	action.Kind = domain.ActionUpdate
	action.DestinationID = "doaj-9"
	res := d.Dispatch(ctx, action)

	assert.Equal(t, domain.OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, dest.updateCalls)

	mapping, err := store.Get(ctx, "S0001")
	require.NoError(t, err)
	assert.Equal(t, "hash-S0001", mapping.ContentHash)
	assert.Equal(t, "doaj-9", mapping.DestinationID)
}

func TestDispatcher_SkipOutcomes(t *testing.T) {
	d := NewDispatcher(newMockDestination(), memory.NewMappingStore(), testSettings())

	res := d.Dispatch(context.Background(), domain.SyncAction{
		Kind:   domain.ActionSkip,
		PID:    "S0002",
		Reason: domain.SkipUnmanaged,
	})
	assert.Equal(t, domain.OutcomeSkipped, res.Outcome)
	assert.Equal(t, domain.SkipUnmanaged, res.SkipReason)

	// Mapping failures surface as failures.
	res = d.Dispatch(context.Background(), domain.SyncAction{
		Kind:   domain.ActionSkip,
		PID:    "S0004",
		Reason: domain.SkipMappingError,
		Err:    fmt.Errorf("%w: no authors", domain.ErrMapping),
	})
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.SkipMappingError, res.SkipReason)
	assert.Contains(t, res.Error, "no authors")
}

func TestDispatcher_Get(t *testing.T) {
	dest := newMockDestination()
	dest.records["doaj-9"] = &domain.Article{ID: "doaj-9", Bibjson: domain.Bibjson{Title: "stored"}}
	d := NewDispatcher(dest, memory.NewMappingStore(), testSettings())

	res := d.Dispatch(context.Background(), domain.SyncAction{
		Kind:          domain.ActionGet,
		PID:           "S0001",
		DestinationID: "doaj-9",
	})

	assert.Equal(t, domain.OutcomeSucceeded, res.Outcome)
	require.NotNil(t, res.Record)
	assert.Equal(t, "stored", res.Record.Bibjson.Title)
}

func TestDispatcher_BulkMatchesSingleOutcomes(t *testing.T) {
	actions := []domain.SyncAction{
		createAction("S0001"),
		createAction("S0002"),
		createAction("S0003"),
	}

	singleDest := newMockDestination()
	single := NewDispatcher(singleDest, memory.NewMappingStore(), testSettings())
	singleOutcomes := make(map[string]domain.OutcomeKind)
	for _, action := range actions {
		res := single.Dispatch(context.Background(), action)
		singleOutcomes[res.PID] = res.Outcome
	}

	bulkDest := newMockDestination()
	bulk := NewDispatcher(bulkDest, memory.NewMappingStore(), testSettings())
	bulkOutcomes := make(map[string]domain.OutcomeKind)
	for _, res := range bulk.DispatchBulk(context.Background(), actions) {
		bulkOutcomes[res.PID] = res.Outcome
	}

	assert.Equal(t, singleOutcomes, bulkOutcomes)
	assert.Equal(t, 1, bulkDest.bulkCreateCalls)
	assert.Zero(t, bulkDest.createCalls)
}

func TestDispatcher_BulkItemRejection(t *testing.T) {
	dest := newMockDestination()
	dest.bulkItemErrs = map[int]error{1: rejectedErr()}
	store := memory.NewMappingStore()
	d := NewDispatcher(dest, store, testSettings())

	results := d.DispatchBulk(context.Background(), []domain.SyncAction{
		createAction("S0001"),
		createAction("S0002"),
		createAction("S0003"),
	})

	require.Len(t, results, 3)
	assert.Equal(t, domain.OutcomeSucceeded, results[0].Outcome)
	assert.Equal(t, domain.OutcomeFailed, results[1].Outcome)
	assert.Equal(t, domain.OutcomeSucceeded, results[2].Outcome)

	// Only accepted items gain mappings.
	_, err := store.Get(context.Background(), "S0002")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Get(context.Background(), "S0001")
	assert.NoError(t, err)
}

func TestDispatcher_BulkFailureDecomposesPerItem(t *testing.T) {
	dest := newMockDestination()
	dest.bulkQueue = []error{rejectedErr()}
	d := NewDispatcher(dest, memory.NewMappingStore(), testSettings())

	results := d.DispatchBulk(context.Background(), []domain.SyncAction{
		createAction("S0001"),
		createAction("S0002"),
	})

	// The batch was rejected wholesale but each item succeeds alone.
	require.Len(t, results, 2)
	assert.Equal(t, domain.OutcomeSucceeded, results[0].Outcome)
	assert.Equal(t, domain.OutcomeSucceeded, results[1].Outcome)
	assert.Equal(t, 1, dest.bulkCreateCalls)
	assert.Equal(t, 2, dest.createCalls)
}

func TestDispatcher_BulkChunksBySize(t *testing.T) {
	dest := newMockDestination()
	settings := testSettings()
	settings.BulkSize = 2
	d := NewDispatcher(dest, memory.NewMappingStore(), settings)

	var actions []domain.SyncAction
	for i := 0; i < 5; i++ {
		actions = append(actions, createAction(fmt.Sprintf("S%04d", i)))
	}

	results := d.DispatchBulk(context.Background(), actions)

	require.Len(t, results, 5)
	assert.Equal(t, 3, dest.bulkCreateCalls)
}

func TestDispatcher_BulkDeleteRemovesMappings(t *testing.T) {
	dest := newMockDestination()
	store := memory.NewMappingStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Mapping{PID: "S0001", DestinationID: "doaj-1"}))
	require.NoError(t, store.Save(ctx, domain.Mapping{PID: "S0002", DestinationID: "doaj-2"}))
	d := NewDispatcher(dest, store, testSettings())

	results := d.DispatchBulk(ctx, []domain.SyncAction{
		{Kind: domain.ActionDelete, PID: "S0001", DestinationID: "doaj-1"},
		{Kind: domain.ActionDelete, PID: "S0002", DestinationID: "doaj-2"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, domain.OutcomeSucceeded, results[0].Outcome)
	assert.Equal(t, domain.OutcomeSucceeded, results[1].Outcome)
	assert.Equal(t, 1, dest.bulkDeleteCalls)

	mappings, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}
