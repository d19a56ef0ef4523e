package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func sampleMapping(pid string) domain.Mapping {
	return domain.Mapping{
		PID:           pid,
		ISSN:          "0001-0001",
		Collection:    "scl",
		DestinationID: "doaj-" + pid,
		ContentHash:   "hash-" + pid,
	}
}

func TestNewStore_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "mappings.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.MappingStore().Save(context.Background(), sampleMapping("S0001")))
	require.NoError(t, store.Close())

	// Reopening the same database must not re-run applied migrations or
	// lose rows.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	mapping, err := store.MappingStore().Get(context.Background(), "S0001")
	require.NoError(t, err)
	assert.Equal(t, "doaj-S0001", mapping.DestinationID)
}

func TestMappingStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	mappings := store.MappingStore()
	ctx := context.Background()

	require.NoError(t, mappings.Save(ctx, sampleMapping("S0001")))

	got, err := mappings.Get(ctx, "S0001")
	require.NoError(t, err)
	assert.Equal(t, "S0001", got.PID)
	assert.Equal(t, "0001-0001", got.ISSN)
	assert.Equal(t, "scl", got.Collection)
	assert.Equal(t, "doaj-S0001", got.DestinationID)
	assert.Equal(t, "hash-S0001", got.ContentHash)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMappingStore_GetUnknownPID(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.MappingStore().Get(context.Background(), "S9999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMappingStore_SaveRejectsEmptyPID(t *testing.T) {
	store := setupTestStore(t)

	err := store.MappingStore().Save(context.Background(), domain.Mapping{DestinationID: "doaj-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMappingStore_UpdatePreservesCreatedAt(t *testing.T) {
	store := setupTestStore(t)
	mappings := store.MappingStore()
	ctx := context.Background()

	require.NoError(t, mappings.Save(ctx, sampleMapping("S0001")))
	first, err := mappings.Get(ctx, "S0001")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	updated := sampleMapping("S0001")
	updated.ContentHash = "hash-v2"
	require.NoError(t, mappings.Save(ctx, updated))

	second, err := mappings.Get(ctx, "S0001")
	require.NoError(t, err)
	assert.Equal(t, "hash-v2", second.ContentHash)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestMappingStore_DeleteIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	mappings := store.MappingStore()
	ctx := context.Background()

	require.NoError(t, mappings.Save(ctx, sampleMapping("S0001")))
	require.NoError(t, mappings.Delete(ctx, "S0001"))

	_, err := mappings.Get(ctx, "S0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, mappings.Delete(ctx, "S0001"))
}

func TestMappingStore_ListOrderedByPID(t *testing.T) {
	store := setupTestStore(t)
	mappings := store.MappingStore()
	ctx := context.Background()

	require.NoError(t, mappings.Save(ctx, sampleMapping("S0003")))
	require.NoError(t, mappings.Save(ctx, sampleMapping("S0001")))
	require.NoError(t, mappings.Save(ctx, sampleMapping("S0002")))

	all, err := mappings.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "S0001", all[0].PID)
	assert.Equal(t, "S0002", all[1].PID)
	assert.Equal(t, "S0003", all[2].PID)
}

func TestMappingStore_ListEmpty(t *testing.T) {
	store := setupTestStore(t)

	all, err := store.MappingStore().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
