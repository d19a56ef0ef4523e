// Package memory provides an in-memory MappingStore. It backs tests and
// dry runs; production invocations use the sqlite store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
)

// Ensure MappingStore implements the interface.
var _ driven.MappingStore = (*MappingStore)(nil)

// MappingStore is an in-memory implementation of driven.MappingStore.
// Safe for concurrent use.
type MappingStore struct {
	mu       sync.RWMutex
	mappings map[string]domain.Mapping
}

// NewMappingStore creates an empty in-memory mapping store.
func NewMappingStore() *MappingStore {
	return &MappingStore{mappings: make(map[string]domain.Mapping)}
}

// Get retrieves the mapping for a PID.
func (s *MappingStore) Get(_ context.Context, pid string) (*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[pid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

// Save stores or updates a mapping, preserving the original creation time
// on update.
func (s *MappingStore) Save(_ context.Context, mapping domain.Mapping) error {
	if mapping.PID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mappings[mapping.PID]; ok {
		mapping.CreatedAt = existing.CreatedAt
	}
	s.mappings[mapping.PID] = mapping
	return nil
}

// Delete removes the mapping for a PID. Absent PIDs are not an error.
func (s *MappingStore) Delete(_ context.Context, pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.mappings, pid)
	return nil
}

// List returns all mappings ordered by PID.
func (s *MappingStore) List(_ context.Context) ([]domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mappings := make([]domain.Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		mappings = append(mappings, m)
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].PID < mappings[j].PID })
	return mappings, nil
}
