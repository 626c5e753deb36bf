// Package memstore is a process-local vector index.
package memstore

import (
	"context"
	"sync"

	"docrag/internal/adapter/store"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// MemoryIndex keeps collections in memory. Close does not drop data, so one
// MemoryIndex can back several pipeline runs in the same process.
type MemoryIndex struct {
	mu          sync.RWMutex
	dimension   int
	collections map[string][]domain.IndexEntry
}

func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension:   dimension,
		collections: make(map[string][]domain.IndexEntry),
	}
}

func (s *MemoryIndex) Verify(_ context.Context, _ string) error {
	return nil
}

func (s *MemoryIndex) Clear(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Upsert validates every entry before any is stored.
func (s *MemoryIndex) Upsert(_ context.Context, collection string, entries []domain.IndexEntry) error {
	if err := store.CheckEntries(entries, s.dimension); err != nil {
		return err
	}

	copied := make([]domain.IndexEntry, len(entries))
	for i, e := range entries {
		e.Vector = append([]float32(nil), e.Vector...)
		copied[i] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], copied...)
	return nil
}

func (s *MemoryIndex) Query(_ context.Context, collection string, vector []float32, k int) ([]port.VectorResult, error) {
	if err := store.CheckQuery(vector, s.dimension); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.RankByCosine(vector, s.collections[collection], k), nil
}

func (s *MemoryIndex) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *MemoryIndex) Dimension() int {
	return s.dimension
}

func (s *MemoryIndex) Name() string {
	return "memory"
}

func (s *MemoryIndex) Close() error {
	return nil
}
