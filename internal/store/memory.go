package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teemow/meetgate/internal/job"
)

// MemoryStore holds encoded job records in a map. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	updated map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		updated: make(map[string]int64),
	}
}

// Read returns a copy of the stored job.
func (s *MemoryStore) Read(ctx context.Context, id string) (*job.Job, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return decode(id, data)
}

// Write stores a copy of the job.
func (s *MemoryStore) Write(ctx context.Context, j *job.Job) error {
	if err := checkID(j.ID); err != nil {
		return err
	}
	data, err := encode(j)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[j.ID] = data
	s.updated[j.ID] = j.UpdatedAt.UnixNano()
	s.mu.Unlock()
	return nil
}

// List returns stored job ids, most recently updated first.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	updated := make(map[string]int64, len(s.updated))
	for k, v := range s.updated {
		updated[k] = v
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(a, b int) bool {
		if updated[ids[a]] == updated[ids[b]] {
			return ids[a] < ids[b]
		}
		return updated[ids[a]] > updated[ids[b]]
	})
	return ids, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
