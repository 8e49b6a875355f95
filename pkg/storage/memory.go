package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps the latest snapshot per dataset in memory. It is safe
// for concurrent use. Suited to a single predictor instance; use RedisStore
// when snapshots must survive restarts or be shared.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

// Put stores a snapshot, replacing any existing snapshot for the dataset.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if snapshot.Dataset == "" {
		return fmt.Errorf("snapshot dataset cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Dataset] = snapshot
	return nil
}

// GetLatest retrieves the most recent snapshot for a dataset.
func (s *MemoryStore) GetLatest(ctx context.Context, dataset string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, found := s.snapshots[dataset]
	return snapshot, found, nil
}

// Len returns the number of stored snapshots. Useful in tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
