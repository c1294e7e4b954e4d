package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// SnapshotStore keeps point-in-time copies of investigations keyed by
// investigation id. The orchestrator saves after every transition, so
// Load always observes a consistent record.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]Investigation
}

// NewSnapshotStore creates an in-memory snapshot store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]Investigation),
	}
}

// Save stores a snapshot of the investigation
func (s *SnapshotStore) Save(ctx context.Context, inv Investigation) error {
	if inv.ID == "" {
		return fmt.Errorf("investigation ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := inv.clone()
	snapshot.UpdatedAt = time.Now()
	s.snapshots[inv.ID] = snapshot
	return nil
}

// Load returns the last saved snapshot for an investigation id
func (s *SnapshotStore) Load(ctx context.Context, id string) (Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, exists := s.snapshots[id]
	if !exists {
		return Investigation{}, fmt.Errorf("snapshot not found for investigation: %s", id)
	}
	return snapshot.clone(), nil
}

// Delete removes the snapshot for an investigation id
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, id)
	return nil
}

// List returns all snapshots ordered by creation time
func (s *SnapshotStore) List(ctx context.Context) ([]Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Investigation, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
