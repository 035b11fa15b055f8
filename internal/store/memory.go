package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/eventhall/seat-reservation/internal/model"
)

// MemoryStore is the in-process implementation of AreaStateStore.  It
// keeps every snapshot in a map keyed by "eventID:areaID" and guards
// the map with a single mutex; the conditional-update contract makes
// finer locking unnecessary because callers already serialize per
// area.  When a journal is attached, every accepted mutation is
// appended to it before the in-memory state changes, so a crash
// between append and apply is repaired by replay.
type MemoryStore struct {
	mu      sync.RWMutex
	areas   map[string]*model.AreaStatus
	journal Journal
}

// NewMemoryStore returns an empty MemoryStore.  journal may be nil,
// in which case mutations are acknowledged without being recorded.
func NewMemoryStore(journal Journal) *MemoryStore {
	return &MemoryStore{
		areas:   make(map[string]*model.AreaStatus),
		journal: journal,
	}
}

// Read returns a deep copy of the current snapshot for the area.
func (s *MemoryStore) Read(ctx context.Context, eventID, areaID string) (*model.AreaStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.areas[model.AreaKey(eventID, areaID)]
	if !ok {
		return nil, ErrNotFound
	}
	return status.Clone(), nil
}

// Initialize creates the area at version zero with every seat
// available.  The initialization is journaled before it becomes
// visible.
func (s *MemoryStore) Initialize(ctx context.Context, eventID string, area model.Area) (*model.AreaStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.AreaKey(eventID, area.AreaID)
	if _, ok := s.areas[key]; ok {
		return nil, ErrAlreadyExists
	}
	status := model.NewAreaStatus(eventID, area)
	if s.journal != nil {
		if err := s.journal.AreaInitialized(status); err != nil {
			return nil, fmt.Errorf("%w: journal init for %s: %v", ErrStorage, key, err)
		}
	}
	s.areas[key] = status
	return status.Clone(), nil
}

// CompareAndApply applies the batch against the expected version.
// The journal append happens under the lock so the log order always
// matches the version order, and before the map is touched so the
// store never acknowledges a mutation that was not durably recorded.
func (s *MemoryStore) CompareAndApply(ctx context.Context, eventID, areaID string, expectedVersion uint64, mutations []model.SeatMutation) (*model.AreaStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.AreaKey(eventID, areaID)
	current, ok := s.areas[key]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	// Apply on a clone first so a bad batch leaves the stored
	// snapshot untouched.
	next := current.Clone()
	if err := next.Apply(mutations); err != nil {
		return nil, fmt.Errorf("apply mutations for %s: %w", key, err)
	}
	next.Version = expectedVersion + 1
	if s.journal != nil {
		if err := s.journal.MutationApplied(eventID, areaID, expectedVersion, mutations); err != nil {
			return nil, fmt.Errorf("%w: journal mutation for %s: %v", ErrStorage, key, err)
		}
	}
	s.areas[key] = next
	return next.Clone(), nil
}

// Snapshots returns a deep copy of every stored snapshot.  Startup
// wiring uses it to move replayed state into the journaled live
// store.
func (s *MemoryStore) Snapshots() []*model.AreaStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.AreaStatus, 0, len(s.areas))
	for _, status := range s.areas {
		out = append(out, status.Clone())
	}
	return out
}

// Restore installs a snapshot directly, bypassing the journal.  It is
// used by replay when rebuilding the store from the log and must not
// be called once the store is serving requests.
func (s *MemoryStore) Restore(status *model.AreaStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas[model.AreaKey(status.EventID, status.AreaID)] = status.Clone()
}
