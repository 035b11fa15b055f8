// Package store owns the durable, partition-keyed area state.  Each
// (event_id, area_id) key maps to a versioned seat-grid snapshot and
// every mutation goes through the conditional-update contract: the
// caller presents the version it read and the store applies the whole
// batch atomically only when that version is still current.  Nothing
// outside this package mutates a snapshot that the store owns.
package store

import (
	"context"
	"errors"

	"github.com/eventhall/seat-reservation/internal/model"
)

// ErrNotFound is returned when reading an area that was never
// initialized.  Callers surface it; it is never retried.
var ErrNotFound = errors.New("area not found")

// ErrAlreadyExists is returned when initializing an area key twice.
var ErrAlreadyExists = errors.New("area already exists")

// ErrVersionConflict is returned when a conditional update presents a
// stale version.  The caller must reload the snapshot and retry.
var ErrVersionConflict = errors.New("version conflict")

// ErrStorage wraps I/O failures of the underlying backend.  The store
// retries transient failures internally; when retries are exhausted
// the error is fatal for the request only, never for the process.
var ErrStorage = errors.New("storage failure")

// AreaStateStore is the contract shared by the volatile and the
// durable backend.  Implementations must return deep copies so a
// snapshot handed to a caller can never alias the stored grid, and
// must record every accepted mutation in the write-ahead journal
// before acknowledging it.
type AreaStateStore interface {
	// Read returns the current snapshot for the area or ErrNotFound.
	Read(ctx context.Context, eventID, areaID string) (*model.AreaStatus, error)

	// Initialize creates the area with a fresh all-available grid at
	// version zero, or fails with ErrAlreadyExists.
	Initialize(ctx context.Context, eventID string, area model.Area) (*model.AreaStatus, error)

	// CompareAndApply atomically applies the mutation batch when the
	// stored version equals expectedVersion, increments the version by
	// one and returns the new snapshot.  On a stale version it fails
	// with ErrVersionConflict and applies nothing.
	CompareAndApply(ctx context.Context, eventID, areaID string, expectedVersion uint64, mutations []model.SeatMutation) (*model.AreaStatus, error)
}

// Journal is the write-ahead device the store appends to before a
// mutation is acknowledged.  The event log implements it; tests may
// pass nil to run without durability.
type Journal interface {
	AreaInitialized(status *model.AreaStatus) error
	MutationApplied(eventID, areaID string, baseVersion uint64, mutations []model.SeatMutation) error
}
