// Package strategy holds the pure seat-allocation functions.  A
// strategy never mutates the snapshot it is given; it only computes
// which seats to take, and the coordinator is solely responsible for
// committing the result through the store.
package strategy

import (
	"fmt"

	"github.com/eventhall/seat-reservation/internal/model"
)

// Request carries the allocation parameters extracted from a
// reservation.  Seed makes the randomized strategies deterministic:
// the same snapshot and seed always produce the same selection, which
// keeps allocation pure and replay-consistent.
type Request struct {
	NumSeats int32
	Seats    []model.SeatRef // explicit picks, required for SelfPick
	Seed     int64
}

// AllocationError is a legitimate allocation failure.  It carries one
// of the model.Reason* codes and becomes a rejected outcome, never a
// system error.
type AllocationError struct {
	Reason  string
	Message string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func invalidRequest(format string, args ...any) *AllocationError {
	return &AllocationError{Reason: model.ReasonInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Allocator computes a seat assignment from a snapshot.  The returned
// seats are distinct, in bounds and AVAILABLE in the snapshot.
type Allocator func(snapshot *model.AreaStatus, req Request) ([]model.SeatRef, error)

// allocators is the dispatch table over the tagged reservation types.
var allocators = map[model.ReservationType]Allocator{
	model.SelfPick:         AllocateSelfPick,
	model.Random:           AllocateRandom,
	model.ContinuousRandom: AllocateContinuousRandom,
}

// For returns the allocator for the given reservation type.
func For(t model.ReservationType) (Allocator, error) {
	alloc, ok := allocators[t]
	if !ok {
		return nil, invalidRequest("invalid reservation type: %q", t)
	}
	return alloc, nil
}
