package strategy

import (
	"fmt"

	"github.com/eventhall/seat-reservation/internal/model"
)

// AllocateContinuousRandom prefers a contiguous same-row block.  Rows
// are scanned from the lowest index and within a row from the lowest
// starting column, so the first block of sufficient length wins.
// When no row holds a long enough run, the request falls back to the
// scattered random selection over the whole area.
func AllocateContinuousRandom(snapshot *model.AreaStatus, req Request) ([]model.SeatRef, error) {
	if req.NumSeats < 1 {
		return nil, invalidRequest("num_of_seats must be positive")
	}
	if snapshot.AvailableSeats < req.NumSeats {
		return nil, &AllocationError{
			Reason: model.ReasonInsufficientCapacity,
			Message: fmt.Sprintf("not enough seats available: requested %d, available %d",
				req.NumSeats, snapshot.AvailableSeats),
		}
	}
	for _, row := range snapshot.Seats {
		run := make([]model.SeatRef, 0, req.NumSeats)
		for _, seat := range row {
			if seat.State != model.SeatAvailable {
				run = run[:0]
				continue
			}
			run = append(run, model.SeatRef{Row: seat.Row, Col: seat.Col})
			if int32(len(run)) == req.NumSeats {
				return run, nil
			}
		}
	}
	return AllocateRandom(snapshot, req)
}
