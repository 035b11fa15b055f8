package strategy

import (
	"fmt"
	"math/rand"

	"github.com/eventhall/seat-reservation/internal/model"
)

// AllocateRandom scatters the request over the available seats.  The
// selection is driven entirely by the request seed, so the same
// snapshot and seed always pick the same seats.
func AllocateRandom(snapshot *model.AreaStatus, req Request) ([]model.SeatRef, error) {
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
	available := availableSeats(snapshot)
	rng := rand.New(rand.NewSource(req.Seed))
	selected := make([]model.SeatRef, 0, req.NumSeats)
	for int32(len(selected)) < req.NumSeats {
		idx := rng.Intn(len(available))
		selected = append(selected, available[idx])
		available = append(available[:idx], available[idx+1:]...)
	}
	return selected, nil
}

// availableSeats collects every AVAILABLE seat in row-major order.
func availableSeats(snapshot *model.AreaStatus) []model.SeatRef {
	refs := make([]model.SeatRef, 0, snapshot.AvailableSeats)
	for _, row := range snapshot.Seats {
		for _, seat := range row {
			if seat.State == model.SeatAvailable {
				refs = append(refs, model.SeatRef{Row: seat.Row, Col: seat.Col})
			}
		}
	}
	return refs
}
