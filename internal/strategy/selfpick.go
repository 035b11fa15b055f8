package strategy

import (
	"fmt"

	"github.com/eventhall/seat-reservation/internal/model"
)

// AllocateSelfPick grants exactly the seats the requester named.  The
// explicit list must contain NumSeats distinct in-bounds coordinates;
// every one of them must still be AVAILABLE in the snapshot.
func AllocateSelfPick(snapshot *model.AreaStatus, req Request) ([]model.SeatRef, error) {
	if req.NumSeats < 1 {
		return nil, invalidRequest("num_of_seats must be positive")
	}
	if int32(len(req.Seats)) != req.NumSeats {
		return nil, invalidRequest("expected %d explicit seats, got %d", req.NumSeats, len(req.Seats))
	}
	seen := make(map[model.SeatRef]struct{}, len(req.Seats))
	for _, ref := range req.Seats {
		if !snapshot.InBounds(ref) {
			return nil, invalidRequest("seat out of bounds: row %d, col %d", ref.Row, ref.Col)
		}
		if _, dup := seen[ref]; dup {
			return nil, invalidRequest("duplicate seat: row %d, col %d", ref.Row, ref.Col)
		}
		seen[ref] = struct{}{}
		if snapshot.SeatAt(ref).State != model.SeatAvailable {
			return nil, &AllocationError{
				Reason:  model.ReasonSeatUnavailable,
				Message: fmt.Sprintf("seat not available: row %d, col %d", ref.Row, ref.Col),
			}
		}
	}
	out := make([]model.SeatRef, len(req.Seats))
	copy(out, req.Seats)
	return out, nil
}
