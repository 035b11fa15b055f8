package coordinator

import (
	"context"

	"github.com/eventhall/seat-reservation/internal/model"
)

// ReservationStore keeps the lifecycle records the coordinator owns.
// The outcome is stored alongside the record once the reservation is
// terminal; lookups of unknown ids return
// repository.ErrReservationNotFound.
type ReservationStore interface {
	// Get returns the record and, when terminal, its outcome.
	Get(ctx context.Context, reservationID string) (*model.Reservation, *model.ReservationOutcome, error)

	// Put upserts the record and its outcome (outcome may be nil while
	// the reservation is pending).
	Put(ctx context.Context, reservation *model.Reservation, outcome *model.ReservationOutcome) error
}
