package model

import (
	"fmt"
	"strings"
	"time"
)

// ReservationType selects the allocation strategy applied to a
// request.
type ReservationType string

// Strategy variants.  SelfPick requires an explicit seat list; the
// other two compute a selection from the snapshot.
const (
	SelfPick         ReservationType = "self_pick"
	Random           ReservationType = "random"
	ContinuousRandom ReservationType = "continuous_random"
)

// ParseReservationType normalizes the wire spelling of a reservation
// type.  Both "self_pick" and "selfpick" style spellings are
// accepted.
func ParseReservationType(s string) (ReservationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self_pick", "selfpick":
		return SelfPick, nil
	case "random":
		return Random, nil
	case "continuous_random", "continuousrandom":
		return ContinuousRandom, nil
	}
	return "", fmt.Errorf("invalid reservation type: %q", s)
}

// Reservation lifecycle states.  A reservation is created PENDING and
// moves to exactly one terminal state; terminal states never change.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationRejected  = "REJECTED"
)

// Seat fulfillment markers tracked alongside a confirmed reservation.
// They describe what happened to the seats after confirmation and do
// not alter the terminal reservation status.
const (
	FulfillmentNone      = ""
	FulfillmentSold      = "SOLD"
	FulfillmentCancelled = "CANCELLED"
)

// Rejection reason codes carried on a rejected outcome.
const (
	ReasonInvalidRequest       = "INVALID_REQUEST"
	ReasonSeatUnavailable      = "SEAT_UNAVAILABLE"
	ReasonInsufficientCapacity = "INSUFFICIENT_CAPACITY"
	ReasonContended            = "CONTENDED"
	ReasonUnknownArea          = "UNKNOWN_AREA"
)

// Reservation is the lifecycle record for one seat request.  The
// reservation id doubles as the idempotency key: re-submitting an id
// whose record is terminal returns the recorded outcome without
// touching area state.
type Reservation struct {
	ReservationID string          `json:"reservation_id"`
	UserID        string          `json:"user_id"`
	EventID       string          `json:"event_id"`
	AreaID        string          `json:"area_id"`
	NumSeats      int32           `json:"num_of_seats"`
	Type          ReservationType `json:"reservation_type"`
	RequestSeats  []SeatRef       `json:"seats,omitempty"`
	Status        string          `json:"status"`
	Fulfillment   string          `json:"fulfillment,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ResolvedAt    time.Time       `json:"resolved_at,omitzero"`
}

// Terminal reports whether the reservation has reached a terminal
// status.
func (r *Reservation) Terminal() bool {
	return r.Status == ReservationConfirmed || r.Status == ReservationRejected
}

// ReservationOutcome is the terminal record emitted exactly once per
// reservation id.  Seats is populated only for confirmed outcomes;
// Reason and Message only for rejected ones.
type ReservationOutcome struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	Seats         []SeatRef `json:"seats,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Message       string    `json:"message,omitempty"`
}
