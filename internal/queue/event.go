// Package queue defines the message payloads and queue names used on
// the broker, plus the consumer and publisher that connect the
// reservation core to it.  Payloads are JSON; the broker carries the
// ordered intake stream and the outbound outcome stream.
package queue

import "github.com/eventhall/seat-reservation/internal/model"

// Queue names.  Requests arrive keyed by area on the request queue;
// outcomes leave on the outcome queue exactly once per reservation
// id.
const (
	RequestQueueName = "reservation.request"
	OutcomeQueueName = "reservation.outcome"
)

// ReservationRequest is the inbound payload asking for seats.  The
// reservation id is the caller's idempotency key; when it is empty
// the consumer generates one.  Seats is required only for the
// self_pick type.
type ReservationRequest struct {
	ReservationID string          `json:"reservation_id,omitempty"`
	UserID        string          `json:"user_id"`
	EventID       string          `json:"event_id"`
	AreaID        string          `json:"area_id"`
	NumSeats      int32           `json:"num_of_seats"`
	Type          string          `json:"reservation_type"`
	Seats         []model.SeatRef `json:"seats,omitempty"`
}
