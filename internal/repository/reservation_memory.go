package repository

import (
	"context"
	"sync"

	"github.com/eventhall/seat-reservation/internal/model"
)

// MemoryReservations is the in-process reservation record store.  It
// hands out copies so callers can never mutate a stored record in
// place.
type MemoryReservations struct {
	mu       sync.RWMutex
	records  map[string]*model.Reservation
	outcomes map[string]*model.ReservationOutcome
}

// NewMemoryReservations returns an empty in-memory store.
func NewMemoryReservations() *MemoryReservations {
	return &MemoryReservations{
		records:  make(map[string]*model.Reservation),
		outcomes: make(map[string]*model.ReservationOutcome),
	}
}

// Get returns the record and, when the reservation is terminal, its
// outcome.  Unknown ids yield ErrReservationNotFound.
func (m *MemoryReservations) Get(ctx context.Context, reservationID string) (*model.Reservation, *model.ReservationOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[reservationID]
	if !ok {
		return nil, nil, ErrReservationNotFound
	}
	return copyRecord(rec), copyOutcome(m.outcomes[reservationID]), nil
}

// Put upserts the record and its outcome.  outcome may be nil while
// the reservation is still pending.
func (m *MemoryReservations) Put(ctx context.Context, reservation *model.Reservation, outcome *model.ReservationOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[reservation.ReservationID] = copyRecord(reservation)
	if outcome != nil {
		m.outcomes[outcome.ReservationID] = copyOutcome(outcome)
	}
	return nil
}

// Restore seeds the store from replayed state.  It is called during
// startup, before the store serves requests.
func (m *MemoryReservations) Restore(reservations map[string]*model.Reservation, outcomes map[string]*model.ReservationOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range reservations {
		m.records[id] = copyRecord(rec)
	}
	for id, out := range outcomes {
		m.outcomes[id] = copyOutcome(out)
	}
}

func copyRecord(rec *model.Reservation) *model.Reservation {
	cp := *rec
	cp.RequestSeats = append([]model.SeatRef(nil), rec.RequestSeats...)
	return &cp
}

func copyOutcome(out *model.ReservationOutcome) *model.ReservationOutcome {
	if out == nil {
		return nil
	}
	cp := *out
	cp.Seats = append([]model.SeatRef(nil), out.Seats...)
	return &cp
}
