package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/model"
	"github.com/eventhall/seat-reservation/internal/store"
)

// ErrNotConfirmed is returned when a fulfillment operation targets a
// reservation that never reached the confirmed state.
var ErrNotConfirmed = errors.New("reservation is not confirmed")

// Cancel releases the seats of a confirmed reservation back to
// AVAILABLE.  This is the only path by which a claimed seat becomes
// available again.  The terminal reservation status is untouched;
// cancellation is tracked as a fulfillment marker.  Calling Cancel
// twice is a no-op.
func (c *Coordinator) Cancel(ctx context.Context, reservationID string) error {
	return c.fulfill(ctx, reservationID, model.FulfillmentCancelled, model.SeatAvailable)
}

// Complete marks the seats of a confirmed reservation SOLD, the
// purchase path of the lifecycle.  Calling Complete twice is a
// no-op.
func (c *Coordinator) Complete(ctx context.Context, reservationID string) error {
	return c.fulfill(ctx, reservationID, model.FulfillmentSold, model.SeatSold)
}

// fulfill rejects obvious misuse up front, then hands the real work
// to the partition worker.  The checks repeat inside the job: only
// there are they authoritative, because two fulfillment calls can
// pass this fast path concurrently.
func (c *Coordinator) fulfill(ctx context.Context, reservationID, marker, seatState string) error {
	rec, outcome, err := c.reservations.Get(ctx, reservationID)
	if err != nil {
		return err
	}
	if outcome == nil || rec.Status != model.ReservationConfirmed {
		return ErrNotConfirmed
	}
	if rec.Fulfillment == marker {
		return nil
	}
	if rec.Fulfillment != model.FulfillmentNone {
		return fmt.Errorf("reservation %s already fulfilled as %s", reservationID, rec.Fulfillment)
	}

	var opErr error
	key := model.AreaKey(rec.EventID, rec.AreaID)
	if err := c.dispatch(ctx, key, func() {
		opErr = c.applyFulfillment(reservationID, marker, seatState)
	}); err != nil {
		return err
	}
	return opErr
}

// applyFulfillment runs on the partition worker.  It re-reads the
// record so a racing fulfillment that won the queue is seen before
// anything is written.  The seats to touch come from the recorded
// outcome, which carries the granted selection for every strategy;
// only seats still RESERVED under this reservation are mutated, so a
// repeated or replayed call cannot steal a seat from a later
// reservation.
func (c *Coordinator) applyFulfillment(reservationID, marker, seatState string) error {
	ctx := context.Background()
	rec, outcome, err := c.reservations.Get(ctx, reservationID)
	if err != nil {
		return err
	}
	if outcome == nil || rec.Status != model.ReservationConfirmed {
		return ErrNotConfirmed
	}
	if rec.Fulfillment == marker {
		return nil
	}
	if rec.Fulfillment != model.FulfillmentNone {
		return fmt.Errorf("reservation %s already fulfilled as %s", reservationID, rec.Fulfillment)
	}
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		snapshot, err := c.areaStore.Read(ctx, rec.EventID, rec.AreaID)
		if err != nil {
			return fmt.Errorf("read area %s: %w", model.AreaKey(rec.EventID, rec.AreaID), err)
		}
		mutations := make([]model.SeatMutation, 0, len(outcome.Seats))
		for _, ref := range outcome.Seats {
			if !snapshot.InBounds(ref) {
				continue
			}
			seat := snapshot.SeatAt(ref)
			if seat.State != model.SeatReserved || seat.ReservationID != rec.ReservationID {
				continue
			}
			m := model.SeatMutation{Seat: ref, State: seatState}
			if seatState != model.SeatAvailable {
				m.ReservationID = rec.ReservationID
			}
			mutations = append(mutations, m)
		}
		if len(mutations) > 0 {
			next, err := c.areaStore.CompareAndApply(ctx, rec.EventID, rec.AreaID, snapshot.Version, mutations)
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			if err != nil {
				return fmt.Errorf("apply fulfillment for %s: %w", rec.ReservationID, err)
			}
			if c.snapshots != nil {
				c.snapshots.Put(ctx, next)
			}
		}
		rec.Fulfillment = marker
		if c.journal != nil {
			if err := c.journal.OutcomeRecorded(*rec, *outcome); err != nil {
				return fmt.Errorf("journal fulfillment for %s: %w", rec.ReservationID, err)
			}
		}
		if err := c.reservations.Put(ctx, rec, outcome); err != nil {
			return fmt.Errorf("record fulfillment for %s: %w", rec.ReservationID, err)
		}
		c.logger.WithFields(logrus.Fields{
			"reservation_id": rec.ReservationID,
			"fulfillment":    marker,
		}).Info("reservation fulfillment applied")
		return nil
	}
	return fmt.Errorf("%s: gave up after %d version conflicts", rec.ReservationID, c.maxAttempts)
}
