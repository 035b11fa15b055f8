package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/eventhall/seat-reservation/internal/model"
)

// MySQLReservations persists reservation records in the reservations
// table.  The outcome is denormalized onto the row: the reservation
// id is the idempotency key, so record and outcome always live and
// die together.
//
// Expected schema:
//
//	CREATE TABLE reservations (
//	    reservation_id   VARCHAR(64)  NOT NULL,
//	    user_id          VARCHAR(128) NOT NULL,
//	    event_id         VARCHAR(128) NOT NULL,
//	    area_id          VARCHAR(128) NOT NULL,
//	    num_seats        INT          NOT NULL,
//	    reservation_type VARCHAR(32)  NOT NULL,
//	    status           VARCHAR(16)  NOT NULL,
//	    fulfillment      VARCHAR(16)  NOT NULL DEFAULT '',
//	    reason           VARCHAR(64)  NULL,
//	    message          TEXT         NULL,
//	    request_seats    JSON         NOT NULL,
//	    outcome_seats    JSON         NULL,
//	    created_at       DATETIME     NOT NULL,
//	    resolved_at      DATETIME     NULL,
//	    PRIMARY KEY (reservation_id)
//	);
type MySQLReservations struct {
	db *sql.DB
}

// NewMySQLReservations returns a MySQLReservations bound to the given
// database.
func NewMySQLReservations(db *sql.DB) *MySQLReservations {
	return &MySQLReservations{db: db}
}

// Get loads the record for the reservation id.  The outcome is
// reconstructed from the row when the status is terminal.
func (r *MySQLReservations) Get(ctx context.Context, reservationID string) (*model.Reservation, *model.ReservationOutcome, error) {
	const q = `SELECT reservation_id, user_id, event_id, area_id, num_seats, reservation_type,
	                  status, fulfillment, reason, message, request_seats, outcome_seats,
	                  created_at, resolved_at
	           FROM reservations WHERE reservation_id = ?`
	var (
		rec          model.Reservation
		reason       sql.NullString
		message      sql.NullString
		requestSeats []byte
		outcomeSeats []byte
		resolvedAt   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, reservationID).Scan(
		&rec.ReservationID, &rec.UserID, &rec.EventID, &rec.AreaID,
		&rec.NumSeats, &rec.Type, &rec.Status, &rec.Fulfillment,
		&reason, &message, &requestSeats, &outcomeSeats,
		&rec.CreatedAt, &resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(requestSeats, &rec.RequestSeats); err != nil {
		return nil, nil, fmt.Errorf("decode request seats for %s: %w", reservationID, err)
	}
	if resolvedAt.Valid {
		rec.ResolvedAt = resolvedAt.Time.UTC()
	}
	if !rec.Terminal() {
		return &rec, nil, nil
	}
	outcome := &model.ReservationOutcome{
		ReservationID: rec.ReservationID,
		Status:        rec.Status,
		Reason:        reason.String,
		Message:       message.String,
	}
	if len(outcomeSeats) > 0 {
		if err := json.Unmarshal(outcomeSeats, &outcome.Seats); err != nil {
			return nil, nil, fmt.Errorf("decode outcome seats for %s: %w", reservationID, err)
		}
	}
	return &rec, outcome, nil
}

// Put upserts the record and its (possibly nil) outcome in a single
// statement.  The upsert exists for the pending to terminal transition
// and for fulfillment markers; the coordinator never rewrites a
// terminal status with a different one.
func (r *MySQLReservations) Put(ctx context.Context, reservation *model.Reservation, outcome *model.ReservationOutcome) error {
	requestSeats, err := json.Marshal(reservation.RequestSeats)
	if err != nil {
		return fmt.Errorf("encode request seats for %s: %w", reservation.ReservationID, err)
	}
	var reason, message sql.NullString
	var outcomeSeats []byte
	if outcome != nil {
		if outcome.Reason != "" {
			reason = sql.NullString{String: outcome.Reason, Valid: true}
		}
		if outcome.Message != "" {
			message = sql.NullString{String: outcome.Message, Valid: true}
		}
		if len(outcome.Seats) > 0 {
			outcomeSeats, err = json.Marshal(outcome.Seats)
			if err != nil {
				return fmt.Errorf("encode outcome seats for %s: %w", reservation.ReservationID, err)
			}
		}
	}
	var resolvedAt sql.NullTime
	if !reservation.ResolvedAt.IsZero() {
		resolvedAt = sql.NullTime{Time: reservation.ResolvedAt.UTC(), Valid: true}
	}
	const q = `INSERT INTO reservations
	           (reservation_id, user_id, event_id, area_id, num_seats, reservation_type,
	            status, fulfillment, reason, message, request_seats, outcome_seats,
	            created_at, resolved_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	               status = VALUES(status),
	               fulfillment = VALUES(fulfillment),
	               reason = VALUES(reason),
	               message = VALUES(message),
	               request_seats = VALUES(request_seats),
	               outcome_seats = VALUES(outcome_seats),
	               resolved_at = VALUES(resolved_at)`
	_, err = r.db.ExecContext(ctx, q,
		reservation.ReservationID, reservation.UserID, reservation.EventID, reservation.AreaID,
		reservation.NumSeats, reservation.Type, reservation.Status, reservation.Fulfillment,
		reason, message, requestSeats, outcomeSeats,
		reservation.CreatedAt.UTC(), resolvedAt,
	)
	return err
}
