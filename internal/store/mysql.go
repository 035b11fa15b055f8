package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/eventhall/seat-reservation/internal/model"
)

// MySQLStore is the durable implementation of AreaStateStore.  It
// persists each snapshot as a row in the area_status table with the
// seat grid serialized as JSON and the version held in its own
// column, so the conditional update becomes a single
// UPDATE ... WHERE version = ? statement.
//
// Expected schema:
//
//	CREATE TABLE area_status (
//	    event_id        VARCHAR(128)    NOT NULL,
//	    area_id         VARCHAR(128)    NOT NULL,
//	    price_cents     INT             NOT NULL,
//	    row_count       INT             NOT NULL,
//	    col_count       INT             NOT NULL,
//	    available_seats INT             NOT NULL,
//	    version         BIGINT UNSIGNED NOT NULL,
//	    grid            JSON            NOT NULL,
//	    updated_at      TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
//	    PRIMARY KEY (event_id, area_id)
//	);
type MySQLStore struct {
	db      *sql.DB
	journal Journal
}

// NewMySQLStore returns a MySQLStore bound to the given database.
// journal may be nil.
func NewMySQLStore(db *sql.DB, journal Journal) *MySQLStore {
	return &MySQLStore{db: db, journal: journal}
}

// Transient-failure retry bounds for the underlying driver.  The
// schedule doubles the delay on each attempt.
const (
	storeMaxAttempts  = 3
	storeInitialDelay = 10 * time.Millisecond
)

// withRetry runs fn up to storeMaxAttempts times, backing off between
// attempts.  Contract errors (not found, conflict, duplicate) abort
// immediately; only driver/connection failures are retried.
func withRetry(ctx context.Context, fn func() error) error {
	delay := storeInitialDelay
	var err error
	for attempt := 0; attempt < storeMaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrVersionConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// Read loads the snapshot for the area or returns ErrNotFound.
func (s *MySQLStore) Read(ctx context.Context, eventID, areaID string) (*model.AreaStatus, error) {
	var status *model.AreaStatus
	err := withRetry(ctx, func() error {
		var err error
		status, err = s.readRow(ctx, s.db, eventID, areaID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// queryer abstracts *sql.DB and *sql.Tx for row reads.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *MySQLStore) readRow(ctx context.Context, q queryer, eventID, areaID string, forUpdate bool) (*model.AreaStatus, error) {
	query := `SELECT event_id, area_id, price_cents, row_count, col_count, available_seats, version, grid
	          FROM area_status WHERE event_id = ? AND area_id = ?`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var status model.AreaStatus
	var grid []byte
	err := q.QueryRowContext(ctx, query, eventID, areaID).Scan(
		&status.EventID, &status.AreaID, &status.PriceCents,
		&status.RowCount, &status.ColCount, &status.AvailableSeats,
		&status.Version, &grid,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(grid, &status.Seats); err != nil {
		return nil, fmt.Errorf("decode grid for %s: %w", model.AreaKey(eventID, areaID), err)
	}
	return &status, nil
}

// Initialize inserts the area row at version zero.  A duplicate key
// maps to ErrAlreadyExists.
func (s *MySQLStore) Initialize(ctx context.Context, eventID string, area model.Area) (*model.AreaStatus, error) {
	status := model.NewAreaStatus(eventID, area)
	grid, err := json.Marshal(status.Seats)
	if err != nil {
		return nil, fmt.Errorf("encode grid: %w", err)
	}
	err = withRetry(ctx, func() error {
		if s.journal != nil {
			if jerr := s.journal.AreaInitialized(status); jerr != nil {
				return fmt.Errorf("journal init: %w", jerr)
			}
		}
		const q = `INSERT INTO area_status
		           (event_id, area_id, price_cents, row_count, col_count, available_seats, version, grid)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		_, execErr := s.db.ExecContext(ctx, q,
			status.EventID, status.AreaID, status.PriceCents,
			status.RowCount, status.ColCount, status.AvailableSeats,
			status.Version, grid,
		)
		var mysqlErr *mysql.MySQLError
		if errors.As(execErr, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrAlreadyExists
		}
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return status.Clone(), nil
}

// CompareAndApply locks the row, verifies the version, applies the
// batch and writes the new grid with version+1.  The journal append
// happens before the transaction commits, keeping the write-ahead
// ordering of the contract.
func (s *MySQLStore) CompareAndApply(ctx context.Context, eventID, areaID string, expectedVersion uint64, mutations []model.SeatMutation) (*model.AreaStatus, error) {
	var next *model.AreaStatus
	err := withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()
		current, err := s.readRow(ctx, tx, eventID, areaID, true)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}
		candidate := current.Clone()
		if err := candidate.Apply(mutations); err != nil {
			return fmt.Errorf("apply mutations for %s: %w", model.AreaKey(eventID, areaID), err)
		}
		candidate.Version = expectedVersion + 1
		grid, err := json.Marshal(candidate.Seats)
		if err != nil {
			return fmt.Errorf("encode grid: %w", err)
		}
		const q = `UPDATE area_status
		           SET available_seats = ?, version = ?, grid = ?
		           WHERE event_id = ? AND area_id = ? AND version = ?`
		res, err := tx.ExecContext(ctx, q,
			candidate.AvailableSeats, candidate.Version, grid,
			eventID, areaID, expectedVersion,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// The FOR UPDATE read should make this unreachable, but a
			// second guard keeps the version-skip invariant honest.
			return ErrVersionConflict
		}
		if s.journal != nil {
			if jerr := s.journal.MutationApplied(eventID, areaID, expectedVersion, mutations); jerr != nil {
				return fmt.Errorf("journal mutation: %w", jerr)
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		next = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}
