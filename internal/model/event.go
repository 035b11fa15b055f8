package model

import (
	"errors"
	"fmt"
	"time"
)

// Area describes a rectangular seating block that is sold as a unit
// within an event.  Every seat in the area shares the same price.
// The grid is addressed by zero-based (row, col) coordinates; the
// capacity of the area is RowCount*ColCount.
//
// Fields:
//
//	AreaID     – identifier, unique within the owning event.
//	PriceCents – price per seat in cents.
//	RowCount   – number of rows in the grid.
//	ColCount   – number of columns in the grid.
type Area struct {
	AreaID     string `json:"area_id"`
	PriceCents int32  `json:"price"`
	RowCount   int32  `json:"row_count"`
	ColCount   int32  `json:"col_count"`
}

// Capacity returns the total number of seats in the area.
func (a Area) Capacity() int32 { return a.RowCount * a.ColCount }

// Event is a ticketed event with one or more seating areas.  Events
// are immutable once created: the area list, the reservation window
// and the show window never change after registration.
//
// Fields:
//
//	EventID          – identifier of the event (also used as partition
//	                   key prefix for area state).
//	EventName        – human-readable name of the event.
//	Artist           – performing artist or act.
//	ReservationOpen  – instant at which reservations open.
//	ReservationClose – instant at which reservations close.
//	StartTime        – show start.
//	EndTime          – show end.
//	Areas            – ordered seating areas.
type Event struct {
	EventID          string    `json:"event_id"`
	EventName        string    `json:"event_name"`
	Artist           string    `json:"artist"`
	ReservationOpen  time.Time `json:"reservation_open"`
	ReservationClose time.Time `json:"reservation_close"`
	StartTime        time.Time `json:"event_start"`
	EndTime          time.Time `json:"event_end"`
	Areas            []Area    `json:"areas"`
}

// ErrNoAreas is returned when an event is registered without any
// seating areas.
var ErrNoAreas = errors.New("event has no areas")

// Validate checks the structural invariants of an event: at least one
// area, unique area identifiers, positive grid dimensions and
// consistent time windows.  It returns nil when the event is well
// formed.
func (e *Event) Validate() error {
	if e.EventID == "" {
		return errors.New("event id is required")
	}
	if len(e.Areas) == 0 {
		return ErrNoAreas
	}
	seen := make(map[string]struct{}, len(e.Areas))
	for _, a := range e.Areas {
		if a.AreaID == "" {
			return errors.New("area id is required")
		}
		if _, dup := seen[a.AreaID]; dup {
			return fmt.Errorf("duplicate area id %q", a.AreaID)
		}
		seen[a.AreaID] = struct{}{}
		if a.RowCount < 1 || a.ColCount < 1 {
			return fmt.Errorf("area %q has invalid grid %dx%d", a.AreaID, a.RowCount, a.ColCount)
		}
	}
	if !e.ReservationClose.After(e.ReservationOpen) {
		return errors.New("reservation window must close after it opens")
	}
	if !e.EndTime.After(e.StartTime) {
		return errors.New("event must end after it starts")
	}
	return nil
}
