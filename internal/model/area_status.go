package model

import "fmt"

// SeatState enumerates the lifecycle of a single seat.  A seat
// transitions AVAILABLE→RESERVED when an allocation is committed,
// RESERVED→SOLD when the reservation is completed, and
// RESERVED→AVAILABLE only through the explicit cancellation path.
const (
	SeatAvailable = "AVAILABLE" // seat can be allocated
	SeatReserved  = "RESERVED"  // seat is held by a confirmed reservation
	SeatSold      = "SOLD"      // seat has been paid for
)

// SeatRef addresses one seat inside an area grid by zero-based row
// and column.
type SeatRef struct {
	Row int32 `json:"row"`
	Col int32 `json:"col"`
}

// SeatStatus is the state of a single seat within an area snapshot.
// ReservationID is empty while the seat is available and otherwise
// names the reservation that claims the seat.
type SeatStatus struct {
	Row           int32  `json:"row"`
	Col           int32  `json:"col"`
	State         string `json:"state"`
	ReservationID string `json:"reservation_id,omitempty"`
}

// SeatMutation describes one seat-state change requested through the
// store's conditional update.  All mutations in a batch are applied
// atomically or not at all.
type SeatMutation struct {
	Seat          SeatRef `json:"seat"`
	State         string  `json:"state"`
	ReservationID string  `json:"reservation_id,omitempty"`
}

// AreaStatus is a versioned snapshot of one area's full seat grid.
// The Version field is the concurrency token: every accepted mutation
// must present the version it read and bumps the stored version by
// exactly one.  AvailableSeats caches the number of AVAILABLE seats
// so strategies can reject oversized requests without scanning.
type AreaStatus struct {
	EventID        string         `json:"event_id"`
	AreaID         string         `json:"area_id"`
	PriceCents     int32          `json:"price"`
	RowCount       int32          `json:"row_count"`
	ColCount       int32          `json:"col_count"`
	AvailableSeats int32          `json:"available_seats"`
	Version        uint64         `json:"version"`
	Seats          [][]SeatStatus `json:"seats"`
}

// AreaKey builds the partition key under which an area's state is
// stored and its mutations are serialized.
func AreaKey(eventID, areaID string) string { return eventID + ":" + areaID }

// NewAreaStatus builds the initial snapshot for an area: every seat
// AVAILABLE, version zero.
func NewAreaStatus(eventID string, area Area) *AreaStatus {
	seats := make([][]SeatStatus, area.RowCount)
	for r := int32(0); r < area.RowCount; r++ {
		row := make([]SeatStatus, area.ColCount)
		for c := int32(0); c < area.ColCount; c++ {
			row[c] = SeatStatus{Row: r, Col: c, State: SeatAvailable}
		}
		seats[r] = row
	}
	return &AreaStatus{
		EventID:        eventID,
		AreaID:         area.AreaID,
		PriceCents:     area.PriceCents,
		RowCount:       area.RowCount,
		ColCount:       area.ColCount,
		AvailableSeats: area.Capacity(),
		Version:        0,
		Seats:          seats,
	}
}

// Clone returns a deep copy of the snapshot.  Stores hand out clones
// so callers can never reach the shared grid through a snapshot.
func (s *AreaStatus) Clone() *AreaStatus {
	cp := *s
	cp.Seats = make([][]SeatStatus, len(s.Seats))
	for i, row := range s.Seats {
		cp.Seats[i] = make([]SeatStatus, len(row))
		copy(cp.Seats[i], row)
	}
	return &cp
}

// InBounds reports whether the seat reference falls inside the grid.
func (s *AreaStatus) InBounds(ref SeatRef) bool {
	return ref.Row >= 0 && ref.Row < s.RowCount && ref.Col >= 0 && ref.Col < s.ColCount
}

// SeatAt returns the status of the seat at ref.  Callers must check
// bounds first.
func (s *AreaStatus) SeatAt(ref SeatRef) SeatStatus {
	return s.Seats[ref.Row][ref.Col]
}

// Apply applies a batch of mutations in place and recomputes the
// available-seat count.  It validates bounds and rejects the whole
// batch on the first invalid reference, leaving the snapshot
// untouched.  Apply does not bump the version; the owning store does
// that as part of its conditional-update contract.
func (s *AreaStatus) Apply(mutations []SeatMutation) error {
	for _, m := range mutations {
		if !s.InBounds(m.Seat) {
			return fmt.Errorf("seat out of bounds: row %d, col %d", m.Seat.Row, m.Seat.Col)
		}
		switch m.State {
		case SeatAvailable, SeatReserved, SeatSold:
		default:
			return fmt.Errorf("unknown seat state %q", m.State)
		}
	}
	for _, m := range mutations {
		cell := &s.Seats[m.Seat.Row][m.Seat.Col]
		if cell.State == SeatAvailable && m.State != SeatAvailable {
			s.AvailableSeats--
		}
		if cell.State != SeatAvailable && m.State == SeatAvailable {
			s.AvailableSeats++
		}
		cell.State = m.State
		cell.ReservationID = m.ReservationID
		if m.State == SeatAvailable {
			cell.ReservationID = ""
		}
	}
	return nil
}

// CheckInvariants verifies the structural guarantees of the snapshot:
// the cached available count matches the grid, claimed seats never
// exceed capacity and no seat is claimed without a reservation id.
// It is used by tests and by replay verification.
func (s *AreaStatus) CheckInvariants() error {
	var available, claimed int32
	for _, row := range s.Seats {
		for _, seat := range row {
			switch seat.State {
			case SeatAvailable:
				available++
				if seat.ReservationID != "" {
					return fmt.Errorf("available seat (%d,%d) carries reservation %q", seat.Row, seat.Col, seat.ReservationID)
				}
			case SeatReserved, SeatSold:
				claimed++
				if seat.ReservationID == "" {
					return fmt.Errorf("claimed seat (%d,%d) has no reservation id", seat.Row, seat.Col)
				}
			default:
				return fmt.Errorf("seat (%d,%d) in unknown state %q", seat.Row, seat.Col, seat.State)
			}
		}
	}
	if available != s.AvailableSeats {
		return fmt.Errorf("available count %d does not match grid count %d", s.AvailableSeats, available)
	}
	if claimed > s.RowCount*s.ColCount {
		return fmt.Errorf("claimed seats %d exceed capacity %d", claimed, s.RowCount*s.ColCount)
	}
	return nil
}
