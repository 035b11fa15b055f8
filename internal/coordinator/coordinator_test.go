package coordinator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/model"
	"github.com/eventhall/seat-reservation/internal/repository"
	"github.com/eventhall/seat-reservation/internal/store"
)

func testEvent(areas ...model.Area) *model.Event {
	now := time.Now().UTC()
	return &model.Event{
		EventID:          "ev1",
		EventName:        "Summer Run",
		Artist:           "The Headliners",
		ReservationOpen:  now,
		ReservationClose: now.Add(time.Hour),
		StartTime:        now.Add(2 * time.Hour),
		EndTime:          now.Add(5 * time.Hour),
		Areas:            areas,
	}
}

func newTestCoordinator(t *testing.T, areas ...model.Area) (*Coordinator, *store.MemoryStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	mem := store.NewMemoryStore(nil)
	c := New(Property{
		Logger:       logger,
		AreaStore:    mem,
		Reservations: repository.NewMemoryReservations(),
	})
	t.Cleanup(c.Close)
	if len(areas) > 0 {
		if err := c.RegisterEvent(context.Background(), testEvent(areas...)); err != nil {
			t.Fatalf("RegisterEvent: %v", err)
		}
	}
	return c, mem
}

func reservation(id string, resType model.ReservationType, numSeats int32, seats ...model.SeatRef) *model.Reservation {
	return &model.Reservation{
		ReservationID: id,
		UserID:        "u1",
		EventID:       "ev1",
		AreaID:        "vip",
		NumSeats:      numSeats,
		Type:          resType,
		RequestSeats:  seats,
	}
}

func TestSubmitSelfPickConfirms(t *testing.T) {
	t.Parallel()
	c, mem := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 2})
	ctx := context.Background()

	outcome, err := c.Submit(ctx, reservation("r1", model.SelfPick, 2,
		model.SeatRef{Row: 0, Col: 0}, model.SeatRef{Row: 0, Col: 1}))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Status != model.ReservationConfirmed {
		t.Fatalf("status = %s, want CONFIRMED (%s)", outcome.Status, outcome.Message)
	}
	if len(outcome.Seats) != 2 {
		t.Fatalf("got %d seats, want 2", len(outcome.Seats))
	}

	status, err := mem.Read(ctx, "ev1", "vip")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if status.Version != 1 || status.AvailableSeats != 0 {
		t.Fatalf("version = %d, available = %d", status.Version, status.AvailableSeats)
	}
	for _, ref := range outcome.Seats {
		seat := status.SeatAt(ref)
		if seat.State != model.SeatReserved || seat.ReservationID != "r1" {
			t.Fatalf("seat %v = %+v", ref, seat)
		}
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	t.Parallel()
	c, mem := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 2, ColCount: 2})
	ctx := context.Background()

	first, err := c.Submit(ctx, reservation("r1", model.Random, 2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := c.Submit(ctx, reservation("r1", model.Random, 2))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.Status != first.Status || len(second.Seats) != len(first.Seats) {
		t.Fatalf("resubmission changed the outcome: %+v vs %+v", first, second)
	}

	status, _ := mem.Read(ctx, "ev1", "vip")
	if status.Version != 1 {
		t.Fatalf("resubmission touched area state, version = %d", status.Version)
	}
}

func TestSubmitSeatAlreadyTaken(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 2})
	ctx := context.Background()

	pick := []model.SeatRef{{Row: 0, Col: 0}, {Row: 0, Col: 1}}
	if out, err := c.Submit(ctx, reservation("r1", model.SelfPick, 2, pick...)); err != nil || out.Status != model.ReservationConfirmed {
		t.Fatalf("first submit: %v %+v", err, out)
	}
	out, err := c.Submit(ctx, reservation("r2", model.SelfPick, 2, pick...))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if out.Status != model.ReservationRejected || out.Reason != model.ReasonSeatUnavailable {
		t.Fatalf("outcome = %+v, want SEAT_UNAVAILABLE rejection", out)
	}
}

func TestSubmitInsufficientCapacity(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 1})
	ctx := context.Background()

	first, err := c.Submit(ctx, reservation("r1", model.Random, 1))
	if err != nil || first.Status != model.ReservationConfirmed {
		t.Fatalf("first submit: %v %+v", err, first)
	}
	second, err := c.Submit(ctx, reservation("r2", model.Random, 1))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.Status != model.ReservationRejected || second.Reason != model.ReasonInsufficientCapacity {
		t.Fatalf("outcome = %+v, want INSUFFICIENT_CAPACITY rejection", second)
	}
}

func TestSubmitUnknownArea(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 1})
	ctx := context.Background()

	req := reservation("r1", model.Random, 1)
	req.AreaID = "balcony"
	out, err := c.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != model.ReservationRejected || out.Reason != model.ReasonUnknownArea {
		t.Fatalf("outcome = %+v, want UNKNOWN_AREA rejection", out)
	}
}

func TestSubmitInvalidType(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 1})

	out, err := c.Submit(context.Background(), reservation("r1", model.ReservationType("vip_queue"), 1))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != model.ReservationRejected || out.Reason != model.ReasonInvalidRequest {
		t.Fatalf("outcome = %+v, want INVALID_REQUEST rejection", out)
	}
}

func TestConcurrentSubmitsNeverOverlap(t *testing.T) {
	t.Parallel()
	const requests = 8
	c, mem := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 4, ColCount: 4})
	ctx := context.Background()

	outcomes := make([]*model.ReservationOutcome, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := c.Submit(ctx, reservation(fmt.Sprintf("r%d", i), model.Random, 2))
			if err != nil {
				t.Errorf("Submit r%d: %v", i, err)
				return
			}
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	claimed := make(map[model.SeatRef]string)
	for i, out := range outcomes {
		if out == nil || out.Status != model.ReservationConfirmed {
			t.Fatalf("request %d not confirmed: %+v", i, out)
		}
		for _, ref := range out.Seats {
			if owner, taken := claimed[ref]; taken {
				t.Fatalf("seat %v granted to both %s and %s", ref, owner, out.ReservationID)
			}
			claimed[ref] = out.ReservationID
		}
	}

	status, _ := mem.Read(ctx, "ev1", "vip")
	if status.Version != requests {
		t.Fatalf("version = %d, want %d", status.Version, requests)
	}
	if err := status.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestCancelReleasesSeats(t *testing.T) {
	t.Parallel()
	c, mem := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 2})
	ctx := context.Background()

	out, err := c.Submit(ctx, reservation("r1", model.Random, 2))
	if err != nil || out.Status != model.ReservationConfirmed {
		t.Fatalf("Submit: %v %+v", err, out)
	}
	if err := c.Cancel(ctx, "r1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	// Repeating the cancellation is a no-op.
	if err := c.Cancel(ctx, "r1"); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}

	status, _ := mem.Read(ctx, "ev1", "vip")
	if status.AvailableSeats != 2 {
		t.Fatalf("available = %d, want 2", status.AvailableSeats)
	}
	rec, err := c.GetReservation(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if rec.Status != model.ReservationConfirmed || rec.Fulfillment != model.FulfillmentCancelled {
		t.Fatalf("record = %+v", rec)
	}

	// The released seats can be claimed again.
	next, err := c.Submit(ctx, reservation("r2", model.Random, 2))
	if err != nil || next.Status != model.ReservationConfirmed {
		t.Fatalf("reclaim: %v %+v", err, next)
	}
}

func TestCompleteMarksSeatsSold(t *testing.T) {
	t.Parallel()
	c, mem := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 2})
	ctx := context.Background()

	out, err := c.Submit(ctx, reservation("r1", model.Random, 1))
	if err != nil || out.Status != model.ReservationConfirmed {
		t.Fatalf("Submit: %v %+v", err, out)
	}
	if err := c.Complete(ctx, "r1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	status, _ := mem.Read(ctx, "ev1", "vip")
	seat := status.SeatAt(out.Seats[0])
	if seat.State != model.SeatSold || seat.ReservationID != "r1" {
		t.Fatalf("seat = %+v", seat)
	}

	// A sold reservation cannot be cancelled afterwards.
	if err := c.Cancel(ctx, "r1"); err == nil {
		t.Fatal("expected error cancelling a sold reservation")
	}
}

func TestCancelReleasesComputedSelection(t *testing.T) {
	t.Parallel()
	// A confirmed record for a computed strategy carries no explicit
	// request seats; the release must follow the seats the outcome
	// granted.  The store state here mirrors a backend that persisted
	// the record at submission time, before any seats were assigned.
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ctx := context.Background()

	mem := store.NewMemoryStore(nil)
	if _, err := mem.Initialize(ctx, "ev1", model.Area{AreaID: "vip", RowCount: 1, ColCount: 2}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	granted := []model.SeatRef{{Row: 0, Col: 0}, {Row: 0, Col: 1}}
	muts := make([]model.SeatMutation, len(granted))
	for i, ref := range granted {
		muts[i] = model.SeatMutation{Seat: ref, State: model.SeatReserved, ReservationID: "r1"}
	}
	if _, err := mem.CompareAndApply(ctx, "ev1", "vip", 0, muts); err != nil {
		t.Fatalf("CompareAndApply: %v", err)
	}

	res := repository.NewMemoryReservations()
	res.Restore(
		map[string]*model.Reservation{"r1": {
			ReservationID: "r1", UserID: "u1", EventID: "ev1", AreaID: "vip",
			NumSeats: 2, Type: model.Random, Status: model.ReservationConfirmed,
		}},
		map[string]*model.ReservationOutcome{"r1": {
			ReservationID: "r1", Status: model.ReservationConfirmed, Seats: granted,
		}},
	)

	c := New(Property{Logger: logger, AreaStore: mem, Reservations: res})
	t.Cleanup(c.Close)

	if err := c.Cancel(ctx, "r1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	status, _ := mem.Read(ctx, "ev1", "vip")
	if status.AvailableSeats != 2 {
		t.Fatalf("available = %d, want 2 (granted seats were not released)", status.AvailableSeats)
	}
	rec, _, err := res.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Fulfillment != model.FulfillmentCancelled {
		t.Fatalf("fulfillment = %q, want CANCELLED", rec.Fulfillment)
	}
}

func TestConcurrentCancelAndComplete(t *testing.T) {
	t.Parallel()
	c, mem := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 2})
	ctx := context.Background()

	out, err := c.Submit(ctx, reservation("r1", model.Random, 2))
	if err != nil || out.Status != model.ReservationConfirmed {
		t.Fatalf("Submit: %v %+v", err, out)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = c.Cancel(ctx, "r1") }()
	go func() { defer wg.Done(); _ = c.Complete(ctx, "r1") }()
	wg.Wait()

	// Exactly one marker wins, and the grid must agree with it.
	rec, err := c.GetReservation(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	status, _ := mem.Read(ctx, "ev1", "vip")
	switch rec.Fulfillment {
	case model.FulfillmentCancelled:
		if status.AvailableSeats != 2 {
			t.Fatalf("record CANCELLED but available = %d", status.AvailableSeats)
		}
	case model.FulfillmentSold:
		for _, ref := range out.Seats {
			if got := status.SeatAt(ref); got.State != model.SeatSold {
				t.Fatalf("record SOLD but seat %v = %+v", ref, got)
			}
		}
	default:
		t.Fatalf("fulfillment = %q, want CANCELLED or SOLD", rec.Fulfillment)
	}
	if err := status.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestCloseDuringSubmitDoesNotPanic(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 8, ColCount: 8})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				// Errors are expected once the coordinator closes; a
				// panic is not.
				_, _ = c.Submit(ctx, reservation(fmt.Sprintf("r%d-%d", i, j), model.Random, 1))
			}
		}(i)
	}
	c.Close()
	wg.Wait()
}

func TestFulfillmentRequiresConfirmedReservation(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t, model.Area{AreaID: "vip", RowCount: 1, ColCount: 1})
	ctx := context.Background()

	if err := c.Cancel(ctx, "ghost"); err == nil {
		t.Fatal("expected error for unknown reservation")
	}

	req := reservation("r1", model.Random, 5) // more than capacity, rejected
	if out, err := c.Submit(ctx, req); err != nil || out.Status != model.ReservationRejected {
		t.Fatalf("Submit: %v %+v", err, out)
	}
	if err := c.Complete(ctx, "r1"); err != ErrNotConfirmed {
		t.Fatalf("Complete err = %v, want ErrNotConfirmed", err)
	}
}
