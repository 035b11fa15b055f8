package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/coordinator"
	"github.com/eventhall/seat-reservation/internal/repository"
	"github.com/eventhall/seat-reservation/internal/store"
)

func newEventHandler(t *testing.T) (*EventHandler, *store.MemoryStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	mem := store.NewMemoryStore(nil)
	coord := coordinator.New(coordinator.Property{
		Logger:       logger,
		AreaStore:    mem,
		Reservations: repository.NewMemoryReservations(),
	})
	t.Cleanup(coord.Close)
	return NewEventHandler(coord), mem
}

const eventBody = `{
	"event_id": "ev1",
	"event_name": "Summer Run",
	"artist": "The Headliners",
	"reservation_open": "2026-06-01T12:00:00Z",
	"reservation_close": "2026-06-01T13:00:00Z",
	"event_start": "2026-06-01T14:00:00Z",
	"event_end": "2026-06-01T17:00:00Z",
	"areas": [{"area_id": "vip", "price": 5000, "row_count": 2, "col_count": 3}]
}`

func TestCreateEvent(t *testing.T) {
	t.Parallel()
	events, mem := newEventHandler(t)

	rec := postJSON(t, events.CreateEvent, "/v1/events", eventBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	status, err := mem.Read(context.Background(), "ev1", "vip")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if status.RowCount != 2 || status.ColCount != 3 || status.AvailableSeats != 6 {
		t.Fatalf("status = %+v", status)
	}
	if status.PriceCents != 5000 {
		t.Fatalf("price = %d, want 5000", status.PriceCents)
	}

	// Registering the same event twice collides on the area key.
	rec = postJSON(t, events.CreateEvent, "/v1/events", eventBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestCreateEventValidation(t *testing.T) {
	t.Parallel()
	events, _ := newEventHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing event id", `{"event_name":"Summer Run","reservation_open":"2026-06-01T12:00:00Z","reservation_close":"2026-06-01T13:00:00Z","event_start":"2026-06-01T14:00:00Z","event_end":"2026-06-01T17:00:00Z","areas":[{"area_id":"vip","row_count":1,"col_count":1}]}`},
		{"no areas", `{"event_id":"ev1","reservation_open":"2026-06-01T12:00:00Z","reservation_close":"2026-06-01T13:00:00Z","event_start":"2026-06-01T14:00:00Z","event_end":"2026-06-01T17:00:00Z","areas":[]}`},
		{"zero rows", `{"event_id":"ev1","reservation_open":"2026-06-01T12:00:00Z","reservation_close":"2026-06-01T13:00:00Z","event_start":"2026-06-01T14:00:00Z","event_end":"2026-06-01T17:00:00Z","areas":[{"area_id":"vip","row_count":0,"col_count":1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := postJSON(t, events.CreateEvent, "/v1/events", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}
