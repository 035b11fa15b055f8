package model

import (
	"testing"
	"time"
)

func TestParseReservationType(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want ReservationType
		ok   bool
	}{
		{"self_pick", SelfPick, true},
		{"SelfPick", SelfPick, true},
		{"random", Random, true},
		{"continuous_random", ContinuousRandom, true},
		{"ContinuousRandom", ContinuousRandom, true},
		{" random ", Random, true},
		{"front_row", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseReservationType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseReservationType(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseReservationType(%q) accepted invalid input", tc.in)
		}
	}
}

func TestReservationTerminal(t *testing.T) {
	t.Parallel()
	r := &Reservation{Status: ReservationPending}
	if r.Terminal() {
		t.Error("pending reservation reported terminal")
	}
	r.Status = ReservationConfirmed
	if !r.Terminal() {
		t.Error("confirmed reservation not terminal")
	}
	r.Status = ReservationRejected
	if !r.Terminal() {
		t.Error("rejected reservation not terminal")
	}
}

func validEvent() *Event {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Event{
		EventID:          "ev1",
		EventName:        "Summer Run",
		Artist:           "The Headliners",
		ReservationOpen:  now,
		ReservationClose: now.Add(time.Hour),
		StartTime:        now.Add(2 * time.Hour),
		EndTime:          now.Add(5 * time.Hour),
		Areas:            []Area{{AreaID: "vip", RowCount: 2, ColCount: 3}},
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	if err := validEvent().Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Event)
	}{
		{"missing id", func(e *Event) { e.EventID = "" }},
		{"no areas", func(e *Event) { e.Areas = nil }},
		{"duplicate area id", func(e *Event) { e.Areas = append(e.Areas, e.Areas[0]) }},
		{"zero rows", func(e *Event) { e.Areas[0].RowCount = 0 }},
		{"negative cols", func(e *Event) { e.Areas[0].ColCount = -1 }},
		{"inverted reservation window", func(e *Event) { e.ReservationClose = e.ReservationOpen }},
		{"inverted show window", func(e *Event) { e.EndTime = e.StartTime.Add(-time.Hour) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev := validEvent()
			tc.mutate(ev)
			if err := ev.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
