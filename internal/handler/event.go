package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eventhall/seat-reservation/internal/coordinator"
	"github.com/eventhall/seat-reservation/internal/model"
	"github.com/eventhall/seat-reservation/internal/store"
)

// EventHandler exposes event registration.  Events are immutable once
// created, so the surface is intentionally small: one POST to register
// an event together with all of its seating areas.
type EventHandler struct {
	Coordinator *coordinator.Coordinator
	Validate    *validator.Validate
}

// NewEventHandler constructs an EventHandler.  The coordinator must be
// non-nil.
func NewEventHandler(coord *coordinator.Coordinator) *EventHandler {
	if coord == nil {
		panic("nil coordinator passed to NewEventHandler")
	}
	return &EventHandler{Coordinator: coord, Validate: validator.New()}
}

// createEventRequest is the JSON body of POST /v1/events.
type createEventRequest struct {
	EventID          string              `json:"event_id" validate:"required"`
	EventName        string              `json:"event_name"`
	Artist           string              `json:"artist"`
	ReservationOpen  time.Time           `json:"reservation_open" validate:"required"`
	ReservationClose time.Time           `json:"reservation_close" validate:"required"`
	StartTime        time.Time           `json:"event_start" validate:"required"`
	EndTime          time.Time           `json:"event_end" validate:"required"`
	Areas            []createAreaRequest `json:"areas" validate:"required,min=1,dive"`
}

type createAreaRequest struct {
	AreaID     string `json:"area_id" validate:"required"`
	PriceCents int32  `json:"price" validate:"gte=0"`
	RowCount   int32  `json:"row_count" validate:"required,gt=0"`
	ColCount   int32  `json:"col_count" validate:"required,gt=0"`
}

// CreateEvent handles POST /v1/events.  It registers the event and
// initializes one empty seat grid per area.  Registering an event whose
// areas already exist returns 409 Conflict; malformed bodies return
// 400 with the validation error.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var body createEventRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ev := &model.Event{
		EventID:          body.EventID,
		EventName:        body.EventName,
		Artist:           body.Artist,
		ReservationOpen:  body.ReservationOpen,
		ReservationClose: body.ReservationClose,
		StartTime:        body.StartTime,
		EndTime:          body.EndTime,
	}
	for _, a := range body.Areas {
		ev.Areas = append(ev.Areas, model.Area{
			AreaID:     a.AreaID,
			PriceCents: a.PriceCents,
			RowCount:   a.RowCount,
			ColCount:   a.ColCount,
		})
	}

	if err := h.Coordinator.RegisterEvent(c.Request().Context(), ev); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event already exists"})
		case errors.Is(err, store.ErrStorage):
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"event_id": ev.EventID,
		"areas":    len(ev.Areas),
	})
}
