package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eventhall/seat-reservation/internal/coordinator"
	"github.com/eventhall/seat-reservation/internal/model"
	"github.com/eventhall/seat-reservation/internal/repository"
)

// ReservationHandler exposes the reservation lifecycle over HTTP:
// submission, lookup, cancellation and purchase completion.  The
// reservation id doubles as the idempotency key, so clients that
// retry a POST with the same id always receive the originally recorded
// outcome.
type ReservationHandler struct {
	Coordinator *coordinator.Coordinator
	Validate    *validator.Validate
}

// NewReservationHandler constructs a ReservationHandler.  The
// coordinator must be non-nil.
func NewReservationHandler(coord *coordinator.Coordinator) *ReservationHandler {
	if coord == nil {
		panic("nil coordinator passed to NewReservationHandler")
	}
	return &ReservationHandler{Coordinator: coord, Validate: validator.New()}
}

// createReservationRequest is the JSON body of POST /v1/reservations.
// Seats is required for self_pick and must be empty for the computed
// strategies; the strategy layer enforces that, the handler only
// checks shape.
type createReservationRequest struct {
	ReservationID string          `json:"reservation_id"`
	UserID        string          `json:"user_id" validate:"required"`
	EventID       string          `json:"event_id" validate:"required"`
	AreaID        string          `json:"area_id" validate:"required"`
	NumSeats      int32           `json:"num_of_seats" validate:"required,gt=0"`
	Type          string          `json:"reservation_type" validate:"required"`
	Seats         []model.SeatRef `json:"seats,omitempty"`
}

// CreateReservation handles POST /v1/reservations.  It runs the
// request to a terminal outcome and returns it: 200 with the outcome
// for both confirmed and rejected reservations (a rejection is a valid
// answer, not a transport failure).  A missing reservation_id is
// filled with a fresh UUID.  Storage failures return 500 and leave the
// reservation resubmittable under the same id.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	resType, err := model.ParseReservationType(body.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if body.ReservationID == "" {
		body.ReservationID = uuid.NewString()
	}

	req := &model.Reservation{
		ReservationID: body.ReservationID,
		UserID:        body.UserID,
		EventID:       body.EventID,
		AreaID:        body.AreaID,
		NumSeats:      body.NumSeats,
		Type:          resType,
		RequestSeats:  body.Seats,
		CreatedAt:     time.Now().UTC(),
	}
	outcome, err := h.Coordinator.Submit(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process reservation"})
	}
	return c.JSON(http.StatusOK, outcome)
}

// GetReservation handles GET /v1/reservations/:id and returns the
// lifecycle record, including its fulfillment marker when present.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation id is required"})
	}
	rec, err := h.Coordinator.GetReservation(c.Request().Context(), id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation"})
	}
	return c.JSON(http.StatusOK, rec)
}

// CancelReservation handles POST /v1/reservations/:id/cancel.  The
// seats still held by the reservation are released back to AVAILABLE;
// repeating the call is a no-op.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	return h.fulfill(c, h.Coordinator.Cancel)
}

// CompleteReservation handles POST /v1/reservations/:id/complete and
// marks the reserved seats SOLD.
func (h *ReservationHandler) CompleteReservation(c echo.Context) error {
	return h.fulfill(c, h.Coordinator.Complete)
}

func (h *ReservationHandler) fulfill(c echo.Context, op func(ctx context.Context, id string) error) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation id is required"})
	}
	err := op(c.Request().Context(), id)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"reservation_id": id})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, coordinator.ErrNotConfirmed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not confirmed"})
	default:
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
}
