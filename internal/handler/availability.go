package handler // availability.go contains the customer-facing availability and booking handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tavolo/restaurant-reservation/internal/queue"
	"github.com/tavolo/restaurant-reservation/internal/repository"
	"github.com/tavolo/restaurant-reservation/internal/schedule"
	queue_publisher "github.com/tavolo/restaurant-reservation/internal/service"
)

// AvailabilityHandler serves the read side of the engine — computed slots,
// validation, alternatives — plus the capacity-checked booking endpoint.
type AvailabilityHandler struct {
	Schedule  *schedule.Service
	Validator *schedule.Validator
	Events    bool // false disables broker publishing (no AMQP configured)
}

// NewAvailabilityHandler constructs an AvailabilityHandler and panics if a
// dependency is nil.
func NewAvailabilityHandler(svc *schedule.Service, validator *schedule.Validator, events bool) *AvailabilityHandler {
	if svc == nil || validator == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Schedule: svc, Validator: validator, Events: events}
}

// GetAvailableSlots handles GET /v1/service-versions/:id/slots?date=YYYY-MM-DD
// and returns the computed slots for the date with live capacity.
func (h *AvailabilityHandler) GetAvailableSlots(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service version id"})
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	slots, err := h.Schedule.AvailableSlots(c.Request().Context(), id, date)
	if err != nil {
		return versionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"service_version_id": id,
		"date":               date.Format("2006-01-02"),
		"slots":              slots,
	})
}

// GetRestaurantSlots handles GET /v1/restaurants/:id/slots?date=YYYY-MM-DD,
// merging the availability of every active service version of the
// restaurant for the date.
func (h *AvailabilityHandler) GetRestaurantSlots(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	slots, err := h.Schedule.RestaurantSlots(c.Request().Context(), id, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"restaurant_id": id,
		"date":          date.Format("2006-01-02"),
		"slots":         slots,
	})
}

// ValidateReservation handles POST /v1/reservations/validate.  It never
// writes; an invalid result carries the reason and the windows that could
// seat the party instead.
func (h *AvailabilityHandler) ValidateReservation(c echo.Context) error {
	req, ok, resp := bindValidationRequest(c)
	if !ok {
		return resp
	}
	result, err := h.Validator.Validate(c.Request().Context(), req)
	if err != nil {
		return versionError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// FindAlternatives handles GET /v1/service-versions/:id/alternatives with
// query parameters date (preferred, YYYY-MM-DD), party_size and days_ahead.
func (h *AvailabilityHandler) FindAlternatives(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service version id"})
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	partySize, err := strconv.Atoi(c.QueryParam("party_size"))
	if err != nil || partySize < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be a positive integer"})
	}
	daysAhead := 0
	if raw := c.QueryParam("days_ahead"); raw != "" {
		if daysAhead, err = strconv.Atoi(raw); err != nil || daysAhead < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "days_ahead must be a non-negative integer"})
		}
	}
	days, err := h.Validator.FindAlternatives(c.Request().Context(), id, date, partySize, daysAhead)
	if err != nil {
		return versionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"service_version_id": id,
		"preferred_date":     date.Format("2006-01-02"),
		"days":               days,
	})
}

// CreateReservation handles POST /v1/reservations.  Validation and the
// insert run against the same request; the insert re-checks capacity
// under a row lock, so two racing requests for the last seat resolve to
// one success and one 409.
func (h *AvailabilityHandler) CreateReservation(c echo.Context) error {
	customerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req, ok, resp := bindValidationRequest(c)
	if !ok {
		return resp
	}
	result, res, err := h.Validator.Reserve(c.Request().Context(), req, customerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrServiceVersionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service version not found"})
		case errors.Is(err, repository.ErrInsufficientCapacity), errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot is fully booked"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create reservation"})
		}
	}
	if !result.Valid {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	h.publishBooking(res.ID, req.ServiceVersionID, customerID, res.StartsAt, res.EndsAt, req.PartySize)
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id":     res.ID,
		"service_version_id": res.ServiceVersionID,
		"slot_id":            result.Slot.ID,
		"starts_at":          res.StartsAt,
		"ends_at":            res.EndsAt,
		"party_size":         res.PartySize,
		"status":             res.Status,
	})
}

// bindValidationRequest parses the shared validate/reserve payload.  On a
// malformed body the 400 response is already written and ok is false.
func bindValidationRequest(c echo.Context) (req *schedule.ValidationRequest, ok bool, resp error) {
	var body struct {
		ServiceVersionID uint64 `json:"service_version_id"`
		Date             string `json:"date"`
		Time             string `json:"time"`
		PartySize        int    `json:"party_size"`
	}
	if err := c.Bind(&body); err != nil {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ServiceVersionID == 0 {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "service_version_id is required"})
	}
	startsAt, err := time.Parse("2006-01-02 15:04", body.Date+" "+body.Time)
	if err != nil {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD and time HH:MM"})
	}
	return &schedule.ValidationRequest{
		ServiceVersionID: body.ServiceVersionID,
		StartsAt:         startsAt.UTC(),
		PartySize:        body.PartySize,
	}, true, nil
}

// publishBooking emits a booking.created event best-effort.
func (h *AvailabilityHandler) publishBooking(reservationID, serviceVersionID, customerID uint64, startsAt, endsAt time.Time, partySize int) {
	if !h.Events {
		return
	}
	event := queue.BookingCreatedEvent{
		EventID:          uuid.NewString(),
		ReservationID:    reservationID,
		ServiceVersionID: serviceVersionID,
		CustomerID:       customerID,
		StartsAt:         startsAt.Format(time.RFC3339),
		EndsAt:           endsAt.Format(time.RFC3339),
		PartySize:        partySize,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishBookingCreated(ctx, event)
	}()
}
