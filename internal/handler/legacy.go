package handler // legacy.go contains staff handlers for the superseded recurring-slot model

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tavolo/restaurant-reservation/internal/legacy"
	"github.com/tavolo/restaurant-reservation/internal/model"
	"github.com/tavolo/restaurant-reservation/internal/queue"
	"github.com/tavolo/restaurant-reservation/internal/repository"
	queue_publisher "github.com/tavolo/restaurant-reservation/internal/service"
)

// LegacyHandler exposes the append-only schedule changes on legacy slots.
type LegacyHandler struct {
	Versioner *legacy.Versioner
	Events    bool // false disables broker publishing (no AMQP configured)
}

// NewLegacyHandler constructs a LegacyHandler and panics if the versioner
// is nil.
func NewLegacyHandler(v *legacy.Versioner, events bool) *LegacyHandler {
	if v == nil {
		panic("nil versioner passed to NewLegacyHandler")
	}
	return &LegacyHandler{Versioner: v, Events: events}
}

// GetSlot handles GET /v1/legacy-slots/:id.
func (h *LegacyHandler) GetSlot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	slot, err := h.Versioner.GetSlot(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "legacy slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, legacySlotJSON(slot))
}

// ChangeSchedule handles POST /v1/legacy-slots/:id/schedule.  The old
// record's validity closes the day before effective_from, a linked
// successor is created, and booked reservations are handled per the
// chosen change policy.
func (h *LegacyHandler) ChangeSchedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		NewStartsAt   string `json:"new_starts_at"`
		NewEndsAt     string `json:"new_ends_at"`
		EffectiveFrom string `json:"effective_from"`
		ChangePolicy  string `json:"change_policy"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	effective, err := time.Parse("2006-01-02", body.EffectiveFrom)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "effective_from must be YYYY-MM-DD"})
	}
	result, err := h.Versioner.ChangeSchedule(c.Request().Context(), &legacy.ChangeRequest{
		SlotID:        id,
		NewStartsAt:   body.NewStartsAt,
		NewEndsAt:     body.NewEndsAt,
		EffectiveFrom: effective,
		ChangePolicy:  body.ChangePolicy,
	})
	if err != nil {
		return legacyError(c, err)
	}
	h.publishChange(id, actorID, "legacy slot schedule changed")
	return c.JSON(http.StatusOK, echo.Map{
		"old_slot":               legacySlotJSON(result.OldSlot),
		"new_slot":               legacySlotJSON(result.NewSlot),
		"migrated_reservations":  result.Migrated,
		"notified_reservations":  result.Notified,
		"untouched_reservations": result.Untouched,
	})
}

// DeactivateSlot handles POST /v1/legacy-slots/:id/deactivate, ending the
// slot's validity at last_date with no successor.
func (h *LegacyHandler) DeactivateSlot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		LastDate string `json:"last_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	last, err := time.Parse("2006-01-02", body.LastDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "last_date must be YYYY-MM-DD"})
	}
	result, err := h.Versioner.DeactivateSlot(c.Request().Context(), id, last)
	if err != nil {
		return legacyError(c, err)
	}
	h.publishChange(id, actorID, "legacy slot deactivated")
	return c.JSON(http.StatusOK, echo.Map{
		"slot":                  legacySlotJSON(result.OldSlot),
		"notified_reservations": result.Notified,
	})
}

func legacyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "legacy slot not found"})
	case errors.Is(err, legacy.ErrSlotInactive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "legacy slot is not active"})
	case errors.Is(err, legacy.ErrEffectiveTooEarly), errors.Is(err, legacy.ErrInvalidChange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}

func (h *LegacyHandler) publishChange(slotID, actorID uint64, change string) {
	if !h.Events {
		return
	}
	event := queue.ScheduleChangedEvent{
		EventID:      uuid.NewString(),
		LegacySlotID: slotID,
		EntityType:   model.AuditLegacySlot,
		Change:       change,
		ActorID:      actorID,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishScheduleChanged(ctx, event)
	}()
}

func legacySlotJSON(s *model.LegacySlot) echo.Map {
	out := echo.Map{
		"id":            s.ID,
		"service_id":    s.ServiceID,
		"weekday":       int(s.Weekday),
		"starts_at":     s.StartsAt,
		"ends_at":       s.EndsAt,
		"valid_from":    s.ValidFrom.Format("2006-01-02"),
		"valid_to":      s.ValidTo.Format("2006-01-02"),
		"active":        s.Active,
		"change_policy": s.ChangePolicy,
	}
	if s.SupersededBy != nil {
		out["superseded_by"] = *s.SupersededBy
	}
	return out
}
