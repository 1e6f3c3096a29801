package handler // schedule.go contains staff-facing schedule configuration handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tavolo/restaurant-reservation/internal/model"
	"github.com/tavolo/restaurant-reservation/internal/queue"
	"github.com/tavolo/restaurant-reservation/internal/repository"
	"github.com/tavolo/restaurant-reservation/internal/schedule"
	queue_publisher "github.com/tavolo/restaurant-reservation/internal/service"
)

// StaffHandler bundles the schedule service with the lookups its staff
// endpoints need.  Template, policy and exception mutations all pass
// through here; every successful mutation emits a schedule.changed event
// best-effort.
type StaffHandler struct {
	Schedule    *schedule.Service
	VersionRepo *repository.ServiceVersionRepo
	Events      bool // false disables broker publishing (no AMQP configured)
}

// NewStaffHandler constructs a StaffHandler and panics if a dependency is nil.
func NewStaffHandler(svc *schedule.Service, versions *repository.ServiceVersionRepo, events bool) *StaffHandler {
	if svc == nil || versions == nil {
		panic("nil dependency passed to NewStaffHandler")
	}
	return &StaffHandler{Schedule: svc, VersionRepo: versions, Events: events}
}

// GetWeeklyTemplate handles GET /v1/service-versions/:id/template and returns
// all seven weekday entries, closed defaults included.
func (h *StaffHandler) GetWeeklyTemplate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service version id"})
	}
	week, err := h.Schedule.WeeklyTemplate(c.Request().Context(), id)
	if err != nil {
		return versionError(c, err)
	}
	out := make([]echo.Map, 0, len(week))
	for _, d := range week {
		out = append(out, templateDayJSON(&d))
	}
	return c.JSON(http.StatusOK, echo.Map{"service_version_id": id, "days": out})
}

// UpdateTemplateDay handles PUT /v1/service-versions/:id/template/:weekday.
// The weekday is numeric, 0 = Sunday through 6 = Saturday.
func (h *StaffHandler) UpdateTemplateDay(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service version id"})
	}
	wd, err := strconv.Atoi(c.Param("weekday"))
	if err != nil || wd < 0 || wd > 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekday must be 0 (Sunday) through 6 (Saturday)"})
	}
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Closed     bool   `json:"closed"`
		OpensAt    string `json:"opens_at"`
		ClosesAt   string `json:"closes_at"`
		BreakStart string `json:"break_start"`
		BreakEnd   string `json:"break_end"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	day := &model.TemplateDay{
		Weekday:    time.Weekday(wd),
		Closed:     body.Closed,
		OpensAt:    body.OpensAt,
		ClosesAt:   body.ClosesAt,
		BreakStart: body.BreakStart,
		BreakEnd:   body.BreakEnd,
	}
	updated, err := h.Schedule.UpdateTemplateDay(c.Request().Context(), id, actorID, day)
	if err != nil {
		return mutationError(c, err)
	}
	h.publishChange(c.Request().Context(), id, actorID, model.AuditTemplateDay, "weekly template updated")
	return c.JSON(http.StatusOK, templateDayJSON(updated))
}

// UpdateSlotPolicy handles PUT /v1/service-versions/:id/policy.
func (h *StaffHandler) UpdateSlotPolicy(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service version id"})
	}
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		SlotDurationMin int    `json:"slot_duration_min"`
		BufferMin       int    `json:"buffer_min"`
		CapacityPerSlot int    `json:"capacity_per_slot"`
		DailyStart      string `json:"daily_start"`
		DailyEnd        string `json:"daily_end"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	policy := &model.SlotPolicy{
		SlotDurationMin: body.SlotDurationMin,
		BufferMin:       body.BufferMin,
		CapacityPerSlot: body.CapacityPerSlot,
		DailyStart:      body.DailyStart,
		DailyEnd:        body.DailyEnd,
	}
	updated, err := h.Schedule.UpdateSlotPolicy(c.Request().Context(), id, actorID, policy)
	if err != nil {
		return mutationError(c, err)
	}
	h.publishChange(c.Request().Context(), id, actorID, model.AuditSlotPolicy, "slot policy updated")
	return c.JSON(http.StatusOK, echo.Map{
		"service_version_id": id,
		"slot_duration_min":  updated.SlotDurationMin,
		"buffer_min":         updated.BufferMin,
		"capacity_per_slot":  updated.CapacityPerSlot,
		"daily_start":        updated.DailyStart,
		"daily_end":          updated.DailyEnd,
	})
}

// CreateException handles POST /v1/service-versions/:id/exceptions.
func (h *StaffHandler) CreateException(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service version id"})
	}
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Date             string `json:"date"`
		Type             string `json:"type"`
		FullyClosed      bool   `json:"fully_closed"`
		StartTime        string `json:"start_time"`
		EndTime          string `json:"end_time"`
		OverrideOpensAt  string `json:"override_opens_at"`
		OverrideClosesAt string `json:"override_closes_at"`
		Note             string `json:"note"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ex := &model.DateException{
		Date:             date,
		Type:             body.Type,
		FullyClosed:      body.FullyClosed,
		StartTime:        body.StartTime,
		EndTime:          body.EndTime,
		OverrideOpensAt:  body.OverrideOpensAt,
		OverrideClosesAt: body.OverrideClosesAt,
		Note:             body.Note,
	}
	created, err := h.Schedule.CreateException(c.Request().Context(), id, actorID, ex)
	if err != nil {
		return mutationError(c, err)
	}
	h.publishChange(c.Request().Context(), id, actorID, model.AuditDateException, "exception created")
	return c.JSON(http.StatusCreated, exceptionJSON(created))
}

// DeleteException handles DELETE /v1/exceptions/:id.
func (h *StaffHandler) DeleteException(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exception id"})
	}
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	deleted, err := h.Schedule.DeleteException(c.Request().Context(), id, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrExceptionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "exception not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete exception"})
	}
	h.publishChange(c.Request().Context(), deleted.ServiceVersionID, actorID, model.AuditDateException, "exception deleted")
	return c.NoContent(http.StatusNoContent)
}

// DeactivateVersion handles POST /v1/service-versions/:id/deactivate.  The
// caller's restaurant must own the version.
func (h *StaffHandler) DeactivateVersion(c echo.Context) error {
	return h.setVersionState(c, model.VersionArchived, "schedule deactivated")
}

// ReactivateVersion handles POST /v1/service-versions/:id/reactivate.
func (h *StaffHandler) ReactivateVersion(c echo.Context) error {
	return h.setVersionState(c, model.VersionActive, "schedule reactivated")
}

func (h *StaffHandler) setVersionState(c echo.Context, state, change string) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service version id"})
	}
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		RestaurantID uint64 `json:"restaurant_id"`
	}
	if err := c.Bind(&body); err != nil || body.RestaurantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id is required"})
	}
	var doErr error
	if state == model.VersionArchived {
		doErr = h.Schedule.DeactivateVersion(c.Request().Context(), id, body.RestaurantID, actorID)
	} else {
		doErr = h.Schedule.ReactivateVersion(c.Request().Context(), id, body.RestaurantID, actorID)
	}
	if doErr != nil {
		if errors.Is(doErr, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return versionError(c, doErr)
	}
	h.publishChange(c.Request().Context(), id, actorID, model.AuditServiceVer, change)
	return c.JSON(http.StatusOK, echo.Map{"service_version_id": id, "state": state})
}

// publishChange emits a schedule.changed event, resolving the owning
// restaurant when possible.  It never blocks or fails the request.
func (h *StaffHandler) publishChange(ctx context.Context, serviceVersionID, actorID uint64, entityType, change string) {
	if !h.Events {
		return
	}
	var restaurantID uint64
	if serviceVersionID != 0 {
		if v, err := h.VersionRepo.GetByID(ctx, serviceVersionID); err == nil {
			restaurantID = v.RestaurantID
		}
	}
	event := queue.ScheduleChangedEvent{
		EventID:          uuid.NewString(),
		RestaurantID:     restaurantID,
		ServiceVersionID: serviceVersionID,
		EntityType:       entityType,
		Change:           change,
		ActorID:          actorID,
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishScheduleChanged(pubCtx, event)
	}()
}

func versionError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrServiceVersionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service version not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
}

// mutationError maps a schedule mutation failure: validation failures are
// 400, unknown versions 404, lost races 409, everything else 500.
func mutationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, schedule.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrServiceVersionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service version not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting update"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}

func templateDayJSON(d *model.TemplateDay) echo.Map {
	return echo.Map{
		"weekday":     int(d.Weekday),
		"closed":      d.Closed,
		"opens_at":    d.OpensAt,
		"closes_at":   d.ClosesAt,
		"break_start": d.BreakStart,
		"break_end":   d.BreakEnd,
	}
}

func exceptionJSON(e *model.DateException) echo.Map {
	return echo.Map{
		"id":                 e.ID,
		"service_version_id": e.ServiceVersionID,
		"date":               e.Date.Format("2006-01-02"),
		"type":               e.Type,
		"fully_closed":       e.FullyClosed,
		"start_time":         e.StartTime,
		"end_time":           e.EndTime,
		"override_opens_at":  e.OverrideOpensAt,
		"override_closes_at": e.OverrideClosesAt,
		"note":               e.Note,
	}
}
