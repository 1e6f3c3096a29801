// Package schedule implements the availability engine: it derives
// bookable time slots for any calendar date from a recurring weekly
// template, a slot-generation policy and sparse date exceptions, then
// enriches them with live booking counts and validates reservation
// requests against the result.  Nothing in this package persists slots —
// they are a pure function of the stored configuration.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// ErrInvalidInput wraps a model validation failure so transport layers can
// distinguish caller mistakes from infrastructure errors.
var ErrInvalidInput = errors.New("invalid input")

// TemplateStore reads and writes the weekly template.  Implemented by
// repository.ScheduleRepo; tests substitute in-memory fakes.
type TemplateStore interface {
	GetDay(ctx context.Context, serviceVersionID uint64, weekday time.Weekday) (*model.TemplateDay, error)
	GetWeek(ctx context.Context, serviceVersionID uint64) ([]model.TemplateDay, error)
	UpsertDay(ctx context.Context, d *model.TemplateDay) (old *model.TemplateDay, err error)
}

// PolicyStore reads and writes the slot-generation policy.
type PolicyStore interface {
	GetPolicy(ctx context.Context, serviceVersionID uint64) (*model.SlotPolicy, error)
	UpsertPolicy(ctx context.Context, p *model.SlotPolicy) (old *model.SlotPolicy, err error)
}

// ExceptionStore reads and writes date-specific overrides.  ListByDate
// must return exceptions in creation order (created_at, then id): the
// generator resolves override fields in that order, last writer winning
// per field.
type ExceptionStore interface {
	ListByDate(ctx context.Context, serviceVersionID uint64, date time.Time) ([]model.DateException, error)
	GetByID(ctx context.Context, id uint64) (*model.DateException, error)
	Create(ctx context.Context, e *model.DateException) error
	Delete(ctx context.Context, id uint64) error
}

// VersionStore resolves service versions and their lifecycle state.
type VersionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.ServiceVersion, error)
	ListActiveByRestaurant(ctx context.Context, restaurantID uint64) ([]model.ServiceVersion, error)
	SetState(ctx context.Context, id, restaurantID uint64, state string) error
}

// ReservationCounter reports the covers already booked in a time window.
// Implemented by repository.ReservationRepo against PENDING and CONFIRMED
// reservations overlapping [start, end).
type ReservationCounter interface {
	SumPartySizes(ctx context.Context, serviceVersionID uint64, start, end time.Time) (int, error)
}

// Booker inserts a reservation under an atomic capacity check.  It is the
// write half of the check-then-act pair: the capacity re-check and the
// insert must happen in one transaction.
type Booker interface {
	CreateWithCapacity(ctx context.Context, res *model.Reservation, totalCapacity int) error
}

// Auditor appends an audit record after a mutation.  Calls are
// best-effort: the engine logs failures and moves on.
type Auditor interface {
	Append(ctx context.Context, e *model.AuditEntry) error
}
