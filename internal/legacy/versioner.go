// Package legacy maintains the superseded recurring-slot schedule model
// for restaurants that predate the template system.  Slot hours are never
// edited in place: a change closes the old record's validity window and
// appends a linked successor, and booked reservations are handled by an
// explicit change policy.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// Versioner validation failures.
var (
	// ErrSlotInactive is returned when the target slot has already been
	// deactivated or superseded.
	ErrSlotInactive = errors.New("legacy slot is not active")

	// ErrEffectiveTooEarly is returned when the requested effective date
	// does not leave the old slot at least one day of validity.
	ErrEffectiveTooEarly = errors.New("effective date must be after the slot's valid-from date")

	// ErrInvalidChange wraps a malformed change request, rejected before
	// any database work.
	ErrInvalidChange = errors.New("invalid change request")
)

// Tx is a transactional view of the legacy slot and reservation tables.
// All writes issued through a Tx commit or roll back together.
type Tx interface {
	GetSlot(id uint64) (*model.LegacySlot, error)
	CloseSlotValidity(id uint64, validTo time.Time) error
	CreateSlot(s *model.LegacySlot) error
	LinkSuccessor(oldID, newID uint64) error
	FutureReservations(slotID uint64, from time.Time) ([]model.Reservation, error)
	RebindReservation(reservationID, newSlotID uint64) error
}

// Store opens transactions over the legacy tables.  Implemented by
// repository.LegacySlotRepo.
type Store interface {
	GetByID(ctx context.Context, id uint64) (*model.LegacySlot, error)
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Notifier informs affected customers that their reservation's slot
// changed.  Calls happen after the transaction commits; failures are
// logged, never propagated.
type Notifier interface {
	ScheduleChanged(ctx context.Context, res model.Reservation, oldSlot, newSlot *model.LegacySlot) error
}

// ChangeRequest describes a schedule change on one legacy slot.
type ChangeRequest struct {
	SlotID        uint64    `json:"slot_id"`
	NewStartsAt   string    `json:"new_starts_at"` // "HH:MM"
	NewEndsAt     string    `json:"new_ends_at"`   // "HH:MM"
	EffectiveFrom time.Time `json:"effective_from"`
	ChangePolicy  string    `json:"change_policy"`
}

// Validate checks the request's shape before any database work.
func (r *ChangeRequest) Validate() error {
	start, err := model.ParseClock(r.NewStartsAt)
	if err != nil {
		return fmt.Errorf("new_starts_at: %w", err)
	}
	end, err := model.ParseClock(r.NewEndsAt)
	if err != nil {
		return fmt.Errorf("new_ends_at: %w", err)
	}
	if !start.Before(end) {
		return errors.New("new_starts_at must precede new_ends_at")
	}
	switch r.ChangePolicy {
	case model.PolicyHardCut, model.PolicyNotifyCustomers, model.PolicyAutoMigrate:
	default:
		return fmt.Errorf("unknown change policy %q", r.ChangePolicy)
	}
	if r.EffectiveFrom.IsZero() {
		return errors.New("effective_from is required")
	}
	return nil
}

// ChangeResult reports what a schedule change did.
type ChangeResult struct {
	OldSlot   *model.LegacySlot `json:"old_slot"`
	NewSlot   *model.LegacySlot `json:"new_slot"`
	Migrated  int               `json:"migrated_reservations"`
	Notified  int               `json:"notified_reservations"`
	Untouched int               `json:"untouched_reservations"`
}

// Versioner applies append-only schedule changes to legacy slots.
type Versioner struct {
	store    Store
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewVersioner returns a Versioner.  notifier may be nil; affected
// reservations are then only counted, not notified.
func NewVersioner(store Store, notifier Notifier, log zerolog.Logger) *Versioner {
	return &Versioner{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "legacy").Logger(),
		now:      time.Now,
	}
}

// GetSlot loads one legacy slot.
func (v *Versioner) GetSlot(ctx context.Context, id uint64) (*model.LegacySlot, error) {
	return v.store.GetByID(ctx, id)
}

// ChangeSchedule replaces a legacy slot's hours from an effective date
// onward.  The old record's validity is closed the day before the
// effective date, a successor record is created with an open-ended
// validity horizon, and the two are linked.  Reservations already booked
// on or after the effective date are then handled by the request's change
// policy:
//
//	HARD_CUT          – left untouched; staff resolve them manually.
//	NOTIFY_CUSTOMERS  – customers are notified, bookings stay on the old
//	                    slot record.
//	AUTO_MIGRATE      – bookings whose time fits inside the new hours are
//	                    rebound to the successor; the rest are notified.
//
// Every write happens in one transaction: a crash mid-change never leaves
// a weekday without exactly one open-ended slot.  Notifications go out
// after commit.
func (v *Versioner) ChangeSchedule(ctx context.Context, req *ChangeRequest) (*ChangeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChange, err)
	}
	newStart, _ := model.ParseClock(req.NewStartsAt)
	newEnd, _ := model.ParseClock(req.NewEndsAt)
	effective := dateOnly(req.EffectiveFrom)

	result := &ChangeResult{}
	var toNotify []model.Reservation

	err := v.store.InTx(ctx, func(tx Tx) error {
		old, err := tx.GetSlot(req.SlotID)
		if err != nil {
			return err
		}
		if !old.Active || old.SupersededBy != nil {
			return ErrSlotInactive
		}
		if !old.ValidFrom.Before(effective) {
			return ErrEffectiveTooEarly
		}

		// Close the old record the day before the change takes effect.
		if err := tx.CloseSlotValidity(old.ID, effective.AddDate(0, 0, -1)); err != nil {
			return err
		}

		next := &model.LegacySlot{
			ServiceID:    old.ServiceID,
			Weekday:      old.Weekday,
			StartsAt:     req.NewStartsAt,
			EndsAt:       req.NewEndsAt,
			ValidFrom:    effective,
			ValidTo:      model.LegacySlotFarFuture,
			Active:       true,
			ChangePolicy: req.ChangePolicy,
		}
		if err := tx.CreateSlot(next); err != nil {
			return err
		}
		if err := tx.LinkSuccessor(old.ID, next.ID); err != nil {
			return err
		}

		affected, err := tx.FutureReservations(old.ID, effective)
		if err != nil {
			return err
		}
		for _, res := range affected {
			switch req.ChangePolicy {
			case model.PolicyHardCut:
				result.Untouched++
			case model.PolicyNotifyCustomers:
				toNotify = append(toNotify, res)
				result.Notified++
			case model.PolicyAutoMigrate:
				if fitsWindow(res, newStart, newEnd) {
					if err := tx.RebindReservation(res.ID, next.ID); err != nil {
						return err
					}
					result.Migrated++
				} else {
					toNotify = append(toNotify, res)
					result.Notified++
				}
			}
		}

		supersededBy := next.ID
		old.Active = false
		old.ValidTo = effective.AddDate(0, 0, -1)
		old.SupersededBy = &supersededBy
		result.OldSlot = old
		result.NewSlot = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.notifyAll(ctx, toNotify, result.OldSlot, result.NewSlot)
	v.log.Info().
		Uint64("old_slot_id", result.OldSlot.ID).
		Uint64("new_slot_id", result.NewSlot.ID).
		Str("policy", req.ChangePolicy).
		Int("migrated", result.Migrated).
		Int("notified", result.Notified).
		Msg("legacy slot schedule changed")
	return result, nil
}

// DeactivateSlot ends a legacy slot's validity at the given date without
// a successor.  Reservations booked past that date are notified.
func (v *Versioner) DeactivateSlot(ctx context.Context, slotID uint64, lastDate time.Time) (*ChangeResult, error) {
	last := dateOnly(lastDate)
	result := &ChangeResult{}
	var toNotify []model.Reservation

	err := v.store.InTx(ctx, func(tx Tx) error {
		slot, err := tx.GetSlot(slotID)
		if err != nil {
			return err
		}
		if !slot.Active || slot.SupersededBy != nil {
			return ErrSlotInactive
		}
		if err := tx.CloseSlotValidity(slot.ID, last); err != nil {
			return err
		}
		affected, err := tx.FutureReservations(slot.ID, last.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		toNotify = affected
		result.Notified = len(affected)
		slot.Active = false
		slot.ValidTo = last
		result.OldSlot = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.notifyAll(ctx, toNotify, result.OldSlot, nil)
	v.log.Info().
		Uint64("slot_id", result.OldSlot.ID).
		Str("last_date", last.Format("2006-01-02")).
		Int("notified", result.Notified).
		Msg("legacy slot deactivated")
	return result, nil
}

func (v *Versioner) notifyAll(ctx context.Context, affected []model.Reservation, oldSlot, newSlot *model.LegacySlot) {
	if v.notifier == nil {
		return
	}
	for _, res := range affected {
		if err := v.notifier.ScheduleChanged(ctx, res, oldSlot, newSlot); err != nil {
			v.log.Warn().Err(err).
				Uint64("reservation_id", res.ID).
				Msg("schedule-change notification failed")
		}
	}
}

// fitsWindow reports whether the reservation's time-of-day interval fits
// inside [start, end) on its own date.
func fitsWindow(res model.Reservation, start, end model.Clock) bool {
	day := dateOnly(res.StartsAt)
	winStart := start.On(day)
	winEnd := end.On(day)
	return !res.StartsAt.Before(winStart) && !res.EndsAt.After(winEnd)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
