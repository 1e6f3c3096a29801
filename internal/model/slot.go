package model

import (
	"fmt"
	"time"
)

// ComputedSlot is a bookable time window derived on demand from the
// weekly template, slot policy and date exceptions.  It is never
// persisted: the ID is re-derived deterministically from the service
// version, date and sequence number, so two computations over the same
// stored state always produce the same slots.
type ComputedSlot struct {
	ID               string    `json:"id"`
	ServiceVersionID uint64    `json:"service_version_id"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	TotalCapacity    int       `json:"total_capacity"`
	Booked           int       `json:"booked"`
	Available        int       `json:"available"`
	IsAvailable      bool      `json:"is_available"`
}

// SlotID derives the deterministic identifier for the seq-th slot of a
// service version on a date.
func SlotID(serviceVersionID uint64, date time.Time, seq int) string {
	return fmt.Sprintf("sv%d-%s-%03d", serviceVersionID, date.Format("2006-01-02"), seq)
}

// Contains reports whether t falls inside the slot's [Start, End) window.
func (s *ComputedSlot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// Change policies applied to reservations already booked on a legacy slot
// when its hours change.  The set is closed; dispatch is an exhaustive
// switch, never subclassing.
const (
	PolicyHardCut         = "HARD_CUT"
	PolicyNotifyCustomers = "NOTIFY_CUSTOMERS"
	PolicyAutoMigrate     = "AUTO_MIGRATE"
)

// LegacySlotFarFuture is the open-ended validity horizon for the newest
// version in a supersession chain.
var LegacySlotFarFuture = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// LegacySlot is the superseded recurring-slot model kept for restaurants
// that predate the template system.  A slot's hours are never edited in
// place once reservations may reference it: changing them closes the old
// record's validity window and appends a new record, linked through
// SupersededBy.
//
// Fields:
//  ID           – primary key identifier.
//  ServiceID    – bookable service the slot belongs to.
//  Weekday      – day of week the slot recurs on.
//  StartsAt     – start time "HH:MM".
//  EndsAt       – end time "HH:MM".
//  ValidFrom    – first date the slot applies.
//  ValidTo      – last date the slot applies.
//  Active       – false once deactivated or superseded.
//  SupersededBy – id of the replacing slot, nil for the chain head.
//  ChangePolicy – policy applied to booked reservations on hour change.
type LegacySlot struct {
	ID           uint64       // legacy_slots.id
	ServiceID    uint64       // legacy_slots.service_id
	Weekday      time.Weekday // legacy_slots.weekday
	StartsAt     string       // legacy_slots.starts_at
	EndsAt       string       // legacy_slots.ends_at
	ValidFrom    time.Time    // legacy_slots.valid_from
	ValidTo      time.Time    // legacy_slots.valid_to
	Active       bool         // legacy_slots.active
	SupersededBy *uint64      // legacy_slots.superseded_by (nullable)
	ChangePolicy string       // legacy_slots.change_policy
}

// CoversDate reports whether the slot's validity window includes date.
func (s *LegacySlot) CoversDate(date time.Time) bool {
	return !date.Before(s.ValidFrom) && !date.After(s.ValidTo)
}
