package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TemplateDay is one entry of the recurring weekly template: the shape of
// a single weekday for a service version.  Times are stored as "HH:MM"
// strings; an empty break pair means the day runs without a break.  One
// entry exists per (service version, weekday) — days without an explicit
// row are treated as closed.
//
// Fields:
//  ID               – primary key identifier.
//  ServiceVersionID – owning service version.
//  Weekday          – day of week this entry describes.
//  Closed           – when true the day produces no slots at all.
//  OpensAt          – opening time "HH:MM".
//  ClosesAt         – closing time "HH:MM".
//  BreakStart       – optional break start "HH:MM" ("" = no break).
//  BreakEnd         – optional break end "HH:MM".
//  UpdatedAt        – last update timestamp.
type TemplateDay struct {
	ID               uint64       // service_version_days.id
	ServiceVersionID uint64       // service_version_days.service_version_id
	Weekday          time.Weekday // service_version_days.weekday
	Closed           bool         // service_version_days.closed
	OpensAt          string       // service_version_days.opens_at
	ClosesAt         string       // service_version_days.closes_at
	BreakStart       string       // service_version_days.break_start (nullable)
	BreakEnd         string       // service_version_days.break_end (nullable)
	UpdatedAt        time.Time    // service_version_days.updated_at
}

// HasBreak reports whether the day carries a break window.
func (d *TemplateDay) HasBreak() bool { return d.BreakStart != "" && d.BreakEnd != "" }

// Validate checks the entry's internal consistency.  Closed days skip all
// time checks since their hours are ignored.
func (d *TemplateDay) Validate() error {
	if d.Closed {
		return nil
	}
	open, err := ParseClock(d.OpensAt)
	if err != nil {
		return fmt.Errorf("opens_at: %w", err)
	}
	clos, err := ParseClock(d.ClosesAt)
	if err != nil {
		return fmt.Errorf("closes_at: %w", err)
	}
	if !open.Before(clos) {
		return fmt.Errorf("opens_at %s must be before closes_at %s", d.OpensAt, d.ClosesAt)
	}
	if d.BreakStart == "" && d.BreakEnd == "" {
		return nil
	}
	bs, err := ParseClock(d.BreakStart)
	if err != nil {
		return fmt.Errorf("break_start: %w", err)
	}
	be, err := ParseClock(d.BreakEnd)
	if err != nil {
		return fmt.Errorf("break_end: %w", err)
	}
	if !bs.Before(be) {
		return fmt.Errorf("break_start %s must be before break_end %s", d.BreakStart, d.BreakEnd)
	}
	// Break must sit inside the operating window.
	if bs.Before(open) || clos.Before(be) {
		return fmt.Errorf("break %s-%s must fall within opening hours %s-%s", d.BreakStart, d.BreakEnd, d.OpensAt, d.ClosesAt)
	}
	return nil
}

// SlotPolicy holds the slot-generation parameters for a service version.
// Replacing a policy changes future computations only; it never rewrites
// commitments already made against previously generated slots.
//
// Fields:
//  ID               – primary key identifier.
//  ServiceVersionID – owning service version (one active policy each).
//  SlotDurationMin  – length of each slot in minutes (> 0).
//  BufferMin        – idle minutes between consecutive slots (>= 0).
//  CapacityPerSlot  – maximum covers bookable per slot (> 0).
//  DailyStart       – optional "HH:MM" override of the template opening.
//  DailyEnd         – optional "HH:MM" override of the template closing.
//  UpdatedAt        – last update timestamp.
type SlotPolicy struct {
	ID               uint64    // slot_policies.id
	ServiceVersionID uint64    // slot_policies.service_version_id
	SlotDurationMin  int       // slot_policies.slot_duration_min
	BufferMin        int       // slot_policies.buffer_min
	CapacityPerSlot  int       // slot_policies.capacity_per_slot
	DailyStart       string    // slot_policies.daily_start (nullable)
	DailyEnd         string    // slot_policies.daily_end (nullable)
	UpdatedAt        time.Time // slot_policies.updated_at
}

// Validate checks the policy's generation parameters.
func (p *SlotPolicy) Validate() error {
	if p.SlotDurationMin <= 0 {
		return fmt.Errorf("slot_duration_min must be positive, got %d", p.SlotDurationMin)
	}
	if p.BufferMin < 0 {
		return fmt.Errorf("buffer_min must not be negative, got %d", p.BufferMin)
	}
	if p.CapacityPerSlot <= 0 {
		return fmt.Errorf("capacity_per_slot must be positive, got %d", p.CapacityPerSlot)
	}
	if p.DailyStart != "" {
		if _, err := ParseClock(p.DailyStart); err != nil {
			return fmt.Errorf("daily_start: %w", err)
		}
	}
	if p.DailyEnd != "" {
		if _, err := ParseClock(p.DailyEnd); err != nil {
			return fmt.Errorf("daily_end: %w", err)
		}
	}
	return nil
}

// Clock is a time of day detached from any date, kept as minutes from
// midnight so comparisons stay integer arithmetic.
type Clock int

// ParseClock parses an "HH:MM" string into a Clock.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock(h*60 + m), nil
}

// Before reports whether c is strictly earlier than other.
func (c Clock) Before(other Clock) bool { return c < other }

// String renders the clock back to "HH:MM".
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

// On anchors the clock to a calendar date, producing an absolute timestamp
// in that date's location.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(c)/60, int(c)%60, 0, 0, date.Location())
}
