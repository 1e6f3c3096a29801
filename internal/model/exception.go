package model

import (
	"fmt"
	"time"
)

// Exception types.  FullClosure and PartialClosure remove availability,
// ReducedHours narrows (or extends) the day's operating window, while
// Maintenance and SpecialEvent are informational but may still carry a
// blocked time range.
const (
	ExceptionFullClosure    = "FULL_CLOSURE"
	ExceptionPartialClosure = "PARTIAL_CLOSURE"
	ExceptionReducedHours   = "REDUCED_HOURS"
	ExceptionMaintenance    = "MAINTENANCE"
	ExceptionSpecialEvent   = "SPECIAL_EVENT"
)

// DateException is a sparse, date-keyed override of the weekly template.
// Several exceptions may target the same date; resolution order is the
// creation order (created_at, then id), so the most recently created
// exception wins for each field it sets.  Exceptions never expire on
// their own — staff create and delete them explicitly.
//
// Fields:
//  ID               – primary key identifier.
//  ServiceVersionID – owning service version.
//  Date             – calendar date the exception applies to.
//  Type             – one of the Exception* constants.
//  FullyClosed      – when true the whole date produces no slots.
//  StartTime        – optional "HH:MM" start of the affected range.
//  EndTime          – optional "HH:MM" end of the affected range.
//  OverrideOpensAt  – optional "HH:MM" replacement opening time.
//  OverrideClosesAt – optional "HH:MM" replacement closing time.
//  Note             – free text shown to staff.
//  CreatedAt        – creation timestamp, drives resolution order.
type DateException struct {
	ID               uint64    // date_exceptions.id
	ServiceVersionID uint64    // date_exceptions.service_version_id
	Date             time.Time // date_exceptions.exception_date
	Type             string    // date_exceptions.exception_type
	FullyClosed      bool      // date_exceptions.fully_closed
	StartTime        string    // date_exceptions.start_time (nullable)
	EndTime          string    // date_exceptions.end_time (nullable)
	OverrideOpensAt  string    // date_exceptions.override_opens_at (nullable)
	OverrideClosesAt string    // date_exceptions.override_closes_at (nullable)
	Note             string    // date_exceptions.note
	CreatedAt        time.Time // date_exceptions.created_at
}

// HasRange reports whether the exception blocks a specific time range.
func (e *DateException) HasRange() bool { return e.StartTime != "" && e.EndTime != "" }

// Validate rejects malformed exceptions before any persistence happens.
func (e *DateException) Validate() error {
	switch e.Type {
	case ExceptionFullClosure, ExceptionPartialClosure, ExceptionReducedHours,
		ExceptionMaintenance, ExceptionSpecialEvent:
	default:
		return fmt.Errorf("unknown exception_type %q", e.Type)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("exception_date is required")
	}
	if (e.StartTime == "") != (e.EndTime == "") {
		return fmt.Errorf("start_time and end_time must be set together")
	}
	if e.HasRange() {
		start, err := ParseClock(e.StartTime)
		if err != nil {
			return fmt.Errorf("start_time: %w", err)
		}
		end, err := ParseClock(e.EndTime)
		if err != nil {
			return fmt.Errorf("end_time: %w", err)
		}
		if !start.Before(end) {
			return fmt.Errorf("start_time %s must be before end_time %s", e.StartTime, e.EndTime)
		}
	}
	if e.OverrideOpensAt != "" {
		if _, err := ParseClock(e.OverrideOpensAt); err != nil {
			return fmt.Errorf("override_opens_at: %w", err)
		}
	}
	if e.OverrideClosesAt != "" {
		if _, err := ParseClock(e.OverrideClosesAt); err != nil {
			return fmt.Errorf("override_closes_at: %w", err)
		}
	}
	return nil
}
