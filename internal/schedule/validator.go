package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavolo/restaurant-reservation/internal/metrics"
	"github.com/tavolo/restaurant-reservation/internal/model"
)

// Alternatives search bounds.
const (
	defaultAlternativeDays = 7
	maxAlternativeDays     = 90
	maxAlternativeDates    = 10
)

// ValidationRequest is a reservation attempt to be checked against
// current availability.
type ValidationRequest struct {
	ServiceVersionID uint64    `json:"service_version_id"`
	StartsAt         time.Time `json:"starts_at"`
	PartySize        int       `json:"party_size"`
}

// AvailableRange is a bookable window offered back to the caller when a
// request is rejected.
type AvailableRange struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available int       `json:"available"`
}

// AlternativeDay summarizes one calendar day that can seat the party:
// the bookable windows, their count, the first and last start times and
// the day's offset from the preferred date.
type AlternativeDay struct {
	Date       time.Time        `json:"date"`
	OffsetDays int              `json:"offset_days"`
	Slots      []AvailableRange `json:"slots"`
	Count      int              `json:"count"`
	FirstStart time.Time        `json:"first_start"`
	LastStart  time.Time        `json:"last_start"`
}

// ValidationResult is the outcome of a validation pass.  When Valid is
// false, Reason explains the first check that failed and AvailableTimes
// lists the windows that could satisfy the party instead — the caller
// gets an answer and the fix in one round trip.
type ValidationResult struct {
	Valid          bool             `json:"valid"`
	Reason         string           `json:"reason,omitempty"`
	AvailableTimes []AvailableRange `json:"available_times,omitempty"`
	Slot           *model.ComputedSlot
}

// Validator checks reservation requests against computed availability and
// performs capacity-checked bookings.  The clock is injectable so tests
// can pin "now".
type Validator struct {
	versions VersionStore
	svc      *Service
	booker   Booker
	log      zerolog.Logger
	now      func() time.Time
}

// NewValidator returns a Validator backed by the given availability
// service.  booker may be nil when only read-side validation is needed.
func NewValidator(versions VersionStore, svc *Service, booker Booker, log zerolog.Logger) *Validator {
	return &Validator{
		versions: versions,
		svc:      svc,
		booker:   booker,
		log:      log.With().Str("component", "validator").Logger(),
		now:      time.Now,
	}
}

// Validate runs the checks in a fixed order and reports the first
// failure: party size positive before anything is looked up, then version
// state, requested date not before today, availability exists on the
// date, the time matches a slot, and the slot has capacity left for the
// party.  A passing result carries the matched slot.
func (v *Validator) Validate(ctx context.Context, req *ValidationRequest) (*ValidationResult, error) {
	// Malformed input is rejected before any store access, so a bad
	// party size never surfaces a lookup error instead.
	if req.PartySize < 1 {
		return v.reject("party size must be at least 1", nil), nil
	}

	version, err := v.versions.GetByID(ctx, req.ServiceVersionID)
	if err != nil {
		return nil, err
	}
	if !version.IsActive() {
		return v.reject("service version is not accepting reservations", nil), nil
	}
	// The past check is date-granular: same-day requests stay valid for
	// the whole day and the slot match decides the rest.
	if dateOf(req.StartsAt).Before(dateOf(v.now())) {
		return v.reject("requested date is in the past", nil), nil
	}

	slots, err := v.svc.AvailableSlots(ctx, req.ServiceVersionID, req.StartsAt)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return v.reject("no availability on the requested date", nil), nil
	}

	slot := matchSlot(slots, req.StartsAt)
	if slot == nil {
		return v.reject("requested time does not match an available slot", openRanges(slots, 1)), nil
	}
	if req.PartySize > slot.TotalCapacity {
		return v.reject("party size exceeds slot capacity", nil), nil
	}
	if req.PartySize > slot.Available {
		return v.reject("insufficient capacity for the requested time", openRanges(slots, req.PartySize)), nil
	}

	metrics.IncValidation("valid")
	return &ValidationResult{Valid: true, Slot: slot}, nil
}

func (v *Validator) reject(reason string, ranges []AvailableRange) *ValidationResult {
	metrics.IncValidation("invalid")
	return &ValidationResult{Valid: false, Reason: reason, AvailableTimes: ranges}
}

// matchSlot returns the slot whose [Start, End) window contains t, nil if
// none does.
func matchSlot(slots []model.ComputedSlot, t time.Time) *model.ComputedSlot {
	for i := range slots {
		if slots[i].Contains(t) {
			return &slots[i]
		}
	}
	return nil
}

// openRanges projects the slots that can still seat the party into
// offerable windows.
func openRanges(slots []model.ComputedSlot, partySize int) []AvailableRange {
	out := make([]AvailableRange, 0, len(slots))
	for _, s := range slots {
		if s.Available >= partySize {
			out = append(out, AvailableRange{Start: s.Start, End: s.End, Available: s.Available})
		}
	}
	return out
}

// FindAlternatives scans forward day-by-day from the preferred date,
// collecting each day that can seat the party into an AlternativeDay.
// daysAhead bounds the scan (default seven days, capped at ninety past
// the preferred date); the walk exits early once ten alternative dates
// are collected.
func (v *Validator) FindAlternatives(ctx context.Context, serviceVersionID uint64, preferredDate time.Time, partySize, daysAhead int) ([]AlternativeDay, error) {
	if daysAhead <= 0 {
		daysAhead = defaultAlternativeDays
	}
	if daysAhead > maxAlternativeDays {
		daysAhead = maxAlternativeDays
	}

	start := dateOf(preferredDate)
	out := make([]AlternativeDay, 0, maxAlternativeDates)
	for offset := 0; offset <= daysAhead; offset++ {
		date := start.AddDate(0, 0, offset)
		slots, err := v.svc.AvailableSlots(ctx, serviceVersionID, date)
		if err != nil {
			return nil, err
		}
		ranges := openRanges(slots, partySize)
		if len(ranges) == 0 {
			continue
		}
		out = append(out, AlternativeDay{
			Date:       date,
			OffsetDays: offset,
			Slots:      ranges,
			Count:      len(ranges),
			FirstStart: ranges[0].Start,
			LastStart:  ranges[len(ranges)-1].Start,
		})
		if len(out) == maxAlternativeDates {
			break
		}
	}
	return out, nil
}

// Reserve validates the request and, when it passes, books it under an
// atomic capacity re-check.  The returned result mirrors Validate's; a
// created reservation is returned alongside a valid result.
func (v *Validator) Reserve(ctx context.Context, req *ValidationRequest, customerID uint64) (*ValidationResult, *model.Reservation, error) {
	result, err := v.Validate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		return result, nil, nil
	}

	res := &model.Reservation{
		ServiceVersionID: req.ServiceVersionID,
		CustomerID:       customerID,
		StartsAt:         result.Slot.Start,
		EndsAt:           result.Slot.End,
		PartySize:        req.PartySize,
		Status:           model.ReservationPending,
	}
	if err := v.booker.CreateWithCapacity(ctx, res, result.Slot.TotalCapacity); err != nil {
		metrics.IncCapacityConflict()
		return nil, nil, err
	}
	v.log.Info().
		Uint64("service_version_id", req.ServiceVersionID).
		Str("slot_id", result.Slot.ID).
		Int("party_size", req.PartySize).
		Msg("reservation created")
	return result, res, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
