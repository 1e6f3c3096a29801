package schedule

import (
	"context"
	"time"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// Generator derives the candidate slots for a (service version, date)
// pair.  It performs reads only and keeps no state, so any number of
// callers may generate concurrently.  Capacity fields on the returned
// slots are left at the policy total with zero bookings; the Resolver
// fills them in.
type Generator struct {
	templates  TemplateStore
	policies   PolicyStore
	exceptions ExceptionStore
}

// NewGenerator constructs a Generator over the given stores.
func NewGenerator(templates TemplateStore, policies PolicyStore, exceptions ExceptionStore) *Generator {
	return &Generator{templates: templates, policies: policies, exceptions: exceptions}
}

// Generate returns the ordered candidate slots for the date.
//
// The steps, in order, each terminal when they produce an empty result:
// a closed (or missing) template day, a fully-closed exception, a missing
// policy, or an empty effective operating window.  Otherwise slots are
// walked forward from the effective opening in steps of duration+buffer,
// skipping over the day's break, and finally any slot overlapping a
// blocked exception range is dropped.  Exception overrides resolve in
// creation order, independently per field, so the most recently created
// exception wins each field it sets.
func (g *Generator) Generate(ctx context.Context, serviceVersionID uint64, date time.Time) ([]model.ComputedSlot, error) {
	day, err := g.templates.GetDay(ctx, serviceVersionID, date.Weekday())
	if err != nil {
		return nil, err
	}
	if day == nil || day.Closed {
		return []model.ComputedSlot{}, nil
	}

	exceptions, err := g.exceptions.ListByDate(ctx, serviceVersionID, date)
	if err != nil {
		return nil, err
	}
	for _, ex := range exceptions {
		if ex.FullyClosed {
			return []model.ComputedSlot{}, nil
		}
	}

	policy, err := g.policies.GetPolicy(ctx, serviceVersionID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return []model.ComputedSlot{}, nil
	}

	open, clos, ok := effectiveHours(day, policy, exceptions)
	if !ok || !open.Before(clos) {
		return []model.ComputedSlot{}, nil
	}

	slots := walkSlots(serviceVersionID, date, day, policy, open, clos)
	return dropBlockedRanges(slots, date, exceptions), nil
}

// effectiveHours resolves the operating window for the date: the template
// hours, replaced by the policy's explicit daily override when set, then
// by exception overrides applied in list order, per field.
func effectiveHours(day *model.TemplateDay, policy *model.SlotPolicy, exceptions []model.DateException) (open, clos model.Clock, ok bool) {
	openStr, closStr := day.OpensAt, day.ClosesAt
	if policy.DailyStart != "" {
		openStr = policy.DailyStart
	}
	if policy.DailyEnd != "" {
		closStr = policy.DailyEnd
	}
	for _, ex := range exceptions {
		if ex.OverrideOpensAt != "" {
			openStr = ex.OverrideOpensAt
		}
		if ex.OverrideClosesAt != "" {
			closStr = ex.OverrideClosesAt
		}
	}
	if openStr == "" || closStr == "" {
		return 0, 0, false
	}
	open, err := model.ParseClock(openStr)
	if err != nil {
		return 0, 0, false
	}
	clos, err = model.ParseClock(closStr)
	if err != nil {
		return 0, 0, false
	}
	return open, clos, true
}

// walkSlots emits slots from open in steps of duration+buffer while a
// full slot still fits before close.  A slot that would touch the break
// window is not emitted; the cursor fast-forwards to the break end and
// the walk resumes, so no slot interval ever intersects the break.
func walkSlots(serviceVersionID uint64, date time.Time, day *model.TemplateDay, policy *model.SlotPolicy, open, clos model.Clock) []model.ComputedSlot {
	var breakStart, breakEnd model.Clock
	hasBreak := day.HasBreak()
	if hasBreak {
		var err error
		if breakStart, err = model.ParseClock(day.BreakStart); err != nil {
			hasBreak = false
		} else if breakEnd, err = model.ParseClock(day.BreakEnd); err != nil {
			hasBreak = false
		}
	}

	duration := model.Clock(policy.SlotDurationMin)
	step := model.Clock(policy.SlotDurationMin + policy.BufferMin)
	slots := make([]model.ComputedSlot, 0)
	seq := 1
	for cur := open; cur+duration <= clos; {
		if hasBreak && cur < breakEnd && cur+duration > breakStart {
			cur = breakEnd
			continue
		}
		slots = append(slots, model.ComputedSlot{
			ID:               model.SlotID(serviceVersionID, date, seq),
			ServiceVersionID: serviceVersionID,
			Start:            cur.On(date),
			End:              (cur + duration).On(date),
			TotalCapacity:    policy.CapacityPerSlot,
		})
		seq++
		cur += step
	}
	return slots
}

// dropBlockedRanges removes slots whose interval overlaps any exception's
// blocked [start, end) range.  The test is a full interval overlap, not
// just the slot's start, so a slot straddling the range boundary is
// filtered too.
func dropBlockedRanges(slots []model.ComputedSlot, date time.Time, exceptions []model.DateException) []model.ComputedSlot {
	type window struct{ start, end time.Time }
	blocked := make([]window, 0, len(exceptions))
	for _, ex := range exceptions {
		if !ex.HasRange() {
			continue
		}
		start, err := model.ParseClock(ex.StartTime)
		if err != nil {
			continue
		}
		end, err := model.ParseClock(ex.EndTime)
		if err != nil {
			continue
		}
		blocked = append(blocked, window{start: start.On(date), end: end.On(date)})
	}
	if len(blocked) == 0 {
		return slots
	}
	kept := make([]model.ComputedSlot, 0, len(slots))
	for _, s := range slots {
		overlaps := false
		for _, w := range blocked {
			if s.Start.Before(w.end) && s.End.After(w.start) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}
	return kept
}
