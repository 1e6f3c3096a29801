package schedule

import (
	"context"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// Resolver enriches candidate slots with live booking totals.  Like the
// Generator it performs reads only; the counts it reads are mutable
// shared state, so callers must treat the result as a snapshot valid for
// a single request cycle — the capacity-checked insert re-verifies under
// a lock before committing.
type Resolver struct {
	counter ReservationCounter
}

// NewResolver constructs a Resolver over the given reservation counter.
func NewResolver(counter ReservationCounter) *Resolver {
	return &Resolver{counter: counter}
}

// Resolve populates Booked, Available and IsAvailable on every slot in
// place and returns the same slice.  Booked sums the party sizes of
// PENDING and CONFIRMED reservations overlapping the slot window;
// Available floors at zero even when overbooked.
func (r *Resolver) Resolve(ctx context.Context, slots []model.ComputedSlot) ([]model.ComputedSlot, error) {
	for i := range slots {
		s := &slots[i]
		booked, err := r.counter.SumPartySizes(ctx, s.ServiceVersionID, s.Start, s.End)
		if err != nil {
			return nil, err
		}
		s.Booked = booked
		s.Available = s.TotalCapacity - booked
		if s.Available < 0 {
			s.Available = 0
		}
		s.IsAvailable = s.Available > 0
	}
	return slots, nil
}
