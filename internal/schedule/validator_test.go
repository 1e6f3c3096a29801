package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

type validatorFixture struct {
	validator *Validator
	counter   *fakeCounter
	booker    *fakeBooker
	versions  *fakeVersions
}

func newValidatorFixture() *validatorFixture {
	versions := &fakeVersions{versions: map[uint64]*model.ServiceVersion{
		1: {ID: 1, RestaurantID: 10, State: model.VersionActive},
		2: {ID: 2, RestaurantID: 10, State: model.VersionArchived},
	}}
	counter := &fakeCounter{counts: map[string]int{}}
	booker := &fakeBooker{counter: counter}
	svc := NewService(versions, dinnerTemplates(), dinnerPolicy(), &fakeExceptions{}, counter, nil, zerolog.Nop())
	v := NewValidator(versions, svc, booker, zerolog.Nop())
	v.now = func() time.Time { return at(monday, 9, 0) }
	return &validatorFixture{validator: v, counter: counter, booker: booker, versions: versions}
}

func TestValidateAccepts(t *testing.T) {
	f := newValidatorFixture()

	result, err := f.validator.Validate(context.Background(), &ValidationRequest{
		ServiceVersionID: 1,
		StartsAt:         at(monday, 18, 0),
		PartySize:        4,
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, result.Slot)
	assert.Equal(t, at(monday, 18, 0), result.Slot.Start)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		req    ValidationRequest
		reason string
	}{
		{
			name:   "zero party size",
			req:    ValidationRequest{ServiceVersionID: 1, StartsAt: at(monday, 18, 0), PartySize: 0},
			reason: "party size must be at least 1",
		},
		{
			name:   "zero party size short-circuits past date",
			req:    ValidationRequest{ServiceVersionID: 1, StartsAt: at(monday.AddDate(0, 0, -7), 18, 0), PartySize: 0},
			reason: "party size must be at least 1",
		},
		{
			name:   "archived version",
			req:    ValidationRequest{ServiceVersionID: 2, StartsAt: at(monday, 18, 0), PartySize: 2},
			reason: "service version is not accepting reservations",
		},
		{
			name:   "date in the past",
			req:    ValidationRequest{ServiceVersionID: 1, StartsAt: at(monday.AddDate(0, 0, -1), 18, 0), PartySize: 2},
			reason: "requested date is in the past",
		},
		{
			name:   "closed date",
			req:    ValidationRequest{ServiceVersionID: 1, StartsAt: at(monday.AddDate(0, 0, 1), 18, 0), PartySize: 2},
			reason: "no availability on the requested date",
		},
		{
			name:   "time between slots",
			req:    ValidationRequest{ServiceVersionID: 1, StartsAt: at(monday, 19, 35), PartySize: 2},
			reason: "requested time does not match an available slot",
		},
		{
			name:   "party larger than slot capacity",
			req:    ValidationRequest{ServiceVersionID: 1, StartsAt: at(monday, 18, 0), PartySize: 21},
			reason: "party size exceeds slot capacity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newValidatorFixture()
			result, err := f.validator.Validate(context.Background(), &tt.req)
			require.NoError(t, err)
			assert.False(t, result.Valid)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestValidateZeroPartySizeSkipsVersionLookup(t *testing.T) {
	f := newValidatorFixture()

	// Version 99 does not exist; a zero party size must still come back
	// as a structured rejection, not a lookup error.
	result, err := f.validator.Validate(context.Background(), &ValidationRequest{
		ServiceVersionID: 99,
		StartsAt:         at(monday, 18, 0),
		PartySize:        0,
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "party size must be at least 1", result.Reason)
}

func TestValidateSameDayEarlierTimeIsNotPast(t *testing.T) {
	f := newValidatorFixture()
	f.validator.now = func() time.Time { return at(monday, 19, 0) }

	// 18:00 is before "now" but on today's date; the past check is
	// date-granular, so the request reaches the slot match instead.
	result, err := f.validator.Validate(context.Background(), &ValidationRequest{
		ServiceVersionID: 1,
		StartsAt:         at(monday, 18, 0),
		PartySize:        2,
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateMismatchOffersOpenWindows(t *testing.T) {
	f := newValidatorFixture()
	// Fill the first slot completely; only the second stays offerable.
	f.counter.counts[at(monday, 18, 0).Format(time.RFC3339)] = 20

	result, err := f.validator.Validate(context.Background(), &ValidationRequest{
		ServiceVersionID: 1,
		StartsAt:         at(monday, 22, 30),
		PartySize:        2,
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.AvailableTimes, 1)
	assert.Equal(t, at(monday, 19, 45), result.AvailableTimes[0].Start)
	assert.Equal(t, 20, result.AvailableTimes[0].Available)
}

func TestValidateInsufficientCapacity(t *testing.T) {
	f := newValidatorFixture()
	f.counter.counts[at(monday, 18, 0).Format(time.RFC3339)] = 18

	result, err := f.validator.Validate(context.Background(), &ValidationRequest{
		ServiceVersionID: 1,
		StartsAt:         at(monday, 18, 0),
		PartySize:        4,
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "insufficient capacity for the requested time", result.Reason)
	// Only windows that can actually seat the party are offered back.
	require.Len(t, result.AvailableTimes, 1)
	assert.Equal(t, at(monday, 19, 45), result.AvailableTimes[0].Start)
}

func TestFindAlternativesGroupsByDay(t *testing.T) {
	f := newValidatorFixture()

	alts, err := f.validator.FindAlternatives(context.Background(), 1, monday, 2, 7)
	require.NoError(t, err)
	// The template opens Mondays only: the preferred Monday at offset 0
	// and the following Monday at offset 7.
	require.Len(t, alts, 2)

	assert.Equal(t, monday, alts[0].Date)
	assert.Equal(t, 0, alts[0].OffsetDays)
	assert.Equal(t, 2, alts[0].Count)
	require.Len(t, alts[0].Slots, 2)
	assert.Equal(t, at(monday, 18, 0), alts[0].FirstStart)
	assert.Equal(t, at(monday, 19, 45), alts[0].LastStart)

	nextMonday := monday.AddDate(0, 0, 7)
	assert.Equal(t, nextMonday, alts[1].Date)
	assert.Equal(t, 7, alts[1].OffsetDays)
	assert.Equal(t, at(nextMonday, 18, 0), alts[1].FirstStart)
}

func TestFindAlternativesDefaultHorizon(t *testing.T) {
	f := newValidatorFixture()

	// daysAhead <= 0 falls back to seven days past the preferred date.
	alts, err := f.validator.FindAlternatives(context.Background(), 1, monday, 2, 0)
	require.NoError(t, err)
	require.Len(t, alts, 2)
	assert.Equal(t, 7, alts[1].OffsetDays)
}

func TestFindAlternativesEarlyExitAtTenDates(t *testing.T) {
	f := newValidatorFixture()

	alts, err := f.validator.FindAlternatives(context.Background(), 1, monday, 2, 90)
	require.NoError(t, err)
	// Thirteen Mondays fall inside ninety days; the scan stops at ten
	// alternative dates.
	require.Len(t, alts, maxAlternativeDates)
	assert.Equal(t, 63, alts[len(alts)-1].OffsetDays)
}

func TestFindAlternativesClampsHorizon(t *testing.T) {
	f := newValidatorFixture()
	// Close every Monday except the preferred one far beyond the cap.
	for _, d := range []int{7, 14, 21, 28, 35, 42, 49, 56, 63, 70, 77, 84} {
		f.counter.counts[at(monday.AddDate(0, 0, d), 18, 0).Format(time.RFC3339)] = 20
		f.counter.counts[at(monday.AddDate(0, 0, d), 19, 45).Format(time.RFC3339)] = 20
	}

	alts, err := f.validator.FindAlternatives(context.Background(), 1, monday, 2, 500)
	require.NoError(t, err)
	// Offsets past ninety are never scanned even when requested.
	require.Len(t, alts, 1)
	assert.Equal(t, 0, alts[0].OffsetDays)
}

func TestFindAlternativesFiltersByPartySize(t *testing.T) {
	f := newValidatorFixture()
	f.counter.counts[at(monday, 18, 0).Format(time.RFC3339)] = 19

	alts, err := f.validator.FindAlternatives(context.Background(), 1, monday, 4, 6)
	require.NoError(t, err)
	// Only the 19:45 slot can seat four; the day still surfaces with the
	// one qualifying window.
	require.Len(t, alts, 1)
	assert.Equal(t, 1, alts[0].Count)
	assert.Equal(t, at(monday, 19, 45), alts[0].Slots[0].Start)
}

func TestReserveCreatesPendingReservation(t *testing.T) {
	f := newValidatorFixture()

	result, res, err := f.validator.Reserve(context.Background(), &ValidationRequest{
		ServiceVersionID: 1,
		StartsAt:         at(monday, 18, 0),
		PartySize:        4,
	}, 77)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, res)
	assert.Equal(t, model.ReservationPending, res.Status)
	assert.Equal(t, uint64(77), res.CustomerID)
	assert.Equal(t, at(monday, 18, 0), res.StartsAt)
	assert.Equal(t, at(monday, 19, 30), res.EndsAt)
	require.Len(t, f.booker.created, 1)
}

func TestReserveInvalidRequestBooksNothing(t *testing.T) {
	f := newValidatorFixture()

	result, res, err := f.validator.Reserve(context.Background(), &ValidationRequest{
		ServiceVersionID: 1,
		StartsAt:         at(monday, 18, 0),
		PartySize:        50,
	}, 77)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Nil(t, res)
	assert.Empty(t, f.booker.created)
}

func TestReservePropagatesCapacityRace(t *testing.T) {
	f := newValidatorFixture()
	f.booker.fail = errCapacityInFake

	_, _, err := f.validator.Reserve(context.Background(), &ValidationRequest{
		ServiceVersionID: 1,
		StartsAt:         at(monday, 18, 0),
		PartySize:        4,
	}, 77)
	assert.ErrorIs(t, err, errCapacityInFake)
}

// TestReserveConcurrentLastSeat drives two racing reservations at a slot
// with one seat left.  Both validations read the same stale count, so
// only the booker's transactional re-check can keep the second insert
// out: exactly one call must succeed and the loser must surface a
// capacity error rather than overbook.
func TestReserveConcurrentLastSeat(t *testing.T) {
	f := newValidatorFixture()
	// 19 of 20 covers booked: one seat remains.
	f.counter.counts[at(monday, 18, 0).Format(time.RFC3339)] = 19

	req := func() *ValidationRequest {
		return &ValidationRequest{
			ServiceVersionID: 1,
			StartsAt:         at(monday, 18, 0),
			PartySize:        1,
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	results := make([]*model.Reservation, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, res, err := f.validator.Reserve(context.Background(), req(), uint64(100+i))
			results[i] = res
			errs[i] = err
		}(i)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for i := 0; i < 2; i++ {
		switch {
		case errs[i] == nil && results[i] != nil:
			succeeded++
		case errs[i] != nil:
			assert.ErrorIs(t, errs[i], errCapacityInFake)
			failed++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one reservation must win the last seat")
	assert.Equal(t, 1, failed, "the loser must get a capacity error")
	require.Len(t, f.booker.created, 1)
}
