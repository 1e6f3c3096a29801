package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

type serviceFixture struct {
	svc      *Service
	versions *fakeVersions
	audit    *fakeAuditor
	counter  *fakeCounter
}

func newServiceFixture() *serviceFixture {
	versions := &fakeVersions{versions: map[uint64]*model.ServiceVersion{
		1: {ID: 1, RestaurantID: 10, State: model.VersionActive},
	}}
	audit := &fakeAuditor{}
	counter := &fakeCounter{counts: map[string]int{}}
	svc := NewService(versions, dinnerTemplates(), dinnerPolicy(), &fakeExceptions{}, counter, audit, zerolog.Nop())
	return &serviceFixture{svc: svc, versions: versions, audit: audit, counter: counter}
}

func TestWeeklyTemplateReturnsSevenDays(t *testing.T) {
	f := newServiceFixture()

	week, err := f.svc.WeeklyTemplate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, week, 7)
	assert.Equal(t, time.Sunday, week[0].Weekday)
	assert.True(t, week[0].Closed)
	assert.False(t, week[1].Closed)
	assert.Equal(t, "18:00", week[1].OpensAt)
}

func TestWeeklyTemplateUnknownVersion(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.WeeklyTemplate(context.Background(), 99)
	assert.Error(t, err)
}

func TestAvailableSlotsPipeline(t *testing.T) {
	f := newServiceFixture()
	f.counter.counts[at(monday, 18, 0).Format(time.RFC3339)] = 5

	slots, err := f.svc.AvailableSlots(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 5, slots[0].Booked)
	assert.Equal(t, 15, slots[0].Available)
	assert.Equal(t, 20, slots[1].Available)
}

func TestRestaurantSlotsMergesActiveVersions(t *testing.T) {
	f := newServiceFixture()
	f.versions.versions[2] = &model.ServiceVersion{ID: 2, RestaurantID: 10, State: model.VersionActive}
	f.versions.versions[3] = &model.ServiceVersion{ID: 3, RestaurantID: 10, State: model.VersionArchived}

	slots, err := f.svc.RestaurantSlots(context.Background(), 10, monday)
	require.NoError(t, err)
	// Two active versions share the template fake, archived excluded.
	require.Len(t, slots, 4)
	for i := 1; i < len(slots); i++ {
		assert.False(t, slots[i].Start.Before(slots[i-1].Start))
	}
}

func TestUpdateTemplateDayValidatesAndAudits(t *testing.T) {
	f := newServiceFixture()

	day := &model.TemplateDay{
		Weekday:  time.Tuesday,
		OpensAt:  "12:00",
		ClosesAt: "15:00",
	}
	updated, err := f.svc.UpdateTemplateDay(context.Background(), 1, 5, day)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), updated.ServiceVersionID)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.AuditTemplateDay, f.audit.entries[0].EntityType)
	assert.Equal(t, uint64(5), f.audit.entries[0].ActorID)

	// Tuesday now opens.
	slots, err := f.svc.AvailableSlots(context.Background(), 1, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
}

func TestUpdateTemplateDayRejectsInvertedHours(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.UpdateTemplateDay(context.Background(), 1, 5, &model.TemplateDay{
		Weekday: time.Tuesday, OpensAt: "15:00", ClosesAt: "12:00",
	})
	assert.Error(t, err)
	assert.Empty(t, f.audit.entries)
}

func TestUpdateSlotPolicyChangesFutureComputation(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.UpdateSlotPolicy(context.Background(), 1, 5, &model.SlotPolicy{
		SlotDurationMin: 60, BufferMin: 0, CapacityPerSlot: 8,
	})
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.Equal(t, 8, slots[0].TotalCapacity)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.AuditSlotPolicy, f.audit.entries[0].EntityType)
}

func TestUpdateSlotPolicyRejectsZeroDuration(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.UpdateSlotPolicy(context.Background(), 1, 5, &model.SlotPolicy{
		SlotDurationMin: 0, CapacityPerSlot: 8,
	})
	assert.Error(t, err)
}

func TestCreateAndDeleteException(t *testing.T) {
	f := newServiceFixture()

	ex, err := f.svc.CreateException(context.Background(), 1, 5, &model.DateException{
		Date: monday, Type: model.ExceptionFullClosure, FullyClosed: true,
	})
	require.NoError(t, err)
	require.NotZero(t, ex.ID)

	slots, err := f.svc.AvailableSlots(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Empty(t, slots)

	deleted, err := f.svc.DeleteException(context.Background(), ex.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), deleted.ServiceVersionID)

	slots, err = f.svc.AvailableSlots(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	require.Len(t, f.audit.entries, 2)
}

func TestCreateExceptionRejectsHalfOpenRange(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.CreateException(context.Background(), 1, 5, &model.DateException{
		Date: monday, Type: model.ExceptionPartialClosure, StartTime: "19:00",
	})
	assert.Error(t, err)
}

func TestDeactivateAndReactivateVersion(t *testing.T) {
	f := newServiceFixture()

	require.NoError(t, f.svc.DeactivateVersion(context.Background(), 1, 10, 5))
	assert.Equal(t, model.VersionArchived, f.versions.versions[1].State)

	require.NoError(t, f.svc.ReactivateVersion(context.Background(), 1, 10, 5))
	assert.Equal(t, model.VersionActive, f.versions.versions[1].State)
	assert.Len(t, f.audit.entries, 2)
}
