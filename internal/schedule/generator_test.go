package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// monday is a fixed Monday used across the generation tests.
var monday = time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

func dinnerTemplates() *fakeTemplates {
	return &fakeTemplates{days: map[time.Weekday]*model.TemplateDay{
		time.Monday: {
			ServiceVersionID: 1,
			Weekday:          time.Monday,
			OpensAt:          "18:00",
			ClosesAt:         "22:00",
		},
	}}
}

func dinnerPolicy() *fakePolicies {
	return &fakePolicies{policy: &model.SlotPolicy{
		ServiceVersionID: 1,
		SlotDurationMin:  90,
		BufferMin:        15,
		CapacityPerSlot:  20,
	}}
}

func at(date time.Time, hour, min int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, time.UTC)
}

func TestGenerateDinnerDay(t *testing.T) {
	gen := NewGenerator(dinnerTemplates(), dinnerPolicy(), &fakeExceptions{})

	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, at(monday, 18, 0), slots[0].Start)
	assert.Equal(t, at(monday, 19, 30), slots[0].End)
	assert.Equal(t, at(monday, 19, 45), slots[1].Start)
	assert.Equal(t, at(monday, 21, 15), slots[1].End)
	assert.Equal(t, "sv1-2026-09-07-001", slots[0].ID)
	assert.Equal(t, "sv1-2026-09-07-002", slots[1].ID)
	for _, s := range slots {
		assert.Equal(t, 20, s.TotalCapacity)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := NewGenerator(dinnerTemplates(), dinnerPolicy(), &fakeExceptions{})

	first, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateEmptyResults(t *testing.T) {
	tests := []struct {
		name       string
		templates  *fakeTemplates
		policies   *fakePolicies
		exceptions *fakeExceptions
	}{
		{
			name:       "closed day",
			templates:  &fakeTemplates{days: map[time.Weekday]*model.TemplateDay{time.Monday: {Weekday: time.Monday, Closed: true}}},
			policies:   dinnerPolicy(),
			exceptions: &fakeExceptions{},
		},
		{
			name:       "no template entry",
			templates:  &fakeTemplates{days: map[time.Weekday]*model.TemplateDay{}},
			policies:   dinnerPolicy(),
			exceptions: &fakeExceptions{},
		},
		{
			name:       "no policy",
			templates:  dinnerTemplates(),
			policies:   &fakePolicies{},
			exceptions: &fakeExceptions{},
		},
		{
			name:      "full closure exception",
			templates: dinnerTemplates(),
			policies:  dinnerPolicy(),
			exceptions: &fakeExceptions{items: []model.DateException{{
				ID: 1, ServiceVersionID: 1, Date: monday,
				Type: model.ExceptionFullClosure, FullyClosed: true,
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(tt.templates, tt.policies, tt.exceptions)
			slots, err := gen.Generate(context.Background(), 1, monday)
			require.NoError(t, err)
			assert.Empty(t, slots)
		})
	}
}

func TestGenerateSkipsBreakWindow(t *testing.T) {
	templates := &fakeTemplates{days: map[time.Weekday]*model.TemplateDay{
		time.Monday: {
			ServiceVersionID: 1,
			Weekday:          time.Monday,
			OpensAt:          "12:00",
			ClosesAt:         "15:00",
			BreakStart:       "13:00",
			BreakEnd:         "13:30",
		},
	}}
	policies := &fakePolicies{policy: &model.SlotPolicy{
		SlotDurationMin: 60, BufferMin: 0, CapacityPerSlot: 10,
	}}
	gen := NewGenerator(templates, policies, &fakeExceptions{})

	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, at(monday, 12, 0), slots[0].Start)
	assert.Equal(t, at(monday, 13, 30), slots[1].Start)
	assert.Equal(t, at(monday, 14, 30), slots[1].End)

	// No slot interval may intersect the break window.
	breakStart, breakEnd := at(monday, 13, 0), at(monday, 13, 30)
	for _, s := range slots {
		assert.False(t, s.Start.Before(breakEnd) && s.End.After(breakStart),
			"slot %s-%s intersects the break", s.Start, s.End)
	}
}

func TestGeneratePartialClosureDropsOverlappingSlots(t *testing.T) {
	exceptions := &fakeExceptions{items: []model.DateException{{
		ID: 1, ServiceVersionID: 1, Date: monday,
		Type: model.ExceptionPartialClosure, StartTime: "19:00", EndTime: "20:00",
	}}}
	gen := NewGenerator(dinnerTemplates(), dinnerPolicy(), exceptions)

	// 18:00-19:30 overlaps the blocked hour at its tail, 19:45-21:15 at
	// its head; both must be dropped.
	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGeneratePartialClosureKeepsDisjointSlots(t *testing.T) {
	exceptions := &fakeExceptions{items: []model.DateException{{
		ID: 1, ServiceVersionID: 1, Date: monday,
		Type: model.ExceptionMaintenance, StartTime: "21:00", EndTime: "22:00",
	}}}
	gen := NewGenerator(dinnerTemplates(), dinnerPolicy(), exceptions)

	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, at(monday, 18, 0), slots[0].Start)
}

func TestGenerateReducedHoursOverride(t *testing.T) {
	exceptions := &fakeExceptions{items: []model.DateException{{
		ID: 1, ServiceVersionID: 1, Date: monday,
		Type: model.ExceptionReducedHours, OverrideClosesAt: "20:00",
	}}}
	gen := NewGenerator(dinnerTemplates(), dinnerPolicy(), exceptions)

	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, at(monday, 19, 30), slots[0].End)
}

func TestGenerateLastCreatedExceptionWinsPerField(t *testing.T) {
	exceptions := &fakeExceptions{items: []model.DateException{
		{
			ID: 1, ServiceVersionID: 1, Date: monday,
			Type: model.ExceptionReducedHours, OverrideClosesAt: "20:00",
			CreatedAt: monday.Add(-2 * time.Hour),
		},
		{
			ID: 2, ServiceVersionID: 1, Date: monday,
			Type: model.ExceptionReducedHours, OverrideClosesAt: "21:30",
			CreatedAt: monday.Add(-1 * time.Hour),
		},
	}}
	gen := NewGenerator(dinnerTemplates(), dinnerPolicy(), exceptions)

	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, at(monday, 21, 15), slots[1].End)
}

func TestGeneratePolicyDailyWindowOverridesTemplate(t *testing.T) {
	policies := &fakePolicies{policy: &model.SlotPolicy{
		SlotDurationMin: 90, BufferMin: 15, CapacityPerSlot: 20,
		DailyStart: "19:00", DailyEnd: "22:00",
	}}
	gen := NewGenerator(dinnerTemplates(), policies, &fakeExceptions{})

	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, at(monday, 19, 0), slots[0].Start)
	assert.Equal(t, at(monday, 20, 45), slots[1].Start)
}

func TestGenerateWindowTooShortForOneSlot(t *testing.T) {
	templates := &fakeTemplates{days: map[time.Weekday]*model.TemplateDay{
		time.Monday: {Weekday: time.Monday, OpensAt: "18:00", ClosesAt: "19:00"},
	}}
	gen := NewGenerator(templates, dinnerPolicy(), &fakeExceptions{})

	slots, err := gen.Generate(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}
