package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

func TestResolveBookingCounts(t *testing.T) {
	first := at(monday, 18, 0)
	second := at(monday, 19, 45)
	counter := &fakeCounter{counts: map[string]int{
		first.Format(time.RFC3339):  14,
		second.Format(time.RFC3339): 20,
	}}
	slots := []model.ComputedSlot{
		{ServiceVersionID: 1, Start: first, End: at(monday, 19, 30), TotalCapacity: 20},
		{ServiceVersionID: 1, Start: second, End: at(monday, 21, 15), TotalCapacity: 20},
	}

	resolved, err := NewResolver(counter).Resolve(context.Background(), slots)
	require.NoError(t, err)

	assert.Equal(t, 14, resolved[0].Booked)
	assert.Equal(t, 6, resolved[0].Available)
	assert.True(t, resolved[0].IsAvailable)

	assert.Equal(t, 20, resolved[1].Booked)
	assert.Equal(t, 0, resolved[1].Available)
	assert.False(t, resolved[1].IsAvailable)
}

func TestResolveOverbookedFloorsAtZero(t *testing.T) {
	start := at(monday, 18, 0)
	counter := &fakeCounter{counts: map[string]int{start.Format(time.RFC3339): 25}}
	slots := []model.ComputedSlot{
		{ServiceVersionID: 1, Start: start, End: at(monday, 19, 30), TotalCapacity: 20},
	}

	resolved, err := NewResolver(counter).Resolve(context.Background(), slots)
	require.NoError(t, err)
	assert.Equal(t, 25, resolved[0].Booked)
	assert.Equal(t, 0, resolved[0].Available)
	assert.False(t, resolved[0].IsAvailable)
}

func TestResolveEmptyInput(t *testing.T) {
	resolved, err := NewResolver(&fakeCounter{counts: map[string]int{}}).
		Resolve(context.Background(), []model.ComputedSlot{})
	require.NoError(t, err)
	assert.Empty(t, resolved)
}
