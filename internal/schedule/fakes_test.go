package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// In-memory store fakes shared by the engine tests.

var (
	errNotFoundInFake = errors.New("not found")
	errCapacityInFake = errors.New("insufficient capacity")
)

type fakeTemplates struct {
	days map[time.Weekday]*model.TemplateDay
}

func (f *fakeTemplates) GetDay(_ context.Context, serviceVersionID uint64, weekday time.Weekday) (*model.TemplateDay, error) {
	if d, ok := f.days[weekday]; ok {
		return d, nil
	}
	return &model.TemplateDay{ServiceVersionID: serviceVersionID, Weekday: weekday, Closed: true}, nil
}

func (f *fakeTemplates) GetWeek(_ context.Context, serviceVersionID uint64) ([]model.TemplateDay, error) {
	week := make([]model.TemplateDay, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if d, ok := f.days[wd]; ok {
			week = append(week, *d)
		} else {
			week = append(week, model.TemplateDay{ServiceVersionID: serviceVersionID, Weekday: wd, Closed: true})
		}
	}
	return week, nil
}

func (f *fakeTemplates) UpsertDay(_ context.Context, d *model.TemplateDay) (*model.TemplateDay, error) {
	old := f.days[d.Weekday]
	f.days[d.Weekday] = d
	return old, nil
}

type fakePolicies struct {
	policy *model.SlotPolicy
}

func (f *fakePolicies) GetPolicy(context.Context, uint64) (*model.SlotPolicy, error) {
	return f.policy, nil
}

func (f *fakePolicies) UpsertPolicy(_ context.Context, p *model.SlotPolicy) (*model.SlotPolicy, error) {
	old := f.policy
	f.policy = p
	return old, nil
}

type fakeExceptions struct {
	items  []model.DateException
	nextID uint64
}

func (f *fakeExceptions) ListByDate(_ context.Context, serviceVersionID uint64, date time.Time) ([]model.DateException, error) {
	out := make([]model.DateException, 0)
	for _, e := range f.items {
		if e.ServiceVersionID == serviceVersionID && sameDate(e.Date, date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExceptions) GetByID(_ context.Context, id uint64) (*model.DateException, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, errNotFoundInFake
}

func (f *fakeExceptions) Create(_ context.Context, e *model.DateException) error {
	f.nextID++
	e.ID = f.nextID
	f.items = append(f.items, *e)
	return nil
}

func (f *fakeExceptions) Delete(_ context.Context, id uint64) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return errNotFoundInFake
}

type fakeVersions struct {
	versions map[uint64]*model.ServiceVersion
}

func (f *fakeVersions) GetByID(_ context.Context, id uint64) (*model.ServiceVersion, error) {
	if v, ok := f.versions[id]; ok {
		return v, nil
	}
	return nil, errNotFoundInFake
}

func (f *fakeVersions) ListActiveByRestaurant(_ context.Context, restaurantID uint64) ([]model.ServiceVersion, error) {
	out := make([]model.ServiceVersion, 0)
	for _, v := range f.versions {
		if v.RestaurantID == restaurantID && v.IsActive() {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVersions) SetState(_ context.Context, id, restaurantID uint64, state string) error {
	v, ok := f.versions[id]
	if !ok || v.RestaurantID != restaurantID {
		return errNotFoundInFake
	}
	v.State = state
	return nil
}

// fakeCounter reports booked covers keyed by the window's RFC3339 start.
type fakeCounter struct {
	counts map[string]int
}

func (f *fakeCounter) SumPartySizes(_ context.Context, _ uint64, start, _ time.Time) (int, error) {
	return f.counts[start.Format(time.RFC3339)], nil
}

// fakeBooker records created reservations and mimics the transactional
// capacity re-check: its own committed bookings are tallied under a lock
// and stay invisible to the counter the resolver reads, the same way a
// stale availability snapshot lags the reservations table.
type fakeBooker struct {
	counter *fakeCounter
	mu      sync.Mutex
	booked  map[string]int
	created []*model.Reservation
	fail    error
}

func (f *fakeBooker) CreateWithCapacity(_ context.Context, res *model.Reservation, totalCapacity int) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.booked == nil {
		f.booked = map[string]int{}
	}
	key := res.StartsAt.Format(time.RFC3339)
	if f.counter.counts[key]+f.booked[key]+res.PartySize > totalCapacity {
		return errCapacityInFake
	}
	f.booked[key] += res.PartySize
	res.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, res)
	return nil
}

type fakeAuditor struct {
	entries []*model.AuditEntry
}

func (f *fakeAuditor) Append(_ context.Context, e *model.AuditEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
