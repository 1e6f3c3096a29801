package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// ScheduleRepo persists the weekly template and the slot policy of a
// service version.  Template rows are created lazily: a weekday without a
// stored entry reads back as a closed day, so the week is always complete
// from the caller's point of view.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a ScheduleRepo bound to the given database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

func scanTemplateDay(row interface{ Scan(...interface{}) error }, d *model.TemplateDay) error {
	var opens, closes, brkStart, brkEnd sql.NullString
	var weekday int
	if err := row.Scan(&d.ID, &d.ServiceVersionID, &weekday, &d.Closed,
		&opens, &closes, &brkStart, &brkEnd, &d.UpdatedAt); err != nil {
		return err
	}
	d.Weekday = time.Weekday(weekday)
	d.OpensAt = opens.String
	d.ClosesAt = closes.String
	d.BreakStart = brkStart.String
	d.BreakEnd = brkEnd.String
	return nil
}

// GetDay returns the template entry for one weekday.  When no row exists
// a synthetic closed entry is returned; the engine treats both the same.
func (r *ScheduleRepo) GetDay(ctx context.Context, serviceVersionID uint64, weekday time.Weekday) (*model.TemplateDay, error) {
	const q = `SELECT id, service_version_id, weekday, closed, opens_at, closes_at, break_start, break_end, updated_at
               FROM service_version_days
               WHERE service_version_id = ? AND weekday = ?`
	var d model.TemplateDay
	err := scanTemplateDay(r.db.QueryRowContext(ctx, q, serviceVersionID, int(weekday)), &d)
	if err == sql.ErrNoRows {
		return &model.TemplateDay{
			ServiceVersionID: serviceVersionID,
			Weekday:          weekday,
			Closed:           true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetWeek returns all seven template entries ordered Sunday through
// Saturday, filling weekdays without a stored row with closed defaults.
func (r *ScheduleRepo) GetWeek(ctx context.Context, serviceVersionID uint64) ([]model.TemplateDay, error) {
	const q = `SELECT id, service_version_id, weekday, closed, opens_at, closes_at, break_start, break_end, updated_at
               FROM service_version_days
               WHERE service_version_id = ?
               ORDER BY weekday`
	rows, err := r.db.QueryContext(ctx, q, serviceVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stored := make(map[time.Weekday]model.TemplateDay, 7)
	for rows.Next() {
		var d model.TemplateDay
		if err := scanTemplateDay(rows, &d); err != nil {
			return nil, err
		}
		stored[d.Weekday] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	week := make([]model.TemplateDay, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if d, ok := stored[wd]; ok {
			week = append(week, d)
			continue
		}
		week = append(week, model.TemplateDay{
			ServiceVersionID: serviceVersionID,
			Weekday:          wd,
			Closed:           true,
		})
	}
	return week, nil
}

// UpsertDay writes a template entry for one weekday in a single atomic
// statement and returns the stored row.  The previous value is also
// returned so the caller can audit the change.
func (r *ScheduleRepo) UpsertDay(ctx context.Context, d *model.TemplateDay) (old *model.TemplateDay, err error) {
	old, err = r.GetDay(ctx, d.ServiceVersionID, d.Weekday)
	if err != nil {
		return nil, err
	}
	const q = `INSERT INTO service_version_days
                 (service_version_id, weekday, closed, opens_at, closes_at, break_start, break_end)
               VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))
               ON DUPLICATE KEY UPDATE
                 closed = VALUES(closed),
                 opens_at = VALUES(opens_at),
                 closes_at = VALUES(closes_at),
                 break_start = VALUES(break_start),
                 break_end = VALUES(break_end),
                 updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, q,
		d.ServiceVersionID, int(d.Weekday), d.Closed,
		d.OpensAt, d.ClosesAt, d.BreakStart, d.BreakEnd,
	); err != nil {
		return nil, err
	}
	stored, err := r.GetDay(ctx, d.ServiceVersionID, d.Weekday)
	if err != nil {
		return nil, err
	}
	*d = *stored
	return old, nil
}

// GetPolicy returns the slot policy for a service version, or (nil, nil)
// when none has been configured yet.  A missing policy is not an error:
// the generator simply produces no slots.
func (r *ScheduleRepo) GetPolicy(ctx context.Context, serviceVersionID uint64) (*model.SlotPolicy, error) {
	const q = `SELECT id, service_version_id, slot_duration_min, buffer_min, capacity_per_slot, daily_start, daily_end, updated_at
               FROM slot_policies
               WHERE service_version_id = ?`
	var p model.SlotPolicy
	var dailyStart, dailyEnd sql.NullString
	err := r.db.QueryRowContext(ctx, q, serviceVersionID).Scan(
		&p.ID, &p.ServiceVersionID, &p.SlotDurationMin, &p.BufferMin,
		&p.CapacityPerSlot, &dailyStart, &dailyEnd, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.DailyStart = dailyStart.String
	p.DailyEnd = dailyEnd.String
	return &p, nil
}

// UpsertPolicy replaces the service version's slot policy atomically and
// returns the previous policy (nil when none existed) for auditing.
// Replacing a policy changes future computations only.
func (r *ScheduleRepo) UpsertPolicy(ctx context.Context, p *model.SlotPolicy) (old *model.SlotPolicy, err error) {
	old, err = r.GetPolicy(ctx, p.ServiceVersionID)
	if err != nil {
		return nil, err
	}
	const q = `INSERT INTO slot_policies
                 (service_version_id, slot_duration_min, buffer_min, capacity_per_slot, daily_start, daily_end)
               VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
               ON DUPLICATE KEY UPDATE
                 slot_duration_min = VALUES(slot_duration_min),
                 buffer_min = VALUES(buffer_min),
                 capacity_per_slot = VALUES(capacity_per_slot),
                 daily_start = VALUES(daily_start),
                 daily_end = VALUES(daily_end),
                 updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, q,
		p.ServiceVersionID, p.SlotDurationMin, p.BufferMin,
		p.CapacityPerSlot, p.DailyStart, p.DailyEnd,
	); err != nil {
		return nil, err
	}
	stored, err := r.GetPolicy(ctx, p.ServiceVersionID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		*p = *stored
	}
	return old, nil
}
