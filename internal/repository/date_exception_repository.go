package repository

import (
	"context"
	"database/sql"

	"time"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// DateExceptionRepo persists date-specific schedule overrides.  Several
// exceptions may exist per (service version, date); list order is fixed
// to (created_at, id) ascending so the generator's field resolution is
// deterministic — the most recently created exception wins each field it
// sets.
type DateExceptionRepo struct {
	db *sql.DB
}

// NewDateExceptionRepo returns a DateExceptionRepo bound to the given database.
func NewDateExceptionRepo(db *sql.DB) *DateExceptionRepo { return &DateExceptionRepo{db: db} }

func scanException(row interface{ Scan(...interface{}) error }, e *model.DateException) error {
	var start, end, ovOpen, ovClose, note sql.NullString
	if err := row.Scan(&e.ID, &e.ServiceVersionID, &e.Date, &e.Type, &e.FullyClosed,
		&start, &end, &ovOpen, &ovClose, &note, &e.CreatedAt); err != nil {
		return err
	}
	e.StartTime = start.String
	e.EndTime = end.String
	e.OverrideOpensAt = ovOpen.String
	e.OverrideClosesAt = ovClose.String
	e.Note = note.String
	return nil
}

const exceptionColumns = `id, service_version_id, exception_date, exception_type, fully_closed,
               start_time, end_time, override_opens_at, override_closes_at, note, created_at`

// GetByID returns a single exception.  ErrExceptionNotFound is returned
// when no row exists.
func (r *DateExceptionRepo) GetByID(ctx context.Context, id uint64) (*model.DateException, error) {
	const q = `SELECT ` + exceptionColumns + `
               FROM date_exceptions WHERE id = ?`
	var e model.DateException
	err := scanException(r.db.QueryRowContext(ctx, q, id), &e)
	if err == sql.ErrNoRows {
		return nil, ErrExceptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByDate returns every exception targeting (service version, date) in
// creation order.  The order is part of the engine's contract: later
// exceptions override earlier ones field by field.
func (r *DateExceptionRepo) ListByDate(ctx context.Context, serviceVersionID uint64, date time.Time) ([]model.DateException, error) {
	const q = `SELECT ` + exceptionColumns + `
               FROM date_exceptions
               WHERE service_version_id = ? AND exception_date = ?
               ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, serviceVersionID, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	exceptions := make([]model.DateException, 0)
	for rows.Next() {
		var e model.DateException
		if err := scanException(rows, &e); err != nil {
			return nil, err
		}
		exceptions = append(exceptions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exceptions, nil
}

// Create inserts a new exception and populates its generated id and
// creation timestamp.
func (r *DateExceptionRepo) Create(ctx context.Context, e *model.DateException) error {
	const q = `INSERT INTO date_exceptions
                 (service_version_id, exception_date, exception_type, fully_closed,
                  start_time, end_time, override_opens_at, override_closes_at, note)
               VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)`
	result, err := r.db.ExecContext(ctx, q,
		e.ServiceVersionID, e.Date.Format("2006-01-02"), e.Type, e.FullyClosed,
		e.StartTime, e.EndTime, e.OverrideOpensAt, e.OverrideClosesAt, e.Note,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	stored, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *stored
	return nil
}

// Delete removes an exception.  ErrExceptionNotFound is returned when the
// id does not exist, so callers can distinguish a no-op from success.
func (r *DateExceptionRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM date_exceptions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExceptionNotFound
	}
	return nil
}
