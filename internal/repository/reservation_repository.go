package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// MySQL error numbers for lost lock races. 1213 is a deadlock rollback,
// 1205 a lock wait timeout; both are safe to retry a bounded number of
// times before surfacing ErrConflict.
const (
	mysqlErrDeadlock    = 1213
	mysqlErrLockTimeout = 1205
)

// capacityRetries bounds the internal retry loop on a lost capacity race.
const capacityRetries = 3

// ReservationRepo reads and writes reservation records on behalf of the
// availability engine.  It owns the one write path that must be
// race-free: inserting a reservation while holding a locking read over
// the party sizes already booked in the same slot window.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// SumPartySizes returns the total covers of PENDING and CONFIRMED
// reservations whose [starts_at, ends_at) window overlaps [start, end)
// for the service version.  Party sizes are summed, not reservation
// counts: a table of six consumes six covers of slot capacity.
func (r *ReservationRepo) SumPartySizes(ctx context.Context, serviceVersionID uint64, start, end time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(party_size), 0)
               FROM reservations
               WHERE service_version_id = ?
                 AND status IN ('PENDING', 'CONFIRMED')
                 AND starts_at < ? AND ends_at > ?`
	var booked int
	if err := r.db.QueryRowContext(ctx, q, serviceVersionID, end, start).Scan(&booked); err != nil {
		return 0, err
	}
	return booked, nil
}

// CreateWithCapacity inserts a reservation only if the slot window still
// has room for the party.  The capacity check and the insert run in one
// transaction with a locking read (SELECT ... FOR UPDATE), so two callers
// racing for the last covers serialize on the row locks: one commits, the
// other re-reads the new total and fails the check.  Deadlock rollbacks
// are retried a bounded number of times, then surfaced as ErrConflict.
// ErrInsufficientCapacity is definitive and not retried.
func (r *ReservationRepo) CreateWithCapacity(ctx context.Context, res *model.Reservation, totalCapacity int) error {
	for attempt := 0; attempt < capacityRetries; attempt++ {
		err := r.tryCreateWithCapacity(ctx, res, totalCapacity)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return ErrConflict
}

func (r *ReservationRepo) tryCreateWithCapacity(ctx context.Context, res *model.Reservation, totalCapacity int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// Locking read: under InnoDB this takes next-key locks on the scanned
	// index range, so a concurrent insert into the same window blocks
	// until this transaction resolves.
	const sumQ = `SELECT COALESCE(SUM(party_size), 0)
                  FROM reservations
                  WHERE service_version_id = ?
                    AND status IN ('PENDING', 'CONFIRMED')
                    AND starts_at < ? AND ends_at > ?
                  FOR UPDATE`
	var booked int
	if err := tx.QueryRowContext(ctx, sumQ, res.ServiceVersionID, res.EndsAt, res.StartsAt).Scan(&booked); err != nil {
		return err
	}
	if booked+res.PartySize > totalCapacity {
		return ErrInsufficientCapacity
	}
	const insQ = `INSERT INTO reservations
                    (service_version_id, legacy_slot_id, customer_id, starts_at, ends_at, party_size, status)
                  VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, insQ,
		res.ServiceVersionID, res.LegacySlotID, res.CustomerID,
		res.StartsAt, res.EndsAt, res.PartySize, res.Status,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// isRetryable reports whether the error is a lost lock race worth another
// attempt.
func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlock || mysqlErr.Number == mysqlErrLockTimeout
	}
	return false
}

// FindFutureBySlot returns PENDING and CONFIRMED reservations bound to a
// legacy slot whose reserved window starts on or after the given date.
// Used by the legacy versioner to apply a change policy.
func (r *ReservationRepo) FindFutureBySlot(ctx context.Context, slotID uint64, from time.Time) ([]model.Reservation, error) {
	const q = `SELECT id, service_version_id, legacy_slot_id, customer_id, starts_at, ends_at, party_size, status, created_at
               FROM reservations
               WHERE legacy_slot_id = ?
                 AND status IN ('PENDING', 'CONFIRMED')
                 AND starts_at >= ?
               ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, slotID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		var svID sql.NullInt64
		var legacyID sql.NullInt64
		if err := rows.Scan(&res.ID, &svID, &legacyID, &res.CustomerID,
			&res.StartsAt, &res.EndsAt, &res.PartySize, &res.Status, &res.CreatedAt); err != nil {
			return nil, err
		}
		if svID.Valid {
			res.ServiceVersionID = uint64(svID.Int64)
		}
		if legacyID.Valid {
			id := uint64(legacyID.Int64)
			res.LegacySlotID = &id
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
