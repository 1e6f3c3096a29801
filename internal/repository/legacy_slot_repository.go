package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tavolo/restaurant-reservation/internal/legacy"
	"github.com/tavolo/restaurant-reservation/internal/model"
)

// LegacySlotRepo persists the superseded recurring-slot model and backs
// the legacy versioner.  The versioner's three-step mutation (close old,
// create new, link) runs inside a single transaction through InTx, so a
// crash mid-change never leaves a weekday without an active successor.
type LegacySlotRepo struct {
	db *sql.DB
}

// NewLegacySlotRepo returns a LegacySlotRepo bound to the given database.
func NewLegacySlotRepo(db *sql.DB) *LegacySlotRepo { return &LegacySlotRepo{db: db} }

// compile-time check: the repo satisfies the versioner's store contract.
var _ legacy.Store = (*LegacySlotRepo)(nil)

const legacySlotColumns = `id, service_id, weekday, starts_at, ends_at, valid_from, valid_to, active, superseded_by, change_policy`

func scanLegacySlot(row interface{ Scan(...interface{}) error }) (*model.LegacySlot, error) {
	var s model.LegacySlot
	var weekday int
	var superseded sql.NullInt64
	if err := row.Scan(&s.ID, &s.ServiceID, &weekday, &s.StartsAt, &s.EndsAt,
		&s.ValidFrom, &s.ValidTo, &s.Active, &superseded, &s.ChangePolicy); err != nil {
		return nil, err
	}
	s.Weekday = time.Weekday(weekday)
	if superseded.Valid {
		id := uint64(superseded.Int64)
		s.SupersededBy = &id
	}
	return &s, nil
}

// GetByID loads one legacy slot outside any transaction.
func (r *LegacySlotRepo) GetByID(ctx context.Context, id uint64) (*model.LegacySlot, error) {
	const q = `SELECT ` + legacySlotColumns + ` FROM legacy_slots WHERE id = ?`
	s, err := scanLegacySlot(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// InTx runs fn against a transactional view of the slot and reservation
// tables.  Any error from fn rolls the whole unit back.
func (r *LegacySlotRepo) InTx(ctx context.Context, fn func(tx legacy.Tx) error) error {
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
	if err := fn(&legacySlotTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// legacySlotTx is the SQL implementation of legacy.Tx.
type legacySlotTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *legacySlotTx) GetSlot(id uint64) (*model.LegacySlot, error) {
	const q = `SELECT ` + legacySlotColumns + ` FROM legacy_slots WHERE id = ? FOR UPDATE`
	s, err := scanLegacySlot(t.tx.QueryRowContext(t.ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *legacySlotTx) CloseSlotValidity(id uint64, validTo time.Time) error {
	const q = `UPDATE legacy_slots SET valid_to = ?, active = FALSE WHERE id = ?`
	_, err := t.tx.ExecContext(t.ctx, q, validTo, id)
	return err
}

func (t *legacySlotTx) CreateSlot(s *model.LegacySlot) error {
	const q = `INSERT INTO legacy_slots
                 (service_id, weekday, starts_at, ends_at, valid_from, valid_to, active, change_policy)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := t.tx.ExecContext(t.ctx, q,
		s.ServiceID, int(s.Weekday), s.StartsAt, s.EndsAt,
		s.ValidFrom, s.ValidTo, s.Active, s.ChangePolicy,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (t *legacySlotTx) LinkSuccessor(oldID, newID uint64) error {
	const q = `UPDATE legacy_slots SET superseded_by = ? WHERE id = ?`
	_, err := t.tx.ExecContext(t.ctx, q, newID, oldID)
	return err
}

func (t *legacySlotTx) FutureReservations(slotID uint64, from time.Time) ([]model.Reservation, error) {
	const q = `SELECT id, customer_id, starts_at, ends_at, party_size, status
               FROM reservations
               WHERE legacy_slot_id = ?
                 AND status IN ('PENDING', 'CONFIRMED')
                 AND starts_at >= ?
               ORDER BY starts_at`
	rows, err := t.tx.QueryContext(t.ctx, q, slotID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.CustomerID, &res.StartsAt, &res.EndsAt,
			&res.PartySize, &res.Status); err != nil {
			return nil, err
		}
		id := slotID
		res.LegacySlotID = &id
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *legacySlotTx) RebindReservation(reservationID, newSlotID uint64) error {
	const q = `UPDATE reservations SET legacy_slot_id = ? WHERE id = ?`
	_, err := t.tx.ExecContext(t.ctx, q, newSlotID, reservationID)
	return err
}
