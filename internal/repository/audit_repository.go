package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// AuditRepo appends schedule mutation records.  The table is append-only:
// nothing here updates or deletes.  Callers treat failures as best-effort
// — an audit write must never block the mutation it describes.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns an AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Append inserts one audit row.  Old and new values are serialized to
// JSON; a nil value is stored as SQL NULL.
func (r *AuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	oldJSON, err := marshalNullable(e.OldValue)
	if err != nil {
		return err
	}
	newJSON, err := marshalNullable(e.NewValue)
	if err != nil {
		return err
	}
	const q = `INSERT INTO schedule_audit
                 (entity_type, entity_id, actor_id, old_value, new_value, message)
               VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, e.EntityType, e.EntityID, e.ActorID, oldJSON, newJSON, e.Message)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func marshalNullable(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(bs), Valid: true}, nil
}
