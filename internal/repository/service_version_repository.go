package repository

import (
	"context"
	"database/sql"

	"github.com/tavolo/restaurant-reservation/internal/model"
)

// ServiceVersionRepo provides access to service versions: the temporally
// scoped scheduling contexts that templates, policies and exceptions hang
// off.  Versions are archived, never deleted, so historical reservations
// keep a valid reference.
type ServiceVersionRepo struct {
	db *sql.DB
}

// NewServiceVersionRepo returns a ServiceVersionRepo bound to the given database.
func NewServiceVersionRepo(db *sql.DB) *ServiceVersionRepo { return &ServiceVersionRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span multiple repositories.
func (r *ServiceVersionRepo) DB() *sql.DB { return r.db }

const serviceVersionColumns = `sv.id, sv.service_id, s.restaurant_id, sv.state, sv.effective_from, sv.effective_to, sv.created_at, sv.updated_at`

func scanServiceVersion(row interface{ Scan(...interface{}) error }) (*model.ServiceVersion, error) {
	var v model.ServiceVersion
	var effTo sql.NullTime
	if err := row.Scan(&v.ID, &v.ServiceID, &v.RestaurantID, &v.State,
		&v.EffectiveFrom, &effTo, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	if effTo.Valid {
		t := effTo.Time
		v.EffectiveTo = &t
	}
	return &v, nil
}

// GetByID returns a single service version.  ErrServiceVersionNotFound is
// returned when no row exists.
func (r *ServiceVersionRepo) GetByID(ctx context.Context, id uint64) (*model.ServiceVersion, error) {
	const q = `SELECT ` + serviceVersionColumns + `
               FROM service_versions sv
               JOIN services s ON s.id = sv.service_id
               WHERE sv.id = ?`
	v, err := scanServiceVersion(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrServiceVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListActiveByRestaurant returns all ACTIVE service versions belonging to
// a restaurant, ordered by service then version id for deterministic
// output.  An empty slice is returned when the restaurant has none.
func (r *ServiceVersionRepo) ListActiveByRestaurant(ctx context.Context, restaurantID uint64) ([]model.ServiceVersion, error) {
	const q = `SELECT ` + serviceVersionColumns + `
               FROM service_versions sv
               JOIN services s ON s.id = sv.service_id
               WHERE s.restaurant_id = ? AND sv.state = 'ACTIVE'
               ORDER BY sv.service_id, sv.id`
	rows, err := r.db.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	versions := make([]model.ServiceVersion, 0)
	for rows.Next() {
		v, err := scanServiceVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return versions, nil
}

// SetState transitions a version between ACTIVE and ARCHIVED.  The caller
// must pass the owning restaurant id; a mismatch returns ErrForbidden so
// staff of one restaurant cannot archive another's schedule.
func (r *ServiceVersionRepo) SetState(ctx context.Context, id, restaurantID uint64, state string) error {
	const checkQ = `SELECT s.restaurant_id
                    FROM service_versions sv
                    JOIN services s ON s.id = sv.service_id
                    WHERE sv.id = ?`
	var owner uint64
	if err := r.db.QueryRowContext(ctx, checkQ, id).Scan(&owner); err != nil {
		if err == sql.ErrNoRows {
			return ErrServiceVersionNotFound
		}
		return err
	}
	if owner != restaurantID {
		return ErrForbidden
	}
	const q = `UPDATE service_versions SET state = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, state, id)
	return err
}
