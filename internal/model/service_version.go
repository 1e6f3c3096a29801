package model

import "time"

// Version lifecycle states.  A version is never deleted; superseding a
// version archives it so historical reservations keep a valid reference.
const (
	VersionActive   = "ACTIVE"
	VersionArchived = "ARCHIVED"
)

// ServiceVersion is a temporally-scoped scheduling context for one of a
// restaurant's bookable services (lunch, dinner, tasting menu...).  The
// weekly template, slot policy and exceptions all hang off a version so
// that re-configuring a service never rewrites history.
//
// Fields:
//  ID            – primary key identifier.
//  ServiceID     – bookable service this version configures.
//  RestaurantID  – owning restaurant.
//  State         – lifecycle state (ACTIVE, ARCHIVED).
//  EffectiveFrom – first date covered by this version.
//  EffectiveTo   – last date covered, nil while open-ended.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type ServiceVersion struct {
	ID            uint64     // service_versions.id
	ServiceID     uint64     // service_versions.service_id
	RestaurantID  uint64     // service_versions.restaurant_id
	State         string     // service_versions.state
	EffectiveFrom time.Time  // service_versions.effective_from
	EffectiveTo   *time.Time // service_versions.effective_to (nullable)
	CreatedAt     time.Time  // service_versions.created_at
	UpdatedAt     time.Time  // service_versions.updated_at
}

// IsActive reports whether the version currently accepts reservations.
func (v *ServiceVersion) IsActive() bool { return v.State == VersionActive }
