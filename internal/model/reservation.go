package model

import "time"

// Reservation statuses.  Only PENDING and CONFIRMED reservations consume
// slot capacity.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationCancelled = "CANCELLED"
)

// Reservation records a customer's booking against a computed slot (via
// the service version, date and time window) or, on the legacy path,
// against a LegacySlot id.  The engine treats reservations as collaborator
// records: it counts them, creates them under a capacity check and rebinds
// them during legacy migrations, but owns no further lifecycle.
//
// Fields:
//  ID               – primary key identifier.
//  ServiceVersionID – service version the booking was validated against.
//  LegacySlotID     – legacy slot reference, nil on the template path.
//  CustomerID       – booking customer.
//  StartsAt         – reserved window start (UTC).
//  EndsAt           – reserved window end (UTC).
//  PartySize        – covers occupied, counted against slot capacity.
//  Status           – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt        – creation timestamp.
type Reservation struct {
	ID               uint64    // reservations.id
	ServiceVersionID uint64    // reservations.service_version_id
	LegacySlotID     *uint64   // reservations.legacy_slot_id (nullable)
	CustomerID       uint64    // reservations.customer_id
	StartsAt         time.Time // reservations.starts_at
	EndsAt           time.Time // reservations.ends_at
	PartySize        int       // reservations.party_size
	Status           string    // reservations.status
	CreatedAt        time.Time // reservations.created_at
}

// CountsAgainstCapacity reports whether the reservation consumes slot
// capacity when availability is computed.
func (r *Reservation) CountsAgainstCapacity() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}
