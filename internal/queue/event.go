// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used on the broker.  Publishers and consumers declare them
// idempotently, so either side may start first.
const (
	ScheduleChangedQueue = "schedule.changed"
	BookingCreatedQueue  = "booking.created"
)

// ScheduleChangedEvent is published whenever a service version's schedule
// configuration mutates: a template day, the slot policy, a date exception
// or a legacy slot version.  It carries enough information for downstream
// consumers to invalidate caches, notify affected customers, or feed
// analytics without querying the primary database.
type ScheduleChangedEvent struct {
	EventID          string `json:"event_id"`
	RestaurantID     uint64 `json:"restaurant_id"`
	ServiceVersionID uint64 `json:"service_version_id,omitempty"`
	LegacySlotID     uint64 `json:"legacy_slot_id,omitempty"`
	EntityType       string `json:"entity_type"`
	Change           string `json:"change"`
	ActorID          uint64 `json:"actor_id"`
	OccurredAt       string `json:"occurred_at"`
}

// BookingCreatedEvent is published when a reservation passes validation and
// the capacity-checked insert commits.
type BookingCreatedEvent struct {
	EventID          string `json:"event_id"`
	ReservationID    uint64 `json:"reservation_id"`
	ServiceVersionID uint64 `json:"service_version_id"`
	CustomerID       uint64 `json:"customer_id"`
	StartsAt         string `json:"starts_at"`
	EndsAt           string `json:"ends_at"`
	PartySize        int    `json:"party_size"`
	CreatedAt        string `json:"created_at"`
}
