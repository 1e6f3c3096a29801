package model

import "time"

// Audited entity kinds.
const (
	AuditTemplateDay   = "TEMPLATE_DAY"
	AuditSlotPolicy    = "SLOT_POLICY"
	AuditDateException = "DATE_EXCEPTION"
	AuditLegacySlot    = "LEGACY_SLOT"
	AuditServiceVer    = "SERVICE_VERSION"
)

// AuditEntry is an append-only record of a schedule mutation: who changed
// what, with the before and after values serialized as JSON.  Audit writes
// are best-effort and never block the mutation they describe.
type AuditEntry struct {
	ID         uint64      // schedule_audit.id
	EntityType string      // schedule_audit.entity_type
	EntityID   uint64      // schedule_audit.entity_id
	ActorID    uint64      // schedule_audit.actor_id
	OldValue   interface{} // serialized to schedule_audit.old_value
	NewValue   interface{} // serialized to schedule_audit.new_value
	Message    string      // schedule_audit.message
	CreatedAt  time.Time   // schedule_audit.created_at
}
