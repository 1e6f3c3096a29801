package queue_publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tavolo/restaurant-reservation/internal/model"
	q "github.com/tavolo/restaurant-reservation/internal/queue"
)

// BrokerNotifier tells affected customers about a legacy slot change by
// publishing one schedule.changed message per reservation.  Downstream
// consumers own the actual customer contact (email, push); the engine
// only guarantees the event is on the broker.
type BrokerNotifier struct{}

// ScheduleChanged implements the legacy versioner's notifier contract.
func (BrokerNotifier) ScheduleChanged(ctx context.Context, res model.Reservation, oldSlot, newSlot *model.LegacySlot) error {
	event := q.ScheduleChangedEvent{
		EventID:      uuid.NewString(),
		LegacySlotID: oldSlot.ID,
		EntityType:   model.AuditLegacySlot,
		Change:       fmt.Sprintf("reservation %d for customer %d affected by slot schedule change", res.ID, res.CustomerID),
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	return PublishScheduleChanged(ctx, event)
}
