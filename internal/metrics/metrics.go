// Package metrics exposes Prometheus counters for the availability
// engine. Register is idempotent so tests and multiple entry points can
// call it freely.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservation_engine",
			Name:      "slots_generated_total",
			Help:      "Count of computed slots produced by the generator.",
		},
	)

	validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservation_engine",
			Name:      "validation_total",
			Help:      "Count of reservation validations by outcome.",
		},
		[]string{"outcome"},
	)

	capacityConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservation_engine",
			Name:      "capacity_conflict_total",
			Help:      "Count of reservation inserts that lost the capacity race.",
		},
	)

	scheduleChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservation_engine",
			Name:      "schedule_change_total",
			Help:      "Count of schedule mutations by entity type.",
		},
		[]string{"entity"},
	)
)

// Register registers the engine metrics with the default registry.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotsGenerated, validations, capacityConflicts, scheduleChanges)
	})
}

func AddSlotsGenerated(n int) {
	slotsGenerated.Add(float64(n))
}

func IncValidation(outcome string) {
	validations.WithLabelValues(outcome).Inc()
}

func IncCapacityConflict() {
	capacityConflicts.Inc()
}

func IncScheduleChange(entity string) {
	scheduleChanges.WithLabelValues(entity).Inc()
}
