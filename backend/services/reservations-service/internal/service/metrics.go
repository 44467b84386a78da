package service

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"greencharge/backend/services/reservations-service/internal/apperror"
)

// Metrics counts engine outcomes. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	slotDrift  *prometheus.GaugeVec
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_operations_total",
			Help: "Reservation engine operations grouped by operation and outcome.",
		}, []string{"operation", "result"}),
		slotDrift: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "slot_drift",
			Help: "Slots neither free nor held by an active booking, per resource.",
		}, []string{"resource_id"}),
	}
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// SetDrift records the latest audit result for one resource.
func (m *Metrics) SetDrift(resourceID uuid.UUID, drift int) {
	if m == nil {
		return
	}
	m.slotDrift.WithLabelValues(resourceID.String()).Set(float64(drift))
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperror.KindOf(err) {
	case apperror.ErrValidation:
		return "validation"
	case apperror.ErrNotFound:
		return "not_found"
	case apperror.ErrForbidden:
		return "forbidden"
	case apperror.ErrInvalidState:
		return "invalid_state"
	case apperror.ErrNoCapacity:
		return "no_capacity"
	default:
		return "internal"
	}
}
