package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the delivery module.
type Metrics struct {
	DeliveriesCreated      prometheus.Counter
	DeliveriesAutoAssigned prometheus.Counter
	AutoAssignDegraded     prometheus.Counter
	StatusTransitions      *prometheus.CounterVec
	EventsPublished        *prometheus.CounterVec
}

// New creates a Metrics instance with all delivery module metrics registered.
func New() *Metrics {
	return &Metrics{
		DeliveriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entregas_deliveries_created_total",
			Help: "Total number of deliveries created through the API",
		}),
		DeliveriesAutoAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entregas_deliveries_auto_assigned_total",
			Help: "Total number of deliveries created by automatic assignment",
		}),
		AutoAssignDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "entregas_auto_assign_degraded_total",
			Help: "Automatic assignments that proceeded without courier verification",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "entregas_status_transitions_total",
			Help: "Status transitions applied, by target state",
		}, []string{"status"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "entregas_events_published_total",
			Help: "Lifecycle events handed to the Kafka producer, by topic",
		}, []string{"topic"}),
	}
}

// IncrementCreated records a successful manual delivery creation.
func (m *Metrics) IncrementCreated() {
	m.DeliveriesCreated.Inc()
}

// IncrementAutoAssigned records a successful automatic assignment.
func (m *Metrics) IncrementAutoAssigned() {
	m.DeliveriesAutoAssigned.Inc()
}

// IncrementAutoAssignDegraded records an assignment that used the fallback
// courier id without verification.
func (m *Metrics) IncrementAutoAssignDegraded() {
	m.AutoAssignDegraded.Inc()
}

// IncrementTransition records a status transition to the given state label.
func (m *Metrics) IncrementTransition(status string) {
	m.StatusTransitions.WithLabelValues(status).Inc()
}

// IncrementEventPublished records one event handed to the producer.
func (m *Metrics) IncrementEventPublished(topic string) {
	m.EventsPublished.WithLabelValues(topic).Inc()
}
