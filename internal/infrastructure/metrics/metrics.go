// Package metrics exposes Prometheus metrics for the approval workflow
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/domain/event"
)

// Metrics holds the workflow collectors
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	StatusChanges     *prometheus.CounterVec
	EventsTotal       *prometheus.CounterVec
}

// New creates and registers the workflow metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftflow_operations_total",
				Help: "Total number of workflow operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "draftflow_operation_duration_seconds",
				Help:    "Duration of workflow operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StatusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftflow_status_transitions_total",
				Help: "Total number of draft status transitions",
			},
			[]string{"from", "to"},
		),
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftflow_events_published_total",
				Help: "Total number of workflow events published",
			},
			[]string{"type"},
		),
	}
}

// ObserveOperation records one application service call
func (m *Metrics) ObserveOperation(operation string, err error, duration time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveStatusChange records a draft status transition
func (m *Metrics) ObserveStatusChange(from, to draft.Status) {
	m.StatusChanges.WithLabelValues(string(from), string(to)).Inc()
}

// CountEvent is a dispatcher handler counting published events by type
func (m *Metrics) CountEvent(ctx context.Context, evt *event.Event) error {
	m.EventsTotal.WithLabelValues(string(evt.Type)).Inc()
	return nil
}

// Outcome classifies an operation error into a low-cardinality label
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, draft.ErrWorkflowViolation):
		return "violation"
	case errors.Is(err, draft.ErrAccessDenied):
		return "denied"
	case errors.Is(err, draft.ErrNotFound):
		return "not_found"
	case errors.Is(err, draft.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, draft.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}
