package query

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aiidateam/aiida-data-apis/schema"
)

// Metrics records the outcome and latency of every query operation. A nil
// *Metrics records nothing.
type Metrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "data_api_queries_total",
				Help: "Number of entity queries by kind, operation and outcome",
			},
			[]string{"kind", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "data_api_query_duration_seconds",
				Help:    "Latency of entity queries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "operation"},
		),
	}
}

// MustRegister will register all metrics on the given registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.queries, m.duration)
}

func (m *Metrics) observe(kind schema.Kind, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.queries.With(prometheus.Labels{
		"kind":      string(kind),
		"operation": operation,
		"outcome":   outcome(err),
	}).Inc()
	m.duration.With(prometheus.Labels{
		"kind":      string(kind),
		"operation": operation,
	}).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	var (
		notFound *NotFoundError
		multiple *MultipleResultsError
		invalid  *InvalidInputError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &multiple):
		return "multiple_results"
	case errors.As(err, &invalid), isFilterError(err):
		return "invalid"
	}
	return "error"
}
