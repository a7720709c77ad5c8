package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Storage backend metrics, labelled by backend (sheets|sqlite) and table.
	StorageOperations *prometheus.CounterVec
	StorageLatency    *prometheus.HistogramVec
	SheetConflicts    *prometheus.CounterVec
	MalformedRows     *prometheus.CounterVec

	// OTP metrics
	OTPSent     prometheus.Counter
	OTPVerified *prometheus.CounterVec

	// Payment totals recomputations
	TotalsRecomputed prometheus.Counter
}

// New creates all application metrics and registers them with reg.
// A nil reg leaves the metrics unregistered, which tests rely on.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StorageOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of storage operations",
		}, []string{"backend", "table", "operation", "status"}),
		StorageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"backend", "operation"}),
		SheetConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "row_conflicts_total",
			Help:      "Writes rejected because the addressed row no longer held the expected id",
		}, []string{"table"}),
		MalformedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "malformed_rows_total",
			Help:      "Rows skipped because their payload could not be decoded",
		}, []string{"table"}),

		OTPSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "sent_total",
			Help:      "Total number of OTP codes issued",
		}),
		OTPVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "OTP verification attempts by result",
		}, []string{"result"}),

		TotalsRecomputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "totals_recomputed_total",
			Help:      "Number of visit payment total recomputations",
		}),
	}
}

// NewNop returns unregistered metrics.
func NewNop() *Metrics {
	return New("dental", nil)
}

// ObserveStorage records one storage call. Use with defer:
//
//	defer m.ObserveStorage("sqlite", "visits", "upsert", time.Now(), &err)
func (m *Metrics) ObserveStorage(backend, table, operation string, start time.Time, errp *error) {
	if m == nil {
		return
	}
	status := "ok"
	if errp != nil && *errp != nil {
		status = "error"
	}
	m.StorageOperations.WithLabelValues(backend, table, operation, status).Inc()
	m.StorageLatency.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}
