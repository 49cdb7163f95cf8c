package featuredfix

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eringen/featuredfix/migration"
)

// metrics implements migration.Metrics on a dedicated registry so that each
// App exposes only its own series.
type metrics struct {
	registry    *prometheus.Registry
	documents   *prometheus.CounterVec
	pages       prometheus.Counter
	processed   prometheus.Histogram
	complete    prometheus.Gauge
	storeErrors *prometheus.CounterVec
}

var _ migration.Metrics = (*metrics)(nil)

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "featuredfix_documents_total",
			Help: "Documents evaluated by outcome and reason",
		}, []string{"outcome", "reason"}),
		pages: f.NewCounter(prometheus.CounterOpts{
			Name: "featuredfix_pages_total",
			Help: "Migration pages processed",
		}),
		processed: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "featuredfix_page_documents",
			Help:    "Documents returned per page",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		complete: f.NewGauge(prometheus.GaugeOpts{
			Name: "featuredfix_migration_complete",
			Help: "1 once the last page has been processed",
		}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "featuredfix_store_errors_total",
			Help: "Store failures by operation",
		}, []string{"operation"}),
	}
}

func (m *metrics) ObserveOutcome(o migration.Outcome) {
	outcome, reason := "skipped", o.Reason
	if o.Migrated {
		outcome = "migrated"
	}
	if !knownReason(reason) {
		reason = "write_error"
	}
	m.documents.WithLabelValues(outcome, reason).Inc()
}

func (m *metrics) ObservePage(processed int, complete bool) {
	m.pages.Inc()
	m.processed.Observe(float64(processed))
	if complete {
		m.complete.Set(1)
	}
}

func (m *metrics) ObserveStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// knownReason keeps write error text out of label values.
func knownReason(r string) bool {
	switch r {
	case migration.ReasonMigrated, migration.ReasonWouldMigrate, migration.ReasonNotFound,
		migration.ReasonNoFeaturedImage, migration.ReasonNoBlocks, migration.ReasonNoImageBlock,
		migration.ReasonImageMismatch:
		return true
	}
	return false
}
