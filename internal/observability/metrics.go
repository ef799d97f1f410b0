package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors for the service. All
// methods are nil-safe so wiring stays optional.
type Metrics struct {
	Registry         *prometheus.Registry
	PagesFetched     *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	ResidencesTotal  prometheus.Counter
	RowFailuresTotal *prometheus.CounterVec
	PageErrorsTotal  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tibia_pages_fetched_total",
			Help: "Upstream pages fetched, by page kind.",
		},
		[]string{"page"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tibia_fetch_duration_seconds",
			Help:    "Latency of upstream page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	residences := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tibia_residences_extracted_total",
			Help: "Residence rows successfully assembled.",
		},
	)
	rowFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tibia_row_failures_total",
			Help: "Listing rows dropped, by failing field.",
		},
		[]string{"field"},
	)
	pageErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tibia_page_errors_total",
			Help: "Whole-page failures, by kind. The container_not_found and malformed_document kinds indicate upstream markup drift rather than an outage.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(pages, fetchDuration, residences, rowFailures, pageErrors)

	return &Metrics{
		Registry:         registry,
		PagesFetched:     pages,
		FetchDuration:    fetchDuration,
		ResidencesTotal:  residences,
		RowFailuresTotal: rowFailures,
		PageErrorsTotal:  pageErrors,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncPage(page string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(page).Inc()
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) AddResidences(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ResidencesTotal.Add(float64(n))
}

func (m *Metrics) IncRowFailure(field string) {
	if m == nil {
		return
	}
	if field == "" {
		field = "row"
	}
	m.RowFailuresTotal.WithLabelValues(field).Inc()
}

func (m *Metrics) IncPageError(kind string) {
	if m == nil {
		return
	}
	m.PageErrorsTotal.WithLabelValues(kind).Inc()
}
