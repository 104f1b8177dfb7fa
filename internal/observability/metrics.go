package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_pages_fetched_total",
			Help: "Product pages fetched successfully",
		},
		[]string{"catalog"},
	)

	PageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_page_failures_total",
			Help: "Product page requests that failed",
		},
		[]string{"catalog"},
	)

	ProductsNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_products_normalized_total",
			Help: "Products normalized, by outcome",
		},
		[]string{"catalog", "outcome"},
	)

	CatalogSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalogsync_catalog_products",
			Help: "Products in the last snapshot of each catalog",
		},
		[]string{"catalog"},
	)

	NoveltyProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogsync_novelty_products",
			Help: "Products found in the source catalog but not in the reference",
		},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalogsync_run_duration_seconds",
			Help:    "Duration of a full reconciliation run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_cache_lookups_total",
			Help: "Report cache lookups, by result",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PagesFetched,
			PageFailures,
			ProductsNormalized,
			CatalogSize,
			NoveltyProducts,
			RunDuration,
			CacheLookups,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// Start exposes /metrics on port in the background.
func Start(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	go http.ListenAndServe(":"+port, mux)
}
