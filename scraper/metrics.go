package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry              *prometheus.Registry
	PagesTotal            *prometheus.CounterVec
	FetchDuration         prometheus.Histogram
	ItemsExtractedTotal   prometheus.Counter
	ItemsSkippedTotal     *prometheus.CounterVec
	ErrorsTotal           *prometheus.CounterVec
	ProductCacheHitsTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Search pages attempted, by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "Time spent loading a page until its ready condition holds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_items_extracted_total",
			Help: "Total number of records extracted from item containers.",
		},
	)
	itemsSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_items_skipped_total",
			Help: "Item containers that produced no record, by reason.",
		},
		[]string{"reason"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_product_cache_hits_total",
			Help: "Product detail lookups served from the cache.",
		},
	)

	registry.MustRegister(pages, fetchDuration, itemsExtracted, itemsSkipped, errorsTotal, cacheHits)

	return &Metrics{
		Registry:              registry,
		PagesTotal:            pages,
		FetchDuration:         fetchDuration,
		ItemsExtractedTotal:   itemsExtracted,
		ItemsSkippedTotal:     itemsSkipped,
		ErrorsTotal:           errorsTotal,
		ProductCacheHitsTotal: cacheHits,
	}
}

// IncPage counts a page attempt by outcome (ready, timeout, failed).
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records how long a fetch took.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncItems increments the extracted items counter.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ItemsExtractedTotal.Inc()
}

// IncSkipped counts a container that produced no record.
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.ItemsSkippedTotal.WithLabelValues(reason).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCacheHit counts a product detail cache hit.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.ProductCacheHitsTotal.Inc()
}
