// Package metrics provides Prometheus metrics for the explorer server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafolders_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediafolders_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Listing cache metrics
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafolders_listing_cache_lookups_total",
			Help: "Listing cache lookups by result (hit, miss, stale_skip)",
		},
		[]string{"result"},
	)

	cacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediafolders_listing_cache_invalidated_entries_total",
			Help: "Number of listing cache entries removed by tag invalidation",
		},
	)

	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediafolders_listing_cache_entries",
			Help: "Current number of cached listings",
		},
	)

	cacheFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediafolders_listing_cache_fallbacks_total",
			Help: "Listings computed directly because the cache failed",
		},
	)

	// Explorer operation metrics
	listingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediafolders_listing_compute_duration_seconds",
			Help:    "Time to compute a listing from the content store",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediafolders_mutations_total",
			Help: "Folder and file mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// RecordCacheHit records a listing cache hit.
func RecordCacheHit() { cacheLookupsTotal.WithLabelValues("hit").Inc() }

// RecordCacheMiss records a listing cache miss.
func RecordCacheMiss() { cacheLookupsTotal.WithLabelValues("miss").Inc() }

// RecordCacheStaleSkip records a computed listing dropped because an invalidation raced it.
func RecordCacheStaleSkip() { cacheLookupsTotal.WithLabelValues("stale_skip").Inc() }

// RecordCacheInvalidation records how many entries an invalidation removed.
func RecordCacheInvalidation(removed int) { cacheInvalidationsTotal.Add(float64(removed)) }

// SetCacheEntries updates the cached listing gauge.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// RecordCacheFallback records a listing computed without the cache.
func RecordCacheFallback() { cacheFallbacksTotal.Inc() }

// ObserveListing records the time spent computing a listing of the given kind.
func ObserveListing(kind string, d time.Duration) {
	listingDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordMutation records the outcome ("ok", "conflict", "invalid", "error") of a mutation.
func RecordMutation(operation, outcome string) {
	mutationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics.
// Paths are labelled with the matched route pattern to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
