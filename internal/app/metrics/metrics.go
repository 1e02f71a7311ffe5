package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	entityIDCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirror_query",
			Subsystem: "entityid",
			Name:      "cache_lookups_total",
			Help:      "Entity id cache lookups by result.",
		},
		[]string{"result"},
	)

	entityIDRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirror_query",
			Subsystem: "entityid",
			Name:      "rejections_total",
			Help:      "Entity id inputs rejected by the codec.",
		},
		[]string{"input"},
	)

	filterRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirror_query",
			Subsystem: "filter",
			Name:      "rejections_total",
			Help:      "Query parameters rejected during filter validation.",
		},
		[]string{"code"},
	)

	compiledQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirror_query",
			Subsystem: "query",
			Name:      "compiled_total",
			Help:      "Queries compiled per endpoint.",
		},
		[]string{"endpoint"},
	)

	paginationLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirror_query",
			Subsystem: "query",
			Name:      "pagination_links_total",
			Help:      "Next link outcomes per endpoint.",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mirror_query",
			Subsystem: "service",
			Name:      "request_duration_seconds",
			Help:      "Duration of endpoint service calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"endpoint", "status"},
	)
)

// Pagination outcomes.
const (
	PaginationNext       = "next"
	PaginationEnd        = "end"
	PaginationEmptyRange = "empty_range"
)

func init() {
	Registry.MustRegister(
		entityIDCacheLookups,
		entityIDRejections,
		filterRejections,
		compiledQueries,
		paginationLinks,
		requestDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCacheLookup counts an entity id cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	entityIDCacheLookups.WithLabelValues(result).Inc()
}

// RecordEntityIDRejection counts an input the codec refused.
func RecordEntityIDRejection(input string) {
	if input == "" {
		input = "unknown"
	}
	entityIDRejections.WithLabelValues(input).Inc()
}

// RecordFilterRejection counts one rejected query parameter.
func RecordFilterRejection(code string) {
	filterRejections.WithLabelValues(code).Inc()
}

// RecordCompiledQuery counts a query compiled for an endpoint.
func RecordCompiledQuery(endpoint string) {
	compiledQueries.WithLabelValues(endpoint).Inc()
}

// RecordPagination counts the next link outcome of an endpoint call.
func RecordPagination(endpoint, outcome string) {
	paginationLinks.WithLabelValues(endpoint, outcome).Inc()
}

// RecordRequest records the duration of an endpoint service call.
func RecordRequest(endpoint string, duration time.Duration, err error) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	requestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}
