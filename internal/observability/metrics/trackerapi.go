package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TrackerAPIMetrics contains metrics for calls to the tracker server.
type TrackerAPIMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimitWait   prometheus.Histogram
	sharedFetches   prometheus.Counter
}

// NewTrackerAPIMetrics creates and registers the API client metrics.
func NewTrackerAPIMetrics(registry *prometheus.Registry) (*TrackerAPIMetrics, error) {
	m := &TrackerAPIMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register tracker api metrics: %w", err)
	}
	return m, nil
}

func (m *TrackerAPIMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktracker_api_requests_total",
			Help: "Tracker API requests by operation and HTTP status (0 for transport errors).",
		},
		[]string{"operation", "status_code"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worktracker_api_request_duration_seconds",
			Help:    "Tracker API request duration.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.rateLimitWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "worktracker_api_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the outbound rate limiter.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	m.sharedFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "worktracker_api_shared_detail_fetches_total",
		Help: "Detail fetches answered by an in-flight request for the same record.",
	})
}

// ObserveRequest records one completed request.
func (m *TrackerAPIMetrics) ObserveRequest(operation string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRateLimitWait records limiter wait time.
func (m *TrackerAPIMetrics) ObserveRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWait.Observe(d.Seconds())
}

// IncrementSharedFetches counts a deduplicated detail fetch.
func (m *TrackerAPIMetrics) IncrementSharedFetches() {
	if m == nil {
		return
	}
	m.sharedFetches.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *TrackerAPIMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.rateLimitWait.Describe(ch)
	m.sharedFetches.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *TrackerAPIMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.rateLimitWait.Collect(ch)
	m.sharedFetches.Collect(ch)
}
