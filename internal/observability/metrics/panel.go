// Package metrics provides custom Prometheus metrics for the worktracker panel.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// PanelMetrics counts what happens in the record panel: detail refreshes,
// stale results dropped by the selection guard, lifecycle transitions and
// location commits. All methods are safe on a nil receiver so components can
// run without metrics.
type PanelMetrics struct {
	registry *prometheus.Registry

	detailFetches     *prometheus.CounterVec
	staleDiscards     *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	locationCommits   *prometheus.CounterVec
	locationDistance  prometheus.Histogram
	cacheEntries      prometheus.Gauge
	moveSessionActive prometheus.Gauge
}

// NewPanelMetrics creates and registers the panel metrics.
func NewPanelMetrics(registry *prometheus.Registry) (*PanelMetrics, error) {
	m := &PanelMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register panel metrics: %w", err)
	}
	return m, nil
}

func (m *PanelMetrics) initMetrics() {
	m.detailFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktracker_panel_detail_fetches_total",
			Help: "Detail refreshes by outcome.",
		},
		[]string{"result"}, // success, error
	)

	m.staleDiscards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktracker_panel_stale_discards_total",
			Help: "Asynchronous results dropped because another record became active.",
		},
		[]string{"source"}, // detail, photos, assessment, interventions
	)

	m.transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktracker_intervention_transitions_total",
			Help: "Intervention transitions by action and outcome.",
		},
		[]string{"action", "result"},
	)

	m.locationCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktracker_location_commits_total",
			Help: "Move-location commits by outcome.",
		},
		[]string{"result"},
	)

	m.locationDistance = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "worktracker_location_move_distance_meters",
		Help:    "Distance between the previous and the committed position.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	m.cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "worktracker_record_cache_entries",
		Help: "Records held in the session cache.",
	})

	m.moveSessionActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "worktracker_move_session_active",
		Help: "1 while a move-location session is active.",
	})
}

// RecordDetailFetch counts one detail refresh.
func (m *PanelMetrics) RecordDetailFetch(result string) {
	if m == nil {
		return
	}
	m.detailFetches.WithLabelValues(result).Inc()
}

// RecordStaleDiscard counts one dropped result.
func (m *PanelMetrics) RecordStaleDiscard(source string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(source).Inc()
}

// TransitionResult implements intervention.Observer.
func (m *PanelMetrics) TransitionResult(action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

// LocationCommit implements movelocation.Observer.
func (m *PanelMetrics) LocationCommit(result string, distanceMeters float64) {
	if m == nil {
		return
	}
	m.locationCommits.WithLabelValues(result).Inc()
	if result == ResultSuccess && distanceMeters > 0 {
		m.locationDistance.Observe(distanceMeters)
	}
}

// SetCacheEntries updates the cache size gauge.
func (m *PanelMetrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// SetMoveSessionActive updates the move session gauge.
func (m *PanelMetrics) SetMoveSessionActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.moveSessionActive.Set(1)
	} else {
		m.moveSessionActive.Set(0)
	}
}

// StaleDiscards returns the total of dropped results across sources.
func (m *PanelMetrics) StaleDiscards() float64 {
	if m == nil {
		return 0
	}
	return sumCounterVec(m.staleDiscards)
}

// Describe implements the prometheus.Collector interface.
func (m *PanelMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.detailFetches.Describe(ch)
	m.staleDiscards.Describe(ch)
	m.transitions.Describe(ch)
	m.locationCommits.Describe(ch)
	m.locationDistance.Describe(ch)
	m.cacheEntries.Describe(ch)
	m.moveSessionActive.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PanelMetrics) Collect(ch chan<- prometheus.Metric) {
	m.detailFetches.Collect(ch)
	m.staleDiscards.Collect(ch)
	m.transitions.Collect(ch)
	m.locationCommits.Collect(ch)
	m.locationDistance.Collect(ch)
	m.cacheEntries.Collect(ch)
	m.moveSessionActive.Collect(ch)
}

// sumCounterVec adds up every child of a counter vector.
func sumCounterVec(vec *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil {
			continue
		}
		if c := pb.GetCounter(); c != nil {
			total += c.GetValue()
		}
	}
	return total
}
