// Package observability provides Prometheus metrics for the worktracker panel
// and an optional HTTP listener that exposes them. Error telemetry lives in
// internal/errors.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/worktracker-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Panel      *metrics.PanelMetrics
	TrackerAPI *metrics.TrackerAPIMetrics
}

// NewMetrics creates a registry with the panel and API collectors plus the
// standard Go runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	panelMetrics, err := metrics.NewPanelMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create panel metrics: %w", err)
	}

	apiMetrics, err := metrics.NewTrackerAPIMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker api metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Panel:      panelMetrics,
		TrackerAPI: apiMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", m.Handler())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
