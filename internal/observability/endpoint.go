package observability

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/logger"
	metricspkg "github.com/tphakala/worktracker-go/internal/observability/metrics"
)

// ErrMetricsDisabled is returned by NewEndpoint when the listener is switched off.
var ErrMetricsDisabled = errors.NewStd("metrics endpoint not enabled in settings")

// Endpoint serves /metrics on its own listener.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	addr          net.Addr
}

// NewEndpoint creates an endpoint from settings. It does not start listening.
func NewEndpoint(settings *conf.Settings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Metrics.Enabled {
		return nil, ErrMetricsDisabled
	}
	return &Endpoint{
		listenAddress: settings.Metrics.Listen,
		metrics:       metrics,
	}, nil
}

// Start binds the listener and serves until ctx is done. The returned error
// covers binding only; serve errors are logged.
func (e *Endpoint) Start(ctx context.Context, wg *sync.WaitGroup) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return err
	}
	e.addr = ln.Addr()
	e.server = &http.Server{Handler: mux}

	log := getLogger()
	wg.Go(func() {
		log.Info("metrics endpoint starting", logger.String("address", e.addr.String()))
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics HTTP server error", logger.Error(err))
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		e.shutdown()
	})
	return nil
}

// Addr is the bound address once Start succeeded.
func (e *Endpoint) Addr() net.Addr {
	return e.addr
}

func (e *Endpoint) shutdown() {
	log := getLogger()
	log.Info("stopping metrics endpoint")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		log.Error("metrics server shutdown error", logger.Error(err))
	}
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
