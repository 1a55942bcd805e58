package observability

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/worktracker-go/internal/conf"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewEndpointDisabled(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	_, err = NewEndpoint(&conf.Settings{}, m)
	assert.ErrorIs(t, err, ErrMetricsDisabled)
}

func TestEndpointServesMetrics(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	m.Panel.RecordStaleDiscard("detail")

	settings := &conf.Settings{}
	settings.Metrics.Enabled = true
	settings.Metrics.Listen = "127.0.0.1:0"

	e, err := NewEndpoint(settings, m)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	require.NoError(t, e.Start(ctx, &wg))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + e.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `worktracker_panel_stale_discards_total{source="detail"} 1`)
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	wg.Wait()
}
