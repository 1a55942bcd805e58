package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/worktracker-go/internal/buildinfo"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/errors"
)

// mockTransport implements sentry.Transport for testing
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool              { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close()                                {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func TestInitDisabledIsNoop(t *testing.T) {
	settings := &conf.Settings{}
	require.NoError(t, Init(settings, buildinfo.NewContext("1.0.0", ""), nil))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestInitRequiresDSN(t *testing.T) {
	settings := &conf.Settings{Sentry: conf.SentrySettings{Enabled: true}}
	err := Init(settings, buildinfo.NewContext("1.0.0", ""), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEventsAreFiltered(t *testing.T) {
	transport := &mockTransport{}
	client, err := sentry.NewClient(clientOptions("https://public@sentry.example/1", buildinfo.NewContext("1.2.3", ""), transport))
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: "someone", IPAddress: "10.0.0.1"})
		scope.SetTag("hostname", "field-laptop")
		scope.SetTag("component", "trackerapi")
		scope.SetExtra("component", "trackerapi")
		scope.SetExtra("record_title", "Dub u kapličky")
		hub.CaptureMessage("detail fetch failed")
	})

	events := transport.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "worktracker@1.2.3", ev.Release)
	assert.True(t, ev.User.IsEmpty())
	assert.Empty(t, ev.ServerName)
	assert.NotContains(t, ev.Tags, "hostname")
	assert.Equal(t, "trackerapi", ev.Tags["component"])
	assert.Contains(t, ev.Extra, "component")
	assert.NotContains(t, ev.Extra, "record_title")
}

func TestApplyPrivacyFiltersDropsRuntimeContexts(t *testing.T) {
	ev := &sentry.Event{
		ServerName: "field-laptop",
		Contexts: map[string]sentry.Context{
			"os":      {"name": "linux"},
			"device":  {"arch": "amd64"},
			"runtime": {"name": "go"},
			"trace":   {"trace_id": "abc"},
		},
	}

	got := applyPrivacyFilters(ev)

	assert.Empty(t, got.ServerName)
	assert.NotContains(t, got.Contexts, "os")
	assert.NotContains(t, got.Contexts, "device")
	assert.NotContains(t, got.Contexts, "runtime")
	assert.Contains(t, got.Contexts, "trace")
}
