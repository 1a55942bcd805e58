// Package telemetry initializes Sentry error reporting and connects it to
// the enhanced errors of internal/errors.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/worktracker-go/internal/buildinfo"
	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/logger"
)

// FlushTimeout bounds how long Flush waits for queued events.
const FlushTimeout = 2 * time.Second

// allowedExtra lists the only extra keys that survive filtering.
var allowedExtra = map[string]bool{
	"error_type": true,
	"component":  true,
}

// Init starts Sentry when enabled in settings and installs the reporter
// that forwards enhanced errors. It is a no-op when disabled.
func Init(settings *conf.Settings, build *buildinfo.Context, log logger.Logger) error {
	if !settings.Sentry.Enabled {
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no dsn is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := sentry.Init(clientOptions(settings.Sentry.DSN, build, nil)); err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	if log != nil {
		log.Module("telemetry").Info("error telemetry enabled", logger.String("release", build.Release()))
	}
	return nil
}

// clientOptions keeps stack traces and host details out of events.
func clientOptions(dsn string, build *buildinfo.Context, transport sentry.Transport) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              dsn,
		Transport:        transport,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          build.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	}
}

// applyPrivacyFilters strips user, host and runtime details from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if !allowedExtra[k] {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// Flush waits up to FlushTimeout for pending events.
func Flush() {
	sentry.Flush(FlushTimeout)
}
