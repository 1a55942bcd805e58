// Package session wires settings into a ready panel coordinator and
// tracker client. Every front end builds one Session per run.
package session

import (
	"net/http"

	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/i18n"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/loop"
	"github.com/tphakala/worktracker-go/internal/observability"
	"github.com/tphakala/worktracker-go/internal/panel"
	"github.com/tphakala/worktracker-go/internal/trackerapi"
)

// Options tune a Session.
type Options struct {
	// Executor runs backend tasks; nil means loop.Inline
	Executor  loop.Executor
	Logger    logger.Logger
	ProjectID int64
	// Transport replaces the HTTP transport, tests pass httpmock here
	Transport http.RoundTripper
}

// Session holds the components shared by one front end.
type Session struct {
	Client  *trackerapi.Client
	Coord   *panel.Coordinator
	Metrics *observability.Metrics
	Printer *i18n.Printer
}

// New builds the metrics, the API client and the coordinator from settings.
func New(settings *conf.Settings, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	exec := opts.Executor
	if exec == nil {
		exec = loop.Inline{}
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	client, err := trackerapi.NewFromSettings(settings, opts.Transport, m.TrackerAPI, log)
	if err != nil {
		return nil, err
	}

	printer := i18n.NewPrinter(settings.UI.Locale)
	coord := panel.New(panel.Config{
		Backend:   client,
		Endpoints: client.Endpoints(),
		Executor:  exec,
		Printer:   printer,
		Metrics:   m.Panel,
		Logger:    log,
		NoteRules: settings.UI.InterventionNotes,
		ProjectID: opts.ProjectID,
	})

	return &Session{
		Client:  client,
		Coord:   coord,
		Metrics: m,
		Printer: printer,
	}, nil
}

// Close closes the panel and releases idle connections.
func (s *Session) Close() {
	s.Coord.Close()
	s.Client.Close()
}
