// Package panel coordinates the record detail panel: selection, cache
// seeding, guarded asynchronous refreshes, and the photo, assessment,
// intervention, project and move-location sub-workflows. Views are produced
// by the pure Render function and pushed to subscribers.
//
// A Coordinator is not safe for concurrent use. Every call must come from
// the interaction loop, the same place the executor runs its Apply closures.
package panel

import (
	"context"
	"strings"

	"github.com/tphakala/worktracker-go/internal/assessment"
	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/i18n"
	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/loop"
	"github.com/tphakala/worktracker-go/internal/movelocation"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
	"github.com/tphakala/worktracker-go/internal/photo"
	"github.com/tphakala/worktracker-go/internal/record"
)

// DetailFetcher loads one record.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id int64) (record.Patch, error)
}

// AssessmentStore reads and writes assessments.
type AssessmentStore interface {
	GetAssessment(ctx context.Context, recordID int64) (assessment.Assessment, error)
	SaveAssessment(ctx context.Context, recordID int64, a assessment.Assessment) error
}

// PhotoUploader sends captured photos.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, up photo.Upload) error
}

// ProjectAdder adds records to a project.
type ProjectAdder interface {
	AddToProject(ctx context.Context, projectID, recordID int64) error
}

// Backend is every server operation the panel uses. trackerapi.Client
// implements it.
type Backend interface {
	DetailFetcher
	AssessmentStore
	PhotoUploader
	ProjectAdder
	intervention.Backend
	movelocation.LocationSetter
}

// Subscriber receives every rendered view.
type Subscriber interface {
	PanelChanged(v View)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(View)

// PanelChanged implements Subscriber.
func (f SubscriberFunc) PanelChanged(v View) { f(v) }

// Hints prefill a record that is not cached yet, typically from the map marker.
type Hints struct {
	Label string
	Taxon string
}

// Config wires a Coordinator. Backend, Endpoints and Executor are required.
type Config struct {
	Backend   Backend
	Endpoints *endpoints.Set
	Executor  loop.Executor
	Printer   *i18n.Printer
	Metrics   *metrics.PanelMetrics
	Logger    logger.Logger
	NoteRules map[string]intervention.NoteRule
	Markers   movelocation.MarkerLayer
	// ProjectID is the project add-to-project targets; zero hides the action
	ProjectID int64
}

// Coordinator owns the cache, the selection guard, the intervention
// lifecycle and the move-location session for one panel.
type Coordinator struct {
	backend   Backend
	endpoints *endpoints.Set
	exec      loop.Executor
	printer   *i18n.Printer
	metrics   *metrics.PanelMetrics
	log       logger.Logger
	projectID int64

	cache     *record.Cache
	guard     record.SelectionGuard
	lifecycle *intervention.Lifecycle
	move      *movelocation.Session

	subscribers []Subscriber
	hints       map[int64]Hints
	fetching    map[int64]int
	listing     map[int64]int
	notice      Notice
	last        View
}

// New returns a coordinator with an empty cache and nothing selected.
func New(cfg Config) *Coordinator {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.Module("panel")
	printer := cfg.Printer
	if printer == nil {
		printer = i18n.Default()
	}

	c := &Coordinator{
		backend:   cfg.Backend,
		endpoints: cfg.Endpoints,
		exec:      cfg.Executor,
		printer:   printer,
		metrics:   cfg.Metrics,
		log:       log,
		projectID: cfg.ProjectID,
		cache:     record.NewCache(),
		hints:     make(map[int64]Hints),
		fetching:  make(map[int64]int),
		listing:   make(map[int64]int),
		last:      Closed(),
	}

	lifecycleOpts := []intervention.Option{
		intervention.WithNoteRules(cfg.NoteRules),
		intervention.WithTransitionURLResolver(func(recordID, interventionID int64) (string, bool) {
			return c.endpoints.Resolve(endpoints.InterventionTransition, endpoints.Vars{ID: recordID, Intervention: interventionID})
		}),
	}
	moveOpts := []movelocation.Option{}
	if cfg.Metrics != nil {
		lifecycleOpts = append(lifecycleOpts, intervention.WithObserver(cfg.Metrics))
		moveOpts = append(moveOpts, movelocation.WithObserver(cfg.Metrics))
	}
	if cfg.Markers != nil {
		moveOpts = append(moveOpts, movelocation.WithMarkers(cfg.Markers))
	}

	c.lifecycle = intervention.NewLifecycle(cfg.Backend, c.cache, cfg.Executor, log, lifecycleOpts...)
	c.move = movelocation.NewSession(c.cache, cfg.Backend, cfg.Endpoints, cfg.Executor, log, moveOpts...)
	return c
}

// Subscribe registers s for every future view and sends it the current one.
func (c *Coordinator) Subscribe(s Subscriber) {
	c.subscribers = append(c.subscribers, s)
	s.PanelChanged(c.last)
}

// View returns the most recently rendered view.
func (c *Coordinator) View() View {
	return c.last
}

// Cache exposes the record cache, mainly for front ends that draw markers.
func (c *Coordinator) Cache() *record.Cache {
	return c.cache
}

// Printer returns the printer views are rendered with.
func (c *Coordinator) Printer() *i18n.Printer {
	return c.printer
}

// Active returns the selected record id.
func (c *Coordinator) Active() (int64, bool) {
	return c.guard.Active()
}

// OpenRecord selects id, renders whatever is cached at once and starts a
// detail refresh. A move session for another record is cancelled first.
func (c *Coordinator) OpenRecord(id int64, hints Hints) {
	if id <= 0 {
		return
	}
	hints.Label = strings.TrimSpace(hints.Label)
	hints.Taxon = strings.TrimSpace(hints.Taxon)

	c.move.OnSelect(id)
	if active, ok := c.guard.Active(); !ok || active != id {
		c.notice = Notice{}
	}
	tok := c.guard.Activate(id)
	if hints.Label != "" {
		c.hints[id] = hints
	}

	c.seed(id, hints)
	c.fetching[id]++
	c.render()

	c.exec.Go("panel.detail", func(ctx context.Context) loop.Apply {
		p, err := c.backend.FetchDetail(ctx, id)
		return func() { c.applyDetail(tok, p, err) }
	})
}

// seed creates the placeholder or refreshes the cached entry before a fetch.
func (c *Coordinator) seed(id int64, hints Hints) {
	patch := record.Patch{ID: id, ErrorMessage: record.Ptr("")}

	rec, ok := c.cache.Get(id)
	switch {
	case !ok:
		title := hints.Label
		if title == "" {
			title = c.printer.T(i18n.TitlePlaceholder, id)
		}
		patch.Title = &title
		patch.Taxon = &hints.Taxon
		patch.HasAssessment = record.Ptr(false)
		patch.HasPhotos = record.Ptr(false)
	case hints.Label != "" && strings.TrimSpace(rec.Title) == "":
		patch.Title = &hints.Label
	}
	if len(rec.Photos) == 0 {
		patch.PhotosLoading = record.Ptr(true)
	}

	c.cache.Merge(patch)
	c.metrics.SetCacheEntries(c.cache.Len())
}

// applyDetail merges a detail result. The cache is always updated; only
// the render depends on tok still being current.
func (c *Coordinator) applyDetail(tok record.Token, p record.Patch, err error) {
	id := tok.ID()
	c.doneFetching(id)

	if err != nil {
		c.metrics.RecordDetailFetch(metrics.ResultError)
		patch := record.Patch{ID: id, PhotosLoading: record.Ptr(false)}
		if !errors.IsUnavailable(err) {
			if errors.IsNotFound(err) {
				c.log.Info("record not found", logger.Int64("record_id", id))
			} else {
				c.log.Warn("detail fetch failed", logger.Int64("record_id", id), logger.Error(err))
			}
			patch.ErrorMessage = record.Ptr(userMessage(err, i18n.ErrDetail, c.printer))
		}
		c.cache.Merge(patch)
		c.renderIfCurrent(tok, "detail")
		return
	}

	c.metrics.RecordDetailFetch(metrics.ResultSuccess)
	if h, ok := c.hints[id]; ok && (p.Title == nil || strings.TrimSpace(*p.Title) == "") {
		p.Title = &h.Label
	}
	p.ID = id
	p.PhotosLoading = record.Ptr(false)
	p.ErrorMessage = record.Ptr("")
	c.cache.Merge(p)
	c.metrics.SetCacheEntries(c.cache.Len())
	c.renderIfCurrent(tok, "detail")
}

func (c *Coordinator) doneFetching(id int64) {
	if c.fetching[id] <= 1 {
		delete(c.fetching, id)
		return
	}
	c.fetching[id]--
}

// Close deselects the record, cancels any move session and publishes the
// closed view.
func (c *Coordinator) Close() {
	c.move.Cancel()
	c.guard.Deactivate()
	c.notice = Notice{}
	c.render()
}

// Refresh re-runs OpenRecord for the selected record.
func (c *Coordinator) Refresh() {
	if id, ok := c.guard.Active(); ok {
		c.OpenRecord(id, Hints{})
	}
}

// reopen refreshes id after a successful sub-workflow, unless the user has
// moved on to another record meanwhile.
func (c *Coordinator) reopen(id int64, source string) {
	if !c.guard.IsActive(id) {
		c.metrics.RecordStaleDiscard(source)
		return
	}
	c.OpenRecord(id, Hints{})
}

// Capabilities returns what the panel offers for rec.
func (c *Coordinator) Capabilities(rec record.Record) Capabilities {
	return Capabilities{
		Assessment:    c.endpoints.Available(endpoints.Assessment),
		Interventions: c.endpoints.Available(endpoints.Interventions),
		PhotoUpload:   c.endpoints.Available(endpoints.PhotoUpload),
		Move:          c.move.Eligible(rec.ID),
		AddToProject:  c.projectID > 0 && c.endpoints.Available(endpoints.AddToProject) && !rec.InProject,
	}
}

func (c *Coordinator) renderIfActive(id int64, source string) {
	c.renderWhen(c.guard.IsActive(id), id, source)
}

func (c *Coordinator) renderIfCurrent(tok record.Token, source string) {
	c.renderWhen(c.guard.Current(tok), tok.ID(), source)
}

func (c *Coordinator) renderWhen(current bool, id int64, source string) {
	if !current {
		c.log.Debug("discarding stale result", logger.Int64("record_id", id), logger.String("source", source))
		c.metrics.RecordStaleDiscard(source)
		return
	}
	c.render()
}

func (c *Coordinator) render() {
	c.metrics.SetMoveSessionActive(c.move.State() != movelocation.Idle)
	id, ok := c.guard.Active()
	if !ok {
		c.publish(Closed())
		return
	}
	rec, ok := c.cache.Get(id)
	if !ok {
		rec = record.Record{ID: id}
	}
	v := Render(rec, c.move.Snapshot(), c.Capabilities(rec), c.printer)
	v.Loading = c.fetching[id] > 0
	v.Notice = c.notice
	if v.Caps.Interventions {
		v.Interventions.Loading = c.listing[id] > 0
		if v.Interventions.Loading && !v.Interventions.Loaded {
			v.Interventions.Text = c.printer.T(i18n.InterventionsLoading)
		}
	}
	c.publish(v)
}

func (c *Coordinator) publish(v View) {
	c.last = v
	for _, s := range c.subscribers {
		s.PanelChanged(v)
	}
}

// fail sets an error notice unless err only means the feature is off.
// notify sets the notice for id. Results for a record that is no longer
// selected are dropped so they never show on another record.
func (c *Coordinator) notify(id int64, n Notice) {
	if !c.guard.IsActive(id) {
		return
	}
	c.notice = n
}

func (c *Coordinator) fail(id int64, err error, fallback i18n.Key) {
	if errors.IsUnavailable(err) {
		return
	}
	c.notify(id, Notice{Text: userMessage(err, fallback, c.printer), Error: true})
}

func (c *Coordinator) succeed(id int64, key i18n.Key) {
	c.notify(id, Notice{Text: c.printer.T(key)})
}
