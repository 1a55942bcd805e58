package intervention

import (
	"context"
	"strings"

	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/loop"
)

// Precondition failures. They are returned before any request is sent.
var (
	ErrUnknownIntervention = errors.NewStd("intervention not in the cached list")
	ErrIllegalTransition   = errors.NewStd("no lifecycle edge leads to the requested status")
	ErrActionNotOffered    = errors.NewStd("action not offered by the server")
	ErrNoteRequired        = errors.NewStd("a note is required")
	ErrTypeRequired        = errors.NewStd("intervention type is required")
)

// RelistError reports a transition the server applied whose follow-up list
// fetch failed. The cached list is stale until the next successful list.
type RelistError struct {
	Err error
}

func (e *RelistError) Error() string {
	return "transition applied, list refresh failed: " + e.Err.Error()
}

func (e *RelistError) Unwrap() error { return e.Err }

// Backend is the server side of the lifecycle.
type Backend interface {
	ListInterventions(ctx context.Context, recordID int64) ([]Item, error)
	CreateIntervention(ctx context.Context, recordID int64, fields CreateFields) (Item, error)
	TransitionIntervention(ctx context.Context, url string, req TransitionRequest) error
}

// Store holds the per-record intervention lists.
type Store interface {
	Interventions(recordID int64) []Item
	SetInterventions(recordID int64, items []Item)
}

// URLResolver builds a transition URL when neither the caller nor the item carries one.
type URLResolver func(recordID, interventionID int64) (string, bool)

// Observer receives lifecycle outcomes, typically for metrics.
type Observer interface {
	TransitionResult(action string, result string)
}

// Lifecycle runs list, create and transition against the backend and keeps
// the store consistent with server responses. Completion callbacks run on the
// interaction loop and fire exactly once per call, success or failure.
type Lifecycle struct {
	backend  Backend
	store    Store
	exec     loop.Executor
	log      logger.Logger
	notes    map[string]NoteRule
	resolve  URLResolver
	observer Observer
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithNoteRules sets per-type note requirements keyed by intervention code.
// Codes match case-insensitively since configuration keys arrive lowercased.
func WithNoteRules(rules map[string]NoteRule) Option {
	return func(l *Lifecycle) {
		l.notes = make(map[string]NoteRule, len(rules))
		for code, rule := range rules {
			l.notes[strings.ToLower(code)] = rule
		}
	}
}

// WithTransitionURLResolver sets the fallback transition URL builder.
func WithTransitionURLResolver(r URLResolver) Option {
	return func(l *Lifecycle) { l.resolve = r }
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(l *Lifecycle) { l.observer = o }
}

// NewLifecycle wires a lifecycle. log may be nil.
func NewLifecycle(backend Backend, store Store, exec loop.Executor, log logger.Logger, opts ...Option) *Lifecycle {
	if log == nil {
		log = logger.Discard()
	}
	l := &Lifecycle{
		backend: backend,
		store:   store,
		exec:    exec,
		log:     log.Module("intervention"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NoteRule returns the configured rule for an intervention type code.
func (l *Lifecycle) NoteRule(code string) NoteRule {
	return l.notes[strings.ToLower(strings.TrimSpace(code))]
}

// List fetches the list for recordID and replaces the cached one.
func (l *Lifecycle) List(recordID int64, done func([]Item, error)) {
	if done == nil {
		done = func([]Item, error) {}
	}
	l.exec.Go("intervention.list", func(ctx context.Context) loop.Apply {
		items, err := l.backend.ListInterventions(ctx, recordID)
		return func() {
			if err != nil {
				if !errors.IsUnavailable(err) {
					l.log.Warn("listing interventions failed", logger.Int64("record_id", recordID), logger.Error(err))
				}
				done(nil, err)
				return
			}
			l.store.SetInterventions(recordID, items)
			done(items, nil)
		}
	})
}

// Create submits a new intervention. The returned item is placed at the
// head of the cached list, or replaces the entry with the same id. When the
// server omits the allowed actions the list is fetched again so that the
// item never shows actions the client guessed.
func (l *Lifecycle) Create(recordID int64, fields CreateFields, done func(Item, error)) {
	if done == nil {
		done = func(Item, error) {}
	}

	fields.Code = strings.TrimSpace(fields.Code)
	fields.Note = strings.TrimSpace(fields.Note)
	if fields.Code == "" {
		done(Item{}, precondition(ErrTypeRequired, recordID, 0))
		return
	}
	if rule := l.NoteRule(fields.Code); rule.Required && fields.Note == "" {
		done(Item{}, precondition(ErrNoteRequired, recordID, 0))
		return
	}

	l.exec.Go("intervention.create", func(ctx context.Context) loop.Apply {
		item, err := l.backend.CreateIntervention(ctx, recordID, fields)
		return func() {
			if err != nil {
				done(Item{}, err)
				return
			}
			if item.AllowedKnown {
				l.store.SetInterventions(recordID, Upsert(l.store.Interventions(recordID), item))
				done(item, nil)
				return
			}

			l.log.Warn("create response carried no allowed_actions, refreshing list",
				logger.Int64("record_id", recordID),
				logger.Int64("intervention_id", item.ID))
			l.List(recordID, func(_ []Item, listErr error) {
				if listErr != nil {
					// Keep the created item visible; it offers no actions until a later refresh
					l.store.SetInterventions(recordID, Upsert(l.store.Interventions(recordID), item))
				}
				done(item, nil)
			})
		}
	})
}

// Transition moves an intervention to target. The action is derived from
// the lifecycle graph and must be offered by the server; a return needs a
// non-blank note. On success the list is fetched again. The cached list is
// never changed on failure.
func (l *Lifecycle) Transition(recordID, interventionID int64, transitionURL string, target Status, note string, done func(error)) {
	if done == nil {
		done = func(error) {}
	}

	item, ok := Find(l.store.Interventions(recordID), interventionID)
	if !ok {
		done(precondition(ErrUnknownIntervention, recordID, interventionID))
		return
	}
	action, ok := ActionFor(item.Status, target)
	if !ok {
		done(precondition(ErrIllegalTransition, recordID, interventionID))
		return
	}
	if !item.Offers(action) {
		done(precondition(ErrActionNotOffered, recordID, interventionID))
		return
	}
	note = strings.TrimSpace(note)
	if action.RequiresNote() && note == "" {
		done(precondition(ErrNoteRequired, recordID, interventionID))
		return
	}

	url := transitionURL
	if url == "" {
		url = item.TransitionURL
	}
	if url == "" && l.resolve != nil {
		url, _ = l.resolve(recordID, interventionID)
	}
	if url == "" {
		done(errors.Unavailable("intervention", "intervention_transition"))
		return
	}

	req := TransitionRequest{
		InterventionID: interventionID,
		Action:         action,
		Target:         target,
		Note:           note,
	}

	l.exec.Go("intervention.transition", func(ctx context.Context) loop.Apply {
		err := l.backend.TransitionIntervention(ctx, url, req)
		return func() {
			if err != nil {
				l.observe(action, "error")
				l.log.Warn("transition failed",
					logger.Int64("record_id", recordID),
					logger.Int64("intervention_id", interventionID),
					logger.String("action", string(action)),
					logger.Error(err))
				done(err)
				return
			}
			l.observe(action, "success")
			l.log.Info("intervention transitioned",
				logger.Int64("record_id", recordID),
				logger.Int64("intervention_id", interventionID),
				logger.String("action", string(action)))
			l.List(recordID, func(_ []Item, listErr error) {
				if listErr != nil {
					done(&RelistError{Err: listErr})
					return
				}
				done(nil)
			})
		}
	})
}

func (l *Lifecycle) observe(action Action, result string) {
	if l.observer != nil {
		l.observer.TransitionResult(string(action), result)
	}
}

func precondition(err error, recordID, interventionID int64) error {
	b := errors.New(err).
		Component("intervention").
		Category(errors.CategoryPrecondition).
		Context("record_id", recordID)
	if interventionID != 0 {
		b = b.Context("intervention_id", interventionID)
	}
	return b.Build()
}
