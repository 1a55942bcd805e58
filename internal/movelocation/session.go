// Package movelocation implements the exclusive "move location" editing
// mode: pick a record, stage a coordinate, commit it to the server or cancel.
//
//	idle → active(target) → idle            (Cancel)
//	                      → committing → idle    (success)
//	                                   → active  (failure, coordinate kept)
package movelocation

import (
	"context"

	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/loop"
	"github.com/tphakala/worktracker-go/internal/record"
)

// State is the session state.
type State int

const (
	Idle State = iota
	Active
	Committing
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committing:
		return "committing"
	default:
		return "idle"
	}
}

// Precondition failures, returned before any request.
var (
	ErrNotActive           = errors.NewStd("move location is not active")
	ErrNoPendingCoordinate = errors.NewStd("no pending coordinate to commit")
	ErrCommitInFlight      = errors.NewStd("a commit is already in flight")
)

// LocationSetter stores a record's coordinate and returns the stored value.
type LocationSetter interface {
	SetLocation(ctx context.Context, url string, c geo.Coordinate) (geo.Coordinate, error)
}

// MarkerLayer shows and removes the transient pending marker on the map.
type MarkerLayer interface {
	ShowPending(recordID int64, c geo.Coordinate)
	ClearPending(recordID int64)
}

// Observer receives commit outcomes, typically for metrics.
type Observer interface {
	LocationCommit(result string, distanceMeters float64)
}

// Snapshot is the read-only view of a session for rendering.
type Snapshot struct {
	State   State
	Target  int64
	Pending *geo.Coordinate
	LastErr error
}

// CanCommit reports whether the snapshot would accept Commit.
func (s Snapshot) CanCommit() bool {
	return s.State == Active && s.Pending != nil
}

// Session is the singleton move-location mode. It is driven from the
// interaction loop only.
type Session struct {
	cache     *record.Cache
	setter    LocationSetter
	endpoints *endpoints.Set
	exec      loop.Executor
	markers   MarkerLayer
	observer  Observer
	log       logger.Logger

	state   State
	target  int64
	pending *geo.Coordinate
	lastErr error
	// gen invalidates commit callbacks that outlive a cancel
	gen uint64
}

// Option configures a Session.
type Option func(*Session)

// WithMarkers sets the map marker layer.
func WithMarkers(m MarkerLayer) Option {
	return func(s *Session) { s.markers = m }
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// NewSession returns an idle session.
func NewSession(cache *record.Cache, setter LocationSetter, eps *endpoints.Set, exec loop.Executor, log logger.Logger, opts ...Option) *Session {
	if log == nil {
		log = logger.Discard()
	}
	s := &Session{
		cache:     cache,
		setter:    setter,
		endpoints: eps,
		exec:      exec,
		log:       log.Module("movelocation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// locationURL prefers the URL the server declared for the record
func (s *Session) locationURL(rec record.Record) (string, bool) {
	if rec.LocationURL != "" {
		return s.endpoints.Absolute(rec.LocationURL), true
	}
	return s.endpoints.Resolve(endpoints.SetLocation, endpoints.Vars{ID: rec.ID})
}

// Eligible reports whether Enter would accept recordID.
func (s *Session) Eligible(recordID int64) bool {
	rec, ok := s.cache.Get(recordID)
	if !ok || !rec.CanEdit {
		return false
	}
	_, ok = s.locationURL(rec)
	return ok
}

// Enter starts editing recordID. It is a no-op returning false when the
// record is not editable or no location endpoint resolves. Entering for a
// different record cancels the current session first; entering again for the
// same record keeps it.
func (s *Session) Enter(recordID int64) bool {
	if s.state != Idle && s.target == recordID {
		return true
	}
	if !s.Eligible(recordID) {
		return false
	}
	if s.state != Idle {
		s.Cancel()
	}
	s.state = Active
	s.target = recordID
	s.pending = nil
	s.lastErr = nil
	s.log.Debug("move location entered", logger.Int64("record_id", recordID))
	return true
}

// SetPending stages a coordinate in any shape geo.Normalize accepts.
func (s *Session) SetPending(raw any) error {
	if s.state != Active {
		return s.precondition(ErrNotActive)
	}
	c, err := geo.Normalize(raw)
	if err != nil {
		return err
	}
	s.pending = &c
	s.lastErr = nil
	if s.markers != nil {
		s.markers.ShowPending(s.target, c)
	}
	return nil
}

// CanCommit reports whether a coordinate is staged and no commit is running.
func (s *Session) CanCommit() bool {
	return s.state == Active && s.pending != nil
}

// Commit sends the staged coordinate. Without one it is rejected and the
// session stays active. done runs on the loop once the outcome is known,
// also when the session was cancelled or moved to another record meanwhile;
// only the state change is skipped then.
func (s *Session) Commit(done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	switch {
	case s.state == Committing:
		done(s.precondition(ErrCommitInFlight))
		return
	case s.state != Active:
		done(s.precondition(ErrNotActive))
		return
	case s.pending == nil:
		done(s.precondition(ErrNoPendingCoordinate))
		return
	}

	rec, _ := s.cache.Get(s.target)
	url, ok := s.locationURL(rec)
	if !ok {
		done(errors.Unavailable("movelocation", string(endpoints.SetLocation)))
		return
	}

	target, coord, gen := s.target, *s.pending, s.gen
	var previous *geo.Coordinate
	if rec.Position != nil {
		p := *rec.Position
		previous = &p
	}
	s.state = Committing
	s.lastErr = nil

	s.exec.Go("movelocation.commit", func(ctx context.Context) loop.Apply {
		stored, err := s.setter.SetLocation(ctx, url, coord)
		return func() {
			if err != nil {
				s.observe("error", 0)
				s.log.Warn("location commit failed", logger.Int64("record_id", target), logger.Error(err))
				if gen == s.gen {
					s.state = Active
					s.lastErr = err
				}
				done(err)
				return
			}

			// The server stored the coordinate even if the session moved on
			s.cache.Merge(record.Patch{ID: target, Position: &stored})
			moved := 0.0
			if previous != nil {
				moved = geo.DistanceMeters(*previous, stored)
			}
			s.observe("success", moved)
			s.log.Info("location committed",
				logger.Int64("record_id", target),
				logger.Float64("moved_m", moved))

			if gen == s.gen {
				s.reset()
			}
			done(nil)
		}
	})
}

// Cancel returns to idle from any state and discards the staged coordinate.
func (s *Session) Cancel() {
	if s.state == Idle {
		return
	}
	s.log.Debug("move location cancelled", logger.Int64("record_id", s.target), logger.String("state", s.state.String()))
	s.reset()
}

func (s *Session) reset() {
	target := s.target
	s.gen++
	s.state = Idle
	s.target = 0
	s.pending = nil
	s.lastErr = nil
	if s.markers != nil && target != 0 {
		s.markers.ClearPending(target)
	}
}

// OnSelect reacts to the panel switching to recordID.
func (s *Session) OnSelect(recordID int64) {
	if s.state != Idle && s.target != recordID {
		s.Cancel()
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Target returns the record being edited.
func (s *Session) Target() (int64, bool) {
	return s.target, s.state != Idle
}

// Snapshot returns a copy for rendering.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{State: s.state, Target: s.target, LastErr: s.lastErr}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	return snap
}

func (s *Session) observe(result string, moved float64) {
	if s.observer != nil {
		s.observer.LocationCommit(result, moved)
	}
}

func (s *Session) precondition(err error) error {
	return errors.New(err).
		Component("movelocation").
		Category(errors.CategoryPrecondition).
		Context("state", s.state.String()).
		Build()
}
