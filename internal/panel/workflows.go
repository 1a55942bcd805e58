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
	"github.com/tphakala/worktracker-go/internal/photo"
	"github.com/tphakala/worktracker-go/internal/record"
	"github.com/tphakala/worktracker-go/internal/trackerapi"
)

func noop(error) {}

// rejectedByServer reports whether the server answered but refused.
func rejectedByServer(err error) bool {
	var re *trackerapi.ResponseError
	return errors.As(err, &re)
}

// unavailable reports a missing endpoint without surfacing it to the user.
func (c *Coordinator) unavailable(kind endpoints.Kind) error {
	c.log.Debug("feature unavailable", logger.String("endpoint", string(kind)))
	return errors.Unavailable("panel", string(kind))
}

// Album opens the photo viewer for the selected record at index start.
func (c *Coordinator) Album(start int) (*photo.Album, bool) {
	id, ok := c.guard.Active()
	if !ok {
		return nil, false
	}
	rec, ok := c.cache.Get(id)
	if !ok || len(rec.Photos) == 0 {
		return nil, false
	}
	return photo.NewAlbum(rec.Photos, start), true
}

// UploadPhoto sends a captured photo and refreshes the record on success.
func (c *Coordinator) UploadPhoto(up photo.Upload, done func(error)) {
	if done == nil {
		done = noop
	}
	if !c.endpoints.Available(endpoints.PhotoUpload) {
		done(c.unavailable(endpoints.PhotoUpload))
		return
	}
	id := up.RecordID

	c.exec.Go("panel.photo_upload", func(ctx context.Context) loop.Apply {
		err := c.backend.UploadPhoto(ctx, up)
		return func() {
			if err != nil {
				c.log.Warn("photo upload failed", logger.Int64("record_id", id), logger.Error(err))
				key := i18n.ErrPhotoSave
				if rejectedByServer(err) {
					key = i18n.ErrPhotoRejected
				}
				c.fail(id, err, key)
				c.renderIfActive(id, "photo_upload")
				done(err)
				return
			}
			c.succeed(id, i18n.MsgPhotoSaved)
			c.cache.Merge(record.Patch{ID: id, HasPhotos: record.Ptr(true)})
			c.reopen(id, "photo_upload")
			done(nil)
		}
	})
}

// LoadAssessment fetches the stored assessment and overlays it on the blank
// form. On failure done still receives the blank form.
func (c *Coordinator) LoadAssessment(id int64, done func(assessment.Assessment, error)) {
	if done == nil {
		done = func(assessment.Assessment, error) {}
	}
	if !c.endpoints.Available(endpoints.Assessment) {
		done(assessment.Default(), c.unavailable(endpoints.Assessment))
		return
	}

	c.exec.Go("panel.assessment_load", func(ctx context.Context) loop.Apply {
		a, err := c.backend.GetAssessment(ctx, id)
		return func() {
			if err != nil {
				c.log.Warn("assessment load failed", logger.Int64("record_id", id), logger.Error(err))
				c.fail(id, err, i18n.ErrAssessmentLoad)
				c.renderIfActive(id, "assessment_load")
				done(assessment.Default(), err)
				return
			}
			done(a.Overlay(assessment.Default()), nil)
		}
	})
}

// SaveAssessment validates and saves an assessment. The crown area is
// derived when missing. Invalid input is rejected without a request.
func (c *Coordinator) SaveAssessment(id int64, a assessment.Assessment, done func(error)) {
	if done == nil {
		done = noop
	}
	if !c.endpoints.Available(endpoints.Assessment) {
		done(c.unavailable(endpoints.Assessment))
		return
	}
	a = a.WithDerivedCrownArea()
	if err := a.Validate(); err != nil {
		done(err)
		return
	}

	c.exec.Go("panel.assessment_save", func(ctx context.Context) loop.Apply {
		err := c.backend.SaveAssessment(ctx, id, a)
		return func() {
			if err != nil {
				c.log.Warn("assessment save failed", logger.Int64("record_id", id), logger.Error(err))
				c.fail(id, err, i18n.ErrAssessmentSave)
				c.renderIfActive(id, "assessment_save")
				done(err)
				return
			}
			c.succeed(id, i18n.MsgAssessmentSaved)
			c.cache.Merge(record.Patch{ID: id, HasAssessment: record.Ptr(true)})
			c.reopen(id, "assessment_save")
			done(nil)
		}
	})
}

// NoteHint returns the note hint for an intervention type, or "" when the
// type needs no note.
func (c *Coordinator) NoteHint(code string) string {
	rule := c.lifecycle.NoteRule(code)
	if !rule.Required {
		return ""
	}
	if hint := strings.TrimSpace(rule.Hint); hint != "" {
		return hint
	}
	return c.printer.T(i18n.NoteHintDefault)
}

// LoadInterventions fetches the intervention list of id.
func (c *Coordinator) LoadInterventions(id int64, done func([]intervention.Item, error)) {
	if done == nil {
		done = func([]intervention.Item, error) {}
	}
	if !c.endpoints.Available(endpoints.Interventions) {
		done(nil, c.unavailable(endpoints.Interventions))
		return
	}

	c.listing[id]++
	if c.guard.IsActive(id) {
		c.render()
	}
	c.lifecycle.List(id, func(items []intervention.Item, err error) {
		c.doneListing(id)
		if err != nil {
			c.fail(id, err, i18n.ErrInterventionList)
		}
		c.renderIfActive(id, "intervention_list")
		done(items, err)
	})
}

func (c *Coordinator) doneListing(id int64) {
	if c.listing[id] <= 1 {
		delete(c.listing, id)
		return
	}
	c.listing[id]--
}

// CreateIntervention submits a new intervention. Validation errors from the
// server become one notice and the cached list stays as it was.
func (c *Coordinator) CreateIntervention(id int64, fields intervention.CreateFields, done func(intervention.Item, error)) {
	if done == nil {
		done = func(intervention.Item, error) {}
	}
	if !c.endpoints.Available(endpoints.Interventions) {
		done(intervention.Item{}, c.unavailable(endpoints.Interventions))
		return
	}

	c.lifecycle.Create(id, fields, func(item intervention.Item, err error) {
		if err != nil {
			switch {
			case errors.Is(err, intervention.ErrNoteRequired):
				c.notify(id, Notice{Text: c.printer.T(i18n.ErrNoteRequired), Error: true})
			default:
				c.fail(id, err, i18n.ErrInterventionSave)
			}
			c.renderIfActive(id, "intervention_create")
			done(intervention.Item{}, err)
			return
		}
		c.succeed(id, i18n.MsgInterventionSaved)
		c.reopen(id, "intervention_create")
		done(item, nil)
	})
}

// TransitionIntervention moves an intervention to target. done fires in
// every path so the caller can re-enable its control.
func (c *Coordinator) TransitionIntervention(id, interventionID int64, target intervention.Status, note string, done func(error)) {
	if done == nil {
		done = noop
	}
	c.lifecycle.Transition(id, interventionID, "", target, note, func(err error) {
		if err != nil {
			var relist *intervention.RelistError
			switch {
			case errors.Is(err, intervention.ErrNoteRequired):
				c.notify(id, Notice{Text: c.printer.T(i18n.ErrNoteRequired), Error: true})
			case errors.As(err, &relist):
				c.fail(id, relist.Err, i18n.ErrInterventionList)
			default:
				c.fail(id, err, i18n.ErrInterventionHandover)
			}
			c.renderIfActive(id, "intervention_transition")
			done(err)
			return
		}
		c.notify(id, Notice{})
		c.renderIfActive(id, "intervention_transition")
		done(nil)
	})
}

// AddToProject adds id to the configured project.
func (c *Coordinator) AddToProject(id int64, done func(error)) {
	if done == nil {
		done = noop
	}
	if c.projectID <= 0 || !c.endpoints.Available(endpoints.AddToProject) {
		done(c.unavailable(endpoints.AddToProject))
		return
	}
	projectID := c.projectID

	c.exec.Go("panel.add_to_project", func(ctx context.Context) loop.Apply {
		err := c.backend.AddToProject(ctx, projectID, id)
		return func() {
			if err != nil {
				c.log.Warn("add to project failed",
					logger.Int64("record_id", id),
					logger.Int64("project_id", projectID),
					logger.Error(err))
				c.fail(id, err, i18n.ErrProjectAdd)
				c.renderIfActive(id, "add_to_project")
				done(err)
				return
			}
			c.succeed(id, i18n.MsgProjectAdded)
			c.cache.Merge(record.Patch{ID: id, InProject: record.Ptr(true)})
			c.reopen(id, "add_to_project")
			done(nil)
		}
	})
}

// EnterMove starts move-location mode for the selected record.
func (c *Coordinator) EnterMove() bool {
	id, ok := c.guard.Active()
	if !ok {
		return false
	}
	entered := c.move.Enter(id)
	c.render()
	return entered
}

// SetPendingLocation stages a coordinate for the move session.
func (c *Coordinator) SetPendingLocation(raw any) error {
	if err := c.move.SetPending(raw); err != nil {
		return err
	}
	c.render()
	return nil
}

// CommitMove sends the staged coordinate. Without one nothing is sent and
// the session stays active. The record is not fetched again afterwards;
// the stored coordinate is merged into the cache.
func (c *Coordinator) CommitMove(done func(error)) {
	if done == nil {
		done = noop
	}
	target, _ := c.move.Target()
	c.move.Commit(func(err error) {
		switch {
		case err == nil:
			c.succeed(target, i18n.MsgLocationSaved)
		case errors.Is(err, movelocation.ErrNoPendingCoordinate):
			c.notify(target, Notice{Text: c.printer.T(i18n.ErrNoCoordinate), Error: true})
		case errors.IsPrecondition(err):
			// not in move mode; nothing to tell the user
		default:
			c.fail(target, err, i18n.ErrLocationSave)
		}
		if target == 0 {
			c.render()
		} else {
			c.renderIfActive(target, "location_commit")
		}
		done(err)
	})
	// Committing is visible until the result arrives
	c.render()
}

// CancelMove leaves move-location mode and drops the staged coordinate.
func (c *Coordinator) CancelMove() {
	c.move.Cancel()
	c.render()
}

// MoveState exposes the session snapshot for front ends.
func (c *Coordinator) MoveState() movelocation.Snapshot {
	return c.move.Snapshot()
}
