package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/i18n"
	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/movelocation"
	"github.com/tphakala/worktracker-go/internal/photo"
	"github.com/tphakala/worktracker-go/internal/record"
	"github.com/tphakala/worktracker-go/internal/trackerapi"
)

// Capabilities says which sub-workflows the panel offers for a record.
type Capabilities struct {
	Assessment    bool
	Interventions bool
	PhotoUpload   bool
	Move          bool
	AddToProject  bool
}

// Notice is a one-line message shown under the panel.
type Notice struct {
	Text  string
	Error bool
}

// View is everything a front end needs to draw the panel.
type View struct {
	Open     bool
	RecordID int64
	Title    string
	Taxon    string
	// Loading is true while the detail request is in flight
	Loading       bool
	Error         string
	Position      *geo.Coordinate
	HasAssessment bool
	InProject     bool

	Photos        PhotoSection
	Interventions InterventionSection
	Move          MoveSection
	Caps          Capabilities
	Notice        Notice

	DetailURL string
	EditURL   string
}

// PhotoSection is the thumbnail strip or the text that replaces it.
type PhotoSection struct {
	Text    string
	Error   bool
	Loading bool
	Thumbs  []Thumb
	Total   int
}

// Thumb is one thumbnail with the index it opens in the album.
type Thumb struct {
	Index int
	Src   string
	Full  string
}

// InterventionSection lists current items first and completed ones as history.
type InterventionSection struct {
	Loaded  bool
	Loading bool
	Text    string
	Current []InterventionRow
	History []InterventionRow
}

// InterventionRow is one rendered intervention.
type InterventionRow struct {
	ID        int64
	Code      string
	Name      string
	Note      string
	Status    string
	Timestamp string
	Actions   []ActionButton
}

// ActionButton is one server-offered transition.
type ActionButton struct {
	Action       intervention.Action
	Label        string
	Target       intervention.Status
	RequiresNote bool
}

// MoveSection describes the move-location mode for this record.
type MoveSection struct {
	Active    bool
	State     movelocation.State
	Text      string
	Pending   *geo.Coordinate
	CanCommit bool
	Error     string
}

// Closed is the view subscribers receive when no record is selected.
func Closed() View {
	return View{}
}

// Render derives the view for rec. It reads nothing but its arguments.
func Render(rec record.Record, move movelocation.Snapshot, caps Capabilities, p *i18n.Printer) View {
	v := View{
		Open:          true,
		RecordID:      rec.ID,
		Taxon:         strings.TrimSpace(rec.Taxon),
		Error:         rec.ErrorMessage,
		HasAssessment: rec.HasAssessment,
		InProject:     rec.InProject,
		Caps:          caps,
		DetailURL:     fmt.Sprintf("/tracker/%d/", rec.ID),
		EditURL:       fmt.Sprintf("/tracker/%d/edit/", rec.ID),
	}
	if rec.Position != nil {
		pos := *rec.Position
		v.Position = &pos
	}

	switch title := strings.TrimSpace(rec.Title); {
	case title != "":
		v.Title = title
	case rec.ErrorMessage != "":
		v.Title = p.T(i18n.TitleFallback)
	default:
		v.Title = rec.Label()
	}

	v.Photos = renderPhotos(rec, p)
	if caps.Interventions {
		v.Interventions = renderInterventions(rec, p)
	}
	if target := move.Target; move.State != movelocation.Idle && target == rec.ID {
		v.Move = renderMove(move, p)
	}
	return v
}

func renderPhotos(rec record.Record, p *i18n.Printer) PhotoSection {
	switch {
	case rec.PhotosLoading:
		return PhotoSection{Text: p.T(i18n.PhotosLoading), Loading: true}
	case rec.ErrorMessage != "":
		return PhotoSection{Text: rec.ErrorMessage, Error: true}
	case len(rec.Photos) > 0:
		s := PhotoSection{Total: len(rec.Photos)}
		for i, ph := range rec.Photos[:min(len(rec.Photos), photo.PanelThumbs)] {
			s.Thumbs = append(s.Thumbs, Thumb{Index: i, Src: photo.Thumb(ph), Full: photo.Source(ph)})
		}
		return s
	case rec.HasPhotos:
		return PhotoSection{Text: p.T(i18n.PhotosAfterClick)}
	default:
		return PhotoSection{Text: p.T(i18n.PhotosNone)}
	}
}

func renderInterventions(rec record.Record, p *i18n.Printer) InterventionSection {
	if !rec.InterventionsLoaded {
		return InterventionSection{}
	}
	s := InterventionSection{Loaded: true}
	if len(rec.Interventions) == 0 {
		s.Text = p.T(i18n.InterventionsEmpty)
		return s
	}
	current, history := intervention.Partition(rec.Interventions)
	for _, it := range current {
		s.Current = append(s.Current, renderIntervention(it, p))
	}
	for _, it := range history {
		s.History = append(s.History, renderIntervention(it, p))
	}
	return s
}

func renderIntervention(it intervention.Item, p *i18n.Printer) InterventionRow {
	row := InterventionRow{
		ID:     it.ID,
		Code:   it.Code,
		Name:   it.Name,
		Note:   it.Note,
		Status: p.Status(it),
	}
	switch {
	case it.HandedOverAt != nil:
		row.Timestamp = p.T(i18n.LabelHandedOver) + " " + formatTimestamp(*it.HandedOverAt)
	case !it.CreatedAt.IsZero():
		row.Timestamp = p.T(i18n.LabelCreated) + " " + formatTimestamp(it.CreatedAt)
	}
	if it.AllowedKnown {
		for _, a := range it.Allowed.Actions() {
			row.Actions = append(row.Actions, ActionButton{
				Action:       a,
				Label:        p.Action(a),
				Target:       a.Target(),
				RequiresNote: a.RequiresNote(),
			})
		}
	}
	return row
}

func formatTimestamp(t time.Time) string {
	return photo.FormatDate(t) + t.Format(" 15:04")
}

func renderMove(snap movelocation.Snapshot, p *i18n.Printer) MoveSection {
	s := MoveSection{
		Active:    true,
		State:     snap.State,
		CanCommit: snap.CanCommit(),
	}
	if snap.Pending != nil {
		pending := *snap.Pending
		s.Pending = &pending
	}
	switch {
	case snap.State == movelocation.Committing:
		s.Text = p.T(i18n.MoveCommitting)
	case snap.Pending != nil:
		s.Text = p.T(i18n.MovePending, snap.Pending.String())
	default:
		s.Text = p.T(i18n.MoveActive)
	}
	if snap.LastErr != nil {
		s.Error = userMessage(snap.LastErr, i18n.ErrLocationSave, p)
	}
	return s
}

// userMessage prefers the server's explanation over the generic text.
func userMessage(err error, fallback i18n.Key, p *i18n.Printer) string {
	if msg, ok := trackerapi.Message(err); ok {
		return msg
	}
	return p.T(fallback)
}
