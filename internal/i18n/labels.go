package i18n

import (
	"github.com/tphakala/worktracker-go/internal/assessment"
	"github.com/tphakala/worktracker-go/internal/intervention"
)

// Status returns the display label for an intervention status. A label sent
// by the server wins over the catalog.
func (p *Printer) Status(it intervention.Item) string {
	if it.StatusLabel != "" {
		return it.StatusLabel
	}
	switch it.Status {
	case intervention.StatusProposed:
		return p.T(StatusProposed)
	case intervention.StatusDonePendingOwner:
		return p.T(StatusDonePendingOwner)
	case intervention.StatusCompleted:
		return p.T(StatusCompleted)
	}
	return string(it.Status)
}

// Action returns the button label for an action.
func (p *Printer) Action(a intervention.Action) string {
	switch a {
	case intervention.ActionMarkDone:
		return p.T(ActionMarkDone)
	case intervention.ActionConfirm:
		return p.T(ActionConfirm)
	case intervention.ActionReturn:
		return p.T(ActionReturn)
	}
	return string(a)
}

// Perspective returns the label for a perspective class; nil is "not set".
func (p *Printer) Perspective(v *assessment.Perspective) string {
	if v == nil {
		return p.T(PerspectiveUnset)
	}
	switch *v {
	case assessment.PerspectiveLong:
		return p.T(PerspectiveA)
	case assessment.PerspectiveShort:
		return p.T(PerspectiveB)
	case assessment.PerspectiveNone:
		return p.T(PerspectiveC)
	}
	return p.T(PerspectiveUnset)
}

var (
	obstacleKeys  = []Key{Obstacle0, Obstacle1, Obstacle2}
	mistletoeKeys = []Key{Mistletoe1, Mistletoe2, Mistletoe3, Mistletoe4, Mistletoe5}
)

// Obstacle returns the access obstacle label for level 0..2.
func (p *Printer) Obstacle(level int) string {
	if level < 0 || level >= len(obstacleKeys) {
		return ""
	}
	return p.T(obstacleKeys[level])
}

// Mistletoe returns the abundance label for level 1..5.
func (p *Printer) Mistletoe(level int) string {
	if level < 1 || level > len(mistletoeKeys) {
		return ""
	}
	return p.T(mistletoeKeys[level-1])
}
