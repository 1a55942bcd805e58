// Package intervention models the work items attached to a record and the
// proposed → done_pending_owner → completed lifecycle they move through.
package intervention

import (
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle position of an intervention.
type Status string

const (
	StatusProposed         Status = "proposed"
	StatusDonePendingOwner Status = "done_pending_owner"
	StatusCompleted        Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProposed, StatusDonePendingOwner, StatusCompleted:
		return true
	}
	return false
}

// Current reports whether items in status s belong to the current list
// rather than history.
func (s Status) Current() bool {
	return s == StatusProposed || s == StatusDonePendingOwner
}

// Action is a server-declared capability to move an intervention.
type Action string

const (
	ActionMarkDone Action = "mark_done"
	ActionConfirm  Action = "confirm"
	ActionReturn   Action = "return"
)

// edges is the complete status graph. Whether an edge may be taken for a
// given item is decided by the item's Allowed set, never by this table.
var edges = []struct {
	from, to Status
	action   Action
}{
	{StatusProposed, StatusDonePendingOwner, ActionMarkDone},
	{StatusDonePendingOwner, StatusCompleted, ActionConfirm},
	{StatusDonePendingOwner, StatusProposed, ActionReturn},
}

// ActionFor returns the action that moves from → to, if the graph has that edge.
func ActionFor(from, to Status) (Action, bool) {
	for _, e := range edges {
		if e.from == from && e.to == to {
			return e.action, true
		}
	}
	return "", false
}

// Target returns the status an action leads to.
func (a Action) Target() Status {
	for _, e := range edges {
		if e.action == a {
			return e.to
		}
	}
	return ""
}

// RequiresNote reports whether the action must carry a non-blank note.
func (a Action) RequiresNote() bool {
	return a == ActionReturn
}

// ActionSet is a bitset of actions the server allows for one item.
type ActionSet uint8

const (
	CanMarkDone ActionSet = 1 << iota
	CanConfirm
	CanReturn
)

var actionBits = []struct {
	bit    ActionSet
	action Action
}{
	{CanMarkDone, ActionMarkDone},
	{CanConfirm, ActionConfirm},
	{CanReturn, ActionReturn},
}

func bitFor(a Action) ActionSet {
	for _, ab := range actionBits {
		if ab.action == a {
			return ab.bit
		}
	}
	return 0
}

// ParseActions converts the server's allowed_actions list, returning any
// names it does not recognize so callers can log them.
func ParseActions(names []string) (set ActionSet, unknown []string) {
	for _, name := range names {
		bit := bitFor(Action(strings.TrimSpace(name)))
		if bit == 0 {
			unknown = append(unknown, name)
			continue
		}
		set |= bit
	}
	return set, unknown
}

// Has reports whether a is in the set.
func (s ActionSet) Has(a Action) bool {
	bit := bitFor(a)
	return bit != 0 && s&bit != 0
}

// With returns the set with a added.
func (s ActionSet) With(a Action) ActionSet {
	return s | bitFor(a)
}

// Actions lists the set in display order.
func (s ActionSet) Actions() []Action {
	var out []Action
	for _, ab := range actionBits {
		if s&ab.bit != 0 {
			out = append(out, ab.action)
		}
	}
	return out
}

// Item is one intervention as known to the client.
type Item struct {
	ID            int64
	Code          string
	Name          string
	Note          string
	Status        Status
	StatusLabel   string // server display label, may be empty
	CreatedAt     time.Time
	HandedOverAt  *time.Time
	TransitionURL string

	// Allowed is authoritative only when AllowedKnown is true.
	Allowed      ActionSet
	AllowedKnown bool
}

// Offers reports whether the server allows action a on this item.
func (it Item) Offers(a Action) bool {
	return it.AllowedKnown && it.Allowed.Has(a)
}

// Partition splits items into current and history, keeping order.
func Partition(items []Item) (current, history []Item) {
	for _, it := range items {
		if it.Status.Current() {
			current = append(current, it)
		} else {
			history = append(history, it)
		}
	}
	return current, history
}

// Upsert replaces the item with the same id in place, or inserts it at the head.
func Upsert(items []Item, it Item) []Item {
	if i := slices.IndexFunc(items, func(x Item) bool { return x.ID == it.ID }); i >= 0 {
		out := slices.Clone(items)
		out[i] = it
		return out
	}
	out := make([]Item, 0, len(items)+1)
	out = append(out, it)
	return append(out, items...)
}

// Find returns the item with id.
func Find(items []Item, id int64) (Item, bool) {
	if i := slices.IndexFunc(items, func(x Item) bool { return x.ID == id }); i >= 0 {
		return items[i], true
	}
	return Item{}, false
}

// CreateFields is the form submitted to create an intervention.
type CreateFields struct {
	Code string // intervention type code
	Note string
	// Extra carries additional form fields verbatim
	Extra map[string]string
}

// NoteRule describes per-type note requirements from configuration.
type NoteRule struct {
	Required bool   `mapstructure:"note_required" yaml:"note_required"`
	Hint     string `mapstructure:"note_hint" yaml:"note_hint"`
}

// TransitionRequest is what the backend receives for a transition.
type TransitionRequest struct {
	InterventionID int64
	Action         Action
	Target         Status
	Note           string
}
