// Package record holds the client-side snapshot of work records and the
// selection guard that decides which asynchronous results may still render.
package record

import (
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/intervention"
)

// Photo is one photo documentation entry.
type Photo struct {
	Thumb       string `json:"thumb"`
	Full        string `json:"full"`
	Description string `json:"description,omitempty"`
}

// Record is the merged client-side view of one work record.
type Record struct {
	ID            int64
	Title         string
	Taxon         string
	Position      *geo.Coordinate
	HasAssessment bool
	HasPhotos     bool
	Photos        []Photo
	PhotosLoading bool
	Interventions []intervention.Item
	// InterventionsLoaded distinguishes an empty list from one never fetched
	InterventionsLoaded bool
	InProject           bool
	CanEdit             bool
	LocationURL         string
	ErrorMessage        string
}

// Label is the display title: the trimmed title, else the numeric id.
func (r Record) Label() string {
	if title := strings.TrimSpace(r.Title); title != "" {
		return title
	}
	return strconv.FormatInt(r.ID, 10)
}

// clone deep-copies the slices and the position so snapshots never alias cache state.
func (r Record) clone() Record {
	r.Photos = slices.Clone(r.Photos)
	r.Interventions = slices.Clone(r.Interventions)
	if r.Position != nil {
		p := *r.Position
		r.Position = &p
	}
	return r
}

// Patch is a partial update. Nil pointers and nil slices mean "not provided";
// a non-nil empty slice replaces the list with an empty one.
type Patch struct {
	ID            int64
	Title         *string
	Taxon         *string
	Position      *geo.Coordinate
	ClearPosition bool
	HasAssessment *bool
	HasPhotos     *bool
	Photos        []Photo
	PhotosLoading *bool
	Interventions []intervention.Item
	InProject     *bool
	CanEdit       *bool
	LocationURL   *string
	ErrorMessage  *string
}

// Apply returns r with every provided field of p overwritten.
func (p Patch) Apply(r Record) Record {
	r = r.clone()
	if p.ID != 0 {
		r.ID = p.ID
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Taxon != nil {
		r.Taxon = *p.Taxon
	}
	switch {
	case p.Position != nil:
		pos := *p.Position
		r.Position = &pos
	case p.ClearPosition:
		r.Position = nil
	}
	if p.HasAssessment != nil {
		r.HasAssessment = *p.HasAssessment
	}
	if p.HasPhotos != nil {
		r.HasPhotos = *p.HasPhotos
	}
	if p.Photos != nil {
		r.Photos = slices.Clone(p.Photos)
	}
	if p.PhotosLoading != nil {
		r.PhotosLoading = *p.PhotosLoading
	}
	if p.Interventions != nil {
		r.Interventions = slices.Clone(p.Interventions)
		r.InterventionsLoaded = true
	}
	if p.InProject != nil {
		r.InProject = *p.InProject
	}
	if p.CanEdit != nil {
		r.CanEdit = *p.CanEdit
	}
	if p.LocationURL != nil {
		r.LocationURL = *p.LocationURL
	}
	if p.ErrorMessage != nil {
		r.ErrorMessage = *p.ErrorMessage
	}
	return r
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}
