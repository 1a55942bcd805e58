// Package assessment holds the tree condition assessment form: field
// ranges, defaults, the perspective slider mapping and derived crown area.
package assessment

import (
	"fmt"
	"math"

	"github.com/tphakala/worktracker-go/internal/errors"
)

// Perspective is the long-term outlook class.
type Perspective string

const (
	PerspectiveLong  Perspective = "a" // dlouhodobě perspektivní
	PerspectiveShort Perspective = "b" // krátkodobě perspektivní
	PerspectiveNone  Perspective = "c" // neperspektivní
)

// Valid reports whether p is a known class.
func (p Perspective) Valid() bool {
	return p == PerspectiveLong || p == PerspectiveShort || p == PerspectiveNone
}

// PerspectiveFromSlider maps slider positions 1..3 to a..c.
func PerspectiveFromSlider(n int) (Perspective, bool) {
	switch n {
	case 1:
		return PerspectiveLong, true
	case 2:
		return PerspectiveShort, true
	case 3:
		return PerspectiveNone, true
	}
	return "", false
}

// Slider maps a..c to slider positions; unknown values sit at 1.
func (p Perspective) Slider() int {
	switch p {
	case PerspectiveShort:
		return 2
	case PerspectiveNone:
		return 3
	default:
		return 1
	}
}

// Rating bounds shared by physiological age, vitality, health and stability.
const (
	RatingMin     = 1
	RatingMax     = 5
	RatingDefault = 3

	AccessObstacleMax = 2
)

// mistletoeCodes are the abundance classes for levels 1..5
var mistletoeCodes = []string{"R", "O", "F", "A", "D"}

// MistletoeCode returns the abundance class letter for a level.
func MistletoeCode(level int) string {
	if level < 1 || level > len(mistletoeCodes) {
		return ""
	}
	return mistletoeCodes[level-1]
}

// Assessment mirrors the assessment endpoint. Nil means "not set" and is
// sent as null, so a save can clear a field.
type Assessment struct {
	DBHcm               *float64     `json:"dbh_cm"`
	HeightM             *float64     `json:"height_m"`
	CrownWidthM         *float64     `json:"crown_width_m"`
	CrownAreaM2         *float64     `json:"crown_area_m2"`
	PhysiologicalAge    *int         `json:"physiological_age"`
	Vitality            *int         `json:"vitality"`
	HealthState         *int         `json:"health_state"`
	Stability           *int         `json:"stability"`
	MistletoeLevel      *int         `json:"mistletoe_level"`
	AccessObstacleLevel *int         `json:"access_obstacle_level"`
	Perspective         *Perspective `json:"perspective"`
}

// Default is the blank form: every rating at 3 and perspective a.
func Default() Assessment {
	rating := func() *int { v := RatingDefault; return &v }
	p := PerspectiveLong
	return Assessment{
		PhysiologicalAge: rating(),
		Vitality:         rating(),
		HealthState:      rating(),
		Stability:        rating(),
		Perspective:      &p,
	}
}

// Overlay returns a copy of base with every field set in a.
func (a Assessment) Overlay(base Assessment) Assessment {
	out := base
	if a.DBHcm != nil {
		out.DBHcm = a.DBHcm
	}
	if a.HeightM != nil {
		out.HeightM = a.HeightM
	}
	if a.CrownWidthM != nil {
		out.CrownWidthM = a.CrownWidthM
	}
	if a.CrownAreaM2 != nil {
		out.CrownAreaM2 = a.CrownAreaM2
	}
	if a.PhysiologicalAge != nil {
		out.PhysiologicalAge = a.PhysiologicalAge
	}
	if a.Vitality != nil {
		out.Vitality = a.Vitality
	}
	if a.HealthState != nil {
		out.HealthState = a.HealthState
	}
	if a.Stability != nil {
		out.Stability = a.Stability
	}
	if a.MistletoeLevel != nil {
		out.MistletoeLevel = a.MistletoeLevel
	}
	if a.AccessObstacleLevel != nil {
		out.AccessObstacleLevel = a.AccessObstacleLevel
	}
	if a.Perspective != nil {
		out.Perspective = a.Perspective
	}
	return out
}

// WithDerivedCrownArea fills the crown area from width × height, rounded
// half-up to 0.01, when it is missing and both inputs are positive.
func (a Assessment) WithDerivedCrownArea() Assessment {
	if a.CrownAreaM2 != nil || a.CrownWidthM == nil || a.HeightM == nil {
		return a
	}
	w, h := *a.CrownWidthM, *a.HeightM
	if w <= 0 || h <= 0 {
		return a
	}
	area := math.Floor(w*h*100+0.5) / 100
	a.CrownAreaM2 = &area
	return a
}

// Validate checks ranges before anything is sent.
func (a Assessment) Validate() error {
	for _, m := range []struct {
		name  string
		value *float64
	}{
		{"dbh_cm", a.DBHcm},
		{"height_m", a.HeightM},
		{"crown_width_m", a.CrownWidthM},
		{"crown_area_m2", a.CrownAreaM2},
	} {
		if m.value != nil && (*m.value <= 0 || math.IsNaN(*m.value) || math.IsInf(*m.value, 0)) {
			return invalid(m.name, fmt.Sprintf("must be a positive number, got %v", *m.value))
		}
	}

	for _, r := range []struct {
		name     string
		value    *int
		min, max int
	}{
		{"physiological_age", a.PhysiologicalAge, RatingMin, RatingMax},
		{"vitality", a.Vitality, RatingMin, RatingMax},
		{"health_state", a.HealthState, RatingMin, RatingMax},
		{"stability", a.Stability, RatingMin, RatingMax},
		{"mistletoe_level", a.MistletoeLevel, 1, len(mistletoeCodes)},
		{"access_obstacle_level", a.AccessObstacleLevel, 0, AccessObstacleMax},
	} {
		if r.value != nil && (*r.value < r.min || *r.value > r.max) {
			return invalid(r.name, fmt.Sprintf("must be between %d and %d, got %d", r.min, r.max, *r.value))
		}
	}

	if a.Perspective != nil && !a.Perspective.Valid() {
		return invalid("perspective", fmt.Sprintf("unknown class %q", *a.Perspective))
	}
	return nil
}

func invalid(field, msg string) error {
	return errors.Newf("%s %s", field, msg).
		Component("assessment").
		Category(errors.CategoryPrecondition).
		Context("field", field).
		Build()
}
