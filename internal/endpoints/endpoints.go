// Package endpoints resolves configured URL templates into concrete request URLs.
//
// Templates use {id}, {project} and {intervention} placeholders. Templates
// written for the older page scripts carry a literal "/0/" segment that is
// replaced by the record id, and the detail and assessment templates may be a
// bare collection prefix to which the record id is appended. Resolution is a
// pure string operation; an empty template means the feature is unavailable.
package endpoints

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind names one backend operation.
type Kind string

const (
	Detail                 Kind = "detail"
	Assessment             Kind = "assessment"
	Interventions          Kind = "interventions"
	InterventionTransition Kind = "intervention_transition"
	SetLocation            Kind = "set_location"
	AddToProject           Kind = "add_to_project"
	PhotoUpload            Kind = "photo_upload"
)

// Kinds lists every operation in a stable order.
var Kinds = []Kind{Detail, Assessment, Interventions, InterventionTransition, SetLocation, AddToProject, PhotoUpload}

// prefixSuffix is appended to a bare collection prefix ("/api/records/")
var prefixSuffix = map[Kind]string{
	Detail:     "{id}/",
	Assessment: "{id}/assessment/",
}

const (
	phID           = "{id}"
	phProject      = "{project}"
	phIntervention = "{intervention}"
	legacySegment  = "/0/"
)

// Vars carries the identifiers substituted into a template.
type Vars struct {
	ID           int64
	Project      int64
	Intervention int64
}

// Set is an immutable collection of templates with an optional base URL.
type Set struct {
	base      *url.URL
	templates map[Kind]string
}

// New validates the base URL and returns a Set. Unknown kinds are ignored.
func New(baseURL string, templates map[Kind]string) (*Set, error) {
	s := &Set{templates: make(map[Kind]string, len(templates))}

	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("base url %q must be absolute", baseURL)
		}
		s.base = u
	}

	for _, kind := range Kinds {
		if tmpl := strings.TrimSpace(templates[kind]); tmpl != "" {
			s.templates[kind] = tmpl
		}
	}
	return s, nil
}

// Available reports whether a template is configured for kind.
func (s *Set) Available(kind Kind) bool {
	if s == nil {
		return false
	}
	_, ok := s.templates[kind]
	return ok
}

// Template returns the raw configured template.
func (s *Set) Template(kind Kind) string {
	if s == nil {
		return ""
	}
	return s.templates[kind]
}

// Resolve substitutes vars into the template for kind. It returns false when
// the template is missing or needs an identifier that vars does not carry.
func (s *Set) Resolve(kind Kind, vars Vars) (string, bool) {
	if s == nil {
		return "", false
	}
	tmpl, ok := s.templates[kind]
	if !ok {
		return "", false
	}

	resolved, ok := Expand(tmpl, kind, vars)
	if !ok {
		return "", false
	}
	return s.absolute(resolved), true
}

// Expand performs the substitution without consulting a Set.
func Expand(tmpl string, kind Kind, vars Vars) (string, bool) {
	if tmpl == "" {
		return "", false
	}

	hasPlaceholder := strings.Contains(tmpl, phID) ||
		strings.Contains(tmpl, phProject) ||
		strings.Contains(tmpl, phIntervention)

	if !hasPlaceholder {
		switch {
		case strings.Contains(tmpl, legacySegment):
			if vars.ID <= 0 {
				return "", false
			}
			return strings.Replace(tmpl, legacySegment, "/"+strconv.FormatInt(vars.ID, 10)+"/", 1), true
		case prefixSuffix[kind] != "":
			tmpl = ensureTrailingSlash(tmpl) + prefixSuffix[kind]
		default:
			return tmpl, true
		}
	}

	out := tmpl
	for _, sub := range []struct {
		placeholder string
		value       int64
	}{
		{phID, vars.ID},
		{phProject, vars.Project},
		{phIntervention, vars.Intervention},
	} {
		if !strings.Contains(out, sub.placeholder) {
			continue
		}
		if sub.value <= 0 {
			return "", false
		}
		out = strings.ReplaceAll(out, sub.placeholder, strconv.FormatInt(sub.value, 10))
	}
	return out, true
}

// Absolute joins a server-provided relative URL with the base URL.
func (s *Set) Absolute(ref string) string {
	if s == nil {
		return ref
	}
	return s.absolute(ref)
}

func (s *Set) absolute(ref string) string {
	if s.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return s.base.ResolveReference(u).String()
}

func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
