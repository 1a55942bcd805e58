package trackerapi

import (
	"fmt"
	"slices"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/worktracker-go/internal/errors"
)

// ResponseError is a reply the server produced but that does not report success.
type ResponseError struct {
	Operation  string
	StatusCode int
	// Message is the server's own explanation, empty when it gave none
	Message string
	// Fields holds per-field validation messages, when the server sent them
	Fields map[string][]string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed (HTTP %d)", e.Operation, e.StatusCode)
}

// Message returns the server-provided explanation carried by err, if any.
func Message(err error) (string, bool) {
	var re *ResponseError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message, true
	}
	return "", false
}

// responseError parses the body for an explanation and wraps it.
func responseError(op string, r *response) error {
	re := &ResponseError{Operation: op, StatusCode: r.status}
	if obj, err := jason.NewObjectFromBytes(r.body); err == nil {
		re.Fields = fieldErrors(obj)
		re.Message = explain(obj, re.Fields)
	}

	category := errors.CategoryHTTP
	switch {
	case len(re.Fields) > 0:
		category = errors.CategoryValidation
	case r.status == 404:
		category = errors.CategoryNotFound
	}
	return errors.New(re).
		Component(componentName).
		Category(category).
		Context("operation", op).
		Context("status_code", r.status).
		Build()
}

// fieldErrors reads {"errors": {"field": [{"message": ...}, ...]}}. Entries
// may also be bare strings.
func fieldErrors(obj *jason.Object) map[string][]string {
	errs, err := obj.GetObject("errors")
	if err != nil {
		return nil
	}
	out := make(map[string][]string)
	for field, v := range errs.Map() {
		entries, err := v.Array()
		if err != nil {
			if s, err := v.String(); err == nil && s != "" {
				out[field] = append(out[field], s)
			}
			continue
		}
		for _, e := range entries {
			if s, err := e.String(); err == nil {
				out[field] = append(out[field], s)
				continue
			}
			if o, err := e.Object(); err == nil {
				if s, err := o.GetString("message"); err == nil {
					out[field] = append(out[field], s)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// explain joins field messages with spaces, or falls back to msg, then error.
func explain(obj *jason.Object, fields map[string][]string) string {
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fields[k]...)
		}
		if msg := strings.TrimSpace(strings.Join(parts, " ")); msg != "" {
			return msg
		}
	}
	for _, key := range []string{"msg", "error", "detail"} {
		if s, err := obj.GetString(key); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// bodyStatus reads the top-level "status" field of a JSON body.
func bodyStatus(r *response) string {
	obj, err := jason.NewObjectFromBytes(r.body)
	if err != nil {
		return ""
	}
	s, _ := obj.GetString("status")
	return s
}
