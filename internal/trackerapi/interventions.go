package trackerapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
)

// wireIntervention is one intervention as the server sends it. The server
// puts its display label in "status" and the machine code in "status_code";
// older servers send only the code in "status".
type wireIntervention struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Note           string    `json:"note"`
	Status         string    `json:"status"`
	StatusCode     string    `json:"status_code"`
	CreatedAt      string    `json:"created_at"`
	HandedOverAt   *string   `json:"handed_over_for_check_at"`
	TransitionURL  string    `json:"transition_url"`
	AllowedActions *[]string `json:"allowed_actions"`
}

type listEnvelope struct {
	Status        string             `json:"status"`
	Interventions []wireIntervention `json:"interventions"`
}

type createEnvelope struct {
	Status       string            `json:"status"`
	Intervention *wireIntervention `json:"intervention"`
}

func (c *Client) item(w wireIntervention) intervention.Item {
	it := intervention.Item{
		ID:   w.ID,
		Code: w.Code,
		Name: w.Name,
		Note: w.Note,
	}
	if w.TransitionURL != "" {
		it.TransitionURL = c.endpoints.Absolute(w.TransitionURL)
	}

	switch code := intervention.Status(w.StatusCode); {
	case code.Valid():
		it.Status = code
		it.StatusLabel = w.Status
	case intervention.Status(w.Status).Valid():
		it.Status = intervention.Status(w.Status)
	default:
		it.StatusLabel = w.Status
	}

	it.CreatedAt = parseTime(w.CreatedAt)
	if w.HandedOverAt != nil {
		if t := parseTime(*w.HandedOverAt); !t.IsZero() {
			it.HandedOverAt = &t
		}
	}

	if w.AllowedActions != nil {
		set, unknown := intervention.ParseActions(*w.AllowedActions)
		it.Allowed = set
		it.AllowedKnown = true
		if len(unknown) > 0 {
			c.log.Debug("ignoring unknown intervention actions",
				logger.Int64("intervention_id", w.ID),
				logger.String("actions", strings.Join(unknown, ",")))
		}
	}
	return it
}

// parseTime accepts RFC 3339 timestamps with or without fractions, and bare dates.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (c *Client) interventionsURL(recordID int64) (string, error) {
	return c.resolve(endpoints.Interventions, endpoints.Vars{ID: recordID})
}

// ListInterventions fetches every intervention of a record.
func (c *Client) ListInterventions(ctx context.Context, recordID int64) ([]intervention.Item, error) {
	u, err := c.interventionsURL(recordID)
	if err != nil {
		return nil, err
	}

	r, err := c.send(ctx, metrics.OpInterventionList, u, func(ctx context.Context) (*http.Response, error) {
		return c.http.Get(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, responseError(metrics.OpInterventionList, r)
	}

	var env listEnvelope
	if err := decode(metrics.OpInterventionList, r, &env); err != nil {
		return nil, err
	}
	if env.Status != statusOK {
		return nil, responseError(metrics.OpInterventionList, r)
	}

	items := make([]intervention.Item, 0, len(env.Interventions))
	for _, w := range env.Interventions {
		items = append(items, c.item(w))
	}
	return items, nil
}

// CreateIntervention posts the creation form for a record.
func (c *Client) CreateIntervention(ctx context.Context, recordID int64, fields intervention.CreateFields) (intervention.Item, error) {
	u, err := c.interventionsURL(recordID)
	if err != nil {
		return intervention.Item{}, err
	}

	form := url.Values{}
	for k, v := range fields.Extra {
		form.Set(k, v)
	}
	form.Set("tree_id", strconv.FormatInt(recordID, 10))
	form.Set("intervention_type", fields.Code)
	form.Set("note", fields.Note)

	r, err := c.send(ctx, metrics.OpInterventionCreate, u, func(ctx context.Context) (*http.Response, error) {
		return c.http.PostForm(ctx, u, form)
	})
	if err != nil {
		return intervention.Item{}, err
	}
	if r.status >= 400 {
		return intervention.Item{}, responseError(metrics.OpInterventionCreate, r)
	}

	var env createEnvelope
	if err := decode(metrics.OpInterventionCreate, r, &env); err != nil {
		return intervention.Item{}, err
	}
	if env.Status != statusOK || env.Intervention == nil {
		return intervention.Item{}, responseError(metrics.OpInterventionCreate, r)
	}
	return c.item(*env.Intervention), nil
}

// TransitionIntervention posts one transition. Success needs a status below
// 400 and a body reporting "ok".
func (c *Client) TransitionIntervention(ctx context.Context, transitionURL string, req intervention.TransitionRequest) error {
	form := url.Values{}
	form.Set("id", strconv.FormatInt(req.InterventionID, 10))
	form.Set("action", string(req.Action))
	form.Set("target", string(req.Target))
	if req.Note != "" {
		form.Set("note", req.Note)
	}

	r, err := c.send(ctx, metrics.OpTransition, transitionURL, func(ctx context.Context) (*http.Response, error) {
		return c.http.PostForm(ctx, transitionURL, form)
	})
	if err != nil {
		return err
	}
	if r.status >= 400 || bodyStatus(r) != statusOK {
		return responseError(metrics.OpTransition, r)
	}
	return nil
}
