package trackerapi

import (
	"context"
	"net/http"

	"github.com/tphakala/worktracker-go/internal/assessment"
	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
)

// GetAssessment loads the stored assessment of a record. Fields the server
// leaves null stay nil.
func (c *Client) GetAssessment(ctx context.Context, recordID int64) (assessment.Assessment, error) {
	url, err := c.resolve(endpoints.Assessment, endpoints.Vars{ID: recordID})
	if err != nil {
		return assessment.Assessment{}, err
	}

	r, err := c.send(ctx, metrics.OpAssessmentGet, url, func(ctx context.Context) (*http.Response, error) {
		return c.http.Get(ctx, url)
	})
	if err != nil {
		return assessment.Assessment{}, err
	}
	if !r.ok() {
		return assessment.Assessment{}, responseError(metrics.OpAssessmentGet, r)
	}

	var a assessment.Assessment
	if err := decode(metrics.OpAssessmentGet, r, &a); err != nil {
		return assessment.Assessment{}, err
	}
	if a.Perspective != nil && !a.Perspective.Valid() {
		a.Perspective = nil
	}
	return a, nil
}

// SaveAssessment posts the full assessment as JSON. Nil fields are sent as null.
func (c *Client) SaveAssessment(ctx context.Context, recordID int64, a assessment.Assessment) error {
	url, err := c.resolve(endpoints.Assessment, endpoints.Vars{ID: recordID})
	if err != nil {
		return err
	}

	r, err := c.send(ctx, metrics.OpAssessmentSave, url, func(ctx context.Context) (*http.Response, error) {
		return c.http.Post(ctx, url, "", a)
	})
	if err != nil {
		return err
	}
	if !r.ok() {
		return responseError(metrics.OpAssessmentSave, r)
	}
	return nil
}
