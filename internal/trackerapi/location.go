package trackerapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
)

// SetLocation posts a new coordinate to locationURL and returns the
// coordinate the server stored.
func (c *Client) SetLocation(ctx context.Context, locationURL string, coord geo.Coordinate) (geo.Coordinate, error) {
	if locationURL == "" {
		return geo.Coordinate{}, errors.Unavailable(componentName, string(endpoints.SetLocation))
	}

	r, err := c.send(ctx, metrics.OpSetLocation, locationURL, func(ctx context.Context) (*http.Response, error) {
		return c.http.Post(ctx, locationURL, "", coord)
	})
	if err != nil {
		return geo.Coordinate{}, err
	}
	if !r.ok() {
		return geo.Coordinate{}, responseError(metrics.OpSetLocation, r)
	}

	obj, err := jason.NewObjectFromBytes(r.body)
	if err != nil {
		return geo.Coordinate{}, decode(metrics.OpSetLocation, r, &struct{}{})
	}
	if msg, err := obj.GetString("error"); err == nil && msg != "" {
		return geo.Coordinate{}, responseError(metrics.OpSetLocation, r)
	}
	lat, errLat := obj.GetFloat64("latitude")
	lon, errLon := obj.GetFloat64("longitude")
	if errLat != nil || errLon != nil {
		// Some servers only acknowledge; the sent coordinate is then authoritative.
		return coord, nil
	}
	stored := geo.Coordinate{Lat: lat, Lon: lon}
	if !stored.Valid() {
		return geo.Coordinate{}, errors.Newf("server stored an out-of-range coordinate %s", stored).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("operation", metrics.OpSetLocation).
			Build()
	}
	return stored, nil
}

// AddToProject adds a record to a project.
func (c *Client) AddToProject(ctx context.Context, projectID, recordID int64) error {
	u, err := c.resolve(endpoints.AddToProject, endpoints.Vars{ID: recordID, Project: projectID})
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("record_id", strconv.FormatInt(recordID, 10))
	form.Set("project_id", strconv.FormatInt(projectID, 10))

	r, err := c.send(ctx, metrics.OpAddToProject, u, func(ctx context.Context) (*http.Response, error) {
		return c.http.PostForm(ctx, u, form)
	})
	if err != nil {
		return err
	}
	if !r.ok() {
		return responseError(metrics.OpAddToProject, r)
	}

	obj, err := jason.NewObjectFromBytes(r.body)
	if err != nil {
		return decode(metrics.OpAddToProject, r, &struct{}{})
	}
	if ok, err := obj.GetBoolean("ok"); err == nil && ok {
		return nil
	}
	if bodyStatus(r) == statusOK {
		return nil
	}
	return responseError(metrics.OpAddToProject, r)
}
