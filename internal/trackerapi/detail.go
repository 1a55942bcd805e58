package trackerapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
	"github.com/tphakala/worktracker-go/internal/record"
)

type detailEnvelope struct {
	Status string        `json:"status"`
	Msg    string        `json:"msg"`
	Record *detailRecord `json:"record"`
}

// detailRecord keeps every field optional so an absent key leaves the
// cached value alone.
type detailRecord struct {
	ID            int64          `json:"id"`
	Title         *string        `json:"title"`
	Taxon         *string        `json:"taxon"`
	Latitude      *float64       `json:"latitude"`
	Longitude     *float64       `json:"longitude"`
	HasAssessment *bool          `json:"has_assessment"`
	HasPhotos     *bool          `json:"has_photos"`
	Photos        []record.Photo `json:"photos"`
	InProject     *bool          `json:"in_project"`
	CanEdit       *bool          `json:"can_edit"`
	LocationURL   *string        `json:"location_url"`
}

func (d *detailRecord) patch(id int64) record.Patch {
	p := record.Patch{
		ID:            id,
		Title:         d.Title,
		Taxon:         d.Taxon,
		HasAssessment: d.HasAssessment,
		HasPhotos:     d.HasPhotos,
		Photos:        d.Photos,
		InProject:     d.InProject,
		CanEdit:       d.CanEdit,
		LocationURL:   d.LocationURL,
	}
	if d.Latitude != nil && d.Longitude != nil {
		c := geo.Coordinate{Lat: *d.Latitude, Lon: *d.Longitude}
		if c.Valid() {
			p.Position = &c
		}
	}
	return p
}

// FetchDetail loads the detail of one record as a patch for the cache.
// Concurrent calls for the same id share one request.
func (c *Client) FetchDetail(ctx context.Context, id int64) (record.Patch, error) {
	v, err, shared := c.detailGroup.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return c.fetchDetail(ctx, id)
	})
	if shared {
		c.metrics.IncrementSharedFetches()
	}
	if err != nil {
		return record.Patch{}, err
	}
	return v.(record.Patch), nil
}

func (c *Client) fetchDetail(ctx context.Context, id int64) (record.Patch, error) {
	url, err := c.resolve(endpoints.Detail, endpoints.Vars{ID: id})
	if err != nil {
		return record.Patch{}, err
	}

	r, err := c.send(ctx, metrics.OpDetail, url, func(ctx context.Context) (*http.Response, error) {
		return c.http.Get(ctx, url)
	})
	if err != nil {
		return record.Patch{}, err
	}
	if !r.ok() {
		return record.Patch{}, responseError(metrics.OpDetail, r)
	}

	var env detailEnvelope
	if err := decode(metrics.OpDetail, r, &env); err != nil {
		return record.Patch{}, err
	}
	if env.Status != statusOK || env.Record == nil {
		c.log.Warn("detail request rejected",
			logger.Int64("record_id", id),
			logger.String("status", env.Status),
			logger.String("msg", env.Msg))
		return record.Patch{}, responseError(metrics.OpDetail, r)
	}
	return env.Record.patch(id), nil
}
