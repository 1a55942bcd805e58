package trackerapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
	"github.com/tphakala/worktracker-go/internal/photo"
)

// UploadPhoto sends one photo as multipart form data. The comment is sent
// already prefixed with the capture date.
func (c *Client) UploadPhoto(ctx context.Context, up photo.Upload) error {
	u, err := c.resolve(endpoints.PhotoUpload, endpoints.Vars{ID: up.RecordID})
	if err != nil {
		return err
	}
	if up.Content == nil {
		return errors.PreconditionError("photo content is empty")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeUploadForm(mw, up); err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("operation", metrics.OpPhotoUpload).
			Build()
	}

	r, err := c.send(ctx, metrics.OpPhotoUpload, u, func(ctx context.Context) (*http.Response, error) {
		return c.http.Post(ctx, u, mw.FormDataContentType(), bytes.NewReader(buf.Bytes()))
	})
	if err != nil {
		return err
	}
	if !r.ok() || bodyStatus(r) != statusOK {
		return responseError(metrics.OpPhotoUpload, r)
	}
	return nil
}

func writeUploadForm(mw *multipart.Writer, up photo.Upload) error {
	if err := mw.WriteField("record_id", strconv.FormatInt(up.RecordID, 10)); err != nil {
		return err
	}
	name := filepath.Base(up.Filename)
	if up.Filename == "" {
		name = "photo.jpg"
	}
	part, err := mw.CreateFormFile("photo", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return err
	}
	if err := mw.WriteField("comment", up.FinalComment()); err != nil {
		return err
	}
	return mw.Close()
}
