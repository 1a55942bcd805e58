package trackerapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/worktracker-go/internal/assessment"
	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/geo"
	"github.com/tphakala/worktracker-go/internal/httpclient"
	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
	"github.com/tphakala/worktracker-go/internal/photo"
	"github.com/tphakala/worktracker-go/internal/record"
)

const testBase = "https://trees.example"

func testTemplates() map[endpoints.Kind]string {
	return map[endpoints.Kind]string{
		endpoints.Detail:        "/tracker/api/records/{id}/",
		endpoints.Assessment:    "/tracker/api/records/{id}/assessment/",
		endpoints.Interventions: "/tracker/api/records/0/interventions/",
		endpoints.SetLocation:   "/tracker/api/records/{id}/location/",
		endpoints.AddToProject:  "/tracker/api/projects/{project}/records/{id}/",
		endpoints.PhotoUpload:   "/tracker/api/photos/",
	}
}

// newTestClient returns a client whose transport is an isolated httpmock transport.
func newTestClient(t *testing.T, templates map[endpoints.Kind]string) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	eps, err := endpoints.New(testBase, templates)
	require.NoError(t, err)
	hc := httpclient.New(&httpclient.Config{Transport: mt, DefaultTimeout: 5 * time.Second})
	m, err := metrics.NewTrackerAPIMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	c := New(Config{HTTP: hc, Endpoints: eps, Metrics: m})
	t.Cleanup(c.Close)
	return c, mt
}

func jsonResponder(t *testing.T, status int, body string) httpmock.Responder {
	t.Helper()
	require.True(t, json.Valid([]byte(body)), "fixture must be valid JSON")
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		resp.Request = req
		return resp, nil
	}
}

func TestFetchDetail(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	var gotRequestID string
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/42/",
		func(req *http.Request) (*http.Response, error) {
			gotRequestID = req.Header.Get(httpclient.RequestIDHeader)
			return jsonResponder(t, http.StatusOK, `{
				"status": "ok",
				"record": {
					"id": 42,
					"title": "Dub u kapličky",
					"taxon": "Dub letní",
					"latitude": 49.9,
					"longitude": 18.35,
					"has_assessment": true,
					"has_photos": false,
					"photos": [],
					"can_edit": true,
					"location_url": "/tracker/api/records/42/location/"
				}
			}`)(req)
		})

	p, err := c.FetchDetail(context.Background(), 42)
	require.NoError(t, err)

	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, int64(42), p.ID)
	require.NotNil(t, p.Title)
	assert.Equal(t, "Dub u kapličky", *p.Title)
	require.NotNil(t, p.Taxon)
	assert.Equal(t, "Dub letní", *p.Taxon)
	require.NotNil(t, p.Position)
	assert.InDelta(t, 49.9, p.Position.Lat, 1e-9)
	assert.InDelta(t, 18.35, p.Position.Lon, 1e-9)
	require.NotNil(t, p.HasPhotos)
	assert.False(t, *p.HasPhotos)
	assert.NotNil(t, p.Photos, "an empty photo list replaces cached photos")
	assert.Empty(t, p.Photos)
	assert.Nil(t, p.InProject, "absent keys stay unset")
	require.NotNil(t, p.CanEdit)
	assert.True(t, *p.CanEdit)
}

func TestFetchDetailPartialRecordLeavesCacheFields(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/7/",
		jsonResponder(t, http.StatusOK, `{"status":"ok","record":{"id":7,"taxon":"Lípa srdčitá"}}`))

	p, err := c.FetchDetail(context.Background(), 7)
	require.NoError(t, err)

	cache := record.NewCache()
	cache.Merge(record.Patch{ID: 7, Title: record.Ptr("Strom 7")})
	merged := cache.Merge(p)
	assert.Equal(t, "Strom 7", merged.Title)
	assert.Equal(t, "Lípa srdčitá", merged.Taxon)
	assert.Nil(t, merged.Position)
}

func TestFetchDetailRejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"status not ok", http.StatusOK, `{"status":"error","msg":"Záznam neexistuje."}`, "Záznam neexistuje."},
		{"missing record", http.StatusOK, `{"status":"ok"}`, ""},
		{"http error with msg", http.StatusForbidden, `{"msg":"Nemáte oprávnění."}`, "Nemáte oprávnění."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newTestClient(t, testTemplates())
			mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/5/", jsonResponder(t, tt.status, tt.body))

			_, err := c.FetchDetail(context.Background(), 5)
			require.Error(t, err)

			var re *ResponseError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.status, re.StatusCode)

			msg, ok := Message(err)
			assert.Equal(t, tt.wantMsg != "", ok)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestFetchDetailHTMLErrorPage(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/5/",
		httpmock.NewStringResponder(http.StatusInternalServerError, "<html><body><h1>Server Error (500)</h1></body></html>"))

	_, err := c.FetchDetail(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
	_, ok := Message(err)
	assert.False(t, ok)
}

func TestFetchDetailMalformedJSON(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/5/",
		httpmock.NewStringResponder(http.StatusOK, `{"status":`))

	_, err := c.FetchDetail(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestTransportErrorCarriesNetworkContext(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/5/",
		httpmock.NewErrorResponder(errors.NewStd("connection refused")))

	_, err := c.FetchDetail(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	ctx := ee.GetContext()
	assert.Equal(t, "https-endpoint", ctx["url_category"])
	assert.InDelta(t, 5.0, ctx["timeout_seconds"], 1e-9)
	assert.Equal(t, metrics.OpDetail, ctx["operation"])
}

func TestFetchDetailUnavailableSendsNothing(t *testing.T) {
	c, mt := newTestClient(t, map[endpoints.Kind]string{})

	_, err := c.FetchDetail(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
	assert.Zero(t, mt.GetTotalCallCount())
}

func TestFetchDetailSharesInFlightRequest(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	reply := jsonResponder(t, http.StatusOK, `{"status":"ok","record":{"id":9,"title":"Jasan"}}`)
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/9/",
		func(req *http.Request) (*http.Response, error) {
			once.Do(func() { close(entered) })
			<-release
			return reply(req)
		})

	var wg sync.WaitGroup
	results := make([]record.Patch, 2)
	errs := make([]error, 2)
	wg.Go(func() { results[0], errs[0] = c.FetchDetail(context.Background(), 9) })
	<-entered
	wg.Go(func() { results[1], errs[1] = c.FetchDetail(context.Background(), 9) })
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, "Jasan", *results[1].Title)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestListInterventions(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/42/interventions/",
		jsonResponder(t, http.StatusOK, `{
			"status": "ok",
			"interventions": [
				{
					"id": 7, "code": "RZ", "name": "Redukční řez",
					"status": "Navrženo", "status_code": "proposed",
					"created_at": "2026-10-01T08:30:00.123456+02:00",
					"handed_over_for_check_at": null,
					"transition_url": "/tracker/api/interventions/7/transition/",
					"allowed_actions": ["mark_done", "teleport"]
				},
				{
					"id": 3, "code": "KAC", "name": "Kácení",
					"status": "completed",
					"created_at": "2026-09-01",
					"handed_over_for_check_at": "2026-09-20T10:00:00Z"
				}
			]
		}`))

	items, err := c.ListInterventions(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, intervention.StatusProposed, first.Status)
	assert.Equal(t, "Navrženo", first.StatusLabel)
	assert.True(t, first.AllowedKnown)
	assert.True(t, first.Offers(intervention.ActionMarkDone))
	assert.False(t, first.Offers(intervention.ActionConfirm))
	assert.Equal(t, testBase+"/tracker/api/interventions/7/transition/", first.TransitionURL)
	assert.Equal(t, 2026, first.CreatedAt.Year())
	assert.Nil(t, first.HandedOverAt)

	second := items[1]
	assert.Equal(t, intervention.StatusCompleted, second.Status)
	assert.Empty(t, second.StatusLabel)
	assert.False(t, second.AllowedKnown, "missing allowed_actions is not an empty set")
	require.NotNil(t, second.HandedOverAt)
	assert.Equal(t, 20, second.HandedOverAt.Day())
	assert.Empty(t, second.TransitionURL)
}

func TestListInterventionsNotOK(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/42/interventions/",
		jsonResponder(t, http.StatusOK, `{"status":"error"}`))

	items, err := c.ListInterventions(context.Background(), 42)
	require.Error(t, err)
	assert.Nil(t, items)
}

func TestCreateIntervention(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	var form map[string]string
	mt.RegisterResponder(http.MethodPost, testBase+"/tracker/api/records/42/interventions/",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			form = map[string]string{}
			for k := range req.PostForm {
				form[k] = req.PostForm.Get(k)
			}
			return jsonResponder(t, http.StatusOK, `{
				"status": "ok",
				"intervention": {"id": 8, "code": "KAC", "name": "Kácení", "status_code": "proposed", "status": "Navrženo", "allowed_actions": []}
			}`)(req)
		})

	item, err := c.CreateIntervention(context.Background(), 42, intervention.CreateFields{
		Code:  "KAC",
		Note:  "Suchý strom",
		Extra: map[string]string{"urgency": "high", "tree_id": "999"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"tree_id":           "42",
		"intervention_type": "KAC",
		"note":              "Suchý strom",
		"urgency":           "high",
	}, form)
	assert.Equal(t, int64(8), item.ID)
	assert.True(t, item.AllowedKnown)
	assert.Empty(t, item.Allowed.Actions())
}

func TestCreateInterventionValidationErrors(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodPost, testBase+"/tracker/api/records/42/interventions/",
		jsonResponder(t, http.StatusBadRequest, `{
			"status": "error",
			"errors": {
				"note": [{"message": "Poznámka je povinná.", "code": "required"}],
				"intervention_type": [{"message": "Vyberte typ zásahu."}, "Neplatná volba."]
			}
		}`))

	_, err := c.CreateIntervention(context.Background(), 42, intervention.CreateFields{Code: "X"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	msg, ok := Message(err)
	require.True(t, ok)
	assert.Equal(t, "Vyberte typ zásahu. Neplatná volba. Poznámka je povinná.", msg)
}

func TestTransitionIntervention(t *testing.T) {
	const url = testBase + "/tracker/api/interventions/7/transition/"

	t.Run("ok", func(t *testing.T) {
		c, mt := newTestClient(t, testTemplates())
		var got http.Header
		var values map[string]string
		mt.RegisterResponder(http.MethodPost, url, func(req *http.Request) (*http.Response, error) {
			got = req.Header.Clone()
			require.NoError(t, req.ParseForm())
			values = map[string]string{
				"id":     req.PostForm.Get("id"),
				"action": req.PostForm.Get("action"),
				"target": req.PostForm.Get("target"),
				"note":   req.PostForm.Get("note"),
			}
			return jsonResponder(t, http.StatusOK, `{"status":"ok"}`)(req)
		})

		err := c.TransitionIntervention(context.Background(), url, intervention.TransitionRequest{
			InterventionID: 7,
			Action:         intervention.ActionReturn,
			Target:         intervention.StatusProposed,
			Note:           "Chybí foto",
		})
		require.NoError(t, err)
		assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
		assert.Equal(t, map[string]string{"id": "7", "action": "return", "target": "proposed", "note": "Chybí foto"}, values)
	})

	t.Run("body not ok", func(t *testing.T) {
		c, mt := newTestClient(t, testTemplates())
		mt.RegisterResponder(http.MethodPost, url, jsonResponder(t, http.StatusOK, `{"status":"error","msg":"Akce není povolena."}`))

		err := c.TransitionIntervention(context.Background(), url, intervention.TransitionRequest{
			InterventionID: 7, Action: intervention.ActionConfirm, Target: intervention.StatusCompleted,
		})
		require.Error(t, err)
		msg, _ := Message(err)
		assert.Equal(t, "Akce není povolena.", msg)
	})

	t.Run("server error", func(t *testing.T) {
		c, mt := newTestClient(t, testTemplates())
		mt.RegisterResponder(http.MethodPost, url, jsonResponder(t, http.StatusConflict, `{"status":"ok"}`))

		err := c.TransitionIntervention(context.Background(), url, intervention.TransitionRequest{InterventionID: 7})
		require.Error(t, err)
	})
}

func TestAssessmentRoundTrip(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	const url = testBase + "/tracker/api/records/42/assessment/"
	mt.RegisterResponder(http.MethodGet, url, jsonResponder(t, http.StatusOK,
		`{"dbh_cm": 54.5, "height_m": null, "vitality": 2, "perspective": "z"}`))

	var posted map[string]any
	mt.RegisterResponder(http.MethodPost, url, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &posted))
		return jsonResponder(t, http.StatusOK, `{"status":"ok"}`)(req)
	})

	a, err := c.GetAssessment(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, a.DBHcm)
	assert.InDelta(t, 54.5, *a.DBHcm, 1e-9)
	assert.Nil(t, a.HeightM)
	require.NotNil(t, a.Vitality)
	assert.Equal(t, 2, *a.Vitality)
	assert.Nil(t, a.Perspective, "unknown perspective classes are dropped")

	a.HeightM = nil
	require.NoError(t, c.SaveAssessment(context.Background(), 42, a))
	require.Contains(t, posted, "height_m")
	assert.Nil(t, posted["height_m"], "unset fields are sent as null")
	assert.InDelta(t, 54.5, posted["dbh_cm"], 1e-9)
}

func TestSaveAssessmentFailure(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodPost, testBase+"/tracker/api/records/42/assessment/",
		jsonResponder(t, http.StatusBadRequest, `{"errors":{"vitality":["Hodnota mimo rozsah."]}}`))

	err := c.SaveAssessment(context.Background(), 42, assessment.Default())
	require.Error(t, err)
	msg, ok := Message(err)
	require.True(t, ok)
	assert.Equal(t, "Hodnota mimo rozsah.", msg)
}

func TestSetLocation(t *testing.T) {
	const url = testBase + "/tracker/api/records/42/location/"

	t.Run("stored coordinate", func(t *testing.T) {
		c, mt := newTestClient(t, testTemplates())
		var sent geo.Coordinate
		mt.RegisterResponder(http.MethodPost, url, func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
			return jsonResponder(t, http.StatusOK, `{"latitude": 49.90001, "longitude": 18.35002}`)(req)
		})

		got, err := c.SetLocation(context.Background(), url, geo.Coordinate{Lat: 49.9, Lon: 18.35})
		require.NoError(t, err)
		assert.InDelta(t, 49.9, sent.Lat, 1e-9)
		assert.InDelta(t, 18.35, sent.Lon, 1e-9)
		assert.InDelta(t, 49.90001, got.Lat, 1e-9)
		assert.InDelta(t, 18.35002, got.Lon, 1e-9)
	})

	t.Run("error body", func(t *testing.T) {
		c, mt := newTestClient(t, testTemplates())
		mt.RegisterResponder(http.MethodPost, url, jsonResponder(t, http.StatusOK, `{"error":"Mimo katastr."}`))

		_, err := c.SetLocation(context.Background(), url, geo.Coordinate{Lat: 49.9, Lon: 18.35})
		require.Error(t, err)
		msg, _ := Message(err)
		assert.Equal(t, "Mimo katastr.", msg)
	})

	t.Run("no url", func(t *testing.T) {
		c, _ := newTestClient(t, testTemplates())
		_, err := c.SetLocation(context.Background(), "", geo.Coordinate{})
		assert.True(t, errors.IsUnavailable(err))
	})
}

func TestAddToProject(t *testing.T) {
	const url = testBase + "/tracker/api/projects/3/records/42/"

	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodPost, url, jsonResponder(t, http.StatusOK, `{"ok": true}`))
	require.NoError(t, c.AddToProject(context.Background(), 3, 42))

	mt.RegisterResponder(http.MethodPost, url, jsonResponder(t, http.StatusOK, `{"ok": false, "error": "Záznam už v projektu je."}`))
	err := c.AddToProject(context.Background(), 3, 42)
	require.Error(t, err)
	msg, _ := Message(err)
	assert.Equal(t, "Záznam už v projektu je.", msg)
}

func TestUploadPhoto(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	var fields map[string]string
	var fileName, fileContent string
	mt.RegisterResponder(http.MethodPost, testBase+"/tracker/api/photos/",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			fields = map[string]string{
				"record_id": req.FormValue("record_id"),
				"comment":   req.FormValue("comment"),
			}
			f, hdr, err := req.FormFile("photo")
			require.NoError(t, err)
			defer f.Close()
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			fileName, fileContent = hdr.Filename, string(data)
			return jsonResponder(t, http.StatusOK, `{"status":"ok"}`)(req)
		})

	err := c.UploadPhoto(context.Background(), photo.Upload{
		RecordID: 42,
		Filename: "/tmp/IMG_0001.jpg",
		Content:  strings.NewReader("jpegdata"),
		Comment:  "kmen",
		TakenAt:  time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "42", fields["record_id"])
	assert.Equal(t, "16. 10. 2026 – kmen", fields["comment"])
	assert.Equal(t, "IMG_0001.jpg", fileName)
	assert.Equal(t, "jpegdata", fileContent)
}

func TestUploadPhotoRejected(t *testing.T) {
	c, mt := newTestClient(t, testTemplates())
	mt.RegisterResponder(http.MethodPost, testBase+"/tracker/api/photos/",
		jsonResponder(t, http.StatusOK, `{"status":"error","msg":"Soubor je příliš velký."}`))

	err := c.UploadPhoto(context.Background(), photo.Upload{RecordID: 42, Content: strings.NewReader("x")})
	require.Error(t, err)
	msg, _ := Message(err)
	assert.Equal(t, "Soubor je příliš velký.", msg)
}

func TestRequestsAreCounted(t *testing.T) {
	mt := httpmock.NewMockTransport()
	eps, err := endpoints.New(testBase, testTemplates())
	require.NoError(t, err)
	m, err := metrics.NewTrackerAPIMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	c := New(Config{
		HTTP:      httpclient.New(&httpclient.Config{Transport: mt}),
		Endpoints: eps,
		RateLimit: 1000,
		Burst:     1,
		Metrics:   m,
	})
	mt.RegisterResponder(http.MethodGet, testBase+"/tracker/api/records/1/",
		jsonResponder(t, http.StatusOK, `{"status":"ok","record":{"id":1}}`))

	for range 3 {
		_, err := c.FetchDetail(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(m, "worktracker_api_requests_total"))
	assert.Equal(t, 3, mt.GetTotalCallCount())
}

func TestPreview(t *testing.T) {
	got := preview([]byte("<html><body><h1>Forbidden</h1>\n\n<p>CSRF   verification failed.</p></body></html>"))
	assert.Equal(t, "Forbidden CSRF verification failed.", got)

	long := preview([]byte(strings.Repeat("a ", 300)))
	assert.LessOrEqual(t, len([]rune(long)), previewLen+1)
	assert.True(t, strings.HasSuffix(long, "…"))
}
