// Package trackerapi is the client for the tracker server's JSON endpoints:
// record detail, assessment, interventions, location, project membership and
// photo upload. Every method is a single request without retries.
package trackerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tphakala/worktracker-go/internal/conf"
	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/errors"
	"github.com/tphakala/worktracker-go/internal/httpclient"
	"github.com/tphakala/worktracker-go/internal/logger"
	"github.com/tphakala/worktracker-go/internal/observability/metrics"
)

const (
	componentName = "trackerapi"

	// maxBodySize caps how much of a response is read
	maxBodySize = 4 << 20
	// previewLen bounds HTML previews in logs
	previewLen = 200

	statusOK = "ok"

	// the server answers JSON instead of redirects when this is set
	requestedWithHeader = "X-Requested-With"
)

// Client talks to the tracker server.
type Client struct {
	http      *httpclient.Client
	endpoints *endpoints.Set
	limiter   *rate.Limiter
	metrics   *metrics.TrackerAPIMetrics
	log       logger.Logger

	detailGroup singleflight.Group
}

// Config wires a Client. Only HTTP and Endpoints are required.
type Config struct {
	HTTP      *httpclient.Client
	Endpoints *endpoints.Set
	// RateLimit is requests per second; zero disables the limiter
	RateLimit float64
	Burst     int
	Metrics   *metrics.TrackerAPIMetrics
	Logger    logger.Logger
}

// New returns a client for cfg.
func New(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	c := &Client{
		http:      cfg.HTTP,
		endpoints: cfg.Endpoints,
		metrics:   cfg.Metrics,
		log:       log.Module(componentName),
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// NewFromSettings builds the HTTP client, endpoint set and API client from
// settings. transport may be nil for the default tuned transport.
func NewFromSettings(settings *conf.Settings, transport http.RoundTripper, m *metrics.TrackerAPIMetrics, log logger.Logger) (*Client, error) {
	eps, err := settings.EndpointSet()
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	headers := map[string]string{requestedWithHeader: "XMLHttpRequest"}
	for k, v := range settings.HTTP.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	hc := httpclient.New(&httpclient.Config{
		Transport:      transport,
		DefaultTimeout: settings.HTTP.Timeout,
		UserAgent:      settings.HTTP.UserAgent,
		Headers:        headers,
	})
	return New(Config{
		HTTP:      hc,
		Endpoints: eps,
		RateLimit: settings.HTTP.RateLimit,
		Burst:     settings.HTTP.Burst,
		Metrics:   m,
		Logger:    log,
	}), nil
}

// Endpoints returns the endpoint set the client resolves against.
func (c *Client) Endpoints() *endpoints.Set {
	return c.endpoints
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// resolve returns the URL for kind or the unavailable error.
func (c *Client) resolve(kind endpoints.Kind, vars endpoints.Vars) (string, error) {
	url, ok := c.endpoints.Resolve(kind, vars)
	if !ok {
		return "", errors.Unavailable(componentName, string(kind))
	}
	return url, nil
}

// response is a fully read reply.
type response struct {
	status      int
	contentType string
	body        []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) isJSON() bool {
	mt, _, err := mime.ParseMediaType(r.contentType)
	if err != nil {
		return len(r.body) > 0 && (r.body[0] == '{' || r.body[0] == '[')
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// send waits for the limiter, runs the request and reads the body. A
// returned error is always a transport failure; HTTP status handling is left
// to the caller.
func (c *Client) send(ctx context.Context, op, url string, do func(context.Context) (*http.Response, error)) (*response, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryNetwork).
				Context("operation", op).
				Context("stage", "rate_limiter_wait").
				Build()
		}
		c.metrics.ObserveRateLimitWait(time.Since(waitStart))
	}

	start := time.Now()
	resp, err := do(ctx)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, time.Since(start))
		category := errors.CategoryNetwork
		switch {
		case errors.Is(err, context.Canceled):
			category = errors.CategoryCancellation
		case errors.Is(err, context.DeadlineExceeded):
			category = errors.CategoryTimeout
		}
		return nil, errors.New(err).
			Component(componentName).
			Category(category).
			NetworkContext(url, c.http.Timeout()).
			Timing(op, time.Since(start)).
			Build()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.ObserveRequest(op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("operation", op).
			Context("status_code", resp.StatusCode).
			Build()
	}

	r := &response{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type"), body: body}
	var requestID string
	if resp.Request != nil {
		requestID = resp.Request.Header.Get(httpclient.RequestIDHeader)
	}
	c.log.Debug("tracker request finished",
		logger.String("operation", op),
		logger.Int("status", r.status),
		logger.String("request_id", requestID),
		logger.Duration("elapsed", time.Since(start)))

	if !r.isJSON() && len(body) > 0 {
		c.log.Warn("tracker returned a non-JSON body",
			logger.String("operation", op),
			logger.Int("status", r.status),
			logger.String("content_type", r.contentType),
			logger.String("preview", preview(body)))
	}
	return r, nil
}

// preview renders an HTML or plain body as one short line for logs.
func preview(body []byte) string {
	text := strings.Join(strings.Fields(html2text.HTML2Text(string(body))), " ")
	if r := []rune(text); len(r) > previewLen {
		return string(r[:previewLen]) + "…"
	}
	return text
}

// decode unmarshals a JSON body or returns a parse error.
func decode(op string, r *response, v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return errors.New(fmt.Errorf("decoding %s response: %w", op, err)).
			Component(componentName).
			Category(errors.CategoryFileParsing).
			Context("operation", op).
			Context("status_code", r.status).
			Build()
	}
	return nil
}
