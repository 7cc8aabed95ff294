package clockify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clockify-sync/clockify")

var dryRunBody = []byte(`{"dry_run": true}`)

// Response is a completed HTTP exchange. Non-2xx statuses are returned as-is.
type Response struct {
	StatusCode int
	Body       []byte
	DryRun     bool
}

func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

func (r *Response) Decode(v any) error {
	if r == nil {
		return errors.New("decode: nil response")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// Sender issues one logical API call.
type Sender interface {
	Send(ctx context.Context, method, path string, body any) (*Response, error)
}

type Options struct {
	BaseURL    string
	APIKey     string
	Delay      time.Duration
	MaxRetries int
	DryRun     bool
	Timeout    time.Duration

	HTTPClient *http.Client
	Logger     *logrus.Entry

	// Sleep waits between attempts; tests replace it to run instantly.
	Sleep func(ctx context.Context, d time.Duration) error

	RequestIDHeader string
}

func (o *Options) setDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	if o.RequestIDHeader == "" {
		o.RequestIDHeader = "X-Request-ID"
	}
}

// Transport is the throttled, retrying request layer in front of the Clockify API.
type Transport struct {
	baseURL *url.URL
	opts    Options
	metrics *transportMetrics
}

func NewTransport(opts Options) (*Transport, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(ErrInvalidURL, "%q", raw)
	}
	opts.setDefaults()
	return &Transport{
		baseURL: u,
		opts:    opts,
		metrics: getMetrics(),
	}, nil
}

func (t *Transport) DryRun() bool {
	return t.opts.DryRun
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Send performs one logical call. In dry-run mode mutating methods return a
// synthetic 200 without touching the network. A nil response always comes
// with a *ConnectionError.
func (t *Transport) Send(ctx context.Context, method, path string, body any) (*Response, error) {
	ctx, span := tracer.Start(ctx, "clockify."+method, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("clockify.path", path),
		attribute.Bool("clockify.dry_run", t.opts.DryRun),
	))
	defer span.End()

	if t.opts.DryRun && isMutating(method) {
		t.metrics.requestsTotal.WithLabelValues(method, "dry_run").Inc()
		return &Response{StatusCode: http.StatusOK, Body: dryRunBody, DryRun: true}, nil
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			span.RecordError(err)
			return nil, &ConnectionError{Method: method, Path: path, Err: errors.Wrap(err, "marshal request")}
		}
		payload = b
	}

	if err := t.opts.Sleep(ctx, t.opts.Delay); err != nil {
		return nil, &ConnectionError{Method: method, Path: path, Err: err}
	}

	log := t.opts.Logger.WithFields(logrus.Fields{"method": method, "path": path})
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < t.opts.MaxRetries; attempt++ {
		attempts++
		resp, err := t.do(ctx, method, path, payload)
		if err != nil {
			lastErr = err
			t.metrics.retriesTotal.WithLabelValues("connection").Inc()
			log.WithError(err).WithField("attempt", attempt+1).Warn("connection error")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			wait := backoff(attempt)
			t.metrics.retriesTotal.WithLabelValues("rate_limited").Inc()
			log.WithField("wait", wait).Warn("rate limited")
			if err := t.opts.Sleep(ctx, wait); err != nil {
				lastErr = err
				break
			}
			continue
		}
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return resp, nil
	}

	t.metrics.failedTotal.Inc()
	cerr := &ConnectionError{Method: method, Path: path, Attempts: attempts, Err: lastErr}
	span.RecordError(cerr)
	span.SetStatus(codes.Error, "no response")
	return nil, cerr
}

func (t *Transport) do(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.url(path), body)
	if err != nil {
		return nil, errors.Wrap(err, "http request")
	}
	req.Header.Set("X-Api-Key", t.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(t.opts.RequestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := t.opts.HTTPClient.Do(req)
	t.metrics.requestLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		t.metrics.requestsTotal.WithLabelValues(method, "error").Inc()
		return nil, errors.Wrap(err, "http do")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.requestsTotal.WithLabelValues(method, "error").Inc()
		return nil, errors.Wrap(err, "http read")
	}
	t.metrics.requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// url joins the base URL with a path that may carry its own query string.
func (t *Transport) url(path string) string {
	return strings.TrimRight(t.baseURL.String(), "/") + path
}
