// Package gateway implements the fetch collaborators against the ConnectPay
// gateway over HTTP.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/PayFlow/internal/flow"
	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTimeout bounds a single gateway round trip.
	DefaultTimeout = 30 * time.Second
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes = 4 << 20

	configurationPath  = "/configuration"
	accountDetailsPath = "/account/details"
	tracerName         = "github.com/BTreeMap/PayFlow/internal/gateway"
)

// Header names sent on every gateway request.
const (
	HeaderAPIKey          = "Api-Key"
	HeaderClientRequestID = "Client-Request-Id"
	HeaderTimestamp       = "Timestamp"
)

// ErrUnexpectedStatus is wrapped when the gateway answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected gateway status")

// Opts holds configuration options for the gateway Client.
type Opts struct {
	BaseURL    string       // overrides the environment base URL
	HTTPClient *http.Client // custom transport, mostly for tests
	Timeout    time.Duration

	TracerProvider trace.TracerProvider          // defaults to the global provider
	Propagator     propagation.TextMapPropagator // defaults to the global propagator
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithBaseURL sets a fixed base URL instead of the per-environment one.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithTracerProvider sets the provider gateway spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Opts) { o.TracerProvider = tp }
}

// WithPropagator sets the propagator that writes trace headers on requests.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *Opts) { o.Propagator = p }
}

// Client fetches screen configuration and account records from the gateway.
type Client struct {
	baseURL    string
	http       *http.Client
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

var (
	_ flow.ConfigurationFetcher = (*Client)(nil)
	_ flow.AccountDataFetcher   = (*Client)(nil)
)

// NewClient creates a gateway Client.
func NewClient(opts ...Option) *Client {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	prop := cfg.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	slog.Debug("gateway.NewClient: client created", "baseURL", cfg.BaseURL, "timeout", cfg.Timeout)
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       hc,
		tracer:     tp.Tracer(tracerName),
		propagator: prop,
	}
}

// BaseURL returns the base URL requests for creds are sent to.
func (c *Client) BaseURL(creds models.Credentials) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return creds.Environment.BaseURL()
}

type configurationRequest struct {
	CustomerID string `json:"fdCustomerId"`
	PageID     string `json:"pageId"`
}

type accountDetailsRequest struct {
	CustomerID string `json:"fdCustomerId"`
}

// FetchConfiguration retrieves the screen configuration for the session's page id.
func (c *Client) FetchConfiguration(ctx context.Context, creds models.Credentials) (*models.ConfigurationDocument, error) {
	body, err := c.post(ctx, "gateway.FetchConfiguration", configurationPath, creds,
		configurationRequest{CustomerID: creds.CustomerID, PageID: creds.ConfigID})
	if err != nil {
		return nil, err
	}
	var doc models.ConfigurationDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		slog.Error("gateway.FetchConfiguration: decode failed", "error", err)
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return &doc, nil
}

// FetchAccountData retrieves the raw prior account record. Decoding is left
// to the caller because the record shape varies between institutions.
func (c *Client) FetchAccountData(ctx context.Context, creds models.Credentials) ([]byte, error) {
	return c.post(ctx, "gateway.FetchAccountData", accountDetailsPath, creds,
		accountDetailsRequest{CustomerID: creds.CustomerID})
}

// post sends payload as JSON and returns the response body of a 2xx answer.
// Other statuses yield a *flow.FetchError carrying the decoded body, if any.
func (c *Client) post(ctx context.Context, op, path string, creds models.Credentials, payload any) ([]byte, error) {
	requestID := uuid.NewString()
	url := c.BaseURL(creds) + path

	ctx, span := c.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.method", http.MethodPost),
		attribute.String("http.url", url),
		attribute.String("payflow.request_id", requestID),
	))
	defer span.End()

	b, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, creds.APIKey)
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set(HeaderClientRequestID, requestID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(time.Now().UnixMilli(), 10))
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	slog.Debug(op+": sending request", "url", url, "requestID", requestID)
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		slog.Error(op+": request failed", "error", err, "requestID", requestID)
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, resp.Status)
		slog.Warn(op+": gateway rejected request", "status", resp.StatusCode, "requestID", requestID)
		fe := &flow.FetchError{Err: err}
		var result models.Result
		if len(body) > 0 && json.Unmarshal(body, &result) == nil {
			fe.Result = result
		}
		return nil, fe
	}
	slog.Debug(op+": response received", "status", resp.StatusCode, "bytes", len(body), "requestID", requestID)
	return body, nil
}
