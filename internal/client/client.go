package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout  = 15 * time.Second
	RequestIDHeader = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

// TokenSource yields the bearer token for the current session, or "" when
// there is none.
type TokenSource interface {
	Token(ctx context.Context) string
}

type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Client issues JSON requests against the game server. It never retries
// and never recovers errors; every failure is classified as an *Error.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
	tracer  trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger enables one log line per completed request.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, Cause: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{Kind: KindInvalidURL, Message: baseURL, Cause: fmt.Errorf("base url %q must be absolute http(s)", baseURL)}
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		tracer:  otel.Tracer("tictactoe-client/internal/client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request sends body (if non-nil) as JSON and decodes a 2xx response into
// out (if non-nil).
func (c *Client) Request(ctx context.Context, method, endpoint string, body map[string]any, out any) error {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.Start(req.Context(), method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	err = c.do(req, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Do is Request with a typed result.
func Do[T any](ctx context.Context, c *Client, method, endpoint string, body map[string]any) (T, error) {
	var out T
	if err := c.Request(ctx, method, endpoint, body, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body map[string]any) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, Cause: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	span := trace.SpanFromContext(req.Context())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logf(req, 0, start, err)
		return &Error{Kind: KindNetwork, Cause: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logf(req, resp.StatusCode, start, err)
		return &Error{Kind: KindInvalidResponse, StatusCode: resp.StatusCode, Cause: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		err = decodeResponse(data, out)
	case resp.StatusCode == http.StatusUnauthorized:
		err = &Error{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Message: serverMessage(data)}
	default:
		err = &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: serverMessage(data)}
	}
	c.logf(req, resp.StatusCode, start, err)
	return err
}

func (c *Client) logf(req *http.Request, status int, start time.Time, err error) {
	if c.logger == nil {
		return
	}
	if err != nil {
		c.logger.Printf("%s %s -> %d in %s (request_id=%s): %v",
			req.Method, req.URL.RequestURI(), status, time.Since(start).Round(time.Millisecond), req.Header.Get(RequestIDHeader), err)
		return
	}
	c.logger.Printf("%s %s -> %d in %s (request_id=%s)",
		req.Method, req.URL.RequestURI(), status, time.Since(start).Round(time.Millisecond), req.Header.Get(RequestIDHeader))
}

// serverMessage pulls the "error" (and "details") fields out of a JSON error
// body.
func serverMessage(data []byte) string {
	if len(data) > maxErrorBody {
		data = data[:maxErrorBody]
	}
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Details != "" && body.Error != "" {
		return body.Error + ": " + body.Details
	}
	return body.Error
}
