// Package backend forwards requests to the services behind the gateway.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

const maxResponseBytes = 10 << 20

// Mode selects how a successful 200 is reported to the caller.
type Mode int

const (
	// ModePassthrough relays the backend status unchanged.
	ModePassthrough Mode = iota
	// ModeCreate reports 200 as 201.
	ModeCreate
	// ModeAsync reports 200 as 202.
	ModeAsync
)

// Request describes one forwarded call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
	Mode   Mode
}

// Response is a backend reply reduced to what the gateway relays.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: malformed response: %s", model.ErrBadGateway, err.Error())
	}
	return nil
}

// Recorder observes backend calls.
type Recorder interface {
	ObserveBackendCall(backend, method, outcome string, d time.Duration)
}

// Client forwards requests to one backend.
type Client struct {
	name            string
	baseURL         string
	timeout         time.Duration
	httpClient      *http.Client
	collectionPaths map[string]struct{}
	recorder        Recorder
	logger          *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithCollectionPaths lists collection endpoints the backend serves only with
// a trailing slash.
func WithCollectionPaths(paths ...string) Option {
	return func(cl *Client) {
		for _, p := range paths {
			cl.collectionPaths[strings.TrimRight(p, "/")] = struct{}{}
		}
	}
}

// WithRecorder attaches call metrics.
func WithRecorder(r Recorder) Option {
	return func(cl *Client) { cl.recorder = r }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(name, baseURL string, timeout time.Duration, logger *logger.Logger, opts ...Option) *Client {
	c := &Client{
		name:            name,
		baseURL:         strings.TrimRight(baseURL, "/"),
		timeout:         timeout,
		httpClient:      &http.Client{},
		collectionPaths: make(map[string]struct{}),
		logger:          logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend name used in errors and metrics.
func (c *Client) Name() string {
	return c.name
}

// Forward sends req and maps the reply.
//
// Only If-None-Match is propagated from the inbound headers. 304 is returned
// as a response with headers and no body. 4xx and 5xx become *model.UpstreamError.
// Timeouts map to model.ErrGatewayTimeout and other transport failures to
// model.ErrBadGateway.
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.url(req.Path, req.Query)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if inm := req.Header.Get("If-None-Match"); inm != "" {
		httpReq.Header.Set("If-None-Match", inm)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(req.Method, start, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.transportError(req.Method, start, err)
	}
	c.observe(req.Method, strconv.Itoa(resp.StatusCode), start)

	header := relayHeaders(resp.Header)

	if resp.StatusCode == http.StatusNotModified {
		return &Response{StatusCode: http.StatusNotModified, Header: header}, nil
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("Backend client: service returned error",
			"backend", c.name,
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode)
		return nil, &model.UpstreamError{Service: c.name, StatusCode: resp.StatusCode, Body: data}
	}

	if len(data) > 0 && resp.StatusCode != http.StatusNoContent && !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s returned malformed body", model.ErrBadGateway, c.name)
	}

	status := resp.StatusCode
	if status == http.StatusOK {
		switch req.Mode {
		case ModeCreate:
			status = http.StatusCreated
		case ModeAsync:
			status = http.StatusAccepted
		}
	}

	return &Response{StatusCode: status, Header: header, Body: data}, nil
}

// Get is a convenience GET with no inbound headers.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Forward(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Header: http.Header{}})
}

// PostJSON marshals body and POSTs it.
func (c *Client) PostJSON(ctx context.Context, path string, body any, mode Mode) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", c.name, err)
	}
	return c.Forward(ctx, Request{Method: http.MethodPost, Path: path, Body: data, Header: http.Header{}, Mode: mode})
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if _, ok := c.collectionPaths[strings.TrimRight(path, "/")]; ok && !strings.HasSuffix(path, "/") {
		path += "/"
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) transportError(method string, start time.Time, err error) error {
	if isTimeout(err) {
		c.observe(method, "timeout", start)
		c.logger.Warn("Backend client: service timeout",
			"backend", c.name,
			"duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("%w: service %s timeout", model.ErrGatewayTimeout, c.name)
	}

	c.observe(method, "unavailable", start)
	c.logger.Error("Backend client: service unavailable",
		"backend", c.name,
		"error", err.Error())
	return fmt.Errorf("%w: service %s unavailable: %s", model.ErrBadGateway, c.name, err.Error())
}

func (c *Client) observe(method, outcome string, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveBackendCall(c.name, method, outcome, time.Since(start))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
