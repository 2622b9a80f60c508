package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/net/http2"

	"github.com/kbukum/brokerkit/observability"
	"github.com/kbukum/brokerkit/resilience"
	"github.com/kbukum/brokerkit/version"
)

// Client is a configurable HTTP client with built-in auth, TLS, hooks and retry.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	config       Config
}

// New creates a new HTTP client with the given configuration.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		// Streams stay open indefinitely; the context handles cancellation.
		streamClient: &http.Client{Transport: transport},
		config:       cfg,
	}, nil
}

func newTransport(cfg Config) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	if cfg.HTTP2.Enabled {
		transport.TLSNextProto = nil
		h2, err := http2.ConfigureTransports(transport)
		if err != nil {
			return nil, fmt.Errorf("httpclient: configure http2: %w", err)
		}
		h2.ReadIdleTimeout = cfg.HTTP2.ReadIdleTimeout
		if cfg.HTTP2.PingTimeout > 0 {
			h2.PingTimeout = cfg.HTTP2.PingTimeout
		}
	}
	return transport, nil
}

// Do executes an HTTP request and returns the complete response.
// Non-2xx responses are returned together with a classified *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry != nil {
		return resilience.Retry(ctx, *c.config.Retry, func() (*Response, error) {
			return c.executeRequest(ctx, req)
		})
	}
	return c.executeRequest(ctx, req)
}

// DoStream executes an HTTP request and returns a streaming response.
// The caller must close the returned StreamResponse when done.
// Retry is not applied to streaming requests.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanStreamConnect,
		attribute.String(observability.AttrHTTPMethod, httpReq.Method),
		attribute.String(observability.AttrEndpoint, httpReq.URL.Path),
	)
	resp, err := c.send(ctx, c.streamClient, httpReq, c.authFor(req))
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, resp.StatusCode))

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		classErr := ClassifyStatusCode(resp.StatusCode, body)
		observability.EndSpan(span, classErr)
		return nil, classErr
	}
	observability.EndSpan(span, nil)

	return &StreamResponse{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       resp.Body,
		rawResp:    resp,
	}, nil
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *Client) Unwrap() *http.Client {
	return c.httpClient
}

// executeRequest builds, sends and fully reads a single attempt.
func (c *Client) executeRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest,
		attribute.String(observability.AttrHTTPMethod, httpReq.Method),
		attribute.String(observability.AttrEndpoint, httpReq.URL.Path),
	)
	start := time.Now()

	resp, err := c.send(ctx, c.httpClient, httpReq, c.authFor(req))
	if err != nil {
		c.config.Metrics.RecordRequest(ctx, httpReq.Method, "error", time.Since(start))
		observability.EndSpan(span, err)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		connErr := NewConnectionError(fmt.Errorf("read response body: %w", err))
		observability.EndSpan(span, connErr)
		return nil, connErr
	}

	c.config.Metrics.RecordRequest(ctx, httpReq.Method, statusClass(resp.StatusCode), time.Since(start))
	span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, resp.StatusCode))

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		observability.EndSpan(span, classErr)
		return result, classErr
	}
	observability.EndSpan(span, nil)
	return result, nil
}

// send runs the hooks and auth around one round trip. Hook and auth failures
// are returned as-is so callers can match their own error types.
func (c *Client) send(ctx context.Context, hc *http.Client, httpReq *http.Request, auth *AuthConfig) (*http.Response, error) {
	httpReq = httpReq.WithContext(ctx)

	if err := c.config.Hooks.beforeSend(ctx, httpReq); err != nil {
		return nil, err
	}
	if err := auth.apply(httpReq); err != nil {
		return nil, err
	}

	observability.InjectHeaders(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}

	c.config.Hooks.afterReceive(ctx, httpReq, resp)
	return resp, nil
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	ua := c.config.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}
	httpReq.Header.Set("User-Agent", ua)

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	return httpReq, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	case url.Values:
		return strings.NewReader(v.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// authFor returns the request-level auth override or the client default.
func (c *Client) authFor(req Request) *AuthConfig {
	if req.Auth != nil {
		return req.Auth
	}
	return c.config.Auth
}
