package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/kbukum/brokerkit/httpclient"
)

// Doer executes a single request. *httpclient.Client and the brokerkit
// client facade both satisfy it.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// New creates an HTTP client with JSON Content-Type and Accept headers applied
// to every request.
func New(cfg httpclient.Config) (*httpclient.Client, error) {
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	if _, ok := cfg.Headers["Content-Type"]; !ok {
		cfg.Headers["Content-Type"] = "application/json"
	}
	if _, ok := cfg.Headers["Accept"]; !ok {
		cfg.Headers["Accept"] = "application/json"
	}
	return httpclient.New(cfg)
}

// RequestOption configures a single REST request.
type RequestOption func(*httpclient.Request)

// WithQuery adds query parameters to the request.
func WithQuery(params map[string]string) RequestOption {
	return func(r *httpclient.Request) {
		if r.Query == nil {
			r.Query = make(map[string]string, len(params))
		}
		for k, v := range params {
			r.Query[k] = v
		}
	}
}

// WithHeader sets a single request header.
func WithHeader(key, value string) RequestOption {
	return func(r *httpclient.Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithAuth overrides authentication for the request.
func WithAuth(auth *httpclient.AuthConfig) RequestOption {
	return func(r *httpclient.Request) {
		r.Auth = auth
	}
}

// Response wraps a typed REST response.
type Response[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Data is the decoded response body.
	Data T
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](ctx context.Context, c Doer, path string, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](ctx context.Context, c Doer, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request with a JSON body and decodes the response into type T.
func Put[T any](ctx context.Context, c Doer, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request with a JSON body and decodes the response into type T.
func Patch[T any](ctx context.Context, c Doer, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the response into type T.
func Delete[T any](ctx context.Context, c Doer, path string, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodDelete, path, nil, opts...)
}

// Do executes a REST request and decodes the JSON response. On a classified
// HTTP error the body is still decoded when possible so callers can read the
// server's error payload.
func Do[T any](ctx context.Context, c Doer, method, path string, body any, opts ...RequestOption) (*Response[T], error) {
	req := httpclient.Request{
		Method: method,
		Path:   path,
		Body:   body,
	}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		if resp != nil {
			var data T
			if jsonErr := json.Unmarshal(resp.Body, &data); jsonErr == nil {
				return &Response[T]{
					StatusCode: resp.StatusCode,
					Headers:    resp.Headers,
					Data:       data,
				}, err
			}
		}
		return nil, err
	}

	var data T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return nil, fmt.Errorf("httpclient/rest: decode response: %w", err)
		}
	}

	return &Response[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Data:       data,
	}, nil
}
