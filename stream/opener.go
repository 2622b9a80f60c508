package stream

import (
	"context"
	"io"
	"net/http"

	"github.com/kbukum/brokerkit/httpclient"
)

// Opener dials the transport for one logical stream. The returned body is
// read until EOF or error and closed on teardown.
type Opener interface {
	Open(ctx context.Context, endpoint string, params map[string]string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, endpoint string, params map[string]string) (io.ReadCloser, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, endpoint string, params map[string]string) (io.ReadCloser, error) {
	return f(ctx, endpoint, params)
}

// HTTPOpener opens streams with a GET through an httpclient.Client, so the
// client's hooks, auth and tracing apply to stream connections too.
type HTTPOpener struct {
	client *httpclient.Client
}

// NewHTTPOpener creates an opener over client.
func NewHTTPOpener(client *httpclient.Client) *HTTPOpener {
	return &HTTPOpener{client: client}
}

// Open implements Opener.
func (o *HTTPOpener) Open(ctx context.Context, endpoint string, params map[string]string) (io.ReadCloser, error) {
	resp, err := o.client.DoStream(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    endpoint,
		Query:   params,
		Headers: map[string]string{"Accept": "application/x-ndjson"},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
