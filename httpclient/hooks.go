package httpclient

import (
	"context"
	"net/http"
)

// BeforeSendHook runs after the request is built and before it is sent.
// Returning an error aborts the request without touching the network.
type BeforeSendHook func(ctx context.Context, req *http.Request) error

// AfterReceiveHook runs once response headers arrive, for every status code.
// The body must not be consumed.
type AfterReceiveHook func(ctx context.Context, req *http.Request, resp *http.Response)

// Hooks groups request lifecycle callbacks. Hooks run in slice order.
type Hooks struct {
	BeforeSend   []BeforeSendHook
	AfterReceive []AfterReceiveHook
}

func (h Hooks) beforeSend(ctx context.Context, req *http.Request) error {
	for _, fn := range h.BeforeSend {
		if err := fn(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (h Hooks) afterReceive(ctx context.Context, req *http.Request, resp *http.Response) {
	for _, fn := range h.AfterReceive {
		fn(ctx, req, resp)
	}
}
