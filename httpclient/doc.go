// Package httpclient is the transport used by brokerkit: a configurable HTTP
// client with pluggable authentication, TLS, optional HTTP/2, retry, request
// hooks and streaming support.
//
// Hooks are the seam the access layer builds on. BeforeSend runs after a
// request is built and may block (the throttle waits there) or abort it;
// AfterReceive sees every response's headers, including 4xx/5xx, before the
// body is read.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 30 * time.Second,
//	    Auth:    httpclient.SourceAuth(credentials),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/accounts",
//	})
//
// # Streaming
//
// DoStream returns the response body unread; the caller owns it:
//
//	stream, err := client.DoStream(ctx, httpclient.Request{Method: http.MethodGet, Path: "/stream/quotes"})
//	defer stream.Close()
//
// The rest subpackage adds generic typed JSON helpers.
package httpclient
