// Package client is the composition root of brokerkit. It assembles the
// credential manager, the per-endpoint throttle, the HTTP transport and the
// stream multiplexer from one Config, and is what endpoint wrappers call.
//
// Request flow:
//
//  1. the throttle admits the call for its endpoint, queueing it FIFO when
//     the server's published window is exhausted;
//  2. the credential manager supplies a bearer token, refreshing it first if
//     it is missing or about to expire;
//  3. the response's X-Ratelimit-* headers replace the endpoint's window;
//  4. a 429 closes the window and the request is retried behind it, so
//     callers never see it; a 401 invalidates the token and the request is
//     retried once.
//
// Basic usage:
//
//	var cfg client.Config
//	if err := config.Load("brokerkit", &cfg); err != nil {
//	    return err
//	}
//	c, err := client.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer c.Close(ctx)
//
//	resp, err := client.Get[Account](ctx, c, "/v3/brokerage/accounts")
//
//	l, err := c.Stream(ctx, "/v3/marketdata/stream/quotes", map[string]string{"symbols": "MSFT"})
package client
