// Package resilience provides the admission and recovery primitives of the
// access layer.
//
//   - Throttle: per-endpoint FIFO admission driven by the server's
//     x-ratelimit-* response headers
//   - Retry: retries transient failures with exponential backoff
//   - Bulkhead: a non-blocking slot counter, used as the concurrent stream
//     ceiling
//
// The throttle is consulted before every request and updated after every
// response:
//
//	th := resilience.NewThrottle(resilience.DefaultThrottleConfig())
//
//	if err := th.Wait(ctx, "/v2/orders"); err != nil {
//	    return err // ctx cancelled while queued
//	}
//	resp, err := send(ctx, req)
//	th.Record("/v2/orders", resp.Header)
package resilience
