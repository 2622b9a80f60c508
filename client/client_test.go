package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/brokerkit/config"
	"github.com/kbukum/brokerkit/credential"
	apperrors "github.com/kbukum/brokerkit/errors"
	"github.com/kbukum/brokerkit/httpclient"
	"github.com/kbukum/brokerkit/logger"
	"github.com/kbukum/brokerkit/resilience"
	"github.com/kbukum/brokerkit/stream"
	"github.com/kbukum/brokerkit/testutil"
)

type account struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func baseConfig(baseURL string) Config {
	return Config{
		ServiceConfig: config.ServiceConfig{
			Name:        "brokerkit-test",
			Environment: "sandbox",
			Logging:     logger.Config{Level: "disabled"},
		},
		HTTP: httpclient.Config{BaseURL: baseURL},
		Auth: credential.Config{
			TokenURL:     baseURL + "/oauth/token",
			ClientID:     "client",
			ClientSecret: "secret",
			RefreshToken: "R1",
			Retry:        resilience.RetryConfig{MaxAttempts: 1},
		},
		Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	}
}

func newTestClient(t *testing.T, cfg Config, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	c, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

// authRecorder records the Authorization header of every request.
type authRecorder struct {
	mu      sync.Mutex
	headers []string
}

func (a *authRecorder) record(r *http.Request) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.headers = append(a.headers, r.Header.Get("Authorization"))
	return len(a.headers)
}

func (a *authRecorder) seen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.headers...)
}

func TestClient_AttachesRefreshedBearer(t *testing.T) {
	srv := testutil.NewServer()
	tokens := testutil.NewTokenEndpoint(testutil.OK("A1", "R2", 3600))
	srv.Handle("/oauth/token", tokens)
	rec := &authRecorder{}
	srv.HandleFunc("/v1/accounts/42", func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		_, _ = w.Write([]byte(`{"id":"42","status":"active"}`))
	})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	for i := 0; i < 2; i++ {
		resp, err := Get[account](context.Background(), c, "/v1/accounts/42")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if resp.Data.ID != "42" || resp.Data.Status != "active" {
			t.Errorf("unexpected body %+v", resp.Data)
		}
	}

	for _, h := range rec.seen() {
		if h != "Bearer A1" {
			t.Errorf("expected Bearer A1, got %q", h)
		}
	}
	if tokens.Hits() != 1 {
		t.Errorf("expected one refresh for both requests, got %d", tokens.Hits())
	}
	if c.RefreshToken() != "R2" {
		t.Errorf("expected rotated refresh token R2, got %q", c.RefreshToken())
	}
}

func TestClient_ConcurrentRequestsShareRefresh(t *testing.T) {
	srv := testutil.NewServer()
	tokens := testutil.NewTokenEndpoint(testutil.OK("A1", "R2", 3600))
	tokens.SetDelay(50 * time.Millisecond)
	srv.Handle("/oauth/token", tokens)
	srv.JSON("/v1/positions", http.StatusOK, `[]`, 0, -1, time.Time{})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Get[[]account](context.Background(), c, "/v1/positions"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("request failed: %v", err)
	}
	if tokens.Hits() != 1 {
		t.Errorf("expected exactly one refresh, got %d", tokens.Hits())
	}
}

func TestClient_UnauthorizedRetriedOnce(t *testing.T) {
	srv := testutil.NewServer()
	tokens := testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600))
	srv.Handle("/oauth/token", tokens)
	rec := &authRecorder{}
	srv.HandleFunc("/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		if rec.record(r) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"o-1"}`))
	})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()), WithCredentialOptions(credential.WithCredential(credential.Credential{
		AccessToken:  "A0",
		RefreshToken: "R1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})))

	resp, err := Get[account](context.Background(), c, "/v1/orders")
	if err != nil {
		t.Fatalf("expected retry with fresh token to succeed, got %v", err)
	}
	if resp.Data.ID != "o-1" {
		t.Errorf("unexpected body %+v", resp.Data)
	}

	seen := rec.seen()
	if len(seen) != 2 || seen[0] != "Bearer A0" || seen[1] != "Bearer A1" {
		t.Errorf("expected A0 then A1, got %v", seen)
	}
}

func TestClient_UnauthorizedTwice(t *testing.T) {
	srv := testutil.NewServer()
	tokens := testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600))
	srv.Handle("/oauth/token", tokens)
	srv.JSON("/v1/orders", http.StatusUnauthorized, `{"message":"invalid token"}`, 0, -1, time.Time{})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	_, err := c.Do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/v1/orders"})
	if !apperrors.HasCode(err, apperrors.ErrCodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if n := srv.Hits("/v1/orders"); n != 2 {
		t.Errorf("expected exactly one retry, got %d requests", n)
	}
}

func TestClient_NoCredentialFailsFast(t *testing.T) {
	srv := testutil.NewServer()
	srv.JSON("/v1/accounts", http.StatusOK, `[]`, 0, -1, time.Time{})
	testutil.T(t).Setup(srv)

	cfg := baseConfig(srv.BaseURL())
	cfg.Auth.RefreshToken = ""
	c := newTestClient(t, cfg)

	_, err := c.Do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/v1/accounts"})
	if !errors.Is(err, apperrors.ErrNoCredential) {
		t.Fatalf("expected NO_CREDENTIAL, got %v", err)
	}
	if srv.Hits("/v1/accounts") != 0 {
		t.Error("request without a credential must not reach the server")
	}
}

func TestClient_RefreshRejectedNotRetried(t *testing.T) {
	srv := testutil.NewServer()
	tokens := testutil.NewTokenEndpoint(testutil.Rejected(http.StatusBadRequest, "invalid_grant"))
	srv.Handle("/oauth/token", tokens)
	srv.JSON("/v1/accounts", http.StatusOK, `[]`, 0, -1, time.Time{})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	_, err := c.Do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/v1/accounts"})
	if !apperrors.IsRefreshRejected(err) {
		t.Fatalf("expected rejected refresh, got %v", err)
	}
	if tokens.Hits() != 1 {
		t.Errorf("rejected refresh must not be retried, got %d", tokens.Hits())
	}
}

func TestClient_RateLimitAbsorbed(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	var mu sync.Mutex
	calls := 0
	srv.HandleFunc("/v1/quotes", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"q"}`))
	})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	resp, err := Get[account](context.Background(), c, "/v1/quotes")
	if err != nil {
		t.Fatalf("429 should be absorbed, got %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if srv.Hits("/v1/quotes") != 2 {
		t.Errorf("expected one retry, got %d requests", srv.Hits("/v1/quotes"))
	}
}

func TestClient_RecordsRateLimitHeaders(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	reset := time.Now().Add(time.Minute).Truncate(time.Second)
	srv.JSON("/v1/quotes", http.StatusOK, `{}`, 120, 119, reset)
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	if _, err := c.Do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/v1/quotes"}); err != nil {
		t.Fatalf("do: %v", err)
	}

	w, ok := c.Throttle().Window("/v1/quotes")
	if !ok {
		t.Fatal("expected a window for /v1/quotes")
	}
	if w.Limit != 120 || w.Remaining != 119 || !w.ResetAt.Equal(reset) {
		t.Errorf("unexpected window %+v", w)
	}
	if _, ok := c.Throttle().Window("/v1/accounts"); ok {
		t.Error("endpoints are tracked independently")
	}
}

func TestClient_ExhaustedWindowDelaysNextCall(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	reset := time.Unix(time.Now().Unix()+2, 0)
	srv.JSON("/v1/bars", http.StatusOK, `{}`, 10, 0, reset)
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	ctx := context.Background()
	req := httpclient.Request{Method: http.MethodGet, Path: "/v1/bars"}

	if _, err := c.Do(ctx, req); err != nil {
		t.Fatalf("first: %v", err)
	}
	start := time.Now()
	if _, err := c.Do(ctx, req); err != nil {
		t.Fatalf("second: %v", err)
	}
	if waited := time.Since(start); waited < 500*time.Millisecond {
		t.Errorf("second call should wait for the reset, waited %v", waited)
	}
}

func TestClient_ExhaustedWindowHonoursCancellation(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	srv.JSON("/v1/bars", http.StatusOK, `{}`, 10, 0, time.Now().Add(time.Hour))
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	req := httpclient.Request{Method: http.MethodGet, Path: "/v1/bars"}
	if _, err := c.Do(context.Background(), req); err != nil {
		t.Fatalf("first: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, req); err == nil {
		t.Fatal("expected the queued call to give up with its context")
	}
	if srv.Hits("/v1/bars") != 1 {
		t.Errorf("queued call must not reach the server, got %d", srv.Hits("/v1/bars"))
	}
	if c.Throttle().Pending("/v1/bars") != 0 {
		t.Error("cancelled caller should leave the queue")
	}
}

func collect(t *testing.T, l *stream.Listener) []stream.Event {
	t.Helper()
	var events []stream.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-l.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream")
			return nil
		}
	}
}

func TestClient_Stream(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	rec := &authRecorder{}
	srv.HandleFunc("/v1/stream/quotes", func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/x-ndjson")
		f := w.(http.Flusher)
		_, _ = w.Write([]byte("{\"a\":1}\n{\"b\""))
		f.Flush()
		_, _ = w.Write([]byte(":2}\n"))
		f.Flush()
	})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	l, err := c.Stream(context.Background(), "/v1/stream/quotes", map[string]string{"symbols": "AAPL"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	events := collect(t, l)
	if len(events) != 3 || string(events[0].Raw) != `{"a":1}` || string(events[1].Raw) != `{"b":2}` || events[2].Type != stream.EventEnd {
		t.Errorf("unexpected events %+v", events)
	}
	if seen := rec.seen(); len(seen) != 1 || seen[0] != "Bearer A1" {
		t.Errorf("stream connection should carry the bearer token, got %v", seen)
	}
}

func TestClient_StreamReuseAndCeiling(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	srv.NDJSON("/v1/stream/quotes", true)
	srv.NDJSON("/v1/stream/trades", true)
	srv.NDJSON("/v1/stream/bars", true)
	testutil.T(t).Setup(srv)

	cfg := baseConfig(srv.BaseURL())
	cfg.Streams.MaxConcurrent = 2
	c := newTestClient(t, cfg)
	ctx := context.Background()

	q1, err := c.Stream(ctx, "/v1/stream/quotes", map[string]string{"symbols": "AAPL,MSFT"})
	if err != nil {
		t.Fatalf("quotes: %v", err)
	}
	q2, err := c.Stream(ctx, "/v1/stream/quotes", map[string]string{"symbols": "AAPL,MSFT"})
	if err != nil {
		t.Fatalf("quotes again: %v", err)
	}
	if q1.Stream() != q2.Stream() {
		t.Error("expected the duplicate to reuse the stream")
	}
	if srv.Hits("/v1/stream/quotes") != 1 {
		t.Errorf("expected one connection, got %d", srv.Hits("/v1/stream/quotes"))
	}

	if _, err := c.Stream(ctx, "/v1/stream/trades", nil); err != nil {
		t.Fatalf("trades: %v", err)
	}
	if _, err := c.Stream(ctx, "/v1/stream/bars", nil); !errors.Is(err, apperrors.ErrTooManyStreams) {
		t.Fatalf("expected TOO_MANY_STREAMS, got %v", err)
	}
	q3, err := c.Stream(ctx, "/v1/stream/quotes", map[string]string{"symbols": "AAPL,MSFT"})
	if err != nil {
		t.Fatalf("reuse at the ceiling should succeed: %v", err)
	}
	if q3.Stream() != q1.Stream() || srv.Hits("/v1/stream/quotes") != 1 {
		t.Error("reuse at the ceiling should not open a connection")
	}

	active := c.ActiveStreams()
	if len(active) != 2 {
		t.Fatalf("expected 2 active streams, got %v", active)
	}

	c.CloseStream("/v1/stream/trades", nil)
	c.CloseStream("/v1/stream/trades", nil)
	if _, err := c.Stream(ctx, "/v1/stream/bars", nil); err != nil {
		t.Errorf("slot should be free after close: %v", err)
	}

	c.CloseAllStreams()
	collect(t, q1)
	collect(t, q2)
	collect(t, q3)
	if len(c.ActiveStreams()) != 0 {
		t.Errorf("expected nothing open, got %v", c.ActiveStreams())
	}
}

func TestClient_StreamErrorStatus(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	srv.JSON("/v1/stream/quotes", http.StatusNotFound, `{"message":"unknown symbol"}`, 0, -1, time.Time{})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	_, err := c.Stream(context.Background(), "/v1/stream/quotes", nil)
	if !httpclient.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(c.ActiveStreams()) != 0 {
		t.Error("failed stream should not stay registered")
	}
}

func TestClient_StreamRateLimitAbsorbed(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	var mu sync.Mutex
	calls := 0
	srv.HandleFunc("/v1/stream/quotes", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte("{\"a\":1}\n"))
	})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	l, err := c.Stream(context.Background(), "/v1/stream/quotes", map[string]string{"symbols": "AAPL"})
	if err != nil {
		t.Fatalf("429 on connect should be absorbed, got %v", err)
	}

	events := collect(t, l)
	if len(events) != 2 || string(events[0].Raw) != `{"a":1}` || events[1].Type != stream.EventEnd {
		t.Errorf("unexpected events %+v", events)
	}
	if srv.Hits("/v1/stream/quotes") != 2 {
		t.Errorf("expected one reconnect, got %d connects", srv.Hits("/v1/stream/quotes"))
	}
}

func TestClient_StreamRateLimitBoundedByRetry(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	srv.HandleFunc("/v1/stream/quotes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	if _, err := c.Stream(context.Background(), "/v1/stream/quotes", nil); err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if srv.Hits("/v1/stream/quotes") != 3 {
		t.Errorf("expected 3 connects, got %d", srv.Hits("/v1/stream/quotes"))
	}
	if len(c.ActiveStreams()) != 0 {
		t.Error("failed stream should not stay registered")
	}
}

func TestClient_StreamUnauthorizedRetriedOnce(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	rec := &authRecorder{}
	srv.HandleFunc("/v1/stream/quotes", func(w http.ResponseWriter, r *http.Request) {
		if rec.record(r) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte("{\"a\":1}\n"))
	})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()), WithCredentialOptions(credential.WithCredential(credential.Credential{
		AccessToken:  "A0",
		RefreshToken: "R1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})))

	l, err := c.Stream(context.Background(), "/v1/stream/quotes", nil)
	if err != nil {
		t.Fatalf("expected reconnect with fresh token to succeed, got %v", err)
	}
	if events := collect(t, l); len(events) != 2 || events[1].Type != stream.EventEnd {
		t.Errorf("unexpected events %+v", events)
	}

	seen := rec.seen()
	if len(seen) != 2 || seen[0] != "Bearer A0" || seen[1] != "Bearer A1" {
		t.Errorf("expected A0 then A1, got %v", seen)
	}
}

func TestClient_StreamUnauthorizedTwice(t *testing.T) {
	srv := testutil.NewServer()
	srv.Handle("/oauth/token", testutil.NewTokenEndpoint(testutil.OK("A1", "", 3600)))
	srv.JSON("/v1/stream/quotes", http.StatusUnauthorized, `{"message":"invalid token"}`, 0, -1, time.Time{})
	testutil.T(t).Setup(srv)

	c := newTestClient(t, baseConfig(srv.BaseURL()))
	_, err := c.Stream(context.Background(), "/v1/stream/quotes", nil)
	if !apperrors.HasCode(err, apperrors.ErrCodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if srv.Hits("/v1/stream/quotes") != 2 {
		t.Errorf("expected exactly one reconnect, got %d connects", srv.Hits("/v1/stream/quotes"))
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing base url", func(c *Config) { c.HTTP.BaseURL = "" }, "base_url"},
		{"missing token url", func(c *Config) { c.Auth.TokenURL = "" }, "config.auth"},
		{"bad environment", func(c *Config) { c.Environment = "moon" }, "environment"},
		{"negative stream ceiling", func(c *Config) { c.Streams.MaxConcurrent = -1 }, "config.streams"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig("https://api.example.com")
			tt.mutate(&cfg)
			_, err := New(context.Background(), cfg, WithLogger(logger.Nop()))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := baseConfig("https://api.example.com")
	cfg.ApplyDefaults()

	if cfg.Streams.MaxConcurrent != 10 {
		t.Errorf("expected stream ceiling 10, got %d", cfg.Streams.MaxConcurrent)
	}
	if cfg.Auth.RefreshAhead != 5*time.Minute {
		t.Errorf("expected 5m refresh-ahead, got %v", cfg.Auth.RefreshAhead)
	}
	if cfg.Throttle.DefaultLimit != 100 || cfg.Throttle.Window != time.Minute {
		t.Errorf("unexpected throttle defaults %+v", cfg.Throttle)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.HTTP.Timeout)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", time.Second},
		{"0", 0},
		{"7", 7 * time.Second},
		{"Wed, 21 Oct 2015 07:28:00 GMT", time.Second},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.header != "" {
			h.Set("Retry-After", tt.header)
		}
		if got := retryAfter(h, now).Sub(now); got != tt.want {
			t.Errorf("Retry-After %q: got %v, want %v", tt.header, got, tt.want)
		}
	}
}
