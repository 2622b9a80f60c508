package client

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/brokerkit/credential"
	apperrors "github.com/kbukum/brokerkit/errors"
	"github.com/kbukum/brokerkit/httpclient"
	"github.com/kbukum/brokerkit/httpclient/rest"
	"github.com/kbukum/brokerkit/logger"
	"github.com/kbukum/brokerkit/observability"
	"github.com/kbukum/brokerkit/resilience"
	"github.com/kbukum/brokerkit/stream"
)

// Client is the access layer endpoint wrappers call. Every request is
// admitted by the per-endpoint throttle, carries a bearer token from the
// credential manager, and feeds the response's rate-limit headers back into
// the throttle.
type Client struct {
	cfg      Config
	base     *logger.Logger
	log      *logger.Logger
	metrics  *observability.Metrics
	http     *httpclient.Client
	creds    *credential.Manager
	throttle *resilience.Throttle
	streams  *stream.Multiplexer
	opener   stream.Opener
	shutdown observability.ShutdownFunc
}

// New builds a client from cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	base := o.log
	if base == nil {
		base = logger.New(&cfg.Logging, cfg.Name)
	}
	c := &Client{cfg: cfg, base: base, log: base.WithComponent("client")}

	shutdown, err := observability.Setup(ctx, cfg.Telemetry, cfg.Name)
	if err != nil {
		return nil, err
	}
	c.shutdown = shutdown

	c.metrics = o.metrics
	if c.metrics == nil {
		if c.metrics, err = observability.NewMetrics(observability.Meter()); err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
	}

	if err := c.initCredentials(cfg, o); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	c.initThrottle(cfg)

	if err := c.initTransport(cfg); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	c.opener = o.opener
	if c.opener == nil {
		c.opener = stream.NewHTTPOpener(c.http)
	}
	if c.streams, err = stream.New(cfg.Streams, stream.OpenerFunc(c.openStream),
		stream.WithLogger(c.base),
		stream.WithMetrics(c.metrics),
	); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	c.log.Info("client ready", logger.Fields(
		"base_url", cfg.HTTP.BaseURL,
		"environment", cfg.Environment,
		"max_streams", cfg.Streams.MaxConcurrent,
	))
	return c, nil
}

func (c *Client) initCredentials(cfg Config, o options) error {
	refresher := o.refresher
	if refresher == nil {
		tc, err := credential.NewTokenClient(cfg.Auth,
			credential.WithTokenTLS(cfg.HTTP.TLS),
			credential.WithTokenMetrics(c.metrics),
		)
		if err != nil {
			return err
		}
		refresher = tc
	}

	store := o.store
	if store == nil {
		s, err := credential.NewStore(cfg.Auth.Store)
		if err != nil {
			return err
		}
		store = s
	}

	credOpts := append([]credential.Option{
		credential.WithLogger(c.base),
		credential.WithMetrics(c.metrics),
		credential.WithStore(store),
	}, o.credentials...)

	mgr, err := credential.NewManager(cfg.Auth, refresher, credOpts...)
	if err != nil {
		return err
	}
	c.creds = mgr
	return nil
}

func (c *Client) initThrottle(cfg Config) {
	tc := cfg.Throttle
	tlog := c.base.WithComponent("throttle")
	tc.OnWait = func(key string, waited time.Duration) {
		c.metrics.RecordThrottleWait(context.Background(), key, waited)
		tlog.Debug("admitted after wait", logger.Fields(
			logger.FieldEndpoint, key,
			logger.FieldDuration, waited.Milliseconds(),
		))
	}
	c.throttle = resilience.NewThrottle(tc)
}

func (c *Client) initTransport(cfg Config) error {
	hc := cfg.HTTP
	hc.Auth = httpclient.SourceAuth(c.creds)
	hc.Metrics = c.metrics
	hc.Hooks.BeforeSend = append(hc.Hooks.BeforeSend, c.admit)
	hc.Hooks.AfterReceive = append(hc.Hooks.AfterReceive, c.observe)

	retry := cfg.Retry
	retry.RetryIf = retryable
	retry.SkipBackoffIf = httpclient.IsRateLimit
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Debug("retrying request", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldStatus, httpclient.StatusCode(err),
			"backoff", backoff.String(),
		))
	}
	hc.Retry = &retry

	client, err := rest.New(hc)
	if err != nil {
		return err
	}
	c.http = client
	return nil
}

// retryable retries transient transport failures and 429s. A request that
// could not obtain a credential is never retried here; the credential
// manager already retried the refresh.
func retryable(err error) bool {
	if apperrors.HasCode(err, apperrors.ErrCodeNoCredential) || apperrors.HasCode(err, apperrors.ErrCodeRefreshFailed) {
		return false
	}
	return httpclient.IsRetryable(err)
}

// throttleKey maps a request to its rate-limit bucket.
func throttleKey(req *http.Request) string {
	return req.URL.Path
}

// admit waits for a throttle slot before each request leaves.
func (c *Client) admit(ctx context.Context, req *http.Request) error {
	return c.throttle.Wait(ctx, throttleKey(req))
}

// observe records the rate-limit headers of every response. A 429 closes
// the window until the server's reset time so the retry queues behind it.
func (c *Client) observe(_ context.Context, req *http.Request, resp *http.Response) {
	key := throttleKey(req)
	c.throttle.Record(key, resp.Header)

	if resp.StatusCode != http.StatusTooManyRequests {
		return
	}
	w, ok := c.throttle.Window(key)
	if ok && w.Remaining <= 0 {
		return
	}
	limit := c.cfg.Throttle.DefaultLimit
	if ok {
		limit = w.Limit
	}
	c.throttle.Set(key, resilience.Window{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   retryAfter(resp.Header, time.Now()),
	})
	c.log.Warn("rate limited", logger.Fields(logger.FieldEndpoint, key))
}

// retryAfter reads a Retry-After delay in seconds, defaulting to one second.
func retryAfter(h http.Header, now time.Time) time.Time {
	if secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After"))); err == nil && secs >= 0 {
		return now.Add(time.Duration(secs) * time.Second)
	}
	return now.Add(time.Second)
}

// Do sends req. A 401 invalidates the access token and the request is sent
// once more with a fresh one; a second 401 is returned as UNAUTHORIZED.
func (c *Client) Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
	resp, err := c.http.Do(ctx, req)
	if err == nil || !httpclient.IsUnauthorized(err) {
		return resp, err
	}

	c.log.Info("access token rejected, refreshing", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldEndpoint, req.Path,
	))
	c.creds.Invalidate()

	resp, err = c.http.Do(ctx, req)
	if err != nil && httpclient.IsUnauthorized(err) {
		return resp, apperrors.Unauthorized(err)
	}
	return resp, err
}

// Stream returns a listener on the NDJSON stream at endpoint. Streams with
// the same endpoint and params share one connection.
func (c *Client) Stream(ctx context.Context, endpoint string, params map[string]string) (*stream.Listener, error) {
	return c.streams.Create(ctx, endpoint, params)
}

// openStream connects a stream. A 429 on connect is not returned: the
// observe hook has closed the window, so the reconnect queues in the
// throttle, bounded by the retry config. A 401 invalidates the access token
// and the connect is tried once more, as in Do.
func (c *Client) openStream(ctx context.Context, endpoint string, params map[string]string) (io.ReadCloser, error) {
	body, err := c.connectStream(ctx, endpoint, params)
	if err == nil || !httpclient.IsUnauthorized(err) {
		return body, err
	}

	c.log.Info("access token rejected on stream connect, refreshing", logger.Fields(
		logger.FieldEndpoint, endpoint,
	))
	c.creds.Invalidate()

	body, err = c.connectStream(ctx, endpoint, params)
	if err != nil && httpclient.IsUnauthorized(err) {
		return nil, apperrors.Unauthorized(err)
	}
	return body, err
}

func (c *Client) connectStream(ctx context.Context, endpoint string, params map[string]string) (io.ReadCloser, error) {
	retry := c.cfg.Retry
	retry.RetryIf = httpclient.IsRateLimit
	retry.SkipBackoffIf = httpclient.IsRateLimit
	retry.OnRetry = func(attempt int, _ error, _ time.Duration) {
		c.log.Debug("stream connect rate limited, waiting", logger.Fields(
			logger.FieldEndpoint, endpoint,
			logger.FieldAttempt, attempt,
		))
	}
	return resilience.Retry(ctx, retry, func() (io.ReadCloser, error) {
		return c.opener.Open(ctx, endpoint, params)
	})
}

// CloseStream tears down the stream for endpoint and params.
func (c *Client) CloseStream(endpoint string, params map[string]string) {
	c.streams.Close(stream.NewKey(endpoint, params))
}

// CloseAllStreams tears down every open stream.
func (c *Client) CloseAllStreams() {
	c.streams.CloseAll()
}

// ActiveStreams returns the keys of the open streams.
func (c *Client) ActiveStreams() []stream.Key {
	return c.streams.Active()
}

// RefreshToken returns the current refresh token.
func (c *Client) RefreshToken() string {
	return c.creds.RefreshToken()
}

// Credentials returns the credential manager.
func (c *Client) Credentials() *credential.Manager {
	return c.creds
}

// Throttle returns the per-endpoint throttle.
func (c *Client) Throttle() *resilience.Throttle {
	return c.throttle
}

// Close tears down every stream and flushes telemetry.
func (c *Client) Close(ctx context.Context) error {
	c.streams.CloseAll()
	c.log.Info("client closed")
	if c.shutdown == nil {
		return nil
	}
	return c.shutdown(ctx)
}

// Get performs a GET through c and decodes the JSON response into T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...rest.RequestOption) (*rest.Response[T], error) {
	return rest.Get[T](ctx, c, path, opts...)
}

// Post performs a POST through c and decodes the JSON response into T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...rest.RequestOption) (*rest.Response[T], error) {
	return rest.Post[T](ctx, c, path, body, opts...)
}

// Put performs a PUT through c and decodes the JSON response into T.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...rest.RequestOption) (*rest.Response[T], error) {
	return rest.Put[T](ctx, c, path, body, opts...)
}

// Delete performs a DELETE through c and decodes the JSON response into T.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...rest.RequestOption) (*rest.Response[T], error) {
	return rest.Delete[T](ctx, c, path, opts...)
}
