package credential

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/brokerkit/errors"
	"github.com/kbukum/brokerkit/logger"
	"github.com/kbukum/brokerkit/observability"
	"github.com/kbukum/brokerkit/resilience"
)

// Acquirer obtains a primary credential when no refresh token exists, e.g.
// by running a client-credentials grant.
type Acquirer func(ctx context.Context) (*Credential, error)

// Option configures a Manager.
type Option func(*Manager)

// WithAcquirer sets the primary credential acquisition hook.
func WithAcquirer(a Acquirer) Option {
	return func(m *Manager) { m.acquirer = a }
}

// WithStore persists rotated refresh tokens and seeds the first refresh.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l.WithComponent("credential") }
}

// WithMetrics records refresh outcomes and durations.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCredential installs an initial credential.
func WithCredential(c Credential) Option {
	return func(m *Manager) {
		m.cred = &c
		if c.RefreshToken != "" {
			m.refreshToken = c.RefreshToken
		}
	}
}

// refreshCall is the single in-flight refresh that concurrent callers share.
type refreshCall struct {
	done chan struct{}
	cred Credential
	err  error
}

// Manager owns the live credential for one client.
type Manager struct {
	cfg       Config
	refresher Refresher
	acquirer  Acquirer
	store     Store
	log       *logger.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	mu           sync.Mutex
	cred         *Credential
	refreshToken string
	inflight     *refreshCall
}

// NewManager creates a credential manager.
func NewManager(cfg Config, refresher Refresher, opts ...Option) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:          cfg,
		refresher:    refresher,
		log:          logger.Nop(),
		now:          time.Now,
		refreshToken: cfg.RefreshToken,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Token returns a usable access token, refreshing first when the cached one
// is missing or within RefreshAhead of expiry.
//
// If the refresh fails while the cached token has not yet expired, that
// token is returned and the failure logged, unless Strict is set.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.cred != nil && !m.cred.NeedsRefresh(m.now(), m.cfg.RefreshAhead) {
		token := m.cred.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	call := m.joinLocked(ctx)
	m.mu.Unlock()

	cred, err := m.wait(ctx, call)
	if err == nil {
		return cred.AccessToken, nil
	}

	if !m.cfg.Strict && apperrors.HasCode(err, apperrors.ErrCodeRefreshFailed) {
		m.mu.Lock()
		stale := m.cred
		m.mu.Unlock()
		if stale != nil && !stale.Expired(m.now()) {
			m.log.Warn("refresh failed, using unexpired token", logger.Fields(
				logger.FieldError, err.Error(),
				"expires_in", stale.ExpiresAt.Sub(m.now()).Round(time.Second).String(),
			))
			return stale.AccessToken, nil
		}
	}
	return "", err
}

// Refresh renews the credential. Concurrent calls share one network refresh.
// The refresh itself is detached from ctx: a caller that gives up only stops
// waiting, and the result is still cached for everyone else.
func (m *Manager) Refresh(ctx context.Context) (*Credential, error) {
	m.mu.Lock()
	call := m.joinLocked(ctx)
	m.mu.Unlock()

	return m.wait(ctx, call)
}

// joinLocked returns the in-flight refresh, starting one if there is none.
func (m *Manager) joinLocked(ctx context.Context) *refreshCall {
	if m.inflight == nil {
		m.inflight = &refreshCall{done: make(chan struct{})}
		go m.run(context.WithoutCancel(ctx), m.inflight)
	}
	return m.inflight
}

func (m *Manager) wait(ctx context.Context, call *refreshCall) (*Credential, error) {
	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		cred := call.cred
		return &cred, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) run(ctx context.Context, call *refreshCall) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout*time.Duration(max(m.cfg.Retry.MaxAttempts, 1)))
	defer cancel()

	call.cred, call.err = m.refresh(ctx)

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(call.done)
}

func (m *Manager) refresh(ctx context.Context) (Credential, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanTokenRefresh)

	refreshToken := m.RefreshToken()
	if refreshToken == "" && m.store != nil {
		stored, err := m.store.Load(ctx)
		if err != nil {
			m.log.Warn("failed to load stored refresh token", logger.ErrorFields("load", err))
		}
		refreshToken = stored
	}

	if refreshToken == "" {
		cred, err := m.acquire(ctx)
		observability.EndSpan(span, err)
		return cred, err
	}

	start := m.now()
	var attempt int
	resp, err := resilience.Retry(ctx, m.retryConfig(), func() (*TokenResponse, error) {
		attempt++
		return m.refresher.Refresh(ctx, refreshToken)
	})
	elapsed := m.now().Sub(start)
	span.SetAttributes(attribute.Int("brokerkit.refresh.attempts", attempt))

	if err != nil {
		if !apperrors.HasCode(err, apperrors.ErrCodeRefreshFailed) {
			err = apperrors.RefreshFailed(apperrors.RefreshTransport, 0, err)
		}
		reason := string(apperrors.RefreshTransport)
		if apperrors.IsRefreshRejected(err) {
			reason = string(apperrors.RefreshRejected)
		}
		m.metrics.RecordRefresh(ctx, reason, elapsed)
		m.log.Error("token refresh failed", logger.Fields(
			logger.FieldError, err.Error(),
			"reason", reason,
			logger.FieldAttempt, attempt,
		))
		observability.EndSpan(span, err)
		return Credential{}, err
	}

	cred := Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    m.expiry(resp),
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	m.install(ctx, cred, refreshToken)

	m.metrics.RecordRefresh(ctx, "success", elapsed)
	m.log.Debug("token refreshed", logger.Fields(
		"expires_at", cred.ExpiresAt.Format(time.RFC3339),
		"rotated", cred.RefreshToken != refreshToken,
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	observability.EndSpan(span, nil)
	return cred, nil
}

func (m *Manager) acquire(ctx context.Context) (Credential, error) {
	if m.acquirer == nil {
		return Credential{}, apperrors.NoCredential()
	}

	c, err := m.acquirer(ctx)
	if err != nil {
		if _, ok := apperrors.AsAppError(err); !ok {
			err = apperrors.RefreshFailed(apperrors.RefreshTransport, 0, err)
		}
		m.log.Error("credential acquisition failed", logger.ErrorFields("acquire", err))
		return Credential{}, err
	}
	if c == nil || c.AccessToken == "" {
		return Credential{}, apperrors.NoCredential()
	}

	cred := *c
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = m.expiry(&TokenResponse{AccessToken: cred.AccessToken})
	}
	m.install(ctx, cred, "")
	m.log.Info("credential acquired", logger.Fields("expires_at", cred.ExpiresAt.Format(time.RFC3339)))
	return cred, nil
}

// install replaces the live credential and persists a rotated refresh token.
func (m *Manager) install(ctx context.Context, cred Credential, previous string) {
	m.mu.Lock()
	m.cred = &cred
	m.refreshToken = cred.RefreshToken
	m.mu.Unlock()

	if m.store != nil && cred.RefreshToken != "" && cred.RefreshToken != previous {
		if err := m.store.Save(ctx, cred.RefreshToken); err != nil {
			m.log.Warn("failed to persist refresh token", logger.ErrorFields("save", err))
		}
	}
}

func (m *Manager) expiry(resp *TokenResponse) time.Time {
	if resp.ExpiresIn > 0 {
		return m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if exp, ok := jwtExpiry(resp.AccessToken); ok {
		return exp
	}
	return m.now().Add(m.cfg.DefaultTTL)
}

func (m *Manager) retryConfig() resilience.RetryConfig {
	cfg := m.cfg.Retry
	cfg.RetryIf = apperrors.IsRetryable
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		m.log.Warn("retrying token refresh", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff", backoff.String(),
		))
	}
	return cfg
}

// RefreshToken returns the current refresh token without side effects.
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken
}

// Credential returns a snapshot of the live credential.
func (m *Manager) Credential() (Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return Credential{}, false
	}
	return *m.cred, true
}

// Invalidate marks the access token expired so the next Token call
// refreshes. The refresh token is kept.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred != nil {
		m.cred.ExpiresAt = time.Time{}
	}
}
