package credential

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	apperrors "github.com/kbukum/brokerkit/errors"
	"github.com/kbukum/brokerkit/httpclient"
	"github.com/kbukum/brokerkit/observability"
)

// Refresher exchanges a refresh token for a new token set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// TokenClient calls the token endpoint with grant_type=refresh_token.
type TokenClient struct {
	http *httpclient.Client
	cfg  Config
}

// TokenClientOption configures a TokenClient.
type TokenClientOption func(*httpclient.Config)

// WithTokenTLS sets TLS options for the token endpoint connection.
func WithTokenTLS(tls *httpclient.TLSConfig) TokenClientOption {
	return func(c *httpclient.Config) { c.TLS = tls }
}

// WithTokenMetrics records token endpoint requests.
func WithTokenMetrics(m *observability.Metrics) TokenClientOption {
	return func(c *httpclient.Config) { c.Metrics = m }
}

// NewTokenClient creates a token endpoint client. Its transport carries no
// bearer auth of its own.
func NewTokenClient(cfg Config, opts ...TokenClientOption) (*TokenClient, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := httpclient.Config{
		Timeout: cfg.Timeout,
		Headers: map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(&hc)
	}
	client, err := httpclient.New(hc)
	if err != nil {
		return nil, err
	}
	return &TokenClient{http: client, cfg: cfg}, nil
}

// Refresh implements Refresher. A 4xx reply is a rejection; connection
// failures, timeouts, 5xx and unreadable replies are transport failures.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   c.cfg.TokenURL,
		Body:   form,
	}
	if c.cfg.AuthMethod == AuthMethodBasic {
		req.Auth = httpclient.BasicAuth(url.QueryEscape(c.cfg.ClientID), url.QueryEscape(c.cfg.ClientSecret))
	} else {
		form.Set("client_id", c.cfg.ClientID)
		if c.cfg.ClientSecret != "" {
			form.Set("client_secret", c.cfg.ClientSecret)
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		status := httpclient.StatusCode(err)
		if httpclient.IsClientError(err) {
			appErr := apperrors.RefreshFailed(apperrors.RefreshRejected, status, err)
			if resp != nil {
				var te tokenError
				if json.Unmarshal(resp.Body, &te) == nil && te.Error != "" {
					appErr.WithDetail("oauth_error", te.Error)
					if te.Description != "" {
						appErr.WithDetail("oauth_error_description", te.Description)
					}
				}
			}
			return nil, appErr
		}
		return nil, apperrors.RefreshFailed(apperrors.RefreshTransport, status, err)
	}

	var tr TokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return nil, apperrors.RefreshFailed(apperrors.RefreshTransport, resp.StatusCode, err)
	}
	if tr.AccessToken == "" {
		return nil, apperrors.RefreshFailed(apperrors.RefreshTransport, resp.StatusCode,
			apperrors.New(apperrors.ErrCodeInternal, "token response has no access_token"))
	}
	return &tr, nil
}
