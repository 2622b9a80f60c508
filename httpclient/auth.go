package httpclient

import (
	"context"
	"net/http"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses a static Bearer token.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthTokenSource resolves a Bearer token per request.
	AuthTokenSource
)

// TokenSource yields a bearer token for an outgoing request. Implementations
// may block (e.g. while a refresh is in flight) and must honor ctx.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Username is the basic auth username (AuthBasic).
	Username string
	// Password is the basic auth password (AuthBasic).
	Password string
	// Source resolves the bearer token (AuthTokenSource).
	Source TokenSource
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// SourceAuth creates an auth config that asks src for a token on every request.
func SourceAuth(src TokenSource) *AuthConfig {
	return &AuthConfig{Type: AuthTokenSource, Source: src}
}

// NoAuth disables client-level auth for a single request.
func NoAuth() *AuthConfig {
	return &AuthConfig{Type: AuthNone}
}

// apply applies authentication to an HTTP request. A token source failure
// aborts the request.
func (a *AuthConfig) apply(req *http.Request) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthTokenSource:
		if a.Source == nil {
			return nil
		}
		token, err := a.Source.Token(req.Context())
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
