package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is a bearer access token with the refresh token that renews it.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is no longer usable at now.
func (c Credential) Expired(now time.Time) bool {
	return c.AccessToken == "" || !now.Before(c.ExpiresAt)
}

// NeedsRefresh reports whether now is within ahead of expiry.
func (c Credential) NeedsRefresh(now time.Time, ahead time.Duration) bool {
	return c.AccessToken == "" || !now.Add(ahead).Before(c.ExpiresAt)
}

// TokenResponse is the token endpoint's JSON reply.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// tokenError is the OAuth error body returned with 4xx responses.
type tokenError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// jwtExpiry reads the exp claim of a JWT access token without verifying it.
// The token is only inspected to schedule the next refresh; the server is
// still the one that validates it.
func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
