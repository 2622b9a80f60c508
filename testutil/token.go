package testutil

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// TokenReply is one scripted token endpoint response.
type TokenReply struct {
	Status int
	Body   any
}

// OK builds a successful token reply. An empty refresh token is omitted.
func OK(accessToken, refreshToken string, expiresIn int) TokenReply {
	body := map[string]any{
		"access_token": accessToken,
		"token_type":   "bearer",
	}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	if expiresIn > 0 {
		body["expires_in"] = expiresIn
	}
	return TokenReply{Status: http.StatusOK, Body: body}
}

// Rejected builds an OAuth error reply.
func Rejected(status int, code string) TokenReply {
	return TokenReply{Status: status, Body: map[string]string{
		"error":             code,
		"error_description": "scripted rejection",
	}}
}

// TokenEndpoint is a scripted OAuth token endpoint. Replies are served in
// order and the last one repeats.
type TokenEndpoint struct {
	mu      sync.Mutex
	replies []TokenReply
	forms   []url.Values
	delay   time.Duration
	gate    chan struct{}
}

// NewTokenEndpoint creates a token endpoint with the given script.
func NewTokenEndpoint(replies ...TokenReply) *TokenEndpoint {
	return &TokenEndpoint{replies: replies}
}

// SetDelay makes every reply wait d before being written.
func (e *TokenEndpoint) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// Hold blocks replies until the returned release func is called.
func (e *TokenEndpoint) Hold() (release func()) {
	gate := make(chan struct{})
	e.mu.Lock()
	e.gate = gate
	e.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Hits returns the number of token requests received.
func (e *TokenEndpoint) Hits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.forms)
}

// LastForm returns the form of the most recent request.
func (e *TokenEndpoint) LastForm() url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.forms) == 0 {
		return nil
	}
	return e.forms[len(e.forms)-1]
}

// ServeHTTP implements http.Handler.
func (e *TokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if user, pass, ok := r.BasicAuth(); ok {
		r.PostForm.Set("basic_client_id", user)
		r.PostForm.Set("basic_client_secret", pass)
	}

	e.mu.Lock()
	idx := min(len(e.forms), len(e.replies)-1)
	e.forms = append(e.forms, r.PostForm)
	delay, gate := e.delay, e.gate
	var reply TokenReply
	if idx >= 0 {
		reply = e.replies[idx]
	}
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	if reply.Status == 0 {
		reply.Status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	if reply.Body != nil {
		_ = json.NewEncoder(w).Encode(reply.Body)
	}
}
