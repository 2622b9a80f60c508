package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

var _ TestComponent = (*Server)(nil)

// Server is a fake brokerage API backed by httptest.Server. Register
// handlers before or after Start; hits are counted per path.
type Server struct {
	mux *http.ServeMux
	ts  *httptest.Server

	mu      sync.RWMutex
	started bool
	hits    map[string]int
	closing chan struct{}
}

// NewServer creates a new fake API server.
func NewServer() *Server {
	return &Server{
		mux:     http.NewServeMux(),
		hits:    make(map[string]int),
		closing: make(chan struct{}),
	}
}

// Handle registers handler on path.
func (s *Server) Handle(path string, handler http.Handler) {
	s.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		handler.ServeHTTP(w, r)
	}))
}

// HandleFunc registers fn on path.
func (s *Server) HandleFunc(path string, fn http.HandlerFunc) {
	s.Handle(path, fn)
}

// JSON serves body with status and the given rate-limit window on path.
// A negative remaining omits the rate-limit headers.
func (s *Server) JSON(path string, status int, body string, limit, remaining int, reset time.Time) {
	s.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if remaining >= 0 {
			w.Header().Set("X-Ratelimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-Ratelimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-Ratelimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// NDJSON serves a newline-delimited JSON stream on path. Each chunk is
// written and flushed separately, so records may be split across chunks.
// With hold set the response stays open until the client disconnects or
// the server stops.
func (s *Server) NDJSON(path string, hold bool, chunks ...string) {
	s.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		if flusher != nil {
			flusher.Flush()
		}
		for _, chunk := range chunks {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if !hold {
			return
		}
		s.mu.RLock()
		closing := s.closing
		s.mu.RUnlock()
		select {
		case <-r.Context().Done():
		case <-closing:
		}
	})
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[path]
}

// BaseURL returns the server's base URL (e.g., "http://127.0.0.1:PORT").
// Returns empty string if the server is not started.
func (s *Server) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ts == nil {
		return ""
	}
	return s.ts.URL
}

// Name implements TestComponent.
func (s *Server) Name() string { return "fake-api-server" }

// Start implements TestComponent.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("fake api server already started")
	}
	s.ts = httptest.NewServer(s.mux)
	s.started = true
	return nil
}

// Stop implements TestComponent. Held streams are released first.
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	ts, closing := s.ts, s.closing
	s.ts = nil
	s.started = false
	s.closing = make(chan struct{})
	s.mu.Unlock()

	close(closing)
	ts.CloseClientConnections()
	ts.Close()
	return nil
}

// Reset implements TestComponent. Handlers stay registered.
func (s *Server) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = make(map[string]int)
	return nil
}
