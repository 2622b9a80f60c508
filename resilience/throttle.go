package resilience

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Rate-limit response headers.
const (
	HeaderRateLimit     = "X-Ratelimit-Limit"
	HeaderRateRemaining = "X-Ratelimit-Remaining"
	HeaderRateReset     = "X-Ratelimit-Reset"
)

// ThrottleConfig configures a Throttle.
type ThrottleConfig struct {
	// DefaultLimit is assumed when a response omits the limit header.
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit" validate:"gte=0"`
	// Window is the reset period applied after a reset fires.
	Window time.Duration `yaml:"window" mapstructure:"window" validate:"gte=0"`
	// OnWait is called when a queued caller is admitted, with the time it waited.
	OnWait func(key string, waited time.Duration) `yaml:"-" mapstructure:"-"`
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time `yaml:"-" mapstructure:"-"`
}

// DefaultThrottleConfig returns sensible defaults.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		DefaultLimit: 100,
		Window:       time.Minute,
	}
}

// Window is the server-published rate state for one endpoint.
type Window struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type stopper interface {
	Stop() bool
}

type throttleWaiter struct {
	ready    chan struct{}
	enqueued time.Time
}

type endpointState struct {
	window  *Window
	queue   []*throttleWaiter
	timer   stopper
	timerAt time.Time
	gen     uint64
}

// Throttle admits calls per endpoint according to the rate-limit headers the
// server last returned for that endpoint. Callers that find the window
// exhausted queue in arrival order; only the queue head waits on a timer, and
// a single timer serves each reset cycle.
//
// It is cooperative admission control, not a token bucket: the server's
// remaining count is authoritative and each response overwrites it.
type Throttle struct {
	config ThrottleConfig

	mu        sync.Mutex
	endpoints map[string]*endpointState

	afterFunc func(d time.Duration, f func()) stopper
}

// NewThrottle creates a new throttle.
func NewThrottle(config ThrottleConfig) *Throttle {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Throttle{
		config:    config,
		endpoints: make(map[string]*endpointState),
		afterFunc: func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) },
	}
}

// Record stores the window described by h for key, replacing any previous
// window, and releases queued callers the new window admits.
//
// A missing limit defaults to DefaultLimit, a missing remaining count to 0
// and a missing reset to now. A response carrying none of the headers leaves
// the endpoint untracked.
func (t *Throttle) Record(key string, h http.Header) {
	limitStr := h.Get(HeaderRateLimit)
	remainingStr := h.Get(HeaderRateRemaining)
	resetStr := h.Get(HeaderRateReset)
	if limitStr == "" && remainingStr == "" && resetStr == "" {
		return
	}

	now := t.config.Clock()
	w := Window{
		Limit:     parseHeaderInt(limitStr, t.config.DefaultLimit),
		Remaining: parseHeaderInt(remainingStr, 0),
		ResetAt:   now,
	}
	if secs := parseHeaderInt(resetStr, -1); secs >= 0 {
		w.ResetAt = time.Unix(int64(secs), 0)
	}
	t.Set(key, w)
}

// Set replaces the window for key.
func (t *Throttle) Set(key string, w Window) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateLocked(key)
	st.window = &w
	t.advanceLocked(key, st)
}

// Wait blocks until a call to key may proceed. It returns immediately when no
// window is known, when the window has capacity and nobody is queued, or when
// the window's reset time has already passed. Otherwise the caller joins the
// FIFO queue for key. Cancelling ctx removes the caller from the queue.
func (t *Throttle) Wait(ctx context.Context, key string) error {
	t.mu.Lock()
	st := t.stateLocked(key)
	if len(st.queue) == 0 && t.admitLocked(st) {
		t.mu.Unlock()
		return nil
	}

	w := &throttleWaiter{ready: make(chan struct{}), enqueued: t.config.Clock()}
	st.queue = append(st.queue, w)
	t.advanceLocked(key, st)
	t.mu.Unlock()

	select {
	case <-w.ready:
		if t.config.OnWait != nil {
			t.config.OnWait(key, t.config.Clock().Sub(w.enqueued))
		}
		return nil
	case <-ctx.Done():
		t.mu.Lock()
		defer t.mu.Unlock()
		if !st.remove(w) {
			// Admitted concurrently with cancellation; the slot is ours.
			return nil
		}
		return ctx.Err()
	}
}

// Window returns a snapshot of the recorded window for key.
func (t *Throttle) Window(key string) (Window, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.endpoints[key]
	if !ok || st.window == nil {
		return Window{}, false
	}
	return *st.window, true
}

// Pending returns the number of callers queued for key.
func (t *Throttle) Pending(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.endpoints[key]; ok {
		return len(st.queue)
	}
	return 0
}

// Reset forgets the window for key and releases everyone queued on it.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.endpoints[key]
	if !ok {
		return
	}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	for _, w := range st.queue {
		close(w.ready)
	}
	delete(t.endpoints, key)
}

func (t *Throttle) stateLocked(key string) *endpointState {
	st, ok := t.endpoints[key]
	if !ok {
		st = &endpointState{}
		t.endpoints[key] = st
	}
	return st
}

// admitLocked consumes one unit of the window if it has capacity. An
// exhausted window whose reset time has passed is refilled first.
func (t *Throttle) admitLocked(st *endpointState) bool {
	w := st.window
	if w == nil {
		return true
	}
	if w.Remaining <= 0 {
		now := t.config.Clock()
		if now.Before(w.ResetAt) {
			return false
		}
		t.refill(w, now)
	}
	w.Remaining--
	return true
}

func (t *Throttle) refill(w *Window, now time.Time) {
	w.Remaining = max(w.Limit, 1)
	w.ResetAt = now.Add(t.config.Window)
}

// advanceLocked releases queued callers in order while the window admits
// them, then arms the head's timer if anyone is left.
func (t *Throttle) advanceLocked(key string, st *endpointState) {
	for len(st.queue) > 0 && t.admitLocked(st) {
		w := st.queue[0]
		st.queue[0] = nil
		st.queue = st.queue[1:]
		close(w.ready)
	}
	if len(st.queue) == 0 {
		return
	}

	resetAt := st.window.ResetAt
	if st.timer != nil {
		if st.timerAt.Equal(resetAt) {
			return
		}
		st.timer.Stop()
	}
	st.gen++
	gen := st.gen
	st.timerAt = resetAt
	st.timer = t.afterFunc(resetAt.Sub(t.config.Clock()), func() { t.fire(key, st, gen) })
}

// fire runs when the head's wait elapses: the window is refilled and the
// queue advances.
func (t *Throttle) fire(key string, st *endpointState, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.endpoints[key] != st || st.gen != gen {
		return
	}
	st.timer = nil
	if st.window != nil && st.window.Remaining <= 0 {
		t.refill(st.window, t.config.Clock())
	}
	t.advanceLocked(key, st)
}

func (st *endpointState) remove(w *throttleWaiter) bool {
	for i, q := range st.queue {
		if q == w {
			st.queue = append(st.queue[:i], st.queue[i+1:]...)
			return true
		}
	}
	return false
}

func parseHeaderInt(v string, fallback int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil {
			return int(f)
		}
		return fallback
	}
	return n
}
