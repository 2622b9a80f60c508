package stream

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/kbukum/brokerkit/errors"
	"github.com/kbukum/brokerkit/logger"
	"github.com/kbukum/brokerkit/observability"
	"github.com/kbukum/brokerkit/resilience"
)

// Option configures a Multiplexer.
type Option func(*Multiplexer)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Multiplexer) { m.log = l.WithComponent("stream") }
}

// WithMetrics records stream lifecycle and frame counts.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Multiplexer) { m.metrics = metrics }
}

// Multiplexer owns the registry of open streams.
type Multiplexer struct {
	cfg     Config
	opener  Opener
	slots   *resilience.Bulkhead
	log     *logger.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	streams map[Key]*Stream
}

// New creates a multiplexer that dials through opener.
func New(cfg Config, opener Opener, opts ...Option) (*Multiplexer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Multiplexer{
		cfg:     cfg,
		opener:  opener,
		log:     logger.Nop(),
		streams: make(map[Key]*Stream),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.slots = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "streams",
		MaxConcurrent: cfg.MaxConcurrent,
		OnReject: func(string) {
			m.log.Warn("stream ceiling reached", logger.Fields("limit", cfg.MaxConcurrent))
		},
	})
	return m, nil
}

// Create returns a listener on the stream for endpoint and params. If that
// stream is already open the listener is attached to it and no connection
// is made. Otherwise a new connection is opened, unless MaxConcurrent
// streams are open, in which case TOO_MANY_STREAMS is returned.
//
// ctx bounds opening the connection only. The stream lives until the
// server ends it, it fails, or it is closed.
func (m *Multiplexer) Create(ctx context.Context, endpoint string, params map[string]string) (*Listener, error) {
	key := NewKey(endpoint, params)

	m.mu.Lock()
	if s, ok := m.streams[key]; ok {
		l := s.subscribe()
		m.mu.Unlock()
		m.log.Debug("reusing stream", logger.Fields(logger.FieldStreamID, s.id, logger.FieldStreamKey, key.String()))
		return l, nil
	}
	if err := m.slots.TryAcquire(); err != nil {
		m.mu.Unlock()
		return nil, apperrors.TooManyStreams(m.cfg.MaxConcurrent)
	}
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := newStream(m, key, cancel)
	m.streams[key] = s
	l := s.subscribe()
	m.mu.Unlock()

	m.metrics.StreamOpened(ctx)

	stop := context.AfterFunc(ctx, cancel)
	body, err := m.opener.Open(streamCtx, endpoint, params)
	stop()
	if err != nil {
		l.Close()
		if _, ok := apperrors.AsAppError(err); !ok {
			err = apperrors.StreamTransport(key.String(), err)
		}
		s.log.Warn("failed to open stream", logger.ErrorFields("open", err))
		s.broadcast(Event{Type: EventError, Err: err})
		s.teardown(reasonError, err)
		return nil, err
	}
	if !s.attach(body) {
		_ = body.Close()
		l.Close()
		return nil, apperrors.StreamClosed(key.String())
	}

	s.log.Info("stream opened")
	go s.run(streamCtx, body)
	return l, nil
}

// Get returns the open stream for key.
func (m *Multiplexer) Get(key Key) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[key]
	return s, ok
}

// Close tears down the stream for key. Closing a key that is not open is
// a no-op.
func (m *Multiplexer) Close(key Key) {
	if s, ok := m.Get(key); ok {
		s.Close()
	}
}

// CloseAll tears down every open stream.
func (m *Multiplexer) CloseAll() {
	m.mu.Lock()
	streams := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	m.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}
}

// Active returns the keys of the open streams, sorted.
func (m *Multiplexer) Active() []Key {
	m.mu.Lock()
	keys := make([]Key, 0, len(m.streams))
	for k := range m.streams {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Len returns the number of open streams.
func (m *Multiplexer) Len() int {
	return m.slots.InUse()
}

// remove unregisters s if it is still the stream for its key.
func (m *Multiplexer) remove(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streams[s.key] == s {
		delete(m.streams, s.key)
	}
}
