package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/eapache/channels"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/brokerkit/errors"
	"github.com/kbukum/brokerkit/logger"
)

// Teardown reasons, used for logs and metrics.
const (
	reasonEnd    = "end"
	reasonError  = "error"
	reasonClosed = "closed"
)

// Stream is one open connection shared by every Listener of its Key.
type Stream struct {
	id     string
	key    Key
	mux    *Multiplexer
	log    *logger.Logger
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	body      io.ReadCloser
	listeners []*Listener
	closed    bool
	err       error
}

func newStream(m *Multiplexer, key Key, cancel context.CancelFunc) *Stream {
	id := uuid.NewString()
	return &Stream{
		id:     id,
		key:    key,
		mux:    m,
		log:    m.log.WithFields(logger.Fields(logger.FieldStreamID, id, logger.FieldStreamKey, key.String())),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the stream's unique identifier.
func (s *Stream) ID() string { return s.id }

// Key returns the stream's key.
func (s *Stream) Key() Key { return s.key }

// Done is closed once the stream has been torn down.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err returns the transport error that ended the stream, or nil if it is
// still open, ended normally or was closed explicitly.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Listeners returns the number of attached listeners.
func (s *Stream) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Close tears the stream down. Safe to call more than once.
func (s *Stream) Close() {
	s.teardown(reasonClosed, nil)
}

// subscribe attaches a new listener. The caller holds the multiplexer lock,
// which guarantees the stream has not been torn down.
func (s *Stream) subscribe() *Listener {
	l := newListener(s)
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
	return l
}

// detach removes l and reports whether it was still attached. Whoever
// removes a listener owns closing its queue.
func (s *Stream) detach(l *Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.listeners {
		if other == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// attach hands the opened connection to the stream. It fails if the stream
// was closed while the connection was being opened.
func (s *Stream) attach(body io.ReadCloser) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.body = body
	return true
}

func (s *Stream) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		l.queue.In() <- ev
	}
}

// run is the stream's single reader goroutine.
func (s *Stream) run(ctx context.Context, body io.Reader) {
	var framer Framer
	buf := make([]byte, s.mux.cfg.ReadBufferSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range framer.Feed(buf[:n]) {
				s.emit(ctx, line)
			}
		}

		if errors.Is(err, io.EOF) {
			if line := framer.Flush(); line != nil {
				s.emit(ctx, line)
			}
			s.broadcast(Event{Type: EventEnd})
			s.teardown(reasonEnd, nil)
			return
		}
		if err != nil {
			if s.isClosed() {
				return
			}
			appErr := apperrors.StreamTransport(s.key.String(), err)
			s.log.Warn("stream transport failed", logger.ErrorFields("read", err))
			s.broadcast(Event{Type: EventError, Err: appErr})
			s.teardown(reasonError, appErr)
			return
		}
	}
}

func (s *Stream) emit(ctx context.Context, line []byte) {
	var value any
	if err := json.Unmarshal(line, &value); err != nil {
		parseErr := apperrors.FrameParse(line, err)
		s.log.Warn(parseErr.Message, logger.Fields(
			logger.FieldError, err.Error(),
			"frame", parseErr.Details["frame"],
			"size", len(line),
		))
		s.mux.metrics.RecordFrame(ctx, "dropped")
		return
	}
	s.mux.metrics.RecordFrame(ctx, "emitted")
	s.broadcast(Event{Type: EventData, Raw: line, Value: value})
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// teardown releases everything the stream holds, exactly once.
func (s *Stream) teardown(reason string, err error) {
	s.once.Do(func() {
		s.mux.remove(s)

		s.mu.Lock()
		s.closed = true
		s.err = err
		body := s.body
		listeners := s.listeners
		s.listeners = nil
		s.mu.Unlock()

		s.cancel()
		if body != nil {
			_ = body.Close()
		}
		for _, l := range listeners {
			l.queue.Close()
		}

		s.mux.slots.Release()
		s.mux.metrics.StreamClosed(context.Background(), reason)
		s.log.Debug("stream closed", logger.Fields("reason", reason, "listeners", len(listeners)))
		close(s.done)
	})
}

// Listener receives a Stream's events in arrival order. Its queue is
// unbounded: the stream never waits for a listener. Events must be drained
// or the listener closed.
type Listener struct {
	stream *Stream
	queue  *channels.InfiniteChannel
	events chan Event
	quit   chan struct{}
	once   sync.Once
}

func newListener(s *Stream) *Listener {
	l := &Listener{
		stream: s,
		queue:  channels.NewInfiniteChannel(),
		events: make(chan Event),
		quit:   make(chan struct{}),
	}
	go l.pump()
	return l
}

// pump moves queued events onto the typed channel until the queue is closed
// and drained, or the listener is closed.
func (l *Listener) pump() {
	defer close(l.events)
	out := l.queue.Out()
	for v := range out {
		select {
		case l.events <- v.(Event):
		case <-l.quit:
			for range out {
			}
			return
		}
	}
}

// Events returns the event channel. It is closed after the stream is torn
// down and every queued event has been received, or when the listener is
// closed.
func (l *Listener) Events() <-chan Event { return l.events }

// Stream returns the stream this listener is attached to.
func (l *Listener) Stream() *Stream { return l.stream }

// Close detaches this listener only; the stream and its other listeners
// are unaffected. Safe to call more than once.
func (l *Listener) Close() {
	l.once.Do(func() {
		close(l.quit)
		if l.stream.detach(l) {
			l.queue.Close()
		}
	})
}
