package authkit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Event types emitted by the engine. Failures that callers only ever see
// as ErrUnauthorized keep their distinct cause in the event's Error field,
// which is how operators tell a malformed token from an expired one.
const (
	EventLogin        = "login"
	EventLogout       = "logout"
	EventRefresh      = "refresh"
	EventAuthenticate = "authenticate"
	EventAdmission    = "admission"
)

// AuditEvent is one auth outcome, successful or not.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Username  string    `json:"username,omitempty"`
	Operation string    `json:"operation,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// AuditSink receives every auth event the engine emits. Implementations
// must be safe for concurrent use and must not block request handling for
// long; drop or buffer under pressure.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards all events. It is the default sink.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink buffers events on a channel for asynchronous consumption.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// AsyncSink decouples event delivery from request handling: Emit enqueues
// and returns, a single background goroutine forwards to the wrapped sink.
// When the buffer is full the event is dropped and counted, never blocked
// on; slow sinks must not stall auth decisions.
type AsyncSink struct {
	sink      AuditSink
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewAsyncSink(buffer int, sink AuditSink) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	s := &AsyncSink{
		sink: sink,
		ch:   make(chan AuditEvent, buffer),
		done: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.ch:
			s.sink.Emit(context.Background(), event)
		case <-s.done:
			// Drain whatever was enqueued before Close.
			for {
				select {
				case event := <-s.ch:
					s.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- event:
	case <-s.done:
	default:
		s.dropped.Add(1)
	}
}

// Close stops the forwarding goroutine after draining buffered events.
func (s *AsyncSink) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}

// Dropped reports how many events were discarded on a full buffer.
func (s *AsyncSink) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// JSONWriterSink writes one JSON object per line to an io.Writer, which is
// how the events reach a structured log pipeline.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
