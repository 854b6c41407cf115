package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs replaces the generator of request IDs for events without one.
func WithIDs(next func() string) Option {
	return func(s *Service) { s.nextID = next }
}

// WithRedactKeys replaces DefaultRedactKeys.
func WithRedactKeys(keys ...string) Option {
	return func(s *Service) {
		s.redactKeys = make(map[string]bool, len(keys))
		for _, k := range keys {
			s.redactKeys[k] = true
		}
	}
}

// WithQueueSize sets how many events may wait for the sink.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// Service writes audit events asynchronously.
type Service struct {
	sink       Sink
	logger     zerolog.Logger
	now        func() time.Time
	nextID     func() string
	redactKeys map[string]bool
	queueSize  int

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewService starts a service writing to sink.
func NewService(sink Sink, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		sink:      sink,
		logger:    logger.With().Str("component", "audit").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
		nextID:    uuid.NewString,
		queueSize: 256,
		done:      make(chan struct{}),
	}
	WithRedactKeys(DefaultRedactKeys...)(s)
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan Event, s.queueSize)
	go s.run()
	return s
}

func (s *Service) run() {
	defer close(s.done)
	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.sink.Write(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("resource_id", event.ResourceID).Msg("failed to write audit event")
		}
		cancel()
	}
}

// Log queues event after filling in the timestamp, the request ID and the
// change set, and masking secrets. A full queue drops the event; a closed
// service ignores it.
func (s *Service) Log(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if event.RequestID == "" {
		event.RequestID = s.nextID()
	}
	event.BeforeState = redact(event.BeforeState, s.redactKeys)
	event.AfterState = redact(event.AfterState, s.redactKeys)
	if event.Changes == nil {
		event.Changes = Diff(event.BeforeState, event.AfterState)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- event:
	default:
		s.logger.Warn().Str("resource_type", event.ResourceType).Str("resource_id", event.ResourceID).Msg("audit queue full, dropping event")
	}
}

// Close writes the queued events and stops the worker. Later calls return
// immediately.
func (s *Service) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
	return nil
}
