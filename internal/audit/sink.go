package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink writes each event as one structured log line.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("log", "audit").Logger()}
}

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, event Event) error {
	evt := s.logger.Info()
	if event.Status == StatusFailure {
		evt = s.logger.Warn()
	}
	evt.Time("occurred_at", event.OccurredAt).
		Str("request_id", event.RequestID).
		Str("actor", event.Actor).
		Str("ip", event.Source.IPAddress).
		Str("action", event.Action).
		Str("resource_type", event.ResourceType).
		Str("resource_id", event.ResourceID).
		Str("programme_id", event.ProgrammeID).
		Interface("changes", event.Changes).
		Str("status", event.Status).
		Str("error", event.ErrorMessage).
		Msg("audit")
	return nil
}

// MemorySink keeps events in memory. It backs the CLI's dry runs and tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
