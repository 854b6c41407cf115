package events

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Publisher delivers events to some outside party.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Multi fans an event out to every publisher. A failing publisher does not
// stop delivery to the others; their errors are joined.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher only logs events. It stands in when no sink is configured
// or the broker was unreachable at startup.
type LogPublisher struct {
	Logger zerolog.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(_ context.Context, event Event) error {
	p.Logger.Debug().
		Str("event", event.Type).
		Str("targeting_id", event.Resource.ID).
		Str("event_id", event.ID).
		Msg("event not forwarded")
	return nil
}

// Close implements Publisher.
func (LogPublisher) Close() error { return nil }
