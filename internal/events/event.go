// Package events defines the change notifications emitted when targeting
// definitions are saved or deleted, and the publishers that carry them.
package events

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hopekit/targeting/internal/auth"
)

// Event types. They double as AMQP routing keys.
const (
	TypeTargetingCreated = "targeting.created"
	TypeTargetingUpdated = "targeting.updated"
	TypeTargetingDeleted = "targeting.deleted"
)

// Event is a change notification.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Resource  Resource  `json:"resource"`
	Data      Data      `json:"data"`
	Metadata  Metadata  `json:"metadata"`
}

// Resource identifies the targeting definition that changed.
type Resource struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	ProgrammeID string `json:"programmeId,omitempty"`
}

// Data carries the before and after states of the change.
type Data struct {
	Before      map[string]any `json:"before,omitempty"`
	After       map[string]any `json:"after,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
}

// Metadata contains request context for the change.
type Metadata struct {
	Actor     string `json:"actor,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Builder provides a fluent API for constructing events from a request.
//
//	event := events.NewBuilder(r).
//		ForTargeting(t.ID, t.ProgrammeID).
//		WithStates(before, after).
//		Build()
type Builder struct {
	event Event
}

// NewBuilder creates a builder carrying the request ID and caller.
func NewBuilder(r *http.Request) *Builder {
	actor, _ := auth.ActorFrom(r.Context())
	return &Builder{
		event: Event{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Metadata: Metadata{
				Actor:     actor,
				RequestID: middleware.GetReqID(r.Context()),
			},
		},
	}
}

// ForTargeting sets the resource to the targeting with id.
func (b *Builder) ForTargeting(id, programmeID string) *Builder {
	b.event.Resource = Resource{Type: "targeting", ID: id, ProgrammeID: programmeID}
	return b
}

// WithStates sets the before and after states. The event type follows
// from which side is nil: created, deleted or updated. Both nil leaves the
// type unset.
func (b *Builder) WithStates(before, after map[string]any) *Builder {
	b.event.Data.Before = before
	b.event.Data.After = after

	switch {
	case before == nil && after != nil:
		b.event.Type = TypeTargetingCreated
	case before != nil && after == nil:
		b.event.Type = TypeTargetingDeleted
	case before != nil && after != nil:
		b.event.Type = TypeTargetingUpdated
	}
	return b
}

// WithFingerprint records the content hash of the saved definition.
func (b *Builder) WithFingerprint(fp string) *Builder {
	b.event.Data.Fingerprint = fp
	return b
}

// Build returns the event.
func (b *Builder) Build() Event {
	return b.event
}
