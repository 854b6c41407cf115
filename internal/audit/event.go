// Package audit records who changed which targeting definition and when the
// field catalog was swapped. Events are queued and written to a Sink by a
// background worker so request handlers never block on it.
package audit

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionReloaded = "reloaded"
)

const (
	ResourceTypeTargeting = "targeting"
	ResourceTypeCatalog   = "catalog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Source is the network origin of a request.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// Event is one audited change.
type Event struct {
	OccurredAt   time.Time      `json:"occurred_at"`
	RequestID    string         `json:"request_id"`
	Actor        string         `json:"actor"`
	Source       Source         `json:"source"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	ProgrammeID  string         `json:"programme_id,omitempty"`
	BeforeState  map[string]any `json:"before_state,omitempty"`
	AfterState   map[string]any `json:"after_state,omitempty"`
	Changes      map[string]any `json:"changes,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Diff returns {key: {before, after}} for every top-level key whose JSON
// encoding differs between the two states, or nil when nothing changed.
func Diff(before, after map[string]any) map[string]any {
	changes := make(map[string]any)
	note := func(key string, b, a any) {
		changes[key] = map[string]any{"before": b, "after": a}
	}

	for key, a := range after {
		b, had := before[key]
		if !had || !sameJSON(b, a) {
			note(key, b, a)
		}
	}
	for key, b := range before {
		if _, kept := after[key]; !kept {
			note(key, b, nil)
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}

func sameJSON(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(aj, bj)
}

// DefaultRedactKeys are masked in recorded state wherever they appear.
var DefaultRedactKeys = []string{"password", "secret", "token", "api_key", "authorization"}

const redacted = "[REDACTED]"

// redact returns a copy of state with the values under keys masked, nested
// objects included.
func redact(state map[string]any, keys map[string]bool) map[string]any {
	if state == nil {
		return nil
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		switch nested, isMap := v.(map[string]any); {
		case keys[k]:
			out[k] = redacted
		case isMap:
			out[k] = redact(nested, keys)
		default:
			out[k] = v
		}
	}
	return out
}
