package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hopekit/targeting/internal/auth"
)

type failingSink struct{}

func (failingSink) Write(context.Context, Event) error { return errors.New("disk full") }

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		before map[string]any
		after  map[string]any
		want   int
	}{
		{"both nil", nil, nil, 0},
		{"no changes", map[string]any{"name": "a"}, map[string]any{"name": "a"}, 0},
		{"value changed", map[string]any{"name": "a"}, map[string]any{"name": "b"}, 1},
		{"key added", map[string]any{}, map[string]any{"fsp": "M-Pesa"}, 1},
		{"key removed", map[string]any{"fsp": "M-Pesa"}, map[string]any{}, 1},
		{"created", nil, map[string]any{"name": "a", "programme_id": "p"}, 2},
		{
			"nested change",
			map[string]any{"definition": map[string]any{"criteria": []any{}}},
			map[string]any{"definition": map[string]any{"criteria": []any{"x"}}},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diff(tt.before, tt.after); len(got) != tt.want {
				t.Errorf("Diff() = %v, want %d changes", got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	keys := map[string]bool{"secret": true, "token": true}
	out := redact(map[string]any{
		"name":   "winter cash",
		"secret": "s",
		"webhook": map[string]any{
			"token": "t",
			"url":   "https://x",
		},
	}, keys)

	if out["secret"] != redacted {
		t.Errorf("secret not redacted: %v", out["secret"])
	}
	nested := out["webhook"].(map[string]any)
	if nested["token"] != redacted || nested["url"] != "https://x" {
		t.Errorf("nested redaction wrong: %v", nested)
	}
	if out["name"] != "winter cash" {
		t.Errorf("name altered: %v", out["name"])
	}
	if redact(nil, keys) != nil {
		t.Error("redact(nil) should be nil")
	}
}

func TestService_LogAndClose(t *testing.T) {
	sink := &MemorySink{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(sink, zerolog.Nop(),
		WithClock(func() time.Time { return now }),
		WithIDs(func() string { return "req-1" }),
		WithQueueSize(10),
	)

	svc.Log(Event{
		Action:       ActionUpdated,
		ResourceType: ResourceTypeTargeting,
		ResourceID:   "t-1",
		Status:       StatusSuccess,
		BeforeState:  map[string]any{"name": "old"},
		AfterState:   map[string]any{"name": "new", "secret": "x"},
	})
	// Close drains the queue, so no sleep is needed.
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.RequestID != "req-1" || !e.OccurredAt.Equal(now) {
		t.Errorf("defaults not applied: %+v", e)
	}
	if e.AfterState["secret"] != redacted {
		t.Errorf("after_state not redacted: %v", e.AfterState)
	}
	if _, ok := e.Changes["name"]; !ok {
		t.Errorf("changes not computed: %v", e.Changes)
	}

	svc.Log(Event{ResourceID: "after-close"})
	if len(sink.Events()) != 1 {
		t.Error("event logged after Close")
	}
}

func TestService_SinkErrorDoesNotStopWorker(t *testing.T) {
	svc := NewService(failingSink{}, zerolog.Nop(), WithQueueSize(2))
	svc.Log(Event{ResourceID: "a"})
	svc.Log(Event{ResourceID: "b"})
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestTargetingChange(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/v1/targetings/t-1", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{Role: auth.RoleAdmin, Actor: "admin-key"}))

	e := TargetingChange(req, ActionDeleted, "t-1", "prog-1", map[string]any{"name": "old"}, nil)

	if e.Actor != "admin-key" || e.ResourceID != "t-1" || e.ProgrammeID != "prog-1" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.ResourceType != ResourceTypeTargeting || e.Status != StatusSuccess {
		t.Errorf("unexpected event %+v", e)
	}
	if e.AfterState != nil {
		t.Errorf("AfterState = %v, want nil for a delete", e.AfterState)
	}

	anon := TargetingChange(httptest.NewRequest(http.MethodPost, "/", nil), ActionCreated, "t-2", "p", nil, nil)
	if anon.Actor != "anonymous" {
		t.Errorf("actor = %q, want anonymous", anon.Actor)
	}
}

func TestCatalogReload(t *testing.T) {
	ok := CatalogReload("catalog.toml", `W/"abc"`, nil)
	if ok.Actor != SystemActor || ok.Status != StatusSuccess || ok.AfterState["etag"] != `W/"abc"` {
		t.Errorf("unexpected event %+v", ok)
	}

	failed := CatalogReload("catalog.toml", "", errors.New("bad type"))
	if failed.Status != StatusFailure || failed.ErrorMessage != "bad type" {
		t.Errorf("failure not recorded: %+v", failed)
	}
	if failed.AfterState != nil {
		t.Errorf("failed reload carries state %v", failed.AfterState)
	}
}

func TestService_CustomRedactKeys(t *testing.T) {
	sink := &MemorySink{}
	svc := NewService(sink, zerolog.Nop(), WithRedactKeys("fsp"))
	svc.Log(Event{ResourceID: "t-1", AfterState: map[string]any{"fsp": "M-Pesa", "secret": "kept"}})
	_ = svc.Close()

	e := sink.Events()[0]
	if e.AfterState["fsp"] != redacted || e.AfterState["secret"] != "kept" {
		t.Errorf("AfterState = %v", e.AfterState)
	}
}
