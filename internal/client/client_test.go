package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/wire"
)

func TestClient_PushTargetingChoosesMethod(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotAuth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		var p store.UpsertParams
		_ = json.NewDecoder(r.Body).Decode(&p)
		if p.ID == "" {
			p.ID = "generated"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(store.Targeting{ID: p.ID, Name: p.Name})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	tests := []struct {
		id         string
		wantMethod string
		wantPath   string
	}{
		{"", http.MethodPost, "/v1/targetings"},
		{"t-1", http.MethodPut, "/v1/targetings/t-1"},
	}
	for _, tt := range tests {
		got, err := c.PushTargeting(context.Background(), store.UpsertParams{ID: tt.id, Name: "n"})
		if err != nil {
			t.Fatalf("PushTargeting(%q): %v", tt.id, err)
		}
		if gotMethod != tt.wantMethod || gotPath != tt.wantPath {
			t.Errorf("request = %s %s, want %s %s", gotMethod, gotPath, tt.wantMethod, tt.wantPath)
		}
		if gotAuth != "Bearer secret" {
			t.Errorf("Authorization = %q", gotAuth)
		}
		if got.ID == "" {
			t.Error("expected an ID in the response")
		}
	}
}

func TestClient_ListTargetingsFiltersByProgramme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("programmeId") != "prog-1" {
			t.Errorf("programmeId = %q", r.URL.Query().Get("programmeId"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"targetings": []store.Targeting{{ID: "a"}, {ID: "b"}},
		})
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, "").ListTargetings(context.Background(), "prog-1")
	if err != nil {
		t.Fatalf("ListTargetings: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d targetings, want 2", len(items))
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not Found","message":"targeting not found","code":"NOT_FOUND"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").GetTargeting(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "NOT_FOUND" {
		t.Errorf("unexpected error %#v", err)
	}
}

func TestClient_DeleteAcceptsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "k").DeleteTargeting(context.Background(), "t-1"); err != nil {
		t.Errorf("DeleteTargeting: %v", err)
	}
}

func TestClient_ValidateCriteria(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Criteria           []wire.WireCriterion `json:"criteria"`
			PaymentChannelOpen *bool                `json:"paymentChannelOpen"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Criteria) != 1 || body.PaymentChannelOpen == nil || !*body.PaymentChannelOpen {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"valid":false,"errors":{"criteria[0].fsp":"FSP is required"},"idLists":{}}`))
	}))
	defer srv.Close()

	open, dm := true, "cash"
	def := wire.WireDefinition{Criteria: []wire.WireCriterion{{DeliveryMechanism: &dm}}}
	report, err := NewClient(srv.URL, "").ValidateCriteria(context.Background(), def, &open)
	if err != nil {
		t.Fatalf("ValidateCriteria: %v", err)
	}
	if report.Valid || report.Errors["criteria[0].fsp"] == "" {
		t.Errorf("unexpected report %+v", report)
	}
}
