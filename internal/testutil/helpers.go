// Package testutil builds in-memory targeting servers for tests of packages
// that talk to the API over HTTP.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hopekit/targeting/internal/api"
	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/snapshot"
	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/wire"
)

// NewTestServer creates a server over the built-in catalog and an
// in-memory store.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	cat, channels, err := catalog.LoadFile("")
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}
	memStore := store.NewMemoryStore()
	server := api.NewServer(api.Deps{
		Store:       memStore,
		Catalog:     snapshot.NewHolder(snapshot.Build(cat, channels)),
		Logger:      zerolog.Nop(),
		AdminAPIKey: adminKey,
	})
	return server, memStore
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SizeRange is a one-criterion definition on household size. An empty
// bound is left open.
func SizeRange(from, to string) wire.WireDefinition {
	rule := wire.WireRule{FieldName: "size"}
	if from != "" {
		b := wire.Bound(from)
		rule.From = &b
	}
	if to != "" {
		b := wire.Bound(to)
		rule.To = &b
	}
	return wire.WireDefinition{Criteria: []wire.WireCriterion{{
		HouseholdsFiltersBlocks:  [][]wire.WireRule{{rule}},
		IndividualsFiltersBlocks: [][]wire.WireRule{},
		CollectorsFiltersBlocks:  [][]wire.WireRule{},
	}}}
}

// SeedTargetings populates the store with test targetings.
func SeedTargetings(ctx context.Context, st store.Store, items []store.UpsertParams) ([]*store.Targeting, error) {
	out := make([]*store.Targeting, 0, len(items))
	for _, p := range items {
		t, err := st.UpsertTargeting(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
