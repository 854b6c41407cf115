package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/editor"
	"github.com/hopekit/targeting/internal/logging"
	"github.com/hopekit/targeting/internal/snapshot"
	"github.com/hopekit/targeting/internal/telemetry"
)

// streamKeepAlive is how often an idle catalog stream sends a comment line.
const streamKeepAlive = 25 * time.Second

// editorDescriptor tells a client which editor to render for a field.
type editorDescriptor struct {
	Kind        editor.Kind       `json:"kind"`
	FieldType   catalog.FieldType `json:"fieldType"`
	RoundsCount int               `json:"roundsCount,omitempty"`
	RoundsNames []string          `json:"roundsNames,omitempty"`
}

type fieldResponse struct {
	catalog.FieldAttribute
	Editor editorDescriptor `json:"editor"`
}

type fieldsResponse struct {
	ETag   string                             `json:"etag"`
	Fields map[catalog.Domain][]fieldResponse `json:"fields"`
}

// notModified handles If-None-Match against the snapshot's ETag.
func notModified(w http.ResponseWriter, r *http.Request, snap *snapshot.Snapshot) bool {
	setNoCache(w)
	w.Header().Set("ETag", snap.ETag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

// handleListFields serves the catalog, optionally narrowed to one domain,
// with each field's editor shape resolved.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Load()

	domains := catalog.Domains
	if q := r.URL.Query().Get("domain"); q != "" {
		d := catalog.Domain(q)
		if !d.Valid() {
			BadRequestError(w, r, ErrCodeInvalidDomain, fmt.Sprintf("unknown domain %q", q))
			return
		}
		domains = []catalog.Domain{d}
	}

	resp := fieldsResponse{ETag: snap.ETag, Fields: make(map[catalog.Domain][]fieldResponse, len(domains))}
	for _, d := range domains {
		attrs := snap.Catalog.Fields(d)
		out := make([]fieldResponse, 0, len(attrs))
		for i := range attrs {
			desc, err := describeEditor(&attrs[i])
			if err != nil {
				logging.FromRequest(r).Error().Err(err).Str("field", attrs[i].Name).Msg("catalog field cannot be dispatched")
				ConfigurationError(w, r, err.Error())
				return
			}
			out = append(out, fieldResponse{FieldAttribute: attrs[i], Editor: desc})
		}
		resp.Fields[d] = out
	}

	if notModified(w, r, snap) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func describeEditor(attr *catalog.FieldAttribute) (editorDescriptor, error) {
	shape, err := editor.ResolveEditorShape(attr)
	if err != nil {
		return editorDescriptor{}, err
	}
	desc := editorDescriptor{Kind: shape.Kind(), FieldType: attr.ValueType()}
	if rs, ok := shape.(editor.RoundScoped); ok {
		desc.RoundsCount = rs.RoundsCount
		desc.RoundsNames = rs.RoundsNames
	}
	return desc, nil
}

// handlePaymentChannels lists delivery mechanisms with their FSPs. With
// ?deliveryMechanism= it returns only the FSPs serving that mechanism.
func (s *Server) handlePaymentChannels(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Load()

	if dm := r.URL.Query().Get("deliveryMechanism"); dm != "" {
		if !snap.Channels.HasMechanism(dm) {
			NotFoundError(w, r, fmt.Sprintf("unknown delivery mechanism %q", dm))
			return
		}
		if notModified(w, r, snap) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"deliveryMechanism": dm,
			"fsps":              snap.Channels.FSPsFor(dm),
		})
		return
	}

	if notModified(w, r, snap) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"etag":            snap.ETag,
		"paymentChannels": snap.Channels,
	})
}

// handleCatalogStream is a server-sent event stream announcing catalog
// reloads. It sends "init" with the current ETag, then "update" per change.
func (s *Server) handleCatalogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, r, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates, unsubscribe := s.catalog.Subscribe()
	defer unsubscribe()

	telemetry.StreamClients.Inc()
	defer telemetry.StreamClients.Dec()

	writeSSE(w, "init", s.catalog.Load().ETag)
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case etag, ok := <-updates:
			if !ok {
				return
			}
			writeSSE(w, "update", etag)
			flusher.Flush()
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event, etag string) {
	data, _ := json.Marshal(map[string]string{"etag": etag})
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
