package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hopekit/targeting/internal/audit"
	"github.com/hopekit/targeting/internal/events"
	"github.com/hopekit/targeting/internal/logging"
	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/targeting"
	"github.com/hopekit/targeting/internal/telemetry"
	"github.com/hopekit/targeting/internal/validation"
	"github.com/hopekit/targeting/internal/wire"
)

type upsertRequest struct {
	ID                 string              `json:"id,omitempty"`
	Name               string              `json:"name"`
	ProgrammeID        string              `json:"programmeId"`
	Description        string              `json:"description"`
	Definition         wire.WireDefinition `json:"definition"`
	PaymentChannelOpen *bool               `json:"paymentChannelOpen,omitempty"`
}

type listResponse struct {
	Targetings []store.Targeting `json:"targetings"`
}

type previewRequest struct {
	Record targeting.Record `json:"record"`
}

func (s *Server) handleListTargetings(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListTargetings(r.Context(), r.URL.Query().Get("programmeId"))
	if err != nil {
		logging.FromRequest(r).Error().Err(err).Msg("list targetings failed")
		InternalError(w, r, "failed to list targetings")
		return
	}
	if items == nil {
		items = []store.Targeting{}
	}
	writeJSON(w, http.StatusOK, listResponse{Targetings: items})
}

func (s *Server) handleGetTargeting(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTargeting(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// loadTargeting fetches id and writes the 404 or 500 itself on failure.
func (s *Server) loadTargeting(w http.ResponseWriter, r *http.Request, id string) (*store.Targeting, bool) {
	t, err := s.store.GetTargeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "targeting not found")
		return nil, false
	}
	if err != nil {
		logging.FromRequest(r).Error().Err(err).Str("targeting_id", id).Msg("get targeting failed")
		InternalError(w, r, "failed to load targeting")
		return nil, false
	}
	return t, true
}

// handleUpsertTargeting validates metadata and criteria together, stores the
// canonical wire form and announces the change.
func (s *Server) handleUpsertTargeting(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}

	result := validation.ValidateTargeting(validation.TargetingValidationParams{
		Name:          req.Name,
		ProgrammeID:   req.ProgrammeID,
		Description:   req.Description,
		CriteriaCount: len(req.Definition.Criteria),
	})
	def, defResult, ok := s.checkDefinition(w, r, req.Definition, req.PaymentChannelOpen)
	if !ok {
		return
	}
	result.MergePrefixed("definition.", defResult)
	if !result.Valid {
		ValidationError(w, r, "targeting is invalid", result)
		return
	}

	canonical, err := wire.DefinitionToWire(def)
	if err != nil {
		logging.FromRequest(r).Error().Err(err).Msg("encode definition failed")
		InternalError(w, r, "failed to encode definition")
		return
	}

	var before *store.Targeting
	if req.ID != "" {
		before, err = s.store.GetTargeting(r.Context(), req.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			logging.FromRequest(r).Error().Err(err).Str("targeting_id", req.ID).Msg("get targeting failed")
			InternalError(w, r, "failed to load targeting")
			return
		}
	}

	saved, err := s.store.UpsertTargeting(r.Context(), store.UpsertParams{
		ID:          req.ID,
		Name:        strings.TrimSpace(req.Name),
		ProgrammeID: req.ProgrammeID,
		Description: req.Description,
		Definition:  canonical,
	})
	if err != nil {
		logging.FromRequest(r).Error().Err(err).Msg("upsert targeting failed")
		InternalError(w, r, "failed to save targeting")
		return
	}
	telemetry.Targetings.WithLabelValues("upsert").Inc()

	action := audit.ActionUpdated
	status := http.StatusOK
	if before == nil {
		action = audit.ActionCreated
		status = http.StatusCreated
	}
	s.announce(r, before, saved, saved.ID, saved.ProgrammeID, action)

	writeJSON(w, status, saved)
}

func (s *Server) handleDeleteTargeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	before, ok := s.loadTargeting(w, r, id)
	if !ok {
		return
	}

	existed, err := s.store.DeleteTargeting(r.Context(), id)
	if err != nil {
		logging.FromRequest(r).Error().Err(err).Str("targeting_id", id).Msg("delete targeting failed")
		InternalError(w, r, "failed to delete targeting")
		return
	}
	if !existed {
		NotFoundError(w, r, "targeting not found")
		return
	}
	telemetry.Targetings.WithLabelValues("delete").Inc()
	s.announce(r, before, nil, id, before.ProgrammeID, audit.ActionDeleted)

	w.WriteHeader(http.StatusNoContent)
}

// handlePreviewTargeting evaluates a saved definition against a sample
// record using the current catalog.
func (s *Server) handlePreviewTargeting(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTargeting(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req previewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	def, err := wire.DefinitionFromWire(t.Definition, s.catalog.Load().Catalog)
	if err != nil {
		s.decodeFailure(w, r, err)
		return
	}
	s.writePreview(w, r, def, req.Record)
}

// announce publishes the change event and records the audit entry. Neither
// failure fails the request.
func (s *Server) announce(r *http.Request, before, after *store.Targeting, id, programmeID, action string) {
	beforeState, afterState := targetingToMap(before), targetingToMap(after)

	b := events.NewBuilder(r).ForTargeting(id, programmeID).WithStates(beforeState, afterState)
	if after != nil {
		b = b.WithFingerprint(after.Fingerprint)
	}
	// the request context may be cancelled as soon as the handler returns
	if err := s.publisher.Publish(context.WithoutCancel(r.Context()), b.Build()); err != nil {
		logging.FromRequest(r).Warn().Err(err).Str("targeting_id", id).Msg("failed to publish change event")
	}

	if s.audit != nil {
		s.audit.Log(audit.TargetingChange(r, action, id, programmeID, beforeState, afterState))
	}
}
