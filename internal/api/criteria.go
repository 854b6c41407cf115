package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/criteria"
	"github.com/hopekit/targeting/internal/logging"
	"github.com/hopekit/targeting/internal/targeting"
	"github.com/hopekit/targeting/internal/telemetry"
	"github.com/hopekit/targeting/internal/validation"
	"github.com/hopekit/targeting/internal/wire"
)

// criteriaRequest is the body of the /v1/criteria endpoints.
type criteriaRequest struct {
	Criteria []wire.WireCriterion `json:"criteria"`
	// PaymentChannelOpen says whether the first criterion's payment section
	// is open. When absent it is open iff a mechanism or FSP is set.
	PaymentChannelOpen *bool            `json:"paymentChannelOpen,omitempty"`
	Record             targeting.Record `json:"record,omitempty"`
}

type validationResponse struct {
	Valid   bool                               `json:"valid"`
	Errors  map[string]string                  `json:"errors"`
	IDLists map[string]validation.IDListReport `json:"idLists"`
}

type compileResponse struct {
	Definition wire.WireDefinition `json:"definition"`
	Expression json.RawMessage     `json:"expression"`
	Criteria   []json.RawMessage   `json:"criteria"`
}

// paymentForms rebuilds the editor state of each decoded criterion. The
// first criterion's payment section follows open when the client sent it;
// every other section is open iff it carries a mechanism or FSP.
func paymentForms(def criteria.Definition, open *bool) []criteria.FormState {
	forms := make([]criteria.FormState, len(def.Criteria))
	for i, c := range def.Criteria {
		forms[i] = criteria.Rehydrate(c)
	}
	if open != nil && len(forms) > 0 {
		forms[0].PaymentChannelOpen = *open
	}
	return forms
}

// checkDefinition decodes wd against the current catalog, assembles it the
// way the editor submits it and validates the result. A closed payment
// section drops the first criterion's mechanism and FSP.
// Decoding and configuration failures are written to w and reported as
// ok == false; validation failures are left to the caller.
func (s *Server) checkDefinition(w http.ResponseWriter, r *http.Request, wd wire.WireDefinition, open *bool) (criteria.Definition, *validation.ValidationResult, bool) {
	snap := s.catalog.Load()

	decoded, err := wire.DefinitionFromWire(wd, snap.Catalog)
	if err != nil {
		s.decodeFailure(w, r, err)
		return criteria.Definition{}, nil, false
	}
	forms := paymentForms(decoded, open)
	def := criteria.AssembleAll(forms)

	paymentOpen := false
	if len(forms) > 0 {
		paymentOpen = forms[0].PaymentChannelOpen
	}

	result, err := validation.ValidateDefinition(def, validation.Context{
		PaymentChannelOpen:  paymentOpen,
		Channels:            snap.Channels,
		Catalog:             snap.Catalog,
		HouseholdIDPattern:  s.householdIDPattern,
		IndividualIDPattern: s.individualIDPattern,
	})
	if err != nil {
		s.decodeFailure(w, r, err)
		return criteria.Definition{}, nil, false
	}
	telemetry.ObserveValidation(result.Valid)
	return def, result, true
}

func (s *Server) decodeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if catalog.IsConfigurationError(err) {
		logging.FromRequest(r).Error().Err(err).Msg("catalog configuration error")
		ConfigurationError(w, r, err.Error())
		return
	}
	BadRequestError(w, r, ErrCodeInvalidCriteria, err.Error())
}

// handleValidateCriteria reports every validation problem. Invalid criteria
// are a normal outcome here, so the status is 200 either way.
func (s *Server) handleValidateCriteria(w http.ResponseWriter, r *http.Request) {
	var req criteriaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, result, ok := s.checkDefinition(w, r, wire.WireDefinition{Criteria: req.Criteria}, req.PaymentChannelOpen)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, validationResponse{Valid: result.Valid, Errors: result.Errors, IDLists: result.IDLists})
}

// handleCompileCriteria returns the canonical wire form and the JSON Logic
// expression of valid criteria.
func (s *Server) handleCompileCriteria(w http.ResponseWriter, r *http.Request) {
	var req criteriaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	def, result, ok := s.checkDefinition(w, r, wire.WireDefinition{Criteria: req.Criteria}, req.PaymentChannelOpen)
	if !ok {
		return
	}
	if !result.Valid {
		ValidationError(w, r, "criteria are invalid", result)
		return
	}

	resp, err := compileDefinition(def)
	if err != nil {
		if errors.Is(err, targeting.ErrUncompilable) {
			BadRequestError(w, r, ErrCodeUncompilable, err.Error())
			return
		}
		InternalError(w, r, "failed to compile criteria")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func compileDefinition(def criteria.Definition) (compileResponse, error) {
	wd, err := wire.DefinitionToWire(def)
	if err != nil {
		return compileResponse{}, err
	}
	rule, err := targeting.CompileDefinition(def)
	if err != nil {
		return compileResponse{}, err
	}
	expr, err := targeting.Expression(rule)
	if err != nil {
		return compileResponse{}, err
	}

	resp := compileResponse{Definition: wd, Expression: json.RawMessage(expr), Criteria: make([]json.RawMessage, 0, len(def.Criteria))}
	for _, c := range def.Criteria {
		compiled, err := targeting.Compile(c)
		if err != nil {
			return compileResponse{}, err
		}
		cexpr, err := targeting.Expression(compiled)
		if err != nil {
			return compileResponse{}, err
		}
		resp.Criteria = append(resp.Criteria, json.RawMessage(cexpr))
	}
	return resp, nil
}

// handlePreviewCriteria evaluates unsaved criteria against a sample record.
func (s *Server) handlePreviewCriteria(w http.ResponseWriter, r *http.Request) {
	var req criteriaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	def, result, ok := s.checkDefinition(w, r, wire.WireDefinition{Criteria: req.Criteria}, req.PaymentChannelOpen)
	if !ok {
		return
	}
	if !result.Valid {
		ValidationError(w, r, "criteria are invalid", result)
		return
	}
	s.writePreview(w, r, def, req.Record)
}

func (s *Server) writePreview(w http.ResponseWriter, r *http.Request, def criteria.Definition, rec targeting.Record) {
	if rec == nil {
		rec = targeting.Record{}
	}
	res, err := targeting.Preview(def, rec, s.catalog.Load().Catalog)
	if err != nil {
		if errors.Is(err, targeting.ErrUncompilable) {
			BadRequestError(w, r, ErrCodeUncompilable, err.Error())
			return
		}
		logging.FromRequest(r).Error().Err(err).Msg("preview failed")
		InternalError(w, r, "failed to evaluate criteria")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
