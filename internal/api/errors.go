package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hopekit/targeting/internal/validation"
)

// ErrorCode is the machine-readable reason of a failed request.
type ErrorCode string

const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeRequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"
	ErrCodeConfiguration   ErrorCode = "CONFIGURATION_ERROR"

	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrCodeInvalidDomain   ErrorCode = "INVALID_DOMAIN"
	ErrCodeInvalidCriteria ErrorCode = "INVALID_CRITERIA"
	ErrCodeUncompilable    ErrorCode = "UNCOMPILABLE"
)

var codeStatus = map[ErrorCode]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeConfiguration:   http.StatusInternalServerError,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// Status is the HTTP status a code is served with. Codes without an entry
// describe a bad request.
func (c ErrorCode) Status() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}
	return http.StatusBadRequest
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string                             `json:"error"`
	Message   string                             `json:"message"`
	Code      ErrorCode                          `json:"code"`
	Fields    map[string]string                  `json:"fields,omitempty"`
	IDLists   map[string]validation.IDListReport `json:"idLists,omitempty"`
	RequestID string                             `json:"request_id,omitempty"`
}

// NewErrorResponse returns the body for code.
func NewErrorResponse(code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{Error: http.StatusText(code.Status()), Message: message, Code: code}
}

// WithIDLists attaches the ID list breakdowns that have problems.
func (e *ErrorResponse) WithIDLists(lists map[string]validation.IDListReport) *ErrorResponse {
	for key, report := range lists {
		if report.OK() {
			continue
		}
		if e.IDLists == nil {
			e.IDLists = make(map[string]validation.IDListReport)
		}
		e.IDLists[key] = report
	}
	return e
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, resp *ErrorResponse) {
	resp.RequestID = middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code.Status())
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	writeErrorResponse(w, r, NewErrorResponse(code, message))
}

// ValidationError writes a 400 carrying every field error of result.
func ValidationError(w http.ResponseWriter, r *http.Request, message string, result *validation.ValidationResult) {
	resp := NewErrorResponse(ErrCodeValidation, message).WithIDLists(result.IDLists)
	resp.Fields = result.Errors
	writeErrorResponse(w, r, resp)
}

// BadRequestError writes a 400 with a specific code.
func BadRequestError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	writeError(w, r, code, message)
}

func UnauthorizedError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, ErrCodeUnauthorized, message)
}

func ForbiddenError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, ErrCodeForbidden, message)
}

func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, ErrCodeInternal, message)
}

// ConfigurationError reports a broken field catalog. The caller cannot fix
// it, so it is a 500.
func ConfigurationError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, ErrCodeConfiguration, message)
}

func NotFoundError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, ErrCodeNotFound, message)
}

// RateLimitedError is the httprate limit handler.
func RateLimitedError(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, ErrCodeRateLimited, "rate limit exceeded")
}

func RequestTooLargeError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, ErrCodeRequestTooLarge, message)
}

// authError adapts the envelope to auth.ErrorWriter.
func authError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status == http.StatusForbidden {
		ForbiddenError(w, r, message)
		return
	}
	UnauthorizedError(w, r, message)
}
