package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hopekit/targeting/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v and writes the error response
// itself when that fails. It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RequestTooLargeError(w, r, "request body exceeds 1MB")
			return false
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// setNoCache marks a response as revalidate-always.
func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// targetingToMap converts a targeting to a generic map for audit and event
// payloads. It returns nil for nil.
func targetingToMap(t *store.Targeting) map[string]any {
	if t == nil {
		return nil
	}
	blob, err := json.Marshal(t)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(blob, &m); err != nil {
		return nil
	}
	return m
}
