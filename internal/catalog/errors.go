package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ConfigurationError.
var (
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrUnknownDomain    = errors.New("unknown domain")
	ErrMalformedField   = errors.New("malformed field attribute")
	ErrDuplicateField   = errors.New("duplicate field attribute")
)

// ConfigurationError reports a malformed catalog entry. It is fatal to the
// builder session: no user input can repair it.
type ConfigurationError struct {
	Field   string // Name of the offending field attribute
	Message string // Human-readable error message
	Err     error  // Sentinel classifying the failure
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog configuration error [%s]: %v: %s", e.Field, e.Err, e.Message)
	}
	return fmt.Sprintf("catalog configuration error [%s]: %s", e.Field, e.Message)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func configError(field string, sentinel error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel}
}
