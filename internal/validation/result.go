// Package validation checks targeting criteria and definition metadata and
// reports field-scoped, recoverable errors.
package validation

import "sort"

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
	// IDLists holds the token breakdown of every non-empty ID list, keyed
	// like Errors (e.g. "householdIds").
	IDLists map[string]IDListReport
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:   true,
		Errors:  make(map[string]string),
		IDLists: make(map[string]IDListReport),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	v.MergePrefixed("", other)
}

// MergePrefixed merges other, prefixing every field key.
func (v *ValidationResult) MergePrefixed(prefix string, other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(prefix+field, message)
	}
	for field, report := range other.IDLists {
		v.IDLists[prefix+field] = report
	}
}

// Fields returns the keys carrying errors, sorted.
func (v *ValidationResult) Fields() []string {
	out := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
