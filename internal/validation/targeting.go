package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength is the maximum length for targeting names
	MaxNameLength = 128
	// MaxProgrammeIDLength is the maximum length for programme identifiers
	MaxProgrammeIDLength = 64
	// MaxDescriptionLength is the maximum length for targeting descriptions
	MaxDescriptionLength = 500
	// MaxCriteria is the maximum number of criteria in one definition
	MaxCriteria = 20
)

// programmePattern matches alphanumeric characters, underscores, and hyphens
var programmePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// TargetingValidationParams contains the metadata of a saved targeting
type TargetingValidationParams struct {
	Name          string
	ProgrammeID   string
	Description   string
	CriteriaCount int
}

// ValidateTargeting validates targeting metadata and returns a validation result
func ValidateTargeting(params TargetingValidationParams) *ValidationResult {
	result := NewValidationResult()

	result.Merge(ValidateName(params.Name))
	result.Merge(ValidateProgrammeID(params.ProgrammeID))
	result.Merge(ValidateDescription(params.Description))

	if params.CriteriaCount > MaxCriteria {
		result.AddError("criteria", "A targeting must not exceed 20 criteria")
	}

	return result
}

// ValidateName validates a targeting name
func ValidateName(name string) *ValidationResult {
	result := NewValidationResult()
	name = strings.TrimSpace(name)

	if name == "" {
		result.AddError("name", "Name is required")
		return result
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		result.AddError("name", "Name must not exceed 128 characters")
	}

	return result
}

// ValidateProgrammeID validates a programme identifier
func ValidateProgrammeID(id string) *ValidationResult {
	result := NewValidationResult()
	id = strings.TrimSpace(id)

	if id == "" {
		result.AddError("programmeId", "Programme ID is required")
		return result
	}

	if utf8.RuneCountInString(id) > MaxProgrammeIDLength {
		result.AddError("programmeId", "Programme ID must not exceed 64 characters")
		return result
	}

	if !programmePattern.MatchString(id) {
		result.AddError("programmeId", "Programme ID must contain only alphanumeric characters, underscores, and hyphens")
	}

	return result
}

// ValidateDescription validates a targeting description
func ValidateDescription(description string) *ValidationResult {
	result := NewValidationResult()

	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		result.AddError("description", "Description must not exceed 500 characters")
	}

	return result
}
