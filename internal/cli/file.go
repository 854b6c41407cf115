package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/wire"
)

// TargetingFile is the document read by push and written by export. JSON
// files parse as well.
type TargetingFile struct {
	Targetings []FileTargeting `yaml:"targetings" json:"targetings"`
}

// FileTargeting is one targeting in a TargetingFile.
type FileTargeting struct {
	ID          string              `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string              `yaml:"name" json:"name"`
	ProgrammeID string              `yaml:"programmeId" json:"programmeId"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	Definition  wire.WireDefinition `yaml:"definition" json:"definition"`
}

// UpsertParams converts t into the request the API expects.
func (t FileTargeting) UpsertParams() store.UpsertParams {
	return store.UpsertParams{
		ID:          t.ID,
		Name:        t.Name,
		ProgrammeID: t.ProgrammeID,
		Description: t.Description,
		Definition:  t.Definition,
	}
}

// ToFileTargeting drops the server-managed fields of t.
func ToFileTargeting(t store.Targeting) FileTargeting {
	return FileTargeting{
		ID:          t.ID,
		Name:        t.Name,
		ProgrammeID: t.ProgrammeID,
		Description: t.Description,
		Definition:  t.Definition,
	}
}

// ToFileTargetings converts a list with ToFileTargeting.
func ToFileTargetings(items []store.Targeting) []FileTargeting {
	out := make([]FileTargeting, 0, len(items))
	for _, t := range items {
		out = append(out, ToFileTargeting(t))
	}
	return out
}

// ReadTargetingFile parses a YAML or JSON targeting file.
func ReadTargetingFile(path string) (*TargetingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var f TargetingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	if len(f.Targetings) == 0 {
		return nil, fmt.Errorf("no targetings found in %s", path)
	}
	return &f, nil
}

// ReadDefinitionFile parses a YAML or JSON file holding {criteria: [...]}.
func ReadDefinitionFile(path string) (wire.WireDefinition, error) {
	var def wire.WireDefinition
	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("failed to parse file: %w", err)
	}
	return def, nil
}
