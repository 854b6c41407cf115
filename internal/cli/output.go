package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/validation"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintTargetings outputs targetings in the specified format
func PrintTargetings(w io.Writer, items []store.Targeting, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]store.Targeting{"targetings": items})
	case FormatYAML:
		return printYAML(w, TargetingFile{Targetings: ToFileTargetings(items)})
	case FormatTable:
		return printTargetingTable(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintTargeting outputs a single targeting in the specified format
func PrintTargeting(w io.Writer, t *store.Targeting, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, t)
	case FormatYAML:
		return printYAML(w, ToFileTargeting(*t))
	case FormatTable:
		return printTargetingTable(w, []store.Targeting{*t})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// ValidationOutput is what the validate command prints.
type ValidationOutput struct {
	Valid   bool                               `json:"valid" yaml:"valid"`
	Errors  map[string]string                  `json:"errors" yaml:"errors"`
	IDLists map[string]validation.IDListReport `json:"idLists,omitempty" yaml:"idLists,omitempty"`
}

// PrintValidation outputs a validation report. The table lists one error
// per row, sorted by key.
func PrintValidation(w io.Writer, out ValidationOutput, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, out)
	case FormatYAML:
		return printYAML(w, out)
	case FormatTable:
		if out.Valid {
			_, err := fmt.Fprintln(w, "Criteria are valid")
			return err
		}
		keys := make([]string, 0, len(out.Errors))
		for k := range out.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		table := tablewriter.NewWriter(w)
		table.Header("Field", "Problem")
		for _, k := range keys {
			if err := table.Append(k, out.Errors[k]); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTargetingTable(w io.Writer, items []store.Targeting) error {
	table := tablewriter.NewWriter(w)

	table.Header("ID", "Name", "Programme", "Criteria", "Fingerprint", "Updated At")

	for _, t := range items {
		name := t.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}

		if err := table.Append(
			t.ID,
			name,
			t.ProgrammeID,
			fmt.Sprintf("%d", len(t.Definition.Criteria)),
			t.Fingerprint,
			t.UpdatedAt.Format("2006-01-02 15:04"),
		); err != nil {
			return err
		}
	}

	return table.Render()
}
