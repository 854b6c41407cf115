package targeting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/criteria"
	"github.com/hopekit/targeting/internal/editor"
	"github.com/hopekit/targeting/internal/rules"
	"github.com/hopekit/targeting/internal/validation"
)

// ErrUncompilable is returned for a rule whose value cannot be expressed,
// such as a range bound that is not a number.
var ErrUncompilable = errors.New("criterion cannot be compiled")

// IDKey is the record key holding a household's or individual's ID.
const IDKey = "id"

// Compile translates one assembled criterion into a JSON Logic rule. Its
// filter categories are ANDed; blocks of one domain are ORed; rules of a
// block are ANDed. A criterion without filters compiles to true.
func Compile(c criteria.Criterion) (any, error) {
	var parts []any

	for _, d := range catalog.Domains {
		blocks, err := c.Blocks(d)
		if err != nil {
			return nil, err
		}
		expr, err := compileBlocks(d, blocks)
		if err != nil {
			return nil, err
		}
		if expr != nil {
			parts = append(parts, expr)
		}
	}

	if ids := validation.TokenizeIDs(c.HouseholdIDs); len(ids) > 0 {
		parts = append(parts, inList(varPath(catalog.DomainHousehold, IDKey), ids))
	}
	if ids := validation.TokenizeIDs(c.IndividualIDs); len(ids) > 0 {
		parts = append(parts, inList(varPath(catalog.DomainIndividual, IDKey), ids))
	}

	return all(parts), nil
}

// CompileDefinition ORs the compiled criteria of def.
func CompileDefinition(def criteria.Definition) (any, error) {
	parts := make([]any, 0, len(def.Criteria))
	for i, c := range def.Criteria {
		expr, err := Compile(c)
		if err != nil {
			return nil, fmt.Errorf("criteria[%d]: %w", i, err)
		}
		parts = append(parts, expr)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return map[string]any{"or": parts}, nil
}

// Expression renders a compiled rule as a JSON string.
func Expression(rule any) (string, error) {
	data, err := json.Marshal(rule)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func compileBlocks(d catalog.Domain, blocks []rules.Block) (any, error) {
	var anyOf []any
	for _, b := range blocks {
		var allOf []any
		for _, r := range b.Rules {
			if r.IsPlaceholder() {
				continue
			}
			expr, err := compileRule(d, r)
			if err != nil {
				return nil, err
			}
			allOf = append(allOf, expr)
		}
		if len(allOf) > 0 {
			anyOf = append(anyOf, all(allOf))
		}
	}

	switch len(anyOf) {
	case 0:
		return nil, nil
	case 1:
		return anyOf[0], nil
	default:
		return map[string]any{"or": anyOf}, nil
	}
}

func compileRule(d catalog.Domain, r rules.Rule) (any, error) {
	if err := rules.ValidateRule(r); err != nil {
		return nil, err
	}

	path := varPath(d, r.FieldName)
	v := r.Value
	if rv, ok := v.(editor.RoundValue); ok {
		if rv.Round == nil {
			return nil, fmt.Errorf("%w: %q has no round number", ErrUncompilable, r.FieldName)
		}
		path += "." + strconv.Itoa(*rv.Round)
		v = rv.Inner
	}

	switch val := v.(type) {
	case editor.TextValue:
		return map[string]any{"==": []any{variable(path), val.Value}}, nil

	case editor.ListValue:
		// Multi-choice fields hold a list; any shared choice matches.
		anyOf := make([]any, 0, len(val.Values))
		for _, choice := range val.Values {
			anyOf = append(anyOf, map[string]any{"in": []any{choice, variable(path)}})
		}
		if len(anyOf) == 1 {
			return anyOf[0], nil
		}
		return map[string]any{"or": anyOf}, nil

	case editor.BoolValue:
		if val.Value == nil {
			return nil, fmt.Errorf("%w: %q has no value", ErrUncompilable, r.FieldName)
		}
		return map[string]any{"==": []any{variable(path), *val.Value}}, nil

	case editor.RangeValue:
		return compileRange(path, r.FieldName, r.Attribute.ValueType(), val)

	default:
		return nil, fmt.Errorf("%w: unsupported value %T", ErrUncompilable, v)
	}
}

func compileRange(path, field string, t catalog.FieldType, rv editor.RangeValue) (any, error) {
	var parts []any
	if rv.From != nil && *rv.From != "" {
		n, err := rangeNumber(t, *rv.From)
		if err != nil {
			return nil, fmt.Errorf("%w: %q from: %v", ErrUncompilable, field, err)
		}
		parts = append(parts, map[string]any{">=": []any{variable(path), n}})
	}
	if rv.To != nil && *rv.To != "" {
		n, err := rangeNumber(t, *rv.To)
		if err != nil {
			return nil, fmt.Errorf("%w: %q to: %v", ErrUncompilable, field, err)
		}
		parts = append(parts, map[string]any{"<=": []any{variable(path), n}})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %q has an empty range", ErrUncompilable, field)
	}
	return all(parts), nil
}

// rangeNumber maps a bound to the number records are compared against.
// Dates become Unix seconds, matching NormalizeRecord.
func rangeNumber(t catalog.FieldType, s string) (float64, error) {
	if t == catalog.TypeDate {
		d, err := time.Parse(validation.DateLayout, s)
		if err != nil {
			return 0, err
		}
		return float64(d.Unix()), nil
	}
	return strconv.ParseFloat(s, 64)
}

func varPath(d catalog.Domain, name string) string {
	return string(d) + "." + name
}

func variable(path string) map[string]any {
	return map[string]any{"var": path}
}

func inList(path string, values []string) map[string]any {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return map[string]any{"in": []any{variable(path), list}}
}

func all(parts []any) any {
	switch len(parts) {
	case 0:
		return true
	case 1:
		return parts[0]
	default:
		return map[string]any{"and": parts}
	}
}
