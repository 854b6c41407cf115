package targeting

import (
	"time"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/criteria"
	"github.com/hopekit/targeting/internal/validation"
)

// PreviewResult reports which criteria of a definition a record satisfies.
type PreviewResult struct {
	Matched         bool   `json:"matched"`
	MatchedCriteria []int  `json:"matchedCriteria"`
	Expression      string `json:"expression"`
}

// Preview evaluates def against one sample record. The record is
// normalized with cat first.
func Preview(def criteria.Definition, rec Record, cat *catalog.Catalog) (PreviewResult, error) {
	rule, err := CompileDefinition(def)
	if err != nil {
		return PreviewResult{}, err
	}
	expr, err := Expression(rule)
	if err != nil {
		return PreviewResult{}, err
	}

	normalized := NormalizeRecord(rec, cat)
	result := PreviewResult{Expression: expr, MatchedCriteria: []int{}}

	for i, c := range def.Criteria {
		compiled, err := Compile(c)
		if err != nil {
			return PreviewResult{}, err
		}
		ok, err := Match(compiled, normalized)
		if err != nil {
			return PreviewResult{}, err
		}
		if ok {
			result.MatchedCriteria = append(result.MatchedCriteria, i)
		}
	}
	result.Matched = len(result.MatchedCriteria) > 0
	return result, nil
}

// NormalizeRecord returns a copy of rec in which DATE values, including
// round-scoped ones, are replaced by Unix seconds so ranges compare
// numerically. Values that do not parse are left as they are.
func NormalizeRecord(rec Record, cat *catalog.Catalog) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	for _, d := range catalog.Domains {
		fields, ok := rec[string(d)].(map[string]any)
		if !ok {
			continue
		}
		copied := make(map[string]any, len(fields))
		for name, v := range fields {
			copied[name] = v
			attr, ok := cat.Lookup(d, name)
			if !ok || attr.ValueType() != catalog.TypeDate {
				continue
			}
			if attr.Type == catalog.TypePDU {
				if rounds, ok := v.(map[string]any); ok {
					converted := make(map[string]any, len(rounds))
					for round, rv := range rounds {
						converted[round] = dateSeconds(rv)
					}
					copied[name] = converted
				}
				continue
			}
			copied[name] = dateSeconds(v)
		}
		out[string(d)] = copied
	}
	return out
}

func dateSeconds(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t, err := time.Parse(validation.DateLayout, s)
	if err != nil {
		return v
	}
	return float64(t.Unix())
}
