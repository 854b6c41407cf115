// Package targeting compiles assembled criteria to JSON Logic
// (jsonlogic.com) and evaluates them against a single sample beneficiary
// record for previews.
package targeting

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// Record is one beneficiary as seen by a compiled rule, grouped by domain:
//
//	{"household": {...}, "individual": {...}, "collector": {...}}
//
// Round-scoped values are objects keyed by round number: {"muac": {"1": 11.5}}.
type Record map[string]any

// ErrRuleRejected is returned when the JSON Logic engine refuses a compiled
// rule.
var ErrRuleRejected = errors.New("rule rejected by evaluator")

// Match reports whether rec satisfies a compiled rule. A nil rule matches
// every record, the same as a criterion without filters.
func Match(rule any, rec Record) (bool, error) {
	if rule == nil {
		return true, nil
	}
	ruleJSON, err := json.Marshal(rule)
	if err != nil {
		return false, fmt.Errorf("encode rule: %w", err)
	}
	if rec == nil {
		rec = Record{}
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}

	out, err := jsonlogic.ApplyRaw(ruleJSON, recJSON)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRuleRejected, err)
	}

	var verdict any
	if err := json.Unmarshal(out, &verdict); err != nil {
		return false, fmt.Errorf("decode verdict: %w", err)
	}
	return truthy(verdict), nil
}

// truthy applies JSON Logic truthiness to a decoded verdict.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
