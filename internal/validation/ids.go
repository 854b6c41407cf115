package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// Default ID formats: HH-##-####.#### and IND-##-####.####.
var (
	DefaultHouseholdIDPattern  = regexp.MustCompile(`^HH-\d{2}-\d{4}\.\d{4}$`)
	DefaultIndividualIDPattern = regexp.MustCompile(`^IND-\d{2}-\d{4}\.\d{4}$`)
)

// IDListReport splits an ID list into accepted tokens, tokens that do not
// match the pattern and tokens already accepted elsewhere. The lists are
// disjoint and keep input order. Repeated names tokens that occur more than
// once in the same list; it is informational and does not affect OK.
type IDListReport struct {
	Valid      []string `json:"valid"`
	Invalid    []string `json:"invalid"`
	Duplicates []string `json:"duplicates"`
	Repeated   []string `json:"repeated,omitempty"`
}

// OK reports whether the list has neither invalid nor duplicate tokens.
func (r IDListReport) OK() bool {
	return len(r.Invalid) == 0 && len(r.Duplicates) == 0
}

// IDAccumulator remembers the IDs accepted so far during one validation
// pass. It is not safe for concurrent use.
type IDAccumulator struct {
	seen map[string]struct{}
}

// NewIDAccumulator returns an empty accumulator.
func NewIDAccumulator() *IDAccumulator {
	return &IDAccumulator{seen: make(map[string]struct{})}
}

// Accept records id and reports whether it was new.
func (a *IDAccumulator) Accept(id string) bool {
	if _, ok := a.seen[id]; ok {
		return false
	}
	a.seen[id] = struct{}{}
	return true
}

// Seen reports whether id has been accepted.
func (a *IDAccumulator) Seen(id string) bool {
	_, ok := a.seen[id]
	return ok
}

// TokenizeIDs splits raw on commas and whitespace, dropping empty tokens.
func TokenizeIDs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// CheckIDList validates every token of raw against pattern. Repeats within
// raw are folded into their first occurrence and listed once in Repeated;
// a token is a duplicate only
// when acc had already accepted it. Valid tokens are recorded in acc, which
// may be nil to skip duplicate detection.
func CheckIDList(raw string, pattern *regexp.Regexp, acc *IDAccumulator) IDListReport {
	var report IDListReport
	folded := make(map[string]int)

	for _, tok := range TokenizeIDs(raw) {
		n := folded[tok]
		folded[tok] = n + 1
		if n > 0 {
			if n == 1 {
				report.Repeated = append(report.Repeated, tok)
			}
			continue
		}

		switch {
		case !pattern.MatchString(tok):
			report.Invalid = append(report.Invalid, tok)
		case acc != nil && !acc.Accept(tok):
			report.Duplicates = append(report.Duplicates, tok)
		default:
			report.Valid = append(report.Valid, tok)
		}
	}
	return report
}
