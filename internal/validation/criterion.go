package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/criteria"
	"github.com/hopekit/targeting/internal/editor"
	"github.com/hopekit/targeting/internal/payment"
	"github.com/hopekit/targeting/internal/rules"
)

// DateLayout is the format of DATE range bounds.
const DateLayout = "2006-01-02"

// Context carries what validation of one criterion depends on besides the
// criterion itself.
type Context struct {
	// CriteriaIndex is the position of the criterion in its definition.
	CriteriaIndex      int
	PaymentChannelOpen bool
	// Channels lists the known delivery mechanisms and their FSPs. When nil,
	// mechanism and FSP values are not checked against a list.
	Channels payment.Channels
	// Catalog resolves rules that carry a field name but no attribute.
	Catalog             *catalog.Catalog
	HouseholdIDPattern  *regexp.Regexp
	IndividualIDPattern *regexp.Regexp
	// Accepted collects IDs across the criteria of one definition.
	Accepted *IDAccumulator
}

// strictPayment reports whether the payment channel is mandatory.
func (ctx Context) strictPayment() bool {
	return ctx.CriteriaIndex == 0 && ctx.PaymentChannelOpen
}

// BlocksKey is the error-key prefix of a domain's block collection.
func BlocksKey(d catalog.Domain) string {
	switch d {
	case catalog.DomainHousehold:
		return "householdsFiltersBlocks"
	case catalog.DomainIndividual:
		return "individualsFiltersBlocks"
	case catalog.DomainCollector:
		return "collectorsFiltersBlocks"
	default:
		return string(d) + "FiltersBlocks"
	}
}

// ValidateCriterion checks c and reports every user-correctable problem in
// the result. The error is non-nil only for configuration problems, such
// as a catalog entry whose type cannot be dispatched.
func ValidateCriterion(c criteria.Criterion, ctx Context) (*ValidationResult, error) {
	result := NewValidationResult()

	for _, d := range catalog.Domains {
		blocks, err := c.Blocks(d)
		if err != nil {
			return nil, err
		}
		if err := validateBlocks(result, BlocksKey(d), d, blocks, ctx); err != nil {
			return nil, err
		}
	}

	validateIDs(result, "householdIds", "household", c.HouseholdIDs, patternOr(ctx.HouseholdIDPattern, DefaultHouseholdIDPattern), ctx.Accepted)
	validateIDs(result, "individualIds", "individual", c.IndividualIDs, patternOr(ctx.IndividualIDPattern, DefaultIndividualIDPattern), ctx.Accepted)

	validatePaymentChannel(result, c, ctx)

	return result, nil
}

// ValidateDefinition validates every criterion with its own index and a
// shared ID accumulator, so an ID repeated across criteria is reported as a
// duplicate. Keys are prefixed with "criteria[i].".
func ValidateDefinition(def criteria.Definition, ctx Context) (*ValidationResult, error) {
	result := NewValidationResult()

	if len(def.Criteria) == 0 {
		result.AddError("criteria", "At least one criterion is required")
		return result, nil
	}

	acc := ctx.Accepted
	if acc == nil {
		acc = NewIDAccumulator()
	}

	for i, c := range def.Criteria {
		prefix := fmt.Sprintf("criteria[%d]", i)
		if c.IsEmpty() {
			result.AddError(prefix, "Criterion must contain at least one filter")
		}

		cctx := ctx
		cctx.CriteriaIndex = i
		cctx.Accepted = acc
		r, err := ValidateCriterion(c, cctx)
		if err != nil {
			return nil, fmt.Errorf("criterion %d: %w", i, err)
		}
		result.MergePrefixed(prefix+".", r)
	}

	return result, nil
}

func validateBlocks(result *ValidationResult, key string, d catalog.Domain, blocks []rules.Block, ctx Context) error {
	for bi, b := range blocks {
		if len(b.Rules) == 0 {
			result.AddError(fmt.Sprintf("%s[%d]", key, bi), "Block must contain at least one rule")
			continue
		}
		for ri, r := range b.Rules {
			ruleKey := fmt.Sprintf("%s[%d][%d]", key, bi, ri)
			if r.IsPlaceholder() {
				// A fresh block may hold a single untouched placeholder.
				if len(b.Rules) > 1 {
					result.AddError(ruleKey+".fieldName", "Field is required")
				}
				continue
			}
			if err := validateRule(result, ruleKey, d, r, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRule(result *ValidationResult, key string, d catalog.Domain, r rules.Rule, ctx Context) error {
	attr := r.Attribute
	if attr == nil && ctx.Catalog != nil {
		attr, _ = ctx.Catalog.Lookup(d, r.FieldName)
	}
	if attr == nil || attr.Name != r.FieldName {
		result.AddError(key+".fieldName", fmt.Sprintf("Unknown field %q", r.FieldName))
		return nil
	}
	if attr.Domain != d {
		result.AddError(key+".fieldName", fmt.Sprintf("Field %q is not a %s field", r.FieldName, d))
		return nil
	}

	shape, err := editor.ResolveEditorShape(attr)
	if err != nil {
		return err
	}
	if r.Value == nil || !shape.Accepts(r.Value) {
		result.AddError(key+".value", "Value does not match the field type")
		return nil
	}

	if rs, ok := shape.(editor.RoundScoped); ok {
		rv := r.Value.(editor.RoundValue)
		switch {
		case rv.Round == nil:
			result.AddError(key+".roundNumber", "Round number is required")
		case *rv.Round < 1 || *rv.Round > rs.RoundsCount:
			result.AddError(key+".roundNumber", fmt.Sprintf("Round number must be between 1 and %d", rs.RoundsCount))
		}
		validateValue(result, key, rs.Inner, rv.Inner)
		return nil
	}

	validateValue(result, key, shape, r.Value)
	return nil
}

func validateValue(result *ValidationResult, key string, shape editor.Shape, v editor.Value) {
	switch s := shape.(type) {
	case editor.SingleValue:
		tv := v.(editor.TextValue)
		value := strings.TrimSpace(tv.Value)
		if value == "" {
			result.AddError(key+".value", "Value is required")
			return
		}
		if s.FieldType == catalog.TypeSelectOne && !hasChoice(s.Choices, value) {
			result.AddError(key+".value", fmt.Sprintf("%q is not a valid choice", value))
		}

	case editor.MultiValue:
		lv := v.(editor.ListValue)
		if len(lv.Values) == 0 {
			result.AddError(key+".value", "Select at least one value")
			return
		}
		var bad []string
		for _, val := range lv.Values {
			if !hasChoice(s.Choices, val) {
				bad = append(bad, val)
			}
		}
		if len(bad) > 0 {
			result.AddError(key+".value", "Not valid choices: "+strings.Join(bad, ", "))
		}

	case editor.Range:
		validateRange(result, key, s.FieldType, v.(editor.RangeValue))

	case editor.Toggle:
		if v.(editor.BoolValue).Value == nil {
			result.AddError(key+".value", "Value is required")
		}
	}
}

func validateRange(result *ValidationResult, key string, t catalog.FieldType, rv editor.RangeValue) {
	from, hasFrom := bound(rv.From)
	to, hasTo := bound(rv.To)
	if !hasFrom && !hasTo {
		result.AddError(key+".from", "Enter at least one of from or to")
		return
	}

	fromN, fromOK := parseBound(t, from)
	toN, toOK := parseBound(t, to)
	if hasFrom && !fromOK {
		result.AddError(key+".from", boundMessage(t))
	}
	if hasTo && !toOK {
		result.AddError(key+".to", boundMessage(t))
	}
	if hasFrom && hasTo && fromOK && toOK && fromN > toN {
		result.AddError(key+".to", "To must not be less than from")
	}
}

// parseBound maps a range bound to a comparable number.
func parseBound(t catalog.FieldType, s string) (float64, bool) {
	switch t {
	case catalog.TypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		return float64(n), err == nil
	case catalog.TypeDecimal:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case catalog.TypeDate:
		d, err := time.Parse(DateLayout, s)
		return float64(d.Unix()), err == nil
	default:
		return 0, false
	}
}

func boundMessage(t catalog.FieldType) string {
	switch t {
	case catalog.TypeInteger:
		return "Must be a whole number"
	case catalog.TypeDate:
		return "Must be a date in YYYY-MM-DD format"
	default:
		return "Must be a number"
	}
}

func bound(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	s := strings.TrimSpace(*p)
	return s, s != ""
}

func hasChoice(choices []catalog.Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

func validateIDs(result *ValidationResult, key, label, raw string, pattern *regexp.Regexp, acc *IDAccumulator) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	if acc == nil {
		acc = NewIDAccumulator()
	}

	report := CheckIDList(raw, pattern, acc)
	result.IDLists[key] = report

	if len(report.Invalid) > 0 {
		result.AddError(key, fmt.Sprintf("Invalid %s IDs: %s", label, strings.Join(report.Invalid, ", ")))
	}
	if len(report.Duplicates) > 0 {
		result.AddError(key+".duplicates", fmt.Sprintf("Duplicate %s IDs: %s", label, strings.Join(report.Duplicates, ", ")))
	}
}

// validatePaymentChannel applies the strict schema (both values required)
// to the first criterion while its payment section is open, and the
// lenient schema (both optional) otherwise. Chosen values are checked
// against the channel list in both schemas.
func validatePaymentChannel(result *ValidationResult, c criteria.Criterion, ctx Context) {
	dm, hasDM := bound(c.DeliveryMechanism)
	fsp, hasFSP := bound(c.FSP)

	if ctx.strictPayment() {
		if !hasDM {
			result.AddError("deliveryMechanism", "Delivery mechanism is required")
		}
		if !hasFSP {
			result.AddError("fsp", "FSP is required")
		}
	}

	if hasDM && ctx.Channels != nil && !ctx.Channels.HasMechanism(dm) {
		result.AddError("deliveryMechanism", fmt.Sprintf("Unknown delivery mechanism %q", dm))
		return
	}
	if !hasFSP {
		return
	}
	if !hasDM {
		if !ctx.strictPayment() {
			result.AddError("fsp", "Select a delivery mechanism before an FSP")
		}
		return
	}
	if ctx.Channels != nil && !ctx.Channels.Compatible(dm, fsp) {
		result.AddError("fsp", fmt.Sprintf("FSP %q cannot serve delivery mechanism %q", fsp, dm))
	}
}

func patternOr(p, def *regexp.Regexp) *regexp.Regexp {
	if p != nil {
		return p
	}
	return def
}
