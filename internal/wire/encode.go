package wire

import (
	"errors"
	"fmt"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/criteria"
	"github.com/hopekit/targeting/internal/editor"
	"github.com/hopekit/targeting/internal/rules"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrMalformedValue = errors.New("malformed value")
)

// ToWireFormat serializes c. Placeholder rules are dropped along with the
// blocks they leave empty. A rule whose value does not fit its field is an
// error, not a silent omission.
func ToWireFormat(c criteria.Criterion) (WireCriterion, error) {
	w := WireCriterion{
		HouseholdIDs:      c.HouseholdIDs,
		IndividualIDs:     c.IndividualIDs,
		DeliveryMechanism: cloneString(c.DeliveryMechanism),
		FSP:               cloneString(c.FSP),
	}

	var err error
	if w.HouseholdsFiltersBlocks, err = encodeBlocks(catalog.DomainHousehold, c.HouseholdBlocks); err != nil {
		return WireCriterion{}, err
	}
	if w.IndividualsFiltersBlocks, err = encodeBlocks(catalog.DomainIndividual, c.IndividualBlocks); err != nil {
		return WireCriterion{}, err
	}
	if w.CollectorsFiltersBlocks, err = encodeBlocks(catalog.DomainCollector, c.CollectorBlocks); err != nil {
		return WireCriterion{}, err
	}
	return w, nil
}

// DefinitionToWire serializes every criterion of def.
func DefinitionToWire(def criteria.Definition) (WireDefinition, error) {
	out := WireDefinition{Criteria: make([]WireCriterion, 0, len(def.Criteria))}
	for i, c := range def.Criteria {
		w, err := ToWireFormat(c)
		if err != nil {
			return WireDefinition{}, fmt.Errorf("criteria[%d]: %w", i, err)
		}
		out.Criteria = append(out.Criteria, w)
	}
	return out, nil
}

func encodeBlocks(d catalog.Domain, blocks []rules.Block) ([][]WireRule, error) {
	out := make([][]WireRule, 0, len(blocks))
	for bi, b := range blocks {
		var block []WireRule
		for ri, r := range b.Rules {
			if r.IsPlaceholder() {
				continue
			}
			wr, err := encodeRule(r)
			if err != nil {
				return nil, fmt.Errorf("%s block %d rule %d: %w", d, bi, ri, err)
			}
			block = append(block, wr)
		}
		if len(block) > 0 {
			out = append(out, block)
		}
	}
	return out, nil
}

func encodeRule(r rules.Rule) (WireRule, error) {
	if err := rules.ValidateRule(r); err != nil {
		return WireRule{}, err
	}

	wr := WireRule{FieldName: r.FieldName, IsFlexField: r.Attribute.IsFlexField}
	v := r.Value
	if rv, ok := v.(editor.RoundValue); ok {
		wr.RoundNumber = cloneInt(rv.Round)
		v = rv.Inner
	}

	switch val := v.(type) {
	case editor.TextValue:
		wr.Value = val.Value
	case editor.ListValue:
		wr.Value = append([]string{}, val.Values...)
	case editor.RangeValue:
		wr.From = toBound(val.From)
		wr.To = toBound(val.To)
	case editor.BoolValue:
		if val.Value != nil {
			wr.Value = *val.Value
		}
	default:
		return WireRule{}, fmt.Errorf("%w: %T for field %q", ErrMalformedValue, v, r.FieldName)
	}
	return wr, nil
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	n := *p
	return &n
}
