package wire

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/criteria"
	"github.com/hopekit/targeting/internal/editor"
	"github.com/hopekit/targeting/internal/rules"
)

// FromWireFormat rebuilds a criterion from its wire form, resolving every
// field name against cat. Rules with an empty field name are treated as
// placeholders and skipped. Collections without rules come back nil.
func FromWireFormat(w WireCriterion, cat *catalog.Catalog) (criteria.Criterion, error) {
	c := criteria.Criterion{
		HouseholdIDs:      w.HouseholdIDs,
		IndividualIDs:     w.IndividualIDs,
		DeliveryMechanism: emptyToNil(w.DeliveryMechanism),
		FSP:               emptyToNil(w.FSP),
	}

	var err error
	if c.HouseholdBlocks, err = decodeBlocks(catalog.DomainHousehold, w.HouseholdsFiltersBlocks, cat); err != nil {
		return criteria.Criterion{}, err
	}
	if c.IndividualBlocks, err = decodeBlocks(catalog.DomainIndividual, w.IndividualsFiltersBlocks, cat); err != nil {
		return criteria.Criterion{}, err
	}
	if c.CollectorBlocks, err = decodeBlocks(catalog.DomainCollector, w.CollectorsFiltersBlocks, cat); err != nil {
		return criteria.Criterion{}, err
	}
	return c, nil
}

// DefinitionFromWire rebuilds every criterion of w.
func DefinitionFromWire(w WireDefinition, cat *catalog.Catalog) (criteria.Definition, error) {
	def := criteria.Definition{Criteria: make([]criteria.Criterion, 0, len(w.Criteria))}
	for i, wc := range w.Criteria {
		c, err := FromWireFormat(wc, cat)
		if err != nil {
			return criteria.Definition{}, fmt.Errorf("criteria[%d]: %w", i, err)
		}
		def.Criteria = append(def.Criteria, c)
	}
	return def, nil
}

func decodeBlocks(d catalog.Domain, blocks [][]WireRule, cat *catalog.Catalog) ([]rules.Block, error) {
	var out []rules.Block
	for bi, wb := range blocks {
		var rs []rules.Rule
		for ri, wr := range wb {
			if wr.FieldName == "" {
				continue
			}
			r, err := decodeRule(d, wr, cat)
			if err != nil {
				return nil, fmt.Errorf("%s block %d rule %d: %w", d, bi, ri, err)
			}
			rs = append(rs, r)
		}
		if len(rs) > 0 {
			out = append(out, rules.Block{Rules: rs})
		}
	}
	return out, nil
}

func decodeRule(d catalog.Domain, wr WireRule, cat *catalog.Catalog) (rules.Rule, error) {
	attr, ok := cat.Lookup(d, wr.FieldName)
	if !ok {
		return rules.Rule{}, fmt.Errorf("%w: %s field %q", ErrUnknownField, d, wr.FieldName)
	}
	shape, err := editor.ResolveEditorShape(attr)
	if err != nil {
		return rules.Rule{}, err
	}

	var v editor.Value
	if rs, ok := shape.(editor.RoundScoped); ok {
		inner, err := decodeValue(rs.Inner, wr)
		if err != nil {
			return rules.Rule{}, err
		}
		v = editor.RoundValue{Round: cloneInt(wr.RoundNumber), Inner: inner}
	} else {
		if v, err = decodeValue(shape, wr); err != nil {
			return rules.Rule{}, err
		}
	}
	return rules.Rule{FieldName: attr.Name, Attribute: attr, Value: v}, nil
}

func decodeValue(shape editor.Shape, wr WireRule) (editor.Value, error) {
	switch shape.(type) {
	case editor.SingleValue:
		s, err := asText(wr.Value)
		if err != nil {
			return nil, fieldErr(wr.FieldName, err)
		}
		return editor.Text(s), nil

	case editor.MultiValue:
		values, err := asList(wr.Value)
		if err != nil {
			return nil, fieldErr(wr.FieldName, err)
		}
		return editor.List(values...), nil

	case editor.Range:
		return editor.Between(fromBound(wr.From), fromBound(wr.To)), nil

	case editor.Toggle:
		b, err := asBool(wr.Value)
		if err != nil {
			return nil, fieldErr(wr.FieldName, err)
		}
		return editor.BoolValue{Value: b}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported shape %T for field %q", ErrMalformedValue, shape, wr.FieldName)
	}
}

func fieldErr(field string, err error) error {
	return fmt.Errorf("%w: field %q: %v", ErrMalformedValue, field, err)
}

// asText accepts a string or a number; numbers keep their textual form.
func asText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", v)
	}
}

func asList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, found %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func asBool(v any) (*bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return nil, fmt.Errorf("expected a boolean, got %q", t)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("expected a boolean, got %T", v)
	}
}

func emptyToNil(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return cloneString(p)
}
