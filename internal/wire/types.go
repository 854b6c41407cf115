// Package wire converts criteria to and from the JSON shape consumed by the
// targeting query engine.
package wire

import (
	"encoding/json"
	"fmt"
)

// WireRule is one rule on the wire. Which of Value or From/To is set depends
// on the field type; round-scoped fields add RoundNumber.
type WireRule struct {
	FieldName   string `json:"fieldName" yaml:"fieldName"`
	IsFlexField bool   `json:"isFlexField,omitempty" yaml:"isFlexField,omitempty"`
	RoundNumber *int   `json:"roundNumber,omitempty" yaml:"roundNumber,omitempty"`
	Value       any    `json:"value,omitempty" yaml:"value,omitempty"`
	From        *Bound `json:"from,omitempty" yaml:"from,omitempty"`
	To          *Bound `json:"to,omitempty" yaml:"to,omitempty"`
}

// WireCriterion is a criterion on the wire. Each *FiltersBlocks entry is a
// block: an array of rules.
type WireCriterion struct {
	HouseholdsFiltersBlocks  [][]WireRule `json:"householdsFiltersBlocks" yaml:"householdsFiltersBlocks"`
	IndividualsFiltersBlocks [][]WireRule `json:"individualsFiltersBlocks" yaml:"individualsFiltersBlocks"`
	CollectorsFiltersBlocks  [][]WireRule `json:"collectorsFiltersBlocks" yaml:"collectorsFiltersBlocks"`
	HouseholdIDs             string       `json:"householdIds" yaml:"householdIds"`
	IndividualIDs            string       `json:"individualIds" yaml:"individualIds"`
	DeliveryMechanism        *string      `json:"deliveryMechanism,omitempty" yaml:"deliveryMechanism,omitempty"`
	FSP                      *string      `json:"fsp,omitempty" yaml:"fsp,omitempty"`
}

// WireDefinition is a targeting definition on the wire.
type WireDefinition struct {
	Criteria []WireCriterion `json:"criteria" yaml:"criteria"`
}

// Bound is a range limit. It decodes from a JSON string or number and keeps
// the number's text, so "2.50" and 2.50 both read as "2.50".
type Bound string

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bound) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Bound(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("range bound must be a string or number: %w", err)
	}
	*b = Bound(n.String())
	return nil
}

func toBound(p *string) *Bound {
	if p == nil {
		return nil
	}
	b := Bound(*p)
	return &b
}

func fromBound(b *Bound) *string {
	if b == nil {
		return nil
	}
	s := string(*b)
	return &s
}
