package rules

import (
	"errors"
	"fmt"

	"github.com/hopekit/targeting/internal/editor"
)

// Sentinel errors returned by the block transitions and ValidateRule.
var (
	ErrRuleIndexOutOfRange  = errors.New("rule index out of range")
	ErrBlockIndexOutOfRange = errors.New("block index out of range")
	ErrInvalidRule          = errors.New("invalid rule")
	ErrUnresolvedField      = errors.New("field name has no resolved attribute")
	ErrValueShapeMismatch   = errors.New("value does not match field shape")
	ErrNotRoundScoped       = errors.New("field is not round-scoped")
)

// ValidateRule performs structural validation of a chosen rule: the
// attribute is resolved and the value has the shape the attribute demands.
// It does not judge whether the value is complete; that is a user-facing
// concern reported by the validation package.
// It is a pure function: it never mutates r and has no side effects.
func ValidateRule(r Rule) error {
	if r.IsPlaceholder() {
		return fmt.Errorf("%w: placeholder rule has no field", ErrInvalidRule)
	}
	if r.Attribute == nil {
		return fmt.Errorf("%w: %q", ErrUnresolvedField, r.FieldName)
	}
	if r.Attribute.Name != r.FieldName {
		return fmt.Errorf("%w: field name %q does not match attribute %q", ErrInvalidRule, r.FieldName, r.Attribute.Name)
	}

	shape, err := editor.ResolveEditorShape(r.Attribute)
	if err != nil {
		return err
	}
	return checkShape(r.FieldName, shape, r.Value)
}

func checkShape(field string, shape editor.Shape, v editor.Value) error {
	if v == nil {
		return fmt.Errorf("%w: field %q has no value", ErrValueShapeMismatch, field)
	}
	if !shape.Accepts(v) {
		return fmt.Errorf("%w: field %q expects a %s value, got %T", ErrValueShapeMismatch, field, shape.Kind(), v)
	}
	return nil
}

func ruleAt(b Block, i int) error {
	if i < 0 || i >= len(b.Rules) {
		return fmt.Errorf("%w: %d (block has %d rules)", ErrRuleIndexOutOfRange, i, len(b.Rules))
	}
	return nil
}
