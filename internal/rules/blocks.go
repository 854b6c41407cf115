package rules

import (
	"fmt"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/editor"
)

// The transitions below never mutate their input; they return the new
// Block (or block list) for the caller to keep.

// ChooseField sets the field of rule i and resets its value to the
// default of the new field's shape, so a switch of field type never carries
// an incompatible value over.
func ChooseField(b Block, i int, attr *catalog.FieldAttribute) (Block, error) {
	if err := ruleAt(b, i); err != nil {
		return b, err
	}
	def, err := editor.DefaultValue(attr)
	if err != nil {
		return b, err
	}

	out := b.clone()
	out.Rules[i] = Rule{FieldName: attr.Name, Attribute: attr, Value: def}
	return out, nil
}

// ClearField turns rule i back into a placeholder.
func ClearField(b Block, i int) (Block, error) {
	if err := ruleAt(b, i); err != nil {
		return b, err
	}
	out := b.clone()
	out.Rules[i] = Rule{}
	return out, nil
}

// AddRule appends a placeholder rule.
func AddRule(b Block) Block {
	out := b.clone()
	out.Rules = append(out.Rules, Rule{})
	return out
}

// RemoveRule removes rule i. The boolean reports that the block is now
// empty; the caller must then drop the block itself instead of keeping it.
func RemoveRule(b Block, i int) (Block, bool, error) {
	if err := ruleAt(b, i); err != nil {
		return b, false, err
	}
	out := Block{Rules: make([]Rule, 0, len(b.Rules)-1)}
	out.Rules = append(out.Rules, b.Rules[:i]...)
	out.Rules = append(out.Rules, b.Rules[i+1:]...)
	return out, len(out.Rules) == 0, nil
}

// SetValue replaces the value of rule i. The value must fit the rule's shape.
func SetValue(b Block, i int, v editor.Value) (Block, error) {
	if err := ruleAt(b, i); err != nil {
		return b, err
	}
	r := b.Rules[i]
	if r.IsPlaceholder() {
		return b, fmt.Errorf("%w: rule %d has no field chosen", ErrInvalidRule, i)
	}
	shape, err := editor.ResolveEditorShape(r.Attribute)
	if err != nil {
		return b, err
	}
	if err := checkShape(r.FieldName, shape, v); err != nil {
		return b, err
	}

	out := b.clone()
	out.Rules[i].Value = v
	return out, nil
}

// SetRound selects the collection round of a round-scoped rule. Bounds are
// not enforced here; an out-of-range round is reported by validation.
func SetRound(b Block, i int, round int) (Block, error) {
	if err := ruleAt(b, i); err != nil {
		return b, err
	}
	rv, ok := b.Rules[i].Value.(editor.RoundValue)
	if !ok {
		return b, fmt.Errorf("%w: %q", ErrNotRoundScoped, b.Rules[i].FieldName)
	}
	rv.Round = &round

	out := b.clone()
	out.Rules[i].Value = rv
	return out, nil
}

// AddBlock appends a new block holding one placeholder rule.
func AddBlock(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks)+1)
	out = append(out, blocks...)
	return append(out, NewBlock())
}

// RemoveBlock drops block i.
func RemoveBlock(blocks []Block, i int) ([]Block, error) {
	if i < 0 || i >= len(blocks) {
		return blocks, fmt.Errorf("%w: %d (collection has %d blocks)", ErrBlockIndexOutOfRange, i, len(blocks))
	}
	out := make([]Block, 0, len(blocks)-1)
	out = append(out, blocks[:i]...)
	return append(out, blocks[i+1:]...), nil
}

// Compact strips placeholder rules and drops blocks left empty. It returns
// nil when no block survives.
func Compact(blocks []Block) []Block {
	var out []Block
	for _, b := range blocks {
		var kept []Rule
		for _, r := range b.Rules {
			if !r.IsPlaceholder() {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			out = append(out, Block{Rules: kept})
		}
	}
	return out
}
