package rules

import (
	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/editor"
)

// Rule is one atomic filter condition. The operator is implied by the
// value's shape: equality for single values, membership for lists, an
// inclusive interval for ranges.
//
// A Rule with an empty FieldName is a placeholder: it may only stand alone
// in a freshly added block and is never serialized.
type Rule struct {
	FieldName string
	Attribute *catalog.FieldAttribute
	Value     editor.Value
}

// IsPlaceholder reports whether no field has been chosen yet.
func (r Rule) IsPlaceholder() bool {
	return r.FieldName == ""
}

// Block is an ordered, non-empty list of rules for one domain.
// Rules within a block are combined with AND semantics; blocks within a
// domain are combined with OR semantics.
type Block struct {
	Rules []Rule
}

// NewBlock returns a block holding exactly one placeholder rule.
func NewBlock() Block {
	return Block{Rules: []Rule{{}}}
}

// OnlyPlaceholders reports whether the block has no chosen field yet.
func (b Block) OnlyPlaceholders() bool {
	for _, r := range b.Rules {
		if !r.IsPlaceholder() {
			return false
		}
	}
	return true
}

func (b Block) clone() Block {
	return Block{Rules: append([]Rule(nil), b.Rules...)}
}
