package criteria

import (
	"fmt"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/editor"
	"github.com/hopekit/targeting/internal/rules"
)

// Criterion transitions address a rule by (domain, block, rule) and return
// the updated criterion. The input is never modified.

// AddBlock appends a placeholder block to domain d.
func AddBlock(c Criterion, d catalog.Domain) (Criterion, error) {
	blocks, err := c.Blocks(d)
	if err != nil {
		return c, err
	}
	return c.withBlocks(d, rules.AddBlock(blocks)), nil
}

// RemoveBlock drops block bi of domain d.
func RemoveBlock(c Criterion, d catalog.Domain, bi int) (Criterion, error) {
	blocks, err := c.Blocks(d)
	if err != nil {
		return c, err
	}
	next, err := rules.RemoveBlock(blocks, bi)
	if err != nil {
		return c, err
	}
	return c.withBlocks(d, next), nil
}

// AddRule appends a placeholder rule to block bi of domain d.
func AddRule(c Criterion, d catalog.Domain, bi int) (Criterion, error) {
	return updateBlock(c, d, bi, func(b rules.Block) (rules.Block, error) {
		return rules.AddRule(b), nil
	})
}

// ChooseField sets the field of a rule. attr must belong to domain d.
func ChooseField(c Criterion, d catalog.Domain, bi, ri int, attr *catalog.FieldAttribute) (Criterion, error) {
	if attr != nil && attr.Domain != d {
		return c, fmt.Errorf("%w: %q is a %s field, not %s", ErrDomainMismatch, attr.Name, attr.Domain, d)
	}
	return updateBlock(c, d, bi, func(b rules.Block) (rules.Block, error) {
		return rules.ChooseField(b, ri, attr)
	})
}

// ClearField resets a rule to the placeholder state.
func ClearField(c Criterion, d catalog.Domain, bi, ri int) (Criterion, error) {
	return updateBlock(c, d, bi, func(b rules.Block) (rules.Block, error) {
		return rules.ClearField(b, ri)
	})
}

// SetValue replaces the value of a rule.
func SetValue(c Criterion, d catalog.Domain, bi, ri int, v editor.Value) (Criterion, error) {
	return updateBlock(c, d, bi, func(b rules.Block) (rules.Block, error) {
		return rules.SetValue(b, ri, v)
	})
}

// SetRound selects the collection round of a round-scoped rule.
func SetRound(c Criterion, d catalog.Domain, bi, ri, round int) (Criterion, error) {
	return updateBlock(c, d, bi, func(b rules.Block) (rules.Block, error) {
		return rules.SetRound(b, ri, round)
	})
}

// RemoveRule removes a rule. When it was the last rule of its block the
// block is removed too, so a collection never holds an empty block.
func RemoveRule(c Criterion, d catalog.Domain, bi, ri int) (Criterion, error) {
	blocks, err := c.Blocks(d)
	if err != nil {
		return c, err
	}
	if bi < 0 || bi >= len(blocks) {
		return c, fmt.Errorf("%w: %d (%s has %d blocks)", rules.ErrBlockIndexOutOfRange, bi, d, len(blocks))
	}

	b, emptied, err := rules.RemoveRule(blocks[bi], ri)
	if err != nil {
		return c, err
	}
	if emptied {
		next, err := rules.RemoveBlock(blocks, bi)
		if err != nil {
			return c, err
		}
		return c.withBlocks(d, next), nil
	}
	return c.withBlocks(d, replaceBlock(blocks, bi, b)), nil
}

func updateBlock(c Criterion, d catalog.Domain, bi int, fn func(rules.Block) (rules.Block, error)) (Criterion, error) {
	blocks, err := c.Blocks(d)
	if err != nil {
		return c, err
	}
	if bi < 0 || bi >= len(blocks) {
		return c, fmt.Errorf("%w: %d (%s has %d blocks)", rules.ErrBlockIndexOutOfRange, bi, d, len(blocks))
	}
	b, err := fn(blocks[bi])
	if err != nil {
		return c, err
	}
	return c.withBlocks(d, replaceBlock(blocks, bi, b)), nil
}

func replaceBlock(blocks []rules.Block, i int, b rules.Block) []rules.Block {
	out := append([]rules.Block(nil), blocks...)
	out[i] = b
	return out
}
