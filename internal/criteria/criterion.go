// Package criteria assembles per-domain filter blocks, ID lists and the
// optional payment channel into submittable targeting criteria.
package criteria

import (
	"errors"
	"fmt"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/rules"
)

var (
	ErrUnknownDomain  = errors.New("unknown domain")
	ErrDomainMismatch = errors.New("field belongs to another domain")
)

// Criterion is one complete set of targeting rules. Its filter categories
// are combined with AND: a beneficiary must satisfy every non-empty one.
type Criterion struct {
	HouseholdIDs      string
	IndividualIDs     string
	HouseholdBlocks   []rules.Block
	IndividualBlocks  []rules.Block
	CollectorBlocks   []rules.Block
	DeliveryMechanism *string
	FSP               *string
}

// Definition is the list of criteria of one targeting. A beneficiary
// qualifies if any criterion matches.
type Definition struct {
	Criteria []Criterion
}

// New returns a fresh criterion with one placeholder block per domain.
func New() Criterion {
	return Criterion{
		HouseholdBlocks:  []rules.Block{rules.NewBlock()},
		IndividualBlocks: []rules.Block{rules.NewBlock()},
		CollectorBlocks:  []rules.Block{rules.NewBlock()},
	}
}

// Blocks returns the block collection of domain d.
func (c Criterion) Blocks(d catalog.Domain) ([]rules.Block, error) {
	switch d {
	case catalog.DomainHousehold:
		return c.HouseholdBlocks, nil
	case catalog.DomainIndividual:
		return c.IndividualBlocks, nil
	case catalog.DomainCollector:
		return c.CollectorBlocks, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
}

// withBlocks returns a copy of c whose domain d collection is blocks.
func (c Criterion) withBlocks(d catalog.Domain, blocks []rules.Block) Criterion {
	switch d {
	case catalog.DomainHousehold:
		c.HouseholdBlocks = blocks
	case catalog.DomainIndividual:
		c.IndividualBlocks = blocks
	case catalog.DomainCollector:
		c.CollectorBlocks = blocks
	}
	return c
}

// IsEmpty reports whether c filters on nothing once placeholders are removed.
func (c Criterion) IsEmpty() bool {
	cc := Compact(c)
	return cc.HouseholdIDs == "" && cc.IndividualIDs == "" &&
		len(cc.HouseholdBlocks) == 0 && len(cc.IndividualBlocks) == 0 && len(cc.CollectorBlocks) == 0
}

// Compact strips placeholder rules and drops the blocks they leave empty.
// Empty collections become nil. The payment channel is left untouched.
func Compact(c Criterion) Criterion {
	c.HouseholdBlocks = rules.Compact(c.HouseholdBlocks)
	c.IndividualBlocks = rules.Compact(c.IndividualBlocks)
	c.CollectorBlocks = rules.Compact(c.CollectorBlocks)
	return c
}
