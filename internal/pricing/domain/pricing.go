package domain

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// PricingMethod is the unit a price is quoted against.
type PricingMethod string

const (
	PricingUnit       PricingMethod = "unit"
	PricingWeightLb   PricingMethod = "weight_lb"
	PricingWeightKg   PricingMethod = "weight_kg"
	PricingWeight100g PricingMethod = "weight_100g"
)

// ParsePricingMethod validates a pricing method name.
func ParsePricingMethod(s string) (PricingMethod, error) {
	switch PricingMethod(s) {
	case PricingUnit, PricingWeightLb, PricingWeightKg, PricingWeight100g:
		return PricingMethod(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPricingMethod, s)
}

// PricingBlock is the price a supplier charges for an item, stored identically
// on both mirrors.
type PricingBlock struct {
	Normal  decimal.Decimal
	Method  PricingMethod
	Limited []RebateRule
}

// NewPricingBlock builds a block with an optional initial rebate.
func NewPricingBlock(normal decimal.Decimal, method PricingMethod, rebate *RebateRule) (PricingBlock, error) {
	if normal.IsNegative() {
		return PricingBlock{}, NewValidationError(ErrNegativePrice)
	}
	if _, err := ParsePricingMethod(string(method)); err != nil {
		return PricingBlock{}, NewValidationError(err)
	}
	block := PricingBlock{Normal: normal, Method: method, Limited: []RebateRule{}}
	if rebate != nil {
		block.Limited = append(block.Limited, *rebate)
	}
	return block, nil
}

// Clone returns a copy that shares no slice storage with b.
func (b PricingBlock) Clone() PricingBlock {
	b.Limited = slices.Clone(b.Limited)
	if b.Limited == nil {
		b.Limited = []RebateRule{}
	}
	return b
}

// Equal reports whether both blocks carry the same base price and the same
// rebates in the same order.
func (b PricingBlock) Equal(o PricingBlock) bool {
	return b.SameBase(o) && slices.EqualFunc(b.Limited, o.Limited, RebateRule.Equal)
}

// SameBase compares normal price and method only.
func (b PricingBlock) SameBase(o PricingBlock) bool {
	return b.Normal.Equal(o.Normal) && b.Method == o.Method
}

// PricingPatch is a partial update of a pricing block. Nil fields are left untouched.
type PricingPatch struct {
	Normal *decimal.Decimal
	Method *PricingMethod
	Rebate *RebateRule
}

// IsComplete reports whether the patch can create a new block on its own.
func (p PricingPatch) IsComplete() bool {
	return p.Normal != nil && p.Method != nil
}

// Validate checks the base fields the patch carries.
func (p PricingPatch) Validate() error {
	if p.Normal != nil && p.Normal.IsNegative() {
		return NewValidationError(ErrNegativePrice)
	}
	if p.Method != nil {
		if _, err := ParsePricingMethod(string(*p.Method)); err != nil {
			return NewValidationError(err)
		}
	}
	return nil
}

// Apply returns b with the patch applied. A provided rebate is appended.
func (p PricingPatch) Apply(b PricingBlock) PricingBlock {
	out := b.Clone()
	if p.Normal != nil {
		out.Normal = *p.Normal
	}
	if p.Method != nil {
		out.Method = *p.Method
	}
	if p.Rebate != nil {
		out.Limited = append(out.Limited, *p.Rebate)
	}
	return out
}

// NewBlock creates a block from the patch alone.
// Returns ErrIncompleteBasePricing unless both normal and method are set.
func (p PricingPatch) NewBlock() (PricingBlock, error) {
	if !p.IsComplete() {
		return PricingBlock{}, NewValidationError(ErrIncompleteBasePricing)
	}
	return NewPricingBlock(*p.Normal, *p.Method, p.Rebate)
}
