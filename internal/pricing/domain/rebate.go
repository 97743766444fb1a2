package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RebateType tags the variant of a rebate rule.
type RebateType string

const (
	RebateBuyXGetYAtC  RebateType = "BuyXGetYAtC"
	RebateBuyXGetYForC RebateType = "BuyXGetYForC"
	RebateFlatC        RebateType = "FlatC"
)

// RebateTerms is the variant-specific part of a rebate rule.
// The set of implementations is closed: BuyXGetYAtC, BuyXGetYForC and FlatC.
type RebateTerms interface {
	Type() RebateType
	equalTerms(RebateTerms) bool
}

// BuyXGetYAtC means buy X units and get Y more at price C each.
type BuyXGetYAtC struct {
	X int
	Y int
	C decimal.Decimal
}

func (BuyXGetYAtC) Type() RebateType { return RebateBuyXGetYAtC }

func (t BuyXGetYAtC) equalTerms(o RebateTerms) bool {
	other, ok := o.(BuyXGetYAtC)
	return ok && t.X == other.X && t.Y == other.Y && t.C.Equal(other.C)
}

// BuyXGetYForC means buy X units and get Y more for C in total.
type BuyXGetYForC struct {
	X int
	Y int
	C decimal.Decimal
}

func (BuyXGetYForC) Type() RebateType { return RebateBuyXGetYForC }

func (t BuyXGetYForC) equalTerms(o RebateTerms) bool {
	other, ok := o.(BuyXGetYForC)
	return ok && t.X == other.X && t.Y == other.Y && t.C.Equal(other.C)
}

// FlatC replaces the normal price with C.
type FlatC struct {
	C decimal.Decimal
}

func (FlatC) Type() RebateType { return RebateFlatC }

func (t FlatC) equalTerms(o RebateTerms) bool {
	other, ok := o.(FlatC)
	return ok && t.C.Equal(other.C)
}

// RebateRule is a time-boxed promotional price attached to a pricing block.
// Values are only produced by ValidateRebate and are never mutated in place.
type RebateRule struct {
	Terms         RebateTerms
	PricingMethod PricingMethod
	Start         time.Time
	End           time.Time
	OnlyMembers   bool
}

// Type returns the variant tag.
func (r RebateRule) Type() RebateType {
	if r.Terms == nil {
		return ""
	}
	return r.Terms.Type()
}

// Equal compares every field of both rules. Instants are compared with
// time.Time.Equal so that location differences do not matter.
func (r RebateRule) Equal(o RebateRule) bool {
	if r.Terms == nil || o.Terms == nil {
		return r.Terms == nil && o.Terms == nil
	}
	return r.Terms.equalTerms(o.Terms) &&
		r.PricingMethod == o.PricingMethod &&
		r.Start.Equal(o.Start) &&
		r.End.Equal(o.End) &&
		r.OnlyMembers == o.OnlyMembers
}

// ActiveAt reports whether the rebate window covers t. Both bounds are inclusive.
func (r RebateRule) ActiveAt(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}
