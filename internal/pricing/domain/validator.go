package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RebateInput is a rebate rule as it arrives from a caller. Every field is
// optional here so that the validator can tell a missing field from a zero value.
type RebateInput struct {
	TypeOfRebate        string           `json:"typeOfRebate"`
	X                   *int             `json:"X,omitempty"`
	Y                   *int             `json:"Y,omitempty"`
	C                   *decimal.Decimal `json:"C,omitempty"`
	RebatePricingMethod *string          `json:"rebatePricingMethod,omitempty"`
	Start               *time.Time       `json:"start,omitempty"`
	End                 *time.Time       `json:"end,omitempty"`
	OnlyMembers         *bool            `json:"onlyMembers,omitempty"`
}

// ValidateRebate checks the field set required by the variant tag and the
// validity window, and returns the typed rule. Every failure is a *ValidationError.
func ValidateRebate(in RebateInput) (RebateRule, error) {
	terms, err := validateTerms(in)
	if err != nil {
		return RebateRule{}, NewValidationError(err)
	}

	switch {
	case in.RebatePricingMethod == nil:
		return RebateRule{}, missing("rebatePricingMethod")
	case in.Start == nil:
		return RebateRule{}, missing("start")
	case in.End == nil:
		return RebateRule{}, missing("end")
	case in.OnlyMembers == nil:
		return RebateRule{}, missing("onlyMembers")
	}

	method, err := ParsePricingMethod(*in.RebatePricingMethod)
	if err != nil {
		return RebateRule{}, NewValidationError(err)
	}
	if in.Start.After(*in.End) {
		return RebateRule{}, NewValidationError(ErrInvalidWindow)
	}

	return RebateRule{
		Terms:         terms,
		PricingMethod: method,
		Start:         *in.Start,
		End:           *in.End,
		OnlyMembers:   *in.OnlyMembers,
	}, nil
}

func validateTerms(in RebateInput) (RebateTerms, error) {
	switch RebateType(in.TypeOfRebate) {
	case RebateBuyXGetYAtC, RebateBuyXGetYForC:
		if err := requireQuantities(in); err != nil {
			return nil, err
		}
		if in.C.IsNegative() {
			return nil, ErrNegativePrice
		}
		if RebateType(in.TypeOfRebate) == RebateBuyXGetYAtC {
			return BuyXGetYAtC{X: *in.X, Y: *in.Y, C: *in.C}, nil
		}
		return BuyXGetYForC{X: *in.X, Y: *in.Y, C: *in.C}, nil

	case RebateFlatC:
		if in.X != nil {
			return nil, unexpected("X", RebateFlatC)
		}
		if in.Y != nil {
			return nil, unexpected("Y", RebateFlatC)
		}
		if in.C == nil {
			return nil, fmt.Errorf("%w: C", ErrMissingField)
		}
		if in.C.IsNegative() {
			return nil, ErrNegativePrice
		}
		return FlatC{C: *in.C}, nil
	}
	return nil, ErrUnknownRebateType
}

func requireQuantities(in RebateInput) error {
	for _, f := range []struct {
		name    string
		present bool
	}{
		{"X", in.X != nil},
		{"Y", in.Y != nil},
		{"C", in.C != nil},
	} {
		if !f.present {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if *in.X < 1 {
		return fmt.Errorf("%w: X", ErrInvalidQuantity)
	}
	if *in.Y < 1 {
		return fmt.Errorf("%w: Y", ErrInvalidQuantity)
	}
	return nil
}

func missing(field string) *ValidationError {
	return NewValidationError(fmt.Errorf("%w: %s", ErrMissingField, field))
}

func unexpected(field string, t RebateType) error {
	return fmt.Errorf("%w: %s on %s", ErrUnexpectedField, field, t)
}

// Input converts the rule back to its caller-facing form.
func (r RebateRule) Input() RebateInput {
	method := string(r.PricingMethod)
	start, end, members := r.Start, r.End, r.OnlyMembers
	in := RebateInput{
		TypeOfRebate:        string(r.Type()),
		RebatePricingMethod: &method,
		Start:               &start,
		End:                 &end,
		OnlyMembers:         &members,
	}
	switch t := r.Terms.(type) {
	case BuyXGetYAtC:
		in.X, in.Y, in.C = &t.X, &t.Y, &t.C
	case BuyXGetYForC:
		in.X, in.Y, in.C = &t.X, &t.Y, &t.C
	case FlatC:
		in.C = &t.C
	}
	return in
}
