package domain

import (
	"cmp"
	"fmt"
	"slices"
)

// DivergenceKind classifies a disagreement between the two mirrors of a link.
type DivergenceKind string

const (
	DivergenceMissingOnItem     DivergenceKind = "missing_on_item"
	DivergenceMissingOnSupplier DivergenceKind = "missing_on_supplier"
	DivergenceDuplicateEntry    DivergenceKind = "duplicate_entry"
	DivergenceBasePricing       DivergenceKind = "base_pricing_mismatch"
	DivergenceRebates           DivergenceKind = "rebate_mismatch"
	DivergenceDanglingReference DivergenceKind = "dangling_reference"
)

// Divergence is one broken mirror invariant for an (item, supplier) pair.
type Divergence struct {
	ItemCode string
	Supplier string
	Kind     DivergenceKind
	Detail   string
}

type pairKey struct {
	code     string
	supplier string
}

// FindDivergences compares every item mirror with every supplier mirror and
// reports each pair that violates symmetry or pricing equality. The result is
// ordered by item code, then supplier, then kind.
func FindDivergences(items []*Item, suppliers []*Supplier) []Divergence {
	itemSide := map[pairKey][]PricingBlock{}
	supplierSide := map[pairKey][]PricingBlock{}
	knownItems := map[string]bool{}
	knownSuppliers := map[string]bool{}

	for _, it := range items {
		knownItems[it.Code()] = true
		for _, e := range it.suppliers {
			k := pairKey{code: it.Code(), supplier: e.Supplier}
			itemSide[k] = append(itemSide[k], e.Pricing)
		}
	}
	for _, s := range suppliers {
		knownSuppliers[s.Name()] = true
		for _, e := range s.items {
			k := pairKey{code: e.Item.Code, supplier: s.Name()}
			supplierSide[k] = append(supplierSide[k], e.Pricing)
		}
	}

	var out []Divergence
	add := func(k pairKey, kind DivergenceKind, detail string) {
		out = append(out, Divergence{ItemCode: k.code, Supplier: k.supplier, Kind: kind, Detail: detail})
	}

	for k, onItem := range itemSide {
		onSupplier, ok := supplierSide[k]
		switch {
		case !knownSuppliers[k.supplier]:
			add(k, DivergenceDanglingReference, "item references an unknown supplier")
			continue
		case !ok:
			add(k, DivergenceMissingOnSupplier, "supplier mirror has no entry for the item")
			continue
		}
		if len(onItem) > 1 || len(onSupplier) > 1 {
			add(k, DivergenceDuplicateEntry, fmt.Sprintf("%d item-side and %d supplier-side entries", len(onItem), len(onSupplier)))
			continue
		}
		if !onItem[0].SameBase(onSupplier[0]) {
			add(k, DivergenceBasePricing, fmt.Sprintf("item side %s/%s, supplier side %s/%s",
				onItem[0].Normal, onItem[0].Method, onSupplier[0].Normal, onSupplier[0].Method))
		}
		if !sameRebates(onItem[0].Limited, onSupplier[0].Limited) {
			add(k, DivergenceRebates, fmt.Sprintf("item side has %d rebates, supplier side %d",
				len(onItem[0].Limited), len(onSupplier[0].Limited)))
		}
	}
	for k := range supplierSide {
		if _, ok := itemSide[k]; ok {
			continue
		}
		if !knownItems[k.code] {
			add(k, DivergenceDanglingReference, "supplier references an unknown item")
			continue
		}
		add(k, DivergenceMissingOnItem, "item mirror has no entry for the supplier")
	}

	slices.SortFunc(out, func(a, b Divergence) int {
		return cmp.Or(
			cmp.Compare(a.ItemCode, b.ItemCode),
			cmp.Compare(a.Supplier, b.Supplier),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
	return out
}

// sameRebates compares two rule lists as multisets.
func sameRebates(a, b []RebateRule) bool {
	if len(a) != len(b) {
		return false
	}
	remaining := slices.Clone(b)
	for _, r := range a {
		idx, ok := FindRebate(remaining, r)
		if !ok {
			return false
		}
		remaining = withoutRebateAt(remaining, idx)
	}
	return true
}
