package domain

// SupplierPriceEntry is the item-side mirror of a link.
type SupplierPriceEntry struct {
	Supplier string
	Pricing  PricingBlock
}

// ItemLink references an item from the supplier side.
type ItemLink struct {
	Code string
	ID   ItemID
}

// ItemPriceEntry is the supplier-side mirror of a link.
type ItemPriceEntry struct {
	Item    ItemLink
	Pricing PricingBlock
}

// FindBySupplier returns the index of the first entry for the supplier name.
func FindBySupplier(entries []SupplierPriceEntry, supplier string) (int, bool) {
	for i, e := range entries {
		if e.Supplier == supplier {
			return i, true
		}
	}
	return -1, false
}

// FindByItem returns the index of the first entry for the item code.
func FindByItem(entries []ItemPriceEntry, code string) (int, bool) {
	for i, e := range entries {
		if e.Item.Code == code {
			return i, true
		}
	}
	return -1, false
}

// FindRebate returns the index of the first rule equal to candidate in every field.
func FindRebate(rules []RebateRule, candidate RebateRule) (int, bool) {
	for i, r := range rules {
		if r.Equal(candidate) {
			return i, true
		}
	}
	return -1, false
}

// withoutSupplier returns entries minus every entry for the supplier, and the
// number removed. The input slice is not modified.
func withoutSupplier(entries []SupplierPriceEntry, supplier string) ([]SupplierPriceEntry, int) {
	out := make([]SupplierPriceEntry, 0, len(entries))
	for _, e := range entries {
		if e.Supplier != supplier {
			out = append(out, e)
		}
	}
	return out, len(entries) - len(out)
}

func withoutItem(entries []ItemPriceEntry, code string) ([]ItemPriceEntry, int) {
	out := make([]ItemPriceEntry, 0, len(entries))
	for _, e := range entries {
		if e.Item.Code != code {
			out = append(out, e)
		}
	}
	return out, len(entries) - len(out)
}

func withoutRebateAt(rules []RebateRule, index int) []RebateRule {
	out := make([]RebateRule, 0, len(rules)-1)
	out = append(out, rules[:index]...)
	return append(out, rules[index+1:]...)
}
