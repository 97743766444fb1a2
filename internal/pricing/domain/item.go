package domain

import (
	"fmt"
	"strings"
	"time"
)

// Standard is the numbering scheme of an item reference.
type Standard string

const (
	StandardPLU Standard = "PLU"
	StandardUPC Standard = "UPC"
	StandardEAN Standard = "EAN"
)

// ItemRef is the business key of an item. Only Code is used for lookups.
type ItemRef struct {
	Standard Standard
	Code     string
}

// NewItemRef validates the standard and code.
func NewItemRef(standard, code string) (ItemRef, error) {
	switch Standard(standard) {
	case StandardPLU, StandardUPC, StandardEAN:
	default:
		return ItemRef{}, NewValidationError(fmt.Errorf("%w: %q", ErrInvalidStandard, standard))
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ItemRef{}, NewValidationError(fmt.Errorf("%w: item code", ErrEmptyBusinessKey))
	}
	return ItemRef{Standard: Standard(standard), Code: code}, nil
}

// Item is a product together with its mirror of supplier prices (aggregate root).
// Invariants:
//   - At most one entry per supplier after any ledger operation
//   - Entries never hold a rebate with start after end
type Item struct {
	id        ItemID
	ref       ItemRef
	name      string
	suppliers []SupplierPriceEntry
	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewItem creates an item that has not been persisted yet (version 0).
func NewItem(ref ItemRef, name string, now time.Time) (*Item, error) {
	if ref.Code == "" {
		return nil, NewValidationError(fmt.Errorf("%w: item code", ErrEmptyBusinessKey))
	}
	return &Item{
		id:        NewItemID(),
		ref:       ref,
		name:      name,
		suppliers: []SupplierPriceEntry{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructItem reconstructs an Item from persistence.
// This bypasses validation - only use for loading from a datastore.
func ReconstructItem(
	id ItemID,
	ref ItemRef,
	name string,
	suppliers []SupplierPriceEntry,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) *Item {
	if suppliers == nil {
		suppliers = []SupplierPriceEntry{}
	}
	return &Item{
		id:        id,
		ref:       ref,
		name:      name,
		suppliers: suppliers,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// SupplierEntry returns the entry for the supplier, if linked.
func (i *Item) SupplierEntry(supplier string) (SupplierPriceEntry, bool) {
	idx, ok := FindBySupplier(i.suppliers, supplier)
	if !ok {
		return SupplierPriceEntry{}, false
	}
	e := i.suppliers[idx]
	e.Pricing = e.Pricing.Clone()
	return e, true
}

// LinkSupplier replaces any entries for the supplier with a single fresh one.
func (i *Item) LinkSupplier(supplier string, pricing PricingBlock, now time.Time) {
	i.suppliers, _ = withoutSupplier(i.suppliers, supplier)
	i.suppliers = append(i.suppliers, SupplierPriceEntry{Supplier: supplier, Pricing: pricing.Clone()})
	i.updatedAt = now
}

// UpdateSupplierPricing patches the supplier's entry, creating it when absent.
// Creating requires a complete patch.
func (i *Item) UpdateSupplierPricing(supplier string, patch PricingPatch, now time.Time) error {
	if idx, ok := FindBySupplier(i.suppliers, supplier); ok {
		i.suppliers[idx].Pricing = patch.Apply(i.suppliers[idx].Pricing)
		i.updatedAt = now
		return nil
	}
	block, err := patch.NewBlock()
	if err != nil {
		return err
	}
	i.suppliers = append(i.suppliers, SupplierPriceEntry{Supplier: supplier, Pricing: block})
	i.updatedAt = now
	return nil
}

// UnlinkSupplier removes every entry for the supplier and reports how many there were.
func (i *Item) UnlinkSupplier(supplier string, now time.Time) int {
	var removed int
	i.suppliers, removed = withoutSupplier(i.suppliers, supplier)
	if removed > 0 {
		i.updatedAt = now
	}
	return removed
}

// RemoveRebate removes the rebate at index from the supplier's entry and returns it.
func (i *Item) RemoveRebate(supplier string, index int, now time.Time) (RebateRule, error) {
	idx, ok := FindBySupplier(i.suppliers, supplier)
	if !ok {
		return RebateRule{}, NewValidationError(ErrRebateNotFound)
	}
	rules := i.suppliers[idx].Pricing.Limited
	if index < 0 || index >= len(rules) {
		return RebateRule{}, NewValidationError(ErrRebateNotFound)
	}
	removed := rules[index]
	i.suppliers[idx].Pricing.Limited = withoutRebateAt(rules, index)
	i.updatedAt = now
	return removed, nil
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	c.suppliers = cloneSupplierEntries(i.suppliers)
	return &c
}

// Restore resets the item's content to snapshot while keeping the current
// version, so the restored state can be saved over the last write.
func (i *Item) Restore(snapshot *Item) {
	i.name = snapshot.name
	i.suppliers = cloneSupplierEntries(snapshot.suppliers)
	i.updatedAt = snapshot.updatedAt
}

// MarkPersisted records the version assigned by the datastore.
func (i *Item) MarkPersisted(version int) {
	i.version = version
}

func cloneSupplierEntries(entries []SupplierPriceEntry) []SupplierPriceEntry {
	out := make([]SupplierPriceEntry, len(entries))
	for n, e := range entries {
		out[n] = SupplierPriceEntry{Supplier: e.Supplier, Pricing: e.Pricing.Clone()}
	}
	return out
}

// Getters

func (i *Item) ID() ItemID           { return i.id }
func (i *Item) Ref() ItemRef         { return i.ref }
func (i *Item) Code() string         { return i.ref.Code }
func (i *Item) Name() string         { return i.name }
func (i *Item) Version() int         { return i.version }
func (i *Item) CreatedAt() time.Time { return i.createdAt }
func (i *Item) UpdatedAt() time.Time { return i.updatedAt }

// Suppliers returns a copy of the supplier mirror.
func (i *Item) Suppliers() []SupplierPriceEntry { return cloneSupplierEntries(i.suppliers) }

// Link returns the back-reference stored in supplier mirrors.
func (i *Item) Link() ItemLink { return ItemLink{Code: i.ref.Code, ID: i.id} }
