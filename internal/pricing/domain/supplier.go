package domain

import (
	"fmt"
	"strings"
	"time"
)

// Supplier is a vendor together with its mirror of item prices (aggregate root).
type Supplier struct {
	id        SupplierID
	name      string
	items     []ItemPriceEntry
	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewSupplier creates a supplier that has not been persisted yet (version 0).
func NewSupplier(name string, now time.Time) (*Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError(fmt.Errorf("%w: supplier name", ErrEmptyBusinessKey))
	}
	return &Supplier{
		id:        NewSupplierID(),
		name:      name,
		items:     []ItemPriceEntry{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructSupplier reconstructs a Supplier from persistence.
// This bypasses validation - only use for loading from a datastore.
func ReconstructSupplier(
	id SupplierID,
	name string,
	items []ItemPriceEntry,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) *Supplier {
	if items == nil {
		items = []ItemPriceEntry{}
	}
	return &Supplier{
		id:        id,
		name:      name,
		items:     items,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ItemEntry returns the entry for the item code, if linked.
func (s *Supplier) ItemEntry(code string) (ItemPriceEntry, bool) {
	idx, ok := FindByItem(s.items, code)
	if !ok {
		return ItemPriceEntry{}, false
	}
	e := s.items[idx]
	e.Pricing = e.Pricing.Clone()
	return e, true
}

// LinkItem replaces any entries for the item with a single fresh one.
func (s *Supplier) LinkItem(item ItemLink, pricing PricingBlock, now time.Time) {
	s.items, _ = withoutItem(s.items, item.Code)
	s.items = append(s.items, ItemPriceEntry{Item: item, Pricing: pricing.Clone()})
	s.updatedAt = now
}

// UpdateItemPricing patches the item's entry, creating it when absent.
// Creating requires a complete patch.
func (s *Supplier) UpdateItemPricing(item ItemLink, patch PricingPatch, now time.Time) error {
	if idx, ok := FindByItem(s.items, item.Code); ok {
		s.items[idx].Pricing = patch.Apply(s.items[idx].Pricing)
		s.updatedAt = now
		return nil
	}
	block, err := patch.NewBlock()
	if err != nil {
		return err
	}
	s.items = append(s.items, ItemPriceEntry{Item: item, Pricing: block})
	s.updatedAt = now
	return nil
}

// UnlinkItem removes every entry for the item code and reports how many there were.
func (s *Supplier) UnlinkItem(code string, now time.Time) int {
	var removed int
	s.items, removed = withoutItem(s.items, code)
	if removed > 0 {
		s.updatedAt = now
	}
	return removed
}

// RemoveMatchingRebate removes the first rule equal to rule from the item's
// entry. It reports false when there is no such entry or rule.
func (s *Supplier) RemoveMatchingRebate(code string, rule RebateRule, now time.Time) bool {
	idx, ok := FindByItem(s.items, code)
	if !ok {
		return false
	}
	rules := s.items[idx].Pricing.Limited
	r, ok := FindRebate(rules, rule)
	if !ok {
		return false
	}
	s.items[idx].Pricing.Limited = withoutRebateAt(rules, r)
	s.updatedAt = now
	return true
}

// Clone returns a deep copy of the supplier.
func (s *Supplier) Clone() *Supplier {
	c := *s
	c.items = cloneItemEntries(s.items)
	return &c
}

// Restore resets the supplier's content to snapshot while keeping the current version.
func (s *Supplier) Restore(snapshot *Supplier) {
	s.items = cloneItemEntries(snapshot.items)
	s.updatedAt = snapshot.updatedAt
}

// MarkPersisted records the version assigned by the datastore.
func (s *Supplier) MarkPersisted(version int) {
	s.version = version
}

func cloneItemEntries(entries []ItemPriceEntry) []ItemPriceEntry {
	out := make([]ItemPriceEntry, len(entries))
	for n, e := range entries {
		out[n] = ItemPriceEntry{Item: e.Item, Pricing: e.Pricing.Clone()}
	}
	return out
}

// Getters

func (s *Supplier) ID() SupplierID       { return s.id }
func (s *Supplier) Name() string         { return s.name }
func (s *Supplier) Version() int         { return s.version }
func (s *Supplier) CreatedAt() time.Time { return s.createdAt }
func (s *Supplier) UpdatedAt() time.Time { return s.updatedAt }

// Items returns a copy of the item mirror.
func (s *Supplier) Items() []ItemPriceEntry { return cloneItemEntries(s.items) }
