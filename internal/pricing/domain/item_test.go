package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricecompare/internal/pricing/domain"
)

func mustItem(t *testing.T, code string) *domain.Item {
	t.Helper()
	ref, err := domain.NewItemRef("PLU", code)
	if err != nil {
		t.Fatalf("ref: %v", err)
	}
	item, err := domain.NewItem(ref, "Bananas", time.Now())
	if err != nil {
		t.Fatalf("item: %v", err)
	}
	return item
}

func flatRule(t *testing.T, c string) domain.RebateRule {
	t.Helper()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rule, err := domain.ValidateRebate(domain.RebateInput{
		TypeOfRebate:        "FlatC",
		C:                   ptr(decimal.RequireFromString(c)),
		RebatePricingMethod: ptr("unit"),
		Start:               &start,
		End:                 ptr(start.Add(24 * time.Hour)),
		OnlyMembers:         ptr(false),
	})
	if err != nil {
		t.Fatalf("rule: %v", err)
	}
	return rule
}

func TestNewItemRef(t *testing.T) {
	t.Run("rejects unknown standard", func(t *testing.T) {
		_, err := domain.NewItemRef("ISBN", "123")
		if !errors.Is(err, domain.ErrInvalidStandard) {
			t.Errorf("expected ErrInvalidStandard, got %v", err)
		}
	})

	t.Run("rejects blank code", func(t *testing.T) {
		_, err := domain.NewItemRef("EAN", "  ")
		if !errors.Is(err, domain.ErrEmptyBusinessKey) {
			t.Errorf("expected ErrEmptyBusinessKey, got %v", err)
		}
	})
}

func TestItem_LinkSupplier(t *testing.T) {
	now := time.Now()
	unit := domain.PricingUnit

	t.Run("relinking leaves a single entry", func(t *testing.T) {
		item := mustItem(t, "4011")
		first, _ := domain.NewPricingBlock(decimal.NewFromInt(1), unit, nil)
		second, _ := domain.NewPricingBlock(decimal.NewFromInt(2), unit, nil)

		item.LinkSupplier("acme", first, now)
		item.LinkSupplier("acme", second, now)

		entries := item.Suppliers()
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if !entries[0].Pricing.Normal.Equal(decimal.NewFromInt(2)) {
			t.Errorf("expected normal 2, got %s", entries[0].Pricing.Normal)
		}
	})

	t.Run("relinking collapses pre-existing duplicates", func(t *testing.T) {
		block, _ := domain.NewPricingBlock(decimal.NewFromInt(1), unit, nil)
		item := domain.ReconstructItem(domain.NewItemID(), domain.ItemRef{Standard: domain.StandardPLU, Code: "4011"}, "",
			[]domain.SupplierPriceEntry{{Supplier: "acme", Pricing: block}, {Supplier: "acme", Pricing: block}}, 3, now, now)

		item.LinkSupplier("acme", block, now)

		if n := len(item.Suppliers()); n != 1 {
			t.Errorf("expected 1 entry, got %d", n)
		}
	})
}

func TestItem_UpdateSupplierPricing(t *testing.T) {
	now := time.Now()
	normal := decimal.RequireFromString("0.79")
	method := domain.PricingWeightLb

	t.Run("creating without method fails", func(t *testing.T) {
		item := mustItem(t, "4011")
		err := item.UpdateSupplierPricing("acme", domain.PricingPatch{Normal: &normal}, now)
		if !errors.Is(err, domain.ErrIncompleteBasePricing) {
			t.Fatalf("expected ErrIncompleteBasePricing, got %v", err)
		}
		if len(item.Suppliers()) != 0 {
			t.Error("expected no entry to be created")
		}
	})

	t.Run("existing entry keeps fields not in the patch and appends rebate", func(t *testing.T) {
		item := mustItem(t, "4011")
		block, _ := domain.NewPricingBlock(decimal.NewFromInt(1), domain.PricingUnit, nil)
		item.LinkSupplier("acme", block, now)
		rule := flatRule(t, "0.5")

		err := item.UpdateSupplierPricing("acme", domain.PricingPatch{Method: &method, Rebate: &rule}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entry, _ := item.SupplierEntry("acme")
		if !entry.Pricing.Normal.Equal(decimal.NewFromInt(1)) || entry.Pricing.Method != method {
			t.Errorf("unexpected base pricing %s/%s", entry.Pricing.Normal, entry.Pricing.Method)
		}
		if len(entry.Pricing.Limited) != 1 || !entry.Pricing.Limited[0].Equal(rule) {
			t.Errorf("expected appended rebate, got %v", entry.Pricing.Limited)
		}
	})
}

func TestItem_RemoveRebate(t *testing.T) {
	now := time.Now()
	item := mustItem(t, "4011")
	r1, r2 := flatRule(t, "0.5"), flatRule(t, "0.6")
	block, _ := domain.NewPricingBlock(decimal.NewFromInt(1), domain.PricingUnit, &r1)
	item.LinkSupplier("acme", block, now)
	_ = item.UpdateSupplierPricing("acme", domain.PricingPatch{Rebate: &r2}, now)

	removed, err := item.RemoveRebate("acme", 0, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed.Equal(r1) {
		t.Errorf("expected r1 removed")
	}
	entry, _ := item.SupplierEntry("acme")
	if len(entry.Pricing.Limited) != 1 || !entry.Pricing.Limited[0].Equal(r2) {
		t.Errorf("expected only r2 left, got %v", entry.Pricing.Limited)
	}

	for _, idx := range []int{1, -1} {
		_, err := item.RemoveRebate("acme", idx, now)
		if err == nil || err.Error() != "rebate not found" {
			t.Errorf("index %d: expected rebate not found, got %v", idx, err)
		}
	}
	if _, err := item.RemoveRebate("other", 0, now); !errors.Is(err, domain.ErrRebateNotFound) {
		t.Errorf("expected ErrRebateNotFound for unlinked supplier, got %v", err)
	}
}

func TestItem_CloneAndRestore(t *testing.T) {
	now := time.Now()
	item := mustItem(t, "4011")
	rule := flatRule(t, "0.5")
	block, _ := domain.NewPricingBlock(decimal.NewFromInt(1), domain.PricingUnit, &rule)
	item.LinkSupplier("acme", block, now)
	item.MarkPersisted(4)

	snapshot := item.Clone()
	_, _ = item.RemoveRebate("acme", 0, now)
	item.UnlinkSupplier("acme", now)
	item.MarkPersisted(5)

	entry, ok := snapshot.SupplierEntry("acme")
	if !ok || len(entry.Pricing.Limited) != 1 {
		t.Fatal("snapshot must not share storage with the item")
	}

	item.Restore(snapshot)
	if item.Version() != 5 {
		t.Errorf("expected restore to keep version 5, got %d", item.Version())
	}
	if entries := item.Suppliers(); len(entries) != 1 || !entries[0].Pricing.Equal(block) {
		t.Errorf("expected snapshot content, got %v", entries)
	}
}

func TestSupplier_RemoveMatchingRebate(t *testing.T) {
	now := time.Now()
	supplier, err := domain.NewSupplier("acme", now)
	if err != nil {
		t.Fatal(err)
	}
	item := mustItem(t, "4011")
	r1, r2 := flatRule(t, "0.5"), flatRule(t, "0.6")
	block, _ := domain.NewPricingBlock(decimal.NewFromInt(1), domain.PricingUnit, &r1)
	supplier.LinkItem(item.Link(), block, now)

	if supplier.RemoveMatchingRebate("4011", r2, now) {
		t.Error("expected no match for a different rule")
	}
	if !supplier.RemoveMatchingRebate("4011", r1, now) {
		t.Error("expected field-equal rule to be removed")
	}
	if supplier.RemoveMatchingRebate("9999", r1, now) {
		t.Error("expected no match for an unlinked item")
	}
	entry, _ := supplier.ItemEntry("4011")
	if len(entry.Pricing.Limited) != 0 {
		t.Errorf("expected empty limited list, got %d", len(entry.Pricing.Limited))
	}
	if entry.Item.ID != item.ID() {
		t.Error("expected back-reference to carry the item id")
	}
}
