package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"pricecompare/internal/pricing/domain"
)

// Mirror lists are stored as JSONB arrays. Rebates use the same field names
// callers send, and are re-validated on the way out.

type pricingDocument struct {
	Normal  decimal.Decimal      `json:"normal"`
	Method  string               `json:"method"`
	Limited []domain.RebateInput `json:"limited"`
}

type supplierEntryDocument struct {
	Supplier string          `json:"supplier"`
	Pricing  pricingDocument `json:"pricing"`
}

type itemLinkDocument struct {
	Code string `json:"code"`
	ID   string `json:"id"`
}

type itemEntryDocument struct {
	Item    itemLinkDocument `json:"item"`
	Pricing pricingDocument  `json:"pricing"`
}

func encodePricing(b domain.PricingBlock) pricingDocument {
	doc := pricingDocument{Normal: b.Normal, Method: string(b.Method), Limited: make([]domain.RebateInput, len(b.Limited))}
	for i, r := range b.Limited {
		doc.Limited[i] = r.Input()
	}
	return doc
}

func (d pricingDocument) decode() (domain.PricingBlock, error) {
	method, err := domain.ParsePricingMethod(d.Method)
	if err != nil {
		return domain.PricingBlock{}, err
	}
	block := domain.PricingBlock{Normal: d.Normal, Method: method, Limited: make([]domain.RebateRule, 0, len(d.Limited))}
	for _, in := range d.Limited {
		rule, err := domain.ValidateRebate(in)
		if err != nil {
			return domain.PricingBlock{}, err
		}
		block.Limited = append(block.Limited, rule)
	}
	return block, nil
}

func encodeSupplierEntries(entries []domain.SupplierPriceEntry) ([]byte, error) {
	docs := make([]supplierEntryDocument, len(entries))
	for i, e := range entries {
		docs[i] = supplierEntryDocument{Supplier: e.Supplier, Pricing: encodePricing(e.Pricing)}
	}
	return json.Marshal(docs)
}

func decodeSupplierEntries(raw []byte) ([]domain.SupplierPriceEntry, error) {
	var docs []supplierEntryDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("%w: suppliers: %v", domain.ErrCorruptData, err)
	}
	entries := make([]domain.SupplierPriceEntry, len(docs))
	for i, d := range docs {
		pricing, err := d.Pricing.decode()
		if err != nil {
			return nil, fmt.Errorf("%w: supplier %q: %v", domain.ErrCorruptData, d.Supplier, err)
		}
		entries[i] = domain.SupplierPriceEntry{Supplier: d.Supplier, Pricing: pricing}
	}
	return entries, nil
}

func encodeItemEntries(entries []domain.ItemPriceEntry) ([]byte, error) {
	docs := make([]itemEntryDocument, len(entries))
	for i, e := range entries {
		docs[i] = itemEntryDocument{
			Item:    itemLinkDocument{Code: e.Item.Code, ID: e.Item.ID.String()},
			Pricing: encodePricing(e.Pricing),
		}
	}
	return json.Marshal(docs)
}

func decodeItemEntries(raw []byte) ([]domain.ItemPriceEntry, error) {
	var docs []itemEntryDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("%w: items: %v", domain.ErrCorruptData, err)
	}
	entries := make([]domain.ItemPriceEntry, len(docs))
	for i, d := range docs {
		id, err := domain.ParseItemID(d.Item.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: item %q: %v", domain.ErrCorruptData, d.Item.Code, err)
		}
		pricing, err := d.Pricing.decode()
		if err != nil {
			return nil, fmt.Errorf("%w: item %q: %v", domain.ErrCorruptData, d.Item.Code, err)
		}
		entries[i] = domain.ItemPriceEntry{Item: domain.ItemLink{Code: d.Item.Code, ID: id}, Pricing: pricing}
	}
	return entries, nil
}
