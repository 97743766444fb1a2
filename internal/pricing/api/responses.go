package api

import (
	"time"

	"github.com/shopspring/decimal"

	"pricecompare/internal/pricing/application"
	"pricecompare/internal/pricing/domain"
)

// PricingResponse is the JSON form of a pricing block.
type PricingResponse struct {
	Normal  decimal.Decimal      `json:"normal"`
	Method  string               `json:"method"`
	Limited []domain.RebateInput `json:"limited"`
}

func toPricingResponse(b domain.PricingBlock) PricingResponse {
	resp := PricingResponse{Normal: b.Normal, Method: string(b.Method), Limited: make([]domain.RebateInput, len(b.Limited))}
	for i, r := range b.Limited {
		resp.Limited[i] = r.Input()
	}
	return resp
}

// SupplierEntryResponse is one entry of an item's supplier mirror.
type SupplierEntryResponse struct {
	Supplier string          `json:"supplier"`
	Pricing  PricingResponse `json:"pricing"`
}

// ItemEntryResponse is one entry of a supplier's item mirror.
type ItemEntryResponse struct {
	Item struct {
		Code string `json:"code"`
		ID   string `json:"id"`
	} `json:"item"`
	Pricing PricingResponse `json:"pricing"`
}

func toSupplierEntry(e domain.SupplierPriceEntry) SupplierEntryResponse {
	return SupplierEntryResponse{Supplier: e.Supplier, Pricing: toPricingResponse(e.Pricing)}
}

func toItemEntry(e domain.ItemPriceEntry) ItemEntryResponse {
	var resp ItemEntryResponse
	resp.Item.Code = e.Item.Code
	resp.Item.ID = e.Item.ID.String()
	resp.Pricing = toPricingResponse(e.Pricing)
	return resp
}

// ItemResponse is the JSON form of an item.
type ItemResponse struct {
	ID  string `json:"id"`
	Ref struct {
		Standard string `json:"standard"`
		Code     string `json:"code"`
	} `json:"ref"`
	Name      string                  `json:"name"`
	Suppliers []SupplierEntryResponse `json:"suppliers"`
	Version   int                     `json:"version"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func toItemResponse(item *domain.Item) ItemResponse {
	resp := ItemResponse{
		ID:        item.ID().String(),
		Name:      item.Name(),
		Suppliers: []SupplierEntryResponse{},
		Version:   item.Version(),
		CreatedAt: item.CreatedAt(),
		UpdatedAt: item.UpdatedAt(),
	}
	resp.Ref.Standard = string(item.Ref().Standard)
	resp.Ref.Code = item.Code()
	for _, e := range item.Suppliers() {
		resp.Suppliers = append(resp.Suppliers, toSupplierEntry(e))
	}
	return resp
}

// SupplierResponse is the JSON form of a supplier.
type SupplierResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Items     []ItemEntryResponse `json:"items"`
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toSupplierResponse(s *domain.Supplier) SupplierResponse {
	resp := SupplierResponse{
		ID:        s.ID().String(),
		Name:      s.Name(),
		Items:     []ItemEntryResponse{},
		Version:   s.Version(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
	for _, e := range s.Items() {
		resp.Items = append(resp.Items, toItemEntry(e))
	}
	return resp
}

// LedgerResponse is the committed state of a pair after a ledger operation.
type LedgerResponse struct {
	ItemCode        string                 `json:"item_code"`
	Supplier        string                 `json:"supplier"`
	ItemEntry       *SupplierEntryResponse `json:"item_entry"`
	SupplierEntry   *ItemEntryResponse     `json:"supplier_entry"`
	ItemVersion     int                    `json:"item_version"`
	SupplierVersion int                    `json:"supplier_version"`
	MirrorAsymmetry bool                   `json:"mirror_asymmetry,omitempty"`
}

func toLedgerResponse(r *application.LedgerResult) LedgerResponse {
	resp := LedgerResponse{
		ItemCode:        r.ItemCode,
		Supplier:        r.Supplier,
		ItemVersion:     r.ItemVersion,
		SupplierVersion: r.SupplierVersion,
		MirrorAsymmetry: r.MirrorAsymmetry,
	}
	if r.ItemEntry != nil {
		e := toSupplierEntry(*r.ItemEntry)
		resp.ItemEntry = &e
	}
	if r.SupplierEntry != nil {
		e := toItemEntry(*r.SupplierEntry)
		resp.SupplierEntry = &e
	}
	return resp
}

// DivergenceResponse is one finding of the mirror audit.
type DivergenceResponse struct {
	ItemCode string `json:"item_code"`
	Supplier string `json:"supplier"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
}

// AuditResponse is the result of a mirror audit.
type AuditResponse struct {
	Count       int                  `json:"count"`
	Divergences []DivergenceResponse `json:"divergences"`
}

func toAuditResponse(divergences []domain.Divergence) AuditResponse {
	resp := AuditResponse{Count: len(divergences), Divergences: make([]DivergenceResponse, len(divergences))}
	for i, d := range divergences {
		resp.Divergences[i] = DivergenceResponse{ItemCode: d.ItemCode, Supplier: d.Supplier, Kind: string(d.Kind), Detail: d.Detail}
	}
	return resp
}
