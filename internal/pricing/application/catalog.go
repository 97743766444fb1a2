package application

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"pricecompare/internal/common/logging"
	"pricecompare/internal/common/metrics"
	"pricecompare/internal/pricing/domain"
)

// CreateItemRequest represents a request to register an item.
type CreateItemRequest struct {
	Standard string
	Code     string
	Name     string
}

// CreateItem registers an item with an empty supplier mirror.
func (s *LedgerService) CreateItem(ctx context.Context, req CreateItemRequest) (*domain.Item, error) {
	ref, err := domain.NewItemRef(req.Standard, req.Code)
	if err != nil {
		return nil, err
	}
	item, err := domain.NewItem(ref, req.Name, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, item); err != nil {
		return nil, createFailure(fmt.Sprintf("item %q", ref.Code), err)
	}

	logging.InfoContext(ctx, "Item created",
		"item_id", item.ID().String(),
		"item_code", item.Code(),
		"standard", string(ref.Standard),
	)
	return item, nil
}

// CreateSupplierRequest represents a request to register a supplier.
type CreateSupplierRequest struct {
	Name string
}

// CreateSupplier registers a supplier with an empty item mirror.
func (s *LedgerService) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (*domain.Supplier, error) {
	supplier, err := domain.NewSupplier(req.Name, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.suppliers.Save(ctx, supplier); err != nil {
		return nil, createFailure(fmt.Sprintf("supplier %q", supplier.Name()), err)
	}

	logging.InfoContext(ctx, "Supplier created",
		"supplier_id", supplier.ID().String(),
		"supplier", supplier.Name(),
	)
	return supplier, nil
}

func createFailure(document string, err error) error {
	if errors.Is(err, domain.ErrDuplicateKey) {
		return &domain.ConflictError{Document: document, Err: err}
	}
	return &domain.SaveError{Document: document, Err: err}
}

// GetItem returns the item with its supplier mirror.
func (s *LedgerService) GetItem(ctx context.Context, code string) (*domain.Item, error) {
	return s.findItem(ctx, code)
}

// GetSupplier returns the supplier with its item mirror.
func (s *LedgerService) GetSupplier(ctx context.Context, name string) (*domain.Supplier, error) {
	return s.findSupplier(ctx, name)
}

// DeleteItemRequest represents a request to remove an item from the catalog.
type DeleteItemRequest struct {
	Actor    domain.Actor
	Secrets  domain.Secrets
	ItemCode string
}

// DeleteItem removes the item from every supplier mirror that references it,
// then deletes the item. If a supplier save fails the item is kept, so the
// request can be retried to finish the cascade.
func (s *LedgerService) DeleteItem(ctx context.Context, req DeleteItemRequest) (err error) {
	ctx = logging.WithItemCode(ctx, req.ItemCode)
	defer func() { s.record(ctx, "delete_item", err) }()

	item, err := s.findItem(ctx, req.ItemCode)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, req.Actor, req.Secrets, domain.OperationDeleteItem); err != nil {
		return err
	}

	referencing, err := s.suppliers.ListByItem(ctx, item.Code())
	if err != nil {
		return fmt.Errorf("listing suppliers of item %q: %w", item.Code(), err)
	}
	now := s.now()
	for _, supplier := range referencing {
		snapshot := supplier.Clone()
		supplier.UnlinkItem(item.Code(), now)
		if err := s.coordinator.CommitOne(ctx, s.supplierWrite(supplier, snapshot)); err != nil {
			return err
		}
	}

	if err := s.items.Delete(ctx, item); err != nil {
		return saveFailure(fmt.Sprintf("item %q", item.Code()), err)
	}

	logging.InfoContext(ctx, "Item deleted", "suppliers_updated", len(referencing))
	return nil
}

// DeleteSupplierRequest represents a request to remove a supplier.
type DeleteSupplierRequest struct {
	Actor        domain.Actor
	Secrets      domain.Secrets
	SupplierName string
}

// DeleteSupplier removes the supplier from every item mirror that references
// it, then deletes the supplier.
func (s *LedgerService) DeleteSupplier(ctx context.Context, req DeleteSupplierRequest) (err error) {
	ctx = logging.WithSupplier(ctx, req.SupplierName)
	defer func() { s.record(ctx, "delete_supplier", err) }()

	supplier, err := s.findSupplier(ctx, req.SupplierName)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, req.Actor, req.Secrets, domain.OperationDeleteSupplier); err != nil {
		return err
	}

	referencing, err := s.items.ListBySupplier(ctx, supplier.Name())
	if err != nil {
		return fmt.Errorf("listing items of supplier %q: %w", supplier.Name(), err)
	}
	now := s.now()
	for _, item := range referencing {
		snapshot := item.Clone()
		item.UnlinkSupplier(supplier.Name(), now)
		if err := s.coordinator.CommitOne(ctx, s.itemWrite(item, snapshot)); err != nil {
			return err
		}
	}

	if err := s.suppliers.Delete(ctx, supplier); err != nil {
		return saveFailure(fmt.Sprintf("supplier %q", supplier.Name()), err)
	}

	logging.InfoContext(ctx, "Supplier deleted", "items_updated", len(referencing))
	return nil
}

// AuditMirrors scans every item and supplier and reports pairs whose mirrors
// disagree. It never writes.
func (s *LedgerService) AuditMirrors(ctx context.Context) ([]domain.Divergence, error) {
	var (
		items     []*domain.Item
		suppliers []*domain.Supplier
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.items.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		suppliers, err = s.suppliers.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	divergences := domain.FindDivergences(items, suppliers)
	metrics.SetMirrorDivergences(len(divergences))

	if len(divergences) > 0 {
		logging.WarnContext(ctx, "Mirror audit found divergences",
			"count", len(divergences),
			"items", len(items),
			"suppliers", len(suppliers),
		)
	} else {
		logging.InfoContext(ctx, "Mirror audit clean", "items", len(items), "suppliers", len(suppliers))
	}
	return divergences, nil
}
