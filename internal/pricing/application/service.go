package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pricecompare/internal/common/logging"
	"pricecompare/internal/common/metrics"
	"pricecompare/internal/pricing/domain"
)

// LedgerService keeps the item and supplier price mirrors in step.
//
// Every mutation follows the same path:
//   - load the item and the supplier concurrently
//   - authorize the actor against the role-scoped secrets
//   - validate the rebate, if any
//   - mutate both aggregates in memory
//   - commit item (primary) then supplier (secondary) through the coordinator
type LedgerService struct {
	items       domain.ItemRepository
	suppliers   domain.SupplierRepository
	gate        domain.AuthorizationGate
	coordinator *DualWriteCoordinator
	now         func() time.Time
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	items domain.ItemRepository,
	suppliers domain.SupplierRepository,
	gate domain.AuthorizationGate,
	alerter domain.Alerter,
) *LedgerService {
	return &LedgerService{
		items:       items,
		suppliers:   suppliers,
		gate:        gate,
		coordinator: NewDualWriteCoordinator(alerter),
		now:         time.Now,
	}
}

// LedgerResult is the committed state of both mirrors for one pair.
type LedgerResult struct {
	ItemCode        string
	Supplier        string
	ItemEntry       *domain.SupplierPriceEntry
	SupplierEntry   *domain.ItemPriceEntry
	ItemVersion     int
	SupplierVersion int
	// MirrorAsymmetry is set when a rebate removed from the item mirror had
	// no field-equal counterpart on the supplier mirror.
	MirrorAsymmetry bool
}

func newLedgerResult(item *domain.Item, supplier *domain.Supplier) *LedgerResult {
	res := &LedgerResult{
		ItemCode:        item.Code(),
		Supplier:        supplier.Name(),
		ItemVersion:     item.Version(),
		SupplierVersion: supplier.Version(),
	}
	if e, ok := item.SupplierEntry(supplier.Name()); ok {
		res.ItemEntry = &e
	}
	if e, ok := supplier.ItemEntry(item.Code()); ok {
		res.SupplierEntry = &e
	}
	return res
}

// LinkRequest represents a request to start or replace a supplier's offer for an item.
type LinkRequest struct {
	Actor        domain.Actor
	Secrets      domain.Secrets
	ItemCode     string
	SupplierName string
	Normal       *decimal.Decimal
	Method       domain.PricingMethod
	Rebate       *domain.RebateInput
}

// Link replaces any existing entries for the pair on both mirrors with one
// fresh entry built from the same pricing block.
func (s *LedgerService) Link(ctx context.Context, req LinkRequest) (result *LedgerResult, err error) {
	ctx = logging.WithPair(ctx, req.ItemCode, req.SupplierName)
	defer func() { s.record(ctx, "link", err) }()

	item, supplier, err := s.loadPair(ctx, req.ItemCode, req.SupplierName)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.Actor, req.Secrets, domain.OperationLink); err != nil {
		return nil, err
	}

	if req.Normal == nil {
		return nil, domain.NewValidationError(fmt.Errorf("%w: normal", domain.ErrMissingField))
	}
	rebate, err := validateOptionalRebate(req.Rebate)
	if err != nil {
		return nil, err
	}
	pricing, err := domain.NewPricingBlock(*req.Normal, req.Method, rebate)
	if err != nil {
		return nil, err
	}

	itemSnapshot, supplierSnapshot := item.Clone(), supplier.Clone()
	now := s.now()
	item.LinkSupplier(supplier.Name(), pricing, now)
	supplier.LinkItem(item.Link(), pricing, now)

	if err := s.commitPair(ctx, item, itemSnapshot, supplier, supplierSnapshot); err != nil {
		return nil, err
	}
	return newLedgerResult(item, supplier), nil
}

// UpdatePriceRequest represents a partial price update. Nil fields are left untouched.
type UpdatePriceRequest struct {
	Actor        domain.Actor
	Secrets      domain.Secrets
	ItemCode     string
	SupplierName string
	Normal       *decimal.Decimal
	Method       *domain.PricingMethod
	Rebate       *domain.RebateInput
}

// UpdatePrice patches the pair's pricing on both mirrors, creating a missing
// entry when the patch carries both normal price and method. The item mirror
// is authoritative for the base price: after patching, the supplier mirror is
// given the item mirror's normal price and method.
func (s *LedgerService) UpdatePrice(ctx context.Context, req UpdatePriceRequest) (result *LedgerResult, err error) {
	ctx = logging.WithPair(ctx, req.ItemCode, req.SupplierName)
	defer func() { s.record(ctx, "update_price", err) }()

	item, supplier, err := s.loadPair(ctx, req.ItemCode, req.SupplierName)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.Actor, req.Secrets, domain.OperationUpdatePrice); err != nil {
		return nil, err
	}

	rebate, err := validateOptionalRebate(req.Rebate)
	if err != nil {
		return nil, err
	}
	patch := domain.PricingPatch{Normal: req.Normal, Method: req.Method, Rebate: rebate}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	_, onItem := item.SupplierEntry(supplier.Name())
	_, onSupplier := supplier.ItemEntry(item.Code())
	if (!onItem || !onSupplier) && !patch.IsComplete() {
		return nil, domain.NewValidationError(domain.ErrIncompleteBasePricing)
	}

	itemSnapshot, supplierSnapshot := item.Clone(), supplier.Clone()
	now := s.now()
	if err := item.UpdateSupplierPricing(supplier.Name(), patch, now); err != nil {
		return nil, err
	}
	entry, _ := item.SupplierEntry(supplier.Name())
	mirrored := domain.PricingPatch{
		Normal: &entry.Pricing.Normal,
		Method: &entry.Pricing.Method,
		Rebate: patch.Rebate,
	}
	if err := supplier.UpdateItemPricing(item.Link(), mirrored, now); err != nil {
		return nil, err
	}

	if err := s.commitPair(ctx, item, itemSnapshot, supplier, supplierSnapshot); err != nil {
		return nil, err
	}
	return newLedgerResult(item, supplier), nil
}

// UnlinkRequest represents a request to end a supplier's offer for an item.
type UnlinkRequest struct {
	Actor        domain.Actor
	Secrets      domain.Secrets
	ItemCode     string
	SupplierName string
}

// Unlink removes the pair's entries from both mirrors. Unlinking a pair that
// is not linked succeeds without writing.
func (s *LedgerService) Unlink(ctx context.Context, req UnlinkRequest) (result *LedgerResult, err error) {
	ctx = logging.WithPair(ctx, req.ItemCode, req.SupplierName)
	defer func() { s.record(ctx, "unlink", err) }()

	item, supplier, err := s.loadPair(ctx, req.ItemCode, req.SupplierName)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.Actor, req.Secrets, domain.OperationUnlink); err != nil {
		return nil, err
	}

	itemSnapshot, supplierSnapshot := item.Clone(), supplier.Clone()
	now := s.now()
	fromItem := item.UnlinkSupplier(supplier.Name(), now)
	fromSupplier := supplier.UnlinkItem(item.Code(), now)

	switch {
	case fromItem == 0 && fromSupplier == 0:
		logging.DebugContext(ctx, "Unlink found no entries")
	case fromSupplier == 0:
		err = s.coordinator.CommitOne(ctx, s.itemWrite(item, itemSnapshot))
	case fromItem == 0:
		err = s.coordinator.CommitOne(ctx, s.supplierWrite(supplier, supplierSnapshot))
	default:
		err = s.commitPair(ctx, item, itemSnapshot, supplier, supplierSnapshot)
	}
	if err != nil {
		return nil, err
	}
	return newLedgerResult(item, supplier), nil
}

// RemoveRebateRequest identifies a rebate by its position on the item mirror.
type RemoveRebateRequest struct {
	Actor        domain.Actor
	Secrets      domain.Secrets
	ItemCode     string
	SupplierName string
	Index        int
}

// RemoveRebate removes the rebate at Index from the item mirror and the first
// field-equal rebate from the supplier mirror. A missing supplier-side match
// is reported in the result, not as an error.
func (s *LedgerService) RemoveRebate(ctx context.Context, req RemoveRebateRequest) (result *LedgerResult, err error) {
	ctx = logging.WithPair(ctx, req.ItemCode, req.SupplierName)
	defer func() { s.record(ctx, "remove_rebate", err) }()

	item, supplier, err := s.loadPair(ctx, req.ItemCode, req.SupplierName)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.Actor, req.Secrets, domain.OperationRemoveRebate); err != nil {
		return nil, err
	}

	itemSnapshot, supplierSnapshot := item.Clone(), supplier.Clone()
	now := s.now()
	rule, err := item.RemoveRebate(supplier.Name(), req.Index, now)
	if err != nil {
		return nil, err
	}

	if !supplier.RemoveMatchingRebate(item.Code(), rule, now) {
		logging.WarnContext(ctx, "Supplier mirror has no matching rebate", "rebate_type", rule.Type())
		if err := s.coordinator.CommitOne(ctx, s.itemWrite(item, itemSnapshot)); err != nil {
			return nil, err
		}
		result = newLedgerResult(item, supplier)
		result.MirrorAsymmetry = true
		return result, nil
	}

	if err := s.commitPair(ctx, item, itemSnapshot, supplier, supplierSnapshot); err != nil {
		return nil, err
	}
	return newLedgerResult(item, supplier), nil
}

// loadPair fetches both aggregates concurrently.
func (s *LedgerService) loadPair(ctx context.Context, code, name string) (*domain.Item, *domain.Supplier, error) {
	var (
		item     *domain.Item
		supplier *domain.Supplier
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		item, err = s.findItem(gctx, code)
		return err
	})
	g.Go(func() error {
		var err error
		supplier, err = s.findSupplier(gctx, name)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return item, supplier, nil
}

func (s *LedgerService) findItem(ctx context.Context, code string) (*domain.Item, error) {
	item, err := s.items.FindByCode(ctx, code)
	if errors.Is(err, domain.ErrItemNotFound) {
		return nil, &domain.NotFoundError{Kind: "item", Key: code, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("loading item %q: %w", code, err)
	}
	return item, nil
}

func (s *LedgerService) findSupplier(ctx context.Context, name string) (*domain.Supplier, error) {
	supplier, err := s.suppliers.FindByName(ctx, name)
	if errors.Is(err, domain.ErrSupplierNotFound) {
		return nil, &domain.NotFoundError{Kind: "supplier", Key: name, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("loading supplier %q: %w", name, err)
	}
	return supplier, nil
}

func (s *LedgerService) authorize(ctx context.Context, actor domain.Actor, secrets domain.Secrets, op domain.Operation) error {
	ok, err := s.gate.Authorize(ctx, actor, secrets, op)
	if err != nil {
		return fmt.Errorf("authorizing %s: %w", op, err)
	}
	if !ok {
		return &domain.AuthorizationError{Operation: op, Err: domain.ErrNotAuthorized}
	}
	return nil
}

func validateOptionalRebate(in *domain.RebateInput) (*domain.RebateRule, error) {
	if in == nil {
		return nil, nil
	}
	rule, err := domain.ValidateRebate(*in)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *LedgerService) commitPair(
	ctx context.Context,
	item, itemSnapshot *domain.Item,
	supplier, supplierSnapshot *domain.Supplier,
) error {
	return s.coordinator.Commit(ctx,
		s.itemWrite(item, itemSnapshot),
		s.supplierWrite(supplier, supplierSnapshot),
	)
}

func (s *LedgerService) itemWrite(item, snapshot *domain.Item) DocumentWrite {
	return DocumentWrite{
		Name: fmt.Sprintf("item %q", item.Code()),
		Save: func(ctx context.Context) error { return s.items.Save(ctx, item) },
		Revert: func(ctx context.Context) error {
			item.Restore(snapshot)
			return s.items.Save(ctx, item)
		},
	}
}

func (s *LedgerService) supplierWrite(supplier, snapshot *domain.Supplier) DocumentWrite {
	return DocumentWrite{
		Name: fmt.Sprintf("supplier %q", supplier.Name()),
		Save: func(ctx context.Context) error { return s.suppliers.Save(ctx, supplier) },
		Revert: func(ctx context.Context) error {
			supplier.Restore(snapshot)
			return s.suppliers.Save(ctx, supplier)
		},
	}
}

// record logs the outcome of a ledger operation and counts it.
// record expects ctx to carry the item code and supplier being operated on.
func (s *LedgerService) record(ctx context.Context, op string, err error) {
	result := ResultLabel(err)
	metrics.RecordLedgerOperation(op, result)

	attrs := []any{"operation", op, "result", result}
	switch result {
	case "ok":
		logging.InfoContext(ctx, "Ledger operation committed", attrs...)
	case "fatal", "error":
		logging.ErrorContext(ctx, "Ledger operation failed", append(attrs, "error", err)...)
	default:
		logging.WarnContext(ctx, "Ledger operation rejected", append(attrs, "error", err)...)
	}
}

// ResultLabel classifies an operation error for metrics and logs.
func ResultLabel(err error) string {
	var (
		validation *domain.ValidationError
		authz      *domain.AuthorizationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		save       *domain.SaveError
		fatal      *domain.FatalInconsistencyError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &fatal):
		return "fatal"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &authz):
		return "unauthorized"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &save):
		return "save_failed"
	}
	return "error"
}
