package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"pricecompare/internal/pricing/domain"
)

// DataStore keeps item and supplier documents in maps keyed by business key.
// Documents are cloned on the way in and out, so callers never share state
// with the store, and every Save is version-checked like the postgres store.
// Concurrency: all access is guarded by a mutex.
type DataStore struct {
	mu        sync.RWMutex
	items     map[string]*domain.Item
	suppliers map[string]*domain.Supplier

	itemRepo     *ItemRepository
	supplierRepo *SupplierRepository
}

// NewDataStore creates a new in-memory DataStore.
func NewDataStore() *DataStore {
	ds := &DataStore{
		items:     make(map[string]*domain.Item),
		suppliers: make(map[string]*domain.Supplier),
	}
	ds.itemRepo = &ItemRepository{store: ds}
	ds.supplierRepo = &SupplierRepository{store: ds}
	return ds
}

// Items returns the item repository.
func (ds *DataStore) Items() *ItemRepository { return ds.itemRepo }

// Suppliers returns the supplier repository.
func (ds *DataStore) Suppliers() *SupplierRepository { return ds.supplierRepo }

// ItemRepository implements domain.ItemRepository.
type ItemRepository struct {
	store *DataStore
}

func (r *ItemRepository) FindByCode(ctx context.Context, code string) (*domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.items[code]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (r *ItemRepository) Save(ctx context.Context, item *domain.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.items[item.Code()]
	if err := checkVersion(item.Version(), ok, func() int { return existing.Version() }); err != nil {
		return err
	}
	item.MarkPersisted(item.Version() + 1)
	r.store.items[item.Code()] = item.Clone()
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, item *domain.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.items[item.Code()]
	if !ok {
		return domain.ErrItemNotFound
	}
	if existing.Version() != item.Version() {
		return domain.ErrOptimisticLock
	}
	delete(r.store.items, item.Code())
	return nil
}

func (r *ItemRepository) ListBySupplier(ctx context.Context, supplier string) ([]*domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Item
	for _, item := range r.store.items {
		if _, ok := item.SupplierEntry(supplier); ok {
			out = append(out, item.Clone())
		}
	}
	sortItems(out)
	return out, nil
}

func (r *ItemRepository) List(ctx context.Context) ([]*domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Item, 0, len(r.store.items))
	for _, item := range r.store.items {
		out = append(out, item.Clone())
	}
	sortItems(out)
	return out, nil
}

// SupplierRepository implements domain.SupplierRepository.
type SupplierRepository struct {
	store *DataStore
}

func (r *SupplierRepository) FindByName(ctx context.Context, name string) (*domain.Supplier, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	supplier, ok := r.store.suppliers[name]
	if !ok {
		return nil, domain.ErrSupplierNotFound
	}
	return supplier.Clone(), nil
}

func (r *SupplierRepository) Save(ctx context.Context, supplier *domain.Supplier) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.suppliers[supplier.Name()]
	if err := checkVersion(supplier.Version(), ok, func() int { return existing.Version() }); err != nil {
		return err
	}
	supplier.MarkPersisted(supplier.Version() + 1)
	r.store.suppliers[supplier.Name()] = supplier.Clone()
	return nil
}

func (r *SupplierRepository) Delete(ctx context.Context, supplier *domain.Supplier) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.suppliers[supplier.Name()]
	if !ok {
		return domain.ErrSupplierNotFound
	}
	if existing.Version() != supplier.Version() {
		return domain.ErrOptimisticLock
	}
	delete(r.store.suppliers, supplier.Name())
	return nil
}

func (r *SupplierRepository) ListByItem(ctx context.Context, code string) ([]*domain.Supplier, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Supplier
	for _, supplier := range r.store.suppliers {
		if _, ok := supplier.ItemEntry(code); ok {
			out = append(out, supplier.Clone())
		}
	}
	sortSuppliers(out)
	return out, nil
}

func (r *SupplierRepository) List(ctx context.Context) ([]*domain.Supplier, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.Supplier, 0, len(r.store.suppliers))
	for _, supplier := range r.store.suppliers {
		out = append(out, supplier.Clone())
	}
	sortSuppliers(out)
	return out, nil
}

// checkVersion applies the insert/update rules shared by both repositories:
// version 0 inserts and must not collide, anything else must match the stored version.
func checkVersion(version int, exists bool, stored func() int) error {
	if version == 0 {
		if exists {
			return domain.ErrDuplicateKey
		}
		return nil
	}
	if !exists || stored() != version {
		return domain.ErrOptimisticLock
	}
	return nil
}

func sortItems(items []*domain.Item) {
	slices.SortFunc(items, func(a, b *domain.Item) int { return cmp.Compare(a.Code(), b.Code()) })
}

func sortSuppliers(suppliers []*domain.Supplier) {
	slices.SortFunc(suppliers, func(a, b *domain.Supplier) int { return cmp.Compare(a.Name(), b.Name()) })
}
