package domain

import "context"

// ItemRepository persists items as single documents.
type ItemRepository interface {
	// FindByCode retrieves an item by its reference code.
	// Returns ErrItemNotFound when no record exists.
	FindByCode(ctx context.Context, code string) (*Item, error)
	// Save inserts an unpersisted item (version 0) or updates a loaded one.
	// Insert returns ErrDuplicateKey when the code is taken. Update returns
	// ErrOptimisticLock when the stored version differs from item.Version().
	// On success the item carries its new version.
	Save(ctx context.Context, item *Item) error
	// Delete removes the item, guarded by version like Save. Returns
	// ErrItemNotFound when no record exists and ErrOptimisticLock when the
	// stored version differs.
	Delete(ctx context.Context, item *Item) error
	// ListBySupplier returns the items whose mirror references the supplier.
	ListBySupplier(ctx context.Context, supplier string) ([]*Item, error)
	// List returns every item ordered by code.
	List(ctx context.Context) ([]*Item, error)
}

// SupplierRepository persists suppliers as single documents.
type SupplierRepository interface {
	// FindByName retrieves a supplier by name.
	// Returns ErrSupplierNotFound when no record exists.
	FindByName(ctx context.Context, name string) (*Supplier, error)
	// Save has the same insert/update semantics as ItemRepository.Save.
	Save(ctx context.Context, supplier *Supplier) error
	// Delete has the same semantics as ItemRepository.Delete, returning
	// ErrSupplierNotFound for a missing record.
	Delete(ctx context.Context, supplier *Supplier) error
	// ListByItem returns the suppliers whose mirror references the item code.
	ListByItem(ctx context.Context, code string) ([]*Supplier, error)
	// List returns every supplier ordered by name.
	List(ctx context.Context) ([]*Supplier, error)
}
