package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pricecompare/internal/common/metrics"
	"pricecompare/internal/pricing/domain"
)

// SupplierRepository implements domain.SupplierRepository using PostgreSQL.
type SupplierRepository struct {
	db Executor
}

// NewSupplierRepository creates a new SupplierRepository.
func NewSupplierRepository(db Executor) *SupplierRepository {
	return &SupplierRepository{db: db}
}

const supplierColumns = `id, name, items, version, created_at, updated_at`

// Save inserts a new supplier or updates an existing one under the version check.
func (r *SupplierRepository) Save(ctx context.Context, supplier *domain.Supplier) error {
	start := time.Now()
	defer func() { metrics.RecordSaveDuration("suppliers", time.Since(start)) }()

	items, err := encodeItemEntries(supplier.Items())
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	if supplier.Version() == 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO catalog.suppliers (`+supplierColumns+`)
			VALUES ($1, $2, $3, 1, $4, $5)`,
			supplier.ID().String(),
			supplier.Name(),
			items,
			supplier.CreatedAt(),
			supplier.UpdatedAt(),
		)
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		if err != nil {
			return err
		}
		supplier.MarkPersisted(1)
		return nil
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE catalog.suppliers
		SET items = $1,
			version = version + 1,
			updated_at = $2
		WHERE name = $3 AND version = $4`,
		items,
		supplier.UpdatedAt(),
		supplier.Name(),
		supplier.Version(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		metrics.RecordOptimisticLockConflict("suppliers")
		return domain.ErrOptimisticLock
	}
	supplier.MarkPersisted(supplier.Version() + 1)
	return nil
}

// Delete removes the supplier if its version still matches.
func (r *SupplierRepository) Delete(ctx context.Context, supplier *domain.Supplier) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM catalog.suppliers WHERE name = $1 AND version = $2`,
		supplier.Name(), supplier.Version(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM catalog.suppliers WHERE name = $1)`, supplier.Name(),
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrSupplierNotFound
	}
	metrics.RecordOptimisticLockConflict("suppliers")
	return domain.ErrOptimisticLock
}

// FindByName retrieves a supplier by name.
func (r *SupplierRepository) FindByName(ctx context.Context, name string) (*domain.Supplier, error) {
	supplier, err := scanSupplier(r.db.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM catalog.suppliers WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSupplierNotFound
	}
	return supplier, err
}

// ListByItem uses JSONB containment on the item mirror.
func (r *SupplierRepository) ListByItem(ctx context.Context, code string) ([]*domain.Supplier, error) {
	filter, err := json.Marshal([]map[string]map[string]string{{"item": {"code": code}}})
	if err != nil {
		return nil, err
	}
	return r.list(ctx, `SELECT `+supplierColumns+` FROM catalog.suppliers WHERE items @> $1::jsonb ORDER BY name`, filter)
}

// List retrieves every supplier ordered by name.
func (r *SupplierRepository) List(ctx context.Context) ([]*domain.Supplier, error) {
	return r.list(ctx, `SELECT `+supplierColumns+` FROM catalog.suppliers ORDER BY name`)
}

func (r *SupplierRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Supplier, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []*domain.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, rows.Err()
}

func scanSupplier(row pgx.Row) (*domain.Supplier, error) {
	var (
		id        string
		name      string
		items     []byte
		version   int
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &items, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	supplierID, err := domain.ParseSupplierID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	entries, err := decodeItemEntries(items)
	if err != nil {
		return nil, fmt.Errorf("supplier %q: %w", name, err)
	}
	return domain.ReconstructSupplier(supplierID, name, entries, version, createdAt, updatedAt), nil
}
