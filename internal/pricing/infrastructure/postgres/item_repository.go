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

// ItemRepository implements domain.ItemRepository using PostgreSQL.
// The supplier mirror is a JSONB column on the item row.
type ItemRepository struct {
	db Executor
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db Executor) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, standard, code, name, suppliers, version, created_at, updated_at`

// Save inserts a new item or updates an existing one.
// Updates are guarded by the version column; a stale version returns ErrOptimisticLock.
func (r *ItemRepository) Save(ctx context.Context, item *domain.Item) error {
	start := time.Now()
	defer func() { metrics.RecordSaveDuration("items", time.Since(start)) }()

	suppliers, err := encodeSupplierEntries(item.Suppliers())
	if err != nil {
		return fmt.Errorf("encoding suppliers: %w", err)
	}

	if item.Version() == 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO catalog.items (`+itemColumns+`)
			VALUES ($1, $2, $3, $4, $5, 1, $6, $7)`,
			item.ID().String(),
			string(item.Ref().Standard),
			item.Code(),
			item.Name(),
			suppliers,
			item.CreatedAt(),
			item.UpdatedAt(),
		)
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		if err != nil {
			return err
		}
		item.MarkPersisted(1)
		return nil
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE catalog.items
		SET name = $1,
			suppliers = $2,
			version = version + 1,
			updated_at = $3
		WHERE code = $4 AND version = $5`,
		item.Name(),
		suppliers,
		item.UpdatedAt(),
		item.Code(),
		item.Version(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		metrics.RecordOptimisticLockConflict("items")
		return domain.ErrOptimisticLock
	}
	item.MarkPersisted(item.Version() + 1)
	return nil
}

// Delete removes the item if its version still matches.
func (r *ItemRepository) Delete(ctx context.Context, item *domain.Item) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM catalog.items WHERE code = $1 AND version = $2`,
		item.Code(), item.Version(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM catalog.items WHERE code = $1)`, item.Code(),
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrItemNotFound
	}
	metrics.RecordOptimisticLockConflict("items")
	return domain.ErrOptimisticLock
}

// FindByCode retrieves an item by reference code.
func (r *ItemRepository) FindByCode(ctx context.Context, code string) (*domain.Item, error) {
	item, err := scanItem(r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM catalog.items WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	return item, err
}

// ListBySupplier uses JSONB containment on the supplier mirror.
func (r *ItemRepository) ListBySupplier(ctx context.Context, supplier string) ([]*domain.Item, error) {
	filter, err := json.Marshal([]map[string]string{{"supplier": supplier}})
	if err != nil {
		return nil, err
	}
	return r.list(ctx, `SELECT `+itemColumns+` FROM catalog.items WHERE suppliers @> $1::jsonb ORDER BY code`, filter)
}

// List retrieves every item ordered by code.
func (r *ItemRepository) List(ctx context.Context) ([]*domain.Item, error) {
	return r.list(ctx, `SELECT `+itemColumns+` FROM catalog.items ORDER BY code`)
}

func (r *ItemRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Item, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		id        string
		standard  string
		code      string
		name      string
		suppliers []byte
		version   int
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &standard, &code, &name, &suppliers, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	itemID, err := domain.ParseItemID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	entries, err := decodeSupplierEntries(suppliers)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", code, err)
	}

	return domain.ReconstructItem(
		itemID,
		domain.ItemRef{Standard: domain.Standard(standard), Code: code},
		name,
		entries,
		version,
		createdAt,
		updatedAt,
	), nil
}
