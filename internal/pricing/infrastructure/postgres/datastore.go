package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"pricecompare/internal/pricing/infrastructure/secrets"
)

// DataStore groups the PostgreSQL repositories that share one pool.
type DataStore struct {
	pool         *pgxpool.Pool
	itemRepo     *ItemRepository
	supplierRepo *SupplierRepository
	secretStore  *SecretStore
}

// NewDataStore creates a new DataStore with the given connection pool.
func NewDataStore(pool *pgxpool.Pool) *DataStore {
	return &DataStore{
		pool:         pool,
		itemRepo:     NewItemRepository(pool),
		supplierRepo: NewSupplierRepository(pool),
		secretStore:  NewSecretStore(pool),
	}
}

// Items returns the item repository.
func (ds *DataStore) Items() *ItemRepository { return ds.itemRepo }

// Suppliers returns the supplier repository.
func (ds *DataStore) Suppliers() *SupplierRepository { return ds.supplierRepo }

// Secrets returns the role secret store.
func (ds *DataStore) Secrets() *SecretStore { return ds.secretStore }

// SeedSecrets upserts entries in one transaction.
func (ds *DataStore) SeedSecrets(ctx context.Context, entries []secrets.Entry) (err error) {
	tx, err := ds.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	store := NewSecretStore(tx)
	for _, e := range entries {
		if err := store.Upsert(ctx, e); err != nil {
			return fmt.Errorf("seeding %s/%s: %w", e.Actor, e.Name, err)
		}
	}
	return tx.Commit(ctx)
}

// Ping checks database connectivity.
func (ds *DataStore) Ping(ctx context.Context) error {
	return ds.pool.Ping(ctx)
}
