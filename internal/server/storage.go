package server

import (
	"context"
	"fmt"

	"pricecompare/internal/common/config"
	"pricecompare/internal/common/logging"
	"pricecompare/internal/pricing/domain"
	"pricecompare/internal/pricing/infrastructure/memory"
	"pricecompare/internal/pricing/infrastructure/postgres"
	"pricecompare/internal/pricing/infrastructure/secrets"
)

// Storage is the set of stores selected by STORAGE_DRIVER.
type Storage struct {
	Items     domain.ItemRepository
	Suppliers domain.SupplierRepository
	Secrets   secrets.Store

	// Postgres is set only for the postgres driver.
	Postgres *postgres.DataStore

	close func()
}

// OpenStorage connects the configured document and secret stores.
// Side effects: for the postgres driver, opens a connection pool.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := cfg.NewPostgresPool(ctx)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		ds := postgres.NewDataStore(pool)
		logging.InfoContext(ctx, "Using postgres document store")
		return &Storage{
			Items:     ds.Items(),
			Suppliers: ds.Suppliers(),
			Secrets:   ds.Secrets(),
			Postgres:  ds,
			close:     pool.Close,
		}, nil

	default:
		store := secrets.NewMemoryStore()
		if cfg.SecretsFile != "" {
			loaded, err := secrets.LoadFile(cfg.SecretsFile)
			if err != nil {
				return nil, err
			}
			store = loaded
		} else {
			logging.WarnContext(ctx, "SECRETS_FILE not set, every mutation will be rejected")
		}
		ds := memory.NewDataStore()
		logging.InfoContext(ctx, "Using in-memory document store")
		return &Storage{
			Items:     ds.Items(),
			Suppliers: ds.Suppliers(),
			Secrets:   store,
		}, nil
	}
}

// Ping reports whether the backing database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if s.Postgres == nil {
		return nil
	}
	return s.Postgres.Ping(ctx)
}

// Close releases the connection pool, if any.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}
