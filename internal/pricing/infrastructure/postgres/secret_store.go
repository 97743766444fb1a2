package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"pricecompare/internal/common/types"
	"pricecompare/internal/pricing/domain"
	"pricecompare/internal/pricing/infrastructure/secrets"
)

// SecretStore implements secrets.Store using PostgreSQL.
type SecretStore struct {
	db Executor
}

// NewSecretStore creates a new SecretStore.
func NewSecretStore(db Executor) *SecretStore {
	return &SecretStore{db: db}
}

var _ secrets.Store = (*SecretStore)(nil)

func (s *SecretStore) Lookup(ctx context.Context, actor types.ActorID, role domain.Role, name string) ([]byte, bool, error) {
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT secret_hash FROM catalog.role_secrets
		WHERE actor_id = $1 AND role = $2 AND secret_name = $3`,
		actor.String(), string(role), name,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(hash), true, nil
}

// Upsert stores or replaces a secret hash.
func (s *SecretStore) Upsert(ctx context.Context, e secrets.Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO catalog.role_secrets (actor_id, role, secret_name, secret_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (actor_id, role, secret_name)
		DO UPDATE SET secret_hash = EXCLUDED.secret_hash, updated_at = EXCLUDED.updated_at`,
		e.Actor.String(), string(e.Role), e.Name, string(e.Hash), time.Now().UTC(),
	)
	return err
}
