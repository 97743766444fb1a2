package secrets

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"pricecompare/internal/common/logging"
	"pricecompare/internal/common/types"
	"pricecompare/internal/pricing/domain"
)

// Store looks up the bcrypt hash configured for one role-scoped secret.
type Store interface {
	// Lookup returns found=false when no secret with that name is configured
	// for the actor and role.
	Lookup(ctx context.Context, actor types.ActorID, role domain.Role, name string) (hash []byte, found bool, err error)
}

// Gate implements domain.AuthorizationGate against hashed secrets.
//
// For every role the actor holds, the gate looks up the operation-scoped
// secret (e.g. "supplierAdd"). Each role with a configured secret must have
// been given the matching plaintext. An actor with no configured secret for
// any of its roles is rejected.
type Gate struct {
	store Store
}

// NewGate creates a Gate reading hashes from store.
func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

func (g *Gate) Authorize(ctx context.Context, actor domain.Actor, provided domain.Secrets, op domain.Operation) (bool, error) {
	checked := 0
	for _, role := range actor.Roles {
		name := domain.SecretName(role, op)
		hash, found, err := g.store.Lookup(ctx, actor.ID, role, name)
		if err != nil {
			return false, fmt.Errorf("looking up secret %s: %w", name, err)
		}
		if !found {
			continue
		}
		checked++

		value, ok := provided[name]
		if !ok || value == "" {
			logging.WarnContext(ctx, "Secret not supplied", "role", string(role), "secret", name)
			return false, nil
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(value)); err != nil {
			if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return false, fmt.Errorf("comparing secret %s: %w", name, err)
			}
			logging.WarnContext(ctx, "Secret mismatch", "role", string(role), "secret", name)
			return false, nil
		}
	}
	if checked == 0 {
		logging.WarnContext(ctx, "No secret configured for actor roles", "operation", string(op))
		return false, nil
	}
	return true, nil
}

// Hash returns the bcrypt hash of a plaintext secret.
func Hash(plain string, cost int) ([]byte, error) {
	if plain == "" {
		return nil, errors.New("secret cannot be empty")
	}
	return bcrypt.GenerateFromPassword([]byte(plain), cost)
}
