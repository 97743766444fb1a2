package domain

import (
	"context"
	"slices"

	"pricecompare/internal/common/types"
)

// Role is a capability an actor can hold.
type Role string

const (
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSupplier, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Actor is the principal performing a mutation.
type Actor struct {
	ID    types.ActorID
	Roles []Role
}

// HasRole reports whether the actor holds the role.
func (a Actor) HasRole(role Role) bool {
	return slices.Contains(a.Roles, role)
}

// Operation is a kind of ledger mutation that requires a role-scoped secret.
type Operation string

const (
	OperationLink           Operation = "link"
	OperationUpdatePrice    Operation = "update price"
	OperationUnlink         Operation = "unlink"
	OperationRemoveRebate   Operation = "remove rebate"
	OperationDeleteItem     Operation = "delete item"
	OperationDeleteSupplier Operation = "delete supplier"
)

var secretActions = map[Operation]string{
	OperationLink:           "Add",
	OperationUpdatePrice:    "Update",
	OperationUnlink:         "Remove",
	OperationRemoveRebate:   "RebateRemove",
	OperationDeleteItem:     "ItemDelete",
	OperationDeleteSupplier: "Delete",
}

// SecretName returns the name of the secret a role must present for op,
// e.g. "supplierAdd" for a supplier linking an item.
func SecretName(role Role, op Operation) string {
	return string(role) + secretActions[op]
}

// Secrets maps secret names to the plaintext values supplied with a request.
type Secrets map[string]string

// AuthorizationGate decides whether an actor supplied the correct role-scoped
// secrets for an operation. Secret storage and hashing belong to the implementation.
type AuthorizationGate interface {
	Authorize(ctx context.Context, actor Actor, secrets Secrets, op Operation) (bool, error)
}

// Alerter pages operators about mirrors that could not be reconciled.
type Alerter interface {
	Alert(ctx context.Context, err *FatalInconsistencyError)
}
