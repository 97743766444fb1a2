package domain

import (
	"errors"
	"fmt"
)

// Sentinel causes. They are wrapped by the typed errors below, so callers can
// match either the class (errors.As) or the precise cause (errors.Is).
var (
	// ErrItemNotFound is returned when an item cannot be found by its business key.
	ErrItemNotFound = errors.New("item not found")

	// ErrSupplierNotFound is returned when a supplier cannot be found by name.
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrRebateNotFound is returned when no rebate exists at the requested index.
	ErrRebateNotFound = errors.New("rebate not found")

	// ErrUnknownRebateType is returned for a typeOfRebate outside the closed variant set.
	ErrUnknownRebateType = errors.New("unknown rebate type")

	// ErrInvalidWindow is returned when a rebate starts after it ends.
	ErrInvalidWindow = errors.New("rebate start must not be after end")

	// ErrMissingField is returned when a field required by the rebate variant is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrUnexpectedField is returned when a field is supplied that the rebate variant does not use.
	ErrUnexpectedField = errors.New("field not allowed for rebate type")

	// ErrInvalidPricingMethod is returned for an unsupported pricing method.
	ErrInvalidPricingMethod = errors.New("invalid pricing method")

	// ErrInvalidQuantity is returned when a rebate's X or Y is below one.
	ErrInvalidQuantity = errors.New("rebate quantities must be at least 1")

	// ErrNegativePrice is returned when a price or rebate amount is below zero.
	ErrNegativePrice = errors.New("price must not be negative")

	// ErrIncompleteBasePricing is returned when a missing mirror entry would be
	// created without both normal price and method.
	ErrIncompleteBasePricing = errors.New("normal price and method are required to create a price entry")

	// ErrInvalidStandard is returned for an item reference standard other than PLU, UPC or EAN.
	ErrInvalidStandard = errors.New("invalid item reference standard")

	// ErrEmptyBusinessKey is returned when an item code or supplier name is empty.
	ErrEmptyBusinessKey = errors.New("business key cannot be empty")

	// ErrDuplicateKey is returned when inserting an aggregate whose business key already exists.
	ErrDuplicateKey = errors.New("business key already exists")

	// ErrOptimisticLock is returned when an optimistic lock conflict occurs.
	ErrOptimisticLock = errors.New("optimistic lock conflict")

	// ErrNotAuthorized is returned when the authorization gate rejects a mutation.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrCorruptData is returned when a stored document cannot be decoded.
	ErrCorruptData = errors.New("corrupt data in datastore")
)

// ValidationError reports caller input that violates a pricing rule.
// Never retried.
type ValidationError struct {
	Err error
}

// NewValidationError wraps err as a ValidationError.
func NewValidationError(err error) *ValidationError {
	return &ValidationError{Err: err}
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// AuthorizationError reports a rejected or missing role-scoped secret.
type AuthorizationError struct {
	Operation Operation
	Err       error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to %s", e.Operation)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// NotFoundError reports a missing item or supplier.
type NotFoundError struct {
	Kind string // "item" or "supplier"
	Key  string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// SaveError reports a transient persistence failure. The stored state is
// consistent (or was compensated), so the whole operation may be retried.
type SaveError struct {
	Document string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving %s: %v", e.Document, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// ConflictError reports that another writer modified a document first.
type ConflictError struct {
	Document string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s", e.Document)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// FatalInconsistencyError reports that the secondary save failed and the
// compensating write of the primary document failed as well. The item and
// supplier mirrors are divergent and need operator intervention.
type FatalInconsistencyError struct {
	Primary         string
	Secondary       string
	SaveErr         error
	CompensationErr error
}

func (e *FatalInconsistencyError) Error() string {
	return fmt.Sprintf("pricing mirrors diverged: saving %s failed (%v) and restoring %s failed (%v)",
		e.Secondary, e.SaveErr, e.Primary, e.CompensationErr)
}

func (e *FatalInconsistencyError) Unwrap() []error {
	return []error{e.SaveErr, e.CompensationErr}
}
