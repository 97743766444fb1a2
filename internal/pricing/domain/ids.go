package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when parsing an identifier that is not a UUID.
var ErrInvalidID = errors.New("invalid uuid format")

// ItemID is the opaque storage identifier of an item. Lookups use the item code;
// the ID travels in supplier mirrors as a stable back-reference.
type ItemID struct {
	value string
}

// NewItemID generates a new unique ItemID.
func NewItemID() ItemID {
	return ItemID{value: uuid.NewString()}
}

// ParseItemID creates an ItemID from a string, validating UUID format.
func ParseItemID(s string) (ItemID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return ItemID{}, fmt.Errorf("item_id: %w: %q", ErrInvalidID, s)
	}
	return ItemID{value: s}, nil
}

func (i ItemID) String() string { return i.value }
func (i ItemID) IsEmpty() bool  { return i.value == "" }

// SupplierID is the opaque storage identifier of a supplier.
type SupplierID struct {
	value string
}

// NewSupplierID generates a new unique SupplierID.
func NewSupplierID() SupplierID {
	return SupplierID{value: uuid.NewString()}
}

// ParseSupplierID creates a SupplierID from a string, validating UUID format.
func ParseSupplierID(s string) (SupplierID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return SupplierID{}, fmt.Errorf("supplier_id: %w: %q", ErrInvalidID, s)
	}
	return SupplierID{value: s}, nil
}

func (s SupplierID) String() string { return s.value }
func (s SupplierID) IsEmpty() bool  { return s.value == "" }
