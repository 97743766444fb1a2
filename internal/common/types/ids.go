package types

import "github.com/google/uuid"

// CorrelationID tracks a request across service boundaries.
type CorrelationID string

// ActorID identifies the principal performing a mutation.
// Identity resolution happens outside this service; the value is trusted as given.
type ActorID string

// NewCorrelationID generates a new unique CorrelationID.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.NewString())
}

// String returns the string representation of CorrelationID.
func (c CorrelationID) String() string {
	return string(c)
}

// IsEmpty checks if the CorrelationID is empty.
func (c CorrelationID) IsEmpty() bool {
	return c == ""
}

// String returns the string representation of ActorID.
func (a ActorID) String() string {
	return string(a)
}

// IsEmpty checks if the ActorID is empty.
func (a ActorID) IsEmpty() bool {
	return a == ""
}
