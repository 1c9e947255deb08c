package id

import "github.com/google/uuid"

// UUIDGenerator issues random (v4) identifiers for orders and products.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }
