// Package reference produces the correlation ids shared by the one or two
// transaction rows of a single ledger operation.
package reference

import "github.com/google/uuid"

// Generator yields reference numbers that are unique across the system,
// including under concurrent generation.
type Generator interface {
	Next() string
}

type uuidGenerator struct{}

// NewGenerator returns the default UUID-backed generator.
func NewGenerator() Generator {
	return uuidGenerator{}
}

func (uuidGenerator) Next() string {
	return uuid.NewString()
}
