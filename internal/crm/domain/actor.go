package domain

import "github.com/google/uuid"

// Actor identifies who performed a mutation, for attribution on ledger
// records. The name is denormalized so activity timelines render without a
// user lookup.
type Actor struct {
	ID   uuid.UUID
	Name string
}
