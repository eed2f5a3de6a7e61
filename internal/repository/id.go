package repository

import (
	"github.com/oklog/ulid/v2"
)

// NewID returns a ULID string. Ordering ids lexicographically gives creation
// order, including ids minted within the same millisecond.
func NewID() string {
	return ulid.Make().String()
}
