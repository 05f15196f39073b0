// This file defines how memoized entries expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/cached-property/types"
)

/*
Strategy is the interface that all expiration rules must follow. Instead of
hard-coding expiration logic into the cell, we define a strategy so the
behaviour can be swapped easily (and tested on its own).
*/
type Strategy interface {

	// IsExpired checks if the entry is stale at the given moment.
	IsExpired(*types.Entry, time.Time) bool
}

// Never is the strategy of a cell without TTL: entries live until cleared.
type Never struct{}

// IsExpired always reports false.
func (Never) IsExpired(*types.Entry, time.Time) bool { return false }

// New returns the strategy for a configured TTL. A TTL of zero or less means
// entries never expire.
func New(ttl time.Duration) Strategy {
	if ttl <= 0 {
		return Never{}
	}
	return &ExpireAfterWrite{TTL: ttl}
}
