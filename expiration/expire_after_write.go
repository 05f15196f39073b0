package expiration

import (
	"time"

	"github.com/krisalay/cached-property/types"
)

/*
ExpireAfterWrite implements a fixed TTL measured from the moment the value
was computed (or explicitly set). Reads do not extend the lifetime: once TTL
has elapsed since ComputedAt, the next read recomputes.
*/
type ExpireAfterWrite struct {

	// TTL is the maximum age of an entry.
	TTL time.Duration
}

// IsExpired reports whether more than TTL has elapsed since the entry was
// computed. An entry exactly TTL old is still fresh.
func (e *ExpireAfterWrite) IsExpired(ent *types.Entry, now time.Time) bool {
	return e.TTL < ent.Age(now)
}
