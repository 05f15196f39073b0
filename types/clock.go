package types

import "time"

// Clock returns the current wall-clock time. Cells read time only through
// a Clock so TTL behaviour can be driven deterministically.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time { return time.Now() }
