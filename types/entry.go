package types

import "time"

// Entry is one memoized value together with the moment it was computed.
// Entries are immutable once published; a refresh replaces the pointer.
type Entry struct {
	Value      any
	ComputedAt time.Time
}

// NewEntry stamps value with the given computation time.
func NewEntry(value any, at time.Time) *Entry {
	return &Entry{Value: value, ComputedAt: at}
}

// Age returns how long ago the entry was computed, relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.ComputedAt)
}
