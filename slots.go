package property

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/krisalay/cached-property/types"
)

/*
This file defines where memoized values physically live: in the owner.

Owners embed Slots and thereby satisfy Owner. A Property looks up its entry
by name in the owner's Slots, so one Property definition serves any number
of owners without holding a reference to any of them.

Reads vastly outnumber writes (a value is written once per computation and
read on every access), so Slots uses copy-on-write:
- Readers load an immutable snapshot without locking
- Writers copy the map, change the copy and swap it in atomically
*/

// Owner is implemented by any type that carries Slots.
type Owner interface {
	CacheSlots() *Slots
}

// Slots is per-owner storage for memoized entries, keyed by property name.
// The zero value is empty and ready to use. Slots must not be copied after
// first use.
type Slots struct {

	// mu serialises writers. Readers never take it.
	mu sync.Mutex

	// data holds the current map[string]*types.Entry snapshot.
	data atomic.Pointer[map[string]*types.Entry]
}

// CacheSlots returns s. Embedding Slots promotes this method, which makes
// the embedding type an Owner.
func (s *Slots) CacheSlots() *Slots {
	return s
}

func (s *Slots) snapshot() map[string]*types.Entry {
	if m := s.data.Load(); m != nil {
		return *m
	}
	return nil
}

// Get returns the entry stored under name.
func (s *Slots) Get(name string) (*types.Entry, bool) {
	ent, ok := s.snapshot()[name]
	return ent, ok
}

// Put stores ent under name, replacing any previous entry.
func (s *Slots) Put(name string, ent *types.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snapshot()
	n := make(map[string]*types.Entry, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[name] = ent

	s.data.Store(&n)
}

// Delete removes the entry stored under name and reports whether there was
// one. Deleting resets the property: its next access computes again.
func (s *Slots) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snapshot()
	if _, ok := old[name]; !ok {
		return false
	}

	n := make(map[string]*types.Entry, len(old))
	for k, v := range old {
		if k != name {
			n[k] = v
		}
	}

	s.data.Store(&n)
	return true
}

// Names returns the names that currently hold an entry, sorted.
func (s *Slots) Names() []string {
	m := s.snapshot()
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns how many entries are stored.
func (s *Slots) Len() int {
	return len(s.snapshot())
}
