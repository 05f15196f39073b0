package property_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	property "github.com/krisalay/cached-property"
	"github.com/krisalay/cached-property/types"
)

//
// ================= TEST OWNER =================
//

type widget struct {
	property.Slots
	id int
}

func newWidget(id int) *widget {
	return &widget{id: id}
}

//
// ================= TEST CLOCK =================
//

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

//
// ================= COUNTING COMPUTATION =================
//

// counter returns a computation yielding 1, 2, 3, ... and the number of
// times it ran.
func counter() (property.Func[*widget, int], *atomic.Int64) {
	var n atomic.Int64
	return func(context.Context, *widget) (int, error) {
		return int(n.Add(1)), nil
	}, &n
}

//
// ================= TEST STORES =================
//

// memoryStore is a types.Store that keeps records in a map.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]types.Record
	loads   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]types.Record)}
}

func (s *memoryStore) Load(_ context.Context, key string) (types.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	rec, ok := s.records[key]
	return rec, ok
}

func (s *memoryStore) Update(_ context.Context, key string, rec *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil {
		delete(s.records, key)
		return nil
	}
	s.records[key] = *rec
	return nil
}

// brokenStore never yields a record and fails every write.
type brokenStore struct{}

func (brokenStore) Load(context.Context, string) (types.Record, bool) {
	return types.Record{}, false
}

func (brokenStore) Update(context.Context, string, *types.Record) error {
	return context.DeadlineExceeded
}
