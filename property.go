package property

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmgilman/go/errors"

	"github.com/krisalay/cached-property/api"
	"github.com/krisalay/cached-property/engine"
	"github.com/krisalay/cached-property/expiration"
	"github.com/krisalay/cached-property/guard"
	"github.com/krisalay/cached-property/store"
	"github.com/krisalay/cached-property/types"
)

// Func computes the value of a property for one owner. The context is the
// one passed to Get; pass it on when accessing other properties so a
// Threaded property can be reentered.
type Func[O Owner, V any] func(ctx context.Context, owner O) (V, error)

/*
Property is one memoized value definition.
It connects:
- the computation
- the owner's Slots, where each owner's entry lives
- the engine (expiry, durable store, metrics, logging)
- the optional reentrant guard

A Property holds no per-owner state and is safe to share.
*/
type Property[O Owner, V any] struct {
	name    string
	compute Func[O, V]

	// engine contains the rules of the property: TTL, store, metrics, clock.
	engine *engine.CacheEngine

	// guard is nil unless the property is Threaded.
	guard *guard.Reentrant

	// keepFirst makes a computation yield to an entry published while it
	// ran, which under the guard can only be a reentrant one.
	keepFirst bool
}

// New defines a property stored under name and computed by fn.
func New[O Owner, V any](name string, fn Func[O, V], opts ...Option) (*Property[O, V], error) {
	if name == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "property name cannot be empty")
	}
	if fn == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "property computation cannot be nil")
	}

	var s settings
	for _, opt := range opts {
		opt.apply(&s)
	}
	if s.ttl < 0 {
		return nil, errors.Newf(errors.CodeInvalidConfig, "ttl of %q cannot be negative", name)
	}

	logger := s.logger
	if logger != nil {
		logger = logger.With("property", name)
	}

	st := s.store
	if st == nil && s.storePath != "" {
		storeOpts := s.storeOpts
		if logger != nil {
			storeOpts = append([]store.Option{store.WithLogger(logger)}, storeOpts...)
		}
		fileStore, err := store.NewFileStore(s.storePath, storeOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "failed to open store for %q", name)
		}
		st = fileStore
	}

	p := &Property[O, V]{
		name:    name,
		compute: fn,
		engine:  engine.NewCacheEngine(expiration.New(s.ttl), st, s.metrics, logger, s.clock),
	}
	if s.threaded {
		p.guard = &guard.Reentrant{}
		p.keepFirst = s.ttl == 0
	}
	return p, nil
}

// Must panics if New failed. It is meant for package-level definitions.
func Must[O Owner, V any](p *Property[O, V], err error) *Property[O, V] {
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the name entries are stored under.
func (p *Property[O, V]) Name() string {
	return p.name
}

/*
Get returns the value for owner, computing it if there is no fresh one.

Lookup order:
 1. the durable store, if configured
 2. the owner's Slots, if the store had nothing usable
 3. nothing found, or found but older than the TTL: compute, then write
    the new entry to the Slots and through to the store

A Threaded property without TTL keeps the first value stored: if a
reentrant access stored one while the computation ran, that value is
returned and the outer result is discarded.
*/
func (p *Property[O, V]) Get(ctx context.Context, owner O) (V, error) {
	if p.guard == nil {
		return p.get(ctx, owner)
	}

	var v V
	err := p.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		v, err = p.get(ctx, owner)
		return err
	})
	return v, err
}

func (p *Property[O, V]) get(ctx context.Context, owner O) (V, error) {
	e := p.engine

	if ent, v, ok := p.lookup(ctx, owner.CacheSlots()); ok {
		if !e.IsExpired(ent) {
			e.Metrics.Hit(p.name)
			return v, nil
		}
		e.Metrics.Expire(p.name)
	} else {
		e.Metrics.Miss(p.name)
	}

	v, err := p.compute(ctx, owner)
	if err != nil {
		var zero V
		return zero, err
	}
	e.Metrics.Compute(p.name)
	e.Logger.DebugContext(ctx, "property computed")

	if p.keepFirst {
		if ent, ok := owner.CacheSlots().Get(p.name); ok {
			if first, ok := valueOf[V](ent); ok {
				return first, nil
			}
		}
	}

	p.publish(ctx, owner, v)
	return v, nil
}

// lookup finds the current entry without computing. The durable copy is
// preferred; an undecodable one counts as absent.
func (p *Property[O, V]) lookup(ctx context.Context, slots *Slots) (*types.Entry, V, bool) {
	if rec, ok := p.engine.Load(ctx, p.name); ok {
		var v V
		err := json.Unmarshal(rec.Value, &v)
		if err == nil {
			return types.NewEntry(v, rec.ComputedAt), v, true
		}
		p.engine.Logger.DebugContext(ctx, "durable value does not decode", "error", err)
	}

	if ent, ok := slots.Get(p.name); ok {
		if v, ok := valueOf[V](ent); ok {
			return ent, v, true
		}
	}

	var zero V
	return nil, zero, false
}

// valueOf extracts a V from an entry placed in Slots. Entries holding another
// type (written by foreign code) are treated as absent.
func valueOf[V any](ent *types.Entry) (V, bool) {
	if ent.Value == nil {
		var zero V
		return zero, true
	}
	v, ok := ent.Value.(V)
	return v, ok
}

func (p *Property[O, V]) publish(ctx context.Context, owner O, v V) {
	ent := types.NewEntry(v, p.engine.Now())
	owner.CacheSlots().Put(p.name, ent)
	p.engine.OnWrite(ctx, p.name, ent)
}

// Set stores value for owner, stamped with the current time, without running
// the computation. The value is written through to the store.
func (p *Property[O, V]) Set(ctx context.Context, owner O, value V) {
	p.locked(ctx, func(ctx context.Context) {
		p.publish(ctx, owner, value)
	})
}

// Clear removes the value from owner's Slots and from the store.
func (p *Property[O, V]) Clear(ctx context.Context, owner O) {
	p.locked(ctx, func(ctx context.Context) {
		owner.CacheSlots().Delete(p.name)
		p.engine.OnClear(ctx, p.name)
	})
}

// Peek returns the value Get would return without computing, along with the
// time it was computed. Expired values are reported too; ok is false only if
// there is no value at all.
func (p *Property[O, V]) Peek(ctx context.Context, owner O) (value V, computedAt time.Time, ok bool) {
	p.locked(ctx, func(ctx context.Context) {
		var ent *types.Entry
		ent, value, ok = p.lookup(ctx, owner.CacheSlots())
		if ok {
			computedAt = ent.ComputedAt
		}
	})
	return value, computedAt, ok
}

func (p *Property[O, V]) locked(ctx context.Context, fn func(ctx context.Context)) {
	if p.guard == nil {
		fn(ctx)
		return
	}
	_ = p.guard.Do(ctx, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

var _ api.Cell[*Slots, any] = (*Property[*Slots, any])(nil)
