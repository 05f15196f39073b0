package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/krisalay/cached-property/expiration"
	"github.com/krisalay/cached-property/types"
	"github.com/krisalay/cached-property/writepolicy"
)

/*
CacheEngine is the "brain" of a cell.
It is responsible for the behaviour of one memoized property, NOT for
storing its value (the owner does that) and NOT for locking (the guard does
that). It is the policy layer every access goes through.

It decides:
- What time it is
- When an entry is expired
- Where a durable copy is read from
- How writes and clears are propagated to the durable store
- How metrics are recorded

One engine is built per property definition and shared by every owner of
that property, so it holds configuration only.
*/
type CacheEngine struct {

	// Expiration controls when an entry should be considered too old.
	// If this is nil, entries never expire based on time.
	Expiration expiration.Strategy

	// Store is the optional durable document. If nil, entries live only in
	// owner storage and Load always misses.
	Store types.Store

	// WritePolicy decides what happens after an entry is written or cleared.
	// If nil, writes stay only in memory.
	WritePolicy writepolicy.WritePolicy

	// Metrics is how we keep track of what the cell is doing.
	Metrics types.Metrics

	// Logger receives debug and warning records; it already carries the
	// property name.
	Logger *slog.Logger

	// Clock is the time source for computation stamps and expiry checks.
	Clock types.Clock
}

/*
NewCacheEngine creates a CacheEngine.

A store implies write-through persistence. Nil metrics, logger and clock
are replaced with no-op, discard and system defaults.
*/
func NewCacheEngine(
	exp expiration.Strategy,
	store types.Store,
	metrics types.Metrics,
	logger *slog.Logger,
	clock types.Clock,
) *CacheEngine {

	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clock == nil {
		clock = types.SystemClock
	}

	var policy writepolicy.WritePolicy
	if store != nil {
		policy = writepolicy.NewWriteThroughPolicy(store, logger, metrics)
	}

	return &CacheEngine{
		Expiration:  exp,
		Store:       store,
		WritePolicy: policy,
		Metrics:     metrics,
		Logger:      logger,
		Clock:       clock,
	}
}

// Now returns the engine's notion of the current time.
func (e *CacheEngine) Now() time.Time {
	return e.Clock()
}

/*
IsExpired checks whether an entry is expired right now.
Returns false if no expiration strategy is configured.
*/
func (e *CacheEngine) IsExpired(ent *types.Entry) bool {
	return e.Expiration != nil &&
		e.Expiration.IsExpired(ent, e.Now())
}

/*
Load fetches the durable copy of key. Without a store, or on any store
failure, it reports a miss and the caller falls back to owner storage.
*/
func (e *CacheEngine) Load(ctx context.Context, key string) (types.Record, bool) {
	if e.Store == nil {
		return types.Record{}, false
	}
	return e.Store.Load(ctx, key)
}

/*
OnWrite is called after a computed or explicitly set entry has been placed
in owner storage.
*/
func (e *CacheEngine) OnWrite(ctx context.Context, key string, ent *types.Entry) {
	if e.WritePolicy != nil {
		e.WritePolicy.OnWrite(ctx, key, ent)
	}
}

/*
OnClear is called after an entry has been removed from owner storage.
*/
func (e *CacheEngine) OnClear(ctx context.Context, key string) {
	if e.WritePolicy != nil {
		e.WritePolicy.OnClear(ctx, key)
	}
}
