package writepolicy

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jmgilman/go/errors"

	"github.com/krisalay/cached-property/types"
)

/*
This file implements the "write-through" policy.

Whenever a cell writes an entry, the same entry is written to the durable
store before the access returns:

	compute → owner storage → store (synchronous)

Because it is synchronous, a guarded cell publishes the durable copy inside
its critical section, so no other goroutine can read the store between the
in-memory write and the durable one.
*/

// WriteThroughPolicy forwards every write and clear to a types.Store.
type WriteThroughPolicy struct {

	// store is the durable document entries are persisted to.
	store types.Store

	logger  *slog.Logger
	metrics types.Metrics
}

/*
NewWriteThroughPolicy creates a new write-through policy. A nil logger or
metrics falls back to a silent implementation.
*/
func NewWriteThroughPolicy(store types.Store, logger *slog.Logger, metrics types.Metrics) *WriteThroughPolicy {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &WriteThroughPolicy{store: store, logger: logger, metrics: metrics}
}

/*
OnWrite encodes the entry and stores it under key. Failures (a value that is
not representable as JSON, an unwritable path) are logged and counted, never
returned: the entry is already live in memory.
*/
func (w *WriteThroughPolicy) OnWrite(ctx context.Context, key string, ent *types.Entry) {
	raw, err := json.Marshal(ent.Value)
	if err != nil {
		w.fail(ctx, key, errors.Wrapf(err, errors.CodeInvalidInput, "value of %q cannot be persisted", key))
		return
	}

	rec := &types.Record{Value: raw, ComputedAt: ent.ComputedAt}
	if err := w.store.Update(ctx, key, rec); err != nil {
		w.fail(ctx, key, err)
	}
}

// OnClear removes key from the store.
func (w *WriteThroughPolicy) OnClear(ctx context.Context, key string) {
	if err := w.store.Update(ctx, key, nil); err != nil {
		w.fail(ctx, key, err)
	}
}

// fail records a failed write. The logger is expected to carry the property
// name already.
func (w *WriteThroughPolicy) fail(ctx context.Context, key string, err error) {
	w.metrics.StoreError(key)
	w.logger.WarnContext(ctx, "durable store write failed", "error", err)
}

var _ WritePolicy = (*WriteThroughPolicy)(nil)
