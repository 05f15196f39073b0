package writepolicy

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/cached-property/types"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[string]*types.Record
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*types.Record)}
}

func (s *fakeStore) Load(_ context.Context, key string) (types.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return types.Record{}, false
	}
	return *rec, true
}

func (s *fakeStore) Update(_ context.Context, key string, rec *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if rec == nil {
		delete(s.records, key)
		return nil
	}
	s.records[key] = rec
	return nil
}

type countingMetrics struct {
	types.NoopMetrics
	storeErrors int
}

func (m *countingMetrics) StoreError(string) { m.storeErrors++ }

func TestWriteThrough_OnWrite(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	w := NewWriteThroughPolicy(store, nil, nil)
	at := time.Unix(1_700_000_000, 0)

	w.OnWrite(ctx, "answer", types.NewEntry(map[string]int{"n": 42}, at))

	rec, ok := store.Load(ctx, "answer")
	require.True(t, ok)
	assert.JSONEq(t, `{"n": 42}`, string(rec.Value))
	assert.Equal(t, at, rec.ComputedAt)
}

func TestWriteThrough_OnClear(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	w := NewWriteThroughPolicy(store, nil, nil)

	w.OnWrite(ctx, "k", types.NewEntry(1, time.Now()))
	w.OnClear(ctx, "k")

	_, ok := store.Load(ctx, "k")
	assert.False(t, ok)
}

func TestWriteThrough_UnencodableValueIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	metrics := &countingMetrics{}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil)).With("property", "ch")
	w := NewWriteThroughPolicy(store, logger, metrics)

	assert.NotPanics(t, func() {
		w.OnWrite(ctx, "ch", types.NewEntry(make(chan int), time.Now()))
	})

	_, ok := store.Load(ctx, "ch")
	assert.False(t, ok)
	assert.Equal(t, 1, metrics.storeErrors)
	assert.Contains(t, logs.String(), "durable store write failed")
	assert.Equal(t, 1, strings.Count(logs.String(), "property=ch"))
}

func TestWriteThrough_StoreFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.err = errors.New(errors.CodeInternal, "disk full")
	metrics := &countingMetrics{}
	w := NewWriteThroughPolicy(store, nil, metrics)

	w.OnWrite(ctx, "k", types.NewEntry(1, time.Now()))
	w.OnClear(ctx, "k")

	assert.Equal(t, 2, metrics.storeErrors)
}
