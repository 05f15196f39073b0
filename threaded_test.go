package property_test

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	property "github.com/krisalay/cached-property"
	"github.com/krisalay/cached-property/store"
)

//
// ================= THREADED =================
//

func TestThreadedComputesOnceUnderContention(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	p := property.Must(property.New("slow", func(context.Context, *widget) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return int(calls.Add(1)), nil
	}, property.Threaded()))
	w := newWidget(1)

	start := make(chan struct{})
	results := make([]int, 50)

	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			<-start
			v, err := p.Get(ctx, w)
			results[i] = v
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 1, v)
	}
}

func TestThreadedRecomputesOncePerExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	fn, calls := counter()
	p := property.Must(property.New("count", fn,
		property.Threaded(),
		property.WithTTL(time.Second),
		property.WithClock(clock.Now),
	))
	w := newWidget(1)

	for round := 1; round <= 3; round++ {
		var g errgroup.Group
		for i := 0; i < 10; i++ {
			g.Go(func() error {
				v, err := p.Get(ctx, w)
				if err == nil {
					assert.Equal(t, round, v)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		clock.Advance(2 * time.Second)
	}

	assert.Equal(t, int64(3), calls.Load())
}

// nestedCounter returns a computation that, on its first run, reads the
// property again through the context it was given and adds 10.
func nestedCounter(p **property.Property[*widget, int]) (property.Func[*widget, int], *atomic.Int64) {
	var calls atomic.Int64
	return func(ctx context.Context, w *widget) (int, error) {
		if calls.Add(1) == 1 {
			inner, err := (*p).Get(ctx, w)
			if err != nil {
				return 0, err
			}
			return inner + 10, nil
		}
		return 1, nil
	}, &calls
}

func getWithin(t *testing.T, p *property.Property[*widget, int], w *widget) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan int, 1)
	go func() {
		v, err := p.Get(ctx, w)
		assert.NoError(t, err)
		done <- v
	}()

	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		t.Fatal("reentrant access deadlocked")
		return 0
	}
}

func TestThreadedIsReentrant(t *testing.T) {
	var p *property.Property[*widget, int]
	fn, calls := nestedCounter(&p)
	p = property.Must(property.New("nested", fn, property.Threaded()))
	w := newWidget(1)

	assert.Equal(t, 1, getWithin(t, p, w), "the value stored first is kept")

	v, err := p.Get(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int64(2), calls.Load())
}

func TestThreadedTTLReentrantStoresOuterValue(t *testing.T) {
	var p *property.Property[*widget, int]
	fn, calls := nestedCounter(&p)
	p = property.Must(property.New("nested", fn, property.Threaded(), property.WithTTL(time.Hour)))
	w := newWidget(1)

	assert.Equal(t, 11, getWithin(t, p, w))

	v, err := p.Get(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 11, v)
	assert.Equal(t, int64(2), calls.Load())
}

func TestThreadedContextOutlivingComputationLocks(t *testing.T) {
	var calls atomic.Int64
	var kept context.Context
	p := property.Must(property.New("slow", func(ctx context.Context, w *widget) (int, error) {
		if kept == nil {
			kept = ctx
		}
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return w.id, nil
	}, property.Threaded()))

	_, err := p.Get(context.Background(), newWidget(1))
	require.NoError(t, err)
	require.NotNil(t, kept)
	calls.Store(0)

	w := newWidget(2)
	start := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			<-start
			_, err := p.Get(kept, w)
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), calls.Load())
}

func TestThreadedOwnersShareTheLock(t *testing.T) {
	ctx := context.Background()
	var inside, maxInside atomic.Int64
	p := property.Must(property.New("serial", func(_ context.Context, w *widget) (int, error) {
		n := inside.Add(1)
		defer inside.Add(-1)
		for {
			m := maxInside.Load()
			if n <= m || maxInside.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return w.id, nil
	}, property.Threaded()))

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		w := newWidget(i)
		g.Go(func() error {
			v, err := p.Get(ctx, w)
			if err == nil {
				assert.Equal(t, w.id, v)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), maxInside.Load())
}

func TestThreadedSetAndClear(t *testing.T) {
	ctx := context.Background()
	fn, calls := counter()
	p := property.Must(property.New("count", fn, property.Threaded()))
	w := newWidget(1)

	p.Set(ctx, w, 5)
	v, _ := p.Get(ctx, w)
	assert.Equal(t, 5, v)

	p.Clear(ctx, w)
	v, _ = p.Get(ctx, w)
	assert.Equal(t, 1, v)
	assert.Equal(t, int64(1), calls.Load())
}

func TestThreadedPersistedRecomputesOncePerExpiry(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	clock := newFakeClock()
	fn, calls := counter()
	p := property.Must(property.New("count", fn,
		property.Threaded(),
		property.WithTTL(time.Second),
		property.WithClock(clock.Now),
		property.WithStorePath("/props.json", store.WithFS(memfs)),
	))
	reader, err := store.NewFileStore("/props.json", store.WithFS(memfs))
	require.NoError(t, err)

	for round := 1; round <= 3; round++ {
		var g errgroup.Group
		for i := 0; i < 10; i++ {
			w := newWidget(i)
			g.Go(func() error {
				v, err := p.Get(ctx, w)
				if err == nil {
					assert.Equal(t, round, v)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int64(round), calls.Load())

		rec, ok := reader.Load(ctx, "count")
		require.True(t, ok)
		assert.JSONEq(t, strconv.Itoa(round), string(rec.Value))
		assert.WithinDuration(t, clock.Now(), rec.ComputedAt, time.Microsecond)

		clock.Advance(2 * time.Second)
	}
}
