// Package guard provides the reentrant lock placed around a cell's
// check-compute-store sequence.
//
// Go has no goroutine identity, so ownership is carried by the context: Do
// hands the critical section a context marked with a token for the current
// hold, and a nested Do that receives that context (or one derived from it)
// runs without locking again. Code that wants to reenter must therefore pass
// the context it was given. A goroutine started inside the critical section
// that inherits the marked context is treated as the holder as well.
//
// Each hold mints a fresh token, so a marked context that outlives its
// critical section no longer counts as holding the guard and locks normally.
package guard

import (
	"context"
	"sync"
	"sync/atomic"
)

// Reentrant is a mutex that can be reacquired along one context chain.
// The zero value is ready to use.
type Reentrant struct {
	mu sync.Mutex

	// holder is the token of the current hold, nil while unlocked.
	holder atomic.Pointer[byte]
}

type heldKey struct {
	g *Reentrant
}

// Do runs fn while holding the guard. If ctx already holds it, fn runs
// immediately.
func (g *Reentrant) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.Held(ctx) {
		return fn(ctx)
	}

	g.mu.Lock()
	tok := new(byte)
	g.holder.Store(tok)
	defer func() {
		g.holder.Store(nil)
		g.mu.Unlock()
	}()

	return fn(context.WithValue(ctx, heldKey{g}, tok))
}

// Held reports whether ctx was handed out by the current hold of Do on this
// guard.
func (g *Reentrant) Held(ctx context.Context) bool {
	tok, ok := ctx.Value(heldKey{g}).(*byte)
	return ok && tok == g.holder.Load()
}
