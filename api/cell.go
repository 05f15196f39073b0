package api

import "context"

/*
Cell defines the PUBLIC contract of one memoized property.
It guarantees certain behaviours without exposing internals: where the value
is kept, how expiry is decided, whether a lock or a durable store is
involved are all hidden behind this interface.

O is the owning type, V the type of the computed value.
*/
type Cell[O any, V any] interface {

	/*
		Get returns the memoized value for owner.

		BEHAVIOR:
		-------------------
		1. If a fresh value exists (durable store first, then the owner's
		   own storage):
		   - Return it without computing

		2. If no value exists or it outlived its TTL:
		   - Run the computation with owner
		   - Store the result with the current time
		   - Return it

		A failing computation stores nothing and its error is returned
		unchanged.
	*/
	Get(ctx context.Context, owner O) (V, error)

	/*
		Set stores value for owner as if it had just been computed.
		The computation does not run.
	*/
	Set(ctx context.Context, owner O, value V)

	/*
		Clear forgets the value for owner, in memory and in the durable
		store. The next Get computes again.

		This operation is idempotent.
	*/
	Clear(ctx context.Context, owner O)

	/*
		Name returns the attribute name the value is stored under.
	*/
	Name() string
}
