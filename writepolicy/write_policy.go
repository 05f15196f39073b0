package writepolicy

import (
	"context"

	"github.com/krisalay/cached-property/types"
)

/*
This file defines what a "write policy" is.

A cell always keeps its entry in the owner's own storage. The write policy
decides what else happens when an entry is computed, set or cleared, which
today means forwarding it to a durable store.
*/

/*
WritePolicy is the contract that all write policies must follow.
The cell engine does not care which policy is used. It simply calls these
methods and never sees an error: persistence is best-effort.
*/
type WritePolicy interface {

	/*
		OnWrite is called after an entry became visible in owner storage.
	*/
	OnWrite(ctx context.Context, key string, ent *types.Entry)

	/*
		OnClear is called after an entry was removed from owner storage.
	*/
	OnClear(ctx context.Context, key string)
}
