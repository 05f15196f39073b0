package types

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the durable form of an Entry: the value is kept as encoded
// JSON so that each cell can decode it into its own value type.
type Record struct {
	Value      json.RawMessage
	ComputedAt time.Time
}

// Store is the contract between a cell and its durable backing document.
type Store interface {

	/*
		Load returns the record persisted under key.

		Every failure (missing document, corrupt document, missing key,
		malformed record) is reported as ok == false. Load never fails
		loudly; callers fall back to in-memory state.
	*/
	Load(ctx context.Context, key string) (rec Record, ok bool)

	/*
		Update replaces the record under key. A nil record removes the key.

		The error is informational: cells log it and carry on, since
		persistence is best-effort.
	*/
	Update(ctx context.Context, key string, rec *Record) error
}
