// Package property provides lazily computed, memoized values attached to an
// owning object.
//
// A Property is defined once, usually as a package-level variable, and used
// with any number of owners. The memoized value never lives in the Property:
// each owner carries its own Slots, normally by embedding it, and the value is
// stored there under the property's name.
//
//	type Repo struct {
//	    property.Slots
//	    URL string
//	}
//
//	var stars = property.Must(property.New("stars",
//	    func(ctx context.Context, r *Repo) (int, error) {
//	        return fetchStars(ctx, r.URL)
//	    },
//	    property.WithTTL(10*time.Minute),
//	    property.Threaded(),
//	))
//
//	n, err := stars.Get(ctx, repo)
//
// Configurations
//
// With no options a Property computes once per owner and never again until
// the value is cleared, either with Clear or by deleting the name from the
// owner's Slots. Concurrent first accesses may compute more than once.
//
// WithTTL bounds the age of a value: an access more than TTL after the value
// was computed computes it again.
//
// Threaded runs every access inside a reentrant lock shared by all owners of
// the property, so a value is computed exactly once per owner (or once per
// expiry) however many goroutines ask for it. A computation may access the
// same property again as long as it passes on the context it was given.
// Without a TTL the first value stored wins, so a reentrant access made
// during the computation decides the result. Goroutines started inside a
// computation that inherit its context count as the lock holder too and are
// not serialised against each other; give them a fresh context if they
// access the property. A context kept after the computation returns locks
// normally.
//
// WithStorePath keeps a copy of every value in a JSON document that survives
// restarts. The document is keyed by property name only, so all owners of a
// property share one durable value. On access the durable copy wins over the
// in-memory one; if the store has nothing usable the owner's Slots are
// consulted. Values must be JSON encodable; store failures are logged and
// never returned.
package property
