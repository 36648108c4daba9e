// Package snapshot persists a serialized cart locally: the continuity
// mechanism for anonymous shoppers and the staleness baseline for
// authenticated ones. The store itself is an opaque string key/value store
// with optional expiry; the envelope codec owns the serialization format.
package snapshot

import "time"

// DefaultKey is the store key the engine persists the cart under.
const DefaultKey = "cart.snapshot"

// Store is a string-keyed store with optional time-to-live. A zero ttl means
// the entry does not expire.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration) error
	Remove(key string) error
	Close() error
}
