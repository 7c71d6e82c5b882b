// Package cache implements the resource cache: a persistent key-value store
// mapping a resource URL to its bytes plus freshness metadata.
//
// # Overview
//
// Every implementation satisfies [Store]:
//
//   - [FileStore]: JSON files under ~/.cache/tilestyle/, one per URL
//   - [MemoryStore]: bounded in-process store with cost-based eviction
//   - [RedisStore]: shared store for multi-process deployments
//   - [MongoStore]: document store keyed by URL
//   - [NullStore]: never stores anything
//   - [TieredStore]: a fast front store over a persistent back store
//   - [ScopedStore]: prefixes keys for namespace isolation
//
// Stores do not expire entries on read. A stale entry is still returned so
// the file source can revalidate it with a conditional request; freshness is
// decided by the caller with [Entry.Fresh].
//
// # Composition
//
// Stores wrap each other. The CLI builds its cache like this:
//
//	back, _ := cache.NewFileStore(dir)
//	front, _ := cache.NewMemoryStore(cache.MemoryOptions{})
//	store := cache.NewScopedStore(cache.NewTieredStore(front, back), "token:"+id+":")
//
// Keys are the request URL as the style wrote it, before mapbox:// expansion.
// The token never appears in a key; [ScopedStore] keeps tokens apart instead.
package cache

import (
	"context"
	"time"
)

// Entry is a cached resource together with the HTTP metadata needed to decide
// whether it can be served as-is.
//
// Expires is derived from Cache-Control max-age when the entry is written. A
// zero Expires marks the entry stale from the start, which forces a
// revalidation on the next read. Modified and ETag carry the validators sent
// back in If-Modified-Since and If-None-Match; an entry without either cannot
// be revalidated and is fetched again in full.
type Entry struct {
	Data     []byte    `json:"data" bson:"data"`
	Expires  time.Time `json:"expires,omitempty" bson:"expires,omitempty"`   // zero means already stale
	Modified time.Time `json:"modified,omitempty" bson:"modified,omitempty"` // Last-Modified from the server
	ETag     string    `json:"etag,omitempty" bson:"etag,omitempty"`
}

// Fresh reports whether the entry may be served at now without contacting
// the network. An entry without an expiry is never fresh.
func (e *Entry) Fresh(now time.Time) bool {
	return e != nil && !e.Expires.IsZero() && now.Before(e.Expires)
}

// Revalidatable reports whether a conditional request can be built for the
// entry.
func (e *Entry) Revalidatable() bool {
	return e != nil && (!e.Modified.IsZero() || e.ETag != "")
}

// Store is a persistent resource cache keyed by the exact request URL.
//
// Implementations must be safe for concurrent use: the file source calls
// Get and Put from its worker goroutines. A Store never interprets the
// entry it holds; it neither expires nor validates entries. Errors are
// reserved for backend failures, so a miss is reported through the boolean
// and not as an error.
//
// Callers that only want caching when it works treat a Get error as a miss:
//
//	entry, ok, err := store.Get(ctx, url)
//	if err != nil || !ok {
//	    // fetch from the network
//	}
type Store interface {
	// Get returns the entry for key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Put stores entry under key, overwriting any prior entry.
	Put(ctx context.Context, key string, entry *Entry) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}
