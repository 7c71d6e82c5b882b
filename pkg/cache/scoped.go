package cache

import "context"

// ScopedStore wraps a Store with a key prefix for namespace isolation.
// Two styles loaded with different access tokens, for example, can share one
// backing store without reading each other's private tiles.
//
// Example usage:
//
//	private := NewScopedStore(store, "token:abc123:")
//	public := store
type ScopedStore struct {
	inner  Store
	prefix string
}

// NewScopedStore creates a store whose keys are prefixed with prefix.
// A nil inner store is replaced with a NullStore.
func NewScopedStore(inner Store, prefix string) *ScopedStore {
	if inner == nil {
		inner = NewNullStore()
	}
	return &ScopedStore{inner: inner, prefix: prefix}
}

// Get retrieves an entry from the scoped namespace.
func (s *ScopedStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Put stores an entry in the scoped namespace.
func (s *ScopedStore) Put(ctx context.Context, key string, entry *Entry) error {
	return s.inner.Put(ctx, s.prefix+key, entry)
}

// Delete removes an entry from the scoped namespace.
func (s *ScopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the inner store.
func (s *ScopedStore) Close() error {
	return s.inner.Close()
}

var _ Store = (*ScopedStore)(nil)
