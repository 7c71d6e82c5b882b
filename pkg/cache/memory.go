package cache

import (
	"context"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

// entryOverhead approximates the bookkeeping cost of one entry beyond its
// payload, so that many tiny entries still count against MaxBytes.
const entryOverhead = 128

// MemoryOptions configures a MemoryStore.
type MemoryOptions struct {
	// MaxBytes bounds the total cost of cached payloads. When the bound is
	// reached, ristretto evicts by sampled LFU. Defaults to 64 MiB.
	MaxBytes int64

	// Counters is the number of keys tracked for admission frequency.
	// Defaults to ten times the expected number of entries.
	Counters int64
}

// SetDefaults fills unset options.
func (o *MemoryOptions) SetDefaults() {
	if o.MaxBytes <= 0 {
		o.MaxBytes = 64 << 20
	}
	if o.Counters <= 0 {
		// Assume roughly 16 KiB per tile.
		o.Counters = max(o.MaxBytes/(16<<10)*10, 1000)
	}
}

// MemoryStore is an in-process store with a cost bound. It is the front tier
// for tiles in interactive use; nothing survives the process.
type MemoryStore struct {
	cache  *ristretto.Cache
	closed atomic.Bool
}

// NewMemoryStore creates a bounded in-memory store.
func NewMemoryStore(opts MemoryOptions) (*MemoryStore, error) {
	opts.SetDefaults()
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.Counters,
		MaxCost:     opts.MaxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: c}, nil
}

// Get retrieves an entry.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry, ok := v.(Entry)
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put stores a copy of entry. The write is visible to Get when Put returns,
// unless the admission policy rejected it.
func (s *MemoryStore) Put(ctx context.Context, key string, entry *Entry) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if entry == nil {
		return ErrInvalidEntry
	}
	s.cache.Set(key, *entry, int64(len(entry.Data))+entryOverhead)
	s.cache.Wait()
	return nil
}

// Delete removes an entry.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.cache.Del(key)
	return nil
}

// Close stops the store's background goroutines.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cache.Close()
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
