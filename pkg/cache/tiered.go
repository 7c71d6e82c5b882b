package cache

import (
	"context"
	"errors"
)

// TieredStore layers a fast front store over a persistent back store.
//
// Reads are served from the front when possible; back hits are promoted
// into the front. A front failure is treated as a miss, so a broken memory
// tier degrades to the back store alone. Writes go to the back tier first
// and only reach the front when the back accepted them, which keeps the
// front from holding entries that would vanish on restart.
type TieredStore struct {
	front Store
	back  Store
}

// NewTieredStore creates a two-tier store.
func NewTieredStore(front, back Store) *TieredStore {
	return &TieredStore{front: front, back: back}
}

// Get checks the front tier, then the back tier.
func (s *TieredStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	if entry, ok, err := s.front.Get(ctx, key); err == nil && ok {
		return entry, true, nil
	}

	entry, ok, err := s.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = s.front.Put(ctx, key, entry)
	return entry, true, nil
}

// Put writes to the back tier, then the front tier.
func (s *TieredStore) Put(ctx context.Context, key string, entry *Entry) error {
	if err := s.back.Put(ctx, key, entry); err != nil {
		return err
	}
	return s.front.Put(ctx, key, entry)
}

// Delete removes key from both tiers.
func (s *TieredStore) Delete(ctx context.Context, key string) error {
	return errors.Join(s.front.Delete(ctx, key), s.back.Delete(ctx, key))
}

// Close closes both tiers.
func (s *TieredStore) Close() error {
	return errors.Join(s.front.Close(), s.back.Close())
}

var _ Store = (*TieredStore)(nil)
