package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key. Defaults to "tilestyle:".
	Prefix string

	// Retention bounds how long Redis keeps an entry, independent of its
	// HTTP freshness. Zero keeps entries until Redis evicts them.
	Retention time.Duration
}

// RedisStore keeps entries in Redis so several processes share one cache.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	owned     bool
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	s := NewRedisStoreFromClient(client, opts.Prefix, opts.Retention)
	s.owned = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps
// ownership of the client; Close does not close it.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "tilestyle:"
	}
	return &RedisStore{client: client, prefix: prefix, retention: retention}
}

// Get retrieves an entry.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put stores an entry.
func (s *RedisStore) Put(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, data, s.retention).Err()
}

// Delete removes an entry.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Close closes the client if the store created it.
func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
