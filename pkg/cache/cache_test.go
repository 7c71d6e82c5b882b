package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEntryFresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry *Entry
		want  bool
	}{
		{"nil entry", nil, false},
		{"no expiry", &Entry{Data: []byte("x")}, false},
		{"future expiry", &Entry{Expires: now.Add(time.Minute)}, true},
		{"past expiry", &Entry{Expires: now.Add(-time.Second)}, false},
		{"expires now", &Entry{Expires: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Fresh(now); got != tt.want {
				t.Errorf("Fresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntryRevalidatable(t *testing.T) {
	if (&Entry{}).Revalidatable() {
		t.Error("entry without validators should not be revalidatable")
	}
	if !(&Entry{ETag: `"abc"`}).Revalidatable() {
		t.Error("entry with ETag should be revalidatable")
	}
	if !(&Entry{Modified: time.Now()}).Revalidatable() {
		t.Error("entry with Last-Modified should be revalidatable")
	}
}

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewNullStore()
	defer s.Close()

	if err := s.Put(ctx, "key", &Entry{Data: []byte("value")}); err != nil {
		t.Errorf("Put error: %v", err)
	}
	if _, hit, _ := s.Get(ctx, "key"); hit {
		t.Error("NullStore should not store data")
	}
	if err := s.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("http://x/tile"))
	if h1 != Hash([]byte("http://x/tile")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("http://x/other")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

// storeContract exercises the behavior every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).Truncate(time.Second).UTC()

	if _, hit, err := s.Get(ctx, "http://x/missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	entry := &Entry{Data: []byte("tile-bytes"), Expires: expires, ETag: `"v1"`}
	if err := s.Put(ctx, "http://x/tile", entry); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, hit, err := s.Get(ctx, "http://x/tile")
	if err != nil || !hit {
		t.Fatalf("Get() = hit %v, err %v", hit, err)
	}
	if !bytes.Equal(got.Data, entry.Data) || !got.Expires.Equal(expires) || got.ETag != `"v1"` {
		t.Errorf("Get() = %+v, want %+v", got, entry)
	}

	// Put overwrites unconditionally, even with an already expired entry.
	stale := &Entry{Data: []byte("new-bytes")}
	if err := s.Put(ctx, "http://x/tile", stale); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, hit, _ = s.Get(ctx, "http://x/tile")
	if !hit || string(got.Data) != "new-bytes" {
		t.Errorf("overwrite not visible: %+v", got)
	}
	if got.Fresh(time.Now()) {
		t.Error("entry without expiry should be stale")
	}

	if err := s.Delete(ctx, "http://x/tile"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, hit, _ := s.Get(ctx, "http://x/tile"); hit {
		t.Error("entry still present after Delete")
	}
	if err := s.Delete(ctx, "http://x/tile"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}

	if err := s.Put(ctx, "k", nil); err == nil {
		t.Error("Put(nil) should fail")
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	storeContract(t, s)
}

func TestFileStoreKeepsStaleEntries(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())

	past := time.Now().Add(-time.Hour)
	_ = s.Put(ctx, "http://x/a", &Entry{Data: []byte("a"), Expires: past})

	got, hit, err := s.Get(ctx, "http://x/a")
	if err != nil || !hit {
		t.Fatalf("stale entry should still be returned: hit %v, err %v", hit, err)
	}
	if got.Fresh(time.Now()) {
		t.Error("entry should be stale")
	}
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewFileStore(dir)

	path := s.path("http://x/broken")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := s.Get(ctx, "http://x/broken"); hit || err != nil {
		t.Errorf("Get(corrupt) = hit %v, err %v; want miss", hit, err)
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := NewMemoryStore(MemoryOptions{MaxBytes: 1 << 20})
	if err != nil {
		t.Fatalf("NewMemoryStore() error: %v", err)
	}
	defer s.Close()
	storeContract(t, s)
}

func TestMemoryStoreClosed(t *testing.T) {
	s, _ := NewMemoryStore(MemoryOptions{})
	_ = s.Close()
	_ = s.Close()

	if _, _, err := s.Get(context.Background(), "k"); err != ErrClosed {
		t.Errorf("Get after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryOptionsDefaults(t *testing.T) {
	var o MemoryOptions
	o.SetDefaults()
	if o.MaxBytes != 64<<20 {
		t.Errorf("MaxBytes = %d", o.MaxBytes)
	}
	if o.Counters < 1000 {
		t.Errorf("Counters = %d", o.Counters)
	}
}

func TestScopedStore(t *testing.T) {
	ctx := context.Background()
	inner, _ := NewFileStore(t.TempDir())
	a := NewScopedStore(inner, "a:")
	b := NewScopedStore(inner, "b:")

	_ = a.Put(ctx, "http://x/tile", &Entry{Data: []byte("from-a")})

	if _, hit, _ := b.Get(ctx, "http://x/tile"); hit {
		t.Error("scope b should not see scope a's entry")
	}
	if _, hit, _ := inner.Get(ctx, "a:http://x/tile"); !hit {
		t.Error("inner store should hold the prefixed key")
	}
	storeContract(t, a)
}

func TestScopedStoreNilInner(t *testing.T) {
	s := NewScopedStore(nil, "p:")
	if err := s.Put(context.Background(), "k", &Entry{}); err != nil {
		t.Errorf("Put() error: %v", err)
	}
}

func TestTieredStorePromotes(t *testing.T) {
	ctx := context.Background()
	front, _ := NewFileStore(t.TempDir())
	back, _ := NewFileStore(t.TempDir())
	s := NewTieredStore(front, back)

	_ = back.Put(ctx, "http://x/tile", &Entry{Data: []byte("persisted")})

	got, hit, err := s.Get(ctx, "http://x/tile")
	if err != nil || !hit || string(got.Data) != "persisted" {
		t.Fatalf("Get() = %v, %v, %v", got, hit, err)
	}
	if _, hit, _ := front.Get(ctx, "http://x/tile"); !hit {
		t.Error("back hit should be promoted to the front tier")
	}

	storeContract(t, s)
}
