// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in this module emit events through hook interfaces instead of
// depending on a metrics backend. The CLI registers a Prometheus-backed
// implementation at startup; everything else sees no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCacheHooks(collector)
//	    observability.SetHTTPHooks(collector)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Cache().OnCacheHit(ctx, "tile")
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Style Hooks
// =============================================================================

// StyleHooks receives events from the style engine.
type StyleHooks interface {
	// OnStyleParsed records a stylesheet parse attempt.
	OnStyleParsed(ctx context.Context, sources, layers int, duration time.Duration, err error)

	// OnRecalculate records one recalculation pass.
	OnRecalculate(ctx context.Context, layers int, pendingTransitions bool, duration time.Duration)

	// OnResourceFailed records a resource failure surfaced to the observer.
	OnResourceFailed(ctx context.Context, kind string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from resource cache lookups.
type CacheHooks interface {
	// OnCacheHit records a fresh cache hit served without network I/O.
	OnCacheHit(ctx context.Context, kind string)

	// OnCacheMiss records a lookup that found no entry.
	OnCacheMiss(ctx context.Context, kind string)

	// OnCacheStale records a lookup that found an expired entry.
	OnCacheStale(ctx context.Context, kind string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, kind string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from network fetches.
type HTTPHooks interface {
	// OnRequest records an outgoing request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records a response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records a transport failure (connection error, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopStyleHooks is a no-op implementation of StyleHooks.
type NoopStyleHooks struct{}

func (NoopStyleHooks) OnStyleParsed(context.Context, int, int, time.Duration, error) {}
func (NoopStyleHooks) OnRecalculate(context.Context, int, bool, time.Duration)       {}
func (NoopStyleHooks) OnResourceFailed(context.Context, string, error)               {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheStale(context.Context, string)    {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	styleHooks StyleHooks = NoopStyleHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetStyleHooks registers custom style hooks.
// This should be called once at application startup before any style is created.
func SetStyleHooks(h StyleHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		styleHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Style returns the registered style hooks.
func Style() StyleHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return styleHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	styleHooks = NoopStyleHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
