// Package httputil provides the HTTP plumbing under the file source.
//
// # Overview
//
//   - [ParseCacheControl] and [ExpiresAt]: freshness from response headers
//   - [Transport]: the network fetch interface, with [HTTPTransport] over net/http
//   - [Retry]: automatic retry with exponential backoff
//
// # Freshness
//
// Only the max-age directive grants freshness. A response without a valid
// max-age gets a zero expiry, which the cache treats as already stale, so the
// next use revalidates:
//
//	expires := httputil.ExpiresAt(resp.Header.Get("Cache-Control"), time.Now())
//
// # Retry
//
// [Retry] retries errors wrapped in [RetryableError]. [HTTPTransport] wraps
// connection failures that way; the file source additionally treats 5xx
// responses as retryable.
package httputil
