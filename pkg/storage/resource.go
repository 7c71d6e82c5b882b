// Package storage implements the file source: the single entry point the
// style graph uses to obtain the bytes behind a URL.
//
// [DefaultFileSource] arbitrates between the resource cache and the network.
// A fresh cache entry is served without network I/O. Otherwise the request
// joins the in-flight fetch for the same URL, or starts one. Successful
// responses are written back to the cache with an expiry derived from
// Cache-Control max-age.
//
// Callbacks run on worker goroutines. Callers that mutate shared state must
// marshal results onto their own goroutine (see package runloop).
//
// # Errors
//
// Every failure reaches the callback as an
// [github.com/matzehuels/tilestyle/pkg/errors.ResourceError] carrying the
// resource kind, URL and HTTP status, so a caller can report it without
// knowing which layer failed:
//
//	files.Request(storage.Tile(url), func(r *storage.Response) {
//	    if re, ok := errors.AsResourceError(r.Err); ok {
//	        log.Warn("tile failed", "kind", re.Kind, "status", re.Status)
//	    }
//	})
package storage

import (
	"time"

	"github.com/matzehuels/tilestyle/pkg/errors"
)

// Resource identifies what is being requested. Kind only labels errors,
// logs and metrics; the URL alone is the cache and deduplication key.
type Resource struct {
	Kind errors.ResourceKind
	URL  string
}

// Style, Source, Tile, Glyphs and Sprite build a Resource of the matching kind.
func Style(url string) Resource  { return Resource{Kind: errors.KindStyle, URL: url} }
func Source(url string) Resource { return Resource{Kind: errors.KindSource, URL: url} }
func Tile(url string) Resource   { return Resource{Kind: errors.KindTile, URL: url} }
func Glyphs(url string) Resource { return Resource{Kind: errors.KindGlyphs, URL: url} }
func Sprite(url string) Resource { return Resource{Kind: errors.KindSprite, URL: url} }

// Response is the outcome of a request. Exactly one of Data or Err is
// meaningful; an empty body with a nil Err is a valid empty resource.
type Response struct {
	Data     []byte
	Modified time.Time
	Expires  time.Time
	Err      error
}

// Callback receives the outcome of a request.
type Callback func(*Response)

// FileSource resolves resources. Implementations must be safe for concurrent
// use and must invoke the callback exactly once, on any goroutine.
//
// There is no cancellation: a caller that loses interest ignores the
// callback. The style graph does this by guarding each callback with a
// [github.com/matzehuels/tilestyle/pkg/runloop.Token] that it revokes when the tile or source goes away.
type FileSource interface {
	Request(res Resource, cb Callback)
}
