package httputil

import (
	"strconv"
	"strings"
	"time"
)

// CacheControl holds the directives of a Cache-Control header that affect
// resource caching.
type CacheControl struct {
	MaxAge    time.Duration
	HasMaxAge bool
	NoStore   bool
	NoCache   bool
}

// ParseCacheControlHeader parses the directives of a Cache-Control header.
// Unknown directives are ignored. A malformed max-age (negative, non-integer,
// overflowing) is treated as absent rather than as an error.
func ParseCacheControlHeader(header string) CacheControl {
	var cc CacheControl
	for _, part := range strings.Split(header, ",") {
		name, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "max-age":
			value = strings.Trim(strings.TrimSpace(value), `"`)
			secs, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				continue
			}
			cc.MaxAge = time.Duration(secs) * time.Second
			cc.HasMaxAge = true
		case "no-store":
			cc.NoStore = true
		case "no-cache":
			cc.NoCache = true
		}
	}
	return cc
}

// ParseCacheControl returns the max-age of a Cache-Control header and
// whether one was present and well-formed.
func ParseCacheControl(header string) (time.Duration, bool) {
	cc := ParseCacheControlHeader(header)
	return cc.MaxAge, cc.HasMaxAge
}

// ExpiresAt computes the absolute expiry of a response fetched at now.
// With max-age=N the result is now+N; otherwise it is the zero time, meaning
// the response is already stale.
func ExpiresAt(header string, now time.Time) time.Time {
	if maxAge, ok := ParseCacheControl(header); ok {
		return now.Add(maxAge)
	}
	return time.Time{}
}
