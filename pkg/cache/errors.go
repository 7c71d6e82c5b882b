package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("cache closed")

	// ErrInvalidEntry is returned when Put receives a nil entry.
	ErrInvalidEntry = errors.New("invalid cache entry")
)
