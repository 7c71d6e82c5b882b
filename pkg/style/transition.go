package style

import (
	"math"
	"time"
)

// PropertyTransition describes how a changed paint value animates.
type PropertyTransition struct {
	Duration time.Duration
	Delay    time.Duration
}

// IsZero reports whether the transition is instantaneous.
func (t PropertyTransition) IsZero() bool {
	return t.Duration <= 0 && t.Delay <= 0
}

// ZoomHistory remembers the last zoom and when the integer zoom last changed.
// Crossfaded properties use it to fade between integer zoom levels.
type ZoomHistory struct {
	LastZoom            float64
	LastIntegerZoom     float64
	LastIntegerZoomTime time.Time
	first               bool
}

// Update records zoom z observed at now and reports whether it differs from
// the previous zoom. The first update always reports true and backdates the
// integer-zoom change so that no fade is in progress.
func (h *ZoomHistory) Update(z float64, now time.Time) bool {
	if !h.first {
		h.first = true
		h.LastIntegerZoom = math.Floor(z)
		h.LastIntegerZoomTime = time.Time{}
		h.LastZoom = z
		return true
	}

	switch {
	case math.Floor(h.LastZoom) < math.Floor(z):
		h.LastIntegerZoom = math.Floor(z)
		h.LastIntegerZoomTime = now
	case math.Floor(h.LastZoom) > math.Floor(z):
		h.LastIntegerZoom = math.Floor(z + 1)
		h.LastIntegerZoomTime = now
	}

	if z != h.LastZoom {
		h.LastZoom = z
		return true
	}
	return false
}
