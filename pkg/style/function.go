package style

import (
	"math"
	"sort"
	"time"
)

// Value is a concrete property value: float64, Color, string, bool,
// []float64 or Faded.
type Value any

// Stop pairs a zoom level with the value a function takes there.
type Stop struct {
	Zoom  float64
	Value Value
}

// Function is a zoom function. Interpolatable values are interpolated
// exponentially with Base between stops; other values step at each stop.
type Function struct {
	Base  float64
	Stops []Stop
}

// NewFunction sorts stops by zoom. A zero base selects 1.
func NewFunction(base float64, stops []Stop) *Function {
	if base == 0 {
		base = 1
	}
	sorted := append([]Stop(nil), stops...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Zoom < sorted[j].Zoom })
	return &Function{Base: base, Stops: sorted}
}

// Evaluate returns the value at zoom z.
func (f *Function) Evaluate(z float64) Value {
	if len(f.Stops) == 0 {
		return nil
	}
	if z <= f.Stops[0].Zoom {
		return f.Stops[0].Value
	}
	last := f.Stops[len(f.Stops)-1]
	if z >= last.Zoom {
		return last.Value
	}

	i := sort.Search(len(f.Stops), func(i int) bool { return f.Stops[i].Zoom > z })
	lo, hi := f.Stops[i-1], f.Stops[i]
	if !interpolatable(lo.Value) {
		return lo.Value
	}
	return interpolate(lo.Value, hi.Value, interpolationFactor(z, lo.Zoom, hi.Zoom, f.Base))
}

// stepAt returns the value of the last stop at or below z.
func (f *Function) stepAt(z float64) Value {
	if len(f.Stops) == 0 {
		return nil
	}
	v := f.Stops[0].Value
	for _, s := range f.Stops {
		if s.Zoom > z {
			break
		}
		v = s.Value
	}
	return v
}

func interpolationFactor(z, lo, hi, base float64) float64 {
	span := hi - lo
	if span == 0 {
		return 0
	}
	progress := z - lo
	if base == 1 {
		return progress / span
	}
	return (math.Pow(base, progress) - 1) / (math.Pow(base, span) - 1)
}

func interpolatable(v Value) bool {
	switch v.(type) {
	case float64, Color, []float64:
		return true
	}
	return false
}

// interpolate blends a towards b by t. Values that cannot be blended switch
// to b.
func interpolate(a, b Value, t float64) Value {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av + (bv-av)*t
		}
	case Color:
		if bv, ok := b.(Color); ok {
			return Color{
				R: av.R + (bv.R-av.R)*t,
				G: av.G + (bv.G-av.G)*t,
				B: av.B + (bv.B-av.B)*t,
				A: av.A + (bv.A-av.A)*t,
			}
		}
	case []float64:
		if bv, ok := b.([]float64); ok && len(av) == len(bv) {
			out := make([]float64, len(av))
			for i := range av {
				out[i] = av[i] + (bv[i]-av[i])*t
			}
			return out
		}
	}
	return b
}

// Faded is a piecewise-constant value (a pattern or dash array) crossfading
// between the values of two adjacent integer zooms. T is the fade progress
// towards To.
type Faded struct {
	From      Value
	To        Value
	FromScale float64
	ToScale   float64
	T         float64
}

// evaluateFaded evaluates a crossfaded property. The fade starts when the
// integer zoom last changed and lasts duration.
func evaluateFaded(v PropertyValue, z float64, history ZoomHistory, now time.Time, duration time.Duration) (Faded, bool) {
	at := func(z float64) Value {
		if v.Function != nil {
			return v.Function.stepAt(z)
		}
		return v.Constant
	}

	t := 1.0
	if duration > 0 && !history.LastIntegerZoomTime.IsZero() {
		t = math.Min(float64(now.Sub(history.LastIntegerZoomTime))/float64(duration), 1)
	}
	t = math.Max(t, 0)

	fraction := z - math.Floor(z)
	f := Faded{FromScale: 1, ToScale: 1}
	if z > history.LastIntegerZoom {
		f.T = fraction + (1-fraction)*t
		f.From = at(z - 1)
		f.To = at(z)
		f.FromScale = 2
	} else {
		f.T = 1 - (1-t)*fraction
		f.From = at(z + 1)
		f.To = at(z)
		f.FromScale = 0.5
	}
	return f, t < 1
}
