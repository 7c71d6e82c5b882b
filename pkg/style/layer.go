package style

import (
	"math"
	"sort"
	"strings"
	"time"
)

// LayerType is the kind of geometry a layer draws.
type LayerType string

// Layer types.
const (
	LayerBackground LayerType = "background"
	LayerFill       LayerType = "fill"
	LayerLine       LayerType = "line"
	LayerCircle     LayerType = "circle"
	LayerSymbol     LayerType = "symbol"
	LayerRaster     LayerType = "raster"
)

func (t LayerType) valid() bool {
	switch t {
	case LayerBackground, LayerFill, LayerLine, LayerCircle, LayerSymbol, LayerRaster:
		return true
	}
	return false
}

// owns reports whether a property name belongs to layers of type t.
func (t LayerType) owns(name string) bool {
	prefix, _, _ := strings.Cut(name, "-")
	switch prefix {
	case "icon", "text", "symbol":
		return t == LayerSymbol
	case "visibility":
		return true
	}
	return prefix == string(t)
}

// Layer is a drawing rule. Paint declarations are keyed by class name, with
// "" for the default class. A layer belongs to at most one [Style] and must
// not be modified after it was added.
type Layer struct {
	ID          string
	Type        LayerType
	Source      string
	SourceLayer string
	Ref         string
	MinZoom     float64
	MaxZoom     float64
	Layout      map[string]PropertyValue
	Paint       map[string]map[string]PropertyValue
	Transitions map[string]map[string]PropertyTransition

	classes  map[ClassID]*classDeclarations
	applied  map[string]*appliedValue
	computed *Properties
}

type classDeclarations struct {
	values      map[string]PropertyValue
	transitions map[string]PropertyTransition
}

// appliedValue is the cascaded declaration of one paint property plus the
// transition that is animating towards it.
type appliedValue struct {
	decl  PropertyValue
	spec  propertySpec
	from  Value
	begin time.Time
	end   time.Time
}

// NewLayer creates a visible layer without zoom limits.
func NewLayer(id string, typ LayerType) *Layer {
	return &Layer{
		ID:          id,
		Type:        typ,
		MaxZoom:     noMaxZoom,
		Layout:      make(map[string]PropertyValue),
		Paint:       make(map[string]map[string]PropertyValue),
		Transitions: make(map[string]map[string]PropertyTransition),
	}
}

// SetPaint declares a paint property for a class.
func (l *Layer) SetPaint(class, name string, v PropertyValue) {
	if class == DefaultClassName {
		class = ""
	}
	if l.Paint[class] == nil {
		l.Paint[class] = make(map[string]PropertyValue)
	}
	l.Paint[class][name] = v
}

// SetTransition overrides the transition of a paint property for a class.
func (l *Layer) SetTransition(class, name string, t PropertyTransition) {
	if class == DefaultClassName {
		class = ""
	}
	if l.Transitions[class] == nil {
		l.Transitions[class] = make(map[string]PropertyTransition)
	}
	l.Transitions[class][name] = t
}

// SetLayout declares a layout property.
func (l *Layer) SetLayout(name string, v PropertyValue) {
	l.Layout[name] = v
}

// Visibility returns the layout visibility.
func (l *Layer) Visibility() Visibility {
	if s, ok := l.Layout["visibility"].Constant.(string); ok && Visibility(s) == None {
		return None
	}
	return Visible
}

// Visible reports whether the layer draws at zoom z.
func (l *Layer) Visible(z float64) bool {
	return l.Visibility() != None && z >= l.MinZoom && z < l.MaxZoom
}

// bind resolves class names against the owning style's dictionary.
func (l *Layer) bind(dict *ClassDictionary) {
	l.classes = make(map[ClassID]*classDeclarations, len(l.Paint))
	get := func(name string) *classDeclarations {
		id := dict.Lookup(name)
		d := l.classes[id]
		if d == nil {
			d = &classDeclarations{
				values:      make(map[string]PropertyValue),
				transitions: make(map[string]PropertyTransition),
			}
			l.classes[id] = d
		}
		return d
	}
	for class, values := range l.Paint {
		d := get(class)
		for name, v := range values {
			d.values[name] = v
		}
	}
	for class, transitions := range l.Transitions {
		d := get(class)
		for name, t := range transitions {
			d.transitions[name] = t
		}
	}
	l.applied = make(map[string]*appliedValue)
}

// CascadeParameters carries the inputs of a cascade pass.
type CascadeParameters struct {
	// Classes in precedence order, highest first; see ClassDictionary.Precedence.
	Classes           []ClassID
	Now               time.Time
	DefaultTransition PropertyTransition
}

// Cascade resolves every paint property to the declaration of the first
// class in p.Classes that defines it. A property whose declaration changed
// starts a transition from its last computed value.
func (l *Layer) Cascade(p CascadeParameters) {
	if l.classes == nil {
		l.bind(NewClassDictionary())
	}

	names := make(map[string]bool)
	for _, d := range l.classes {
		for name := range d.values {
			names[name] = true
		}
	}

	for name := range names {
		resolved := false
		for _, id := range p.Classes {
			d := l.classes[id]
			if d == nil {
				continue
			}
			v, ok := d.values[name]
			if !ok {
				continue
			}
			transition := p.DefaultTransition
			if t, ok := d.transitions[name]; ok {
				transition = t
			}
			l.apply(name, v, transition, p.Now)
			resolved = true
			break
		}
		if !resolved {
			delete(l.applied, name)
		}
	}
}

func (l *Layer) apply(name string, decl PropertyValue, transition PropertyTransition, now time.Time) {
	cur := l.applied[name]
	if cur != nil && cur.decl.equal(decl) {
		return
	}

	av := &appliedValue{decl: decl, spec: paintSpec(name)}
	if av.spec.transitional && !transition.IsZero() && l.computed != nil {
		if prev, ok := l.computed.Paint[name]; ok {
			av.from = prev
			av.begin = now.Add(transition.Delay)
			av.end = av.begin.Add(transition.Duration)
		}
	}
	l.applied[name] = av
}

// CalculationParameters carries the inputs of a recalculation pass.
type CalculationParameters struct {
	Zoom         float64
	Now          time.Time
	ZoomHistory  ZoomHistory
	FadeDuration time.Duration
}

// Recalculate evaluates the cascaded declarations at p.Zoom and publishes a
// new [Properties] snapshot. It reports whether a transition or crossfade is
// still in progress.
func (l *Layer) Recalculate(p CalculationParameters) bool {
	props := &Properties{
		Paint:  make(map[string]Value),
		Layout: make(map[string]Value),
	}
	for name, spec := range paintSpecs {
		if spec.def != nil && l.Type.owns(name) {
			props.Paint[name] = spec.def
		}
	}
	for name, spec := range layoutSpecs {
		if spec.def != nil && l.Type.owns(name) {
			props.Layout[name] = spec.def
		}
	}

	pending := false
	for name, av := range l.applied {
		if av.spec.crossfaded {
			f, fading := evaluateFaded(av.decl, p.Zoom, p.ZoomHistory, p.Now, p.FadeDuration)
			props.Paint[name] = f
			pending = pending || fading
			continue
		}

		target := av.decl.Evaluate(p.Zoom)
		switch {
		case av.from == nil || !p.Now.Before(av.end):
			av.from = nil
			props.Paint[name] = target
		case p.Now.Before(av.begin):
			pending = true
			props.Paint[name] = av.from
		default:
			pending = true
			t := float64(p.Now.Sub(av.begin)) / float64(av.end.Sub(av.begin))
			props.Paint[name] = interpolate(av.from, target, ease(t))
		}
	}

	for name, decl := range l.Layout {
		props.Layout[name] = decl.Evaluate(p.Zoom)
	}

	l.computed = props
	return pending
}

// Properties returns the last computed snapshot, or nil before the first
// recalculation. The snapshot is never modified.
func (l *Layer) Properties() *Properties {
	return l.computed
}

// Properties is an immutable snapshot of a layer's computed values.
type Properties struct {
	Paint  map[string]Value
	Layout map[string]Value
}

// Number returns a numeric paint property.
func (p *Properties) Number(name string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	f, ok := p.Paint[name].(float64)
	return f, ok
}

// Color returns a color paint property.
func (p *Properties) Color(name string) (Color, bool) {
	if p == nil {
		return Color{}, false
	}
	c, ok := p.Paint[name].(Color)
	return c, ok
}

// Names returns the sorted paint property names.
func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Paint))
	for name := range p.Paint {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ease is the cubic bezier (0, 0, 0.25, 1) used for paint transitions.
func ease(t float64) float64 {
	const (
		p1x, p1y = 0.0, 0.0
		p2x, p2y = 0.25, 1.0
	)
	cx := 3 * p1x
	bx := 3*(p2x-p1x) - cx
	ax := 1 - cx - bx
	cy := 3 * p1y
	by := 3*(p2y-p1y) - cy
	ay := 1 - cy - by

	sampleX := func(s float64) float64 { return ((ax*s+bx)*s + cx) * s }
	sampleY := func(s float64) float64 { return ((ay*s+by)*s + cy) * s }
	derivX := func(s float64) float64 { return (3*ax*s+2*bx)*s + cx }

	s := t
	for range 8 {
		x := sampleX(s) - t
		if math.Abs(x) < 1e-6 {
			return sampleY(s)
		}
		d := derivX(s)
		if math.Abs(d) < 1e-6 {
			break
		}
		s -= x / d
	}

	lo, hi := 0.0, 1.0
	s = t
	for lo < hi {
		x := sampleX(s)
		if math.Abs(x-t) < 1e-6 {
			break
		}
		if t > x {
			lo = s
		} else {
			hi = s
		}
		s = (hi-lo)/2 + lo
		if hi-lo < 1e-9 {
			break
		}
	}
	return sampleY(s)
}
