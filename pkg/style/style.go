// Package style implements the style evaluation engine.
//
// A [Style] owns the sources and layers of one stylesheet. Each frame the
// controller cascades the active classes, recalculates layer properties for
// the current zoom and updates sources against the view:
//
//	s := style.New(style.Options{FileSource: fs, Loop: loop})
//	if err := s.SetDocument(data); err != nil {
//	    return err
//	}
//	s.Cascade([]string{"night"})
//	s.Recalculate(view.Zoom)
//	s.Update(view)
//	loop.RunPending()
//
// All methods except [Style.Computed], [Style.Layers] and [Style.Sources]
// must be called from the controller goroutine, the one draining the
// [runloop.Loop]. Recalculate holds the write lock while it publishes new
// property snapshots; Computed readers take the read lock.
package style

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/tilestyle/pkg/errors"
	"github.com/matzehuels/tilestyle/pkg/observability"
	"github.com/matzehuels/tilestyle/pkg/runloop"
	"github.com/matzehuels/tilestyle/pkg/storage"
	"github.com/matzehuels/tilestyle/pkg/style/glyph"
	"github.com/matzehuels/tilestyle/pkg/style/source"
	"github.com/matzehuels/tilestyle/pkg/style/sprite"
	"github.com/matzehuels/tilestyle/pkg/transform"
)

// DefaultFadeDuration is how long crossfaded properties take to fade
// between integer zooms.
const DefaultFadeDuration = 300 * time.Millisecond

// Observer receives the engine's coarse events on the controller goroutine.
type Observer interface {
	OnTileDataChanged()
	OnResourceLoadingFailed(err error)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) OnTileDataChanged()            {}
func (NoopObserver) OnResourceLoadingFailed(error) {}

// Options configures a Style.
type Options struct {
	FileSource storage.FileSource
	Loop       *runloop.Loop
	Logger     *log.Logger
	Now        func() time.Time

	PixelRatio        float64
	DefaultTransition PropertyTransition
	FadeDuration      time.Duration

	TileDecoder   source.Decoder
	SpriteDecoder sprite.ImageDecoder
	GlyphDecoder  glyph.Decoder
}

// SetDefaults fills zero-valued fields.
func (o *Options) SetDefaults() {
	if o.Loop == nil {
		o.Loop = runloop.New()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.PixelRatio <= 0 {
		o.PixelRatio = 1
	}
	if o.FadeDuration <= 0 {
		o.FadeDuration = DefaultFadeDuration
	}
}

// Style is the style evaluation engine.
type Style struct {
	ID uuid.UUID

	opts    Options
	logger  *log.Logger
	classes *ClassDictionary
	ctx     context.Context

	mu      sync.RWMutex
	sources []*source.Source
	layers  []*Layer

	doc         *Document
	sprites     *sprite.Store
	glyphs      *glyph.Store
	zoomHistory ZoomHistory
	active      []string

	loaded                    bool
	hasPendingTransitions     bool
	shouldReparsePartialTiles bool
	lastError                 error
	observer                  Observer
}

// New creates an empty style. It is not loaded until SetDocument succeeds.
func New(opts Options) *Style {
	opts.SetDefaults()
	id := uuid.New()
	s := &Style{
		ID:       id,
		opts:     opts,
		logger:   opts.Logger.With("style", id.String()[:8]),
		classes:  NewClassDictionary(),
		ctx:      context.Background(),
		observer: NoopObserver{},
	}
	s.sprites = sprite.NewStore(sprite.Options{
		FileSource: opts.FileSource,
		Loop:       opts.Loop,
		Logger:     s.logger,
		Decoder:    opts.SpriteDecoder,
		PixelRatio: opts.PixelRatio,
	})
	s.sprites.SetObserver(childObserver{s})
	s.glyphs = glyph.NewStore(glyph.Options{
		FileSource: opts.FileSource,
		Loop:       opts.Loop,
		Logger:     s.logger,
		Decoder:    opts.GlyphDecoder,
	})
	s.glyphs.SetObserver(childObserver{s})
	return s
}

// SetObserver replaces the observer. Nil restores the no-op observer.
func (s *Style) SetObserver(o Observer) {
	if o == nil {
		o = NoopObserver{}
	}
	s.observer = o
}

// Classes returns the class dictionary of this engine.
func (s *Style) Classes() *ClassDictionary { return s.classes }

// Document returns the last successfully parsed stylesheet.
func (s *Style) Document() *Document { return s.doc }

// Sprites returns the sprite store.
func (s *Style) Sprites() *sprite.Store { return s.sprites }

// Glyphs returns the glyph store.
func (s *Style) Glyphs() *glyph.Store { return s.glyphs }

// SetDocument parses data and replaces all sources and layers. On a parse
// error the current sources and layers are kept.
func (s *Style) SetDocument(data []byte) error {
	start := time.Now()
	doc, err := Parse(data)
	if err != nil {
		observability.Style().OnStyleParsed(s.ctx, 0, 0, time.Since(start), err)
		s.logger.Error("failed to parse style", "err", err)
		return err
	}
	for _, w := range doc.Warnings {
		s.logger.Warn(w)
	}

	s.mu.Lock()
	for _, src := range s.sources {
		src.Close()
	}
	s.sources = nil
	s.layers = nil
	s.mu.Unlock()

	s.doc = doc
	for _, d := range doc.Sources {
		if err := s.AddSource(s.NewSource(d)); err != nil {
			s.logger.Warn("skipping source", "source", d.ID, "err", err)
		}
	}
	for _, layer := range doc.Layers {
		if err := s.AddLayer(layer); err != nil {
			s.logger.Warn("skipping layer", "layer", layer.ID, "err", err)
		}
	}
	s.sprites.SetURL(doc.SpriteURL)
	s.glyphs.SetURL(doc.GlyphURL)
	s.loaded = true

	observability.Style().OnStyleParsed(s.ctx, len(doc.Sources), len(doc.Layers), time.Since(start), nil)
	s.logger.Debug("style parsed", "sources", len(doc.Sources), "layers", len(doc.Layers))
	return nil
}

// NewSource creates a source wired to this style's file source and loop.
func (s *Style) NewSource(d source.Descriptor) *source.Source {
	return source.New(d, source.Options{
		FileSource: s.opts.FileSource,
		Loop:       s.opts.Loop,
		Logger:     s.logger,
		Decoder:    s.tileDecoder(d.Type),
		PixelRatio: s.opts.PixelRatio,
	})
}

func (s *Style) tileDecoder(typ source.Type) source.Decoder {
	if typ == source.TypeVector {
		return s.opts.TileDecoder
	}
	return nil
}

// AddSource takes ownership of src, observes it and starts loading it.
func (s *Style) AddSource(src *source.Source) error {
	if src == nil {
		return errors.New(errors.ErrCodeInvalidInput, "source is nil")
	}
	if err := errors.ValidateID("source", src.ID); err != nil {
		return err
	}
	if s.GetSource(src.ID) != nil {
		return errors.New(errors.ErrCodeDuplicateID, "source %q already exists", src.ID)
	}

	src.SetObserver(childObserver{s})
	src.Load()

	s.mu.Lock()
	s.sources = append(s.sources, src)
	s.mu.Unlock()
	return nil
}

// AddLayer inserts layer before the layer named by before, or appends it.
// An unknown before id is an error. The layer is cascaded with the active
// classes right away.
func (s *Style) AddLayer(layer *Layer, before ...string) error {
	if layer == nil {
		return errors.New(errors.ErrCodeInvalidInput, "layer is nil")
	}
	if err := errors.ValidateID("layer", layer.ID); err != nil {
		return err
	}
	if !layer.Type.valid() {
		return errors.New(errors.ErrCodeInvalidInput, "layer %q has unsupported type %q", layer.ID, layer.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLayer(layer.ID) >= 0 {
		return errors.New(errors.ErrCodeDuplicateID, "layer %q already exists", layer.ID)
	}
	idx := len(s.layers)
	if len(before) > 0 && before[0] != "" {
		if idx = s.findLayer(before[0]); idx < 0 {
			return errors.New(errors.ErrCodeLayerNotFound, "no such layer: %s", before[0])
		}
	}

	layer.bind(s.classes)
	layer.Cascade(CascadeParameters{Classes: s.classes.Precedence(s.active), Now: s.opts.Now()})
	s.layers = slices.Insert(s.layers, idx, layer)
	return nil
}

// RemoveLayer removes the layer with the given id.
func (s *Style) RemoveLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findLayer(id)
	if idx < 0 {
		return errors.New(errors.ErrCodeLayerNotFound, "no such layer: %s", id)
	}
	s.layers = slices.Delete(s.layers, idx, idx+1)
	return nil
}

func (s *Style) findLayer(id string) int {
	return slices.IndexFunc(s.layers, func(l *Layer) bool { return l.ID == id })
}

// GetLayer returns the layer with the given id, or nil.
func (s *Style) GetLayer(id string) *Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.findLayer(id); idx >= 0 {
		return s.layers[idx]
	}
	return nil
}

// GetSource returns the source with the given id, or nil.
func (s *Style) GetSource(id string) *source.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.sources {
		if src.ID == id {
			return src
		}
	}
	return nil
}

// Layers returns the layers in paint order.
func (s *Style) Layers() []*Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.layers)
}

// Sources returns the sources in declaration order.
func (s *Style) Sources() []*source.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sources)
}

// ActiveClasses returns the classes of the last cascade.
func (s *Style) ActiveClasses() []string {
	return slices.Clone(s.active)
}

// Cascade resolves paint declarations for the active classes. The last
// class wins, then the default class, then the fallback class. Changed
// values transition from their current computed value.
func (s *Style) Cascade(classes []string) {
	s.active = slices.Clone(classes)
	params := CascadeParameters{
		Classes:           s.classes.Precedence(classes),
		Now:               s.opts.Now(),
		DefaultTransition: s.opts.DefaultTransition,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, layer := range s.layers {
		layer.Cascade(params)
	}
}

// Recalculate evaluates every layer at zoom z, enables the sources that a
// visible layer references and reports whether a transition is still
// running.
func (s *Style) Recalculate(z float64) bool {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range s.sources {
		src.SetEnabled(false)
	}

	now := s.opts.Now()
	s.zoomHistory.Update(z, now)
	params := CalculationParameters{
		Zoom:         z,
		Now:          now,
		ZoomHistory:  s.zoomHistory,
		FadeDuration: s.opts.FadeDuration,
	}

	pending := false
	for _, layer := range s.layers {
		if layer.Recalculate(params) {
			pending = true
		}
		if layer.Source == "" || !layer.Visible(z) {
			continue
		}
		for _, src := range s.sources {
			if src.ID == layer.Source {
				src.SetEnabled(true)
			}
		}
	}
	s.hasPendingTransitions = pending

	observability.Style().OnRecalculate(s.ctx, len(s.layers), pending, time.Since(start))
	return pending
}

// HasTransitions reports whether the last recalculation left a transition
// running.
func (s *Style) HasTransitions() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPendingTransitions
}

// Computed returns the computed properties of a layer. It is safe to call
// from any goroutine; the snapshot never changes after it is returned.
func (s *Style) Computed(layerID string) (*Properties, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.findLayer(layerID)
	if idx < 0 || s.layers[idx].computed == nil {
		return nil, false
	}
	return s.layers[idx].computed, true
}

// Update asks every enabled source to cover view. Partial tiles are checked
// again after dependencies arrived; the request is cleared once they all
// completed. A disabled source holding partial tiles keeps it pending until
// the source is updated again.
func (s *Style) Update(view transform.State) {
	deps := dependencies{s}
	allTilesUpdated := true
	for _, src := range s.Sources() {
		if !src.Enabled() {
			if s.shouldReparsePartialTiles && src.HasPartialTiles() {
				allTilesUpdated = false
			}
			continue
		}
		if !src.Update(source.UpdateParameters{
			Transform:      view,
			Deps:           deps,
			ReparsePartial: s.shouldReparsePartialTiles,
		}) {
			allTilesUpdated = false
		}
	}
	if allTilesUpdated {
		s.shouldReparsePartialTiles = false
	}
}

// IsLoaded reports whether the document parsed, every source is loaded and
// the sprite is loaded.
func (s *Style) IsLoaded() bool {
	if !s.loaded {
		return false
	}
	for _, src := range s.Sources() {
		if !src.IsLoaded() {
			return false
		}
	}
	return s.sprites.IsLoaded()
}

// Settled reports whether every request has resolved, successfully or not.
func (s *Style) Settled() bool {
	if !s.loaded {
		return false
	}
	for _, src := range s.Sources() {
		if !src.Settled() {
			return false
		}
	}
	return s.sprites.IsLoaded() || s.sprites.Err() != nil
}

// LastError returns the most recent resource failure.
func (s *Style) LastError() error { return s.lastError }

// Close detaches all children. Late results are dropped.
func (s *Style) Close() {
	s.mu.Lock()
	for _, src := range s.sources {
		src.Close()
	}
	s.mu.Unlock()
	s.sprites.Close()
	s.glyphs.Close()
	s.observer = NoopObserver{}
}

// DumpDebugLogs logs the engine state.
func (s *Style) DumpDebugLogs() {
	s.logger.Info("style", "loaded", s.loaded, "classes", s.active, "layers", len(s.Layers()),
		"sprite", s.sprites.URL(), "glyphs", s.glyphs.URL(), "last_error", s.lastError)
	for _, src := range s.Sources() {
		src.DumpDebugLogs()
	}
}

func (s *Style) tileDataChanged(reparse bool) {
	if reparse {
		s.shouldReparsePartialTiles = true
	}
	s.observer.OnTileDataChanged()
}

func (s *Style) resourceFailed(err error) {
	s.lastError = err
	kind := "resource"
	if re, ok := errors.AsResourceError(err); ok {
		kind = string(re.Kind)
	}
	s.logger.Error("failed to load resource", "kind", kind, "err", err)
	observability.Style().OnResourceFailed(s.ctx, kind, err)
	s.observer.OnResourceLoadingFailed(err)
}
