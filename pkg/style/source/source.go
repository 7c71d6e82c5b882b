// Package source implements the per-source tile lifecycle: loading TileJSON,
// choosing the tiles that cover the view, fetching and decoding them off the
// controller goroutine, and tracking whether everything the view needs has
// settled.
//
// A Source is owned by one controller goroutine. Fetch callbacks arrive on
// worker goroutines and are marshaled back through a [runloop.Loop], each
// guarded by the tile's liveness token, so a tile dropped from the view or a
// closed source silently ignores late results.
package source

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb/maptile"

	"github.com/matzehuels/tilestyle/pkg/errors"
	"github.com/matzehuels/tilestyle/pkg/runloop"
	"github.com/matzehuels/tilestyle/pkg/storage"
	"github.com/matzehuels/tilestyle/pkg/transform"
)

// Type is the kind of data a source serves.
type Type string

// Source types.
const (
	TypeVector Type = "vector"
	TypeRaster Type = "raster"
)

// State is the load state of a source.
type State int

// Source states. Loading is re-entered whenever the view needs new tiles.
const (
	Unloaded State = iota
	Loading
	Loaded
	PartiallyLoaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case PartiallyLoaded:
		return "partially loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Descriptor is a source as declared in a stylesheet.
type Descriptor struct {
	ID   string
	Type Type
	URL  string // TileJSON URL; empty when Info is given inline
	Info Info
}

// Options configures a Source.
type Options struct {
	FileSource storage.FileSource
	Loop       *runloop.Loop
	Logger     *log.Logger
	Decoder    Decoder // defaults by type
	PixelRatio float64
}

// Source owns the tiles of one data origin.
type Source struct {
	ID   string
	Type Type
	URL  string

	opts     Options
	info     Info
	loaded   bool
	loading  bool
	infoErr  error
	enabled  bool
	tiles    map[maptile.Tile]*TileData
	deps     Dependencies
	observer Observer
	token    *runloop.Token
}

// New creates an unloaded source.
func New(d Descriptor, opts Options) *Source {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Decoder == nil {
		if d.Type == TypeRaster {
			opts.Decoder = RawDecoder{}
		} else {
			opts.Decoder = MVTDecoder{}
		}
	}
	if opts.Loop == nil {
		opts.Loop = runloop.New()
	}
	info, def := d.Info, DefaultInfo(d.Type)
	if info.TileSize == 0 {
		info.TileSize = def.TileSize
	}
	if info.MaxZoom == 0 {
		info.MaxZoom = def.MaxZoom
	}
	return &Source{
		ID:       d.ID,
		Type:     d.Type,
		URL:      d.URL,
		opts:     opts,
		info:     info,
		tiles:    make(map[maptile.Tile]*TileData),
		observer: NoopObserver{},
		token:    runloop.NewToken(),
	}
}

// SetObserver replaces the observer. Nil restores the no-op observer.
func (s *Source) SetObserver(o Observer) {
	if o == nil {
		o = NoopObserver{}
	}
	s.observer = o
}

// Info returns the TileJSON in effect.
func (s *Source) Info() Info { return s.info }

// Enabled reports whether a visible layer references the source.
func (s *Source) Enabled() bool { return s.enabled }

// SetEnabled sets the visibility flag. It does not change the load state.
func (s *Source) SetEnabled(enabled bool) { s.enabled = enabled }

// Load starts loading the source's TileJSON. Inline sources are loaded
// immediately. Load is a no-op once started.
func (s *Source) Load() {
	if s.loaded || s.loading || s.infoErr != nil {
		return
	}
	if s.URL == "" {
		if err := s.info.validate(); err != nil {
			// Reported through the observer like a failed TileJSON fetch.
			s.loading = true
			err = errors.Wrap(errors.ErrCodeInvalidStyle, err, "source %q", s.ID)
			s.post(s.token, func() { s.infoLoaded(Info{}, err) })
			return
		}
		s.loaded = true
		return
	}

	s.loading = true
	base := s.info
	url := s.URL
	s.opts.FileSource.Request(storage.Source(url), func(r *storage.Response) {
		var (
			info Info
			err  = r.Err
		)
		if err == nil {
			if info, err = ParseInfo(r.Data, base); err != nil {
				err = errors.ResourceLoad(errors.KindSource, url, 0, errors.Wrap(errors.ErrCodeDecode, err, "source %q", s.ID))
			}
		}
		s.post(s.token, func() { s.infoLoaded(info, err) })
	})
}

func (s *Source) infoLoaded(info Info, err error) {
	s.loading = false
	if err != nil {
		s.infoErr = err
		s.opts.Logger.Error("source failed to load", "source", s.ID, "url", s.URL, "err", err)
		s.observer.OnSourceLoadingFailed(s, err)
		return
	}
	s.info = info
	s.loaded = true
	s.opts.Logger.Debug("source loaded", "source", s.ID, "tiles", len(info.Tiles))
	s.observer.OnSourceLoaded(s)
}

// UpdateParameters carries the inputs of one update pass.
type UpdateParameters struct {
	Transform transform.State
	Deps      Dependencies
	// ReparsePartial asks partial tiles to check their dependencies again.
	ReparsePartial bool
}

// Update requests the tiles covering the view and drops tiles outside it.
// Tiles already loading or loaded are not requested again. It reports
// whether every partial tile could be completed.
func (s *Source) Update(p UpdateParameters) bool {
	if !s.loaded {
		return true
	}
	s.deps = p.Deps

	needed := make(map[maptile.Tile]bool)
	if z, ok := p.Transform.IntegerZoom(s.info.TileSize, s.info.MinZoom, s.info.MaxZoom); ok {
		for _, id := range p.Transform.CoveringTiles(z) {
			needed[id] = true
			if _, have := s.tiles[id]; !have {
				s.requestTile(id)
			}
		}
	}
	for id, td := range s.tiles {
		if !needed[id] {
			td.token.Revoke()
			delete(s.tiles, id)
		}
	}

	allUpdated := true
	if p.ReparsePartial {
		for _, td := range s.Tiles() {
			if td.state != TilePartial {
				continue
			}
			if s.ready(td) {
				td.state = TileLoaded
				s.observer.OnTileLoaded(s, td.ID, false)
			} else {
				allUpdated = false
			}
		}
	}
	return allUpdated
}

func (s *Source) requestTile(id maptile.Tile) {
	td := &TileData{
		ID:    id,
		URL:   s.info.TileURL(id, s.opts.PixelRatio),
		state: TileLoading,
		token: runloop.NewToken(),
	}
	s.tiles[id] = td

	decoder := s.opts.Decoder
	url := td.URL
	s.opts.FileSource.Request(storage.Tile(url), func(r *storage.Response) {
		var content *Content
		err := r.Err
		if err == nil {
			var decodeErr error
			if content, decodeErr = decoder.Decode(id, r.Data); decodeErr != nil {
				err = errors.ResourceLoad(errors.KindTile, url, 0, errors.Wrap(errors.ErrCodeDecode, decodeErr, "decode tile"))
			}
		}
		s.post(td.token, func() { s.tileLoaded(td, content, err) })
	})
}

func (s *Source) tileLoaded(td *TileData, content *Content, err error) {
	if err != nil {
		td.state = TileFailed
		td.err = err
		s.opts.Logger.Warn("tile failed to load", "source", s.ID, "tile", td.ID, "err", err)
		s.observer.OnTileLoadingFailed(s, td.ID, err)
		return
	}

	td.content = content
	if s.ready(td) {
		td.state = TileLoaded
	} else {
		td.state = TilePartial
	}
	s.observer.OnTileLoaded(s, td.ID, true)
}

func (s *Source) ready(td *TileData) bool {
	return s.deps == nil || s.deps.Ready(s.ID, td)
}

// post runs fn on the controller goroutine while both the source and tok
// are alive.
func (s *Source) post(tok *runloop.Token, fn func()) {
	s.opts.Loop.Guard(tok, func() {
		if s.token.Alive() {
			fn()
		}
	})()
}

// State derives the load state from the TileJSON and the current tiles.
func (s *Source) State() State {
	switch {
	case s.infoErr != nil:
		return Failed
	case s.loading:
		return Loading
	case !s.loaded:
		return Unloaded
	}

	var loading, partial, failed int
	for _, td := range s.tiles {
		switch td.state {
		case TileLoading:
			loading++
		case TilePartial:
			partial++
		case TileFailed:
			failed++
		}
	}
	switch {
	case loading > 0:
		return Loading
	case len(s.tiles) > 0 && failed == len(s.tiles):
		return Failed
	case partial > 0 || failed > 0:
		return PartiallyLoaded
	}
	return Loaded
}

// IsLoaded reports whether the TileJSON and every current tile are
// completely loaded.
func (s *Source) IsLoaded() bool {
	return s.State() == Loaded
}

// Settled reports whether every current request has resolved, successfully
// or terminally. A partial tile waiting for dependencies is not settled.
func (s *Source) Settled() bool {
	switch s.State() {
	case Loaded, Failed:
		return true
	case PartiallyLoaded:
		return !s.HasPartialTiles()
	}
	return false
}

// HasPartialTiles reports whether a current tile waits for dependencies.
func (s *Source) HasPartialTiles() bool {
	for _, td := range s.tiles {
		if td.state == TilePartial {
			return true
		}
	}
	return false
}

// Err returns the TileJSON failure, if any.
func (s *Source) Err() error { return s.infoErr }

// Tiles returns the current tiles ordered by zoom, x and y.
func (s *Source) Tiles() []*TileData {
	out := make([]*TileData, 0, len(s.tiles))
	for _, td := range s.tiles {
		out = append(out, td)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID, out[j].ID
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return out
}

// Close detaches the source. Results of in-flight requests are dropped.
func (s *Source) Close() {
	s.token.Revoke()
	for _, td := range s.tiles {
		td.token.Revoke()
	}
	s.tiles = make(map[maptile.Tile]*TileData)
	s.observer = NoopObserver{}
}

// DumpDebugLogs logs the source and tile states.
func (s *Source) DumpDebugLogs() {
	logger := s.opts.Logger
	logger.Info("source", "id", s.ID, "type", s.Type, "url", s.URL, "state", s.State(), "enabled", s.enabled)
	for _, td := range s.Tiles() {
		logger.Info("tile", "source", s.ID, "tile", td.ID, "state", td.state, "err", td.err)
	}
}
