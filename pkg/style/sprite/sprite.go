// Package sprite loads a style's sprite sheet: a JSON index of named icons
// and the image they are cut from.
//
// Both halves are requested together. The sheet is usable only once both
// arrived and every icon rectangle fits inside the image; a failure of
// either half is terminal for that URL and is reported once through
// [Observer.OnSpriteLoadingFailed]. Setting a new URL drops whatever the
// previous one still had in flight.
package sprite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tilestyle/pkg/errors"
	"github.com/matzehuels/tilestyle/pkg/runloop"
	"github.com/matzehuels/tilestyle/pkg/storage"
)

// Image is one icon of the sprite sheet.
type Image struct {
	Name       string
	X, Y       int
	Width      int
	Height     int
	PixelRatio float64
	SDF        bool
	// Pixels is the icon cut from the sheet.
	Pixels image.Image
}

// ImageDecoder decodes the sprite sheet bytes.
type ImageDecoder interface {
	Decode(data []byte) (image.Image, error)
}

// PNGDecoder decodes PNG sprite sheets with image/png.
type PNGDecoder struct{}

// Decode implements ImageDecoder.
func (PNGDecoder) Decode(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

// Observer receives sprite events on the controller goroutine.
type Observer interface {
	OnSpriteLoaded()
	OnSpriteLoadingFailed(err error)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) OnSpriteLoaded()             {}
func (NoopObserver) OnSpriteLoadingFailed(error) {}

// Options configures a Store.
type Options struct {
	FileSource storage.FileSource
	Loop       *runloop.Loop
	Logger     *log.Logger
	Decoder    ImageDecoder
	PixelRatio float64
}

// Store holds the icons of one sprite sheet.
//
// A Store is owned by the controller goroutine. Fetch results are posted
// back through Options.Loop, so IsLoaded, Err and Image only change while
// the loop runs pending work.
type Store struct {
	opts     Options
	url      string
	loaded   bool
	err      error
	images   map[string]Image
	observer Observer
	token    *runloop.Token

	// Both halves must arrive before the sheet can be cut.
	json     []byte
	sheet    []byte
	gotJSON  bool
	gotSheet bool
}

// NewStore creates an empty store. A store without a URL is loaded.
func NewStore(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Decoder == nil {
		opts.Decoder = PNGDecoder{}
	}
	if opts.Loop == nil {
		opts.Loop = runloop.New()
	}
	return &Store{
		opts:     opts,
		loaded:   true,
		images:   make(map[string]Image),
		observer: NoopObserver{},
		token:    runloop.NewToken(),
	}
}

// SetObserver replaces the observer. Nil restores the no-op observer.
func (s *Store) SetObserver(o Observer) {
	if o == nil {
		o = NoopObserver{}
	}
	s.observer = o
}

// URL returns the sprite base URL.
func (s *Store) URL() string { return s.url }

// SetURL starts loading base+".json" and base+".png", with "@2x" inserted
// for high-density displays. An empty base means the style has no sprite.
func (s *Store) SetURL(base string) {
	if base == s.url {
		return
	}
	s.token.Revoke()
	s.token = runloop.NewToken()
	s.url = base
	s.images = make(map[string]Image)
	s.err = nil
	s.json, s.sheet = nil, nil
	s.gotJSON, s.gotSheet = false, false

	if base == "" {
		s.loaded = true
		return
	}
	s.loaded = false

	suffix := ""
	if s.opts.PixelRatio > 1 {
		suffix = "@2x"
	}
	tok := s.token
	s.opts.FileSource.Request(storage.Sprite(base+suffix+".json"), func(r *storage.Response) {
		s.opts.Loop.Guard(tok, func() { s.jsonLoaded(r) })()
	})
	s.opts.FileSource.Request(storage.Sprite(base+suffix+".png"), func(r *storage.Response) {
		s.opts.Loop.Guard(tok, func() { s.sheetLoaded(r) })()
	})
}

func (s *Store) jsonLoaded(r *storage.Response) {
	if s.fail(r.Err) {
		return
	}
	s.json, s.gotJSON = r.Data, true
	s.finish()
}

func (s *Store) sheetLoaded(r *storage.Response) {
	if s.fail(r.Err) {
		return
	}
	s.sheet, s.gotSheet = r.Data, true
	s.finish()
}

func (s *Store) fail(err error) bool {
	if err == nil {
		return false
	}
	if s.err == nil {
		s.err = err
		s.opts.Logger.Error("sprite failed to load", "url", s.url, "err", err)
		s.observer.OnSpriteLoadingFailed(err)
	}
	return true
}

func (s *Store) finish() {
	if !s.gotJSON || !s.gotSheet || s.err != nil {
		return
	}
	images, err := parse(s.json, s.sheet, s.opts.Decoder)
	s.json, s.sheet = nil, nil
	if err != nil {
		s.fail(errors.ResourceLoad(errors.KindSprite, s.url, 0, errors.Wrap(errors.ErrCodeDecode, err, "sprite")))
		return
	}
	s.images = images
	s.loaded = true
	s.opts.Logger.Debug("sprite loaded", "url", s.url, "images", len(images))
	s.observer.OnSpriteLoaded()
}

type indexEntry struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	SDF        bool    `json:"sdf"`
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func parse(index, sheet []byte, decoder ImageDecoder) (map[string]Image, error) {
	var entries map[string]indexEntry
	if err := json.Unmarshal(index, &entries); err != nil {
		return nil, fmt.Errorf("parse sprite index: %w", err)
	}
	img, err := decoder.Decode(sheet)
	if err != nil {
		return nil, fmt.Errorf("decode sprite sheet: %w", err)
	}
	bounds := img.Bounds()

	images := make(map[string]Image, len(entries))
	for name, e := range entries {
		rect := image.Rect(e.X, e.Y, e.X+e.Width, e.Y+e.Height).Add(bounds.Min)
		if e.Width <= 0 || e.Height <= 0 || !rect.In(bounds) {
			return nil, fmt.Errorf("sprite image %q lies outside the sheet", name)
		}
		ratio := e.PixelRatio
		if ratio == 0 {
			ratio = 1
		}
		out := Image{Name: name, X: e.X, Y: e.Y, Width: e.Width, Height: e.Height, PixelRatio: ratio, SDF: e.SDF}
		if si, ok := img.(subImager); ok {
			out.Pixels = si.SubImage(rect)
		}
		images[name] = out
	}
	return images, nil
}

// IsLoaded reports whether both the index and the sheet are loaded, or the
// style has no sprite.
func (s *Store) IsLoaded() bool { return s.loaded }

// Err returns the load failure, if any.
func (s *Store) Err() error { return s.err }

// Image returns the named icon.
func (s *Store) Image(name string) (Image, bool) {
	img, ok := s.images[name]
	return img, ok
}

// Images returns the icon names in sorted order.
func (s *Store) Images() []string {
	names := make([]string, 0, len(s.images))
	for name := range s.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close drops in-flight results.
func (s *Store) Close() {
	s.token.Revoke()
	s.observer = NoopObserver{}
}
