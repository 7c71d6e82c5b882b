// Package glyph loads signed distance field glyphs in blocks of 256 code
// points per font stack, on demand.
//
// A label asks [Store.HasRanges] for the ranges its text needs. Ranges never
// requested are fetched from the style's glyph URL template, with
// "{fontstack}" and "{range}" substituted:
//
//	https://fonts.example.com/{fontstack}/{range}.pbf
//	  -> https://fonts.example.com/Open%20Sans%20Regular/0-255.pbf
//
// A range is requested at most once per font stack. Failed ranges count as
// resolved so the rest of the text can still be placed.
package glyph

import (
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tilestyle/pkg/errors"
	"github.com/matzehuels/tilestyle/pkg/runloop"
	"github.com/matzehuels/tilestyle/pkg/storage"
)

// Observer receives glyph events on the controller goroutine.
type Observer interface {
	OnGlyphRangeLoaded(fontStack string, r Range)
	OnGlyphRangeLoadingFailed(fontStack string, r Range, err error)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) OnGlyphRangeLoaded(string, Range)               {}
func (NoopObserver) OnGlyphRangeLoadingFailed(string, Range, error) {}

// Options configures a Store.
type Options struct {
	FileSource storage.FileSource
	Loop       *runloop.Loop
	Logger     *log.Logger
	Decoder    Decoder
}

type rangeState int

const (
	rangeRequested rangeState = iota
	rangeLoaded
	rangeFailed
)

type fontStack struct {
	ranges map[Range]rangeState
	glyphs map[rune]Glyph
}

// Store requests glyph ranges and keeps the decoded glyphs.
type Store struct {
	opts     Options
	template string
	stacks   map[string]*fontStack
	observer Observer
	token    *runloop.Token
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Decoder == nil {
		opts.Decoder = PBFDecoder{}
	}
	if opts.Loop == nil {
		opts.Loop = runloop.New()
	}
	return &Store{
		opts:     opts,
		stacks:   make(map[string]*fontStack),
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

// URL returns the glyph URL template.
func (s *Store) URL() string { return s.template }

// SetURL sets the URL template. "{fontstack}" and "{range}" are replaced per
// request. Changing the template discards loaded glyphs.
func (s *Store) SetURL(template string) {
	if template == s.template {
		return
	}
	s.token.Revoke()
	s.token = runloop.NewToken()
	s.template = template
	s.stacks = make(map[string]*fontStack)
}

func (s *Store) stack(name string) *fontStack {
	fs := s.stacks[name]
	if fs == nil {
		fs = &fontStack{ranges: make(map[Range]rangeState), glyphs: make(map[rune]Glyph)}
		s.stacks[name] = fs
	}
	return fs
}

// HasRanges reports whether every range of fontStack has resolved and
// requests the ones never asked for. A failed range counts as resolved so
// that labels render with the glyphs that did load. Without a URL template
// there is nothing to wait for.
func (s *Store) HasRanges(fontStack string, ranges []Range) bool {
	if s.template == "" {
		return true
	}
	fs := s.stack(fontStack)
	ready := true
	for _, r := range ranges {
		st, ok := fs.ranges[r]
		switch {
		case !ok:
			fs.ranges[r] = rangeRequested
			s.request(fontStack, r)
			ready = false
		case st == rangeRequested:
			ready = false
		}
	}
	return ready
}

// RangeURL expands the template for one range.
func (s *Store) RangeURL(fontStack string, r Range) string {
	return strings.NewReplacer(
		"{fontstack}", url.PathEscape(fontStack),
		"{range}", r.String(),
	).Replace(s.template)
}

func (s *Store) request(fontStack string, r Range) {
	u := s.RangeURL(fontStack, r)
	decoder := s.opts.Decoder
	tok := s.token
	s.opts.FileSource.Request(storage.Glyphs(u), func(resp *storage.Response) {
		var glyphs []Glyph
		err := resp.Err
		if err == nil {
			var decodeErr error
			if glyphs, decodeErr = decoder.Decode(resp.Data); decodeErr != nil {
				err = errors.ResourceLoad(errors.KindGlyphs, u, 0, errors.Wrap(errors.ErrCodeDecode, decodeErr, "glyph range %s", r))
			}
		}
		s.opts.Loop.Guard(tok, func() { s.rangeLoaded(fontStack, r, glyphs, err) })()
	})
}

func (s *Store) rangeLoaded(fontStack string, r Range, glyphs []Glyph, err error) {
	fs := s.stack(fontStack)
	if err != nil {
		fs.ranges[r] = rangeFailed
		s.opts.Logger.Error("glyph range failed to load", "fontstack", fontStack, "range", r, "err", err)
		s.observer.OnGlyphRangeLoadingFailed(fontStack, r, err)
		return
	}
	for _, g := range glyphs {
		fs.glyphs[g.ID] = g
	}
	fs.ranges[r] = rangeLoaded
	s.observer.OnGlyphRangeLoaded(fontStack, r)
}

// Glyph returns a loaded glyph.
func (s *Store) Glyph(fontStack string, r rune) (Glyph, bool) {
	fs := s.stacks[fontStack]
	if fs == nil {
		return Glyph{}, false
	}
	g, ok := fs.glyphs[r]
	return g, ok
}

// Close drops in-flight results.
func (s *Store) Close() {
	s.token.Revoke()
	s.observer = NoopObserver{}
}
