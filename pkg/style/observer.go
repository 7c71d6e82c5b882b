package style

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/maptile"

	"github.com/matzehuels/tilestyle/pkg/style/glyph"
	"github.com/matzehuels/tilestyle/pkg/style/source"
)

// childObserver forwards source, sprite and glyph events into the style.
type childObserver struct{ s *Style }

func (c childObserver) OnSourceLoaded(*source.Source) { c.s.tileDataChanged(true) }

func (c childObserver) OnSourceLoadingFailed(_ *source.Source, err error) { c.s.resourceFailed(err) }

func (c childObserver) OnTileLoaded(_ *source.Source, _ maptile.Tile, isNew bool) {
	c.s.tileDataChanged(isNew)
}

func (c childObserver) OnTileLoadingFailed(_ *source.Source, _ maptile.Tile, err error) {
	c.s.resourceFailed(err)
}

func (c childObserver) OnSpriteLoaded() { c.s.tileDataChanged(true) }

// A failed sprite is terminal, so tiles waiting on icons can finish without
// them.
func (c childObserver) OnSpriteLoadingFailed(err error) {
	c.s.resourceFailed(err)
	c.s.tileDataChanged(true)
}

func (c childObserver) OnGlyphRangeLoaded(string, glyph.Range) { c.s.tileDataChanged(true) }

func (c childObserver) OnGlyphRangeLoadingFailed(_ string, _ glyph.Range, err error) {
	c.s.resourceFailed(err)
}

// dependencies decides whether a decoded tile has everything its symbol
// layers need: glyphs for the label text and the sprite for icons.
type dependencies struct{ s *Style }

func (d dependencies) Ready(sourceID string, td *source.TileData) bool {
	content := td.Content()
	if content == nil || len(content.Layers) == 0 {
		return true
	}
	z := float64(td.ID.Z)

	ready := true
	for _, layer := range d.s.Layers() {
		if layer.Type != LayerSymbol || layer.Source != sourceID {
			continue
		}
		var features []map[string]any
		for _, l := range content.Layers {
			if l.Name != layer.SourceLayer {
				continue
			}
			for _, f := range l.Features {
				features = append(features, f.Properties)
			}
		}
		if len(features) == 0 {
			continue
		}

		if field, _ := layer.Layout["text-field"].Evaluate(z).(string); field != "" {
			font, _ := layer.Layout["text-font"].Evaluate(z).(string)
			if font == "" {
				font = DefaultFontStack
			}
			var text strings.Builder
			for _, props := range features {
				text.WriteString(substituteTokens(field, props))
			}
			if !d.s.glyphs.HasRanges(font, glyph.RangesFor(text.String())) {
				ready = false
			}
		}
		if icon, _ := layer.Layout["icon-image"].Evaluate(z).(string); icon != "" && !d.spritesResolved() {
			ready = false
		}
	}
	return ready
}

func (d dependencies) spritesResolved() bool {
	return d.s.sprites.IsLoaded() || d.s.sprites.Err() != nil
}

// substituteTokens replaces "{name}" with the feature property of that name.
// Unknown properties become empty.
func substituteTokens(s string, props map[string]any) string {
	if !strings.Contains(s, "{") {
		return s
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			break
		}
		b.WriteString(s[:open])
		if v, ok := props[s[open+1:open+end]]; ok && v != nil {
			fmt.Fprint(&b, v)
		}
		s = s[open+end+1:]
	}
	b.WriteString(s)
	return b.String()
}
