package style

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tilestyle/pkg/errors"
	"github.com/matzehuels/tilestyle/pkg/style/source"
)

func layerIDs(layers []*Layer) []string {
	ids := make([]string, len(layers))
	for i, l := range layers {
		ids[i] = l.ID
	}
	return ids
}

func TestParseKeepsDeclarationOrder(t *testing.T) {
	doc, err := Parse([]byte(`{
		"version": 8,
		"name": "Streets",
		"center": [13.4, 52.5],
		"zoom": 9,
		"sprite": "https://example.com/sprite",
		"glyphs": "https://example.com/{fontstack}/{range}.pbf",
		"sources": {
			"streets": {"type": "vector", "url": "https://example.com/streets.json"},
			"satellite": {"type": "raster", "tiles": ["https://example.com/{z}/{x}/{y}.png"], "tileSize": 256}
		},
		"layers": [
			{"id": "bg", "type": "background"},
			{"id": "water", "type": "fill", "source": "streets", "source-layer": "water"},
			{"id": "imagery", "type": "raster", "source": "satellite", "minzoom": 3}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Streets", doc.Name)
	assert.Equal(t, []float64{13.4, 52.5}, doc.Center)
	assert.Equal(t, 9.0, doc.Zoom)
	assert.Equal(t, "https://example.com/sprite", doc.SpriteURL)
	assert.Empty(t, doc.Warnings)

	require.Len(t, doc.Sources, 2)
	assert.Equal(t, "streets", doc.Sources[0].ID)
	assert.Equal(t, source.TypeVector, doc.Sources[0].Type)
	assert.Equal(t, "satellite", doc.Sources[1].ID)
	assert.Equal(t, 256, doc.Sources[1].Info.TileSize)

	assert.Equal(t, []string{"bg", "water", "imagery"}, layerIDs(doc.Layers))
	assert.Equal(t, "water", doc.Layers[1].SourceLayer)
	assert.Equal(t, 3.0, doc.Layers[2].MinZoom)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1, 2]`},
		{"null", `null`},
		{"wrong version", `{"version": 7, "sources": {}, "layers": []}`},
		{"missing sources", `{"version": 8, "layers": []}`},
		{"missing layers", `{"version": 8, "sources": {}}`},
		{"sources not an object", `{"sources": [], "layers": []}`},
		{"layers not an array", `{"sources": {}, "layers": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidStyle))
		})
	}
}

func TestParseSyntaxErrorReportsOffset(t *testing.T) {
	_, err := Parse([]byte(`{"version": 8,`))
	require.Error(t, err)

	var pe *errors.ParseError
	require.True(t, stderrors.As(err, &pe))
	assert.Equal(t, int64(14), pe.Offset)
	assert.Contains(t, err.Error(), "error parsing style JSON at 14")
}

func TestParseSkipsInvalidLayers(t *testing.T) {
	doc, err := Parse([]byte(`{
		"sources": {
			"streets": {"type": "vector", "tiles": ["https://example.com/{z}/{x}/{y}.pbf"]},
			"video": {"type": "video", "url": "https://example.com/v.mp4"}
		},
		"layers": [
			{"id": "a", "type": "fill", "source": "missing"},
			{"id": "b", "type": "hexagon", "source": "streets"},
			{"id": "c", "type": "fill", "source": "streets"},
			{"id": "c", "type": "line", "source": "streets"},
			{"type": "line", "source": "streets"},
			{"id": "d", "type": "fill", "source": "video"}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, layerIDs(doc.Layers))
	assert.Equal(t, LayerFill, doc.Layers[0].Type)
	assert.Len(t, doc.Sources, 1)
	assert.Len(t, doc.Warnings, 6)
}

func TestParseRefInheritsLayoutNotPaint(t *testing.T) {
	doc, err := Parse([]byte(`{
		"sources": {"streets": {"type": "vector", "tiles": ["https://example.com/{z}/{x}/{y}.pbf"]}},
		"layers": [
			{"id": "road", "type": "line", "source": "streets", "source-layer": "road",
			 "layout": {"line-cap": "round"}, "paint": {"line-width": 4}},
			{"id": "road-casing", "ref": "road", "paint": {"line-color": "#000"}},
			{"id": "road-glow", "ref": "road-casing"}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, doc.Layers, 3)

	casing := doc.Layers[1]
	assert.Equal(t, "road", casing.Ref)
	assert.Equal(t, LayerLine, casing.Type)
	assert.Equal(t, "streets", casing.Source)
	assert.Equal(t, "road", casing.SourceLayer)
	assert.Equal(t, "round", casing.Layout["line-cap"].Constant)
	assert.NotContains(t, casing.Paint[""], "line-width")
	assert.Equal(t, Black, casing.Paint[""]["line-color"].Constant)

	glow := doc.Layers[2]
	assert.Equal(t, LayerLine, glow.Type)
	assert.Empty(t, glow.Paint)
}

func TestParseRefCycle(t *testing.T) {
	doc, err := Parse([]byte(`{
		"sources": {"streets": {"type": "vector", "tiles": ["https://example.com/{z}/{x}/{y}.pbf"]}},
		"layers": [
			{"id": "a", "ref": "b"},
			{"id": "b", "ref": "a"},
			{"id": "c", "type": "fill", "source": "streets"},
			{"id": "d", "ref": "nowhere"}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, layerIDs(doc.Layers))
	require.Len(t, doc.Warnings, 3)
	assert.Contains(t, doc.Warnings[0], "ref cycle")
	assert.Contains(t, doc.Warnings[2], `ref "nowhere" not found`)
}

func TestParsePaintClassesAndTransitions(t *testing.T) {
	doc, err := Parse([]byte(`{
		"sources": {"streets": {"type": "vector", "tiles": ["https://example.com/{z}/{x}/{y}.pbf"]}},
		"layers": [{
			"id": "park", "type": "fill", "source": "streets",
			"paint": {
				"fill-color": "#0f0",
				"fill-opacity": {"base": 1.5, "stops": [[5, 0.2], [10, 1]]},
				"fill-color-transition": {"duration": 250, "delay": 50}
			},
			"paint.night": {"fill-color": "rgb(0, 64, 0)", "fill-opacity": "bright"}
		}]
	}`))
	require.NoError(t, err)
	require.Len(t, doc.Layers, 1)
	park := doc.Layers[0]

	assert.Equal(t, Color{0, 1, 0, 1}, park.Paint[""]["fill-color"].Constant)
	fn := park.Paint[""]["fill-opacity"].Function
	require.NotNil(t, fn)
	assert.Equal(t, 1.5, fn.Base)
	assert.Len(t, fn.Stops, 2)
	assert.Equal(t, PropertyTransition{Duration: 250 * time.Millisecond, Delay: 50 * time.Millisecond},
		park.Transitions[""]["fill-color"])

	assert.Equal(t, rgb(0, 64, 0), park.Paint["night"]["fill-color"].Constant)
	assert.NotContains(t, park.Paint["night"], "fill-opacity")
	require.Len(t, doc.Warnings, 1)
	assert.Contains(t, doc.Warnings[0], "fill-opacity")
}
