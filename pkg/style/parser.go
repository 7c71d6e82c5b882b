package style

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/tilestyle/pkg/errors"
	"github.com/matzehuels/tilestyle/pkg/style/source"
)

// Document is a parsed stylesheet. Layers are in paint order.
type Document struct {
	Version   int
	Name      string
	Center    []float64
	Zoom      float64
	Bearing   float64
	Sources   []source.Descriptor
	Layers    []*Layer
	SpriteURL string
	GlyphURL  string
	// Warnings lists declarations that were skipped.
	Warnings []string
}

// Parse parses a stylesheet. The document must be an object with a "sources"
// object and a "layers" array; "version", when present, must be 8. Invalid
// sources, layers and properties are skipped with a warning. Syntax errors
// report the byte offset.
func Parse(data []byte) (*Document, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, syntaxError(err)
	}
	if root == nil {
		return nil, errors.Parse(-1, "document must be an object")
	}

	p := &parser{doc: &Document{Version: 8}}
	if err := p.parseHeader(root); err != nil {
		return nil, err
	}

	rawSources, ok := root["sources"]
	if !ok {
		return nil, errors.Parse(-1, "missing sources")
	}
	if err := p.parseSources(rawSources); err != nil {
		return nil, err
	}

	rawLayers, ok := root["layers"]
	if !ok {
		return nil, errors.Parse(-1, "missing layers")
	}
	if err := p.parseLayers(rawLayers); err != nil {
		return nil, err
	}
	return p.doc, nil
}

func syntaxError(err error) error {
	switch e := err.(type) {
	case *json.SyntaxError:
		return errors.Parse(e.Offset, "%s", e.Error())
	case *json.UnmarshalTypeError:
		return errors.Parse(e.Offset, "document must be an object")
	}
	return errors.Parse(0, "%s", err.Error())
}

type parser struct {
	doc     *Document
	sources map[string]source.Type
	// raw layers by id, for ref resolution
	raw map[string]map[string]json.RawMessage
}

func (p *parser) warn(format string, args ...any) {
	p.doc.Warnings = append(p.doc.Warnings, fmt.Sprintf(format, args...))
}

func (p *parser) parseHeader(root map[string]json.RawMessage) error {
	if raw, ok := root["version"]; ok {
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil || v != 8 {
			return errors.Parse(-1, "version must be 8")
		}
	}
	if raw, ok := root["name"]; ok {
		_ = json.Unmarshal(raw, &p.doc.Name)
	}
	if raw, ok := root["center"]; ok {
		if err := json.Unmarshal(raw, &p.doc.Center); err != nil || len(p.doc.Center) != 2 {
			p.warn("center must be [longitude, latitude]")
			p.doc.Center = nil
		}
	}
	if raw, ok := root["zoom"]; ok {
		_ = json.Unmarshal(raw, &p.doc.Zoom)
	}
	if raw, ok := root["bearing"]; ok {
		_ = json.Unmarshal(raw, &p.doc.Bearing)
	}
	if raw, ok := root["sprite"]; ok {
		if err := json.Unmarshal(raw, &p.doc.SpriteURL); err != nil {
			return errors.Parse(-1, "sprite must be a string")
		}
	}
	if raw, ok := root["glyphs"]; ok {
		if err := json.Unmarshal(raw, &p.doc.GlyphURL); err != nil {
			return errors.Parse(-1, "glyphs must be a string")
		}
	}
	return nil
}

type sourceJSON struct {
	Type     string    `json:"type"`
	URL      string    `json:"url"`
	Tiles    []string  `json:"tiles"`
	MinZoom  *float64  `json:"minzoom"`
	MaxZoom  *float64  `json:"maxzoom"`
	TileSize int       `json:"tileSize"`
	Bounds   []float64 `json:"bounds"`
}

func (p *parser) parseSources(raw json.RawMessage) error {
	keys, values, err := orderedObject(raw)
	if err != nil {
		return errors.Parse(-1, "sources must be an object")
	}
	p.sources = make(map[string]source.Type, len(keys))

	for _, id := range keys {
		var sj sourceJSON
		if err := json.Unmarshal(values[id], &sj); err != nil {
			p.warn("source %q: %v", id, err)
			continue
		}

		typ := source.Type(sj.Type)
		if typ != source.TypeVector && typ != source.TypeRaster {
			p.warn("source %q: unsupported type %q", id, sj.Type)
			continue
		}
		if sj.URL == "" && len(sj.Tiles) == 0 {
			p.warn("source %q: needs a url or tiles", id)
			continue
		}

		info := source.DefaultInfo(typ)
		info.Tiles = sj.Tiles
		info.Bounds = sj.Bounds
		if sj.MinZoom != nil {
			info.MinZoom = *sj.MinZoom
		}
		if sj.MaxZoom != nil {
			info.MaxZoom = *sj.MaxZoom
		}
		if sj.TileSize > 0 {
			info.TileSize = sj.TileSize
		}

		p.sources[id] = typ
		p.doc.Sources = append(p.doc.Sources, source.Descriptor{ID: id, Type: typ, URL: sj.URL, Info: info})
	}
	return nil
}

func (p *parser) parseLayers(raw json.RawMessage) error {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return errors.Parse(-1, "layers must be an array")
	}

	type entry struct {
		id  string
		obj map[string]json.RawMessage
	}
	entries := make([]entry, 0, len(list))
	p.raw = make(map[string]map[string]json.RawMessage, len(list))
	for i, item := range list {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			p.warn("layer %d: must be an object", i)
			continue
		}
		var id string
		if err := json.Unmarshal(obj["id"], &id); err != nil || id == "" {
			p.warn("layer %d: missing id", i)
			continue
		}
		if _, dup := p.raw[id]; dup {
			p.warn("layer %q: duplicate id", id)
			continue
		}
		p.raw[id] = obj
		entries = append(entries, entry{id: id, obj: obj})
	}

	for _, e := range entries {
		layer, err := p.parseLayer(e.id, e.obj)
		if err != nil {
			p.warn("layer %q: %v", e.id, err)
			continue
		}
		p.doc.Layers = append(p.doc.Layers, layer)
	}
	return nil
}

// resolveRef follows ref chains and returns the object that supplies the
// layer's type, source and layout.
func (p *parser) resolveRef(id string, obj map[string]json.RawMessage) (map[string]json.RawMessage, string, error) {
	var ref string
	if raw, ok := obj["ref"]; ok {
		if err := json.Unmarshal(raw, &ref); err != nil {
			return nil, "", fmt.Errorf("ref must be a string")
		}
	}
	if ref == "" {
		return obj, "", nil
	}

	stack := []string{id}
	cur := ref
	for {
		for _, seen := range stack {
			if seen == cur {
				return nil, "", fmt.Errorf("ref cycle: %s -> %s", strings.Join(stack, " -> "), cur)
			}
		}
		target, ok := p.raw[cur]
		if !ok {
			return nil, "", fmt.Errorf("ref %q not found", cur)
		}
		var next string
		if raw, ok := target["ref"]; ok {
			_ = json.Unmarshal(raw, &next)
		}
		if next == "" {
			return target, ref, nil
		}
		stack = append(stack, cur)
		cur = next
	}
}

func (p *parser) parseLayer(id string, obj map[string]json.RawMessage) (*Layer, error) {
	base, ref, err := p.resolveRef(id, obj)
	if err != nil {
		return nil, err
	}

	var typ string
	if err := json.Unmarshal(base["type"], &typ); err != nil {
		return nil, fmt.Errorf("missing type")
	}
	layer := NewLayer(id, LayerType(typ))
	layer.Ref = ref
	if !layer.Type.valid() {
		return nil, fmt.Errorf("unsupported type %q", typ)
	}

	if raw, ok := base["source"]; ok {
		if err := json.Unmarshal(raw, &layer.Source); err != nil {
			return nil, fmt.Errorf("source must be a string")
		}
	}
	if layer.Type == LayerBackground {
		layer.Source = ""
	} else if _, ok := p.sources[layer.Source]; !ok {
		return nil, fmt.Errorf("references unknown source %q", layer.Source)
	}
	if raw, ok := base["source-layer"]; ok {
		_ = json.Unmarshal(raw, &layer.SourceLayer)
	}
	if raw, ok := base["minzoom"]; ok {
		if err := json.Unmarshal(raw, &layer.MinZoom); err != nil {
			return nil, fmt.Errorf("minzoom must be a number")
		}
	}
	if raw, ok := base["maxzoom"]; ok {
		if err := json.Unmarshal(raw, &layer.MaxZoom); err != nil {
			return nil, fmt.Errorf("maxzoom must be a number")
		}
	}

	if raw, ok := base["layout"]; ok {
		var layout map[string]any
		if err := json.Unmarshal(raw, &layout); err != nil {
			return nil, fmt.Errorf("layout must be an object")
		}
		for name, v := range layout {
			pv, err := parsePropertyValue(layoutSpec(name).kind, v)
			if err != nil {
				p.warn("layer %q: layout %s: %v", id, name, err)
				continue
			}
			layer.SetLayout(name, pv)
		}
	}

	// Paint is never inherited through ref.
	for key, raw := range obj {
		class, ok := paintClass(key)
		if !ok {
			continue
		}
		var paint map[string]any
		if err := json.Unmarshal(raw, &paint); err != nil {
			p.warn("layer %q: %s must be an object", id, key)
			continue
		}
		p.parsePaint(layer, class, paint)
	}
	return layer, nil
}

// paintClass maps "paint" to the default class and "paint.<name>" to name.
func paintClass(key string) (string, bool) {
	if key == "paint" {
		return "", true
	}
	class, ok := strings.CutPrefix(key, "paint.")
	return class, ok && class != ""
}

func (p *parser) parsePaint(layer *Layer, class string, paint map[string]any) {
	for name, v := range paint {
		if prop, ok := trimTransitionSuffix(name); ok {
			t, err := parseTransition(v)
			if err != nil {
				p.warn("layer %q: %s: %v", layer.ID, name, err)
				continue
			}
			layer.SetTransition(class, prop, t)
			continue
		}
		pv, err := parsePropertyValue(paintSpec(name).kind, v)
		if err != nil {
			p.warn("layer %q: paint %s: %v", layer.ID, name, err)
			continue
		}
		layer.SetPaint(class, name, pv)
	}
}

func parseTransition(v any) (PropertyTransition, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return PropertyTransition{}, fmt.Errorf("transition must be an object")
	}
	ms := func(key string) (time.Duration, error) {
		raw, ok := obj[key]
		if !ok {
			return 0, nil
		}
		f, ok := raw.(float64)
		if !ok || f < 0 {
			return 0, fmt.Errorf("transition %s must be a non-negative number", key)
		}
		return time.Duration(f * float64(time.Millisecond)), nil
	}
	duration, err := ms("duration")
	if err != nil {
		return PropertyTransition{}, err
	}
	delay, err := ms("delay")
	if err != nil {
		return PropertyTransition{}, err
	}
	return PropertyTransition{Duration: duration, Delay: delay}, nil
}

// orderedObject decodes a JSON object keeping key order.
func orderedObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("not an object")
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("object key is not a string")
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}
