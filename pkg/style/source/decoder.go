package source

import (
	"bytes"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
)

// Content is the decoded payload of a tile.
type Content struct {
	Layers mvt.Layers // vector tiles
	Image  []byte     // raster tiles, still encoded
}

// Decoder turns tile bytes into content. Decode runs on worker goroutines.
type Decoder interface {
	Decode(id maptile.Tile, data []byte) (*Content, error)
}

// MVTDecoder decodes Mapbox Vector Tiles, gzipped or not, and projects their
// geometry to WGS84.
type MVTDecoder struct{}

var gzipMagic = []byte{0x1f, 0x8b}

// Decode implements Decoder.
func (MVTDecoder) Decode(id maptile.Tile, data []byte) (*Content, error) {
	if len(data) == 0 {
		return &Content{}, nil
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, err
	}
	layers.ProjectToWGS84(id)
	return &Content{Layers: layers}, nil
}

// RawDecoder keeps raster bytes as they are.
type RawDecoder struct{}

// Decode implements Decoder.
func (RawDecoder) Decode(_ maptile.Tile, data []byte) (*Content, error) {
	return &Content{Image: data}, nil
}
