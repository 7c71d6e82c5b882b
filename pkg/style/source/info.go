package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Info is the subset of TileJSON the loader needs.
type Info struct {
	Tiles       []string  `json:"tiles"`
	MinZoom     float64   `json:"minzoom"`
	MaxZoom     float64   `json:"maxzoom"`
	TileSize    int       `json:"tileSize,omitempty"`
	Attribution string    `json:"attribution,omitempty"`
	Bounds      []float64 `json:"bounds,omitempty"`
	Center      []float64 `json:"center,omitempty"`
}

// DefaultInfo returns the TileJSON defaults for a source type.
func DefaultInfo(typ Type) Info {
	info := Info{MaxZoom: 22, TileSize: 512}
	if typ == TypeRaster {
		info.TileSize = 256
	}
	return info
}

// ParseInfo decodes a TileJSON document over the defaults in base.
func ParseInfo(data []byte, base Info) (Info, error) {
	info := base
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parse TileJSON: %w", err)
	}
	if err := info.validate(); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (i Info) validate() error {
	if len(i.Tiles) == 0 {
		return fmt.Errorf("TileJSON has no tile URLs")
	}
	if i.MinZoom < 0 || i.MaxZoom < i.MinZoom {
		return fmt.Errorf("TileJSON zoom range [%g, %g] is invalid", i.MinZoom, i.MaxZoom)
	}
	if i.Bounds != nil && len(i.Bounds) != 4 {
		return fmt.Errorf("TileJSON bounds must have four numbers")
	}
	return nil
}

// Bound returns the data bounds, or the whole world.
func (i Info) Bound() orb.Bound {
	if len(i.Bounds) != 4 {
		return orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
	}
	return orb.Bound{Min: orb.Point{i.Bounds[0], i.Bounds[1]}, Max: orb.Point{i.Bounds[2], i.Bounds[3]}}
}

// TileURL expands a tile template for id. Templates rotate by tile so that
// requests spread over the listed hosts.
func (i Info) TileURL(id maptile.Tile, pixelRatio float64) string {
	if len(i.Tiles) == 0 {
		return ""
	}
	tmpl := i.Tiles[int(id.X+id.Y)%len(i.Tiles)]

	ratio := ""
	if pixelRatio > 1 {
		ratio = "@2x"
	}
	return strings.NewReplacer(
		"{z}", strconv.Itoa(int(id.Z)),
		"{x}", strconv.FormatUint(uint64(id.X), 10),
		"{y}", strconv.FormatUint(uint64(id.Y), 10),
		"{prefix}", fmt.Sprintf("%x%x", id.X%16, id.Y%16),
		"{ratio}", ratio,
	).Replace(tmpl)
}
