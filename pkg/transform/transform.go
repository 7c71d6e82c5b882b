// Package transform describes the map viewport and computes the tiles that
// cover it.
//
// [State] is a plain value: the controller copies it into each update pass.
// Tile selection floors the zoom for the source's tile size and overzooms
// past the source's maxzoom. Tile x wraps across the antimeridian.
package transform

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// DefaultTileSize is the edge length in pixels a zoom level is defined for.
const DefaultTileSize = 512

// MaxLatitude bounds Web Mercator.
const MaxLatitude = 85.0511287798066

// State is the viewport: a center, a fractional zoom, a bearing in degrees
// clockwise from north and a size in pixels.
type State struct {
	Center   orb.Point
	Zoom     float64
	Bearing  float64
	Width    int
	Height   int
	TileSize int
}

func (s State) tileSize() float64 {
	if s.TileSize <= 0 {
		return DefaultTileSize
	}
	return float64(s.TileSize)
}

// Valid reports whether the viewport has an area.
func (s State) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// worldSize is the width of the whole world in pixels at the state's zoom.
func (s State) worldSize() float64 {
	return s.tileSize() * math.Exp2(s.Zoom)
}

// project converts a point to world pixel coordinates at the state's zoom.
func (s State) project(p orb.Point) (float64, float64) {
	x, y := mercator(p)
	size := s.worldSize()
	return x * size, y * size
}

func (s State) unproject(x, y float64) orb.Point {
	size := s.worldSize()
	return unmercator(x/size, y/size)
}

// corners returns the viewport corners in world pixels, rotated by bearing.
func (s State) corners() [4][2]float64 {
	cx, cy := s.project(s.Center)
	hw, hh := float64(s.Width)/2, float64(s.Height)/2
	rad := s.Bearing * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	offsets := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	var out [4][2]float64
	for i, o := range offsets {
		out[i] = [2]float64{
			cx + o[0]*cos - o[1]*sin,
			cy + o[0]*sin + o[1]*cos,
		}
	}
	return out
}

// Bound returns the geographic extent of the viewport. With a bearing the
// result covers the rotated viewport.
func (s State) Bound() orb.Bound {
	c := s.corners()
	b := orb.Bound{Min: s.unproject(c[0][0], c[0][1]), Max: s.unproject(c[0][0], c[0][1])}
	for _, p := range c[1:] {
		b = b.Extend(s.unproject(p[0], p[1]))
	}
	return b
}

// IntegerZoom returns the zoom at which a source with the given tile size
// should be requested. ok is false when the view is below minZoom; above
// maxZoom the source is overzoomed at maxZoom.
func (s State) IntegerZoom(tileSize int, minZoom, maxZoom float64) (z maptile.Zoom, ok bool) {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	zoom := math.Floor(s.Zoom + math.Log2(s.tileSize()/float64(tileSize)))
	if zoom < minZoom {
		return 0, false
	}
	zoom = math.Min(zoom, maxZoom)
	return maptile.Zoom(math.Max(zoom, 0)), true
}

// CoveringTiles returns the tiles at zoom z that intersect the viewport,
// nearest to the center first. Tiles wrap across the antimeridian.
func (s State) CoveringTiles(z maptile.Zoom) []maptile.Tile {
	if !s.Valid() {
		return nil
	}

	n := math.Exp2(float64(z))
	scale := n / s.worldSize()
	c := s.corners()

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range c {
		minX, maxX = math.Min(minX, p[0]*scale), math.Max(maxX, p[0]*scale)
		minY, maxY = math.Min(minY, p[1]*scale), math.Max(maxY, p[1]*scale)
	}

	x0, x1 := int(math.Floor(minX)), int(math.Ceil(maxX))-1
	y0, y1 := max(int(math.Floor(minY)), 0), min(int(math.Ceil(maxY))-1, int(n)-1)
	if x1-x0+1 > int(n) {
		x0, x1 = 0, int(n)-1
	}

	cx, cy := s.project(s.Center)
	cx, cy = cx*scale, cy*scale

	type candidate struct {
		tile maptile.Tile
		dist float64
	}
	seen := make(map[maptile.Tile]bool)
	var tiles []candidate
	for x := x0; x <= x1; x++ {
		wx := ((x % int(n)) + int(n)) % int(n)
		for y := y0; y <= y1; y++ {
			t := maptile.New(uint32(wx), uint32(y), z)
			if seen[t] {
				continue
			}
			seen[t] = true
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			tiles = append(tiles, candidate{tile: t, dist: dx*dx + dy*dy})
		}
	}

	sort.SliceStable(tiles, func(i, j int) bool { return tiles[i].dist < tiles[j].dist })
	out := make([]maptile.Tile, len(tiles))
	for i, t := range tiles {
		out[i] = t.tile
	}
	return out
}

// mercator maps a point to unit Web Mercator coordinates, with the origin at
// the north-west corner.
func mercator(p orb.Point) (float64, float64) {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p.Lat()))
	x := (p.Lon() + 180) / 360
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)
	return x, y
}

func unmercator(x, y float64) orb.Point {
	lon := x*360 - 180
	lat := 360/math.Pi*math.Atan(math.Exp((0.5-y)*2*math.Pi)) - 90
	return orb.Point{lon, lat}
}
