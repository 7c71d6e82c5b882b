package transform

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoveringTiles(t *testing.T) {
	tests := []struct {
		name  string
		state State
		zoom  maptile.Zoom
		want  []maptile.Tile
	}{
		{
			name:  "whole world",
			state: State{Width: 512, Height: 512},
			zoom:  0,
			want:  []maptile.Tile{maptile.New(0, 0, 0)},
		},
		{
			name:  "center at z1",
			state: State{Zoom: 1, Width: 512, Height: 512},
			zoom:  1,
			want: []maptile.Tile{
				maptile.New(0, 0, 1), maptile.New(0, 1, 1),
				maptile.New(1, 0, 1), maptile.New(1, 1, 1),
			},
		},
		{
			name:  "antimeridian wraps",
			state: State{Center: orb.Point{180, 0}, Zoom: 1, Width: 512, Height: 512},
			zoom:  1,
			want: []maptile.Tile{
				maptile.New(1, 0, 1), maptile.New(1, 1, 1),
				maptile.New(0, 0, 1), maptile.New(0, 1, 1),
			},
		},
		{
			name:  "empty viewport",
			state: State{Zoom: 3},
			zoom:  3,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, tt.state.CoveringTiles(tt.zoom))
		})
	}
}

func TestCoveringTilesCenterFirst(t *testing.T) {
	s := State{Center: orb.Point{13.4, 52.5}, Zoom: 10.5, Width: 1024, Height: 768}
	tiles := s.CoveringTiles(10)
	require.NotEmpty(t, tiles)
	assert.Equal(t, maptile.At(s.Center, 10), tiles[0])

	seen := map[maptile.Tile]bool{}
	for _, tile := range tiles {
		assert.False(t, seen[tile], "duplicate tile %v", tile)
		seen[tile] = true
	}
}

func TestIntegerZoom(t *testing.T) {
	s := State{Zoom: 10.7}

	z, ok := s.IntegerZoom(512, 0, 22)
	require.True(t, ok)
	assert.Equal(t, maptile.Zoom(10), z)

	z, ok = s.IntegerZoom(256, 0, 22)
	require.True(t, ok)
	assert.Equal(t, maptile.Zoom(11), z)

	z, ok = s.IntegerZoom(512, 0, 8)
	require.True(t, ok)
	assert.Equal(t, maptile.Zoom(8), z, "overzoomed at maxzoom")

	_, ok = s.IntegerZoom(512, 12, 22)
	assert.False(t, ok)
}

func TestBound(t *testing.T) {
	b := State{Width: 512, Height: 512}.Bound()
	assert.InDelta(t, -180, b.Min.Lon(), 1e-9)
	assert.InDelta(t, 180, b.Max.Lon(), 1e-9)
	assert.InDelta(t, MaxLatitude, b.Max.Lat(), 1e-6)

	center := orb.Point{-73.98, 40.75}
	small := State{Center: center, Zoom: 14, Width: 400, Height: 300}.Bound()
	assert.True(t, small.Contains(center))

	rotated := State{Center: center, Zoom: 14, Width: 400, Height: 300, Bearing: 45}.Bound()
	assert.Greater(t, rotated.Top()-rotated.Bottom(), small.Top()-small.Bottom())
}
