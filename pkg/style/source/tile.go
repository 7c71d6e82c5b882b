package source

import (
	"github.com/paulmach/orb/maptile"

	"github.com/matzehuels/tilestyle/pkg/runloop"
)

// TileState is the load state of one tile.
type TileState int

// Tile states. A partial tile has data but is waiting for glyphs or sprite
// images its symbols need.
const (
	TileLoading TileState = iota
	TileLoaded
	TilePartial
	TileFailed
)

func (s TileState) String() string {
	switch s {
	case TileLoading:
		return "loading"
	case TileLoaded:
		return "loaded"
	case TilePartial:
		return "partial"
	case TileFailed:
		return "failed"
	}
	return "unknown"
}

// TileData is a tile owned by a [Source]. It is only touched on the
// controller goroutine.
type TileData struct {
	ID  maptile.Tile
	URL string

	state   TileState
	content *Content
	err     error
	token   *runloop.Token
}

// State returns the tile's load state.
func (t *TileData) State() TileState { return t.state }

// Content returns the decoded payload, or nil while loading or after failure.
func (t *TileData) Content() *Content { return t.content }

// Err returns the load failure, if any.
func (t *TileData) Err() error { return t.err }
