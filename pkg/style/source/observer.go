package source

import "github.com/paulmach/orb/maptile"

// Observer receives source events on the controller goroutine.
type Observer interface {
	OnSourceLoaded(s *Source)
	OnSourceLoadingFailed(s *Source, err error)
	// OnTileLoaded is called when a tile gets data (isNew) and again when a
	// partial tile becomes complete.
	OnTileLoaded(s *Source, id maptile.Tile, isNew bool)
	OnTileLoadingFailed(s *Source, id maptile.Tile, err error)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) OnSourceLoaded(*Source)                           {}
func (NoopObserver) OnSourceLoadingFailed(*Source, error)             {}
func (NoopObserver) OnTileLoaded(*Source, maptile.Tile, bool)         {}
func (NoopObserver) OnTileLoadingFailed(*Source, maptile.Tile, error) {}

// Dependencies reports whether the resources a tile's symbols need are
// available. Implementations request whatever is missing.
type Dependencies interface {
	Ready(sourceID string, tile *TileData) bool
}
