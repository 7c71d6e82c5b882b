package style

// Snapshot is a read-only view of the engine for reporting. It is built on
// the controller goroutine and can be handed to other goroutines.
type Snapshot struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	Loaded    bool             `json:"loaded"`
	Classes   []string         `json:"classes"`
	Sprite    string           `json:"sprite,omitempty"`
	Glyphs    string           `json:"glyphs,omitempty"`
	Sources   []SourceSnapshot `json:"sources"`
	Layers    []LayerSnapshot  `json:"layers"`
	LastError string           `json:"last_error,omitempty"`
}

// SourceSnapshot reports one source.
type SourceSnapshot struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	State   string `json:"state"`
	Enabled bool   `json:"enabled"`
	Tiles   int    `json:"tiles"`
}

// LayerSnapshot reports one layer and its computed values.
type LayerSnapshot struct {
	ID     string           `json:"id"`
	Type   string           `json:"type"`
	Source string           `json:"source,omitempty"`
	Paint  map[string]Value `json:"paint,omitempty"`
	Layout map[string]Value `json:"layout,omitempty"`
}

// Snapshot captures the current state.
func (s *Style) Snapshot() Snapshot {
	snap := Snapshot{
		ID:      s.ID.String(),
		Loaded:  s.IsLoaded(),
		Classes: s.ActiveClasses(),
		Sprite:  s.sprites.URL(),
		Glyphs:  s.glyphs.URL(),
	}
	if s.doc != nil {
		snap.Name = s.doc.Name
	}
	if s.lastError != nil {
		snap.LastError = s.lastError.Error()
	}
	for _, src := range s.Sources() {
		snap.Sources = append(snap.Sources, SourceSnapshot{
			ID:      src.ID,
			Type:    string(src.Type),
			State:   src.State().String(),
			Enabled: src.Enabled(),
			Tiles:   len(src.Tiles()),
		})
	}
	for _, l := range s.Layers() {
		ls := LayerSnapshot{ID: l.ID, Type: string(l.Type), Source: l.Source}
		if p, ok := s.Computed(l.ID); ok {
			ls.Paint, ls.Layout = p.Paint, p.Layout
		}
		snap.Layers = append(snap.Layers, ls)
	}
	return snap
}
