package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilestyle/pkg/transform"
)

// viewFlags select the viewport and classes a command evaluates the style
// for.
type viewFlags struct {
	center     string
	zoom       float64
	bearing    float64
	size       string
	classes    []string
	pixelRatio float64
	timeout    time.Duration
}

func (f *viewFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.center, "center", "0,0", "view center as lon,lat")
	fs.Float64VarP(&f.zoom, "zoom", "z", 0, "fractional zoom level")
	fs.Float64Var(&f.bearing, "bearing", 0, "bearing in degrees clockwise from north")
	fs.StringVar(&f.size, "size", "512x512", "viewport size in pixels as WxH")
	fs.StringSliceVar(&f.classes, "class", nil, "style class to apply (repeatable)")
	fs.Float64Var(&f.pixelRatio, "pixel-ratio", 0, "device pixel ratio for sprites (overrides config)")
	fs.DurationVar(&f.timeout, "timeout", defaultLoadTimeout*time.Second, "how long to wait for resources")
}

// view converts the flags into a viewport.
func (f *viewFlags) view() (transform.State, error) {
	center, err := parseCenter(f.center)
	if err != nil {
		return transform.State{}, err
	}
	w, h, err := parseSize(f.size)
	if err != nil {
		return transform.State{}, err
	}
	if f.zoom < 0 {
		return transform.State{}, fmt.Errorf("zoom must not be negative, got %g", f.zoom)
	}
	return transform.State{Center: center, Zoom: f.zoom, Bearing: f.bearing, Width: w, Height: h}, nil
}

func parseCenter(s string) (orb.Point, error) {
	lon, lat, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("center must be lon,lat, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center longitude: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center latitude: %w", err)
	}
	if x < -180 || x > 180 || y < -transform.MaxLatitude || y > transform.MaxLatitude {
		return orb.Point{}, fmt.Errorf("center %g,%g is outside the map", x, y)
	}
	return orb.Point{x, y}, nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size must be WxH, got %q", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("size width: %w", err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("size height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size must be positive, got %dx%d", w, h)
	}
	return w, h, nil
}
