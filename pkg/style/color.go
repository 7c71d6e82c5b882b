package style

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Common colors.
var (
	Black       = Color{0, 0, 0, 1}
	White       = Color{1, 1, 1, 1}
	Transparent = Color{0, 0, 0, 0}
)

var namedColors = map[string]Color{
	"black":       Black,
	"white":       White,
	"transparent": Transparent,
	"red":         rgb(255, 0, 0),
	"green":       rgb(0, 128, 0),
	"lime":        rgb(0, 255, 0),
	"blue":        rgb(0, 0, 255),
	"yellow":      rgb(255, 255, 0),
	"cyan":        rgb(0, 255, 255),
	"aqua":        rgb(0, 255, 255),
	"magenta":     rgb(255, 0, 255),
	"fuchsia":     rgb(255, 0, 255),
	"gray":        rgb(128, 128, 128),
	"grey":        rgb(128, 128, 128),
	"silver":      rgb(192, 192, 192),
	"maroon":      rgb(128, 0, 0),
	"olive":       rgb(128, 128, 0),
	"navy":        rgb(0, 0, 128),
	"purple":      rgb(128, 0, 128),
	"teal":        rgb(0, 128, 128),
	"orange":      rgb(255, 165, 0),
	"brown":       rgb(165, 42, 42),
	"pink":        rgb(255, 192, 203),
	"gold":        rgb(255, 215, 0),
	"beige":       rgb(245, 245, 220),
	"tan":         rgb(210, 180, 140),
	"khaki":       rgb(240, 230, 140),
	"lightblue":   rgb(173, 216, 230),
	"lightgray":   rgb(211, 211, 211),
	"lightgrey":   rgb(211, 211, 211),
	"darkgray":    rgb(169, 169, 169),
	"darkgrey":    rgb(169, 169, 169),
	"lightgreen":  rgb(144, 238, 144),
	"darkgreen":   rgb(0, 100, 0),
	"skyblue":     rgb(135, 206, 235),
	"steelblue":   rgb(70, 130, 180),
	"salmon":      rgb(250, 128, 114),
	"coral":       rgb(255, 127, 80),
	"ivory":       rgb(255, 255, 240),
	"lavender":    rgb(230, 230, 250),
	"wheat":       rgb(245, 222, 179),
	"whitesmoke":  rgb(245, 245, 245),
}

func rgb(r, g, b int) Color {
	return Color{float64(r) / 255, float64(g) / 255, float64(b) / 255, 1}
}

// ParseColor parses a CSS color: #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(),
// rgba(), hsl(), hsla() or a common color name.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}

	name, args, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(args, ")") {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	parts := strings.Split(strings.TrimSuffix(args, ")"), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch name {
	case "rgb", "rgba":
		return parseFunc(s, parts, name == "rgba", parseRGBChannel, func(v [3]float64, a float64) Color {
			return Color{v[0], v[1], v[2], a}
		})
	case "hsl", "hsla":
		return parseFunc(s, parts, name == "hsla", parseHSLChannel, func(v [3]float64, a float64) Color {
			return hslToRGB(v[0], v[1], v[2], a)
		})
	}
	return Color{}, fmt.Errorf("invalid color %q", s)
}

func parseFunc(s string, parts []string, hasAlpha bool, channel func(int, string) (float64, error), build func([3]float64, float64) Color) (Color, error) {
	want := 3
	if hasAlpha {
		want = 4
	}
	if len(parts) != want {
		return Color{}, fmt.Errorf("invalid color %q: expected %d components", s, want)
	}
	var v [3]float64
	for i := range 3 {
		f, err := channel(i, parts[i])
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		v[i] = f
	}
	alpha := 1.0
	if hasAlpha {
		a, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		alpha = clamp01(a)
	}
	return build(v, alpha), nil
}

func parseRGBChannel(_ int, p string) (float64, error) {
	if pct, ok := strings.CutSuffix(p, "%"); ok {
		f, err := strconv.ParseFloat(pct, 64)
		return clamp01(f / 100), err
	}
	f, err := strconv.ParseFloat(p, 64)
	return clamp01(f / 255), err
}

func parseHSLChannel(i int, p string) (float64, error) {
	if i == 0 {
		return strconv.ParseFloat(p, 64)
	}
	pct, ok := strings.CutSuffix(p, "%")
	if !ok {
		return 0, fmt.Errorf("%q is not a percentage", p)
	}
	f, err := strconv.ParseFloat(pct, 64)
	return clamp01(f / 100), err
}

func parseHex(h string) (Color, error) {
	switch len(h) {
	case 3, 4:
		var expanded strings.Builder
		for _, c := range h {
			expanded.WriteRune(c)
			expanded.WriteRune(c)
		}
		h = expanded.String()
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color #%s", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color #%s", h)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

func hslToRGB(h, s, l, a float64) Color {
	h = math.Mod(math.Mod(h, 360)+360, 360) / 360
	if s == 0 {
		return Color{l, l, l, a}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return Color{hue(p, q, h+1.0/3), hue(p, q, h), hue(p, q, h-1.0/3), a}
}

func hue(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// String formats the color as rgba().
func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%g)",
		int(math.Round(c.R*255)), int(math.Round(c.G*255)), int(math.Round(c.B*255)),
		math.Round(c.A*1000)/1000)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
