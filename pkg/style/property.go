package style

import (
	"math"
	"strings"
)

type valueKind int

const (
	kindAny valueKind = iota
	kindNumber
	kindColor
	kindString
	kindBool
	kindArray
	kindStringArray
)

func (k valueKind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindColor:
		return "color"
	case kindString:
		return "string"
	case kindBool:
		return "boolean"
	case kindArray:
		return "array"
	case kindStringArray:
		return "string array"
	}
	return "value"
}

// propertySpec describes one style property.
type propertySpec struct {
	kind         valueKind
	def          Value
	transitional bool // paint values animate when they change
	crossfaded   bool // piecewise constant, fades between integer zooms
}

var paintSpecs = map[string]propertySpec{
	"background-color":   {kind: kindColor, def: Black, transitional: true},
	"background-opacity": {kind: kindNumber, def: 1.0, transitional: true},
	"background-pattern": {kind: kindString, crossfaded: true},

	"fill-antialias":     {kind: kindBool, def: true},
	"fill-opacity":       {kind: kindNumber, def: 1.0, transitional: true},
	"fill-color":         {kind: kindColor, def: Black, transitional: true},
	"fill-outline-color": {kind: kindColor, transitional: true},
	"fill-translate":     {kind: kindArray, def: []float64{0, 0}, transitional: true},
	"fill-pattern":       {kind: kindString, crossfaded: true},

	"line-opacity":     {kind: kindNumber, def: 1.0, transitional: true},
	"line-color":       {kind: kindColor, def: Black, transitional: true},
	"line-translate":   {kind: kindArray, def: []float64{0, 0}, transitional: true},
	"line-width":       {kind: kindNumber, def: 1.0, transitional: true},
	"line-gap-width":   {kind: kindNumber, def: 0.0, transitional: true},
	"line-offset":      {kind: kindNumber, def: 0.0, transitional: true},
	"line-blur":        {kind: kindNumber, def: 0.0, transitional: true},
	"line-dasharray":   {kind: kindArray, crossfaded: true},
	"line-pattern":     {kind: kindString, crossfaded: true},
	"circle-radius":    {kind: kindNumber, def: 5.0, transitional: true},
	"circle-color":     {kind: kindColor, def: Black, transitional: true},
	"circle-blur":      {kind: kindNumber, def: 0.0, transitional: true},
	"circle-opacity":   {kind: kindNumber, def: 1.0, transitional: true},
	"circle-translate": {kind: kindArray, def: []float64{0, 0}, transitional: true},

	"icon-opacity":    {kind: kindNumber, def: 1.0, transitional: true},
	"icon-color":      {kind: kindColor, def: Black, transitional: true},
	"icon-halo-color": {kind: kindColor, def: Transparent, transitional: true},
	"icon-halo-width": {kind: kindNumber, def: 0.0, transitional: true},
	"icon-halo-blur":  {kind: kindNumber, def: 0.0, transitional: true},
	"text-opacity":    {kind: kindNumber, def: 1.0, transitional: true},
	"text-color":      {kind: kindColor, def: Black, transitional: true},
	"text-halo-color": {kind: kindColor, def: Transparent, transitional: true},
	"text-halo-width": {kind: kindNumber, def: 0.0, transitional: true},
	"text-halo-blur":  {kind: kindNumber, def: 0.0, transitional: true},

	"raster-opacity":        {kind: kindNumber, def: 1.0, transitional: true},
	"raster-hue-rotate":     {kind: kindNumber, def: 0.0, transitional: true},
	"raster-brightness-min": {kind: kindNumber, def: 0.0, transitional: true},
	"raster-brightness-max": {kind: kindNumber, def: 1.0, transitional: true},
	"raster-saturation":     {kind: kindNumber, def: 0.0, transitional: true},
	"raster-contrast":       {kind: kindNumber, def: 0.0, transitional: true},
	"raster-fade-duration":  {kind: kindNumber, def: 300.0},
}

var layoutSpecs = map[string]propertySpec{
	"visibility": {kind: kindString, def: string(Visible)},

	"line-cap":         {kind: kindString, def: "butt"},
	"line-join":        {kind: kindString, def: "miter"},
	"line-miter-limit": {kind: kindNumber, def: 2.0},

	"symbol-placement": {kind: kindString, def: "point"},
	"symbol-spacing":   {kind: kindNumber, def: 250.0},
	"icon-image":       {kind: kindString},
	"icon-size":        {kind: kindNumber, def: 1.0},
	"icon-rotate":      {kind: kindNumber, def: 0.0},
	"text-field":       {kind: kindString},
	"text-font":        {kind: kindStringArray, def: DefaultFontStack},
	"text-size":        {kind: kindNumber, def: 16.0},
	"text-max-width":   {kind: kindNumber, def: 10.0},
	"text-transform":   {kind: kindString, def: "none"},
	"text-anchor":      {kind: kindString, def: "center"},
}

// DefaultFontStack is used by symbol layers without text-font.
const DefaultFontStack = "Open Sans Regular,Arial Unicode MS Regular"

func paintSpec(name string) propertySpec {
	if spec, ok := paintSpecs[name]; ok {
		return spec
	}
	return propertySpec{kind: kindAny}
}

func layoutSpec(name string) propertySpec {
	if spec, ok := layoutSpecs[name]; ok {
		return spec
	}
	return propertySpec{kind: kindAny}
}

const transitionSuffix = "-transition"

func trimTransitionSuffix(name string) (string, bool) {
	prop, ok := strings.CutSuffix(name, transitionSuffix)
	return prop, ok && prop != ""
}

// Visibility is the layout visibility of a layer.
type Visibility string

// Visibility values.
const (
	Visible Visibility = "visible"
	None    Visibility = "none"
)

// noMaxZoom marks a layer without a maxzoom.
var noMaxZoom = math.Inf(1)
