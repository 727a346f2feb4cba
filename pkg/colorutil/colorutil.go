// Package colorutil provides shared point colors and the membrane-potential color map.
package colorutil

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Common point and overlay colors used throughout the application.
var (
	Excitatory = colorful.Color{R: 0.85, G: 0.2, B: 0.2}
	Inhibitory = colorful.Color{R: 0.2, G: 0.35, B: 0.9}
	Other      = colorful.Color{R: 0.6, G: 0.6, B: 0.6}
	Highlight  = colorful.Color{R: 1, G: 1, B: 0}
	Outline    = colorful.Color{R: 1, G: 1, B: 1}
	Handle     = colorful.Color{R: 0, G: 1, B: 1}
	Curve      = colorful.Color{R: 1, G: 0, B: 1}
	Device     = colorful.Color{R: 0, G: 1, B: 0}
	Background = colorful.Color{R: 0, G: 0, B: 0}
)

// ElementColor returns the initial color for a point of the given element type.
func ElementColor(elementType string) colorful.Color {
	switch strings.ToLower(elementType) {
	case "excitatory", "ex", "e":
		return Excitatory
	case "inhibitory", "in", "i":
		return Inhibitory
	default:
		return Other
	}
}

// MapVmToColor clamps v to [vMin, vMax] and maps it to (t, t, 1) with
// t = (v - vMin) / (vMax - vMin).
func MapVmToColor(v, vMin, vMax float64) colorful.Color {
	if vMax <= vMin {
		return colorful.Color{R: 0, G: 0, B: 1}
	}
	if v < vMin {
		v = vMin
	}
	if v > vMax {
		v = vMax
	}
	t := (v - vMin) / (vMax - vMin)
	return colorful.Color{R: t, G: t, B: 1}
}
