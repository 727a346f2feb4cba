package mask

import (
	"nest-selector/pkg/geometry"
)

// Side selects the low bound, the midpoint or the high bound along one axis.
type Side int

const (
	Low Side = iota
	Mid
	High
)

// Opposite swaps Low and High; Mid stays Mid.
func (s Side) Opposite() Side {
	switch s {
	case Low:
		return High
	case High:
		return Low
	}
	return Mid
}

func (s Side) letter() byte {
	switch s {
	case Low:
		return 'l'
	case High:
		return 'u'
	}
	return 'm'
}

// Handle names a resize handle by the side it sits on along each axis.
// Planar masks ignore Z and have the eight X/Y combinations except Mid/Mid;
// boxes have the eight Low/High corners.
type Handle struct {
	X, Y, Z Side
}

// String returns the planar handle name, e.g. "lu" for the top-left corner.
func (h Handle) String() string {
	return string([]byte{h.X.letter(), h.Y.letter()})
}

// CornerName returns the three-letter box corner name, "lll" through "uuu".
func (h Handle) CornerName() string {
	return string([]byte{h.X.letter(), h.Y.letter(), h.Z.letter()})
}

// planarHandles lists the eight planar resize handles.
var planarHandles = []Handle{
	{X: Low, Y: Low}, {X: Mid, Y: Low}, {X: High, Y: Low},
	{X: Low, Y: Mid}, {X: High, Y: Mid},
	{X: Low, Y: High}, {X: Mid, Y: High}, {X: High, Y: High},
}

// boxHandles lists the eight box corners.
var boxHandles = []Handle{
	{X: Low, Y: Low, Z: Low}, {X: Low, Y: Low, Z: High},
	{X: Low, Y: High, Z: Low}, {X: High, Y: Low, Z: Low},
	{X: Low, Y: High, Z: High}, {X: High, Y: Low, Z: High},
	{X: High, Y: High, Z: Low}, {X: High, Y: High, Z: High},
}

// HandlePoint is a handle and its canvas position.
type HandlePoint struct {
	Handle Handle
	Pos    geometry.Point2D
}

// pick returns the handle nearest to p within radius.
func pick(points []HandlePoint, p geometry.Point2D, radius float64) (Handle, bool) {
	best := -1
	bestDist := radius
	for i, hp := range points {
		if d := hp.Pos.Distance(p); d <= bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return Handle{}, false
	}
	return points[best].Handle, true
}

func sideCoord(s Side, lo, hi float64) float64 {
	switch s {
	case Low:
		return lo
	case High:
		return hi
	}
	return (lo + hi) / 2
}
