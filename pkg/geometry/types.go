// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return r2.Norm(r2.Sub(p.Vec(), other.Vec()))
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Vec returns the point as a gonum vector.
func (p Point2D) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// FromVec converts a gonum vector back to a Point2D.
func FromVec(v r2.Vec) Point2D {
	return Point2D{X: v.X, Y: v.Y}
}

// Point3D is a JSON-friendly 3D point used at the service boundary.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Bounds is an axis-aligned box given by its lower-left and upper-right
// corners. Coordinates are y-up.
type Bounds struct {
	LL Point2D `json:"ll"`
	UR Point2D `json:"ur"`
}

// BoundsFromPoints returns the bounds spanned by two arbitrary corners.
func BoundsFromPoints(a, b Point2D) Bounds {
	return Bounds{
		LL: Point2D{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		UR: Point2D{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Width returns UR.X - LL.X.
func (b Bounds) Width() float64 {
	return b.UR.X - b.LL.X
}

// Height returns UR.Y - LL.Y.
func (b Bounds) Height() float64 {
	return b.UR.Y - b.LL.Y
}

// Center returns the center point of the bounds.
func (b Bounds) Center() Point2D {
	return Point2D{X: (b.LL.X + b.UR.X) / 2, Y: (b.LL.Y + b.UR.Y) / 2}
}

// Contains returns true if the point is inside the bounds (edges included).
func (b Bounds) Contains(p Point2D) bool {
	return p.X >= b.LL.X && p.X <= b.UR.X &&
		p.Y >= b.LL.Y && p.Y <= b.UR.Y
}

// Valid reports whether LL is component-wise <= UR.
func (b Bounds) Valid() bool {
	return b.LL.X <= b.UR.X && b.LL.Y <= b.UR.Y
}

// Corners returns the four corners counter-clockwise starting at LL.
func (b Bounds) Corners() []Point2D {
	return []Point2D{
		b.LL,
		{X: b.UR.X, Y: b.LL.Y},
		b.UR,
		{X: b.LL.X, Y: b.UR.Y},
	}
}

// Ellipse is an ellipse with semi-axes Major (local x) and Minor (local y),
// rotated by Angle radians around Center.
type Ellipse struct {
	Center Point2D
	Major  float64
	Minor  float64
	Angle  float64
}

// EllipseInBounds returns the unrotated ellipse inscribed in b.
func EllipseInBounds(b Bounds, angle float64) Ellipse {
	return Ellipse{
		Center: b.Center(),
		Major:  b.Width() / 2,
		Minor:  b.Height() / 2,
		Angle:  angle,
	}
}

// Contains rotates p into the ellipse frame by -Angle and tests the
// normalized squared distance against 1.
func (e Ellipse) Contains(p Point2D) bool {
	if e.Major <= 0 || e.Minor <= 0 {
		return false
	}
	rot := r2.NewRotation(-e.Angle, r2.Vec{})
	local := rot.Rotate(r2.Sub(p.Vec(), e.Center.Vec()))
	dx := local.X / e.Major
	dy := local.Y / e.Minor
	return dx*dx+dy*dy <= 1
}

// AxisEnds returns the two ends of the major axis.
func (e Ellipse) AxisEnds() (Point2D, Point2D) {
	d := Point2D{X: e.Major * math.Cos(e.Angle), Y: e.Major * math.Sin(e.Angle)}
	return e.Center.Add(d), e.Center.Sub(d)
}

// Outline returns n points on the ellipse boundary.
func (e Ellipse) Outline(n int) []Point2D {
	rot := r2.NewRotation(e.Angle, r2.Vec{})
	points := make([]Point2D, n)
	for i := 0; i < n; i++ {
		t := float64(i) * 2.0 * math.Pi / float64(n)
		local := r2.Vec{X: e.Major * math.Cos(t), Y: e.Minor * math.Sin(t)}
		points[i] = FromVec(r2.Add(e.Center.Vec(), rot.Rotate(local)))
	}
	return points
}

// Bezier is a cubic Bézier segment.
type Bezier struct {
	Start Point2D `json:"start"`
	C1    Point2D `json:"c1"`
	C2    Point2D `json:"c2"`
	End   Point2D `json:"end"`
}

// At evaluates the curve at t in [0,1].
func (b Bezier) At(t float64) Point2D {
	u := 1 - t
	a := u * u * u
	c1 := 3 * u * u * t
	c2 := 3 * u * t * t
	d := t * t * t
	return Point2D{
		X: a*b.Start.X + c1*b.C1.X + c2*b.C2.X + d*b.End.X,
		Y: a*b.Start.Y + c1*b.C1.Y + c2*b.C2.Y + d*b.End.Y,
	}
}

// Sample returns n+1 points evenly spaced in t.
func (b Bezier) Sample(n int) []Point2D {
	points := make([]Point2D, n+1)
	for i := 0; i <= n; i++ {
		points[i] = b.At(float64(i) / float64(n))
	}
	return points
}

// Size represents a 2D size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}
