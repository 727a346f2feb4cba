package layer

import (
	"math"

	"nest-selector/pkg/colorutil"
	"nest-selector/pkg/geometry"

	"github.com/goki/mat32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Frame maps between scene space and the layer's native model coordinates:
// scene = (native - Center) / Extent + Offset, per axis. An axis with zero
// extent collapses onto Offset in scene space and onto Center natively.
type Frame struct {
	Offset [3]float64
	Extent [3]float64
	Center [3]float64
}

// ToNative converts a scene point into model coordinates.
func (f Frame) ToNative(p mat32.Vec3) geometry.Point3D {
	s := [3]float64{float64(p.X), float64(p.Y), float64(p.Z)}
	var out [3]float64
	for i := range s {
		out[i] = (s[i]-f.Offset[i])*f.Extent[i] + f.Center[i]
	}
	return geometry.Point3D{X: out[0], Y: out[1], Z: out[2]}
}

// ToScene converts model coordinates into scene space.
func (f Frame) ToScene(native [3]float64) mat32.Vec3 {
	var out [3]float64
	for i := range native {
		if f.Extent[i] == 0 {
			out[i] = f.Offset[i]
			continue
		}
		out[i] = (native[i]-f.Center[i])/f.Extent[i] + f.Offset[i]
	}
	return mat32.NewVec3(float32(out[0]), float32(out[1]), float32(out[2]))
}

// Layer is a named population of neurons. Positions never change after
// loading; only the per-point colors do.
type Layer struct {
	Name         string
	Elements     []string
	Positions    []mat32.Vec3
	ElementTypes []string
	BBox         mat32.Box3
	Sphere       mat32.Sphere
	Frame        Frame
	FirstID      int

	// Flat layers have every point on z=0 and are hit-tested in x/y only.
	Flat bool

	colors []colorful.Color
	// claims counts the masks selecting each point; base is the color a
	// point had before its first claim.
	claims []int
	base   []colorful.Color
}

// newLayer builds a layer from its spec, placing its center at offset.
func newLayer(spec Spec, offset [3]float64, firstID int) *Layer {
	native := make([][3]float64, len(spec.Positions))
	for i, p := range spec.Positions {
		native[i] = [3]float64{p[0], p[1], 0}
		if len(p) == 3 {
			native[i][2] = p[2]
		}
	}

	frame := Frame{Offset: offset}
	lo, hi := nativeBounds(native)
	for i := 0; i < 3; i++ {
		frame.Center[i] = (lo[i] + hi[i]) / 2
		frame.Extent[i] = hi[i] - lo[i]
		if i < len(spec.Center) {
			frame.Center[i] = spec.Center[i]
		}
		if i < len(spec.Extent) {
			frame.Extent[i] = spec.Extent[i]
		}
	}
	if frame.Extent[0] == 0 {
		frame.Extent[0] = 1
	}
	if frame.Extent[1] == 0 {
		frame.Extent[1] = 1
	}

	ly := &Layer{
		Name:         spec.Name,
		Elements:     spec.Elements,
		Positions:    make([]mat32.Vec3, len(native)),
		ElementTypes: spec.ElementTypes,
		Frame:        frame,
		FirstID:      firstID,
		Flat:         true,
	}
	ly.BBox.SetEmpty()
	for i, p := range native {
		ly.Positions[i] = frame.ToScene(p)
		ly.BBox.ExpandByPoint(ly.Positions[i])
		if ly.Positions[i].Z != 0 {
			ly.Flat = false
		}
	}
	if len(native) == 0 {
		c := frame.ToScene(frame.Center)
		ly.BBox = mat32.Box3{Min: c, Max: c}
	}
	center := ly.BBox.Center()
	ly.Sphere.SetFromPoints(ly.Positions, &center)
	ly.ResetColors()
	return ly
}

func nativeBounds(points [][3]float64) (lo, hi [3]float64) {
	if len(points) == 0 {
		return lo, hi
	}
	lo, hi = points[0], points[0]
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return lo, hi
}

// Len returns the number of points.
func (ly *Layer) Len() int {
	return len(ly.Positions)
}

// ElementCount returns the number of neuron types per position.
func (ly *Layer) ElementCount() int {
	if len(ly.Elements) == 0 {
		return 1
	}
	return len(ly.Elements)
}

// NeuronID returns the global id of point i.
func (ly *Layer) NeuronID(i int) int {
	return ly.FirstID + i
}

// Color returns the current display color of point i.
func (ly *Layer) Color(i int) colorful.Color {
	return ly.colors[i]
}

// InitialColor returns the element-type color of point i.
func (ly *Layer) InitialColor(i int) colorful.Color {
	if i < len(ly.ElementTypes) {
		return colorutil.ElementColor(ly.ElementTypes[i])
	}
	return colorutil.Other
}

// ResetColors restores every point to its element-type color and drops all
// claims.
func (ly *Layer) ResetColors() {
	if len(ly.colors) != len(ly.Positions) {
		ly.colors = make([]colorful.Color, len(ly.Positions))
		ly.base = make([]colorful.Color, len(ly.Positions))
		ly.claims = make([]int, len(ly.Positions))
	}
	for i := range ly.colors {
		ly.colors[i] = ly.InitialColor(i)
		ly.base[i] = ly.colors[i]
		ly.claims[i] = 0
	}
}

// Claim marks point i as selected by one more mask and highlights it.
func (ly *Layer) Claim(i int) {
	if ly.claims[i] == 0 {
		ly.base[i] = ly.colors[i]
	}
	ly.claims[i]++
	ly.colors[i] = colorutil.Highlight
}

// Release drops one claim on point i. The point gets its pre-selection
// color back once no mask claims it.
func (ly *Layer) Release(i int) {
	if ly.claims[i] == 0 {
		return
	}
	ly.claims[i]--
	if ly.claims[i] == 0 {
		ly.colors[i] = ly.base[i]
	}
}

// Claims returns the number of masks selecting point i.
func (ly *Layer) Claims(i int) int {
	return ly.claims[i]
}

// SetPotential recolors point i from a membrane potential.
func (ly *Layer) SetPotential(i int, vm, vMin, vMax float64) {
	ly.colors[i] = colorutil.MapVmToColor(vm, vMin, vMax)
}

// Contains reports whether p lies inside the bounding box grown by margin
// (a fraction of the box size) on every side.
func (ly *Layer) Contains(p mat32.Vec3, margin float64) bool {
	grow := ly.BBox.Size().MulScalar(float32(margin))
	box := mat32.NewBox3(ly.BBox.Min.Sub(grow), ly.BBox.Max.Add(grow))
	if ly.Flat {
		p.Z = box.Center().Z
	}
	return box.ContainsPoint(p)
}
