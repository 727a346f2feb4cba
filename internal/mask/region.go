package mask

import (
	"errors"
	"math"

	"nest-selector/internal/layer"
	"nest-selector/pkg/geometry"

	"github.com/goki/mat32"
)

// outlineSegments is the number of points used for an ellipse outline.
const outlineSegments = 64

// flatDepth is the half-depth given to a box drawn over a flat layer.
const flatDepth = 0.1

var errUnproject = errors.New("mask: point does not unproject onto the scene plane")

// planar is a rectangle or an ellipse in canvas space.
type planar struct {
	elliptical bool
	bounds     geometry.Bounds
	angle      float64
}

func (p *planar) shape() Shape {
	if p.elliptical {
		return Elliptical
	}
	return Rectangular
}

func (p *planar) ellipse() geometry.Ellipse {
	return geometry.EllipseInBounds(p.bounds, p.angle)
}

func (p *planar) contains(c geometry.Point2D) bool {
	if p.elliptical {
		return p.ellipse().Contains(c)
	}
	return p.bounds.Contains(c)
}

func (p *planar) member(env *Env, pt mat32.Vec3) bool {
	return p.contains(env.View.SceneToCanvas(pt))
}

func (p *planar) hit(env *Env, c geometry.Point2D) bool {
	return p.contains(c)
}

func (p *planar) handles(env *Env) []HandlePoint {
	out := make([]HandlePoint, len(planarHandles))
	for i, h := range planarHandles {
		out[i] = HandlePoint{Handle: h, Pos: geometry.Point2D{
			X: sideCoord(h.X, p.bounds.LL.X, p.bounds.UR.X),
			Y: sideCoord(h.Y, p.bounds.LL.Y, p.bounds.UR.Y),
		}}
	}
	return out
}

func (p *planar) resize(env *Env, h Handle, c geometry.Point2D) {
	switch h.X {
	case Low:
		p.bounds.LL.X = c.X
	case High:
		p.bounds.UR.X = c.X
	}
	switch h.Y {
	case Low:
		p.bounds.LL.Y = c.Y
	case High:
		p.bounds.UR.Y = c.Y
	}
}

func (p *planar) flip(h *Handle) bool {
	flipped := false
	if p.bounds.LL.X > p.bounds.UR.X {
		p.bounds.LL.X, p.bounds.UR.X = p.bounds.UR.X, p.bounds.LL.X
		h.X = h.X.Opposite()
		flipped = true
	}
	if p.bounds.LL.Y > p.bounds.UR.Y {
		p.bounds.LL.Y, p.bounds.UR.Y = p.bounds.UR.Y, p.bounds.LL.Y
		h.Y = h.Y.Opposite()
		flipped = true
	}
	return flipped
}

func (p *planar) canvasBounds(env *Env) geometry.Bounds {
	if p.elliptical && p.angle != 0 {
		return aabb(p.ellipse().Outline(outlineSegments))
	}
	return p.bounds
}

func (p *planar) outline(env *Env) []geometry.Point2D {
	if p.elliptical {
		return p.ellipse().Outline(outlineSegments)
	}
	return p.bounds.Corners()
}

func (p *planar) native(env *Env, ly *layer.Layer) (geometry.Point3D, geometry.Point3D, error) {
	a, ok := env.View.CanvasToScene(p.bounds.LL)
	if !ok {
		return geometry.Point3D{}, geometry.Point3D{}, errUnproject
	}
	b, ok := env.View.CanvasToScene(p.bounds.UR)
	if !ok {
		return geometry.Point3D{}, geometry.Point3D{}, errUnproject
	}
	ll, ur := minMax(ly.Frame.ToNative(a), ly.Frame.ToNative(b))
	return ll, ur, nil
}

func (p *planar) stored() (geometry.Point3D, geometry.Point3D) {
	return geometry.Point3D{X: p.bounds.LL.X, Y: p.bounds.LL.Y},
		geometry.Point3D{X: p.bounds.UR.X, Y: p.bounds.UR.Y}
}

// box is an axis-aligned box in scene space.
type box struct {
	b mat32.Box3
}

// boxFromCanvas unprojects drawn canvas bounds onto z=0 and spans the layer's
// depth, or a thin slab around it when the layer is flat.
func boxFromCanvas(env *Env, ly *layer.Layer, bounds geometry.Bounds) (*box, error) {
	a, ok := env.View.CanvasToScene(bounds.LL)
	if !ok {
		return nil, errUnproject
	}
	c, ok := env.View.CanvasToScene(bounds.UR)
	if !ok {
		return nil, errUnproject
	}
	zlo, zhi := ly.BBox.Min.Z, ly.BBox.Max.Z
	if zhi-zlo < 1e-6 {
		zlo -= flatDepth
		zhi += flatDepth
	}
	return &box{b: mat32.Box3{
		Min: mat32.NewVec3(mat32.Min(a.X, c.X), mat32.Min(a.Y, c.Y), zlo),
		Max: mat32.NewVec3(mat32.Max(a.X, c.X), mat32.Max(a.Y, c.Y), zhi),
	}}, nil
}

func (b *box) shape() Shape {
	return Box
}

func (b *box) member(env *Env, p mat32.Vec3) bool {
	return b.b.ContainsPoint(p)
}

func (b *box) hit(env *Env, c geometry.Point2D) bool {
	ray := env.View.Ray(env.View.CanvasToScreen(c))
	return ray.IntersectsBox(b.b)
}

func (b *box) corner(h Handle) mat32.Vec3 {
	return mat32.NewVec3(
		float32(sideCoord(h.X, float64(b.b.Min.X), float64(b.b.Max.X))),
		float32(sideCoord(h.Y, float64(b.b.Min.Y), float64(b.b.Max.Y))),
		float32(sideCoord(h.Z, float64(b.b.Min.Z), float64(b.b.Max.Z))),
	)
}

func (b *box) handles(env *Env) []HandlePoint {
	out := make([]HandlePoint, len(boxHandles))
	for i, h := range boxHandles {
		out[i] = HandlePoint{Handle: h, Pos: env.View.SceneToCanvas(b.corner(h))}
	}
	return out
}

func (b *box) projectedCorners(env *Env) []geometry.Point2D {
	out := make([]geometry.Point2D, len(boxHandles))
	for i, h := range boxHandles {
		out[i] = env.View.SceneToCanvas(b.corner(h))
	}
	return out
}

// resize drags a corner within the plane of its own z.
func (b *box) resize(env *Env, h Handle, c geometry.Point2D) {
	z := sideCoord(h.Z, float64(b.b.Min.Z), float64(b.b.Max.Z))
	p, ok := env.View.ScreenToPlane(env.View.CanvasToScreen(c), z)
	if !ok {
		return
	}
	switch h.X {
	case Low:
		b.b.Min.X = p.X
	case High:
		b.b.Max.X = p.X
	}
	switch h.Y {
	case Low:
		b.b.Min.Y = p.Y
	case High:
		b.b.Max.Y = p.Y
	}
}

func (b *box) flip(h *Handle) bool {
	flipped := false
	if b.b.Min.X > b.b.Max.X {
		b.b.Min.X, b.b.Max.X = b.b.Max.X, b.b.Min.X
		h.X = h.X.Opposite()
		flipped = true
	}
	if b.b.Min.Y > b.b.Max.Y {
		b.b.Min.Y, b.b.Max.Y = b.b.Max.Y, b.b.Min.Y
		h.Y = h.Y.Opposite()
		flipped = true
	}
	if b.b.Min.Z > b.b.Max.Z {
		b.b.Min.Z, b.b.Max.Z = b.b.Max.Z, b.b.Min.Z
		h.Z = h.Z.Opposite()
		flipped = true
	}
	return flipped
}

func (b *box) canvasBounds(env *Env) geometry.Bounds {
	return aabb(b.projectedCorners(env))
}

func (b *box) outline(env *Env) []geometry.Point2D {
	return geometry.ConvexHull(b.projectedCorners(env))
}

func (b *box) native(env *Env, ly *layer.Layer) (geometry.Point3D, geometry.Point3D, error) {
	ll, ur := minMax(ly.Frame.ToNative(b.b.Min), ly.Frame.ToNative(b.b.Max))
	return ll, ur, nil
}

func (b *box) stored() (geometry.Point3D, geometry.Point3D) {
	return point3(b.b.Min), point3(b.b.Max)
}

func point3(v mat32.Vec3) geometry.Point3D {
	return geometry.Point3D{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func vec3(p geometry.Point3D) mat32.Vec3 {
	return mat32.NewVec3(float32(p.X), float32(p.Y), float32(p.Z))
}

func minMax(a, b geometry.Point3D) (geometry.Point3D, geometry.Point3D) {
	return geometry.Point3D{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)},
		geometry.Point3D{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

func aabb(points []geometry.Point2D) geometry.Bounds {
	if len(points) == 0 {
		return geometry.Bounds{}
	}
	b := geometry.Bounds{LL: points[0], UR: points[0]}
	for _, p := range points[1:] {
		b.LL.X = math.Min(b.LL.X, p.X)
		b.LL.Y = math.Min(b.LL.Y, p.Y)
		b.UR.X = math.Max(b.UR.X, p.X)
		b.UR.Y = math.Max(b.UR.Y, p.Y)
	}
	return b
}
