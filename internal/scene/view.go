// Package scene converts between screen pixels, the y-up canvas space used by
// 2D masks, and the normalized 3D scene the layers are laid out in.
package scene

import (
	"errors"
	"math"

	"nest-selector/pkg/geometry"

	"github.com/goki/mat32"
	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned by Render when the camera produces a
// non-invertible view-projection (eye on target, zero viewport, ...).
var ErrSingular = errors.New("scene: view-projection is not invertible")

// Camera is a perspective camera looking from Eye at Target.
type Camera struct {
	Eye    mat32.Vec3
	Target mat32.Vec3
	Up     mat32.Vec3
	FovY   float64 // vertical field of view in degrees
	Near   float64
	Far    float64
}

// DefaultCamera looks down the -z axis at the origin.
func DefaultCamera() Camera {
	return Camera{
		Eye:    mat32.NewVec3(0, 0, 2.5),
		Target: mat32.NewVec3(0, 0, 0),
		Up:     mat32.NewVec3(0, 1, 0),
		FovY:   45,
		Near:   0.1,
		Far:    100,
	}
}

// Viewport is the drawable area in pixels.
type Viewport struct {
	Width  float64
	Height float64
}

// View holds the camera and viewport plus the transform captured by the last
// Render. Conversions always use the captured transform, so they lag camera
// changes until the next Render.
type View struct {
	Camera   Camera
	Viewport Viewport

	viewProj *mat.Dense
	inverse  *mat.Dense
}

// NewView creates a view and renders it once.
func NewView(cam Camera, vp Viewport) (*View, error) {
	v := &View{Camera: cam, Viewport: vp}
	if err := v.Render(); err != nil {
		return nil, err
	}
	return v, nil
}

// Render captures the current camera and viewport as the transform used by
// all conversions.
func (v *View) Render() error {
	if v.Viewport.Width <= 0 || v.Viewport.Height <= 0 {
		return ErrSingular
	}
	proj := perspective(v.Camera.FovY, v.Viewport.Width/v.Viewport.Height, v.Camera.Near, v.Camera.Far)
	view, ok := lookAt(v.Camera.Eye, v.Camera.Target, v.Camera.Up)
	if !ok {
		return ErrSingular
	}

	var vp mat.Dense
	vp.Mul(proj, view)

	var inv mat.Dense
	if err := inv.Inverse(&vp); err != nil {
		return ErrSingular
	}
	v.viewProj = &vp
	v.inverse = &inv
	return nil
}

// Resize updates the viewport and re-renders.
func (v *View) Resize(width, height float64) error {
	v.Viewport = Viewport{Width: width, Height: height}
	return v.Render()
}

// Fit moves the camera along its view direction so the box fits the viewport,
// then re-renders.
func (v *View) Fit(box mat32.Box3) error {
	if box.IsEmpty() {
		return v.Render()
	}
	center := box.Center()
	size := box.Size()
	aspect := v.Viewport.Width / v.Viewport.Height
	half := math.Max(float64(size.Y)/2, float64(size.X)/2/aspect)
	dist := half / math.Tan(v.Camera.FovY*math.Pi/360) * 1.1
	dist += float64(size.Z) / 2

	v.Camera.Target = center
	v.Camera.Eye = mat32.NewVec3(center.X, center.Y, center.Z+float32(dist))
	v.Camera.Up = mat32.NewVec3(0, 1, 0)
	if v.Camera.Far < dist*4 {
		v.Camera.Far = dist * 4
	}
	return v.Render()
}

// SceneToScreen projects a scene point to screen pixels (origin top-left,
// y-down).
func (v *View) SceneToScreen(p mat32.Vec3) geometry.Point2D {
	x, y, _ := v.project(p)
	return geometry.Point2D{
		X: (x + 1) / 2 * v.Viewport.Width,
		Y: (1 - y) / 2 * v.Viewport.Height,
	}
}

// SceneToCanvas projects a scene point to canvas pixels (origin bottom-left,
// y-up).
func (v *View) SceneToCanvas(p mat32.Vec3) geometry.Point2D {
	return v.ScreenToCanvas(v.SceneToScreen(p))
}

// ScreenToScene unprojects a screen point onto the z=0 plane.
func (v *View) ScreenToScene(p geometry.Point2D) (mat32.Vec3, bool) {
	return v.ScreenToPlane(p, 0)
}

// CanvasToScene unprojects a canvas point onto the z=0 plane.
func (v *View) CanvasToScene(p geometry.Point2D) (mat32.Vec3, bool) {
	return v.ScreenToPlane(v.CanvasToScreen(p), 0)
}

// ScreenToPlane intersects the pick ray through p with the plane z = const.
// It returns false when the ray is parallel to the plane or the plane lies
// behind the near plane.
func (v *View) ScreenToPlane(p geometry.Point2D, z float64) (mat32.Vec3, bool) {
	ray := v.Ray(p)
	plane := mat32.Plane{Norm: mat32.NewVec3(0, 0, 1), Off: -float32(z)}
	// IntersectPlane never reports a miss, so test the distance directly.
	t := ray.DistToPlane(plane)
	if mat32.IsNaN(t) || mat32.IsInf(t, 0) {
		return mat32.Vec3{}, false
	}
	hit := ray.At(t)
	hit.Z = float32(z)
	return hit, true
}

// Ray returns the pick ray through screen point p, from the near plane
// toward the far plane.
func (v *View) Ray(p geometry.Point2D) mat32.Ray {
	near, far := v.unprojectRay(p)
	return mat32.Ray{Origin: near, Dir: far.Sub(near)}
}

// ScreenToCanvas flips a screen point into y-up canvas space.
func (v *View) ScreenToCanvas(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X, Y: v.Viewport.Height - p.Y}
}

// CanvasToScreen flips a canvas point back into y-down screen space.
func (v *View) CanvasToScreen(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X, Y: v.Viewport.Height - p.Y}
}

// project returns normalized device coordinates of p.
func (v *View) project(p mat32.Vec3) (x, y, z float64) {
	var clip mat.VecDense
	clip.MulVec(v.viewProj, mat.NewVecDense(4, []float64{float64(p.X), float64(p.Y), float64(p.Z), 1}))
	w := clip.AtVec(3)
	if w == 0 {
		w = 1e-12
	}
	return clip.AtVec(0) / w, clip.AtVec(1) / w, clip.AtVec(2) / w
}

// unprojectRay returns the scene points on the near and far planes under p.
func (v *View) unprojectRay(p geometry.Point2D) (near, far mat32.Vec3) {
	nx := 2*p.X/v.Viewport.Width - 1
	ny := 1 - 2*p.Y/v.Viewport.Height
	return v.unproject(nx, ny, -1), v.unproject(nx, ny, 1)
}

func (v *View) unproject(x, y, z float64) mat32.Vec3 {
	var out mat.VecDense
	out.MulVec(v.inverse, mat.NewVecDense(4, []float64{x, y, z, 1}))
	w := out.AtVec(3)
	return mat32.NewVec3(float32(out.AtVec(0)/w), float32(out.AtVec(1)/w), float32(out.AtVec(2)/w))
}

func perspective(fovY, aspect, near, far float64) *mat.Dense {
	var m mat32.Mat4
	m.SetPerspective(float32(fovY), float32(aspect), float32(near), float32(far))
	return dense(&m)
}

// dense converts a column-major mat32 matrix into a row-major gonum one.
func dense(m *mat32.Mat4) *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out.Set(r, c, float64(m[c*4+r]))
		}
	}
	return out
}

// lookAt builds the row-major world-to-camera matrix.
func lookAt(eye, target, up mat32.Vec3) (*mat.Dense, bool) {
	f := target.Sub(eye)
	s := f.Cross(up)
	if f.LengthSq() < 1e-12 || s.LengthSq() < 1e-12 {
		return nil, false
	}
	f = f.Normal()
	s = s.Normal()
	u := s.Cross(f)
	return mat.NewDense(4, 4, []float64{
		float64(s.X), float64(s.Y), float64(s.Z), -float64(s.Dot(eye)),
		float64(u.X), float64(u.Y), float64(u.Z), -float64(u.Dot(eye)),
		float64(-f.X), float64(-f.Y), float64(-f.Z), float64(f.Dot(eye)),
		0, 0, 0, 1,
	}), true
}
