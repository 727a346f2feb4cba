package mask

import (
	"errors"
	"math"
	"sort"

	"nest-selector/internal/layer"
	"nest-selector/internal/scene"
	"nest-selector/pkg/geometry"

	"github.com/goki/mat32"
)

// ErrNoLayer is returned when a mask's geometry does not land on any layer.
var ErrNoLayer = errors.New("mask: no layer hit")

// Env is what a mask needs from its session.
type Env struct {
	View   *scene.View
	Layers *layer.Registry
	// OnCount, if set, is called with the number of selected points after
	// every membership change.
	OnCount func(m *Mask, n int)
}

// Meta is the externally chosen connection metadata of a mask.
type Meta struct {
	NeuronType string
	SynModel   string
}

// region is implemented by each mask variant.
type region interface {
	shape() Shape
	// member reports whether a layer point (scene space) is selected.
	member(env *Env, p mat32.Vec3) bool
	// hit reports whether a canvas point falls on the region.
	hit(env *Env, p geometry.Point2D) bool
	handles(env *Env) []HandlePoint
	resize(env *Env, h Handle, p geometry.Point2D)
	flip(h *Handle) bool
	canvasBounds(env *Env) geometry.Bounds
	outline(env *Env) []geometry.Point2D
	native(env *Env, ly *layer.Layer) (ll, ur geometry.Point3D, err error)
	stored() (ll, ur geometry.Point3D)
}

// Mask is a selection region over one layer.
type Mask struct {
	ID int
	Meta

	env     *Env
	layer   *layer.Layer
	region  region
	state   State
	deleted bool

	selected map[int]struct{}
	curves   []Curve
}

// New builds a mask from canvas bounds. Planar shapes keep the bounds as
// they are; boxes unproject them onto z=0 and take their depth from the
// layer. The owning layer is resolved from the center, then the corners.
func New(env *Env, id int, shape Shape, bounds geometry.Bounds, meta Meta) (*Mask, error) {
	ly := resolveLayer(env, bounds)
	if ly == nil {
		return nil, ErrNoLayer
	}

	var r region
	switch shape {
	case Rectangular, Elliptical:
		r = &planar{elliptical: shape == Elliptical, bounds: bounds}
	case Box:
		b, err := boxFromCanvas(env, ly, bounds)
		if err != nil {
			return nil, err
		}
		r = b
	default:
		return nil, errors.New("mask: unsupported shape " + shape.String())
	}
	return newMask(env, id, ly, r, meta), nil
}

func newMask(env *Env, id int, ly *layer.Layer, r region, meta Meta) *Mask {
	m := &Mask{
		ID:       id,
		Meta:     meta,
		env:      env,
		layer:    ly,
		region:   r,
		selected: make(map[int]struct{}),
	}
	m.RecomputeMembership()
	return m
}

func resolveLayer(env *Env, b geometry.Bounds) *layer.Layer {
	for _, p := range []geometry.Point2D{b.Center(), b.LL, b.UR} {
		s, ok := env.View.CanvasToScene(p)
		if !ok {
			continue
		}
		if ly := env.Layers.LayerAt(s); ly != nil {
			return ly
		}
	}
	return nil
}

// Shape returns the variant tag.
func (m *Mask) Shape() Shape {
	return m.region.shape()
}

// Layer returns the owning layer.
func (m *Mask) Layer() *layer.Layer {
	return m.layer
}

// LayerName returns the owning layer's name.
func (m *Mask) LayerName() string {
	if m.layer == nil {
		return ""
	}
	return m.layer.Name
}

// Deleted reports whether Delete has been called.
func (m *Mask) Deleted() bool {
	return m.deleted
}

// Bounds returns the canvas-space bounding box of the mask.
func (m *Mask) Bounds() geometry.Bounds {
	return m.region.canvasBounds(m.env)
}

// PlanarBounds returns the stored canvas bounds of a planar mask.
func (m *Mask) PlanarBounds() (geometry.Bounds, bool) {
	p, ok := m.region.(*planar)
	if !ok {
		return geometry.Bounds{}, false
	}
	return p.bounds, true
}

// Box returns the scene-space box of a 3D mask.
func (m *Mask) Box() (mat32.Box3, bool) {
	b, ok := m.region.(*box)
	if !ok {
		return mat32.Box3{}, false
	}
	return b.b, true
}

// Ellipse returns the ellipse of an elliptical mask.
func (m *Mask) Ellipse() (geometry.Ellipse, bool) {
	p, ok := m.region.(*planar)
	if !ok || !p.elliptical {
		return geometry.Ellipse{}, false
	}
	return p.ellipse(), true
}

// Angle returns the rotation angle in radians; zero for non-elliptical masks.
func (m *Mask) Angle() float64 {
	if p, ok := m.region.(*planar); ok && p.elliptical {
		return p.angle
	}
	return 0
}

// ContainsPoint reports whether a scene-space point satisfies the shape's
// membership predicate.
func (m *Mask) ContainsPoint(p mat32.Vec3) bool {
	return m.region.member(m.env, p)
}

// HitTest reports whether a canvas point lies on the mask.
func (m *Mask) HitTest(p geometry.Point2D) bool {
	return m.region.hit(m.env, p)
}

// RecomputeMembership rescans the owning layer. New members are claimed and
// highlighted; points that left are released and take their pre-selection
// color again unless another mask still claims them.
func (m *Mask) RecomputeMembership() {
	if m.deleted || m.layer == nil {
		return
	}
	now := make(map[int]struct{})
	for i, p := range m.layer.Positions {
		if m.region.member(m.env, p) {
			now[i] = struct{}{}
		}
	}
	for i := range m.selected {
		if _, still := now[i]; !still {
			m.layer.Release(i)
		}
	}
	for i := range now {
		if _, had := m.selected[i]; !had {
			m.layer.Claim(i)
		}
	}
	m.selected = now
	m.reportCount()
}

func (m *Mask) reportCount() {
	if m.env != nil && m.env.OnCount != nil {
		m.env.OnCount(m, len(m.selected))
	}
}

// SelectedPointIDs returns the selected point indices in ascending order.
func (m *Mask) SelectedPointIDs() []int {
	ids := make([]int, 0, len(m.selected))
	for i := range m.selected {
		ids = append(ids, i)
	}
	sort.Ints(ids)
	return ids
}

// NSelected returns the number of selected points.
func (m *Mask) NSelected() int {
	return len(m.selected)
}

// Resize moves the bound components that handle h controls to canvas point p
// and then runs CheckFlip, so h may be relabelled on return.
func (m *Mask) Resize(h *Handle, p geometry.Point2D) {
	if m.deleted {
		return
	}
	m.region.resize(m.env, *h, p)
	m.CheckFlip(h)
	m.relayoutCurves()
}

// CheckFlip restores ll <= ur after a resize crossed an edge. The handle is
// relabelled to the side it now sits on. It reports whether anything flipped.
func (m *Mask) CheckFlip(h *Handle) bool {
	return m.region.flip(h)
}

// Rotate points an elliptical mask's major axis at canvas point p. Axis
// lengths stay the same. It reports false for other shapes.
func (m *Mask) Rotate(p geometry.Point2D) bool {
	pl, ok := m.region.(*planar)
	if !ok || !pl.elliptical || m.deleted {
		return false
	}
	c := pl.bounds.Center()
	pl.angle = math.Atan2(p.Y-c.Y, p.X-c.X)
	m.relayoutCurves()
	return true
}

// State returns the focus state.
func (m *Mask) State() State {
	return m.state
}

// Focus advances the focus state: a fresh mask shows its resize handles, an
// ellipse focused again switches between resize and rotate handles.
func (m *Mask) Focus() State {
	switch m.state {
	case Fresh:
		m.state = ShowResize
	case ShowResize:
		if m.Shape() == Elliptical {
			m.state = ShowRotate
		}
	case ShowRotate:
		m.state = ShowResize
	}
	return m.state
}

// Blur hides the handles and resets the focus state.
func (m *Mask) Blur() {
	m.state = Fresh
}

// Handles returns the resize handles when they are shown.
func (m *Mask) Handles() []HandlePoint {
	if m.state != ShowResize || m.deleted {
		return nil
	}
	return m.region.handles(m.env)
}

// RotateHandles returns the rotate handles when they are shown.
func (m *Mask) RotateHandles() []geometry.Point2D {
	e, ok := m.Ellipse()
	if !ok || m.state != ShowRotate || m.deleted {
		return nil
	}
	a, b := e.AxisEnds()
	return []geometry.Point2D{a, b}
}

// HandleAt returns the shown resize handle within radius of p.
func (m *Mask) HandleAt(p geometry.Point2D, radius float64) (Handle, bool) {
	return pick(m.Handles(), p, radius)
}

// RotateHandleAt reports whether a shown rotate handle is within radius of p.
func (m *Mask) RotateHandleAt(p geometry.Point2D, radius float64) bool {
	for _, hp := range m.RotateHandles() {
		if hp.Distance(p) <= radius {
			return true
		}
	}
	return false
}

// Outline returns the border polyline in canvas space.
func (m *Mask) Outline() []geometry.Point2D {
	return m.region.outline(m.env)
}

// Delete releases every member point, drops the curves and handles and marks
// the mask deleted. Callers must also disconnect it from any device.
func (m *Mask) Delete() {
	if m.deleted {
		return
	}
	for i := range m.selected {
		m.layer.Release(i)
	}
	m.selected = make(map[int]struct{})
	m.curves = nil
	m.state = Fresh
	m.reportCount()
	m.deleted = true
}
