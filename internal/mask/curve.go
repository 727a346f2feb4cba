package mask

import (
	"math"

	"nest-selector/pkg/geometry"
)

// Curve is a connection curve leaving a mask. Target is the device name, or
// empty while the curve is still being drawn.
type Curve struct {
	Target string
	Bezier geometry.Bezier

	anchor geometry.Point2D
	radius float64
}

// MakeConnectionCurve starts a zero-length curve at the right edge of the mask
// and returns its index.
func (m *Mask) MakeConnectionCurve() int {
	b := m.Bounds()
	start := geometry.Point2D{X: b.UR.X, Y: b.Center().Y}
	m.curves = append(m.curves, Curve{
		Bezier: geometry.Bezier{Start: start, C1: start, C2: start, End: start},
		anchor: start,
	})
	return len(m.curves) - 1
}

// UpdateCurveEnd moves the free end of curve idx to end, stopping radius short
// of it on the side facing the mask.
func (m *Mask) UpdateCurveEnd(idx int, end geometry.Point2D, radius float64) {
	if idx < 0 || idx >= len(m.curves) {
		return
	}
	c := &m.curves[idx]
	c.anchor = end
	c.radius = radius
	m.layout(c)
}

// UpdateCurveEndFor moves the end of the curve attached to target.
func (m *Mask) UpdateCurveEndFor(target string, end geometry.Point2D, radius float64) {
	if idx := m.curveIndex(target); idx >= 0 {
		m.UpdateCurveEnd(idx, end, radius)
	}
}

// AttachCurve tags curve idx with target and snaps it to the device. If the
// mask already has a curve to target, idx is discarded instead and false is
// returned.
func (m *Mask) AttachCurve(idx int, target string, end geometry.Point2D, radius float64) bool {
	if idx < 0 || idx >= len(m.curves) {
		return false
	}
	if existing := m.curveIndex(target); existing >= 0 && existing != idx {
		m.DiscardCurve(idx)
		m.UpdateCurveEndFor(target, end, radius)
		return false
	}
	m.curves[idx].Target = target
	m.UpdateCurveEnd(idx, end, radius)
	return true
}

// ConnectCurve adds a finished curve to target.
func (m *Mask) ConnectCurve(target string, end geometry.Point2D, radius float64) bool {
	return m.AttachCurve(m.MakeConnectionCurve(), target, end, radius)
}

// DiscardCurve drops curve idx.
func (m *Mask) DiscardCurve(idx int) {
	if idx < 0 || idx >= len(m.curves) {
		return
	}
	m.curves = append(m.curves[:idx], m.curves[idx+1:]...)
}

// RemoveCurve drops the curve attached to target and reports whether one
// existed.
func (m *Mask) RemoveCurve(target string) bool {
	idx := m.curveIndex(target)
	if idx < 0 {
		return false
	}
	m.DiscardCurve(idx)
	return true
}

// Curves returns a copy of the curves.
func (m *Mask) Curves() []Curve {
	out := make([]Curve, len(m.curves))
	copy(out, m.curves)
	return out
}

// CurveTargets returns the device names of the attached curves.
func (m *Mask) CurveTargets() []string {
	var out []string
	for _, c := range m.curves {
		if c.Target != "" {
			out = append(out, c.Target)
		}
	}
	return out
}

// HasCurveTo reports whether a curve is attached to target.
func (m *Mask) HasCurveTo(target string) bool {
	return m.curveIndex(target) >= 0
}

func (m *Mask) curveIndex(target string) int {
	if target == "" {
		return -1
	}
	for i, c := range m.curves {
		if c.Target == target {
			return i
		}
	}
	return -1
}

func (m *Mask) relayoutCurves() {
	for i := range m.curves {
		m.layout(&m.curves[i])
	}
}

// layout leaves from the mask edge facing the anchor and ends radius short of
// the anchor, so the curve never crosses the mask and meets the device from
// the mask's side.
func (m *Mask) layout(c *Curve) {
	b := m.Bounds()
	center := b.Center()
	dir := 1.0
	start := geometry.Point2D{X: b.UR.X, Y: center.Y}
	if c.anchor.X < center.X {
		dir = -1
		start.X = b.LL.X
	}
	end := geometry.Point2D{X: c.anchor.X - dir*c.radius, Y: c.anchor.Y}
	dx := math.Abs(end.X-start.X) / 2
	c.Bezier = geometry.Bezier{
		Start: start,
		C1:    geometry.Point2D{X: start.X + dir*dx, Y: start.Y},
		C2:    geometry.Point2D{X: end.X - dir*dx, Y: end.Y},
		End:   end,
	}
}
