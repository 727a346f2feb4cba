package controls

import (
	"math"
	"testing"

	"nest-selector/internal/device"
	"nest-selector/internal/layer"
	"nest-selector/internal/mask"
	"nest-selector/internal/scene"
	"nest-selector/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/goki/mat32"
)

type workspace struct {
	view    *scene.View
	env     *mask.Env
	masks   []*mask.Mask
	devices *device.Registry
	is3D    bool
	nextID  int

	focused   *mask.Mask
	focusedDv *device.Device
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	spec := layer.Spec{Name: "L", Extent: []float64{1, 1}, Center: []float64{0, 0}}
	for i := 0; i < 11; i++ {
		for j := 0; j < 11; j++ {
			spec.Positions = append(spec.Positions, []float64{-0.5 + float64(i)/10, -0.5 + float64(j)/10})
		}
	}
	reg := layer.NewRegistry()
	if _, err := reg.Load(&layer.Model{Layers: []layer.Spec{spec}}); err != nil {
		t.Fatal(err)
	}
	view, err := scene.NewView(scene.DefaultCamera(), scene.Viewport{Width: 800, Height: 600})
	if err != nil {
		t.Fatal(err)
	}
	return &workspace{
		view:    view,
		env:     &mask.Env{View: view, Layers: reg},
		devices: device.NewRegistry(geometry.Point2D{X: 740, Y: 300}),
		nextID:  1,
	}
}

func (w *workspace) View() *scene.View { return w.view }
func (w *workspace) Masks() []*mask.Mask { return w.masks }
func (w *workspace) Devices() *device.Registry { return w.devices }
func (w *workspace) Is3D() bool { return w.is3D }
func (w *workspace) FocusedMask() *mask.Mask { return w.focused }
func (w *workspace) FocusedDevice() *device.Device { return w.focusedDv }
func (w *workspace) FocusDevice(d *device.Device) { w.focusedDv = d }

func (w *workspace) CreateMask(b geometry.Bounds) (*mask.Mask, error) {
	m, err := mask.New(w.env, w.nextID, mask.Rectangular, b, mask.Meta{})
	if err != nil {
		return nil, err
	}
	w.nextID++
	w.masks = append(w.masks, m)
	return m, nil
}

func (w *workspace) FocusMask(m *mask.Mask) {
	if w.focused != nil && w.focused != m {
		w.focused.Blur()
	}
	w.focused = m
	if m != nil {
		m.Focus()
	}
}

func (w *workspace) DeleteMask(m *mask.Mask) {
	m.Delete()
	w.devices.DropMask(m)
	for i, x := range w.masks {
		if x == m {
			w.masks = append(w.masks[:i], w.masks[i+1:]...)
			break
		}
	}
	if w.focused == m {
		w.focused = nil
	}
}

func (w *workspace) DeleteDevice(name string) {
	w.devices.Remove(name)
	if w.focusedDv != nil && w.focusedDv.Name == name {
		w.focusedDv = nil
	}
}

func (w *workspace) Connect(name string, m *mask.Mask) {
	w.devices.Connect(name, m)
}

type orbiter struct {
	enabled bool
	calls   int
}

func (o *orbiter) SetEnabled(e bool) {
	o.enabled = e
	o.calls++
}

// screen returns a mouse event at the screen position of canvas point p.
func screen(w *workspace, p geometry.Point2D, mod fyne.KeyModifier) *desktop.MouseEvent {
	s := w.view.CanvasToScreen(p)
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(float32(s.X), float32(s.Y))},
		Button:     desktop.MouseButtonPrimary,
		Modifier:   mod,
	}
}

func drag(c *Controls, w *workspace, from, to geometry.Point2D, mod fyne.KeyModifier) {
	c.MouseDown(screen(w, from, mod))
	mid := from.Add(to).Scale(0.5)
	c.MouseMoved(screen(w, mid, mod))
	c.MouseMoved(screen(w, to, mod))
	c.MouseUp(screen(w, to, mod))
}

func center(w *workspace) geometry.Point2D {
	return w.view.SceneToCanvas(mat32.NewVec3(0, 0, 0))
}

func TestDrawCreatesMask(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	o := center(w)

	c.MouseDown(screen(w, o.Sub(geometry.Point2D{X: 50, Y: 50}), 0))
	c.MouseMoved(screen(w, o, 0))
	if b, ok := c.Marquee(); !ok || math.Abs(b.Width()-50) > 1e-2 {
		t.Errorf("marquee = %+v %v", b, ok)
	}
	c.MouseUp(screen(w, o.Add(geometry.Point2D{X: 50, Y: 50}), 0))

	if len(w.masks) != 1 {
		t.Fatalf("expected one mask, got %d", len(w.masks))
	}
	if w.masks[0].ID != 1 || w.masks[0].NSelected() == 0 {
		t.Errorf("mask %d selected %d", w.masks[0].ID, w.masks[0].NSelected())
	}
	if c.Mode() != ModeIdle {
		t.Errorf("mode after release = %v", c.Mode())
	}
}

func TestDrawOffLayerIsSilent(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	drag(c, w, geometry.Point2D{X: 5, Y: 5}, geometry.Point2D{X: 60, Y: 60}, 0)
	if len(w.masks) != 0 || w.nextID != 1 {
		t.Errorf("miss registered a mask or consumed an id")
	}
	if c.Mode() != ModeIdle {
		t.Errorf("mode after release = %v", c.Mode())
	}
}

func TestTinyDragDoesNotCreateMask(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	o := center(w)
	drag(c, w, o, o.Add(geometry.Point2D{X: 1, Y: 40}), 0)
	if len(w.masks) != 0 {
		t.Errorf("sub-threshold drag created a mask")
	}
}

func TestResizeThroughHandleFlips(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	o := center(w)
	m, err := w.CreateMask(geometry.Bounds{LL: o.Sub(geometry.Point2D{X: 40, Y: 40}), UR: o.Add(geometry.Point2D{X: 40, Y: 40})})
	if err != nil {
		t.Fatal(err)
	}
	w.FocusMask(m)

	b, _ := m.PlanarBounds()
	rightMid := geometry.Point2D{X: b.UR.X, Y: b.Center().Y}
	target := geometry.Point2D{X: b.LL.X - 60, Y: b.Center().Y}
	c.MouseDown(screen(w, rightMid, 0))
	if c.Mode() != ModeResize {
		t.Fatalf("press on a handle should resize, got %v", c.Mode())
	}
	c.MouseMoved(screen(w, target, 0))
	c.MouseUp(screen(w, target, 0))

	nb, _ := m.PlanarBounds()
	if !nb.Valid() {
		t.Fatalf("bounds inverted: %+v", nb)
	}
	if nb.LL.X > target.X+1e-3 || nb.UR.X < b.LL.X-1e-3 {
		t.Errorf("bounds after flip = %+v", nb)
	}
	if len(w.masks) != 1 {
		t.Errorf("resize created a mask")
	}
}

func TestRotateHandle(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	o := center(w)
	m, err := mask.New(w.env, 1, mask.Elliptical, geometry.Bounds{LL: o.Sub(geometry.Point2D{X: 60, Y: 30}), UR: o.Add(geometry.Point2D{X: 60, Y: 30})}, mask.Meta{})
	if err != nil {
		t.Fatal(err)
	}
	w.masks = append(w.masks, m)
	w.FocusMask(m)
	w.FocusMask(m)
	if m.State() != mask.ShowRotate {
		t.Fatalf("state = %v", m.State())
	}

	c.MouseDown(screen(w, o.Add(geometry.Point2D{X: 60}), 0))
	if c.Mode() != ModeRotate {
		t.Fatalf("press on the axis end should rotate, got %v", c.Mode())
	}
	up := o.Add(geometry.Point2D{Y: 80})
	c.MouseMoved(screen(w, up, 0))
	c.MouseUp(screen(w, up, 0))
	if a := m.Angle(); a < 1.5 || a > 1.65 {
		t.Errorf("angle = %v, want about pi/2", a)
	}
}

func TestConnectToDevice(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	o := center(w)
	m, _ := w.CreateMask(geometry.Bounds{LL: o.Sub(geometry.Point2D{X: 40, Y: 40}), UR: o.Add(geometry.Point2D{X: 40, Y: 40})})
	d := w.devices.Place("poisson_generator", nil)

	drag(c, w, o, d.Position, 0)
	if len(d.Connectees) != 1 || !m.HasCurveTo(d.Name) || len(m.Curves()) != 1 {
		t.Fatalf("connection not registered: %d connectees, %d curves", len(d.Connectees), len(m.Curves()))
	}
	if w.focused != m {
		t.Errorf("pressing a mask should focus it")
	}

	// Connecting again is a no-op on both sides.
	drag(c, w, o, d.Position, 0)
	if len(d.Connectees) != 1 || len(m.Curves()) != 1 {
		t.Errorf("duplicate connection: %d connectees, %d curves", len(d.Connectees), len(m.Curves()))
	}

	// Releasing over nothing discards the curve.
	drag(c, w, o, geometry.Point2D{X: 780, Y: 20}, 0)
	if len(m.Curves()) != 1 {
		t.Errorf("dangling curve kept: %d", len(m.Curves()))
	}
	if len(w.masks) != 1 {
		t.Errorf("connect gesture created a mask")
	}
}

func TestDragDeviceSuspendsOrbitIn3D(t *testing.T) {
	w := newWorkspace(t)
	w.is3D = true
	orb := &orbiter{enabled: true}
	c := New(w, orb, DefaultOptions())
	o := center(w)
	m, _ := w.CreateMask(geometry.Bounds{LL: o.Sub(geometry.Point2D{X: 40, Y: 40}), UR: o.Add(geometry.Point2D{X: 40, Y: 40})})
	d := w.devices.Place("dc_generator", nil)
	w.devices.Connect(d.Name, m)

	from := d.Position
	to := geometry.Point2D{X: 100, Y: 500}
	c.KeyDown(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	c.MouseDown(screen(w, from, 0))
	if c.Mode() != ModeDragDevice || orb.enabled {
		t.Fatalf("mode %v, orbit enabled %v", c.Mode(), orb.enabled)
	}
	c.MouseMoved(screen(w, to, 0))
	c.MouseUp(screen(w, to, 0))
	c.KeyUp(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})

	if !orb.enabled || orb.calls != 2 {
		t.Errorf("orbit not restored: enabled %v after %d calls", orb.enabled, orb.calls)
	}
	if d.Position.Distance(to) > 1e-3 {
		t.Errorf("device at %v, want %v", d.Position, to)
	}
	// The device moved left of the mask, so its curve leaves from the left edge.
	b, _ := m.PlanarBounds()
	if m.Curves()[0].Bezier.Start.X != b.LL.X {
		t.Errorf("curve did not follow the device")
	}
	if c.DragArmed() {
		t.Errorf("drag still armed after key up")
	}
}

func TestShiftModifierArmsDrag(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	d := w.devices.Place("voltmeter", nil)
	c.MouseDown(screen(w, d.Position, fyne.KeyModifierShift))
	if c.Mode() != ModeDragDevice {
		t.Errorf("shift press on a device should drag, got %v", c.Mode())
	}
	c.MouseUp(screen(w, d.Position, fyne.KeyModifierShift))
	if c.Mode() != ModeIdle {
		t.Errorf("mode after release = %v", c.Mode())
	}
}

func TestDeleteKeyPrefersMask(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	o := center(w)
	m, _ := w.CreateMask(geometry.Bounds{LL: o.Sub(geometry.Point2D{X: 40, Y: 40}), UR: o.Add(geometry.Point2D{X: 40, Y: 40})})
	d := w.devices.Place("dc_generator", nil)
	w.devices.Connect(d.Name, m)

	// A plain click on the device focuses it without starting a gesture.
	c.MouseDown(screen(w, d.Position, 0))
	if c.Mode() != ModeIdle || w.focusedDv != d {
		t.Fatalf("device click: mode %v focused %v", c.Mode(), w.focusedDv)
	}
	c.MouseUp(screen(w, d.Position, 0))
	w.FocusMask(m)

	c.KeyDown(&fyne.KeyEvent{Name: fyne.KeyDelete})
	if len(w.masks) != 0 || !m.Deleted() {
		t.Fatalf("focused mask not deleted")
	}
	if len(d.Connectees) != 0 || w.devices.Get(d.Name) == nil {
		t.Errorf("mask delete should only drop the connection")
	}

	c.KeyDown(&fyne.KeyEvent{Name: fyne.KeyDelete})
	if w.devices.Count() != 0 {
		t.Errorf("second delete should remove the focused device")
	}
}

func TestSecondaryButtonIgnored(t *testing.T) {
	w := newWorkspace(t)
	c := New(w, nil, DefaultOptions())
	ev := screen(w, center(w), 0)
	ev.Button = desktop.MouseButtonSecondary
	c.MouseDown(ev)
	if c.Mode() != ModeIdle {
		t.Errorf("secondary button started %v", c.Mode())
	}
}
