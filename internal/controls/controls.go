// Package controls turns pointer and keyboard events into mask and device
// operations. Exactly one interaction mode is active at a time and every
// pointer release returns to idle.
package controls

import (
	"math"

	"nest-selector/internal/device"
	"nest-selector/internal/mask"
	"nest-selector/internal/scene"
	"nest-selector/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Mode is the current interaction mode.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDraw
	ModeResize
	ModeRotate
	ModeConnect
	ModeDragDevice
)

var modeNames = []string{"idle", "draw", "resize", "rotate", "connect", "drag-device"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Workspace is the session state the controls operate on.
type Workspace interface {
	View() *scene.View
	Masks() []*mask.Mask
	Devices() *device.Registry
	Is3D() bool

	// CreateMask builds and registers a mask from canvas bounds. A miss is
	// reported as an error and registers nothing.
	CreateMask(bounds geometry.Bounds) (*mask.Mask, error)
	FocusedMask() *mask.Mask
	// FocusMask focuses m, or clears the mask focus when m is nil.
	FocusMask(m *mask.Mask)
	FocusedDevice() *device.Device
	FocusDevice(d *device.Device)
	DeleteMask(m *mask.Mask)
	DeleteDevice(name string)
	// Connect records a connection whose mask-side curve is already attached.
	Connect(deviceName string, m *mask.Mask)
}

// Orbiter is the camera interaction that is suspended while a device is
// dragged in 3D.
type Orbiter interface {
	SetEnabled(enabled bool)
}

// Options tunes hit testing and key bindings.
type Options struct {
	HandleRadius  float64
	MinDragPixels float64
	DeleteKey     fyne.KeyName
	DragKey       fyne.KeyName
}

// DefaultOptions returns the stock bindings.
func DefaultOptions() Options {
	return Options{
		HandleRadius:  6,
		MinDragPixels: 3,
		DeleteKey:     fyne.KeyDelete,
		DragKey:       desktop.KeyShiftLeft,
	}
}

// gesture is the transient state of one press-move-release sequence.
type gesture struct {
	start   geometry.Point2D
	current geometry.Point2D
	mask    *mask.Mask
	handle  mask.Handle
	curve   int
	device  *device.Device
	grab    geometry.Point2D
}

// Controls is the interaction state machine.
type Controls struct {
	ws      Workspace
	orbiter Orbiter
	opts    Options

	mode      Mode
	g         gesture
	dragArmed bool
}

var (
	_ desktop.Mouseable = (*Controls)(nil)
	_ desktop.Hoverable = (*Controls)(nil)
)

// New creates controls over ws. orbiter may be nil.
func New(ws Workspace, orbiter Orbiter, opts Options) *Controls {
	return &Controls{ws: ws, orbiter: orbiter, opts: opts}
}

// Mode returns the active mode.
func (c *Controls) Mode() Mode {
	return c.mode
}

// DragArmed reports whether the device-drag key is held.
func (c *Controls) DragArmed() bool {
	return c.dragArmed
}

// Marquee returns the rectangle being drawn, in canvas space.
func (c *Controls) Marquee() (geometry.Bounds, bool) {
	if c.mode != ModeDraw {
		return geometry.Bounds{}, false
	}
	return geometry.BoundsFromPoints(c.g.start, c.g.current), true
}

// ConnectionEnd returns the free end of the connection being drawn.
func (c *Controls) ConnectionEnd() (geometry.Point2D, bool) {
	if c.mode != ModeConnect {
		return geometry.Point2D{}, false
	}
	return c.g.current, true
}

func (c *Controls) canvasPoint(pos fyne.Position) geometry.Point2D {
	return c.ws.View().ScreenToCanvas(geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)})
}

// MouseDown starts a gesture. Hit testing runs in priority order: handles of
// the focused mask, devices when the drag key is held, masks, then devices.
// A press that hits nothing starts drawing a new mask.
func (c *Controls) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.reset()
	p := c.canvasPoint(ev.Position)
	c.g.start, c.g.current = p, p

	if f := c.ws.FocusedMask(); f != nil && !f.Deleted() {
		if h, ok := f.HandleAt(p, c.opts.HandleRadius); ok {
			c.g.mask, c.g.handle = f, h
			c.mode = ModeResize
			return
		}
		if f.RotateHandleAt(p, c.opts.HandleRadius) {
			c.g.mask = f
			c.mode = ModeRotate
			return
		}
	}

	devices := c.ws.Devices()
	if c.dragArmed || ev.Modifier&fyne.KeyModifierShift != 0 {
		if d := devices.HitTest(p); d != nil {
			c.g.device = d
			c.g.grab = d.Position.Sub(p)
			c.ws.FocusDevice(d)
			if c.ws.Is3D() && c.orbiter != nil {
				c.orbiter.SetEnabled(false)
			}
			c.mode = ModeDragDevice
			return
		}
	}

	if m := c.maskAt(p); m != nil {
		c.ws.FocusMask(m)
		c.g.mask = m
		c.g.curve = m.MakeConnectionCurve()
		c.mode = ModeConnect
		return
	}

	if d := devices.HitTest(p); d != nil {
		c.ws.FocusMask(nil)
		c.ws.FocusDevice(d)
		return
	}

	c.ws.FocusMask(nil)
	c.ws.FocusDevice(nil)
	c.mode = ModeDraw
}

// maskAt returns the most recently created live mask under p.
func (c *Controls) maskAt(p geometry.Point2D) *mask.Mask {
	masks := c.ws.Masks()
	for i := len(masks) - 1; i >= 0; i-- {
		if m := masks[i]; !m.Deleted() && m.HitTest(p) {
			return m
		}
	}
	return nil
}

// MouseMoved updates whichever mode is active.
func (c *Controls) MouseMoved(ev *desktop.MouseEvent) {
	if c.mode == ModeIdle {
		return
	}
	p := c.canvasPoint(ev.Position)
	c.g.current = p

	switch c.mode {
	case ModeResize:
		c.g.mask.Resize(&c.g.handle, p)
	case ModeRotate:
		c.g.mask.Rotate(p)
	case ModeConnect:
		c.g.mask.UpdateCurveEnd(c.g.curve, p, 0)
	case ModeDragDevice:
		c.ws.Devices().Move(c.g.device.Name, p.Add(c.g.grab))
	}
}

// MouseUp finishes the active mode and always returns to idle.
func (c *Controls) MouseUp(ev *desktop.MouseEvent) {
	defer c.reset()
	if c.mode == ModeIdle {
		return
	}
	p := c.canvasPoint(ev.Position)
	c.g.current = p

	switch c.mode {
	case ModeDraw:
		if math.Abs(p.X-c.g.start.X) < c.opts.MinDragPixels || math.Abs(p.Y-c.g.start.Y) < c.opts.MinDragPixels {
			return
		}
		// Misses are routine; nothing is registered.
		_, _ = c.ws.CreateMask(geometry.BoundsFromPoints(c.g.start, p))
	case ModeResize:
		c.g.mask.Resize(&c.g.handle, p)
		c.g.mask.CheckFlip(&c.g.handle)
		c.g.mask.RecomputeMembership()
	case ModeRotate:
		c.g.mask.Rotate(p)
		c.g.mask.RecomputeMembership()
	case ModeConnect:
		devices := c.ws.Devices()
		d := devices.HitTest(p)
		if d == nil {
			c.g.mask.DiscardCurve(c.g.curve)
			return
		}
		if c.g.mask.AttachCurve(c.g.curve, d.Name, d.Position, devices.Radius) {
			c.ws.Connect(d.Name, c.g.mask)
		}
	case ModeDragDevice:
		c.ws.Devices().Move(c.g.device.Name, p.Add(c.g.grab))
	}
}

// MouseIn is part of desktop.Hoverable.
func (c *Controls) MouseIn(ev *desktop.MouseEvent) {}

// MouseOut is part of desktop.Hoverable. A gesture in progress keeps running
// until the release.
func (c *Controls) MouseOut() {}

func (c *Controls) reset() {
	if c.mode == ModeDragDevice && c.ws.Is3D() && c.orbiter != nil {
		c.orbiter.SetEnabled(true)
	}
	c.mode = ModeIdle
	c.g = gesture{}
}

// KeyDown handles the delete key (focused mask first, then focused device)
// and arms device drag while the drag key is held.
func (c *Controls) KeyDown(ev *fyne.KeyEvent) {
	switch ev.Name {
	case c.opts.DeleteKey:
		if m := c.ws.FocusedMask(); m != nil {
			c.ws.DeleteMask(m)
			return
		}
		if d := c.ws.FocusedDevice(); d != nil {
			c.ws.DeleteDevice(d.Name)
		}
	case c.opts.DragKey:
		c.dragArmed = true
	}
}

// KeyUp disarms device drag.
func (c *Controls) KeyUp(ev *fyne.KeyEvent) {
	if ev.Name == c.opts.DragKey {
		c.dragArmed = false
	}
}
