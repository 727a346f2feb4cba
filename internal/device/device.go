// Package device manages the stimulation and recording devices placed in the
// scene and the masks connected to each of them.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"nest-selector/internal/mask"
	"nest-selector/pkg/geometry"
)

// DefaultRadius is the drawn radius of a device node in pixels.
const DefaultRadius = 12

// Kind classifies a device model.
type Kind int

const (
	Stimulator Kind = iota
	Recorder
)

// KindOf infers the kind from a model name.
func KindOf(model string) Kind {
	m := strings.ToLower(model)
	if strings.Contains(m, "generator") {
		return Stimulator
	}
	return Recorder
}

// Device is a placed device node.
type Device struct {
	Name       string
	Model      string
	Params     map[string]any
	Position   geometry.Point2D
	Connectees []*mask.Mask
}

// Kind returns the device kind.
func (d *Device) Kind() Kind {
	return KindOf(d.Model)
}

// ConnectedTo reports whether m is a connectee.
func (d *Device) ConnectedTo(m *mask.Mask) bool {
	return d.indexOf(m) >= 0
}

func (d *Device) indexOf(m *mask.Mask) int {
	for i, c := range d.Connectees {
		if c == m {
			return i
		}
	}
	return -1
}

// ringOffsets are the fallback placement offsets around the anchor.
var ringOffsets = []geometry.Point2D{
	{X: 0, Y: 0},
	{X: 0, Y: 60},
	{X: 0, Y: -60},
	{X: 60, Y: 30},
	{X: 60, Y: -30},
	{X: -60, Y: 30},
	{X: -60, Y: -30},
	{X: 0, Y: 120},
}

// Registry holds the placed devices in placement order. Names come from one
// counter shared by all models that never goes back, even across Reset.
type Registry struct {
	// Anchor is the canvas point fallback positions are arranged around.
	Anchor geometry.Point2D
	// Radius is the node radius used for hit testing and curve ends.
	Radius float64

	counter int
	placed  int
	devices []*Device
}

// NewRegistry creates an empty registry.
func NewRegistry(anchor geometry.Point2D) *Registry {
	return &Registry{Anchor: anchor, Radius: DefaultRadius}
}

// Place adds a device of the given model at the next fallback position.
func (r *Registry) Place(model string, params map[string]any) *Device {
	pos := r.Anchor.Add(ringOffsets[r.placed%len(ringOffsets)])
	return r.PlaceAt(model, params, pos)
}

// PlaceAt adds a device of the given model at pos.
func (r *Registry) PlaceAt(model string, params map[string]any, pos geometry.Point2D) *Device {
	r.counter++
	r.placed++
	if params == nil {
		params = make(map[string]any)
	}
	d := &Device{
		Name:     fmt.Sprintf("%s_%d", model, r.counter),
		Model:    model,
		Params:   params,
		Position: pos,
	}
	r.devices = append(r.devices, d)
	return d
}

// Restore re-registers a device under a previously allocated name. The counter
// moves past the name's numeric suffix so later placements stay unique.
func (r *Registry) Restore(name, model string, params map[string]any) (*Device, error) {
	if r.Get(name) != nil {
		return nil, fmt.Errorf("device %q already exists", name)
	}
	if n, ok := NameCounter(name); ok && n > r.counter {
		r.counter = n
	}
	if params == nil {
		params = make(map[string]any)
	}
	d := &Device{
		Name:     name,
		Model:    model,
		Params:   params,
		Position: r.Anchor.Add(ringOffsets[r.placed%len(ringOffsets)]),
	}
	r.placed++
	r.devices = append(r.devices, d)
	return d, nil
}

// NameCounter extracts the counter from a "{model}_{n}" name.
func NameCounter(name string) (int, bool) {
	i := strings.LastIndexByte(name, '_')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Get returns the device with the given name, or nil.
func (r *Registry) Get(name string) *Device {
	for _, d := range r.devices {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Devices returns the devices in placement order.
func (r *Registry) Devices() []*Device {
	return r.devices
}

// Count returns the number of devices.
func (r *Registry) Count() int {
	return len(r.devices)
}

// Connect links the device to m on both sides. A pair that is already
// connected is left alone. It reports whether a new connection was made.
func (r *Registry) Connect(name string, m *mask.Mask) bool {
	d := r.Get(name)
	if d == nil || m == nil || m.Deleted() {
		return false
	}
	if !m.HasCurveTo(name) {
		m.ConnectCurve(name, d.Position, r.Radius)
	}
	if d.ConnectedTo(m) {
		return false
	}
	d.Connectees = append(d.Connectees, m)
	return true
}

// Disconnect unlinks the device from m on both sides.
func (r *Registry) Disconnect(name string, m *mask.Mask) bool {
	d := r.Get(name)
	if d == nil {
		return false
	}
	m.RemoveCurve(name)
	i := d.indexOf(m)
	if i < 0 {
		return false
	}
	d.Connectees = append(d.Connectees[:i], d.Connectees[i+1:]...)
	return true
}

// Remove deletes the device and the curve every connectee holds to it.
func (r *Registry) Remove(name string) bool {
	for i, d := range r.devices {
		if d.Name != name {
			continue
		}
		for _, m := range d.Connectees {
			m.RemoveCurve(name)
		}
		d.Connectees = nil
		r.devices = append(r.devices[:i], r.devices[i+1:]...)
		return true
	}
	return false
}

// DropMask removes m from every device's connectees and returns the names of
// the devices it was removed from.
func (r *Registry) DropMask(m *mask.Mask) []string {
	var names []string
	for _, d := range r.devices {
		if i := d.indexOf(m); i >= 0 {
			d.Connectees = append(d.Connectees[:i], d.Connectees[i+1:]...)
			m.RemoveCurve(d.Name)
			names = append(names, d.Name)
		}
	}
	return names
}

// Move sets the device position and drags every curve ending at it.
func (r *Registry) Move(name string, pos geometry.Point2D) {
	d := r.Get(name)
	if d == nil {
		return
	}
	d.Position = pos
	for _, m := range d.Connectees {
		m.UpdateCurveEndFor(name, pos, r.Radius)
	}
}

// HitTest returns the topmost device whose node contains canvas point p.
func (r *Registry) HitTest(p geometry.Point2D) *Device {
	for i := len(r.devices) - 1; i >= 0; i-- {
		d := r.devices[i]
		if d.Position.Distance(p) <= r.Radius {
			return d
		}
	}
	return nil
}

// Reset removes every device. The name counter keeps counting.
func (r *Registry) Reset() {
	for _, d := range r.devices {
		for _, m := range d.Connectees {
			m.RemoveCurve(d.Name)
		}
	}
	r.devices = nil
	r.placed = 0
}
