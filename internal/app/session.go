package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"nest-selector/internal/config"
	"nest-selector/internal/controls"
	"nest-selector/internal/device"
	"nest-selector/internal/layer"
	"nest-selector/internal/mask"
	"nest-selector/internal/scene"
	"nest-selector/internal/sim"
	"nest-selector/pkg/geometry"

	"fyne.io/fyne/v2"
)

// ErrNoModel is returned by operations that need a loaded network.
var ErrNoModel = errors.New("app: no network loaded")

// deviceInset is the distance of the device anchor from the right edge.
const deviceInset = 60

// Panel is the side panel the session reads mask settings from and reports
// selection counts to.
type Panel interface {
	NeuronType() string
	SynapseModel() string
	ShapeMode() mask.Shape
	Is3D() bool
	SetSelectedCount(n int)
}

// StaticPanel is a Panel with fixed settings.
type StaticPanel struct {
	Neuron  string
	Synapse string
	Shape   mask.Shape
	ThreeD  bool

	Count int
}

func (p *StaticPanel) NeuronType() string { return p.Neuron }
func (p *StaticPanel) SynapseModel() string { return p.Synapse }
func (p *StaticPanel) ShapeMode() mask.Shape { return p.Shape }
func (p *StaticPanel) Is3D() bool { return p.ThreeD }
func (p *StaticPanel) SetSelectedCount(n int) { p.Count = n }

// Dispatch runs f on the thread that owns the session. Results of service
// calls are delivered through it.
type Dispatch func(f func())

// Session owns the editing state. Apart from On, its methods are meant to be
// called from a single thread; background work reports back via Dispatch.
type Session struct {
	emitter

	cfg      *config.Config
	panel    Panel
	client   *sim.Client
	dispatch Dispatch

	view    *scene.View
	layers  *layer.Registry
	devices *device.Registry
	env     *mask.Env

	network json.RawMessage
	masks   []*mask.Mask
	nextID  int

	focused       *mask.Mask
	focusedDevice *device.Device

	buffers sim.Buffers
	stream  int // generation of the stream allowed to touch buffers
}

var _ controls.Workspace = (*Session)(nil)

// New creates a session. A nil cfg uses the defaults, a nil panel a
// rectangular StaticPanel, a nil client one built from cfg and a nil dispatch
// runs callbacks in place.
func New(cfg *config.Config, panel Panel, client *sim.Client, dispatch Dispatch) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if panel == nil {
		panel = &StaticPanel{Shape: mask.Rectangular}
	}
	if client == nil {
		client = sim.New(cfg.ServiceURL, cfg.RequestTimeout.Duration)
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}

	view, err := scene.NewView(scene.DefaultCamera(), scene.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight})
	if err != nil {
		return nil, fmt.Errorf("create view: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		panel:    panel,
		client:   client,
		dispatch: dispatch,
		view:     view,
		layers:   layer.NewRegistry(),
		devices:  device.NewRegistry(geometry.Point2D{}),
		nextID:   1,
	}
	s.env = &mask.Env{View: view, Layers: s.layers, OnCount: s.reportCount}
	s.applyConfig(cfg)
	return s, nil
}

func (s *Session) applyConfig(cfg *config.Config) {
	s.cfg = cfg
	s.layers.Margin = cfg.LayerMargin
	s.layers.MaxLayers = cfg.MaxLayers
	s.layers.Spacing = cfg.LayerSpacing
	s.devices.Radius = cfg.DeviceRadius
	s.devices.Anchor = geometry.Point2D{X: cfg.ViewportWidth - deviceInset, Y: cfg.ViewportHeight / 2}
	s.client.SetBaseURL(cfg.ServiceURL)
}

// ApplyConfig switches to a new configuration. Layer layout settings take
// effect on the next LoadModel; the viewport is not resized.
func (s *Session) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.applyConfig(cfg)
	s.Emit(EventConfigChanged, cfg)
}

// Config returns the active configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Client returns the simulation service client.
func (s *Session) Client() *sim.Client {
	return s.client
}

// Panel returns the settings panel.
func (s *Session) Panel() Panel {
	return s.panel
}

// NewControls creates interaction controls bound to this session using the
// configured radii and key bindings.
func (s *Session) NewControls(orbiter controls.Orbiter) *controls.Controls {
	opts := controls.DefaultOptions()
	opts.HandleRadius = s.cfg.HandleRadius
	opts.MinDragPixels = s.cfg.MinDragPixels
	if s.cfg.DeleteKey != "" {
		opts.DeleteKey = fyne.KeyName(s.cfg.DeleteKey)
	}
	if s.cfg.DragModifierKey != "" {
		opts.DragKey = fyne.KeyName(s.cfg.DragModifierKey)
	}
	return controls.New(s, orbiter, opts)
}

// LoadModel replaces the network with the description in data. Masks and
// devices from the previous network are discarded. The returned advisories
// are non-fatal.
func (s *Session) LoadModel(data []byte) ([]string, error) {
	model, err := layer.ParseModel(data)
	if err != nil {
		return nil, err
	}

	s.clearSelection()
	advisories, err := s.layers.Load(model)
	if err != nil {
		s.layers.Clear()
		s.network = nil
		return nil, err
	}
	s.network = append(json.RawMessage(nil), data...)
	s.buffers.Reset()
	if err := s.view.Fit(s.layers.Bounds()); err != nil {
		return advisories, fmt.Errorf("fit view: %w", err)
	}

	log.Printf("app: loaded %d layers", s.layers.Len())
	s.Emit(EventModelLoaded, advisories)
	return advisories, nil
}

// Network returns the raw network description as loaded.
func (s *Session) Network() json.RawMessage {
	return s.network
}

// Layers returns the layer registry.
func (s *Session) Layers() *layer.Registry {
	return s.layers
}

// clearSelection removes every mask and device.
func (s *Session) clearSelection() {
	for _, m := range s.masks {
		m.Delete()
	}
	s.masks = nil
	s.devices.Reset()
	s.focused = nil
	s.focusedDevice = nil
}

// Reset discards masks and devices and restores every point color.
func (s *Session) Reset() {
	s.clearSelection()
	s.layers.ResetColors()
	s.buffers.Reset()
	s.Emit(EventMasksChanged, nil)
	s.Emit(EventDevicesChanged, nil)
}

func (s *Session) reportCount(m *mask.Mask, n int) {
	s.panel.SetSelectedCount(n)
	s.Emit(EventSelectedCount, m)
}

// View returns the scene view.
func (s *Session) View() *scene.View {
	return s.view
}

// Masks returns the live masks in creation order.
func (s *Session) Masks() []*mask.Mask {
	return s.masks
}

// Mask returns the mask with the given id, or nil.
func (s *Session) Mask(id int) *mask.Mask {
	for _, m := range s.masks {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Devices returns the device registry.
func (s *Session) Devices() *device.Registry {
	return s.devices
}

// Is3D reports whether the panel is in 3D mode.
func (s *Session) Is3D() bool {
	return s.panel.Is3D()
}

// CreateMask builds a mask over canvas bounds with the panel's shape and
// metadata, registers it and focuses it. An id is only used up when the
// mask resolves to a layer.
func (s *Session) CreateMask(bounds geometry.Bounds) (*mask.Mask, error) {
	if s.layers.Len() == 0 {
		return nil, ErrNoModel
	}
	shape := s.panel.ShapeMode()
	if s.panel.Is3D() {
		shape = mask.Box
	} else if !shape.Planar() {
		shape = mask.Rectangular
	}
	meta := mask.Meta{NeuronType: s.panel.NeuronType(), SynModel: s.panel.SynapseModel()}

	m, err := mask.New(s.env, s.nextID, shape, bounds, meta)
	if err != nil {
		return nil, err
	}
	s.nextID++
	s.masks = append(s.masks, m)
	s.Emit(EventMasksChanged, m)
	s.FocusMask(m)
	return m, nil
}

// FocusedMask returns the focused mask, or nil.
func (s *Session) FocusedMask() *mask.Mask {
	return s.focused
}

// FocusMask focuses m, blurring the previously focused mask. A nil m clears
// the focus.
func (s *Session) FocusMask(m *mask.Mask) {
	if s.focused != nil && s.focused != m {
		s.focused.Blur()
	}
	s.focused = m
	if m != nil {
		m.Focus()
		s.focusedDevice = nil
		s.panel.SetSelectedCount(m.NSelected())
	}
	s.Emit(EventFocusChanged, m)
}

// FocusedDevice returns the focused device, or nil.
func (s *Session) FocusedDevice() *device.Device {
	return s.focusedDevice
}

// FocusDevice focuses d. A nil d clears the device focus.
func (s *Session) FocusDevice(d *device.Device) {
	s.focusedDevice = d
	s.Emit(EventFocusChanged, d)
}

// DeleteMask removes m, restores its points' colors and drops it from every
// device it was connected to.
func (s *Session) DeleteMask(m *mask.Mask) {
	if m == nil {
		return
	}
	m.Delete()
	s.devices.DropMask(m)
	for i, x := range s.masks {
		if x == m {
			s.masks = append(s.masks[:i], s.masks[i+1:]...)
			break
		}
	}
	if s.focused == m {
		s.focused = nil
	}
	s.Emit(EventMasksChanged, m)
}

// PlaceDevice adds a device of the given model at the next free slot.
func (s *Session) PlaceDevice(model string, params map[string]any) *device.Device {
	d := s.devices.Place(model, params)
	s.Emit(EventDevicesChanged, d)
	return d
}

// DeleteDevice removes the named device together with its curves.
func (s *Session) DeleteDevice(name string) {
	if !s.devices.Remove(name) {
		return
	}
	if s.focusedDevice != nil && s.focusedDevice.Name == name {
		s.focusedDevice = nil
	}
	s.Emit(EventDevicesChanged, name)
}

// Connect links the named device and m on both sides.
func (s *Session) Connect(deviceName string, m *mask.Mask) {
	if s.devices.Connect(deviceName, m) {
		s.Emit(EventConnectionsChanged, deviceName)
	}
}

// Disconnect unlinks the named device and m.
func (s *Session) Disconnect(deviceName string, m *mask.Mask) {
	if s.devices.Disconnect(deviceName, m) {
		s.Emit(EventConnectionsChanged, deviceName)
	}
}
