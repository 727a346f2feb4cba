package layer

import (
	"fmt"
	"log"
	"math"

	"github.com/goki/mat32"
)

// Default registry parameters.
const (
	DefaultMargin    = 0.1
	DefaultMaxLayers = 12
	DefaultSpacing   = 1.2
)

// Registry holds the loaded layers in insertion order.
type Registry struct {
	// Margin is the fraction of a layer's bbox size added on each side when
	// hit testing.
	Margin float64
	// MaxLayers is the advisory layer cap; loading more only warns.
	MaxLayers int
	// Spacing is the grid step between layer centers in scene units.
	Spacing float64

	layers []*Layer
	byName map[string]*Layer
}

// NewRegistry creates an empty registry with default parameters.
func NewRegistry() *Registry {
	return &Registry{
		Margin:    DefaultMargin,
		MaxLayers: DefaultMaxLayers,
		Spacing:   DefaultSpacing,
		byName:    make(map[string]*Layer),
	}
}

// Load replaces the registry contents with the neuron layers of m. Device
// layers are skipped. The returned advisories are non-fatal.
func (r *Registry) Load(m *Model) ([]string, error) {
	var specs []Spec
	for _, spec := range m.Layers {
		if IsDeviceLayer(spec.Name) {
			continue
		}
		specs = append(specs, spec)
	}

	var advisories []string
	if r.MaxLayers > 0 && len(specs) > r.MaxLayers {
		msg := fmt.Sprintf("%d layers loaded, only %d are supported for display", len(specs), r.MaxLayers)
		log.Printf("layer: %s", msg)
		advisories = append(advisories, msg)
	}

	offsets := gridOffsets(len(specs), r.Spacing)
	layers := make([]*Layer, 0, len(specs))
	byName := make(map[string]*Layer, len(specs))
	nextID := 1
	for i, spec := range specs {
		if _, dup := byName[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate layer name %q", spec.Name)
		}
		firstID := spec.FirstID
		if firstID == 0 {
			firstID = nextID
		}
		ly := newLayer(spec, offsets[i], firstID)
		nextID = firstID + ly.Len()
		layers = append(layers, ly)
		byName[ly.Name] = ly
	}

	r.layers = layers
	r.byName = byName
	return advisories, nil
}

// gridOffsets lays n layers out row-major on a square-ish grid centered on
// the origin, first row on top.
func gridOffsets(n int, step float64) [][3]float64 {
	if n == 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	offsets := make([][3]float64, n)
	for i := range offsets {
		col := i % cols
		row := i / cols
		offsets[i] = [3]float64{
			(float64(col) - float64(cols-1)/2) * step,
			(float64(rows-1)/2 - float64(row)) * step,
			0,
		}
	}
	return offsets
}

// Clear removes every layer.
func (r *Registry) Clear() {
	r.layers = nil
	r.byName = make(map[string]*Layer)
}

// Layers returns the layers in insertion order.
func (r *Registry) Layers() []*Layer {
	return r.layers
}

// Len returns the number of layers.
func (r *Registry) Len() int {
	return len(r.layers)
}

// Get returns the layer with the given name, or nil.
func (r *Registry) Get(name string) *Layer {
	return r.byName[name]
}

// LayerAt returns the first layer whose margin-expanded bounding box
// contains p, or nil.
func (r *Registry) LayerAt(p mat32.Vec3) *Layer {
	for _, ly := range r.layers {
		if ly.Contains(p, r.Margin) {
			return ly
		}
	}
	return nil
}

// Neuron resolves a global neuron id to its layer and point index.
func (r *Registry) Neuron(id int) (*Layer, int, bool) {
	for _, ly := range r.layers {
		if id >= ly.FirstID && id < ly.FirstID+ly.Len() {
			return ly, id - ly.FirstID, true
		}
	}
	return nil, 0, false
}

// Bounds returns the union of all layer bounding boxes.
func (r *Registry) Bounds() mat32.Box3 {
	var box mat32.Box3
	box.SetEmpty()
	for _, ly := range r.layers {
		box.ExpandByPoint(ly.BBox.Min)
		box.ExpandByPoint(ly.BBox.Max)
	}
	return box
}

// ResetColors restores every point of every layer to its initial color.
func (r *Registry) ResetColors() {
	for _, ly := range r.layers {
		ly.ResetColors()
	}
}
