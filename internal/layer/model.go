// Package layer holds the neuron populations of a loaded network: their
// positions in scene space, display colors and the frame used to convert
// back to model coordinates.
package layer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Model is the part of a network description the editor understands. The raw
// document is forwarded untouched to the simulation service.
type Model struct {
	Layers []Spec `json:"layers"`
}

// Spec describes one layer as stored in the network description.
type Spec struct {
	Name         string      `json:"name"`
	Elements     []string    `json:"elements,omitempty"`
	Extent       []float64   `json:"extent,omitempty"`
	Center       []float64   `json:"center,omitempty"`
	Positions    [][]float64 `json:"positions"`
	ElementTypes []string    `json:"elementTypes,omitempty"`
	FirstID      int         `json:"firstID,omitempty"`
}

// ParseModel decodes a network description.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse network description: %w", err)
	}
	names := make(map[string]bool, len(m.Layers))
	for i, spec := range m.Layers {
		if spec.Name == "" {
			return nil, fmt.Errorf("layer %d has no name", i)
		}
		if names[spec.Name] {
			return nil, fmt.Errorf("duplicate layer name %q", spec.Name)
		}
		names[spec.Name] = true
		for j, p := range spec.Positions {
			if len(p) < 2 || len(p) > 3 {
				return nil, fmt.Errorf("layer %q position %d has %d components", spec.Name, j, len(p))
			}
		}
	}
	return &m, nil
}

// deviceLayerPatterns mark layers that hold stimulation/recording devices
// rather than neurons.
var deviceLayerPatterns = []string{"generator", "detector", "meter"}

// IsDeviceLayer reports whether a layer name looks like a device layer.
func IsDeviceLayer(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range deviceLayerPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}
