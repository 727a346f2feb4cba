package mask

import (
	"fmt"

	"nest-selector/pkg/geometry"

	"github.com/goki/mat32"
)

// Selection is a pair of corners.
type Selection struct {
	LL geometry.Point3D `json:"ll"`
	UR geometry.Point3D `json:"ur"`
}

// SelectionInfo is the connection-time description of a mask sent to the
// simulation service. Coordinates are in the layer's native frame.
type SelectionInfo struct {
	Name                   []string       `json:"name"`
	Selection              Selection      `json:"selection"`
	Angle                  float64        `json:"angle"`
	NeuronType             string         `json:"neuronType"`
	SynModel               string         `json:"synModel"`
	MaskShape              Shape          `json:"maskShape"`
	NoOfNeuronTypesInLayer map[string]int `json:"noOfNeuronTypesInLayer"`
}

// SavedSelectionInfo is the persisted form of a mask. Planar masks store
// canvas coordinates with z=0, boxes store scene coordinates.
type SavedSelectionInfo struct {
	Name       string           `json:"name"`
	LL         geometry.Point3D `json:"ll"`
	UR         geometry.Point3D `json:"ur"`
	Angle      float64          `json:"angle"`
	NeuronType string           `json:"neuronType"`
	SynModel   string           `json:"synModel"`
	MaskShape  Shape            `json:"maskShape"`
	UniqueID   int              `json:"uniqueID"`
}

// ExportForConnection converts the mask bounds into the owning layer's native
// coordinates.
func (m *Mask) ExportForConnection() (SelectionInfo, error) {
	ll, ur, err := m.region.native(m.env, m.layer)
	if err != nil {
		return SelectionInfo{}, fmt.Errorf("export mask %d: %w", m.ID, err)
	}
	return SelectionInfo{
		Name:       []string{m.layer.Name},
		Selection:  Selection{LL: ll, UR: ur},
		Angle:      m.Angle(),
		NeuronType: m.NeuronType,
		SynModel:   m.SynModel,
		MaskShape:  m.Shape(),
		NoOfNeuronTypesInLayer: map[string]int{
			m.layer.Name: m.layer.ElementCount(),
		},
	}, nil
}

// ExportForPersistence returns the untransformed bounds plus the metadata
// needed to rebuild the mask.
func (m *Mask) ExportForPersistence() SavedSelectionInfo {
	ll, ur := m.region.stored()
	return SavedSelectionInfo{
		Name:       m.LayerName(),
		LL:         ll,
		UR:         ur,
		Angle:      m.Angle(),
		NeuronType: m.NeuronType,
		SynModel:   m.SynModel,
		MaskShape:  m.Shape(),
		UniqueID:   m.ID,
	}
}

// Restore rebuilds a mask from its persisted form. The layer is looked up by
// name rather than by position.
func Restore(env *Env, s SavedSelectionInfo) (*Mask, error) {
	ly := env.Layers.Get(s.Name)
	if ly == nil {
		return nil, fmt.Errorf("%w: layer %q", ErrNoLayer, s.Name)
	}
	meta := Meta{NeuronType: s.NeuronType, SynModel: s.SynModel}

	var r region
	switch s.MaskShape {
	case Rectangular, Elliptical:
		p := &planar{
			elliptical: s.MaskShape == Elliptical,
			bounds: geometry.BoundsFromPoints(
				geometry.Point2D{X: s.LL.X, Y: s.LL.Y},
				geometry.Point2D{X: s.UR.X, Y: s.UR.Y},
			),
		}
		if p.elliptical {
			p.angle = s.Angle
		}
		r = p
	case Box:
		lo, hi := minMax(s.LL, s.UR)
		r = &box{b: mat32.Box3{Min: vec3(lo), Max: vec3(hi)}}
	default:
		return nil, fmt.Errorf("restore mask %d: unsupported shape %v", s.UniqueID, s.MaskShape)
	}
	return newMask(env, s.UniqueID, ly, r, meta), nil
}
