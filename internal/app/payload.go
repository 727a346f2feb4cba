package app

import (
	"encoding/json"
	"fmt"

	"nest-selector/internal/mask"
)

// Specs identifies a device model and its parameters.
type Specs struct {
	Model  string         `json:"model"`
	Params map[string]any `json:"params"`
}

// Projection is one device with the masks connected to it.
type Projection struct {
	Specs      Specs                `json:"specs"`
	Connectees []mask.SelectionInfo `json:"connectees"`
}

// Payload is the request body of the simulation service.
type Payload struct {
	Network     json.RawMessage       `json:"network"`
	Projections map[string]Projection `json:"projections"`
	Time        string                `json:"time,omitempty"`
}

// Projections converts every device and its connectees into the service's
// projection map. Mask coordinates are exported in native layer space.
func (s *Session) Projections() (map[string]Projection, error) {
	out := make(map[string]Projection, s.devices.Count())
	for _, d := range s.devices.Devices() {
		p := Projection{
			Specs:      Specs{Model: d.Model, Params: d.Params},
			Connectees: make([]mask.SelectionInfo, 0, len(d.Connectees)),
		}
		for _, m := range d.Connectees {
			info, err := m.ExportForConnection()
			if err != nil {
				return nil, fmt.Errorf("projection %s: %w", d.Name, err)
			}
			p.Connectees = append(p.Connectees, info)
		}
		out[d.Name] = p
	}
	return out, nil
}

// Payload builds the service request. The simulation time is only included
// when withTime is set.
func (s *Session) Payload(withTime bool) (*Payload, error) {
	if s.network == nil {
		return nil, ErrNoModel
	}
	projections, err := s.Projections()
	if err != nil {
		return nil, err
	}
	p := &Payload{Network: s.network, Projections: projections}
	if withTime {
		p.Time = s.cfg.SimulationTime
	}
	return p, nil
}
