package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"nest-selector/internal/device"
	"nest-selector/internal/mask"
)

// SavedProjection is one device of a selection file.
type SavedProjection struct {
	Specs      Specs                     `json:"specs"`
	Connectees []mask.SavedSelectionInfo `json:"connectees"`
}

// SelectionFile is the on-disk form of the mask and device graph. A mask
// connected to several devices appears under each of them with the same
// uniqueID.
type SelectionFile struct {
	Projections map[string]SavedProjection `json:"projections"`
}

// SaveSelection serializes every device with its connected masks. Masks
// without a connection are not included.
func (s *Session) SaveSelection() ([]byte, error) {
	f := SelectionFile{Projections: make(map[string]SavedProjection, s.devices.Count())}
	for _, d := range s.devices.Devices() {
		p := SavedProjection{
			Specs:      Specs{Model: d.Model, Params: d.Params},
			Connectees: make([]mask.SavedSelectionInfo, 0, len(d.Connectees)),
		}
		for _, m := range d.Connectees {
			p.Connectees = append(p.Connectees, m.ExportForPersistence())
		}
		f.Projections[d.Name] = p
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}
	s.Emit(EventSelectionSaved, len(f.Projections))
	return data, nil
}

// SaveSelectionFile writes SaveSelection to path.
func (s *Session) SaveSelectionFile(path string) error {
	data, err := s.SaveSelection()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSelection replaces the current masks and devices with the graph in
// data. Devices keep their saved names, masks sharing a uniqueID are built
// once and connected to every device listing them. A malformed document is
// returned as an error and leaves the session untouched; masks that cannot be
// rebuilt, such as those whose layer no longer exists, are skipped with a log
// line.
func (s *Session) LoadSelection(data []byte) error {
	var f SelectionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse selection: %w", err)
	}
	if s.layers.Len() == 0 {
		return ErrNoModel
	}

	s.clearSelection()

	names := make([]string, 0, len(f.Projections))
	for name := range f.Projections {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ni, oki := device.NameCounter(names[i])
		nj, okj := device.NameCounter(names[j])
		if oki != okj {
			return oki
		}
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	byID := make(map[int]*mask.Mask)
	skipped := make(map[int]bool)
	maxID := 0
	for _, name := range names {
		p := f.Projections[name]
		if _, err := s.devices.Restore(name, p.Specs.Model, p.Specs.Params); err != nil {
			log.Printf("app: restore device %s: %v", name, err)
			continue
		}
		for _, saved := range p.Connectees {
			if saved.UniqueID > maxID {
				maxID = saved.UniqueID
			}
			m, ok := byID[saved.UniqueID]
			if !ok {
				if skipped[saved.UniqueID] {
					continue
				}
				var err error
				m, err = mask.Restore(s.env, saved)
				if err != nil {
					log.Printf("app: skip mask %d: %v", saved.UniqueID, err)
					skipped[saved.UniqueID] = true
					continue
				}
				byID[saved.UniqueID] = m
				s.masks = append(s.masks, m)
			}
			s.devices.Connect(name, m)
		}
	}

	sort.SliceStable(s.masks, func(i, j int) bool { return s.masks[i].ID < s.masks[j].ID })
	if maxID >= s.nextID {
		s.nextID = maxID + 1
	}

	s.Emit(EventSelectionLoaded, len(s.masks))
	s.Emit(EventMasksChanged, nil)
	s.Emit(EventDevicesChanged, nil)
	return nil
}

// LoadSelectionFile reads path and passes it to LoadSelection.
func (s *Session) LoadSelectionFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.LoadSelection(data)
}
