package app

import (
	"nest-selector/internal/render"
)

// Frame snapshots the session for the renderer: every layer point projected
// to canvas space, mask outlines, the focused mask's handles, connection
// curves and device nodes.
func (s *Session) Frame() *render.Frame {
	f := &render.Frame{
		Width:  int(s.view.Viewport.Width),
		Height: int(s.view.Viewport.Height),
	}
	for _, ly := range s.layers.Layers() {
		for i, p := range ly.Positions {
			f.Points = append(f.Points, render.Point{Pos: s.view.SceneToCanvas(p), Color: ly.Color(i)})
		}
	}
	for _, m := range s.masks {
		f.Outlines = append(f.Outlines, render.Outline{Points: m.Outline(), Focused: m == s.focused})
		for _, c := range m.Curves() {
			f.Curves = append(f.Curves, c.Bezier)
		}
	}
	if m := s.focused; m != nil {
		for _, h := range m.Handles() {
			f.Handles = append(f.Handles, h.Pos)
		}
		f.Handles = append(f.Handles, m.RotateHandles()...)
	}
	for _, d := range s.devices.Devices() {
		f.Devices = append(f.Devices, render.Device{
			Name:    d.Name,
			Pos:     d.Position,
			Radius:  s.devices.Radius,
			Focused: d == s.focusedDevice,
		})
	}
	return f
}
