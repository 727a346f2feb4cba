// Command replay feeds a scripted sequence of pointer and key events through
// the interaction controls and prints the resulting masks and devices.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nest-selector/internal/app"
	"nest-selector/internal/config"
	"nest-selector/internal/controls"
	"nest-selector/internal/mask"
	"nest-selector/internal/render"
	"nest-selector/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Script is a replay file.
type Script struct {
	// Model is the network description, relative to the script.
	Model string `json:"model"`
	// Relative makes every position an offset from the screen position of
	// the first layer's center.
	Relative bool   `json:"relative"`
	Steps    []Step `json:"steps"`
}

// Step is one scripted action.
type Step struct {
	Op string `json:"op"` // drag, click, key, keyup, shape, neuron, 3d or place

	From  [2]float64 `json:"from"`
	To    [2]float64 `json:"to"`
	Shift bool       `json:"shift"`
	// FromDevice and ToDevice replace From and To with a device's position.
	FromDevice string `json:"fromDevice"`
	ToDevice   string `json:"toDevice"`

	Key    string         `json:"key"`
	Shape  string         `json:"shape"`
	Neuron string         `json:"neuron"`
	On     bool           `json:"on"`
	Model  string         `json:"model"`
	Params map[string]any `json:"params"`
}

func main() {
	scriptPath := flag.String("script", "", "Path to replay script (JSON)")
	configPath := flag.String("config", config.DefaultPath(), "Configuration file")
	pngPath := flag.String("png", "", "Write a snapshot of the final state")
	savePath := flag.String("save", "", "Write the resulting selection")
	flag.Parse()

	if *scriptPath == "" {
		fmt.Println("Usage: replay -script <path> [-png out.png] [-save selection.json]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	sess, err := replay(*scriptPath, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Replay failed: %v\n", err)
		os.Exit(1)
	}
	summarize(os.Stdout, sess)

	if *pngPath != "" {
		if err := render.WritePNG(*pngPath, sess.Frame()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nSnapshot written to %s\n", *pngPath)
	}
	if *savePath != "" {
		if err := sess.SaveSelectionFile(*savePath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save selection: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Selection written to %s\n", *savePath)
	}
}

// replay loads the script at path and runs it against a fresh session.
func replay(path string, cfg *config.Config) (*app.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	panel := &app.StaticPanel{Shape: mask.Rectangular}
	sess, err := app.New(cfg, panel, nil, nil)
	if err != nil {
		return nil, err
	}
	modelPath := script.Model
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(filepath.Dir(path), modelPath)
	}
	model, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, err
	}
	if _, err := sess.LoadModel(model); err != nil {
		return nil, err
	}

	var origin geometry.Point2D
	if script.Relative && sess.Layers().Len() > 0 {
		origin = sess.View().SceneToScreen(sess.Layers().Layers()[0].Sphere.Center)
	}
	r := &runner{sess: sess, panel: panel, ctl: sess.NewControls(nil), origin: origin}
	for i, step := range script.Steps {
		if err := r.step(step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return sess, nil
}

type runner struct {
	sess   *app.Session
	panel  *app.StaticPanel
	ctl    *controls.Controls
	origin geometry.Point2D
}

func (r *runner) event(p [2]float64, shift bool) *desktop.MouseEvent {
	ev := &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(float32(r.origin.X+p[0]), float32(r.origin.Y+p[1]))},
		Button:     desktop.MouseButtonPrimary,
	}
	if shift {
		ev.Modifier = fyne.KeyModifierShift
	}
	return ev
}

func (r *runner) step(s Step) error {
	if s.FromDevice != "" {
		p, ok := deviceOffset(r.sess, r.origin, s.FromDevice)
		if !ok {
			return fmt.Errorf("no device %q", s.FromDevice)
		}
		s.From = p
	}
	if s.ToDevice != "" {
		p, ok := deviceOffset(r.sess, r.origin, s.ToDevice)
		if !ok {
			return fmt.Errorf("no device %q", s.ToDevice)
		}
		s.To = p
	}

	switch s.Op {
	case "drag":
		r.ctl.MouseDown(r.event(s.From, s.Shift))
		mid := [2]float64{(s.From[0] + s.To[0]) / 2, (s.From[1] + s.To[1]) / 2}
		r.ctl.MouseMoved(r.event(mid, s.Shift))
		r.ctl.MouseMoved(r.event(s.To, s.Shift))
		r.ctl.MouseUp(r.event(s.To, s.Shift))
	case "click":
		r.ctl.MouseDown(r.event(s.From, s.Shift))
		r.ctl.MouseUp(r.event(s.From, s.Shift))
	case "key":
		r.ctl.KeyDown(&fyne.KeyEvent{Name: fyne.KeyName(s.Key)})
	case "keyup":
		r.ctl.KeyUp(&fyne.KeyEvent{Name: fyne.KeyName(s.Key)})
	case "shape":
		shape, err := mask.ParseShape(s.Shape)
		if err != nil {
			return err
		}
		r.panel.Shape = shape
	case "neuron":
		r.panel.Neuron = s.Neuron
	case "3d":
		r.panel.ThreeD = s.On
	case "place":
		r.sess.PlaceDevice(s.Model, s.Params)
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

// deviceOffset returns the screen position of a device relative to origin.
func deviceOffset(sess *app.Session, origin geometry.Point2D, name string) ([2]float64, bool) {
	d := sess.Devices().Get(name)
	if d == nil {
		return [2]float64{}, false
	}
	p := sess.View().CanvasToScreen(d.Position)
	return [2]float64{p.X - origin.X, p.Y - origin.Y}, true
}

func summarize(w io.Writer, sess *app.Session) {
	fmt.Fprintf(w, "Masks: %d\n", len(sess.Masks()))
	fmt.Fprintf(w, "%-4s %-12s %-12s %8s %8s\n", "ID", "Shape", "Layer", "Selected", "Angle")
	for _, m := range sess.Masks() {
		fmt.Fprintf(w, "%-4d %-12s %-12s %8d %8.3f\n", m.ID, m.Shape(), m.LayerName(), m.NSelected(), m.Angle())
	}
	fmt.Fprintf(w, "\nDevices: %d\n", sess.Devices().Count())
	for _, d := range sess.Devices().Devices() {
		ids := make([]int, 0, len(d.Connectees))
		for _, m := range d.Connectees {
			ids = append(ids, m.ID)
		}
		fmt.Fprintf(w, "  %-20s at (%.0f, %.0f) -> masks %v\n", d.Name, d.Position.X, d.Position.Y, ids)
	}
}
