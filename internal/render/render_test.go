package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"nest-selector/pkg/colorutil"
	"nest-selector/pkg/geometry"

	colorful "github.com/lucasb-eyer/go-colorful"
)

func sameColor(t *testing.T, got, want colorful.Color) bool {
	t.Helper()
	return got.DistanceRgb(want) < 0.02
}

func TestRenderPlacesShapesInCanvasSpace(t *testing.T) {
	f := &Frame{
		Width:  200,
		Height: 100,
		Points: []Point{{Pos: geometry.Point2D{X: 20, Y: 80}, Color: colorutil.Excitatory}},
		Outlines: []Outline{{Points: geometry.BoundsFromPoints(
			geometry.Point2D{X: 100.5, Y: 10}, geometry.Point2D{X: 140, Y: 50}).Corners()}},
		Devices: []Device{{Name: "dc_generator_1", Pos: geometry.Point2D{X: 170, Y: 50}, Radius: 10}},
	}
	img := Render(f)

	// Canvas y=80 is image row 20.
	c, _ := colorful.MakeColor(img.At(20, 20))
	if !sameColor(t, c, colorutil.Excitatory) {
		t.Errorf("point pixel = %v", c)
	}
	c, _ = colorful.MakeColor(img.At(170, 50))
	if !sameColor(t, c, colorutil.Device) {
		t.Errorf("device center = %v", c)
	}
	c, _ = colorful.MakeColor(img.At(100, 70))
	if !sameColor(t, c, colorutil.Outline) {
		t.Errorf("outline left edge = %v", c)
	}
	c, _ = colorful.MakeColor(img.At(120, 70))
	if sameColor(t, c, colorutil.Excitatory) || sameColor(t, c, colorutil.Outline) {
		t.Errorf("outline interior should stay empty, got %v", c)
	}
	c, _ = colorful.MakeColor(img.At(5, 95))
	if !sameColor(t, c, colorutil.Background) {
		t.Errorf("background = %v", c)
	}
}

func TestRenderFocusedOutline(t *testing.T) {
	b := geometry.BoundsFromPoints(geometry.Point2D{X: 10, Y: 10.5}, geometry.Point2D{X: 50, Y: 50})
	img := Render(&Frame{Width: 64, Height: 64, Outlines: []Outline{{Points: b.Corners(), Focused: true}}})
	c, _ := colorful.MakeColor(img.At(30, 53))
	if !sameColor(t, c, colorutil.Highlight) {
		t.Errorf("focused outline edge = %v", c)
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	marquee := geometry.BoundsFromPoints(geometry.Point2D{X: 2, Y: 2}, geometry.Point2D{X: 30, Y: 20})
	f := &Frame{
		Width:   40,
		Height:  30,
		Curves:  []geometry.Bezier{{Start: geometry.Point2D{X: 1, Y: 1}, C1: geometry.Point2D{X: 10, Y: 1}, C2: geometry.Point2D{X: 20, Y: 25}, End: geometry.Point2D{X: 39, Y: 25}}},
		Handles: []geometry.Point2D{{X: 2, Y: 2}},
		Marquee: &marquee,
	}
	if err := WritePNG(path, f); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("bounds = %v", b)
	}
}
