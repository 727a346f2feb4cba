// Package render rasterizes a snapshot of the editor for headless inspection.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"nest-selector/pkg/colorutil"
	"nest-selector/pkg/geometry"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Stroke widths and sizes in pixels.
const (
	outlineWidth = 1.5
	curveWidth   = 2
	handleSize   = 4
	pointSize    = 1
	curveSteps   = 24
)

// Point is a layer point already projected to canvas space.
type Point struct {
	Pos   geometry.Point2D
	Color colorful.Color
}

// Outline is a mask border in canvas space.
type Outline struct {
	Points  []geometry.Point2D
	Focused bool
}

// Device is a device node in canvas space.
type Device struct {
	Name    string
	Pos     geometry.Point2D
	Radius  float64
	Focused bool
}

// Frame is everything drawn in one snapshot. All coordinates are canvas
// pixels with the origin at the bottom-left.
type Frame struct {
	Width, Height int

	Points   []Point
	Outlines []Outline
	Handles  []geometry.Point2D
	Curves   []geometry.Bezier
	Devices  []Device
	Marquee  *geometry.Bounds
}

// Render draws the frame onto a new image.
func Render(f *Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorutil.Background), image.Point{}, draw.Src)

	c := canvas{img: img, height: float64(f.Height)}
	for _, p := range f.Points {
		c.dot(p.Pos, pointSize, p.Color)
	}
	for _, o := range f.Outlines {
		col := colorutil.Outline
		if o.Focused {
			col = colorutil.Highlight
		}
		c.polyline(o.Points, true, outlineWidth, col)
	}
	for _, b := range f.Curves {
		c.polyline(b.Sample(curveSteps), false, curveWidth, colorutil.Curve)
	}
	for _, h := range f.Handles {
		c.square(h, handleSize, colorutil.Handle)
	}
	for _, d := range f.Devices {
		col := colorutil.Device
		if d.Focused {
			col = colorutil.Highlight
		}
		c.disc(d.Pos, d.Radius, col)
		c.label(d.Name, geometry.Point2D{X: d.Pos.X - d.Radius, Y: d.Pos.Y - d.Radius - 14})
	}
	if f.Marquee != nil {
		c.polyline(f.Marquee.Corners(), true, 1, colorutil.Outline)
	}
	return img
}

// WritePNG renders the frame and writes it to path.
func WritePNG(path string, f *Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, Render(f)); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}

// canvas draws in canvas coordinates onto an image with y pointing down.
type canvas struct {
	img    *image.RGBA
	height float64
}

func (c *canvas) xy(p geometry.Point2D) (float32, float32) {
	return float32(p.X), float32(c.height - p.Y)
}

func (c *canvas) rasterizer() *vector.Rasterizer {
	b := c.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	return z
}

func (c *canvas) fill(z *vector.Rasterizer, col color.Color) {
	z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// polyline strokes consecutive points, each segment as its own quad.
func (c *canvas) polyline(points []geometry.Point2D, closed bool, width float64, col color.Color) {
	if len(points) < 2 {
		return
	}
	z := c.rasterizer()
	n := len(points) - 1
	if closed {
		n = len(points)
	}
	for i := 0; i < n; i++ {
		c.segment(z, points[i], points[(i+1)%len(points)], width/2)
	}
	c.fill(z, col)
}

func (c *canvas) segment(z *vector.Rasterizer, a, b geometry.Point2D, half float64) {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return
	}
	n := geometry.Point2D{X: -d.Y / l * half, Y: d.X / l * half}
	ax, ay := c.xy(a.Add(n))
	z.MoveTo(ax, ay)
	z.LineTo(c.xy(b.Add(n)))
	z.LineTo(c.xy(b.Sub(n)))
	z.LineTo(c.xy(a.Sub(n)))
	z.ClosePath()
}

func (c *canvas) disc(center geometry.Point2D, r float64, col color.Color) {
	const steps = 32
	z := c.rasterizer()
	for i := 0; i < steps; i++ {
		t := float64(i) * 2 * math.Pi / steps
		x, y := c.xy(geometry.Point2D{X: center.X + r*math.Cos(t), Y: center.Y + r*math.Sin(t)})
		if i == 0 {
			z.MoveTo(x, y)
			continue
		}
		z.LineTo(x, y)
	}
	z.ClosePath()
	c.fill(z, col)
}

func (c *canvas) square(center geometry.Point2D, half float64, col color.Color) {
	x, y := c.xy(center)
	r := image.Rect(int(x-float32(half)), int(y-float32(half)), int(x+float32(half))+1, int(y+float32(half))+1)
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) dot(p geometry.Point2D, half int, col color.Color) {
	x, y := c.xy(p)
	px, py := int(math.Round(float64(x))), int(math.Round(float64(y)))
	r := image.Rect(px-half, py-half, px+half+1, py+half+1)
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) label(text string, at geometry.Point2D) {
	x, y := c.xy(at)
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(colorutil.Outline),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(x), int(y)),
	}
	d.DrawString(text)
}
