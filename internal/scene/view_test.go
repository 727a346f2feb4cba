package scene

import (
	"math"
	"testing"

	"nest-selector/pkg/geometry"

	"github.com/goki/mat32"
)

// difTol is the pixel tolerance for round trips.
const difTol = 1e-3

func newTestView(t *testing.T) *View {
	t.Helper()
	v, err := NewView(DefaultCamera(), Viewport{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	return v
}

func TestOriginProjectsToCenter(t *testing.T) {
	v := newTestView(t)
	p := v.SceneToScreen(mat32.NewVec3(0, 0, 0))
	if math.Abs(p.X-400) > difTol || math.Abs(p.Y-300) > difTol {
		t.Errorf("origin projected to %+v, want (400,300)", p)
	}
	up := v.SceneToScreen(mat32.NewVec3(0, 0.5, 0))
	if up.Y >= p.Y {
		t.Errorf("scene +y should be screen -y: %+v vs %+v", up, p)
	}
}

func TestScreenSceneRoundTrip(t *testing.T) {
	v := newTestView(t)
	v.Camera.Eye = mat32.NewVec3(0.4, -0.7, 2.2)
	v.Camera.Target = mat32.NewVec3(0.1, 0.1, 0)
	if err := v.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for x := 0.0; x <= 800; x += 50 {
		for y := 0.0; y <= 600; y += 50 {
			p := geometry.NewPoint2D(x, y)
			s, ok := v.ScreenToScene(p)
			if !ok {
				t.Fatalf("no intersection for %+v", p)
			}
			if s.Z != 0 {
				t.Errorf("unprojected point not on z=0: %+v", s)
			}
			back := v.SceneToScreen(s)
			if d := back.Distance(p); d > difTol {
				t.Errorf("round trip %+v -> %+v off by %v px", p, back, d)
			}
		}
	}
}

func TestScreenToPlane(t *testing.T) {
	v := newTestView(t)
	p := geometry.NewPoint2D(123, 456)
	s, ok := v.ScreenToPlane(p, 0.3)
	if !ok {
		t.Fatal("expected intersection")
	}
	if math.Abs(float64(s.Z)-0.3) > 1e-6 {
		t.Errorf("z = %v, want 0.3", s.Z)
	}
	if d := v.SceneToScreen(s).Distance(p); d > difTol {
		t.Errorf("plane round trip off by %v px", d)
	}
}

func TestScreenToPlaneBehindCamera(t *testing.T) {
	v := newTestView(t)
	if _, ok := v.ScreenToPlane(geometry.NewPoint2D(400, 300), 10); ok {
		t.Error("plane behind the eye should not intersect")
	}
}

func TestConversionsUseLastRender(t *testing.T) {
	v := newTestView(t)
	before := v.SceneToScreen(mat32.NewVec3(0.2, 0.2, 0))
	v.Camera.Eye = mat32.NewVec3(0, 0, 5)
	stale := v.SceneToScreen(mat32.NewVec3(0.2, 0.2, 0))
	if stale != before {
		t.Errorf("camera change leaked into conversions before Render")
	}
	if err := v.Render(); err != nil {
		t.Fatal(err)
	}
	after := v.SceneToScreen(mat32.NewVec3(0.2, 0.2, 0))
	if after == before {
		t.Errorf("Render did not pick up the new camera")
	}
}

func TestCanvasFlip(t *testing.T) {
	v := newTestView(t)
	c := v.ScreenToCanvas(geometry.NewPoint2D(20, 50))
	if c != (geometry.Point2D{X: 20, Y: 550}) {
		t.Errorf("canvas flip = %+v", c)
	}
	if v.CanvasToScreen(c) != (geometry.Point2D{X: 20, Y: 50}) {
		t.Errorf("canvas flip is not an involution")
	}
}

func TestRayHitsOrigin(t *testing.T) {
	v := newTestView(t)
	r := v.Ray(geometry.NewPoint2D(400, 300))
	if r.Dir.Z >= 0 {
		t.Errorf("ray should point into the scene, dir %+v", r.Dir)
	}
	tHit := -r.Origin.Z / r.Dir.Z
	hit := r.Origin.Add(r.Dir.MulScalar(tHit))
	if math.Abs(float64(hit.X)) > 1e-4 || math.Abs(float64(hit.Y)) > 1e-4 {
		t.Errorf("center ray hit %+v, want origin", hit)
	}
}

func TestRenderRejectsDegenerateCamera(t *testing.T) {
	cam := DefaultCamera()
	cam.Target = cam.Eye
	if _, err := NewView(cam, Viewport{Width: 800, Height: 600}); err == nil {
		t.Error("expected error for eye == target")
	}
	if _, err := NewView(DefaultCamera(), Viewport{}); err == nil {
		t.Error("expected error for empty viewport")
	}
}

func TestFitCentersBox(t *testing.T) {
	v := newTestView(t)
	box := mat32.Box3{Min: mat32.NewVec3(1, 1, 0), Max: mat32.NewVec3(3, 2, 0)}
	if err := v.Fit(box); err != nil {
		t.Fatal(err)
	}
	c := v.SceneToScreen(mat32.NewVec3(2, 1.5, 0))
	if math.Abs(c.X-400) > difTol || math.Abs(c.Y-300) > difTol {
		t.Errorf("box center at %+v after Fit", c)
	}
	for _, corner := range []mat32.Vec3{box.Min, box.Max} {
		p := v.SceneToScreen(corner)
		if p.X < 0 || p.X > 800 || p.Y < 0 || p.Y > 600 {
			t.Errorf("corner %+v off screen at %+v", corner, p)
		}
	}
}
