package geometry

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// ConvexHull returns the hull of points in counter-clockwise order, starting
// from the lowest-leftmost point. Collinear and duplicate points are dropped.
// Fewer than three points are returned as given.
func ConvexHull(points []Point2D) []Point2D {
	if len(points) < 3 {
		return points
	}
	vs := make([]r2.Vec, len(points))
	for i, p := range points {
		vs[i] = p.Vec()
	}
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Y != vs[j].Y {
			return vs[i].Y < vs[j].Y
		}
		return vs[i].X < vs[j].X
	})

	// Monotone chain over points ordered by y: right side going up, then
	// left side coming back down.
	hull := make([]r2.Vec, 0, 2*len(vs))
	for pass := 0; pass < 2; pass++ {
		start := len(hull)
		for _, v := range vs {
			for len(hull) >= start+2 && turn(hull[len(hull)-2], hull[len(hull)-1], v) <= 0 {
				hull = hull[:len(hull)-1]
			}
			hull = append(hull, v)
		}
		hull = hull[:len(hull)-1]
		reverse(vs)
	}

	out := make([]Point2D, len(hull))
	for i, v := range hull {
		out[i] = FromVec(v)
	}
	return out
}

// turn is positive when o, a, b wind counter-clockwise.
func turn(o, a, b r2.Vec) float64 {
	return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
}

func reverse(vs []r2.Vec) {
	for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
		vs[i], vs[j] = vs[j], vs[i]
	}
}
