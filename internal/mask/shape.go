// Package mask implements the selection regions a user draws over a layer:
// planar rectangles and ellipses in canvas space and boxes in scene space.
package mask

import (
	"encoding/json"
	"fmt"
)

// Shape tags the region variant.
type Shape int

const (
	Rectangular Shape = iota
	Elliptical
	Box
)

var shapeNames = map[Shape]string{
	Rectangular: "rectangular",
	Elliptical:  "elliptical",
	Box:         "box",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Planar reports whether the shape lives in 2D canvas space.
func (s Shape) Planar() bool {
	return s == Rectangular || s == Elliptical
}

// ParseShape converts a shape name to a Shape.
func ParseShape(name string) (Shape, error) {
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown mask shape %q", name)
}

// MarshalJSON encodes the shape as its name.
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a shape name.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	shape, err := ParseShape(name)
	if err != nil {
		return err
	}
	*s = shape
	return nil
}

// State is the focus state of a mask.
type State int

const (
	// Fresh masks show no handles.
	Fresh State = iota
	// ShowResize shows the resize handles.
	ShowResize
	// ShowRotate shows the rotate handles (ellipses only).
	ShowRotate
)
