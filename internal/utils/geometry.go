package utils

import "math"

// Point represents a 2D coordinate in page space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Box represents an axis-aligned bounding box in page coordinates.
type Box struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// NewBox constructs a Box from two corners ensuring ordering.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{Left: x1, Top: y1, Right: x2, Bottom: y2}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns the box height.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// Center returns the geometric center of the box.
func (b Box) Center() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// IsZero reports whether every coordinate is zero.
func (b Box) IsZero() bool {
	return b == Box{}
}

// Union returns the smallest box containing both a and b.
func Union(a, b Box) Box {
	return Box{
		Left:   math.Min(a.Left, b.Left),
		Top:    math.Min(a.Top, b.Top),
		Right:  math.Max(a.Right, b.Right),
		Bottom: math.Max(a.Bottom, b.Bottom),
	}
}

// UnionAll folds Union over boxes. An empty input yields the zero Box.
func UnionAll(boxes []Box) Box {
	if len(boxes) == 0 {
		return Box{}
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = Union(out, b)
	}
	return out
}

// HorizontalOverlapRatio returns the length of the horizontal intersection of
// a and b divided by the narrower width. Degenerate boxes yield 0.
func HorizontalOverlapRatio(a, b Box) float64 {
	overlap := math.Min(a.Right, b.Right) - math.Max(a.Left, b.Left)
	if overlap <= 0 {
		return 0
	}
	narrow := math.Min(a.Width(), b.Width())
	if narrow <= 0 {
		return 0
	}
	return math.Min(overlap/narrow, 1)
}

// HorizontalGap returns the empty horizontal distance between a and b,
// or 0 when they overlap.
func HorizontalGap(a, b Box) float64 {
	switch {
	case b.Left >= a.Right:
		return b.Left - a.Right
	case a.Left >= b.Right:
		return a.Left - b.Right
	default:
		return 0
	}
}

// BoundingBox returns the axis-aligned bounding box for a set of points.
func BoundingBox(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Box{Left: minX, Top: minY, Right: maxX, Bottom: maxY}
}
