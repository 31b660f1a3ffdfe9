package contour

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point is a position in pixel coordinates (x right, y down).
type Point = r2.Point

// Contour is a closed, ordered boundary. The last point connects back to the
// first.
type Contour []Point

// wrap maps any integer index onto [0, n).
func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// At returns the point at index i, wrapping across the seam in both
// directions. It panics on an empty contour.
func (c Contour) At(i int) Point {
	return c[wrap(i, len(c))]
}

// Segment returns length contiguous points centred on index center. The
// segment wraps across the seam, so it is well defined for every index. An
// even length is treated as the next odd number.
func (c Contour) Segment(center, length int) Contour {
	if len(c) == 0 || length <= 0 {
		return nil
	}
	half := length / 2
	seg := make(Contour, 0, 2*half+1)
	for k := -half; k <= half; k++ {
		seg = append(seg, c.At(center+k))
	}
	return seg
}

// Perimeter returns the length of the closed polyline, closing segment
// included.
func (c Contour) Perimeter() float64 {
	if len(c) < 2 {
		return 0
	}
	var p float64
	for i := range c {
		p += c.At(i + 1).Sub(c[i]).Norm()
	}
	return p
}

// SignedArea returns the shoelace area. It is positive when the points run
// counter-clockwise in a y-up frame, which is clockwise on screen.
func (c Contour) SignedArea() float64 {
	if len(c) < 3 {
		return 0
	}
	var a float64
	for i := range c {
		a += c[i].Cross(c.At(i + 1))
	}
	return a / 2
}

// Area returns the enclosed area.
func (c Contour) Area() float64 {
	return math.Abs(c.SignedArea())
}

// Centroid returns the mean of the points.
func (c Contour) Centroid() Point {
	if len(c) == 0 {
		return Point{}
	}
	var s Point
	for _, p := range c {
		s = s.Add(p)
	}
	return s.Mul(1 / float64(len(c)))
}

// Clone returns a copy that shares no storage with c.
func (c Contour) Clone() Contour {
	if c == nil {
		return nil
	}
	out := make(Contour, len(c))
	copy(out, c)
	return out
}
