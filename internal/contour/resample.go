package contour

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrTooFewPoints is returned when a contour cannot be resampled to at least
// three points.
var ErrTooFewPoints = errors.New("contour too short to resample")

// arcTable is the cumulative arc length of a closed polyline: cum[i] is the
// distance from point 0 to point i along the contour, and cum[len(c)] is the
// full perimeter including the closing segment.
type arcTable struct {
	c   Contour
	cum []float64
}

func newArcTable(c Contour) arcTable {
	cum := make([]float64, len(c)+1)
	for i := 1; i <= len(c); i++ {
		cum[i] = cum[i-1] + c.At(i).Sub(c[i-1]).Norm()
	}
	return arcTable{c: c, cum: cum}
}

func (t arcTable) perimeter() float64 {
	return t.cum[len(t.c)]
}

// at returns the point at arc length s in [0, perimeter). Zero-length
// segments are never selected because their start and end share the same
// cumulative length.
func (t arcTable) at(s float64) Point {
	n := len(t.c)
	j := sort.Search(n, func(k int) bool { return t.cum[k+1] > s })
	if j >= n {
		j = n - 1
	}
	seg := t.cum[j+1] - t.cum[j]
	if seg <= 0 {
		return t.c[j]
	}
	u := (s - t.cum[j]) / seg
	u = math.Max(0, math.Min(1, u))
	p0, p1 := t.c[j], t.c.At(j+1)
	return p0.Add(p1.Sub(p0).Mul(u))
}

// Resample returns n points equally spaced in arc length along the closed
// polyline, the first one at point 0.
//
// If the spacing perimeter/n would fall below one pixel, n is reduced to
// floor(perimeter) and reduced is true; callers report this as a warning.
//
// # Errors
//
//   - ErrTooFewPoints if c has fewer than two distinct points or fewer than
//     three points can be placed.
func Resample(c Contour, n int) (out Contour, reduced bool, err error) {
	if len(c) < 2 {
		return nil, false, fmt.Errorf("%w: %d input points", ErrTooFewPoints, len(c))
	}
	perim := c.Perimeter()
	if perim/float64(n) < 1 {
		n = int(math.Floor(perim))
		reduced = true
	}
	if n < 3 {
		return nil, reduced, fmt.Errorf("%w: perimeter %.2f px allows %d points", ErrTooFewPoints, perim, n)
	}

	fractions := make([]float64, n)
	for k := range fractions {
		fractions[k] = float64(k) / float64(n)
	}
	out, err = ResampleAt(c, fractions)
	return out, reduced, err
}

// ResampleAt returns the points at the given arc-length fractions of the
// perimeter, measured from point 0. Fractions are wrapped into [0, 1), so
// 1.25 and 0.25 name the same position.
//
// Resample(c, n) is ResampleAt(c, k/n for k = 0..n-1); the two produce
// identical output for equivalent parameters.
func ResampleAt(c Contour, fractions []float64) (Contour, error) {
	if len(c) < 2 {
		return nil, fmt.Errorf("%w: %d input points", ErrTooFewPoints, len(c))
	}
	table := newArcTable(c)
	perim := table.perimeter()
	if perim <= 0 {
		return nil, fmt.Errorf("%w: zero perimeter", ErrTooFewPoints)
	}

	out := make(Contour, len(fractions))
	for i, f := range fractions {
		f -= math.Floor(f)
		out[i] = table.at(f * perim)
	}
	return out, nil
}
