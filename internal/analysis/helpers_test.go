package analysis

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/membrane-tools-mcp/internal/contour"
	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// diskFrame builds a frame with a filled disk of radius r centred at (cx, cy);
// the intensity is inside within the disk and outside elsewhere.
func diskFrame(index, width, height int, cx, cy, r, inside, outside float64) imaging.Frame {
	m := imaging.NewMask(width, height)
	im := imaging.NewIntensity(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				m.Set(x, y, true)
				im.Set(x, y, inside)
			} else {
				im.Set(x, y, outside)
			}
		}
	}
	return imaging.Frame{Index: index, Mask: m, Intensity: im}
}

// rectFrame builds a frame with a filled rectangle [x0,x1]x[y0,y1].
func rectFrame(width, height, x0, y0, x1, y1 int, inside float64) imaging.Frame {
	m := imaging.NewMask(width, height)
	im := imaging.NewIntensity(width, height)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Set(x, y, true)
			im.Set(x, y, inside)
		}
	}
	return imaging.Frame{Mask: m, Intensity: im}
}

// circleContour returns n points on an exact circle starting at angle phase.
func circleContour(n int, cx, cy, r, phase float64) contour.Contour {
	c := make(contour.Contour, n)
	for i := range c {
		a := phase + 2*math.Pi*float64(i)/float64(n)
		c[i] = r2.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return c
}

// radialNormals returns validated normals pointing toward (cx, cy), or away
// from it when outward is set.
func radialNormals(c contour.Contour, cx, cy float64, outward bool) []NormalVector {
	out := make([]NormalVector, len(c))
	centre := r2.Point{X: cx, Y: cy}
	for i, p := range c {
		d := centre.Sub(p).Normalize()
		if outward {
			d = d.Mul(-1)
		}
		out[i] = NormalVector{Point: p, Direction: d, Validated: true, InteriorRatio: 1}
	}
	return out
}

func ptr(v float64) *float64 {
	return &v
}
