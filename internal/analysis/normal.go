package analysis

import (
	"github.com/golang/geo/r2"

	"github.com/ironsheep/membrane-tools-mcp/internal/contour"
	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// NormalVector is the inward unit normal estimated at one contour point.
type NormalVector struct {
	// Point is the contour point the normal is anchored on.
	Point r2.Point `json:"point"`

	// Direction is the unit normal pointing into the cell. Zero when the
	// tangent could not be estimated.
	Direction r2.Point `json:"direction"`

	// Tangent is the unit tangent along the contour.
	Tangent r2.Point `json:"tangent"`

	// Validated is true when InteriorRatio reached the configured minimum.
	Validated bool `json:"validated"`

	// InteriorRatio is the fraction of probe points along Direction that
	// landed on foreground.
	InteriorRatio float64 `json:"interior_ratio"`
}

// Outward returns the outward-pointing unit normal.
func (n NormalVector) Outward() r2.Point {
	return n.Direction.Mul(-1)
}

// NormalOptions controls normal estimation.
type NormalOptions struct {
	// Window is the odd number of contour points the tangent spans.
	Window int
	// CheckDepth is how far into the mask the candidate direction is probed.
	CheckDepth float64
	// CheckPoints is the number of probes, evenly spaced on [0, CheckDepth].
	CheckPoints int
	// MinInteriorRatio is the fraction of probes that must be foreground.
	MinInteriorRatio float64
}

// tangentEpsilon is the shortest tangent that still defines a direction.
const tangentEpsilon = 1e-10

// EstimateNormal returns the inward normal at point i of c.
//
// # Algorithm
//
// The tangent is the mean of the forward differences inside the window
// centred on i, which telescopes to (p[i+h] - p[i-h]) / 2h with h =
// Window/2. Both perpendiculars are probed against the mask at CheckPoints
// positions on [0, CheckDepth]; the one with more foreground hits wins, the
// left-hand perpendicular on a tie. The winner is validated if its interior
// ratio reaches MinInteriorRatio.
//
// A degenerate (zero) tangent yields an unvalidated normal with ratio 0.
func EstimateNormal(c contour.Contour, mask *imaging.Mask, i int, opts NormalOptions) NormalVector {
	p := c.At(i)
	nv := NormalVector{Point: p}

	h := max(opts.Window/2, 1)
	t := c.At(i + h).Sub(c.At(i - h)).Mul(1 / float64(2*h))
	if t.Norm() < tangentEpsilon {
		return nv
	}
	t = t.Normalize()
	nv.Tangent = t

	left := t.Ortho()
	right := left.Mul(-1)

	leftRatio := interiorRatio(mask, p, left, opts.CheckDepth, opts.CheckPoints)
	rightRatio := interiorRatio(mask, p, right, opts.CheckDepth, opts.CheckPoints)

	nv.Direction, nv.InteriorRatio = left, leftRatio
	if rightRatio > leftRatio {
		nv.Direction, nv.InteriorRatio = right, rightRatio
	}
	nv.Validated = nv.InteriorRatio >= opts.MinInteriorRatio
	return nv
}

// EstimateNormals runs EstimateNormal for every point of c.
func EstimateNormals(c contour.Contour, mask *imaging.Mask, opts NormalOptions) []NormalVector {
	out := make([]NormalVector, len(c))
	for i := range c {
		out[i] = EstimateNormal(c, mask, i, opts)
	}
	return out
}

// interiorRatio is the fraction of probes p + dir*d, d evenly spaced on
// [0, depth], that fall on foreground.
func interiorRatio(mask *imaging.Mask, p, dir r2.Point, depth float64, points int) float64 {
	if points <= 0 {
		return 0
	}
	if points == 1 {
		if mask.Contains(p) {
			return 1
		}
		return 0
	}

	hits := 0
	for j := 0; j < points; j++ {
		d := depth * float64(j) / float64(points-1)
		if mask.Contains(p.Add(dir.Mul(d))) {
			hits++
		}
	}
	return float64(hits) / float64(points)
}
