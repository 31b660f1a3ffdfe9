package analysis

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/membrane-tools-mcp/internal/contour"
)

// PointCurvature is the curvature estimate at one contour point.
type PointCurvature struct {
	// Present is false when the point has no validated normal; the other
	// fields are then zero.
	Present bool `json:"present"`

	// Value is the signed curvature in 1/physical unit. Positive where the
	// boundary bulges outward (a disk is positive everywhere), negative in
	// indentations.
	Value float64 `json:"value"`

	// Degenerate is set when no circle could be fitted (near-collinear
	// segment); Value is then 0.
	Degenerate bool `json:"degenerate,omitempty"`

	// Center is the centre of curvature in pixel coordinates, when known.
	Center *r2.Point `json:"center,omitempty"`
}

// CurvatureEstimator turns a resampled contour and its normals into one
// curvature per point. Implementations must be deterministic.
type CurvatureEstimator interface {
	Estimate(c contour.Contour, normals []NormalVector) []PointCurvature
}

// Circle is a fitted circle in pixel coordinates.
type Circle struct {
	Center r2.Point `json:"center"`
	Radius float64  `json:"radius"`
}

// collinearEpsilon bounds |v₀| relative to the eigenvector norm below which
// the fitted conic is treated as a line.
const collinearEpsilon = 1e-8

// FitCircle fits a circle to points by algebraic least squares with the
// Taubin-style constraint 4A² + B² + C² = 1 on A(x²+y²) + Bx + Cy + D = 0.
//
// # Algorithm
//
//  1. Centre the points on their mean and scale them so that
//     mean(x² + y²) = 1. In these coordinates D = −A.
//  2. Build rows [zᵢ − 1, xᵢ, yᵢ] with zᵢ = xᵢ² + yᵢ² and M = ZᵀZ.
//  3. Solve M v = λ B v with B = diag(4, 1, 1) by diagonalising
//     B^{-1/2} M B^{-1/2} (symmetricEigen3) and mapping back.
//  4. Take the eigenvector of the eigenvalue closest to zero (ties to the
//     lowest index): centre (−v₁/2v₀, −v₂/2v₀), radius √(a² + b² + 1),
//     all undone through the scaling of step 1.
//
// # Errors
//
//   - ErrDegenerateFit for fewer than 3 points, coincident points,
//     near-collinear points, or a non-positive radius term.
func FitCircle(points []r2.Point) (Circle, error) {
	n := len(points)
	if n < 3 {
		return Circle{}, fmt.Errorf("%w: %d points", ErrDegenerateFit, n)
	}

	var mean r2.Point
	for _, p := range points {
		mean = mean.Add(p)
	}
	mean = mean.Mul(1 / float64(n))

	var spread float64
	for _, p := range points {
		d := p.Sub(mean)
		spread += d.Dot(d)
	}
	spread /= float64(n)
	if spread < 1e-20 {
		return Circle{}, fmt.Errorf("%w: coincident points", ErrDegenerateFit)
	}
	scale := math.Sqrt(spread)

	var m mat3
	for _, p := range points {
		d := p.Sub(mean).Mul(1 / scale)
		row := [3]float64{d.Dot(d) - 1, d.X, d.Y}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				m[i][j] += row[i] * row[j]
			}
		}
	}

	// B^{-1/2} = diag(1/2, 1, 1)
	invRoot := [3]float64{0.5, 1, 1}
	var cm mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cm[i][j] = m[i][j] * invRoot[i] * invRoot[j]
		}
	}

	vals, vecs := symmetricEigen3(cm)
	k := 0
	for i := 1; i < 3; i++ {
		if math.Abs(vals[i]) < math.Abs(vals[k]) {
			k = i
		}
	}
	v0 := vecs[0][k] * invRoot[0]
	v1 := vecs[1][k] * invRoot[1]
	v2 := vecs[2][k] * invRoot[2]

	norm := math.Sqrt(v0*v0 + v1*v1 + v2*v2)
	if math.Abs(v0) <= collinearEpsilon*norm {
		return Circle{}, fmt.Errorf("%w: collinear points", ErrDegenerateFit)
	}

	a := -v1 / (2 * v0)
	b := -v2 / (2 * v0)
	radicand := a*a + b*b + 1
	if !(radicand > 0) || math.IsInf(radicand, 0) {
		return Circle{}, fmt.Errorf("%w: radius term %v", ErrDegenerateFit, radicand)
	}

	circle := Circle{
		Center: r2.Point{X: mean.X + a*scale, Y: mean.Y + b*scale},
		Radius: math.Sqrt(radicand) * scale,
	}
	if math.IsNaN(circle.Radius) || math.IsInf(circle.Center.X, 0) || math.IsInf(circle.Center.Y, 0) {
		return Circle{}, fmt.Errorf("%w: non-finite fit", ErrDegenerateFit)
	}
	return circle, nil
}

// signedCurvature applies the sign convention shared by all estimators:
// magnitude k is negated when the centre of curvature lies on the outward
// side of the boundary at p.
func signedCurvature(k float64, p, center r2.Point, n NormalVector) float64 {
	if center.Sub(p).Dot(n.Outward()) > 0 {
		return -k
	}
	return k
}

// CircleFitEstimator fits a circle to a centred segment of SegmentLength
// points at every contour point.
type CircleFitEstimator struct {
	// SegmentLength is the odd number of points per fit.
	SegmentLength int
	// PixelSize divides the curvature to convert it to physical units.
	PixelSize float64
}

// Estimate implements CurvatureEstimator.
//
// Points without a validated normal get no curvature. A degenerate fit, or a
// radius below half the segment length in pixels, yields curvature 0 with
// Degenerate set.
func (e CircleFitEstimator) Estimate(c contour.Contour, normals []NormalVector) []PointCurvature {
	out := make([]PointCurvature, len(c))
	length := contour.NormalizeWindow(e.SegmentLength, len(c))
	minRadius := float64(e.SegmentLength) / 2
	pixel := pixelSizeOrOne(e.PixelSize)

	for i := range c {
		if i >= len(normals) || !normals[i].Validated {
			continue
		}
		out[i].Present = true

		circle, err := FitCircle(c.Segment(i, length))
		if err != nil || circle.Radius < minRadius {
			out[i].Degenerate = true
			continue
		}
		center := circle.Center
		out[i].Center = &center
		out[i].Value = signedCurvature(1/circle.Radius, c[i], center, normals[i]) / pixel
	}
	return out
}

// curvatureDenominatorEpsilon is the smallest (x′² + y′²)^1.5 that still
// yields a finite-difference curvature.
const curvatureDenominatorEpsilon = 1e-10

// DifferentialEstimator computes κ = (x′y″ − y′x″) / (x′² + y′²)^1.5 with
// periodic central differences.
type DifferentialEstimator struct {
	PixelSize float64
}

// Estimate implements CurvatureEstimator.
func (e DifferentialEstimator) Estimate(c contour.Contour, normals []NormalVector) []PointCurvature {
	out := make([]PointCurvature, len(c))
	pixel := pixelSizeOrOne(e.PixelSize)

	for i := range c {
		if i >= len(normals) || !normals[i].Validated {
			continue
		}
		out[i].Present = true
		if len(c) < 3 {
			out[i].Degenerate = true
			continue
		}

		prev, cur, next := c.At(i-1), c.At(i), c.At(i+1)
		d1 := next.Sub(prev).Mul(0.5)
		d2 := next.Sub(cur.Mul(2)).Add(prev)

		den := math.Pow(d1.Dot(d1), 1.5)
		if den < curvatureDenominatorEpsilon {
			out[i].Degenerate = true
			continue
		}
		k := d1.Cross(d2) / den
		if k == 0 {
			continue
		}

		// The centre lies on the side of the tangent that d2 bends toward.
		toCenter := d1.Ortho().Normalize()
		if k < 0 {
			toCenter = toCenter.Mul(-1)
		}
		mag := math.Abs(k)
		center := cur.Add(toCenter.Mul(1 / mag))
		out[i].Center = &center
		out[i].Value = signedCurvature(mag, cur, center, normals[i]) / pixel
	}
	return out
}

func pixelSizeOrOne(p float64) float64 {
	if p <= 0 {
		return 1
	}
	return p
}

// NewCurvatureEstimator returns the estimator named by cfg.CurvatureMethod.
func NewCurvatureEstimator(cfg Config) (CurvatureEstimator, error) {
	switch cfg.CurvatureMethod {
	case CurvatureCircleFit:
		return CircleFitEstimator{SegmentLength: cfg.SegmentLength, PixelSize: cfg.PixelSize}, nil
	case CurvatureDifferential:
		return DifferentialEstimator{PixelSize: cfg.PixelSize}, nil
	}
	return nil, fmt.Errorf("%w: unknown curvature method %q", ErrInvalidConfig, cfg.CurvatureMethod)
}
