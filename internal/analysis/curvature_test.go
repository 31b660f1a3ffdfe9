package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
)

func TestSymmetricEigen3(t *testing.T) {
	tests := []struct {
		name string
		a    mat3
	}{
		{"diagonal", mat3{{3, 0, 0}, {0, 1, 0}, {0, 0, 2}}},
		{"dense", mat3{{4, 1, -2}, {1, 2, 0.5}, {-2, 0.5, 3}}},
		{"rank deficient", mat3{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}}},
		{"zero", mat3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals, vecs := symmetricEigen3(tt.a)
			for k := 0; k < 3; k++ {
				var norm float64
				for i := 0; i < 3; i++ {
					var av float64
					for j := 0; j < 3; j++ {
						av += tt.a[i][j] * vecs[j][k]
					}
					if d := math.Abs(av - vals[k]*vecs[i][k]); d > 1e-9 {
						t.Errorf("eigenpair %d: residual %.3g in row %d", k, d, i)
					}
					norm += vecs[i][k] * vecs[i][k]
				}
				if math.Abs(norm-1) > 1e-9 {
					t.Errorf("eigenvector %d has norm² %v", k, norm)
				}
			}
		})
	}
}

func TestFitCircle(t *testing.T) {
	const r = 20.0
	centre := r2.Point{X: 3, Y: -4}
	pts := make([]r2.Point, 9)
	for i := range pts {
		a := 0.2 + float64(i)*math.Pi/24
		pts[i] = r2.Point{X: centre.X + r*math.Cos(a), Y: centre.Y + r*math.Sin(a)}
	}

	c, err := FitCircle(pts)
	if err != nil {
		t.Fatalf("FitCircle failed: %v", err)
	}
	if math.Abs(c.Radius-r) > 1e-6 {
		t.Errorf("Radius = %v, want %v", c.Radius, r)
	}
	if c.Center.Sub(centre).Norm() > 1e-6 {
		t.Errorf("Center = %v, want %v", c.Center, centre)
	}
}

func TestFitCircle_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		pts  []r2.Point
	}{
		{"too few", []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		{"coincident", []r2.Point{{X: 2, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 2}}},
		{"collinear", []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: 4}, {X: 3, Y: 6}, {X: 4, Y: 8}}},
		{"horizontal", []r2.Point{{X: 10, Y: 5}, {X: 14, Y: 5}, {X: 18, Y: 5}, {X: 22, Y: 5}, {X: 26, Y: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FitCircle(tt.pts); !errors.Is(err, ErrDegenerateFit) {
				t.Errorf("FitCircle error = %v, want ErrDegenerateFit", err)
			}
		})
	}
}

func TestCircleFitEstimator_Disk(t *testing.T) {
	const r = 40.0
	est := CircleFitEstimator{SegmentLength: 9, PixelSize: 1}

	for _, phase := range []float64{0, 0.37, 2.1} {
		c := circleContour(75, 100, 100, r, phase)
		got := est.Estimate(c, radialNormals(c, 100, 100, false))
		for i, k := range got {
			if !k.Present || k.Degenerate {
				t.Fatalf("phase %v point %d: present=%v degenerate=%v", phase, i, k.Present, k.Degenerate)
			}
			if math.Abs(k.Value-1/r) > 1e-9 {
				t.Errorf("phase %v point %d: curvature %v, want %v", phase, i, k.Value, 1/r)
			}
		}
	}
}

func TestCircleFitEstimator_StartIndexInvariance(t *testing.T) {
	c := circleContour(60, 50, 50, 25, 0)
	c[10].X += 0.8
	c[11].Y -= 0.5

	rotated := append(c[7:].Clone(), c[:7]...)
	est := CircleFitEstimator{SegmentLength: 9, PixelSize: 1}

	a := est.Estimate(c, radialNormals(c, 50, 50, false))
	b := est.Estimate(rotated, radialNormals(rotated, 50, 50, false))
	for i := range c {
		j := (i - 7 + len(c)) % len(c)
		if math.Abs(a[i].Value-b[j].Value) > 1e-9 {
			t.Errorf("point %d: curvature %v, rotated %v", i, a[i].Value, b[j].Value)
		}
	}
}

func TestCircleFitEstimator_SignAndUnits(t *testing.T) {
	const r = 30.0
	c := circleContour(80, 0, 0, r, 0)

	concave := CircleFitEstimator{SegmentLength: 9, PixelSize: 1}.Estimate(c, radialNormals(c, 0, 0, true))
	for i, k := range concave {
		if math.Abs(k.Value+1/r) > 1e-9 {
			t.Fatalf("point %d: curvature %v, want %v", i, k.Value, -1/r)
		}
	}

	scaled := CircleFitEstimator{SegmentLength: 9, PixelSize: 0.5}.Estimate(c, radialNormals(c, 0, 0, false))
	if math.Abs(scaled[0].Value-2/r) > 1e-9 {
		t.Errorf("curvature with 0.5 pixel size = %v, want %v", scaled[0].Value, 2/r)
	}
}

func TestCircleFitEstimator_Absent(t *testing.T) {
	c := circleContour(30, 0, 0, 20, 0)
	normals := radialNormals(c, 0, 0, false)
	normals[4].Validated = false

	got := CircleFitEstimator{SegmentLength: 9, PixelSize: 1}.Estimate(c, normals)
	if got[4].Present || got[4].Value != 0 {
		t.Errorf("unvalidated point: %+v, want absent", got[4])
	}
	if !got[5].Present {
		t.Error("validated neighbour is absent")
	}
}

func TestCircleFitEstimator_StraightLine(t *testing.T) {
	// A long thin rectangle contour: points on the straight sides fit lines.
	var c []r2.Point
	for x := 0.0; x < 200; x += 4 {
		c = append(c, r2.Point{X: x, Y: 0})
	}
	for x := 200.0; x > 0; x -= 4 {
		c = append(c, r2.Point{X: x, Y: 50})
	}
	normals := make([]NormalVector, len(c))
	for i, p := range c {
		dir := r2.Point{Y: 1}
		if p.Y > 0 {
			dir = r2.Point{Y: -1}
		}
		normals[i] = NormalVector{Point: p, Direction: dir, Validated: true}
	}

	got := CircleFitEstimator{SegmentLength: 9, PixelSize: 1}.Estimate(c, normals)
	for _, i := range []int{10, 25, 60, 80} {
		if !got[i].Degenerate || got[i].Value != 0 {
			t.Errorf("point %d on a straight side: %+v, want degenerate zero", i, got[i])
		}
	}
}

func TestDifferentialEstimator(t *testing.T) {
	const r = 50.0
	c := circleContour(200, 0, 0, r, 0.1)

	convex := DifferentialEstimator{PixelSize: 1}.Estimate(c, radialNormals(c, 0, 0, false))
	concave := DifferentialEstimator{PixelSize: 1}.Estimate(c, radialNormals(c, 0, 0, true))
	for i := range c {
		if math.Abs(convex[i].Value-1/r)/(1/r) > 0.01 {
			t.Errorf("point %d: curvature %v, want %v", i, convex[i].Value, 1/r)
		}
		if math.Abs(concave[i].Value+1/r)/(1/r) > 0.01 {
			t.Errorf("point %d: concave curvature %v, want %v", i, concave[i].Value, -1/r)
		}
	}

	// Reversing the traversal direction must not change the sign.
	reversed := make([]r2.Point, len(c))
	for i := range c {
		reversed[i] = c[len(c)-1-i]
	}
	rev := DifferentialEstimator{PixelSize: 1}.Estimate(reversed, radialNormals(reversed, 0, 0, false))
	if rev[0].Value <= 0 {
		t.Errorf("reversed contour curvature = %v, want positive", rev[0].Value)
	}

	// Repeated points have no derivative.
	still := []r2.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}
	got := DifferentialEstimator{PixelSize: 1}.Estimate(still, radialNormals(still, 0, 0, false))
	if !got[1].Degenerate || got[1].Value != 0 {
		t.Errorf("repeated points: %+v, want degenerate zero", got[1])
	}
}

func TestNewCurvatureEstimator(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := mustEstimator(t, cfg).(CircleFitEstimator); !ok {
		t.Error("default estimator is not CircleFitEstimator")
	}
	cfg.CurvatureMethod = CurvatureDifferential
	if _, ok := mustEstimator(t, cfg).(DifferentialEstimator); !ok {
		t.Error("differential estimator is not DifferentialEstimator")
	}
	cfg.CurvatureMethod = "spline"
	if _, err := NewCurvatureEstimator(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown method error = %v, want ErrInvalidConfig", err)
	}
}

func mustEstimator(t *testing.T, cfg Config) CurvatureEstimator {
	t.Helper()
	e, err := NewCurvatureEstimator(cfg)
	if err != nil {
		t.Fatalf("NewCurvatureEstimator failed: %v", err)
	}
	return e
}
