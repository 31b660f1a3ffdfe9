package analysis

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// SampleRegion is the rectangle, anchored on a contour point, over which
// intensity is measured. It extends Depth along the inward normal and Width
// across it, centred on the anchor.
type SampleRegion struct {
	Anchor  r2.Point `json:"anchor"`
	Normal  r2.Point `json:"normal"`
	Tangent r2.Point `json:"tangent"`
	Depth   float64  `json:"depth"`
	Width   float64  `json:"width"`

	// Corners are p − (w/2)t̂, p + (w/2)t̂, p + d·n̂ + (w/2)t̂, p + d·n̂ − (w/2)t̂.
	Corners [4]r2.Point `json:"corners"`

	// InBounds is true when every corner lies inside the image, shrunk by the
	// border margin.
	InBounds bool `json:"in_bounds"`
}

// NewSampleRegion builds the region for anchor p and unit inward normal n.
// The tangent is n rotated by −90°, so (t̂, n̂) is right-handed on screen.
func NewSampleRegion(p, n r2.Point, depth, width float64) SampleRegion {
	t := r2.Point{X: -n.Y, Y: n.X}
	half := t.Mul(width / 2)
	far := p.Add(n.Mul(depth))
	return SampleRegion{
		Anchor:  p,
		Normal:  n,
		Tangent: t,
		Depth:   depth,
		Width:   width,
		Corners: [4]r2.Point{
			p.Sub(half),
			p.Add(half),
			far.Add(half),
			far.Sub(half),
		},
	}
}

// Within reports whether all corners lie in [margin, size−1−margin] on both
// axes.
func (r SampleRegion) Within(width, height int, margin float64) bool {
	maxX := float64(width-1) - margin
	maxY := float64(height-1) - margin
	for _, c := range r.Corners {
		if c.X < margin || c.Y < margin || c.X > maxX || c.Y > maxY {
			return false
		}
	}
	return true
}

// RegionStats summarises the samples of one region.
type RegionStats struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Select returns the aggregate named by mt; mean for anything unknown.
func (s RegionStats) Select(mt MeasurementType) float64 {
	switch mt {
	case MeasureMax:
		return s.Max
	case MeasureMin:
		return s.Min
	}
	return s.Mean
}

// IntensitySampler measures the fluorescence next to a contour point.
type IntensitySampler interface {
	Sample(img *imaging.Intensity, n NormalVector) (float64, SampleRegion, error)
}

// RegionSampler is the default IntensitySampler: it reads the image on a
// regular grid over the sampling rectangle and aggregates the values.
type RegionSampler struct {
	Depth         float64
	Width         float64
	Step          float64
	Interpolation Interpolation
	Measurement   MeasurementType
	BorderMargin  float64
}

// NewRegionSampler returns the sampler configured by cfg.
func NewRegionSampler(cfg Config) RegionSampler {
	return RegionSampler{
		Depth:         cfg.SamplingDepth,
		Width:         cfg.VectorWidth,
		Step:          cfg.SampleStep,
		Interpolation: cfg.Interpolation,
		Measurement:   cfg.MeasurementType,
		BorderMargin:  cfg.BorderMargin,
	}
}

// Sample implements IntensitySampler.
func (s RegionSampler) Sample(img *imaging.Intensity, n NormalVector) (float64, SampleRegion, error) {
	stats, region, err := s.Measure(img, n)
	if err != nil {
		return 0, region, err
	}
	return stats.Select(s.Measurement), region, nil
}

// Measure samples the region of n and returns every aggregate.
//
// # Algorithm
//
// Positions p + α·n̂ + β·t̂ are visited for α evenly spaced on [0, Depth] and
// β evenly spaced on [−Width/2, Width/2], each axis with about Step pixel
// spacing (at least two samples per non-empty axis). Positions whose pixel
// falls outside the image are skipped.
//
// # Errors
//
//   - ErrInvalidNormal if n is not validated
//   - ErrOutOfBounds if a corner of the region is outside the image (after
//     the border margin) or no sample could be read
func (s RegionSampler) Measure(img *imaging.Intensity, n NormalVector) (RegionStats, SampleRegion, error) {
	if !n.Validated {
		return RegionStats{}, SampleRegion{}, ErrInvalidNormal
	}

	region := NewSampleRegion(n.Point, n.Direction, s.Depth, s.Width)
	region.InBounds = region.Within(img.Width, img.Height, s.BorderMargin)
	if !region.InBounds {
		return RegionStats{}, region, fmt.Errorf("%w: region at (%.1f, %.1f)", ErrOutOfBounds, n.Point.X, n.Point.Y)
	}

	alphas := gridAxis(0, s.Depth, s.Step)
	betas := gridAxis(-s.Width/2, s.Width/2, s.Step)

	stats := RegionStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, a := range alphas {
		for _, b := range betas {
			q := n.Point.Add(region.Normal.Mul(a)).Add(region.Tangent.Mul(b))
			v, ok := s.read(img, q)
			if !ok {
				continue
			}
			sum += v
			stats.Count++
			stats.Min = math.Min(stats.Min, v)
			stats.Max = math.Max(stats.Max, v)
		}
	}
	if stats.Count == 0 {
		return RegionStats{}, region, fmt.Errorf("%w: no samples inside the image", ErrOutOfBounds)
	}
	stats.Mean = sum / float64(stats.Count)
	return stats, region, nil
}

// gridAxis returns evenly spaced values on [lo, hi] about step apart. A
// degenerate interval yields its single value.
func gridAxis(lo, hi, step float64) []float64 {
	span := hi - lo
	if span <= 0 {
		return []float64{lo}
	}
	count := max(2, int(math.Round(span/step))+1)
	out := make([]float64, count)
	for i := range out {
		out[i] = lo + span*float64(i)/float64(count-1)
	}
	return out
}

func (s RegionSampler) read(img *imaging.Intensity, q r2.Point) (float64, bool) {
	if s.Interpolation == InterpolationBilinear {
		return bilinear(img, q)
	}
	x, y := int(math.Round(q.X)), int(math.Round(q.Y))
	if !img.InBounds(x, y) {
		return 0, false
	}
	return img.At(x, y), true
}

// bilinear interpolates the four pixels around q. Neighbours beyond the last
// row or column are clamped to the edge.
func bilinear(img *imaging.Intensity, q r2.Point) (float64, bool) {
	x0, y0 := int(math.Floor(q.X)), int(math.Floor(q.Y))
	if !img.InBounds(x0, y0) {
		return 0, false
	}
	x1, y1 := min(x0+1, img.Width-1), min(y0+1, img.Height-1)
	fx, fy := q.X-float64(x0), q.Y-float64(y0)

	top := img.At(x0, y0)*(1-fx) + img.At(x1, y0)*fx
	bottom := img.At(x0, y1)*(1-fx) + img.At(x1, y1)*fx
	return top*(1-fy) + bottom*fy, true
}
