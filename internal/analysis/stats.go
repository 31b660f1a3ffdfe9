package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SeriesStats describes one measurement series of a frame.
type SeriesStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	P05    float64 `json:"p05"`
	P95    float64 `json:"p95"`
}

// Describe computes SeriesStats for values. Std is the sample standard
// deviation (0 for a single value). An empty series returns the zero value.
func Describe(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s := SeriesStats{
		Count:  len(values),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P05:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(values) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
	} else {
		s.Mean = values[0]
	}
	return s
}

// Regions splits the measured points by the sign of their curvature.
type Regions struct {
	// Convex holds the indices with curvature above the threshold (the
	// boundary bulges outward).
	Convex []int `json:"convex"`
	// Concave holds the indices with curvature below minus the threshold.
	Concave []int `json:"concave"`
}

// Classify returns the convex and concave point indices. Points without
// curvature, or within ±threshold of zero, are in neither set.
func Classify(ms []Measurement, threshold float64) Regions {
	r := Regions{Convex: []int{}, Concave: []int{}}
	for _, m := range ms {
		if m.Curvature == nil {
			continue
		}
		switch k := *m.Curvature; {
		case k > threshold:
			r.Convex = append(r.Convex, m.Index)
		case k < -threshold:
			r.Concave = append(r.Concave, m.Index)
		}
	}
	return r
}

// Summary is the per-frame digest reported next to the correlation.
type Summary struct {
	Curvature SeriesStats `json:"curvature"`
	Intensity SeriesStats `json:"intensity"`
	Regions   Regions     `json:"regions"`
}

// lowInteriorRatio is the interior ratio below which a validated normal is
// reported as a weak overlap with the cell.
const lowInteriorRatio = 0.5

// maxIntensityCV is the coefficient of variation above which the intensity
// series is reported as unusually noisy.
const maxIntensityCV = 1.0

// Summarize computes series statistics, region classification and the
// diagnostic warnings for a frame's measurements.
func Summarize(ms []Measurement, cfg Config) (Summary, []string) {
	var curv, intensity []float64
	for _, m := range ms {
		if m.Curvature != nil {
			curv = append(curv, *m.Curvature)
		}
		if m.Intensity != nil {
			intensity = append(intensity, *m.Intensity)
		}
	}

	sum := Summary{
		Curvature: Describe(curv),
		Intensity: Describe(intensity),
		Regions:   Classify(ms, cfg.ClassifyThreshold),
	}
	return sum, diagnose(ms, curv, sum, cfg)
}

func diagnose(ms []Measurement, curv []float64, sum Summary, cfg Config) []string {
	var warnings []string

	zero, degenerate := 0, 0
	for _, m := range ms {
		if m.Curvature != nil && *m.Curvature == 0 {
			zero++
		}
		if m.DegenerateFit {
			degenerate++
		}
	}
	if zero > 0 {
		warnings = append(warnings, fmt.Sprintf("%d points have zero curvature (%d degenerate fits)", zero, degenerate))
	}

	if len(curv) > 0 {
		abs := make([]float64, len(curv))
		for i, k := range curv {
			abs[i] = math.Abs(k)
		}
		sort.Float64s(abs)
		limit := 2 * stat.Quantile(0.99, stat.Empirical, abs, nil)
		extreme := 0
		for _, a := range abs {
			if a > limit {
				extreme++
			}
		}
		if extreme > 0 {
			warnings = append(warnings, fmt.Sprintf("%d points have extreme curvature (above %.4g)", extreme, limit))
		}
	}

	low, saturated := 0, 0
	for _, m := range ms {
		if m.Normal != nil && m.Normal.Validated && m.InteriorRatio < lowInteriorRatio {
			low++
		}
		if cfg.SaturationLevel > 0 && m.Sample != nil && m.Sample.Max >= cfg.SaturationLevel {
			saturated++
		}
	}
	if low > 0 {
		warnings = append(warnings, fmt.Sprintf("%d points have low interior overlap (< %.2f)", low, lowInteriorRatio))
	}
	if saturated > 0 {
		warnings = append(warnings, fmt.Sprintf("%d sampling regions contain saturated pixels (>= %g)", saturated, cfg.SaturationLevel))
	}

	if in := sum.Intensity; in.Count > 1 && in.Mean != 0 {
		if cv := in.Std / math.Abs(in.Mean); cv > maxIntensityCV {
			warnings = append(warnings, fmt.Sprintf("intensity coefficient of variation %.2f exceeds %.1f", cv, maxIntensityCV))
		}
	}

	return warnings
}
