package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// CorrelationStatus tells whether a frame's correlation could be computed.
type CorrelationStatus string

const (
	CorrelationOK               CorrelationStatus = "ok"
	CorrelationInsufficientData CorrelationStatus = "insufficient_data"
)

// minPairs is the fewest complete measurements a correlation needs.
const minPairs = 3

// absoluteSpreadEpsilon is the standard deviation below which a series is
// constant regardless of its mean.
const absoluteSpreadEpsilon = 1e-12

// Correlation is the curvature/intensity correlation of one frame.
type Correlation struct {
	// Coefficient is Pearson's r, nil when Status is insufficient_data.
	Coefficient *float64          `json:"coefficient"`
	Pairs       int               `json:"pairs"`
	Status      CorrelationStatus `json:"status"`
}

// Pearson returns the Pearson correlation of x and y.
//
// A series counts as constant when its standard deviation is at most 1e-12,
// or at most minRelativeSpread times the absolute value of its mean.
//
// # Errors
//
//   - ErrInsufficientData for fewer than 3 pairs, mismatched lengths, a
//     constant series, or a non-finite result.
func Pearson(x, y []float64, minRelativeSpread float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: %d curvatures but %d intensities", ErrInsufficientData, len(x), len(y))
	}
	if len(x) < minPairs {
		return 0, fmt.Errorf("%w: %d pairs, need %d", ErrInsufficientData, len(x), minPairs)
	}
	if nearlyConstant(x, minRelativeSpread) {
		return 0, fmt.Errorf("%w: curvature has no variance", ErrInsufficientData)
	}
	if nearlyConstant(y, minRelativeSpread) {
		return 0, fmt.Errorf("%w: intensity has no variance", ErrInsufficientData)
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("%w: correlation is not finite", ErrInsufficientData)
	}
	return math.Max(-1, math.Min(1, r)), nil
}

func nearlyConstant(v []float64, minRelativeSpread float64) bool {
	mean, std := stat.MeanStdDev(v, nil)
	if !(std > absoluteSpreadEpsilon) {
		return true
	}
	return std <= minRelativeSpread*math.Abs(mean)
}

// Correlate pairs the measurements that have both a curvature and an
// intensity and correlates them. It never fails; a frame without enough
// data gets Status insufficient_data.
func Correlate(ms []Measurement, minRelativeSpread float64) Correlation {
	x, y := pairedSeries(ms)
	corr := Correlation{Pairs: len(x), Status: CorrelationInsufficientData}

	r, err := Pearson(x, y, minRelativeSpread)
	if err != nil {
		return corr
	}
	corr.Coefficient = &r
	corr.Status = CorrelationOK
	return corr
}

// pairedSeries returns the curvature and intensity of every complete
// measurement, in contour order.
func pairedSeries(ms []Measurement) (curvature, intensity []float64) {
	for _, m := range ms {
		if m.Curvature == nil || m.Intensity == nil {
			continue
		}
		curvature = append(curvature, *m.Curvature)
		intensity = append(intensity, *m.Intensity)
	}
	return curvature, intensity
}
