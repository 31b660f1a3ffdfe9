package analysis

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/ironsheep/membrane-tools-mcp/internal/contour"
)

// CurvatureMethod selects the curvature estimator.
type CurvatureMethod string

const (
	// CurvatureCircleFit fits a circle to a sliding segment of the contour.
	CurvatureCircleFit CurvatureMethod = "circle_fit"
	// CurvatureDifferential uses finite-difference derivatives.
	CurvatureDifferential CurvatureMethod = "differential"
)

// Interpolation selects how sampling positions are read from the image.
type Interpolation string

const (
	InterpolationNearest  Interpolation = "nearest"
	InterpolationBilinear Interpolation = "bilinear"
)

// MeasurementType selects how the samples of one region are aggregated.
type MeasurementType string

const (
	MeasureMean MeasurementType = "mean"
	MeasureMax  MeasurementType = "max"
	MeasureMin  MeasurementType = "min"
)

// Config holds every tunable of the analysis. It is read-only once a
// Pipeline has been built from it and may be shared between goroutines.
//
// Lengths are in pixels unless stated otherwise.
type Config struct {
	// Contour extraction.
	MinObjectSize   int `json:"min_object_size" mapstructure:"min_object_size"`
	MorphKernelSize int `json:"morph_kernel_size" mapstructure:"morph_kernel_size"`

	// Smoothing. Windows are counted in contour points.
	SmoothingMethod contour.SmoothMethod `json:"smoothing_method" mapstructure:"smoothing_method"`
	SmoothingWindow int                  `json:"smoothing_window" mapstructure:"smoothing_window"`
	SmoothingSigma  float64              `json:"smoothing_sigma" mapstructure:"smoothing_sigma"`
	PolyOrder       int                  `json:"poly_order" mapstructure:"poly_order"`

	// Resampling.
	TargetPoints int `json:"target_points" mapstructure:"target_points"`

	// Curvature. SegmentLength is an odd number of resampled points.
	// PixelSize converts results to 1/physical unit.
	SegmentLength   int             `json:"segment_length" mapstructure:"segment_length"`
	CurvatureMethod CurvatureMethod `json:"curvature_method" mapstructure:"curvature_method"`
	PixelSize       float64         `json:"pixel_size" mapstructure:"pixel_size"`

	// Normal estimation.
	NormalWindow     int     `json:"normal_window" mapstructure:"normal_window"`
	CheckDepth       float64 `json:"check_depth" mapstructure:"check_depth"`
	CheckPoints      int     `json:"check_points" mapstructure:"check_points"`
	MinInteriorRatio float64 `json:"min_interior_ratio" mapstructure:"min_interior_ratio"`

	// Intensity sampling.
	SamplingDepth   float64         `json:"sampling_depth" mapstructure:"sampling_depth"`
	VectorWidth     float64         `json:"vector_width" mapstructure:"vector_width"`
	SampleStep      float64         `json:"sample_step" mapstructure:"sample_step"`
	Interpolation   Interpolation   `json:"interpolation" mapstructure:"interpolation"`
	MeasurementType MeasurementType `json:"measurement_type" mapstructure:"measurement_type"`
	BorderMargin    float64         `json:"border_margin" mapstructure:"border_margin"`

	// Reporting. A series whose standard deviation is at most
	// MinRelativeSpread times its absolute mean counts as constant.
	// SaturationLevel 0 disables the saturation warning.
	MinRelativeSpread float64 `json:"min_relative_spread" mapstructure:"min_relative_spread"`
	ClassifyThreshold float64 `json:"classify_threshold" mapstructure:"classify_threshold"`
	SaturationLevel   float64 `json:"saturation_level" mapstructure:"saturation_level"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MinObjectSize:     100,
		MorphKernelSize:   3,
		SmoothingMethod:   contour.SmoothGaussian,
		SmoothingWindow:   5,
		SmoothingSigma:    1.0,
		PolyOrder:         2,
		TargetPoints:      75,
		SegmentLength:     9,
		CurvatureMethod:   CurvatureCircleFit,
		PixelSize:         1.0,
		NormalWindow:      5,
		CheckDepth:        5,
		CheckPoints:       5,
		MinInteriorRatio:  0.6,
		SamplingDepth:     10,
		VectorWidth:       5,
		SampleStep:        0.5,
		Interpolation:     InterpolationNearest,
		MeasurementType:   MeasureMean,
		BorderMargin:      0,
		MinRelativeSpread: 0.01,
		ClassifyThreshold: 0,
		SaturationLevel:   0,
	}
}

// Validate reports every out-of-range value at once. Each reported problem
// wraps ErrInvalidConfig; use multierr.Errors to list them.
func (c Config) Validate() error {
	var err error
	bad := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}
	finite := func(name string, v float64) bool {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad("%s must be finite, got %v", name, v)
			return false
		}
		return true
	}

	if c.MinObjectSize < 0 {
		bad("min_object_size must be >= 0, got %d", c.MinObjectSize)
	}
	if c.MorphKernelSize < 0 {
		bad("morph_kernel_size must be >= 0, got %d", c.MorphKernelSize)
	} else if c.MorphKernelSize > 1 && c.MorphKernelSize%2 == 0 {
		bad("morph_kernel_size must be odd so the opening stays centred, got %d", c.MorphKernelSize)
	}

	switch c.SmoothingMethod {
	case contour.SmoothGaussian, contour.SmoothPolynomial:
	default:
		bad("smoothing_method must be %q or %q, got %q", contour.SmoothGaussian, contour.SmoothPolynomial, c.SmoothingMethod)
	}
	if c.SmoothingWindow < 0 {
		bad("smoothing_window must be >= 0, got %d", c.SmoothingWindow)
	}
	if finite("smoothing_sigma", c.SmoothingSigma) && c.SmoothingSigma < 0 {
		bad("smoothing_sigma must be >= 0, got %v", c.SmoothingSigma)
	}
	if c.PolyOrder < 0 {
		bad("poly_order must be >= 0, got %d", c.PolyOrder)
	}

	if c.TargetPoints < 3 {
		bad("target_points must be >= 3, got %d", c.TargetPoints)
	}

	if c.SegmentLength < 3 || c.SegmentLength%2 == 0 {
		bad("segment_length must be an odd number >= 3, got %d", c.SegmentLength)
	}
	switch c.CurvatureMethod {
	case CurvatureCircleFit, CurvatureDifferential:
	default:
		bad("curvature_method must be %q or %q, got %q", CurvatureCircleFit, CurvatureDifferential, c.CurvatureMethod)
	}
	if finite("pixel_size", c.PixelSize) && c.PixelSize <= 0 {
		bad("pixel_size must be > 0, got %v", c.PixelSize)
	}

	if c.NormalWindow < 3 || c.NormalWindow%2 == 0 {
		bad("normal_window must be an odd number >= 3, got %d", c.NormalWindow)
	}
	if finite("check_depth", c.CheckDepth) && c.CheckDepth <= 0 {
		bad("check_depth must be > 0, got %v", c.CheckDepth)
	}
	if c.CheckPoints < 5 {
		bad("check_points must be >= 5, got %d", c.CheckPoints)
	}
	if finite("min_interior_ratio", c.MinInteriorRatio) && (c.MinInteriorRatio < 0 || c.MinInteriorRatio > 1) {
		bad("min_interior_ratio must be within [0,1], got %v", c.MinInteriorRatio)
	}

	if finite("sampling_depth", c.SamplingDepth) && c.SamplingDepth < 0 {
		bad("sampling_depth must be >= 0, got %v", c.SamplingDepth)
	}
	if finite("vector_width", c.VectorWidth) && c.VectorWidth < 0 {
		bad("vector_width must be >= 0, got %v", c.VectorWidth)
	}
	if finite("sample_step", c.SampleStep) && c.SampleStep <= 0 {
		bad("sample_step must be > 0, got %v", c.SampleStep)
	}
	switch c.Interpolation {
	case InterpolationNearest, InterpolationBilinear:
	default:
		bad("interpolation must be %q or %q, got %q", InterpolationNearest, InterpolationBilinear, c.Interpolation)
	}
	switch c.MeasurementType {
	case MeasureMean, MeasureMax, MeasureMin:
	default:
		bad("measurement_type must be %q, %q or %q, got %q", MeasureMean, MeasureMax, MeasureMin, c.MeasurementType)
	}
	if finite("border_margin", c.BorderMargin) && c.BorderMargin < 0 {
		bad("border_margin must be >= 0, got %v", c.BorderMargin)
	}

	if finite("min_relative_spread", c.MinRelativeSpread) && c.MinRelativeSpread < 0 {
		bad("min_relative_spread must be >= 0, got %v", c.MinRelativeSpread)
	}
	if finite("classify_threshold", c.ClassifyThreshold) && c.ClassifyThreshold < 0 {
		bad("classify_threshold must be >= 0, got %v", c.ClassifyThreshold)
	}
	if finite("saturation_level", c.SaturationLevel) && c.SaturationLevel < 0 {
		bad("saturation_level must be >= 0, got %v", c.SaturationLevel)
	}

	return err
}

func (c Config) extractOptions(capHint int) contour.ExtractOptions {
	return contour.ExtractOptions{
		MinObjectSize:   c.MinObjectSize,
		MorphKernelSize: c.MorphKernelSize,
		CapacityHint:    capHint,
	}
}

func (c Config) smoothOptions() contour.SmoothOptions {
	return contour.SmoothOptions{
		Method:    c.SmoothingMethod,
		Window:    c.SmoothingWindow,
		Sigma:     c.SmoothingSigma,
		PolyOrder: c.PolyOrder,
	}
}

func (c Config) normalOptions() NormalOptions {
	return NormalOptions{
		Window:           c.NormalWindow,
		CheckDepth:       c.CheckDepth,
		CheckPoints:      c.CheckPoints,
		MinInteriorRatio: c.MinInteriorRatio,
	}
}
