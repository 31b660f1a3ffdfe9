package analysis

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/membrane-tools-mcp/internal/contour"
	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// Measurement is everything recorded for one resampled contour point.
// Curvature and Intensity are nil when absent; such points are kept in the
// result but left out of the correlation.
type Measurement struct {
	Index         int           `json:"index"`
	Position      r2.Point      `json:"position"`
	Normal        *NormalVector `json:"normal,omitempty"`
	Curvature     *float64      `json:"curvature"`
	Intensity     *float64      `json:"intensity"`
	InteriorRatio float64       `json:"interior_ratio"`
	Region        *SampleRegion `json:"region,omitempty"`
	Sample        *RegionStats  `json:"sample,omitempty"`

	DegenerateFit bool `json:"degenerate_fit,omitempty"`
	InvalidNormal bool `json:"invalid_normal,omitempty"`
	OutOfBounds   bool `json:"out_of_bounds,omitempty"`
}

// FrameStatus is the outcome of one frame.
type FrameStatus string

const (
	FrameOK     FrameStatus = "ok"
	FrameFailed FrameStatus = "failed"
)

// FrameResult is the analysis of one frame.
type FrameResult struct {
	FrameIndex int         `json:"frame_index"`
	Status     FrameStatus `json:"status"`
	Error      string      `json:"error,omitempty"`

	// ContourPoints is the length of the traced boundary before smoothing.
	ContourPoints int `json:"contour_points"`
	// ResampledPoints is the number of measured points; below the target
	// when the contour was too short for the requested spacing.
	ResampledPoints   int  `json:"resampled_points"`
	SmoothingFallback bool `json:"smoothing_fallback,omitempty"`

	// Contour is the resampled contour the measurements are anchored on.
	Contour      contour.Contour `json:"contour,omitempty"`
	Measurements []Measurement   `json:"measurements"`
	Correlation  Correlation     `json:"correlation"`
	Summary      *Summary        `json:"summary,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// failedResult records a frame-level error.
func failedResult(index int, err error) FrameResult {
	return FrameResult{
		FrameIndex: index,
		Status:     FrameFailed,
		Error:      err.Error(),
		Correlation: Correlation{
			Status: CorrelationInsufficientData,
		},
	}
}

// Session carries state from one frame to the next within a single caller.
// The previous frame's contour is only used to pre-size buffers; results
// never depend on it. A Session is not safe for concurrent use.
type Session struct {
	previous contour.Contour
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Previous returns the raw contour of the last frame analysed with this
// session, or nil.
func (s *Session) Previous() contour.Contour {
	if s == nil {
		return nil
	}
	return s.previous
}

func (s *Session) capacityHint() int {
	if s == nil {
		return 0
	}
	return len(s.previous)
}

func (s *Session) remember(c contour.Contour) {
	if s != nil {
		s.previous = c
	}
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sends pipeline diagnostics to l. Without it they are discarded.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCurvatureEstimator replaces the estimator selected by the config.
func WithCurvatureEstimator(e CurvatureEstimator) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.curvature = e
		}
	}
}

// WithIntensitySampler replaces the default RegionSampler.
func WithIntensitySampler(s IntensitySampler) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sampler = s
		}
	}
}

// Pipeline runs the per-frame analysis with a fixed configuration. It holds
// no mutable state and may be used from several goroutines at once.
type Pipeline struct {
	cfg       Config
	curvature CurvatureEstimator
	sampler   IntensitySampler
	logger    *log.Logger
}

// NewPipeline validates cfg and builds the estimators it names.
//
// # Errors
//
//   - ErrInvalidConfig (possibly several, see Config.Validate)
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	est, err := NewCurvatureEstimator(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		curvature: est,
		sampler:   NewRegionSampler(cfg),
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// PrepareContour runs extraction, smoothing and resampling on a mask and
// returns the raw and resampled contours.
func (p *Pipeline) PrepareContour(mask *imaging.Mask, session *Session) (raw, resampled contour.Contour, fallback, reduced bool, err error) {
	raw, err = contour.Extract(mask, p.cfg.extractOptions(session.capacityHint()))
	if err != nil {
		return nil, nil, false, false, err
	}

	smoothed, fallback := contour.Smooth(raw, p.cfg.smoothOptions())
	resampled, reduced, err = contour.Resample(smoothed, p.cfg.TargetPoints)
	if err != nil {
		return nil, nil, fallback, reduced, fmt.Errorf("failed to resample contour: %w", err)
	}
	return raw, resampled, fallback, reduced, nil
}

// regionMeasurer is implemented by samplers that can report min and max
// alongside the aggregated value.
type regionMeasurer interface {
	Measure(img *imaging.Intensity, n NormalVector) (RegionStats, SampleRegion, error)
}

// AnalyzeFrame runs the whole pipeline on one frame.
//
// Point-level problems (unvalidated normal, degenerate fit, sampling region
// outside the image) are recorded on the Measurement. The frame's correlation
// is insufficient_data when fewer than three points are complete.
//
// session may be nil.
//
// # Errors
//
//   - ErrShapeMismatch if mask and intensity differ in size
//   - ErrNoContourFound if the mask holds no usable object
//   - contour.ErrTooFewPoints if the contour is too short to resample
func (p *Pipeline) AnalyzeFrame(frame imaging.Frame, session *Session) (*FrameResult, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	raw, resampled, fallback, reduced, err := p.PrepareContour(frame.Mask, session)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
	}

	var warnings []string
	if fallback {
		warnings = append(warnings, "polynomial smoothing was singular; contour left unsmoothed")
	}
	if reduced {
		warnings = append(warnings, fmt.Sprintf("contour too short for %d points; resampled to %d", p.cfg.TargetPoints, len(resampled)))
	}

	normals := EstimateNormals(resampled, frame.Mask, p.cfg.normalOptions())
	curvatures := p.curvature.Estimate(resampled, normals)

	measurements := make([]Measurement, len(resampled))
	for i, pt := range resampled {
		m := Measurement{Index: i, Position: pt}
		n := normals[i]
		m.Normal = &n
		m.InteriorRatio = n.InteriorRatio

		if !n.Validated {
			m.InvalidNormal = true
			measurements[i] = m
			continue
		}

		if i < len(curvatures) && curvatures[i].Present {
			k := curvatures[i].Value
			m.Curvature = &k
			m.DegenerateFit = curvatures[i].Degenerate
		}

		p.sample(frame.Intensity, n, &m)
		measurements[i] = m
	}

	corr := Correlate(measurements, p.cfg.MinRelativeSpread)
	summary, diag := Summarize(measurements, p.cfg)
	warnings = append(warnings, diag...)

	for _, w := range warnings {
		p.logger.Printf("frame %d: %s", frame.Index, w)
	}
	session.remember(raw)

	return &FrameResult{
		FrameIndex:        frame.Index,
		Status:            FrameOK,
		ContourPoints:     len(raw),
		ResampledPoints:   len(resampled),
		SmoothingFallback: fallback,
		Contour:           resampled,
		Measurements:      measurements,
		Correlation:       corr,
		Summary:           &summary,
		Warnings:          warnings,
	}, nil
}

// sample fills the intensity fields of m.
func (p *Pipeline) sample(img *imaging.Intensity, n NormalVector, m *Measurement) {
	var (
		value  float64
		region SampleRegion
		err    error
	)
	if rm, ok := p.sampler.(regionMeasurer); ok {
		var stats RegionStats
		stats, region, err = rm.Measure(img, n)
		if err == nil {
			m.Sample = &stats
			value = stats.Select(p.cfg.MeasurementType)
		}
	} else {
		value, region, err = p.sampler.Sample(img, n)
	}

	switch {
	case err == nil:
		m.Intensity = &value
		m.Region = &region
	case errors.Is(err, ErrOutOfBounds):
		m.OutOfBounds = true
		m.Region = &region
	case errors.Is(err, ErrInvalidNormal):
		m.InvalidNormal = true
	default:
		p.logger.Printf("sampling point %d failed: %v", m.Index, err)
	}
}
