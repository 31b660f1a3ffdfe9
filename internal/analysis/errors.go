package analysis

import (
	"errors"

	"github.com/ironsheep/membrane-tools-mcp/internal/contour"
	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// Frame-level errors abort the analysis of one frame. Point-level errors are
// recorded on the Measurement and never abort a frame.
var (
	// ErrNoContourFound: the mask holds no usable object (frame-level).
	ErrNoContourFound = contour.ErrNoContourFound

	// ErrShapeMismatch: mask and intensity differ in size (frame-level).
	ErrShapeMismatch = imaging.ErrShapeMismatch

	// ErrInvalidConfig: a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDegenerateFit: the circle fit is ill-conditioned, usually because
	// the segment is collinear. The point's curvature is reported as 0.
	ErrDegenerateFit = errors.New("degenerate circle fit")

	// ErrInvalidNormal: no inward direction reaches the interior ratio. The
	// point has neither curvature nor intensity.
	ErrInvalidNormal = errors.New("normal could not be validated")

	// ErrOutOfBounds: the sampling region leaves the image. The point has no
	// intensity.
	ErrOutOfBounds = errors.New("sampling region out of bounds")

	// ErrInsufficientData: fewer than three complete measurements, or a
	// series without variance. The frame's correlation is absent.
	ErrInsufficientData = errors.New("insufficient data for correlation")
)
