package imaging

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// ErrShapeMismatch is returned when a frame's mask and intensity image do
// not have identical dimensions.
var ErrShapeMismatch = errors.New("mask and intensity dimensions differ")

// Mask is a binary segmentation of one frame. A pixel is foreground when its
// value is non-zero.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask returns an all-background mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// InBounds reports whether (x, y) is a pixel of the mask.
func (m *Mask) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At reports whether pixel (x, y) is foreground. Pixels outside the image
// are background.
func (m *Mask) At(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Set marks pixel (x, y) as foreground or background. Out of range
// coordinates are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if !m.InBounds(x, y) {
		return
	}
	if on {
		m.Pix[y*m.Width+x] = 1
	} else {
		m.Pix[y*m.Width+x] = 0
	}
}

// Contains reports whether the continuous point p falls on a foreground
// pixel, using nearest-pixel lookup.
func (m *Mask) Contains(p r2.Point) bool {
	return m.At(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{Width: m.Width, Height: m.Height, Pix: pix}
}

// Intensity is a single-channel fluorescence image with real-valued pixels.
type Intensity struct {
	Width  int
	Height int
	Pix    []float64
}

// NewIntensity returns a zero-valued intensity image of the given size.
func NewIntensity(width, height int) *Intensity {
	return &Intensity{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// InBounds reports whether (x, y) is a pixel of the image.
func (im *Intensity) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < im.Width && y < im.Height
}

// At returns the value of pixel (x, y). The caller must check InBounds.
func (im *Intensity) At(x, y int) float64 {
	return im.Pix[y*im.Width+x]
}

// Set stores v at pixel (x, y). Out of range coordinates are ignored.
func (im *Intensity) Set(x, y int, v float64) {
	if !im.InBounds(x, y) {
		return
	}
	im.Pix[y*im.Width+x] = v
}

// Range returns the minimum and maximum pixel value. An empty image
// returns (0, 0).
func (im *Intensity) Range() (lo, hi float64) {
	if len(im.Pix) == 0 {
		return 0, 0
	}
	lo, hi = im.Pix[0], im.Pix[0]
	for _, v := range im.Pix[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Frame is one time point of a recording: the segmentation mask and the
// fluorescence image it was derived from.
type Frame struct {
	Index     int
	Mask      *Mask
	Intensity *Intensity
}

// Validate checks that both arrays are present and share dimensions.
func (f Frame) Validate() error {
	if f.Mask == nil || f.Intensity == nil {
		return fmt.Errorf("frame %d: mask and intensity are required", f.Index)
	}
	if f.Mask.Width != f.Intensity.Width || f.Mask.Height != f.Intensity.Height {
		return fmt.Errorf("frame %d: mask is %dx%d, intensity is %dx%d: %w",
			f.Index, f.Mask.Width, f.Mask.Height, f.Intensity.Width, f.Intensity.Height, ErrShapeMismatch)
	}
	if len(f.Mask.Pix) != f.Mask.Width*f.Mask.Height || len(f.Intensity.Pix) != f.Intensity.Width*f.Intensity.Height {
		return fmt.Errorf("frame %d: pixel buffer does not match dimensions: %w", f.Index, ErrShapeMismatch)
	}
	return nil
}
