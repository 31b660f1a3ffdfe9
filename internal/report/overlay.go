package report

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/membrane-tools-mcp/internal/analysis"
	mimaging "github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// MaxOverlayScale bounds the upscaling factor of an overlay.
const MaxOverlayScale = 8

// ErrNoImage is returned when there is no intensity image to draw on.
var ErrNoImage = errors.New("no intensity image")

// OverlayOptions controls overlay rendering.
type OverlayOptions struct {
	// Scale is the integer upscaling factor (1..MaxOverlayScale). Zero means 1.
	Scale int `json:"scale"`

	// ContourColor is a hex color ("#RRGGBB" or "#RRGGBBAA") for the
	// contour polyline. Invalid or empty values fall back to yellow.
	ContourColor string `json:"contour_color"`

	// ShowRegions draws the outline of every sampling region.
	ShowRegions bool `json:"show_regions"`

	// CurvatureLimit is the |curvature| mapped to full color saturation.
	// Zero means the largest |curvature| of the frame.
	CurvatureLimit float64 `json:"curvature_limit"`

	// CropToCell trims the overlay to the contour's bounding box grown by
	// CropPadding source pixels on every side.
	CropToCell  bool `json:"crop_to_cell"`
	CropPadding int  `json:"crop_padding"`
}

// OverlayResult contains the rendered overlay.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Points      int    `json:"points"`
}

var (
	concaveColor = colorful.Color{R: 0.13, G: 0.4, B: 0.95}
	flatColor    = colorful.Color{R: 1, G: 1, B: 1}
	convexColor  = colorful.Color{R: 0.9, G: 0.12, B: 0.1}
	absentColor  = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
)

// CurvatureColor maps a signed curvature onto a diverging blue-white-red
// scale: concave points are blue, convex points red. Values beyond limit
// saturate.
func CurvatureColor(k, limit float64) color.NRGBA {
	t := 0.0
	if limit > 0 && !math.IsNaN(k) {
		t = math.Max(-1, math.Min(1, k/limit))
	}

	var c colorful.Color
	if t < 0 {
		c = flatColor.BlendLab(concaveColor, -t)
	} else {
		c = flatColor.BlendLab(convexColor, t)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Overlay renders the intensity image in grayscale with the frame's contour,
// every measured point colored by curvature, and optionally the sampling
// regions.
//
// Parameters:
//   - intensity: the frame's fluorescence image
//   - res: an analysed frame (Status ok)
//   - opts: rendering options
//
// Returns the PNG as base64.
func Overlay(intensity *mimaging.Intensity, res *analysis.FrameResult, opts OverlayOptions) (*OverlayResult, error) {
	if intensity == nil || intensity.Width == 0 || intensity.Height == 0 {
		return nil, ErrNoImage
	}
	if res == nil || res.Status != analysis.FrameOK {
		return nil, fmt.Errorf("frame has no analysis to draw")
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	if scale > MaxOverlayScale {
		return nil, fmt.Errorf("scale %d exceeds %d", scale, MaxOverlayScale)
	}

	contourColor, err := parseHexColor(opts.ContourColor)
	if err != nil {
		contourColor = color.NRGBA{R: 255, G: 220, B: 0, A: 255}
	}

	limit := opts.CurvatureLimit
	if limit <= 0 {
		for _, m := range res.Measurements {
			if m.Curvature != nil {
				limit = math.Max(limit, math.Abs(*m.Curvature))
			}
		}
	}

	base := grayscale(intensity)
	canvas := base
	if scale > 1 {
		canvas = imaging.Resize(base, intensity.Width*scale, intensity.Height*scale, imaging.NearestNeighbor)
	}
	pn := &pen{img: canvas, scale: float64(scale)}

	if opts.ShowRegions {
		for _, m := range res.Measurements {
			if m.Region == nil {
				continue
			}
			c := absentColor
			if m.Curvature != nil {
				c = CurvatureColor(*m.Curvature, limit)
			}
			for i := range m.Region.Corners {
				pn.line(m.Region.Corners[i], m.Region.Corners[(i+1)%4], c)
			}
		}
	}

	for i := range res.Contour {
		pn.line(res.Contour[i], res.Contour[(i+1)%len(res.Contour)], contourColor)
	}

	for _, m := range res.Measurements {
		c := absentColor
		if m.Curvature != nil {
			c = CurvatureColor(*m.Curvature, limit)
		}
		pn.dot(m.Position, c)
	}

	if opts.CropToCell && len(res.Contour) > 0 {
		canvas = imaging.Crop(canvas, cellBounds(res.Contour, opts.CropPadding, scale))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := canvas.Bounds()
	return &OverlayResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Points:      len(res.Measurements),
	}, nil
}

// cellBounds returns the canvas rectangle around c, grown by pad source
// pixels. imaging.Crop clips it to the canvas.
func cellBounds(c []r2.Point, pad, scale int) image.Rectangle {
	rect := r2.RectFromPoints(c...)
	if pad < 0 {
		pad = 0
	}
	x0 := int(math.Floor(rect.X.Lo)) - pad
	y0 := int(math.Floor(rect.Y.Lo)) - pad
	x1 := int(math.Ceil(rect.X.Hi)) + 1 + pad
	y1 := int(math.Ceil(rect.Y.Hi)) + 1 + pad
	return image.Rect(x0*scale, y0*scale, x1*scale, y1*scale)
}

// grayscale stretches the intensity range onto 0..255.
func grayscale(im *mimaging.Intensity) *image.NRGBA {
	out := imaging.New(im.Width, im.Height, color.NRGBA{A: 255})
	lo, hi := im.Range()
	span := hi - lo
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			v := 0.0
			if span > 0 {
				v = (im.At(x, y) - lo) / span * 255
			}
			g := uint8(math.Round(v))
			out.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return out
}

// pen draws in image coordinates on an upscaled canvas. Pixel (x, y) of the
// source covers canvas pixels [x*scale, (x+1)*scale).
type pen struct {
	img   *image.NRGBA
	scale float64
}

func (p *pen) toCanvas(q r2.Point) r2.Point {
	return r2.Point{X: (q.X + 0.5) * p.scale, Y: (q.Y + 0.5) * p.scale}
}

func (p *pen) set(x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(p.img.Rect) {
		p.img.SetNRGBA(x, y, c)
	}
}

// line draws a segment with a simple DDA walk.
func (p *pen) line(a, b r2.Point, c color.NRGBA) {
	a, b = p.toCanvas(a), p.toCanvas(b)
	d := b.Sub(a)
	steps := int(math.Ceil(math.Max(math.Abs(d.X), math.Abs(d.Y))))
	if steps == 0 {
		p.set(int(a.X), int(a.Y), c)
		return
	}
	inc := d.Mul(1 / float64(steps))
	for i := 0; i <= steps; i++ {
		q := a.Add(inc.Mul(float64(i)))
		p.set(int(math.Floor(q.X)), int(math.Floor(q.Y)), c)
	}
}

// dot draws a filled square marker, larger on upscaled canvases.
func (p *pen) dot(q r2.Point, c color.NRGBA) {
	q = p.toCanvas(q)
	r := 1
	if p.scale >= 4 {
		r = 2
	}
	cx, cy := int(math.Floor(q.X)), int(math.Floor(q.Y))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			p.set(cx+dx, cy+dy, c)
		}
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}
