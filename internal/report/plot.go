package report

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ironsheep/membrane-tools-mcp/internal/analysis"
)

// ErrNothingToPlot is returned when a frame has no complete measurement.
var ErrNothingToPlot = errors.New("no complete measurements to plot")

// PlotKind selects the chart drawn by Plot.
type PlotKind string

const (
	// PlotScatter draws intensity against curvature with a least-squares
	// line.
	PlotScatter PlotKind = "scatter"
	// PlotProfile draws z-scored curvature and intensity along the contour.
	PlotProfile PlotKind = "profile"
)

const (
	defaultPlotWidth  = 640
	defaultPlotHeight = 480
	maxPlotSize       = 4096
)

// PlotOptions controls chart rendering. Sizes are in pixels.
type PlotOptions struct {
	Kind   PlotKind `json:"kind"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Title  string   `json:"title"`
}

// PlotResult contains the rendered chart.
type PlotResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Kind        string `json:"kind"`
	Pairs       int    `json:"pairs"`
}

var (
	curvatureLine = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	intensityLine = color.RGBA{R: 30, G: 90, B: 200, A: 255}
)

// Plot renders a chart of an analysed frame.
//
// # Errors
//
//   - ErrNothingToPlot if no measurement has both curvature and intensity
//   - an error for an unknown kind or a size outside 1..4096
func Plot(res *analysis.FrameResult, opts PlotOptions) (*PlotResult, error) {
	if res == nil || res.Status != analysis.FrameOK {
		return nil, fmt.Errorf("frame has no analysis to plot")
	}
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = defaultPlotWidth
	}
	if height == 0 {
		height = defaultPlotHeight
	}
	if width < 1 || height < 1 || width > maxPlotSize || height > maxPlotSize {
		return nil, fmt.Errorf("plot size %dx%d outside 1..%d", width, height, maxPlotSize)
	}

	idx, ks, vs := completePairs(res.Measurements)
	if len(ks) == 0 {
		return nil, ErrNothingToPlot
	}

	kind := opts.Kind
	if kind == "" {
		kind = PlotScatter
	}

	var (
		p   *plot.Plot
		err error
	)
	switch kind {
	case PlotScatter:
		p, err = scatterPlot(ks, vs, res.Correlation)
	case PlotProfile:
		p, err = profilePlot(idx, ks, vs)
	default:
		return nil, fmt.Errorf("unknown plot kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build plot: %w", err)
	}
	if opts.Title != "" {
		p.Title.Text = opts.Title
	}

	// vgimg renders at 96 dpi; plot sizes are in points.
	wt, err := p.WriterTo(vg.Points(float64(width)*0.75), vg.Points(float64(height)*0.75), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}

	return &PlotResult{
		Width:       width,
		Height:      height,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Kind:        string(kind),
		Pairs:       len(ks),
	}, nil
}

// completePairs returns the measurements carrying both values.
func completePairs(ms []analysis.Measurement) (idx []int, ks, vs []float64) {
	for _, m := range ms {
		if m.Curvature == nil || m.Intensity == nil {
			continue
		}
		idx = append(idx, m.Index)
		ks = append(ks, *m.Curvature)
		vs = append(vs, *m.Intensity)
	}
	return idx, ks, vs
}

func scatterPlot(ks, vs []float64, corr analysis.Correlation) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Intensity vs curvature"
	if corr.Coefficient != nil {
		p.Title.Text = fmt.Sprintf("Intensity vs curvature (r = %.3f, n = %d)", *corr.Coefficient, corr.Pairs)
	}
	p.X.Label.Text = "Curvature"
	p.Y.Label.Text = "Intensity"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(ks))
	for i := range ks {
		pts[i] = plotter.XY{X: ks[i], Y: vs[i]}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(2.5)
	sc.GlyphStyle.Color = intensityLine
	p.Add(sc)

	// Fit line only when curvature actually varies.
	if len(ks) >= 2 && floats.Max(ks) > floats.Min(ks) {
		alpha, beta := stat.LinearRegression(ks, vs, nil, false)
		if !math.IsNaN(alpha) && !math.IsNaN(beta) {
			lo, hi := floats.Min(ks), floats.Max(ks)
			fit, err := plotter.NewLine(plotter.XYs{
				{X: lo, Y: alpha + beta*lo},
				{X: hi, Y: alpha + beta*hi},
			})
			if err != nil {
				return nil, err
			}
			fit.Color = curvatureLine
			fit.Width = vg.Points(1)
			p.Add(fit)
			p.Legend.Add("least squares", fit)
		}
	}
	return p, nil
}

func profilePlot(idx []int, ks, vs []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Curvature and intensity along the contour"
	p.X.Label.Text = "Point index"
	p.Y.Label.Text = "z-score"
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		name   string
		values []float64
		color  color.Color
	}{
		{"curvature", ks, curvatureLine},
		{"intensity", vs, intensityLine},
	} {
		z := zscores(s.values)
		pts := make(plotter.XYs, len(z))
		for i := range z {
			pts[i] = plotter.XY{X: float64(idx[i]), Y: z[i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// zscores standardises values; a constant series maps to zeros.
func zscores(values []float64) []float64 {
	out := make([]float64, len(values))
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 || !(std > 0) {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}
