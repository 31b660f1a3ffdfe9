package contour

import (
	"math"
)

// SmoothMethod selects the smoothing filter.
type SmoothMethod string

const (
	// SmoothGaussian convolves with a normalised Gaussian kernel.
	SmoothGaussian SmoothMethod = "gaussian"
	// SmoothPolynomial applies a Savitzky-Golay filter.
	SmoothPolynomial SmoothMethod = "polynomial"
)

// SmoothOptions controls Smooth.
type SmoothOptions struct {
	Method SmoothMethod
	// Window is the filter length in points. Even values are bumped to the
	// next odd value; 0 disables smoothing.
	Window int
	// Sigma is the Gaussian standard deviation in points. 0 disables
	// Gaussian smoothing.
	Sigma float64
	// PolyOrder is the Savitzky-Golay polynomial degree.
	PolyOrder int
}

// NormalizeWindow returns the odd window length actually used on a contour
// of n points: even windows become the next odd value and windows longer
// than the contour shrink to the largest odd value not above n. Zero or
// negative windows return 0.
func NormalizeWindow(window, n int) int {
	if window <= 0 || n <= 0 {
		return 0
	}
	if window%2 == 0 {
		window++
	}
	if window > n {
		window = n
		if window%2 == 0 {
			window--
		}
	}
	return window
}

// Smooth low-pass filters the x and y coordinates of c independently,
// treating both as periodic signals.
//
// It never fails: if the Savitzky-Golay normal equations are singular (for
// example when the window is not longer than the polynomial order) the
// input contour is returned unchanged with fallback set to true.
//
// Returns a new contour with the same number of points.
func Smooth(c Contour, opts SmoothOptions) (smoothed Contour, fallback bool) {
	window := NormalizeWindow(opts.Window, len(c))
	if window <= 1 || len(c) < 3 {
		return c.Clone(), false
	}

	var weights []float64
	switch opts.Method {
	case SmoothPolynomial:
		w, ok := savitzkyGolayWeights(window, opts.PolyOrder)
		if !ok {
			return c.Clone(), true
		}
		weights = w
	default:
		if opts.Sigma == 0 {
			return c.Clone(), false
		}
		weights = gaussianWeights(window, opts.Sigma)
	}

	out := periodicConvolve(c, weights)
	for _, p := range out {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return c.Clone(), true
		}
	}
	return out, false
}

// periodicConvolve applies a centred odd-length kernel with wrap-around.
func periodicConvolve(c Contour, weights []float64) Contour {
	half := len(weights) / 2
	out := make(Contour, len(c))
	for i := range c {
		var x, y float64
		for k, w := range weights {
			p := c.At(i + k - half)
			x += w * p.X
			y += w * p.Y
		}
		out[i] = Point{X: x, Y: y}
	}
	return out
}

// gaussianWeights returns exp(-k²/2σ²) for k in [-window/2, window/2],
// normalised to sum to one.
func gaussianWeights(window int, sigma float64) []float64 {
	half := window / 2
	w := make([]float64, window)
	var sum float64
	for k := -half; k <= half; k++ {
		v := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		w[k+half] = v
		sum += v
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// savitzkyGolayWeights returns the smoothing (zeroth derivative) weights of
// a least-squares polynomial fit of the given order over a centred window.
//
// # Algorithm
//
// With design matrix A[k][j] = k^j for k in [-h, h], the fitted value at the
// window centre is e₀ᵀ(AᵀA)⁻¹Aᵀ y. The normal equations (AᵀA) a = e₀ are
// solved once by Gaussian elimination, then weight k is Σⱼ aⱼ k^j.
//
// Returns ok=false when the system is singular or the order is negative.
func savitzkyGolayWeights(window, order int) ([]float64, bool) {
	if order < 0 {
		return nil, false
	}
	half := window / 2
	m := order + 1

	g := make([][]float64, m)
	for r := range g {
		g[r] = make([]float64, m)
		for c := range g[r] {
			var s float64
			for k := -half; k <= half; k++ {
				s += math.Pow(float64(k), float64(r+c))
			}
			g[r][c] = s
		}
	}
	rhs := make([]float64, m)
	rhs[0] = 1

	a, ok := solveLinear(g, rhs)
	if !ok {
		return nil, false
	}

	w := make([]float64, window)
	for k := -half; k <= half; k++ {
		var v float64
		for j := 0; j < m; j++ {
			v += a[j] * math.Pow(float64(k), float64(j))
		}
		w[k+half] = v
	}
	return w, true
}

// solveLinear solves a·x = b by Gaussian elimination with partial pivoting.
// The inputs are overwritten. Returns ok=false for a singular matrix.
func solveLinear(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)

	var scale float64
	for _, row := range a {
		for _, v := range row {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	if scale == 0 {
		return nil, false
	}
	eps := 1e-12 * scale

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) <= eps {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for c := r + 1; c < n; c++ {
			s -= a[r][c] * x[c]
		}
		x[r] = s / a[r][r]
	}
	return x, true
}
