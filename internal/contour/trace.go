package contour

// Moore neighbourhood in clockwise screen order (y grows downwards),
// starting East.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// direction returns the Moore index of the unit step (dx, dy).
func direction(dx, dy int) int {
	for i := range mooreDX {
		if mooreDX[i] == dx && mooreDY[i] == dy {
			return i
		}
	}
	return -1
}

// labelGrid is the read-only view of a labeled mask the tracer walks on.
type labelGrid struct {
	labels        []int
	width, height int
}

func (g labelGrid) is(x, y, label int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height && g.labels[y*g.width+x] == label
}

// traceBoundary walks the outer boundary of the component with the given
// label, starting from its first pixel in raster order (sx, sy).
//
// # Algorithm
//
// Moore neighbour tracing: from the current pixel, the eight neighbours are
// scanned clockwise starting just after the backtrack pixel (the background
// pixel we came from). The first pixel of the component found becomes the
// next boundary pixel, and the neighbour scanned just before it becomes the
// new backtrack. The initial backtrack is the West neighbour of the start
// pixel, which is background because the start is the first pixel in raster
// order.
//
// The walk stops when it is back on the start pixel about to repeat its very
// first move (Jacob's stopping criterion), which handles one-pixel-wide
// necks that are visited twice. Every boundary pixel is kept; the chain is
// not compressed.
//
// Returns the boundary in clockwise screen order. An isolated pixel yields a
// one-point chain.
func traceBoundary(g labelGrid, label, sx, sy, capHint int) Contour {
	chain := make(Contour, 0, max(capHint, 8))
	chain = append(chain, Point{X: float64(sx), Y: float64(sy)})

	step := func(cx, cy, bx, by int) (nx, ny, nbx, nby int, ok bool) {
		d := direction(bx-cx, by-cy)
		for k := 1; k <= 8; k++ {
			i := (d + k) % 8
			tx, ty := cx+mooreDX[i], cy+mooreDY[i]
			if g.is(tx, ty, label) {
				j := (i + 7) % 8
				return tx, ty, cx + mooreDX[j], cy + mooreDY[j], true
			}
		}
		return 0, 0, 0, 0, false
	}

	nx, ny, nbx, nby, ok := step(sx, sy, sx-1, sy)
	if !ok {
		return chain
	}
	firstX, firstY := nx, ny

	// Each boundary pixel is entered at most once per free side.
	limit := 4*g.width*g.height + 8
	for n := 0; n < limit; n++ {
		cx, cy := nx, ny
		nx, ny, nbx, nby, _ = step(cx, cy, nbx, nby)
		if cx == sx && cy == sy && nx == firstX && ny == firstY {
			break
		}
		chain = append(chain, Point{X: float64(cx), Y: float64(cy)})
	}

	return chain
}
