package contour

import (
	"errors"
	"fmt"

	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// ErrNoContourFound is returned when a mask holds no usable boundary.
var ErrNoContourFound = errors.New("no contour found")

// ExtractOptions controls mask cleanup before tracing.
type ExtractOptions struct {
	// MinObjectSize drops components with fewer pixels, and rejects a
	// selected boundary with fewer points. Default 100.
	MinObjectSize int

	// MorphKernelSize is the square opening kernel. 0 or 1 disables opening.
	// Default 3.
	MorphKernelSize int

	// CapacityHint pre-sizes the boundary chain, typically with the length
	// of the previous frame's contour. It never changes the result.
	CapacityHint int
}

// DefaultExtractOptions returns the options used when none are configured.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{MinObjectSize: 100, MorphKernelSize: 3}
}

// Extract returns the outer boundary of the largest object in mask.
//
// # Algorithm
//
//  1. Drop 8-connected components smaller than MinObjectSize pixels.
//  2. Apply a morphological opening with a MorphKernelSize square kernel.
//  3. Trace the outer boundary of every remaining component (Moore
//     neighbour tracing, see traceBoundary).
//  4. Keep the chain with the largest shoelace area. On equal areas the
//     component whose first pixel comes first in raster order wins.
//
// # Errors
//
//   - ErrNoContourFound if no foreground survives cleanup, or if the kept
//     chain has fewer than MinObjectSize points.
func Extract(mask *imaging.Mask, opts ExtractOptions) (Contour, error) {
	if mask == nil || mask.Width == 0 || mask.Height == 0 {
		return nil, fmt.Errorf("%w: empty mask", ErrNoContourFound)
	}

	cleaned := imaging.RemoveSmallObjects(mask, opts.MinObjectSize)
	if opts.MorphKernelSize > 1 {
		cleaned = imaging.Open(cleaned, opts.MorphKernelSize)
	}

	chains := TraceBoundaries(cleaned, opts.CapacityHint)
	if len(chains) == 0 {
		return nil, fmt.Errorf("%w: mask has no foreground after cleanup", ErrNoContourFound)
	}

	best, bestArea := 0, chains[0].Area()
	for i := 1; i < len(chains); i++ {
		if a := chains[i].Area(); a > bestArea {
			best, bestArea = i, a
		}
	}

	selected := chains[best]
	if len(selected) < opts.MinObjectSize {
		return nil, fmt.Errorf("%w: largest boundary has %d points, need %d",
			ErrNoContourFound, len(selected), opts.MinObjectSize)
	}
	return selected, nil
}

// TraceBoundaries traces the outer boundary of every 8-connected component
// of mask, in raster order of the components' first pixels.
func TraceBoundaries(mask *imaging.Mask, capHint int) []Contour {
	labels, components := imaging.LabelComponents(mask)
	grid := labelGrid{labels: labels, width: mask.Width, height: mask.Height}

	chains := make([]Contour, 0, len(components))
	for _, c := range components {
		chains = append(chains, traceBoundary(grid, c.Label, c.StartX, c.StartY, capHint))
	}
	return chains
}
