// Package contour extracts, smooths and resamples the closed boundary of a
// segmented cell.
//
// A Contour is an ordered list of points in pixel coordinates. It is always
// closed: the last point is implicitly adjacent to the first, and every
// index-based operation wraps around that seam. Points use
// github.com/golang/geo/r2 so that the analysis code can do vector
// arithmetic on them directly.
//
// The three stages run in this order on every frame:
//
//   - Extract cleans a binary mask (small-object removal, morphological
//     opening), traces the outer boundary of every component with Moore
//     neighbour tracing and keeps the chain enclosing the largest area.
//   - Smooth low-pass filters x and y independently as periodic signals,
//     with a Gaussian kernel or a Savitzky-Golay polynomial fit.
//   - Resample redistributes the points at equal arc-length spacing along
//     the closed polyline; ResampleAt does the same at caller-supplied arc
//     length fractions.
//
// None of the functions modify their input.
package contour
