// Package analysis correlates membrane curvature with fluorescence intensity.
//
// For each frame, the Pipeline extracts and resamples the cell contour
// (package contour), then for every resampled point:
//
//  1. estimates the inward unit normal and validates it against the mask
//     (EstimateNormal);
//  2. estimates the signed curvature with a CurvatureEstimator, by default
//     a circle fit over a sliding segment of the contour;
//  3. samples the fluorescence in a rectangle reaching into the cell along
//     the normal with an IntensitySampler.
//
// The frame's Pearson correlation between the two series, with summary
// statistics and diagnostics, completes the FrameResult.
//
// # Sign Convention
//
// Curvature is positive where the boundary bulges outward (every point of a
// disk has curvature +1/R) and negative in indentations. Values are divided
// by Config.PixelSize, so they are in 1/pixel by default.
//
// # Missing Values
//
// A point whose normal cannot be validated has neither curvature nor
// intensity. A point whose sampling region leaves the image has a curvature
// but no intensity. A near-collinear segment has curvature 0. Such points
// stay in FrameResult.Measurements with a flag set, and only complete points
// enter the correlation.
//
// # Concurrency
//
// Frame analysis is sequential and free of I/O. AnalyzeBatch spreads frames
// over a bounded set of goroutines; results are kept in input order and
// do not depend on the number of workers.
package analysis
