// Package report renders analysed frames for a human reader.
//
// Two renderings are provided, both returned as base64-encoded PNG so they
// can travel inside a JSON-RPC response:
//
//   - Overlay draws the contour on the grayscale intensity image. Each
//     measured point is colored on a diverging scale (blue concave, white
//     flat, red convex) and sampling regions can be outlined in the same
//     color.
//   - Plot draws either intensity against curvature with a least-squares
//     line, or both series z-scored along the contour.
//
// Nothing is written to disk.
package report
