// Package imaging provides the raster layer of the membrane analysis toolkit.
//
// It holds the two per-frame arrays every analysis runs on, a binary
// segmentation mask and a fluorescence intensity image, together with the
// pixel operations the contour extractor needs before tracing: connected
// component labeling, small-object removal and morphological opening.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost column)
//   - Y: vertical position (0 = topmost row)
//   - A continuous point (x, y) belongs to the pixel whose indices are the
//     rounded coordinates; points that round outside the image are outside
//     every mask and have no intensity.
//
// Arrays are stored row-major: the value of pixel (x, y) lives at index
// y*Width + x of Pix.
//
// # Loading Frames
//
// Frames are read from PNG, JPEG, GIF or TIFF files through FrameCache,
// which decodes each file once and keeps the decoded image for later calls.
// By default any non-zero, non-transparent mask pixel is foreground. A higher
// mask level thresholds luminance with bild's segment.Threshold after
// compositing over black. Intensities keep their native bit depth: 8-bit
// images yield values in [0,255], 16-bit images values in [0,65535].
//
// # Thread Safety
//
// FrameCache is safe for concurrent use. Mask and Intensity values are plain
// slices and are never mutated by the functions in this package; every
// operation returns a new array.
package imaging
