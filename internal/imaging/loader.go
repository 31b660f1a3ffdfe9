package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/segment"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// DefaultMaskLevel is the luminance at or above which a mask pixel counts as
// foreground. A level of 1 treats every non-zero pixel as foreground.
const DefaultMaskLevel uint8 = 1

// FrameCache provides thread-safe caching of decoded frame images to avoid
// redundant disk reads when the same mask or fluorescence file is analysed
// repeatedly.
//
// The cache stores decoded image.Image objects keyed by their file path. Once
// a file is loaded, subsequent Load() calls for the same path return the
// cached copy without disk I/O.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). Stacks of large TIFF frames add up quickly; evict frames once a
// batch has been analysed.
//
// # Example Usage
//
//	cache := imaging.NewFrameCache()
//	frame, err := imaging.LoadFrame(cache, 0, "mask_000.tif", "gfp_000.tif", imaging.DefaultMaskLevel)
//	if err != nil {
//	    log.Fatal(err)
//	}
type FrameCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewFrameCache creates and initializes a new empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Parameters:
//   - path: Absolute or relative file path. Supported formats are PNG, JPEG,
//     GIF and TIFF.
//
// Returns:
//   - image.Image: The decoded image. 16-bit grayscale TIFF and PNG files
//     decode to *image.Gray16.
//   - error: Non-nil if the file cannot be opened or decoded.
func (c *FrameCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path. If the path is
// not cached, this method does nothing.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// MaskFromImage binarises img into a Mask.
//
// With level 0 or 1 every non-zero, non-transparent pixel is foreground, so
// masks stored as 0/1 and label images (1, 2, ...) load intact. Higher levels
// composite the image over black and threshold its luminance with bild's
// segment.Threshold; transparent pixels are always background.
//
// 16-bit grayscale images compare raw values against level scaled to
// 16 bits (level*257); with level 0 or 1 any non-zero value counts.
func MaskFromImage(img image.Image, level uint8) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())

	if g16, ok := img.(*image.Gray16); ok {
		cut := uint16(level) * 257
		if level <= 1 {
			cut = 1
		}
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				if g16.Gray16At(b.Min.X+x, b.Min.Y+y).Y >= cut {
					m.Pix[y*m.Width+x] = 1
				}
			}
		}
		return m
	}

	if level <= 1 {
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				if a != 0 && r|g|bl != 0 {
					m.Pix[y*m.Width+x] = 1
				}
			}
		}
		return m
	}

	bin := segment.Threshold(flatten(img), level)
	bb := bin.Bounds()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if bin.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y != 0 {
				m.Pix[y*m.Width+x] = 1
			}
		}
	}
	return m
}

// flatten composites img over opaque black. RGBA() is alpha-premultiplied,
// so a transparent pixel becomes black instead of the white bild assumes.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetRGBA(x, y, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: 255})
		}
	}
	return out
}

// IntensityFromImage converts img into an Intensity image.
//
// Grayscale images keep their raw values (8 or 16 bit). Colour images are
// reduced to their 8-bit luminance.
func IntensityFromImage(img image.Image) *Intensity {
	b := img.Bounds()
	im := NewIntensity(b.Dx(), b.Dy())

	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			px, py := b.Min.X+x, b.Min.Y+y
			var v float64
			switch src := img.(type) {
			case *image.Gray:
				v = float64(src.GrayAt(px, py).Y)
			case *image.Gray16:
				v = float64(src.Gray16At(px, py).Y)
			default:
				v = float64(color.GrayModel.Convert(img.At(px, py)).(color.Gray).Y)
			}
			im.Pix[y*im.Width+x] = v
		}
	}
	return im
}

// LoadFrame reads a mask file and an intensity file into a validated Frame.
//
// Parameters:
//   - cache: The frame cache to use for loading. Must not be nil.
//   - index: Frame number recorded on the result.
//   - maskPath: Segmentation mask file.
//   - intensityPath: Fluorescence image file.
//   - level: Mask threshold, see MaskFromImage.
//
// # Errors
//
//   - Either file cannot be loaded
//   - ErrShapeMismatch when the two images differ in size
func LoadFrame(cache *FrameCache, index int, maskPath, intensityPath string, level uint8) (Frame, error) {
	maskImg, err := cache.Load(maskPath)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to load mask %s: %w", maskPath, err)
	}
	intImg, err := cache.Load(intensityPath)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to load intensity %s: %w", intensityPath, err)
	}

	frame := Frame{
		Index:     index,
		Mask:      MaskFromImage(maskImg, level),
		Intensity: IntensityFromImage(intImg),
	}
	if err := frame.Validate(); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// FrameInfo describes a loaded frame without returning its pixels.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// MaskFormat and IntensityFormat are detected from the file extension:
	// "png", "jpeg", "gif", "tiff" or "unknown".
	MaskFormat      string `json:"mask_format"`
	IntensityFormat string `json:"intensity_format"`

	// ColorDepth is the bit depth of the intensity image: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// ForegroundPixels is the number of mask pixels classified as foreground.
	ForegroundPixels int `json:"foreground_pixels"`

	// IntensityMin and IntensityMax span the intensity values.
	IntensityMin float64 `json:"intensity_min"`
	IntensityMax float64 `json:"intensity_max"`
}

// LoadFrameInfo loads a frame and summarises it.
func LoadFrameInfo(cache *FrameCache, maskPath, intensityPath string, level uint8) (*FrameInfo, error) {
	frame, err := LoadFrame(cache, 0, maskPath, intensityPath, level)
	if err != nil {
		return nil, err
	}

	intImg, err := cache.Load(intensityPath)
	if err != nil {
		return nil, err
	}
	colorDepth := "8-bit"
	switch intImg.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		colorDepth = "16-bit"
	}

	lo, hi := frame.Intensity.Range()
	return &FrameInfo{
		Width:            frame.Mask.Width,
		Height:           frame.Mask.Height,
		MaskFormat:       formatFromPath(maskPath),
		IntensityFormat:  formatFromPath(intensityPath),
		ColorDepth:       colorDepth,
		ForegroundPixels: frame.Mask.Count(),
		IntensityMin:     lo,
		IntensityMax:     hi,
	}, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".tif", ".tiff":
		return "tiff"
	}
	return "unknown"
}
