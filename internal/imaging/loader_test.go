package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeTestImage encodes img as PNG into a temp dir and returns its path.
func writeTestImage(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createDiskImages returns a binary disk mask and an intensity image that is
// `inside` within the disk and `outside` elsewhere.
func createDiskImages(width, height int, cx, cy, r float64, inside, outside uint8) (*image.Gray, *image.Gray) {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	fluor := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				mask.SetGray(x, y, color.Gray{Y: 255})
				fluor.SetGray(x, y, color.Gray{Y: inside})
			} else {
				fluor.SetGray(x, y, color.Gray{Y: outside})
			}
		}
	}
	return mask, fluor
}

func TestNewFrameCache(t *testing.T) {
	cache := NewFrameCache()
	if cache == nil {
		t.Fatal("NewFrameCache returned nil")
	}
	if cache.Len() != 0 {
		t.Errorf("new cache has %d entries, want 0", cache.Len())
	}
}

func TestFrameCache_Load(t *testing.T) {
	cache := NewFrameCache()
	mask, _ := createDiskImages(40, 30, 20, 15, 8, 100, 0)
	path := writeTestImage(t, "mask.png", mask)

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img1.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("unexpected dimensions: got %dx%d, want 40x30", b.Dx(), b.Dy())
	}

	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestFrameCache_Load_Errors(t *testing.T) {
	cache := NewFrameCache()

	if _, err := cache.Load("/nonexistent/path/to/mask.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}

	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := cache.Load(path); err == nil {
		t.Error("Load should fail for invalid image data")
	}
}

func TestFrameCache_EvictAndClear(t *testing.T) {
	cache := NewFrameCache()
	mask, fluor := createDiskImages(20, 20, 10, 10, 5, 100, 0)
	p1 := writeTestImage(t, "a.png", mask)
	p2 := writeTestImage(t, "b.png", fluor)

	for _, p := range []string{p1, p2} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("cache has %d entries, want 2", cache.Len())
	}

	cache.Evict(p1)
	cache.Evict("/nonexistent/path")
	if cache.Len() != 1 {
		t.Errorf("after Evict cache has %d entries, want 1", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("after Clear cache has %d entries, want 0", cache.Len())
	}
}

func TestFrameCache_ConcurrentAccess(t *testing.T) {
	cache := NewFrameCache()
	mask, _ := createDiskImages(30, 30, 15, 15, 10, 100, 0)
	path := writeTestImage(t, "mask.png", mask)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load failed: %v", err)
	}
}

func TestMaskFromImage(t *testing.T) {
	t.Run("8-bit", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 4, 1))
		img.SetGray(1, 0, color.Gray{Y: 1})
		img.SetGray(2, 0, color.Gray{Y: 255})

		m := MaskFromImage(img, DefaultMaskLevel)
		want := []uint8{0, 1, 1, 0}
		for i, v := range want {
			if m.Pix[i] != v {
				t.Errorf("pixel %d = %d, want %d", i, m.Pix[i], v)
			}
		}
	})

	t.Run("16-bit label image", func(t *testing.T) {
		img := image.NewGray16(image.Rect(0, 0, 3, 1))
		img.SetGray16(0, 0, color.Gray16{Y: 1})
		img.SetGray16(2, 0, color.Gray16{Y: 7})

		m := MaskFromImage(img, DefaultMaskLevel)
		if !m.At(0, 0) || m.At(1, 0) || !m.At(2, 0) {
			t.Errorf("unexpected mask %v", m.Pix)
		}
	})

	t.Run("0/1 mask", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 50, 50))
		for y := 10; y < 40; y++ {
			for x := 10; x < 40; x++ {
				img.SetGray(x, y, color.Gray{Y: 1})
			}
		}
		if got := MaskFromImage(img, DefaultMaskLevel).Count(); got != 900 {
			t.Errorf("got %d foreground pixels, want 900", got)
		}
	})

	t.Run("transparent background", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 50, 50))
		for y := 0; y < 50; y++ {
			for x := 0; x < 50; x++ {
				c := color.NRGBA{R: 255, G: 255, B: 255, A: 0}
				if x >= 10 && x < 40 && y >= 10 && y < 40 {
					c.A = 255
				}
				img.SetNRGBA(x, y, c)
			}
		}
		for _, level := range []uint8{DefaultMaskLevel, 128} {
			if got := MaskFromImage(img, level).Count(); got != 900 {
				t.Errorf("level %d: got %d foreground pixels, want 900", level, got)
			}
		}
	})

	t.Run("16-bit level", func(t *testing.T) {
		img := image.NewGray16(image.Rect(0, 0, 3, 1))
		img.SetGray16(0, 0, color.Gray16{Y: 1000})
		img.SetGray16(1, 0, color.Gray16{Y: 40000})
		img.SetGray16(2, 0, color.Gray16{Y: 65535})

		m := MaskFromImage(img, 128)
		if m.At(0, 0) || !m.At(1, 0) || !m.At(2, 0) {
			t.Errorf("unexpected mask %v", m.Pix)
		}
	})

	t.Run("higher level", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 2, 1))
		img.SetGray(0, 0, color.Gray{Y: 100})
		img.SetGray(1, 0, color.Gray{Y: 200})

		m := MaskFromImage(img, 128)
		if m.At(0, 0) || !m.At(1, 0) {
			t.Errorf("unexpected mask %v", m.Pix)
		}
	})
}

func TestIntensityFromImage(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.SetGray(1, 0, color.Gray{Y: 200})
	im := IntensityFromImage(g)
	if im.At(0, 0) != 0 || im.At(1, 0) != 200 {
		t.Errorf("8-bit values = %v, want [0 200]", im.Pix)
	}

	g16 := image.NewGray16(image.Rect(0, 0, 1, 1))
	g16.SetGray16(0, 0, color.Gray16{Y: 40000})
	if v := IntensityFromImage(g16).At(0, 0); v != 40000 {
		t.Errorf("16-bit value = %v, want 40000", v)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.RGBA{255, 255, 255, 255})
	if v := IntensityFromImage(rgba).At(0, 0); v != 255 {
		t.Errorf("white RGBA value = %v, want 255", v)
	}
}

func TestLoadFrame(t *testing.T) {
	cache := NewFrameCache()
	mask, fluor := createDiskImages(60, 50, 30, 25, 10, 120, 10)
	maskPath := writeTestImage(t, "mask.png", mask)
	fluorPath := writeTestImage(t, "fluor.png", fluor)

	frame, err := LoadFrame(cache, 3, maskPath, fluorPath, DefaultMaskLevel)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if frame.Index != 3 {
		t.Errorf("Index = %d, want 3", frame.Index)
	}
	if !frame.Mask.At(30, 25) || frame.Mask.At(0, 0) {
		t.Error("mask does not follow the disk")
	}
	if got := frame.Intensity.At(30, 25); got != 120 {
		t.Errorf("intensity at centre = %v, want 120", got)
	}

	info, err := LoadFrameInfo(cache, maskPath, fluorPath, DefaultMaskLevel)
	if err != nil {
		t.Fatalf("LoadFrameInfo failed: %v", err)
	}
	if info.Width != 60 || info.Height != 50 {
		t.Errorf("info dimensions = %dx%d, want 60x50", info.Width, info.Height)
	}
	if info.MaskFormat != "png" || info.ColorDepth != "8-bit" {
		t.Errorf("info format = %s/%s, want png/8-bit", info.MaskFormat, info.ColorDepth)
	}
	if info.ForegroundPixels != frame.Mask.Count() {
		t.Errorf("ForegroundPixels = %d, want %d", info.ForegroundPixels, frame.Mask.Count())
	}
	if info.IntensityMin != 10 || info.IntensityMax != 120 {
		t.Errorf("intensity range = [%v,%v], want [10,120]", info.IntensityMin, info.IntensityMax)
	}
}

func TestLoadFrame_ShapeMismatch(t *testing.T) {
	cache := NewFrameCache()
	mask, _ := createDiskImages(40, 40, 20, 20, 8, 100, 0)
	_, fluor := createDiskImages(41, 40, 20, 20, 8, 100, 0)
	maskPath := writeTestImage(t, "mask.png", mask)
	fluorPath := writeTestImage(t, "fluor.png", fluor)

	_, err := LoadFrame(cache, 0, maskPath, fluorPath, DefaultMaskLevel)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("LoadFrame error = %v, want ErrShapeMismatch", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.png", "png"},
		{"a.JPG", "jpeg"},
		{"a.jpeg", "jpeg"},
		{"a.gif", "gif"},
		{"stack_001.tif", "tiff"},
		{"stack_001.TIFF", "tiff"},
		{"a.bmp", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := formatFromPath(tt.path); got != tt.want {
				t.Errorf("formatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
