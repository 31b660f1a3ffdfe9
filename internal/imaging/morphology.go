package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
)

// Open performs a morphological opening (erosion followed by dilation) with a
// square structuring element of kernelSize pixels. Opening strips speckles
// and one-pixel spurs smaller than the kernel while leaving larger shapes in
// place. A kernelSize below 2 returns an unchanged copy; an even kernelSize
// is rounded up to the next odd size so the element stays centred.
//
// Pixels outside the image are treated as replicas of the nearest edge
// pixel, so foreground touching the border is not eroded away from it.
func Open(m *Mask, kernelSize int) *Mask {
	if kernelSize < 2 {
		return m.Clone()
	}
	if kernelSize%2 == 0 {
		kernelSize++
	}

	radius := float64(kernelSize-1) / 2
	eroded := effect.Erode(maskToGray(m), radius)
	opened := effect.Dilate(eroded, radius)
	return maskFromRGBA(opened)
}

func maskToGray(m *Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func maskFromRGBA(img *image.RGBA) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if img.RGBAAt(b.Min.X+x, b.Min.Y+y).R >= 128 {
				m.Pix[y*m.Width+x] = 1
			}
		}
	}
	return m
}
