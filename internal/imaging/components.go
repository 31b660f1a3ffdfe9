package imaging

// Component describes one 8-connected foreground region of a mask.
type Component struct {
	// Label is the component's value in the label array (1-based).
	Label int `json:"label"`

	// Area is the number of pixels in the component.
	Area int `json:"area"`

	// StartX, StartY is the first pixel of the component in raster order
	// (top to bottom, left to right). Boundary tracing starts here.
	StartX int `json:"start_x"`
	StartY int `json:"start_y"`

	// Bounding box, inclusive.
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// LabelComponents assigns a label to every 8-connected foreground region.
//
// Returns:
//   - labels: Row-major array the size of the mask; 0 is background,
//     components are numbered 1..len(components).
//   - components: One entry per region, ordered by the raster position of
//     the region's first pixel.
func LabelComponents(m *Mask) ([]int, []Component) {
	labels := make([]int, m.Width*m.Height)
	components := make([]Component, 0)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			idx := y*m.Width + x
			if m.Pix[idx] == 0 || labels[idx] != 0 {
				continue
			}
			c := Component{
				Label:  len(components) + 1,
				StartX: x, StartY: y,
				MinX: x, MinY: y, MaxX: x, MaxY: y,
			}
			floodFill(m, labels, x, y, &c)
			components = append(components, c)
		}
	}

	return labels, components
}

// floodFill labels the component containing (startX, startY) with c.Label
// using an explicit stack, so large regions cannot overflow the goroutine
// stack.
func floodFill(m *Mask, labels []int, startX, startY int, c *Component) {
	type pixel struct{ x, y int }
	stack := []pixel{{startX, startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !m.InBounds(p.x, p.y) {
			continue
		}
		idx := p.y*m.Width + p.x
		if labels[idx] != 0 || m.Pix[idx] == 0 {
			continue
		}

		labels[idx] = c.Label
		c.Area++
		c.MinX = min(c.MinX, p.x)
		c.MinY = min(c.MinY, p.y)
		c.MaxX = max(c.MaxX, p.x)
		c.MaxY = max(c.MaxY, p.y)

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, pixel{p.x + dx, p.y + dy})
			}
		}
	}
}

// RemoveSmallObjects returns a copy of m without the 8-connected components
// smaller than minSize pixels. A minSize of 0 or 1 returns an unchanged copy.
func RemoveSmallObjects(m *Mask, minSize int) *Mask {
	if minSize <= 1 {
		return m.Clone()
	}

	labels, components := LabelComponents(m)
	out := NewMask(m.Width, m.Height)
	for i, l := range labels {
		if l != 0 && components[l-1].Area >= minSize {
			out.Pix[i] = 1
		}
	}
	return out
}
