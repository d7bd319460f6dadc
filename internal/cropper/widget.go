package cropper

// DefaultMinCropSize is the smallest crop box edge, in display pixels.
const DefaultMinCropSize = 48.0

// Widget holds the interactive crop state for one displayed image.
type Widget struct {
	DisplayW float64
	DisplayH float64
	MinSize  float64
	Box      Box
}

// NewWidget starts with a centered square box at half the short edge.
func NewWidget(displayW, displayH float64) *Widget {
	size := displayW
	if displayH < size {
		size = displayH
	}
	size /= 2
	if size < DefaultMinCropSize {
		size = DefaultMinCropSize
	}
	return &Widget{
		DisplayW: displayW,
		DisplayH: displayH,
		MinSize:  DefaultMinCropSize,
		Box: Box{
			X: (displayW - size) / 2,
			Y: (displayH - size) / 2,
			W: size,
			H: size,
		},
	}
}

// Drag moves the box by a pointer delta.
func (w *Widget) Drag(dx, dy float64) {
	w.Box = Drag(w.Box, dx, dy, w.DisplayW, w.DisplayH)
}

// Resize adjusts the box from a handle by a pointer delta.
func (w *Widget) Resize(handle Handle, dx, dy float64) {
	w.Box = Resize(w.Box, handle, dx, dy, w.DisplayW, w.DisplayH, w.MinSize)
}
