// Package cropper implements the square crop widget's geometry: a
// crop box tracked in display (CSS pixel) coordinates, dragged and
// resized within the displayed bounds, then mapped onto natural image
// pixels for rasterizing. The displayed image may be letterboxed
// inside its container (object-contain), so mapping subtracts the
// letterbox offset before scaling.
package cropper

import (
	"image"
	"math"
)

// Box is a crop region in display coordinates.
type Box struct {
	X, Y, W, H float64
}

// Handle identifies which of the eight resize handles is dragged.
type Handle int

const (
	HandleNorth Handle = iota
	HandleNorthEast
	HandleEast
	HandleSouthEast
	HandleSouth
	HandleSouthWest
	HandleWest
	HandleNorthWest
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Drag moves the box by the pointer delta, clamped so it stays inside
// the display bounds.
func Drag(box Box, dx, dy, boundsW, boundsH float64) Box {
	box.X = clamp(box.X+dx, 0, boundsW-box.W)
	box.Y = clamp(box.Y+dy, 0, boundsH-box.H)
	return box
}

// Resize grows or shrinks the box from one of its eight handles. The
// box is always square: the size follows the dominant axis of the
// handle and the other dimension is derived from it. The corner or
// edge opposite the handle stays anchored. Size is clamped to minSize
// and to the room available between the anchor and the bounds.
func Resize(box Box, handle Handle, dx, dy, boundsW, boundsH, minSize float64) Box {
	var proposed float64
	switch handle {
	case HandleEast, HandleNorthEast, HandleSouthEast:
		proposed = box.W + dx
	case HandleWest, HandleNorthWest, HandleSouthWest:
		proposed = box.W - dx
	case HandleNorth:
		proposed = box.H - dy
	case HandleSouth:
		proposed = box.H + dy
	}

	// Anchor point for each handle: the opposite corner, or the
	// opposite edge's near corner for edge handles.
	var anchorX, anchorY float64
	var growLeft, growUp bool
	switch handle {
	case HandleSouthEast, HandleEast, HandleSouth:
		anchorX, anchorY = box.X, box.Y
	case HandleNorthEast, HandleNorth:
		anchorX, anchorY = box.X, box.Y+box.H
		growUp = true
	case HandleSouthWest, HandleWest:
		anchorX, anchorY = box.X+box.W, box.Y
		growLeft = true
	case HandleNorthWest:
		anchorX, anchorY = box.X+box.W, box.Y+box.H
		growLeft, growUp = true, true
	}

	maxW := boundsW - anchorX
	if growLeft {
		maxW = anchorX
	}
	maxH := boundsH - anchorY
	if growUp {
		maxH = anchorY
	}
	maxSize := math.Min(maxW, maxH)

	size := proposed
	if size > maxSize {
		size = maxSize
	}
	if size < minSize {
		size = minSize
	}

	out := Box{W: size, H: size, X: anchorX, Y: anchorY}
	if growLeft {
		out.X = anchorX - size
	}
	if growUp {
		out.Y = anchorY - size
	}
	// minSize can push past the bounds at the edges; shift back in.
	out.X = clamp(out.X, 0, math.Max(0, boundsW-size))
	out.Y = clamp(out.Y, 0, math.Max(0, boundsH-size))
	return out
}

// ContainRect returns the rectangle the image actually occupies inside
// its container under object-contain scaling: centered, aspect ratio
// preserved, letterboxed on the short axis.
func ContainRect(containerW, containerH, naturalW, naturalH float64) (x, y, w, h float64) {
	if naturalW <= 0 || naturalH <= 0 || containerW <= 0 || containerH <= 0 {
		return 0, 0, 0, 0
	}
	scale := math.Min(containerW/naturalW, containerH/naturalH)
	w = naturalW * scale
	h = naturalH * scale
	x = (containerW - w) / 2
	y = (containerH - h) / 2
	return x, y, w, h
}

// MapToNatural translates a display-coordinate crop box into natural
// image pixels. A box that strays into the letterboxed area is clamped
// into the image silently; the result always lies within the natural
// bounds and never has negative size (it may be empty when the box is
// entirely outside the image).
func MapToNatural(box Box, containerW, containerH float64, naturalW, naturalH int) image.Rectangle {
	ex, ey, ew, eh := ContainRect(containerW, containerH, float64(naturalW), float64(naturalH))
	if ew <= 0 || eh <= 0 {
		return image.Rectangle{}
	}

	x0 := clamp(box.X-ex, 0, ew)
	y0 := clamp(box.Y-ey, 0, eh)
	x1 := clamp(box.X+box.W-ex, 0, ew)
	y1 := clamp(box.Y+box.H-ey, 0, eh)

	sx := float64(naturalW) / ew
	sy := float64(naturalH) / eh

	rect := image.Rect(
		int(math.Round(x0*sx)),
		int(math.Round(y0*sy)),
		int(math.Round(x1*sx)),
		int(math.Round(y1*sy)),
	)
	return rect.Intersect(image.Rect(0, 0, naturalW, naturalH))
}
