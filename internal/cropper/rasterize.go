package cropper

import (
	"bytes"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyCrop is returned when the crop box lies entirely outside the
// displayed image.
var ErrEmptyCrop = errors.New("crop region is empty")

const jpegQuality = 90

// Rasterize maps the display-coordinate crop box onto the image's
// natural pixels, crops that region and encodes it as JPEG.
func Rasterize(img image.Image, box Box, containerW, containerH float64) ([]byte, error) {
	bounds := img.Bounds()
	rect := MapToNatural(box, containerW, containerH, bounds.Dx(), bounds.Dy())
	if rect.Empty() {
		return nil, ErrEmptyCrop
	}

	cropped := imaging.Crop(img, rect)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
