// Package video describes the encoder and decoder a cast pipeline hands
// window images to. The codecs themselves are opaque to the protocol.
package video

import (
	"context"

	"github.com/pkg/errors"
)

// BytesPerPixel is the size of one BGRA pixel.
const BytesPerPixel = 4

var ErrInvalidImage = errors.New("video: invalid image")

// Image is a BGRA raster. Row y starts at Pix[y*Stride].
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewImage allocates a zeroed image with tightly packed rows.
func NewImage(width, height int) Image {
	stride := width * BytesPerPixel
	return Image{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Validate checks that the dimensions describe Pix.
func (img Image) Validate() error {
	switch {
	case img.Width < 0 || img.Height < 0:
		return errors.Wrapf(ErrInvalidImage, "negative size %dx%d", img.Width, img.Height)
	case img.Stride < img.Width*BytesPerPixel:
		return errors.Wrapf(ErrInvalidImage, "stride %d too small for width %d", img.Stride, img.Width)
	case len(img.Pix) != img.Stride*img.Height:
		return errors.Wrapf(ErrInvalidImage, "%d bytes for %d rows of %d", len(img.Pix), img.Height, img.Stride)
	}
	return nil
}

// An Encoder turns window images into encoded units.
type Encoder interface {
	Encode(ctx context.Context, img Image) ([]byte, error)
}

// A Decoder turns encoded units back into images.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (Image, error)
}
