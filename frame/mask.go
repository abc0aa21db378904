package frame

import (
	"bytes"
	"crypto/sha256"
	"io"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/video"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// alpha is the channel index of alpha in a BGRA pixel.
const alpha = 3

// Mask is an 8-bit alpha plane. Row y starts at Pix[y*Stride].
type Mask struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// Hash is the SHA-256 digest of a mask's plane bytes.
type Hash [sha256.Size]byte

func HashMask(pix []byte) Hash {
	return sha256.Sum256(pix)
}

// HashFromBytes converts a digest received on the wire.
func HashFromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != len(h) {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

func (m Mask) validate() error {
	if m.Width < 0 || m.Height < 0 || m.Stride < m.Width || len(m.Pix) != m.Stride*m.Height {
		return errors.Wrapf(ErrDimensionMismatch, "mask %dx%d stride %d with %d bytes",
			m.Width, m.Height, m.Stride, len(m.Pix))
	}
	return nil
}

// Compress returns the LZ4 frame encoding of pix.
func Compress(pix []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(pix); err != nil {
		return nil, errors.Wrap(err, "frame: compress")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "frame: compress")
	}
	return buf.Bytes(), nil
}

// Decompress decodes an LZ4 frame that must hold exactly size bytes.
// The output grows with the data actually decoded, so a short frame
// claiming a large size costs no more than its contents.
func Decompress(data []byte, size int) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(zr, int64(size)+1))
	if err != nil {
		return nil, errors.Wrapf(codec.ErrCorruptEncoding, "frame: decompress: %v", err)
	}
	switch {
	case n > int64(size):
		return nil, errors.Wrapf(codec.ErrCorruptEncoding, "frame: mask longer than %d bytes", size)
	case n < int64(size):
		return nil, errors.Wrapf(codec.ErrCorruptEncoding, "frame: mask of %d bytes, want %d", n, size)
	}
	return buf.Bytes(), nil
}

// ExtractAlpha copies the alpha channel of img into a packed mask.
func ExtractAlpha(img video.Image) Mask {
	m := Mask{
		Width:  img.Width,
		Height: img.Height,
		Stride: img.Width,
		Pix:    make([]byte, img.Width*img.Height),
	}
	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Stride:]
		out := m.Pix[y*m.Stride:]
		for x := 0; x < img.Width; x++ {
			out[x] = row[x*video.BytesPerPixel+alpha]
		}
	}
	return m
}

// ApplyAlpha overwrites the alpha channel of img with m.
func ApplyAlpha(img *video.Image, m Mask) error {
	if img.Width != m.Width || img.Height != m.Height {
		return errors.Wrapf(ErrDimensionMismatch, "image %dx%d, mask %dx%d",
			img.Width, img.Height, m.Width, m.Height)
	}
	if err := m.validate(); err != nil {
		return err
	}
	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Stride:]
		in := m.Pix[y*m.Stride:]
		for x := 0; x < img.Width; x++ {
			row[x*video.BytesPerPixel+alpha] = in[x]
		}
	}
	return nil
}
