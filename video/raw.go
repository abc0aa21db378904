package video

import (
	"context"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// RawCodec is a lossless Encoder and Decoder that LZ4-compresses the
// pixels as one block behind a small header:
//
//	uleb128(width) uleb128(height) uleb128(stride) uleb128(len(pix)) block
type RawCodec struct{}

const maxBlockRatio = 255

func (RawCodec) Encode(_ context.Context, img Image) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	var b []byte
	b = codec.AppendUint(b, uint64(img.Width))
	b = codec.AppendUint(b, uint64(img.Height))
	b = codec.AppendUint(b, uint64(img.Stride))
	b = codec.AppendUint(b, uint64(len(img.Pix)))
	if len(img.Pix) == 0 {
		return b, nil
	}

	header := len(b)
	b = append(b, make([]byte, lz4.CompressBlockBound(len(img.Pix)))...)
	var c lz4.Compressor
	n, err := c.CompressBlock(img.Pix, b[header:])
	if err != nil {
		return nil, errors.Wrap(err, "video: compress")
	}
	return b[:header+n], nil
}

func (RawCodec) Decode(_ context.Context, data []byte) (Image, error) {
	c := codec.NewCursor(data)
	var dims [4]uint64
	for i := range dims {
		v, err := codec.DecodeUint(c)
		if err != nil {
			return Image{}, errors.Wrap(err, "video: header")
		}
		dims[i] = v
	}
	// An LZ4 block expands at most 255 times, so the declared size is
	// checked against the bytes present before anything is allocated.
	if dims[3] > 1<<30 || dims[3] > uint64(c.Remaining())*maxBlockRatio {
		return Image{}, errors.Wrapf(ErrInvalidImage, "%d bytes from a %d byte block", dims[3], c.Remaining())
	}
	if dims[2]*dims[1] != dims[3] {
		return Image{}, errors.Wrapf(ErrInvalidImage, "%d bytes for %d rows of %d", dims[3], dims[1], dims[2])
	}
	img := Image{
		Width:  int(dims[0]),
		Height: int(dims[1]),
		Stride: int(dims[2]),
		Pix:    make([]byte, dims[3]),
	}
	if len(img.Pix) > 0 {
		n, err := lz4.UncompressBlock(c.Rest(), img.Pix)
		if err != nil {
			return Image{}, errors.Wrap(codec.ErrCorruptEncoding, err.Error())
		}
		if n != len(img.Pix) {
			return Image{}, errors.Wrapf(codec.ErrCorruptEncoding, "video: %d of %d bytes", n, len(img.Pix))
		}
	}
	return img, img.Validate()
}
