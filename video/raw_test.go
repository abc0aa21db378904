package video

import (
	"context"
	"testing"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.Pix[y*img.Stride+x*BytesPerPixel:]
			p[0], p[1], p[2], p[3] = byte(x), byte(y), byte(x+y), 0xff
		}
	}
	return img
}

func TestRawCodec(t *testing.T) {
	ctx := context.Background()
	var rc RawCodec
	for _, img := range []Image{gradient(64, 32), gradient(1, 1), NewImage(0, 0)} {
		b, err := rc.Encode(ctx, img)
		require.NoError(t, err)
		got, err := rc.Decode(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, img.Width, got.Width)
		assert.Equal(t, img.Height, got.Height)
		assert.Equal(t, img.Stride, got.Stride)
		assert.Equal(t, len(img.Pix), len(got.Pix))
		assert.Equal(t, img.Pix, got.Pix)
	}
}

func TestRawCodecRejects(t *testing.T) {
	ctx := context.Background()
	var rc RawCodec

	_, err := rc.Encode(ctx, Image{Width: 2, Height: 2, Stride: 8, Pix: make([]byte, 3)})
	assert.ErrorIs(t, err, ErrInvalidImage)

	b, err := rc.Encode(ctx, gradient(8, 8))
	require.NoError(t, err)
	_, err = rc.Decode(ctx, b[:len(b)-4])
	assert.ErrorIs(t, err, codec.ErrCorruptEncoding)

	_, err = rc.Decode(ctx, []byte{0x80})
	assert.ErrorIs(t, err, codec.ErrMalformedVarint)
}

func TestRawCodecBoundsDeclaredSize(t *testing.T) {
	ctx := context.Background()
	var rc RawCodec

	// 16384 rows of 65536 bytes declared over a 2 byte block.
	var b []byte
	b = codec.AppendUint(b, 16384)
	b = codec.AppendUint(b, 16384)
	b = codec.AppendUint(b, 65536)
	b = codec.AppendUint(b, 1<<30)
	_, err := rc.Decode(ctx, append(b, 0x10, 0x00))
	assert.ErrorIs(t, err, ErrInvalidImage)

	// Stride times height disagrees with the pixel count.
	b = b[:0]
	b = codec.AppendUint(b, 2)
	b = codec.AppendUint(b, 2)
	b = codec.AppendUint(b, 8)
	b = codec.AppendUint(b, 12)
	_, err = rc.Decode(ctx, append(b, 0xc0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
