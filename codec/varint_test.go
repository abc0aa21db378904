package codec

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUintEncoding(t *testing.T) {
	tests := []struct {
		in  uint64
		out []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, test := range tests {
		b := EncodeUint(test.in)
		if !bytes.Equal(b, test.out) {
			t.Fatalf("EncodeUint(%d) = %x, want %x", test.in, b, test.out)
		}
		assert.Equal(t, len(b), UintLen(test.in))

		c := NewCursor(b)
		n, err := DecodeUint(c)
		require.NoError(t, err)
		assert.Equal(t, test.in, n)
		assert.Equal(t, 0, c.Remaining())
	}
}

func TestDecodeUintMalformed(t *testing.T) {
	for _, in := range [][]byte{
		nil,
		{0x80},
		{0xff, 0xff},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x81, 0x00},
	} {
		c := NewCursor(in)
		_, err := DecodeUint(c)
		assert.ErrorIs(t, err, ErrMalformedVarint, "input %x", in)
		assert.Equal(t, len(in), c.Remaining(), "cursor moved on failure")
	}
}

func TestDecodeUintSharedCursor(t *testing.T) {
	var b []byte
	for _, n := range []uint64{5, 1 << 20, 0, 77} {
		b = AppendUint(b, n)
	}
	b = append(b, "tail"...)

	c := NewCursor(b)
	for _, want := range []uint64{5, 1 << 20, 0, 77} {
		n, err := DecodeUint(c)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, []byte("tail"), c.Rest())
}

func TestIntZigZag(t *testing.T) {
	for _, n := range []int64{0, -1, 1, -64, 64, math.MinInt64, math.MaxInt64} {
		c := NewCursor(AppendInt(nil, n))
		got, err := DecodeInt(c)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
	assert.Equal(t, []byte{0x01}, AppendInt(nil, -1))
	assert.Equal(t, []byte{0x02}, AppendInt(nil, 1))
}

func TestReadUint(t *testing.T) {
	r := bytes.NewReader(append(EncodeUint(16384), EncodeUint(math.MaxUint64)...))
	n, err := ReadUint(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(16384), n)
	n, err = ReadUint(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), n)

	_, err = ReadUint(r)
	assert.ErrorIs(t, err, io.EOF)

	_, err = ReadUint(bytes.NewReader([]byte{0x80, 0x80}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadUint(bytes.NewReader(bytes.Repeat([]byte{0xff}, 11)))
	assert.ErrorIs(t, err, ErrMalformedVarint)
}
