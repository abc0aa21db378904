package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackLayout(t *testing.T) {
	b, err := Pack(Bytes{0xaa}, Bytes{0xbb, 0xcc})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0xaa, 0xbb, 0xcc}, b)

	var x, y Bytes
	require.NoError(t, Unpack(b, &x, &y))
	assert.Equal(t, Bytes{0xaa}, x)
	assert.Equal(t, Bytes{0xbb, 0xcc}, y)
}

func TestPackEmpty(t *testing.T) {
	b, err := Pack()
	require.NoError(t, err)
	assert.Empty(t, b)
	require.NoError(t, Unpack(b))

	b, err = Pack(Void{}, String(""))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, b)
}

func TestPackMixed(t *testing.T) {
	b, err := Pack(Uint(300), Int(-7), Bool(true), String("héllo"), Time{Value: -3, Scale: 600})
	require.NoError(t, err)

	var (
		u  Uint
		i  Int
		ok Bool
		s  String
		tm Time
	)
	require.NoError(t, Unpack(b, &u, &i, &ok, &s, &tm))
	assert.Equal(t, Uint(300), u)
	assert.Equal(t, Int(-7), i)
	assert.True(t, bool(ok))
	assert.Equal(t, String("héllo"), s)
	assert.Equal(t, Time{Value: -3, Scale: 600}, tm)
	assert.InDelta(t, -0.005, tm.Seconds(), 1e-9)
}

func TestSplitTruncated(t *testing.T) {
	_, err := Split([]byte{0x05, 0x01, 0x02}, 1)
	assert.ErrorIs(t, err, ErrTruncatedPayload)

	_, err = Split([]byte{0x01, 0x02, 0xaa, 0xbb}, 2)
	assert.ErrorIs(t, err, ErrTruncatedPayload)

	_, err = Split([]byte{0x01}, 2)
	assert.ErrorIs(t, err, ErrMalformedVarint)
}

func TestSplitIgnoresTrailing(t *testing.T) {
	spans, err := Split([]byte{0x01, 0x01, 0xaa, 0xbb, 0xcc, 0xdd}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xaa}, {0xbb}}, spans)
}

func TestPackBytesMatchesPack(t *testing.T) {
	a, err := Pack(Bytes("one"), Bytes(""), Bytes("three"))
	require.NoError(t, err)
	assert.Equal(t, a, PackBytes([]byte("one"), nil, []byte("three")))
}

func TestElementErrors(t *testing.T) {
	var b Bool
	assert.ErrorIs(t, b.UnmarshalBinary([]byte{2}), ErrCorruptEncoding)
	var v Void
	assert.ErrorIs(t, v.UnmarshalBinary([]byte{0}), ErrCorruptEncoding)
	var u Uint
	assert.ErrorIs(t, u.UnmarshalBinary([]byte{0x01, 0x00}), ErrCorruptEncoding)
	assert.ErrorIs(t, u.UnmarshalBinary(nil), ErrMalformedVarint)

	packed := PackBytes([]byte{0x07})
	assert.ErrorIs(t, Unpack(packed, &b), ErrCorruptEncoding)
}
