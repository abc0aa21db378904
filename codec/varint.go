package codec

import (
	"io"
	"math/bits"
)

// MaxVarintLen is the longest ULEB128 encoding of a uint64.
const MaxVarintLen = 10

// AppendUint appends the ULEB128 encoding of n to dst.
func AppendUint(dst []byte, n uint64) []byte {
	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}
	return append(dst, byte(n))
}

// EncodeUint returns the ULEB128 encoding of n.
func EncodeUint(n uint64) []byte {
	return AppendUint(make([]byte, 0, UintLen(n)), n)
}

// UintLen returns the number of bytes EncodeUint(n) produces.
func UintLen(n uint64) int {
	return (bits.Len64(n|1) + 6) / 7
}

// DecodeUint reads one ULEB128 value from c. On failure the cursor is
// left where it was.
func DecodeUint(c *Cursor) (uint64, error) {
	var n uint64
	var shift uint
	for i := c.off; i < len(c.buf); i++ {
		b := c.buf[i]
		if i-c.off == MaxVarintLen-1 && b > 1 {
			return 0, ErrMalformedVarint
		}
		n |= uint64(b&0x7f) << shift
		if b < 0x80 {
			c.off = i + 1
			return n, nil
		}
		shift += 7
	}
	return 0, ErrMalformedVarint
}

// AppendInt appends the ZigZag ULEB128 encoding of n to dst.
func AppendInt(dst []byte, n int64) []byte {
	return AppendUint(dst, uint64(n<<1)^uint64(n>>63))
}

// DecodeInt reads one ZigZag ULEB128 value from c.
func DecodeInt(c *Cursor) (int64, error) {
	u, err := DecodeUint(c)
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

// ReadUint reads one ULEB128 value from a byte stream. A stream that ends
// before the first byte returns io.EOF; one that ends inside the value
// returns io.ErrUnexpectedEOF.
func ReadUint(r io.ByteReader) (uint64, error) {
	var n uint64
	var shift uint
	for i := 0; i < MaxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if i == MaxVarintLen-1 && b > 1 {
			return 0, ErrMalformedVarint
		}
		n |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return n, nil
		}
		shift += 7
	}
	return 0, ErrMalformedVarint
}
