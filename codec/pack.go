package codec

import "github.com/pkg/errors"

// Pack encodes values as every body length, in order, followed by every
// body. The number of values is never written; the decoding side must
// expect the same arity.
func Pack(values ...Marshaler) ([]byte, error) {
	bodies := make([][]byte, len(values))
	size := 0
	for i, v := range values {
		b, err := v.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, "codec: pack element %d", i)
		}
		bodies[i] = b
		size += UintLen(uint64(len(b))) + len(b)
	}
	return appendPack(make([]byte, 0, size), bodies), nil
}

// PackBytes is Pack for values that are already encoded.
func PackBytes(bodies ...[]byte) []byte {
	size := 0
	for _, b := range bodies {
		size += UintLen(uint64(len(b))) + len(b)
	}
	return appendPack(make([]byte, 0, size), bodies)
}

func appendPack(dst []byte, bodies [][]byte) []byte {
	for _, b := range bodies {
		dst = AppendUint(dst, uint64(len(b)))
	}
	for _, b := range bodies {
		dst = append(dst, b...)
	}
	return dst
}

// Split reads n lengths from data and returns the n spans they describe.
// The spans alias data. Bytes after the last span are ignored.
func Split(data []byte, n int) ([][]byte, error) {
	c := NewCursor(data)
	sizes := make([]uint64, n)
	for i := range sizes {
		size, err := DecodeUint(c)
		if err != nil {
			return nil, err
		}
		sizes[i] = size
	}
	spans := make([][]byte, n)
	for i, size := range sizes {
		if size > uint64(c.Remaining()) {
			return nil, errors.Wrapf(ErrTruncatedPayload, "element %d wants %d bytes, %d left", i, size, c.Remaining())
		}
		spans[i], _ = c.Next(int(size))
	}
	return spans, nil
}

// Unpack decodes a pack of len(dst) elements into dst, in order.
func Unpack(data []byte, dst ...Unmarshaler) error {
	spans, err := Split(data, len(dst))
	if err != nil {
		return err
	}
	for i, span := range spans {
		if err := dst[i].UnmarshalBinary(span); err != nil {
			return errors.Wrapf(err, "codec: unpack element %d", i)
		}
	}
	return nil
}
