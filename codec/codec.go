// Package codec implements the primitive wire encodings shared by every
// message: ULEB128 varints, tagged optionals, length-prefixed packs and
// the CBOR encoding used for structured payloads.
package codec

import (
	"encoding"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedVarint is returned when input ends before a varint's
	// final byte or the value does not fit in 64 bits.
	ErrMalformedVarint = errors.New("codec: malformed varint")

	// ErrTruncatedPayload is returned when a pack declares more bytes
	// than the payload holds.
	ErrTruncatedPayload = errors.New("codec: truncated payload")

	// ErrCorruptEncoding is returned for bytes that cannot be the
	// encoding of the expected type, such as an unknown optional tag.
	ErrCorruptEncoding = errors.New("codec: corrupt encoding")
)

// Marshaler is the encoding side of a wire value.
type Marshaler = encoding.BinaryMarshaler

// Unmarshaler is the decoding side of a wire value.
type Unmarshaler = encoding.BinaryUnmarshaler
