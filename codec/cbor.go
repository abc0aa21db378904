package codec

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var (
	cborEnc = mustEncMode(cbor.CoreDetEncOptions())
	cborDec = mustDecMode(cbor.DecOptions{})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(err)
	}
	return m
}

// MarshalCBOR encodes a structured value with deterministic CBOR, so
// equal values always produce equal bytes.
func MarshalCBOR(v interface{}) ([]byte, error) {
	b, err := cborEnc.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "codec: cbor")
	}
	return b, nil
}

// UnmarshalCBOR decodes data into the value pointed to by v.
func UnmarshalCBOR(data []byte, v interface{}) error {
	if err := cborDec.Unmarshal(data, v); err != nil {
		return errors.Wrap(ErrCorruptEncoding, err.Error())
	}
	return nil
}
