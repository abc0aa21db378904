package codec

const (
	tagAbsent  byte = 0
	tagPresent byte = 1
)

// EncodeOptional encodes v behind a presence tag. A nil v encodes as
// absent.
func EncodeOptional(v Marshaler) ([]byte, error) {
	if v == nil {
		return []byte{tagAbsent}, nil
	}
	b, err := v.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append([]byte{tagPresent}, b...), nil
}

// DecodeOptional decodes a tagged optional into dst and reports whether a
// value was present. dst is untouched when the value is absent.
func DecodeOptional(data []byte, dst Unmarshaler) (bool, error) {
	if len(data) == 0 {
		return false, ErrCorruptEncoding
	}
	switch data[0] {
	case tagAbsent:
		return false, nil
	case tagPresent:
		if err := dst.UnmarshalBinary(data[1:]); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrCorruptEncoding
	}
}
