package codec

// Uint is an unsigned integer encoded as ULEB128.
type Uint uint64

func (u Uint) MarshalBinary() ([]byte, error) {
	return EncodeUint(uint64(u)), nil
}

func (u *Uint) UnmarshalBinary(b []byte) error {
	c := NewCursor(b)
	n, err := DecodeUint(c)
	if err != nil {
		return err
	}
	if c.Remaining() != 0 {
		return ErrCorruptEncoding
	}
	*u = Uint(n)
	return nil
}

// Int is a signed integer encoded as ZigZag ULEB128.
type Int int64

func (i Int) MarshalBinary() ([]byte, error) {
	return AppendInt(nil, int64(i)), nil
}

func (i *Int) UnmarshalBinary(b []byte) error {
	c := NewCursor(b)
	n, err := DecodeInt(c)
	if err != nil {
		return err
	}
	if c.Remaining() != 0 {
		return ErrCorruptEncoding
	}
	*i = Int(n)
	return nil
}

// Bool is a single byte, 0 or 1.
type Bool bool

func (v Bool) MarshalBinary() ([]byte, error) {
	if v {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (v *Bool) UnmarshalBinary(b []byte) error {
	if len(b) != 1 || b[0] > 1 {
		return ErrCorruptEncoding
	}
	*v = b[0] == 1
	return nil
}

// Bytes encodes as itself.
type Bytes []byte

func (v Bytes) MarshalBinary() ([]byte, error) {
	return v, nil
}

func (v *Bytes) UnmarshalBinary(b []byte) error {
	*v = append(Bytes(nil), b...)
	return nil
}

// String encodes as its UTF-8 bytes.
type String string

func (v String) MarshalBinary() ([]byte, error) {
	return []byte(v), nil
}

func (v *String) UnmarshalBinary(b []byte) error {
	*v = String(b)
	return nil
}

// Void is the empty payload of requests and replies that carry nothing.
type Void struct{}

func (Void) MarshalBinary() ([]byte, error) {
	return nil, nil
}

func (*Void) UnmarshalBinary(b []byte) error {
	if len(b) != 0 {
		return ErrCorruptEncoding
	}
	return nil
}

// Time is a rational media timestamp, Value/Scale seconds.
type Time struct {
	Value int64
	Scale uint32
}

func (t Time) MarshalBinary() ([]byte, error) {
	b := AppendInt(nil, t.Value)
	return AppendUint(b, uint64(t.Scale)), nil
}

func (t *Time) UnmarshalBinary(b []byte) error {
	c := NewCursor(b)
	v, err := DecodeInt(c)
	if err != nil {
		return err
	}
	s, err := DecodeUint(c)
	if err != nil {
		return err
	}
	if s > 1<<32-1 || c.Remaining() != 0 {
		return ErrCorruptEncoding
	}
	t.Value, t.Scale = v, uint32(s)
	return nil
}

// Seconds returns t as floating point seconds, or 0 for a zero scale.
func (t Time) Seconds() float64 {
	if t.Scale == 0 {
		return 0
	}
	return float64(t.Value) / float64(t.Scale)
}
