package message

import (
	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/frame"
	"github.com/pkg/errors"
)

// Structured payloads travel as deterministic CBOR. Each MarshalBinary
// converts to a method-less copy of its type so the CBOR encoder does not
// call back into it.

type Handshake struct {
	Version uint64 `cbor:"version"`
}

func (h Handshake) MarshalBinary() ([]byte, error) {
	type plain Handshake
	return codec.MarshalCBOR(plain(h))
}

func (h *Handshake) UnmarshalBinary(b []byte) error {
	type plain Handshake
	return codec.UnmarshalCBOR(b, (*plain)(h))
}

// Rect is a window's frame in host screen points.
type Rect struct {
	X      float64 `cbor:"x"`
	Y      float64 `cbor:"y"`
	Width  float64 `cbor:"w"`
	Height float64 `cbor:"h"`
}

type Window struct {
	ID    uint32  `cbor:"id"`
	Title *string `cbor:"title,omitempty"`
	App   string  `cbor:"app"`
	Frame Rect    `cbor:"frame"`
	Layer int     `cbor:"layer"`
}

type WindowList struct {
	Windows []Window `cbor:"windows"`
}

func (l WindowList) MarshalBinary() ([]byte, error) {
	type plain WindowList
	return codec.MarshalCBOR(plain(l))
}

func (l *WindowList) UnmarshalBinary(b []byte) error {
	type plain WindowList
	return codec.UnmarshalCBOR(b, (*plain)(l))
}

// WindowRequest names the window an operation applies to.
type WindowRequest struct {
	WindowID uint32 `cbor:"window"`
}

func (r WindowRequest) MarshalBinary() ([]byte, error) {
	type plain WindowRequest
	return codec.MarshalCBOR(plain(r))
}

func (r *WindowRequest) UnmarshalBinary(b []byte) error {
	type plain WindowRequest
	return codec.UnmarshalCBOR(b, (*plain)(r))
}

// Preview is a still of a window, absent when the window cannot be
// captured. It is encoded as an optional frame.
type Preview struct {
	Frame *frame.Frame
}

func (p Preview) MarshalBinary() ([]byte, error) {
	if p.Frame == nil {
		return codec.EncodeOptional(nil)
	}
	return codec.EncodeOptional(p.Frame)
}

func (p *Preview) UnmarshalBinary(b []byte) error {
	var f frame.Frame
	present, err := codec.DecodeOptional(b, &f)
	if err != nil {
		return err
	}
	p.Frame = nil
	if present {
		p.Frame = &f
	}
	return nil
}

// Frame is one cast frame of a window, encoded as uleb128(window)
// followed by the frame.
type Frame struct {
	WindowID uint32
	Frame    frame.Frame
}

func (f Frame) MarshalBinary() ([]byte, error) {
	body, err := f.Frame.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(codec.EncodeUint(uint64(f.WindowID)), body...), nil
}

func (f *Frame) UnmarshalBinary(b []byte) error {
	c := codec.NewCursor(b)
	id, err := codec.DecodeUint(c)
	if err != nil {
		return errors.Wrap(err, "message: window id")
	}
	if id > 1<<32-1 {
		return errors.Wrapf(codec.ErrCorruptEncoding, "message: window id %d", id)
	}
	f.WindowID = uint32(id)
	return f.Frame.UnmarshalBinary(c.Rest())
}

// MaskAck tells the host which mask the viewer now holds for a window.
type MaskAck struct {
	WindowID uint32 `cbor:"window"`
	Hash     []byte `cbor:"hash"`
}

func (a MaskAck) MarshalBinary() ([]byte, error) {
	type plain MaskAck
	return codec.MarshalCBOR(plain(a))
}

func (a *MaskAck) UnmarshalBinary(b []byte) error {
	type plain MaskAck
	return codec.UnmarshalCBOR(b, (*plain)(a))
}

// Children lists the child windows currently open above a parent.
type Children struct {
	Parent   uint32   `cbor:"parent"`
	Children []uint32 `cbor:"children"`
}

func (c Children) MarshalBinary() ([]byte, error) {
	type plain Children
	return codec.MarshalCBOR(plain(c))
}

func (c *Children) UnmarshalBinary(b []byte) error {
	type plain Children
	return codec.UnmarshalCBOR(b, (*plain)(c))
}

// Pointer is a location within a window, in window points from the
// top-left corner.
type Pointer struct {
	WindowID uint32  `cbor:"window"`
	X        float64 `cbor:"x"`
	Y        float64 `cbor:"y"`
}

func (p Pointer) MarshalBinary() ([]byte, error) {
	type plain Pointer
	return codec.MarshalCBOR(plain(p))
}

func (p *Pointer) UnmarshalBinary(b []byte) error {
	type plain Pointer
	return codec.UnmarshalCBOR(b, (*plain)(p))
}

// Scroll is one step of a scroll gesture.
type Scroll struct {
	WindowID uint32  `cbor:"window"`
	DX       float64 `cbor:"dx"`
	DY       float64 `cbor:"dy"`
}

func (s Scroll) MarshalBinary() ([]byte, error) {
	type plain Scroll
	return codec.MarshalCBOR(plain(s))
}

func (s *Scroll) UnmarshalBinary(b []byte) error {
	type plain Scroll
	return codec.UnmarshalCBOR(b, (*plain)(s))
}

// Key is a key press or release. Code is a virtual key code.
type Key struct {
	WindowID uint32 `cbor:"window"`
	Code     uint16 `cbor:"code"`
	Down     bool   `cbor:"down"`
}

func (k Key) MarshalBinary() ([]byte, error) {
	type plain Key
	return codec.MarshalCBOR(plain(k))
}

func (k *Key) UnmarshalBinary(b []byte) error {
	type plain Key
	return codec.UnmarshalCBOR(b, (*plain)(k))
}
