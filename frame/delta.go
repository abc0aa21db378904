package frame

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"

	"github.com/ensemblecast/ensemble/codec"
)

// SourceID names one video source, e.g. the window being cast.
type SourceID uint32

// State is how far the mask of a source has progressed.
type State int

const (
	NoMaskSent State = iota
	MaskSent
	MaskAcknowledged
)

func (s State) String() string {
	switch s {
	case NoMaskSent:
		return "NoMaskSent"
	case MaskSent:
		return "MaskSent"
	case MaskAcknowledged:
		return "MaskAcknowledged"
	}
	return "State(?)"
}

type sentMask struct {
	sync.Mutex
	last  []byte
	hash  Hash
	acked bool
}

// Sender builds outgoing frames and decides, per source, whether the
// mask has to travel with them.
type Sender struct {
	mu      sync.Mutex
	sources map[SourceID]*sentMask
}

func NewSender() *Sender {
	return &Sender{sources: make(map[SourceID]*sentMask)}
}

func (s *Sender) entry(src SourceID) *sentMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sources[src]
	if !ok {
		e = &sentMask{}
		s.sources[src] = e
	}
	return e
}

func (s *Sender) lookup(src SourceID) *sentMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[src]
}

// Encode wraps an encoded video unit and its mask into a frame. The mask
// is left out only when it is byte-identical to the last one sent for
// src and that one has been acknowledged.
func (s *Sender) Encode(src SourceID, unit []byte, m Mask) (*Frame, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	f := &Frame{
		Width:      m.Width,
		Height:     m.Height,
		MaskStride: m.Stride,
		Video:      unit,
	}

	e := s.entry(src)
	e.Lock()
	defer e.Unlock()

	if e.last != nil && e.acked && bytes.Equal(e.last, m.Pix) {
		return f, nil
	}
	if e.last == nil || !bytes.Equal(e.last, m.Pix) {
		e.last = append([]byte{}, m.Pix...)
		e.hash = HashMask(e.last)
		e.acked = false
	}

	compressed, err := Compress(m.Pix)
	if err != nil {
		return nil, err
	}
	f.HasMask = true
	f.Mask = compressed
	return f, nil
}

// Acknowledge records that the receiver holds the mask with digest h. It
// reports false, leaving the state alone, when h is not the digest of the
// mask last sent for src.
func (s *Sender) Acknowledge(src SourceID, h Hash) bool {
	e := s.lookup(src)
	if e == nil {
		return false
	}
	e.Lock()
	defer e.Unlock()
	if e.last == nil || e.hash != h {
		return false
	}
	e.acked = true
	return true
}

// Reset forgets everything known about src.
func (s *Sender) Reset(src SourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, src)
}

func (s *Sender) State(src SourceID) State {
	e := s.lookup(src)
	if e == nil {
		return NoMaskSent
	}
	e.Lock()
	defer e.Unlock()
	switch {
	case e.last == nil:
		return NoMaskSent
	case e.acked:
		return MaskAcknowledged
	default:
		return MaskSent
	}
}

type heldMask struct {
	sync.Mutex
	mask *Mask
}

// Receiver decodes incoming frames and keeps, per source, the last mask
// adopted so frames without one can reuse it.
type Receiver struct {
	mu      sync.Mutex
	sources map[SourceID]*heldMask
}

func NewReceiver() *Receiver {
	return &Receiver{sources: make(map[SourceID]*heldMask)}
}

func (r *Receiver) entry(src SourceID) *heldMask {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sources[src]
	if !ok {
		e = &heldMask{}
		r.sources[src] = e
	}
	return e
}

// Decode returns the mask that applies to f. When f carried the mask,
// the digest to acknowledge is returned too; it is nil when the cached
// mask was reused.
func (r *Receiver) Decode(src SourceID, f *Frame) (Mask, *Hash, error) {
	e := r.entry(src)
	e.Lock()
	defer e.Unlock()

	if !f.HasMask {
		if e.mask == nil {
			return Mask{}, nil, errors.Wrapf(ErrMissingMask, "source %d", src)
		}
		if e.mask.Width != f.Width || e.mask.Height != f.Height {
			return Mask{}, nil, errors.Wrapf(ErrDimensionMismatch, "frame %dx%d, held mask %dx%d",
				f.Width, f.Height, e.mask.Width, e.mask.Height)
		}
		return *e.mask, nil, nil
	}

	m, err := DecodeMask(f)
	if err != nil {
		return Mask{}, nil, err
	}
	e.mask = &m
	h := HashMask(m.Pix)
	return m, &h, nil
}

// Reset forgets the mask held for src.
func (r *Receiver) Reset(src SourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, src)
}

// DecodeMask decompresses the mask carried by f, independent of any
// receiver state.
func DecodeMask(f *Frame) (Mask, error) {
	if !f.HasMask {
		return Mask{}, ErrMissingMask
	}
	if f.MaskStride < f.Width {
		return Mask{}, errors.Wrapf(ErrDimensionMismatch, "stride %d for width %d", f.MaskStride, f.Width)
	}
	if f.Height < 0 || f.MaskStride*f.Height > MaxMaskBytes {
		return Mask{}, errors.Wrapf(codec.ErrCorruptEncoding, "frame: mask plane %dx%d", f.MaskStride, f.Height)
	}
	pix, err := Decompress(f.Mask, f.MaskStride*f.Height)
	if err != nil {
		return Mask{}, err
	}
	return Mask{Width: f.Width, Height: f.Height, Stride: f.MaskStride, Pix: pix}, nil
}

// Standalone builds a frame that always carries its mask, for stills
// that are not part of any source's sequence.
func Standalone(unit []byte, m Mask) (*Frame, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	compressed, err := Compress(m.Pix)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Width:      m.Width,
		Height:     m.Height,
		MaskStride: m.Stride,
		HasMask:    true,
		Video:      unit,
		Mask:       compressed,
	}, nil
}
