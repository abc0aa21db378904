// Package frame carries encoded video together with the window's alpha
// mask, and tracks per source which mask the receiver already holds so
// that an unchanged, acknowledged mask is not sent again.
package frame

import (
	"fmt"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/pkg/errors"
)

// MaxDimension bounds the width, height and stride a frame may declare.
const MaxDimension = 1 << 15

// MaxMaskBytes bounds the mask plane, stride times height, a frame may
// declare.
const MaxMaskBytes = 1 << 26

var (
	// ErrMissingMask is the protocol violation of a frame that omits its
	// mask before any mask was received for the source.
	ErrMissingMask = errors.New("frame: mask omitted before any was sent")

	// ErrDimensionMismatch is returned when a mask does not cover the
	// image it belongs to.
	ErrDimensionMismatch = errors.New("frame: dimension mismatch")
)

// Frame is one encoded video unit plus, when HasMask is set, the LZ4
// compressed alpha mask. Width, Height and MaskStride describe the mask
// plane, which covers the decoded image exactly.
type Frame struct {
	Width      int
	Height     int
	MaskStride int
	HasMask    bool
	Video      []byte
	Mask       []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("{Frame %dx%d Stride:%d Video:%d Mask:%t/%d}",
		f.Width, f.Height, f.MaskStride, len(f.Video), f.HasMask, len(f.Mask))
}

// MarshalBinary encodes f as
//
//	uleb128(width) uleb128(height) uleb128(stride) has_mask (has_mask ? pack(video, mask) : video)
func (f Frame) MarshalBinary() ([]byte, error) {
	if f.HasMask != (f.Mask != nil) {
		return nil, errors.Errorf("frame: HasMask is %t with %d mask bytes", f.HasMask, len(f.Mask))
	}
	var b []byte
	b = codec.AppendUint(b, uint64(f.Width))
	b = codec.AppendUint(b, uint64(f.Height))
	b = codec.AppendUint(b, uint64(f.MaskStride))
	if !f.HasMask {
		b = append(b, 0)
		return append(b, f.Video...), nil
	}
	b = append(b, 1)
	return append(b, codec.PackBytes(f.Video, f.Mask)...), nil
}

func (f *Frame) UnmarshalBinary(b []byte) error {
	c := codec.NewCursor(b)
	var dims [3]int
	for i := range dims {
		v, err := codec.DecodeUint(c)
		if err != nil {
			return errors.Wrap(err, "frame: header")
		}
		if v > MaxDimension {
			return errors.Wrapf(codec.ErrCorruptEncoding, "frame: dimension %d", v)
		}
		dims[i] = int(v)
	}
	flag, err := c.ReadByte()
	if err != nil {
		return errors.Wrap(err, "frame: mask flag")
	}

	if dims[1]*dims[2] > MaxMaskBytes {
		return errors.Wrapf(codec.ErrCorruptEncoding, "frame: mask plane %dx%d", dims[2], dims[1])
	}

	out := Frame{Width: dims[0], Height: dims[1], MaskStride: dims[2]}
	switch flag {
	case 0:
		out.Video = append([]byte{}, c.Rest()...)
	case 1:
		spans, err := codec.Split(c.Rest(), 2)
		if err != nil {
			return errors.Wrap(err, "frame: body")
		}
		out.HasMask = true
		out.Video = append([]byte{}, spans[0]...)
		out.Mask = append([]byte{}, spans[1]...)
	default:
		return errors.Wrapf(codec.ErrCorruptEncoding, "frame: mask flag %d", flag)
	}
	*f = out
	return nil
}
