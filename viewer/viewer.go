// Package viewer is the receiving side of a cast: it browses the host's
// windows, decodes their frames with alpha applied and sends input back.
package viewer

import (
	"context"
	"sync"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/frame"
	"github.com/ensemblecast/ensemble/message"
	"github.com/ensemblecast/ensemble/peer"
	"github.com/ensemblecast/ensemble/stream"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/ensemblecast/ensemble/video"
	"github.com/pkg/errors"
)

// ErrAlreadyCasting is returned when a window is cast twice at once.
var ErrAlreadyCasting = errors.New("viewer: window is already being cast")

// Viewer talks to one host over a session.
type Viewer struct {
	*peer.Peer

	decoder  video.Decoder
	receiver *frame.Receiver
	ready    chan struct{}

	mu       sync.Mutex
	casts    map[uint32]*Cast
	children map[uint32]*stream.Latest[[]uint32]
	host     chan uint64
}

// New starts a viewer session over conn. Frames are decoded by decoder.
func New(conn transport.Conn, decoder video.Decoder, opts ...peer.Option) *Viewer {
	v := &Viewer{
		decoder:  decoder,
		receiver: frame.NewReceiver(),
		ready:    make(chan struct{}),
		casts:    make(map[uint32]*Cast),
		children: make(map[uint32]*stream.Latest[[]uint32]),
		host:     make(chan uint64, 1),
	}
	m := message.NewRespondMux()
	message.AnswerHandshake(m, message.HostHandshakeOp, v.hostHandshake)
	message.Handle(m, message.WindowFrameOp, v.windowFrame)
	message.Handle(m, message.ChildWindowsOp, v.childWindows)
	v.Peer = peer.New(conn, m, opts...)
	close(v.ready)
	return v
}

func (v *Viewer) peer() *peer.Peer {
	<-v.ready
	return v.Peer
}

// Handshake tells the host which protocol version the viewer speaks and
// reports whether the host speaks it too.
func (v *Viewer) Handshake(ctx context.Context) (bool, error) {
	return v.peer().Handshake(ctx, message.ViewerHandshakeOp)
}

// HostVersion waits for the host's own handshake and returns the
// version it announced.
func (v *Viewer) HostVersion(ctx context.Context) (uint64, error) {
	select {
	case version := <-v.host:
		v.host <- version
		return version, nil
	case <-v.Done():
		return 0, v.Err()
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (v *Viewer) hostHandshake(remote uint64) {
	select {
	case v.host <- remote:
	default:
	}
	if remote != message.Version {
		v.peer().Log.WithField("remote", remote).Warn("viewer: host speaks another protocol version")
	}
}

// Windows lists the host's castable windows.
func (v *Viewer) Windows(ctx context.Context) ([]message.Window, error) {
	list, err := message.WindowsOp.Send(ctx, v.peer(), codec.Void{})
	if err != nil {
		return nil, err
	}
	return list.Windows, nil
}

// Preview fetches a still of window id with its alpha applied. It
// returns false when the host could not capture the window.
func (v *Viewer) Preview(ctx context.Context, id uint32) (video.Image, bool, error) {
	p, err := message.WindowPreviewOp.Send(ctx, v.peer(), message.WindowRequest{WindowID: id})
	if err != nil || p.Frame == nil {
		return video.Image{}, false, err
	}
	m, err := frame.DecodeMask(p.Frame)
	if err != nil {
		return video.Image{}, false, err
	}
	img, err := v.compose(ctx, p.Frame.Video, m)
	if err != nil {
		return video.Image{}, false, err
	}
	return img, true, nil
}

func (v *Viewer) compose(ctx context.Context, unit []byte, m frame.Mask) (video.Image, error) {
	img, err := v.decoder.Decode(ctx, unit)
	if err != nil {
		return video.Image{}, errors.Wrap(err, "viewer: decode video")
	}
	if err := frame.ApplyAlpha(&img, m); err != nil {
		return video.Image{}, err
	}
	return img, nil
}

// windowFrame fails the session on a frame that cannot be decoded: the
// receiver's mask state would no longer match the host's. Frames for a
// window no longer cast are still in flight from before StopCasting and
// are dropped undecoded.
func (v *Viewer) windowFrame(ctx context.Context, f message.Frame) (codec.Void, error) {
	src := frame.SourceID(f.WindowID)
	v.mu.Lock()
	c := v.casts[f.WindowID]
	v.mu.Unlock()
	if c == nil {
		return codec.Void{}, nil
	}

	m, hash, err := v.receiver.Decode(src, &f.Frame)
	if err != nil {
		return codec.Void{}, errors.Wrapf(err, "viewer: window %d", f.WindowID)
	}
	if hash != nil {
		go v.acknowledge(ctx, f.WindowID, *hash)
	}
	img, err := v.compose(ctx, f.Frame.Video, m)
	if err != nil {
		return codec.Void{}, errors.Wrapf(err, "viewer: window %d", f.WindowID)
	}
	c.frames.Put(img)
	return codec.Void{}, nil
}

func (v *Viewer) acknowledge(ctx context.Context, id uint32, hash frame.Hash) {
	p := v.peer()
	_, err := message.WindowMaskOp.Send(ctx, p, message.MaskAck{WindowID: id, Hash: hash[:]})
	if err != nil && ctx.Err() == nil {
		p.Log.WithError(err).WithField("window", id).Warn("viewer: acknowledge mask")
	}
}

func (v *Viewer) childWindows(ctx context.Context, c message.Children) (codec.Void, error) {
	v.mu.Lock()
	l := v.children[c.Parent]
	v.mu.Unlock()
	if l != nil {
		l.Put(c.Children)
	}
	return codec.Void{}, nil
}

// Cast is a running cast of one window. Next returns the newest frame;
// frames the caller had no time for are skipped.
type Cast struct {
	WindowID uint32

	v      *Viewer
	frames *stream.Latest[video.Image]
	once   sync.Once
}

// StartCasting asks the host to cast window id.
func (v *Viewer) StartCasting(ctx context.Context, id uint32) (*Cast, error) {
	c := &Cast{WindowID: id, v: v, frames: stream.NewLatest[video.Image]()}
	v.mu.Lock()
	if _, ok := v.casts[id]; ok {
		v.mu.Unlock()
		return nil, errors.Wrapf(ErrAlreadyCasting, "window %d", id)
	}
	// Registered before asking so no early frame is lost.
	v.casts[id] = c
	v.mu.Unlock()

	if _, err := message.StartCastingOp.Send(ctx, v.peer(), message.WindowRequest{WindowID: id}); err != nil {
		v.forget(c)
		return nil, err
	}
	return c, nil
}

func (v *Viewer) forget(c *Cast) {
	v.mu.Lock()
	if v.casts[c.WindowID] == c {
		delete(v.casts, c.WindowID)
	}
	v.mu.Unlock()
	c.frames.Close()
}

// Next waits for the newest frame. It returns stream.ErrClosed once the
// cast is closed.
func (c *Cast) Next(ctx context.Context) (video.Image, error) {
	img, err := c.frames.Next(ctx)
	if errors.Is(err, stream.ErrClosed) {
		select {
		case <-c.v.Done():
			if serr := c.v.Err(); serr != nil {
				return img, serr
			}
		default:
		}
	}
	return img, err
}

// Dropped counts frames replaced before Next could return them.
func (c *Cast) Dropped() uint64 {
	return c.frames.Dropped()
}

// Close asks the host to stop and forgets the window's mask.
func (c *Cast) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.v.forget(c)
		_, err = message.StopCastingOp.Send(ctx, c.v.peer(), message.WindowRequest{WindowID: c.WindowID})
		c.v.receiver.Reset(frame.SourceID(c.WindowID))
	})
	return err
}

// Children is a running watch of a window's child windows.
type Children struct {
	Parent uint32

	v    *Viewer
	sets *stream.Latest[[]uint32]
	once sync.Once
}

// WatchChildren asks the host to report the child windows of parent.
func (v *Viewer) WatchChildren(ctx context.Context, parent uint32) (*Children, error) {
	c := &Children{Parent: parent, v: v, sets: stream.NewLatest[[]uint32]()}
	v.mu.Lock()
	if old := v.children[parent]; old != nil {
		old.Close()
	}
	v.children[parent] = c.sets
	v.mu.Unlock()

	if _, err := message.StartWatchingChildrenOp.Send(ctx, v.peer(), message.WindowRequest{WindowID: parent}); err != nil {
		v.unwatch(c)
		return nil, err
	}
	return c, nil
}

func (v *Viewer) unwatch(c *Children) {
	v.mu.Lock()
	if v.children[c.Parent] == c.sets {
		delete(v.children, c.Parent)
	}
	v.mu.Unlock()
	c.sets.Close()
}

// Next waits for the newest set of child window IDs.
func (c *Children) Next(ctx context.Context) ([]uint32, error) {
	return c.sets.Next(ctx)
}

func (c *Children) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.v.unwatch(c)
		_, err = message.StopWatchingChildrenOp.Send(ctx, c.v.peer(), message.WindowRequest{WindowID: c.Parent})
	})
	return err
}

// Close ends every cast and the session.
func (v *Viewer) Close() error {
	v.mu.Lock()
	casts := make([]*Cast, 0, len(v.casts))
	for _, c := range v.casts {
		casts = append(casts, c)
	}
	for parent, l := range v.children {
		l.Close()
		delete(v.children, parent)
	}
	v.mu.Unlock()
	for _, c := range casts {
		v.forget(c)
	}
	v.peer().Log.WithField("casts", len(casts)).Debug("viewer: closing")
	return v.peer().Close()
}
