// Package host serves a machine's windows to one viewer: it lists
// them, casts their contents with alpha masks, reports child windows and
// injects the viewer's input.
package host

import (
	"context"
	"sync"

	"github.com/ensemblecast/ensemble/capture"
	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/frame"
	"github.com/ensemblecast/ensemble/input"
	"github.com/ensemblecast/ensemble/message"
	"github.com/ensemblecast/ensemble/peer"
	"github.com/ensemblecast/ensemble/stream"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/ensemblecast/ensemble/video"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultPreviewWidth  = 600
	DefaultPreviewHeight = 400
)

// Config tunes a Host. The zero value is usable.
type Config struct {
	// MaxFPS caps the frames sent per window. Zero means no cap beyond
	// the viewer's own pace.
	MaxFPS float64

	// Previews are scaled down to fit within this box.
	PreviewWidth  int
	PreviewHeight int

	Metrics *Metrics
}

// task is a per-window background loop: a cast or a children watch.
type task struct {
	id     xid.ID
	cancel context.CancelFunc
	done   chan struct{}
}

func newTask(cancel context.CancelFunc) *task {
	return &task{id: xid.New(), cancel: cancel, done: make(chan struct{})}
}

func (t *task) stop() {
	t.cancel()
	<-t.done
}

// Host answers a viewer over one session.
type Host struct {
	*peer.Peer

	source   capture.Source
	encoder  video.Encoder
	injector input.Injector
	sender   *frame.Sender
	clicks   input.ClickCounter
	config   Config
	ready    chan struct{}

	mu      sync.Mutex
	casts   map[uint32]*task
	watches map[uint32]*task
}

// New starts a host session over conn.
func New(conn transport.Conn, source capture.Source, encoder video.Encoder, injector input.Injector, config Config, opts ...peer.Option) *Host {
	if config.PreviewWidth <= 0 {
		config.PreviewWidth = DefaultPreviewWidth
	}
	if config.PreviewHeight <= 0 {
		config.PreviewHeight = DefaultPreviewHeight
	}
	h := &Host{
		source:   source,
		encoder:  encoder,
		injector: injector,
		sender:   frame.NewSender(),
		config:   config,
		ready:    make(chan struct{}),
		casts:    make(map[uint32]*task),
		watches:  make(map[uint32]*task),
	}
	h.Peer = peer.New(conn, h.responder(), opts...)
	close(h.ready)
	return h
}

// peer waits until New has finished, since handlers may run before it
// returns.
func (h *Host) peer() *peer.Peer {
	<-h.ready
	return h.Peer
}

func (h *Host) responder() *message.RespondMux {
	m := message.NewRespondMux()
	message.AnswerHandshake(m, message.ViewerHandshakeOp, h.viewerHandshake)
	message.Handle(m, message.WindowsOp, h.windows)
	message.Handle(m, message.WindowPreviewOp, h.preview)
	message.Handle(m, message.StartCastingOp, h.startCasting)
	message.Handle(m, message.StopCastingOp, h.stopCasting)
	message.Handle(m, message.WindowMaskOp, h.windowMask)
	message.Handle(m, message.StartWatchingChildrenOp, h.startWatching)
	message.Handle(m, message.StopWatchingChildrenOp, h.stopWatching)
	h.handleInput(m)
	return m
}

// Handshake tells the viewer which protocol version the host speaks and
// reports whether the viewer speaks it too.
func (h *Host) Handshake(ctx context.Context) (bool, error) {
	return h.peer().Handshake(ctx, message.HostHandshakeOp)
}

// Casting reports whether a cast of window id is running.
func (h *Host) Casting(id uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.casts[id]
	return ok
}

// Close stops every cast and watch and ends the session.
func (h *Host) Close() error {
	err := h.peer().Close()
	h.mu.Lock()
	tasks := make([]*task, 0, len(h.casts)+len(h.watches))
	for _, t := range h.casts {
		tasks = append(tasks, t)
	}
	for _, t := range h.watches {
		tasks = append(tasks, t)
	}
	h.mu.Unlock()
	for _, t := range tasks {
		t.stop()
	}
	return err
}

func (h *Host) viewerHandshake(remote uint64) {
	log := h.peer().Log.WithField("remote", remote)
	if remote != message.Version {
		log.Warn("host: viewer speaks another protocol version")
		return
	}
	log.Info("host: viewer connected")
}

func (h *Host) windows(ctx context.Context, _ codec.Void) (message.WindowList, error) {
	ws, err := h.source.Windows(ctx)
	if err != nil {
		return message.WindowList{}, errors.Wrap(err, "host: list windows")
	}
	list := message.WindowList{Windows: make([]message.Window, 0, len(ws))}
	for _, w := range ws {
		list.Windows = append(list.Windows, describe(w))
	}
	return list, nil
}

func describe(w capture.Window) message.Window {
	mw := message.Window{
		ID:    w.ID,
		App:   w.App,
		Frame: message.Rect{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height},
		Layer: w.Layer,
	}
	if w.Title != "" {
		title := w.Title
		mw.Title = &title
	}
	return mw
}

// preview answers absent rather than failing: a window that cannot be
// shot right now is routine.
func (h *Host) preview(ctx context.Context, req message.WindowRequest) (message.Preview, error) {
	log := h.peer().Log.WithField("window", req.WindowID)
	img, ok, err := h.source.Screenshot(ctx, req.WindowID, h.config.PreviewWidth, h.config.PreviewHeight)
	if err != nil {
		log.WithError(err).Warn("host: screenshot")
		return message.Preview{}, nil
	}
	if !ok {
		return message.Preview{}, nil
	}
	unit, err := h.encoder.Encode(ctx, img)
	if err != nil {
		log.WithError(err).Warn("host: encode preview")
		return message.Preview{}, nil
	}
	f, err := frame.Standalone(unit, frame.ExtractAlpha(img))
	if err != nil {
		log.WithError(err).Warn("host: build preview")
		return message.Preview{}, nil
	}
	return message.Preview{Frame: f}, nil
}

// startCasting runs the cast under the session's context so it ends
// with the session.
func (h *Host) startCasting(ctx context.Context, req message.WindowRequest) (codec.Void, error) {
	log := h.peer().Log.WithField("window", req.WindowID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.casts[req.WindowID]; ok {
		return codec.Void{}, nil
	}
	cctx, cancel := context.WithCancel(ctx)
	frames, err := h.source.Stream(cctx, req.WindowID)
	if err != nil {
		cancel()
		log.WithError(err).Warn("host: cannot cast window")
		return codec.Void{}, nil
	}
	t := newTask(cancel)
	h.casts[req.WindowID] = t
	go h.cast(cctx, req.WindowID, t, frames)
	return codec.Void{}, nil
}

func (h *Host) stopCasting(ctx context.Context, req message.WindowRequest) (codec.Void, error) {
	h.mu.Lock()
	t, ok := h.casts[req.WindowID]
	delete(h.casts, req.WindowID)
	h.mu.Unlock()
	if ok {
		t.stop()
	}
	h.sender.Reset(frame.SourceID(req.WindowID))
	return codec.Void{}, nil
}

// cast sends the newest captured image each time the viewer has taken
// the previous frame. Images captured meanwhile are replaced, and the
// limiter skips images that come faster than MaxFPS.
func (h *Host) cast(ctx context.Context, id uint32, t *task, frames *stream.Latest[video.Image]) {
	p := h.peer()
	src := frame.SourceID(id)
	log := p.Log.WithFields(logrus.Fields{"window": id, "cast": t.id.String()})
	defer func() {
		h.mu.Lock()
		if h.casts[id] == t {
			delete(h.casts, id)
		}
		h.mu.Unlock()
		h.sender.Reset(src)
		t.cancel()
		close(t.done)
	}()

	limit := rate.Inf
	if h.config.MaxFPS > 0 {
		limit = rate.Limit(h.config.MaxFPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	log.Info("host: cast started")
	for {
		img, err := frames.Next(ctx)
		if err != nil {
			log.WithError(err).Info("host: cast ended")
			return
		}
		if !limiter.Allow() {
			h.config.Metrics.frameDropped()
			continue
		}
		unit, err := h.encoder.Encode(ctx, img)
		if err != nil {
			log.WithError(err).Warn("host: encode frame")
			continue
		}
		f, err := h.sender.Encode(src, unit, frame.ExtractAlpha(img))
		if err != nil {
			log.WithError(err).Warn("host: build frame")
			continue
		}
		if _, err := message.WindowFrameOp.Send(ctx, p, message.Frame{WindowID: id, Frame: *f}); err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("host: send frame")
			}
			return
		}
		h.config.Metrics.frameSent(f.HasMask)
	}
}

func (h *Host) windowMask(ctx context.Context, ack message.MaskAck) (codec.Void, error) {
	log := h.peer().Log.WithField("window", ack.WindowID)
	hash, ok := frame.HashFromBytes(ack.Hash)
	if !ok {
		log.WithField("len", len(ack.Hash)).Warn("host: malformed mask hash")
		return codec.Void{}, nil
	}
	accepted := h.sender.Acknowledge(frame.SourceID(ack.WindowID), hash)
	if !accepted {
		log.Debug("host: stale mask acknowledgement")
	}
	h.config.Metrics.maskAck(accepted)
	return codec.Void{}, nil
}

func (h *Host) startWatching(ctx context.Context, req message.WindowRequest) (codec.Void, error) {
	log := h.peer().Log.WithField("window", req.WindowID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.watches[req.WindowID]; ok {
		return codec.Void{}, nil
	}
	wctx, cancel := context.WithCancel(ctx)
	sets, err := h.source.WatchChildren(wctx, req.WindowID)
	if err != nil {
		cancel()
		log.WithError(err).Warn("host: cannot watch children")
		return codec.Void{}, nil
	}
	t := newTask(cancel)
	h.watches[req.WindowID] = t
	go h.watch(wctx, req.WindowID, t, sets)
	return codec.Void{}, nil
}

func (h *Host) stopWatching(ctx context.Context, req message.WindowRequest) (codec.Void, error) {
	h.mu.Lock()
	t, ok := h.watches[req.WindowID]
	delete(h.watches, req.WindowID)
	h.mu.Unlock()
	if ok {
		t.stop()
	}
	return codec.Void{}, nil
}

func (h *Host) watch(ctx context.Context, id uint32, t *task, sets *stream.Latest[[]uint32]) {
	p := h.peer()
	defer func() {
		h.mu.Lock()
		if h.watches[id] == t {
			delete(h.watches, id)
		}
		h.mu.Unlock()
		t.cancel()
		close(t.done)
	}()
	for {
		set, err := sets.Next(ctx)
		if err != nil {
			return
		}
		if _, err := message.ChildWindowsOp.Send(ctx, p, message.Children{Parent: id, Children: set}); err != nil {
			if ctx.Err() == nil {
				p.Log.WithError(err).WithField("window", id).Warn("host: send child windows")
			}
			return
		}
	}
}
