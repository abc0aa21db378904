package host

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ensemblecast/ensemble/capture"
	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/frame"
	"github.com/ensemblecast/ensemble/input"
	"github.com/ensemblecast/ensemble/message"
	"github.com/ensemblecast/ensemble/mux"
	"github.com/ensemblecast/ensemble/peer"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/ensemblecast/ensemble/video"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func quiet() peer.Option {
	return peer.WithLogger(discard())
}

type fixture struct {
	host     *Host
	remote   *peer.Peer
	source   *capture.Synthetic
	recorder *input.Recorder
	frames   chan message.Frame
	children chan message.Children
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	a, b := transport.Pipe()
	f := &fixture{
		source: capture.NewSynthetic(5*time.Millisecond,
			capture.Window{ID: 1, Title: "Notes", App: "Editor", Width: 32, Height: 24, OnScreen: true},
			capture.Window{ID: 2, App: "Dock", Width: 16, Height: 16},
		),
		recorder: input.NewRecorder(discard()),
		frames:   make(chan message.Frame, 64),
		children: make(chan message.Children, 8),
	}

	m := message.NewRespondMux()
	message.Handle(m, message.WindowFrameOp, func(ctx context.Context, fr message.Frame) (codec.Void, error) {
		select {
		case f.frames <- fr:
		default:
		}
		return codec.Void{}, nil
	})
	message.Handle(m, message.ChildWindowsOp, func(ctx context.Context, c message.Children) (codec.Void, error) {
		f.children <- c
		return codec.Void{}, nil
	})
	message.AnswerHandshake(m, message.HostHandshakeOp, nil)

	f.host = New(a, f.source, video.RawCodec{}, f.recorder, config, quiet())
	f.remote = peer.New(b, m, quiet())
	t.Cleanup(func() {
		f.remote.Close()
		f.host.Close()
	})
	return f
}

func (f *fixture) nextFrame(t *testing.T) message.Frame {
	t.Helper()
	select {
	case fr := <-f.frames:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return message.Frame{}
	}
}

func TestHandshakes(t *testing.T) {
	f := newFixture(t, Config{})
	ok, err := f.remote.Handshake(context.Background(), message.ViewerHandshakeOp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.host.Handshake(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindows(t *testing.T) {
	f := newFixture(t, Config{})
	list, err := message.WindowsOp.Send(context.Background(), f.remote, codec.Void{})
	require.NoError(t, err)
	require.Len(t, list.Windows, 2)

	require.NotNil(t, list.Windows[0].Title)
	assert.Equal(t, "Notes", *list.Windows[0].Title)
	assert.Equal(t, message.Rect{Width: 32, Height: 24}, list.Windows[0].Frame)
	assert.Nil(t, list.Windows[1].Title)
	assert.Equal(t, "Dock", list.Windows[1].App)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, Config{PreviewWidth: 16, PreviewHeight: 16})
	ctx := context.Background()

	p, err := message.WindowPreviewOp.Send(ctx, f.remote, message.WindowRequest{WindowID: 1})
	require.NoError(t, err)
	require.NotNil(t, p.Frame)
	assert.True(t, p.Frame.HasMask)
	assert.Equal(t, 16, p.Frame.Width)
	assert.Equal(t, 12, p.Frame.Height)

	img, err := video.RawCodec{}.Decode(ctx, p.Frame.Video)
	require.NoError(t, err)
	m, err := frame.DecodeMask(p.Frame)
	require.NoError(t, err)
	assert.Equal(t, frame.ExtractAlpha(img), m)

	for _, id := range []uint32{2, 99} {
		p, err := message.WindowPreviewOp.Send(ctx, f.remote, message.WindowRequest{WindowID: id})
		require.NoError(t, err)
		assert.Nil(t, p.Frame, "window %d", id)
	}
}

func TestCastOmitsAcknowledgedMask(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := message.StartCastingOp.Send(ctx, f.remote, message.WindowRequest{WindowID: 1})
	require.NoError(t, err)

	first := f.nextFrame(t)
	assert.Equal(t, uint32(1), first.WindowID)
	require.True(t, first.Frame.HasMask)
	m, err := frame.DecodeMask(&first.Frame)
	require.NoError(t, err)
	hash := frame.HashMask(m.Pix)

	_, err = message.WindowMaskOp.Send(ctx, f.remote, message.MaskAck{WindowID: 1, Hash: hash[:]})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case fr := <-f.frames:
			if !fr.Frame.HasMask {
				return
			}
		case <-deadline:
			t.Fatal("mask was never omitted after acknowledgement")
		}
	}
}

func TestUnacknowledgedMaskIsResent(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := message.StartCastingOp.Send(context.Background(), f.remote, message.WindowRequest{WindowID: 1})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.True(t, f.nextFrame(t).Frame.HasMask)
	}
}

func TestStopCasting(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	req := message.WindowRequest{WindowID: 1}

	_, err := message.StartCastingOp.Send(ctx, f.remote, req)
	require.NoError(t, err)
	f.nextFrame(t)
	assert.True(t, f.host.Casting(1))

	_, err = message.StopCastingOp.Send(ctx, f.remote, req)
	require.NoError(t, err)
	assert.False(t, f.host.Casting(1))
	assert.Equal(t, frame.NoMaskSent, f.host.sender.State(1))

	// A frame may still be in flight when the cast is cancelled.
	time.Sleep(20 * time.Millisecond)
	for len(f.frames) > 0 {
		<-f.frames
	}
	select {
	case fr := <-f.frames:
		t.Fatal("unexpected frame after stop:", fr.Frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCastUnknownWindow(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := message.StartCastingOp.Send(context.Background(), f.remote, message.WindowRequest{WindowID: 42})
	require.NoError(t, err)
	assert.False(t, f.host.Casting(42))
}

func TestCastEndsWithWindow(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := message.StartCastingOp.Send(context.Background(), f.remote, message.WindowRequest{WindowID: 1})
	require.NoError(t, err)
	f.nextFrame(t)

	f.source.RemoveWindow(1)
	assert.Eventually(t, func() bool { return !f.host.Casting(1) }, time.Second, 5*time.Millisecond)
}

func TestChildWindows(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetChildren(1, []uint32{7})

	_, err := message.StartWatchingChildrenOp.Send(ctx, f.remote, message.WindowRequest{WindowID: 1})
	require.NoError(t, err)

	next := func() message.Children {
		select {
		case c := <-f.children:
			return c
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for child windows")
			return message.Children{}
		}
	}
	assert.Equal(t, message.Children{Parent: 1, Children: []uint32{7}}, next())

	f.source.SetChildren(1, []uint32{7, 8})
	assert.Equal(t, message.Children{Parent: 1, Children: []uint32{7, 8}}, next())

	_, err = message.StopWatchingChildrenOp.Send(ctx, f.remote, message.WindowRequest{WindowID: 1})
	require.NoError(t, err)
	f.source.SetChildren(1, nil)
	select {
	case c := <-f.children:
		t.Fatal("unexpected children after stop:", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInput(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	at := message.Pointer{WindowID: 1, X: 3, Y: 4}

	_, err := message.MouseMovedOp.Send(ctx, f.remote, at)
	require.NoError(t, err)
	_, err = message.ClickedOp.Send(ctx, f.remote, at)
	require.NoError(t, err)
	_, err = message.ClickedOp.Send(ctx, f.remote, at)
	require.NoError(t, err)
	_, err = message.ScrollChangedOp.Send(ctx, f.remote, message.Scroll{WindowID: 1, DX: 1, DY: -2})
	require.NoError(t, err)
	_, err = message.TypedOp.Send(ctx, f.remote, message.Key{WindowID: 1, Code: 36, Down: true})
	require.NoError(t, err)

	evs := f.recorder.Events()
	require.Len(t, evs, 5)
	assert.Equal(t, input.Event{Kind: input.MouseMoved, Window: 1, At: input.Point{X: 3, Y: 4}}, evs[0])
	assert.Equal(t, 1, evs[1].Count)
	assert.Equal(t, 2, evs[2].Count)
	assert.Equal(t, input.Event{Kind: input.ScrollChanged, Window: 1, DX: 1, DY: -2}, evs[3])
	assert.Equal(t, input.Event{Kind: input.Key, Window: 1, Code: 36, Down: true}, evs[4])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(mux.WithRegistry(reg))
	f := newFixture(t, Config{Metrics: metrics})

	_, err := message.StartCastingOp.Send(context.Background(), f.remote, message.WindowRequest{WindowID: 1})
	require.NoError(t, err)
	f.nextFrame(t)
	f.nextFrame(t)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.sent) >= 2
	}, time.Second, 5*time.Millisecond)

	_, err = message.WindowMaskOp.Send(context.Background(), f.remote, message.MaskAck{WindowID: 1, Hash: make([]byte, 32)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.acks.WithLabelValues("stale")))
}
