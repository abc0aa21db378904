package message

import (
	"context"
	"io"
	"testing"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/frame"
	"github.com/ensemblecast/ensemble/mux"
	"github.com/ensemblecast/ensemble/mux/envelope"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() mux.Option {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return mux.WithLogger(l)
}

func newPair(h mux.Handler) (client, server *mux.Session) {
	a, b := transport.Pipe()
	return mux.New(a, nil, quiet()), mux.New(b, h, quiet())
}

func TestKindOrder(t *testing.T) {
	// the wire values are fixed
	assert.Equal(t, mux.Kind(0), ViewerHandshake)
	assert.Equal(t, mux.Kind(6), WindowFrame)
	assert.Equal(t, mux.Kind(7), WindowMask)
	assert.Equal(t, mux.Kind(10), ChildWindows)
	assert.Equal(t, mux.Kind(19), Typed)
	assert.False(t, Valid(numKinds))

	for k := mux.Kind(0); k < numKinds; k++ {
		name := Name(k)
		require.NotEmpty(t, name)
		got, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, k, got)
	}
	assert.Equal(t, "kind(200)", Name(200))
	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestPayloads(t *testing.T) {
	title := "Notes"
	list := WindowList{Windows: []Window{
		{ID: 1, Title: &title, App: "Notes", Frame: Rect{X: 10, Y: 20, Width: 800, Height: 600}},
		{ID: 2, App: "Finder", Layer: 3},
	}}
	b, err := list.MarshalBinary()
	require.NoError(t, err)
	var gotList WindowList
	require.NoError(t, gotList.UnmarshalBinary(b))
	assert.Equal(t, list, gotList)
	assert.Nil(t, gotList.Windows[1].Title)

	f := Frame{WindowID: 300, Frame: frame.Frame{Width: 1, Height: 1, MaskStride: 1, Video: []byte{9}}}
	b, err = f.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xac, 0x02, 1, 1, 1, 0, 9}, b)
	var gotFrame Frame
	require.NoError(t, gotFrame.UnmarshalBinary(b))
	assert.Equal(t, f, gotFrame)

	var ack MaskAck
	assert.ErrorIs(t, ack.UnmarshalBinary([]byte{0xff}), codec.ErrCorruptEncoding)
}

func TestKeyCodeWidth(t *testing.T) {
	k := Key{WindowID: 7, Code: 0xffff, Down: true}
	b, err := k.MarshalBinary()
	require.NoError(t, err)
	var got Key
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, k, got)
	assert.IsType(t, uint16(0), got.Code)
}

func TestPreviewOptional(t *testing.T) {
	b, err := Preview{}.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)

	p := Preview{Frame: &frame.Frame{Width: 2, Height: 2, MaskStride: 2, Video: []byte("v")}}
	var got Preview
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Nil(t, got.Frame)

	b, err = p.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b[0])
	require.NoError(t, got.UnmarshalBinary(b))
	require.NotNil(t, got.Frame)
	assert.Equal(t, *p.Frame, *got.Frame)

	assert.ErrorIs(t, got.UnmarshalBinary([]byte{2}), codec.ErrCorruptEncoding)
}

func TestOpSend(t *testing.T) {
	m := NewRespondMux()
	Handle(m, WindowsOp, func(ctx context.Context, _ codec.Void) (WindowList, error) {
		return WindowList{Windows: []Window{{ID: 7, App: "Terminal"}}}, nil
	})
	client, server := newPair(m)
	defer client.Close()
	defer server.Close()

	list, err := WindowsOp.Send(context.Background(), client, codec.Void{})
	require.NoError(t, err)
	require.Len(t, list.Windows, 1)
	assert.Equal(t, uint32(7), list.Windows[0].ID)
}

func TestOpNotify(t *testing.T) {
	m := NewRespondMux()
	moved := make(chan Pointer, 1)
	Handle(m, MouseMovedOp, func(ctx context.Context, p Pointer) (codec.Void, error) {
		moved <- p
		return codec.Void{}, nil
	})
	client, server := newPair(m)
	defer client.Close()
	defer server.Close()

	require.NoError(t, MouseMovedOp.Notify(client, Pointer{WindowID: 1, X: 0.5, Y: 0.25}))
	assert.Equal(t, Pointer{WindowID: 1, X: 0.5, Y: 0.25}, <-moved)
}

func TestUnknownKindIsFatal(t *testing.T) {
	a, b := transport.Pipe()
	defer a.Close()
	server := mux.New(b, NewRespondMux(), quiet())

	require.NoError(t, a.Send(envelope.Envelope{Kind: 99, Token: 1}.Bytes()))
	assert.ErrorIs(t, server.Wait(), ErrUnknownKind)
}

func TestUnregisteredKindIsReply(t *testing.T) {
	// Only the viewer handshake is served here; a windows envelope
	// arriving at this side must be a reply.
	m := NewRespondMux()
	AnswerHandshake(m, ViewerHandshakeOp, nil)
	reply, err := m.HandleMessage(context.Background(), Windows, nil)
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, mux.ErrNotHandled)

	m.Remove(ViewerHandshake)
	assert.Nil(t, m.Handler(ViewerHandshake))
}

func TestDecodeErrorIsFatal(t *testing.T) {
	m := NewRespondMux()
	Handle(m, StartCastingOp, func(ctx context.Context, r WindowRequest) (codec.Void, error) {
		return codec.Void{}, nil
	})
	client, server := newPair(m)
	defer client.Close()

	_, err := client.SendWithReply(context.Background(), StartCasting, []byte{0xff})
	assert.ErrorIs(t, err, mux.ErrConnectionFailure)
	assert.ErrorIs(t, server.Wait(), codec.ErrCorruptEncoding)
}

func TestExchange(t *testing.T) {
	m := NewRespondMux()
	seen := make(chan uint64, 1)
	AnswerHandshake(m, ViewerHandshakeOp, func(v uint64) { seen <- v })
	client, server := newPair(m)
	defer client.Close()
	defer server.Close()

	ok, remote, err := Exchange(context.Background(), client, ViewerHandshakeOp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(Version), remote)
	assert.Equal(t, uint64(Version), <-seen)
}

func TestExchangeMismatch(t *testing.T) {
	m := NewRespondMux()
	Handle(m, HostHandshakeOp, func(ctx context.Context, req Handshake) (Handshake, error) {
		return Handshake{Version: Version + 1}, nil
	})
	client, server := newPair(m)
	defer client.Close()
	defer server.Close()

	ok, remote, err := Exchange(context.Background(), client, HostHandshakeOp)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(Version+1), remote)
}
