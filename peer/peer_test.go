package peer

import (
	"context"
	"io"
	"testing"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/message"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() Option {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return WithLogger(l)
}

func TestPeerBidirectional(t *testing.T) {
	a, b := transport.Pipe()

	ma := message.NewRespondMux()
	message.AnswerHandshake(ma, message.HostHandshakeOp, nil)
	message.Handle(ma, message.WindowsOp, func(ctx context.Context, _ codec.Void) (message.WindowList, error) {
		return message.WindowList{Windows: []message.Window{{ID: 1, App: "A"}}}, nil
	})
	mb := message.NewRespondMux()
	message.AnswerHandshake(mb, message.ViewerHandshakeOp, nil)

	peerA := New(a, ma, quiet())
	peerB := New(b, mb, quiet())
	defer peerA.Close()
	defer peerB.Close()
	assert.NotEqual(t, peerA.ID, peerB.ID)

	ok, err := peerA.Handshake(context.Background(), message.ViewerHandshakeOp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = peerB.Handshake(context.Background(), message.HostHandshakeOp)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := message.WindowsOp.Send(context.Background(), peerB, codec.Void{})
	require.NoError(t, err)
	assert.Equal(t, "A", list.Windows[0].App)
}

func TestHandshakeMismatch(t *testing.T) {
	a, b := transport.Pipe()
	m := message.NewRespondMux()
	message.Handle(m, message.ViewerHandshakeOp, func(ctx context.Context, _ message.Handshake) (message.Handshake, error) {
		return message.Handshake{Version: 99}, nil
	})
	server := New(a, m, quiet())
	client := New(b, nil, quiet())
	defer server.Close()
	defer client.Close()

	ok, err := client.Handshake(context.Background(), message.ViewerHandshakeOp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDialUnknownTransport(t *testing.T) {
	_, err := Dial("nope", "", nil)
	assert.Error(t, err)
}
