package mux

import (
	"context"

	"github.com/ensemblecast/ensemble/mux/envelope"
)

// Kind identifies the message type of an envelope.
type Kind = envelope.Kind

// A Handler answers inbound envelopes. It returns the reply payload, or
// ErrNotHandled when kind is not one it serves, in which case the
// envelope is taken to be a reply to an earlier request of ours.
//
// Handlers run concurrently with each other and with the receive loop.
// The context is cancelled when the session shuts down.
type Handler interface {
	HandleMessage(ctx context.Context, kind Kind, payload []byte) ([]byte, error)
}

type HandlerFunc func(ctx context.Context, kind Kind, payload []byte) ([]byte, error)

func (f HandlerFunc) HandleMessage(ctx context.Context, kind Kind, payload []byte) ([]byte, error) {
	return f(ctx, kind, payload)
}

// notHandled treats every envelope as a reply.
var notHandled = HandlerFunc(func(context.Context, Kind, []byte) ([]byte, error) {
	return nil, ErrNotHandled
})
