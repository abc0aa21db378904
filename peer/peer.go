// Package peer joins a session and its responder into one value, the
// common ground of the host and the viewer.
package peer

import (
	"context"
	"fmt"

	"github.com/ensemblecast/ensemble/message"
	"github.com/ensemblecast/ensemble/mux"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

type options struct {
	log     logrus.FieldLogger
	muxOpts []mux.Option
}

// An Option configures a Peer.
type Option func(*options)

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

func WithMetrics(m *mux.Metrics) Option {
	return func(o *options) {
		o.muxOpts = append(o.muxOpts, mux.WithMetrics(m))
	}
}

func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.muxOpts = append(o.muxOpts, mux.WithMaxConcurrency(n))
	}
}

// Peer is a mux session and its respond mux, all in one.
type Peer struct {
	*mux.Session
	*message.RespondMux

	ID  xid.ID
	Log logrus.FieldLogger
}

// New returns a Peer running over conn. Handlers must already be on
// responder: requests may arrive as soon as New returns.
func New(conn transport.Conn, responder *message.RespondMux, opts ...Option) *Peer {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if responder == nil {
		responder = message.NewRespondMux()
	}
	id := xid.New()
	log := o.log.WithField("session", id.String())
	muxOpts := append([]mux.Option{
		mux.WithLogger(log),
		mux.WithKindNamer(message.Name),
	}, o.muxOpts...)

	return &Peer{
		Session:    mux.New(conn, responder, muxOpts...),
		RespondMux: responder,
		ID:         id,
		Log:        log,
	}
}

// Dial connects to a remote address using a registered transport and
// returns a Peer.
func Dial(transportName, addr string, responder *message.RespondMux, opts ...Option) (*Peer, error) {
	conn, err := transport.Dial(transportName, addr)
	if err != nil {
		return nil, err
	}
	return New(conn, responder, opts...), nil
}

// Handshake exchanges protocol versions through op. It reports false
// when the remote side speaks another version.
func (p *Peer) Handshake(ctx context.Context, op message.Op[message.Handshake, message.Handshake, *message.Handshake, *message.Handshake]) (bool, error) {
	ok, remote, err := message.Exchange(ctx, p, op)
	if err != nil {
		return false, err
	}
	if !ok {
		p.Log.WithFields(logrus.Fields{
			"local":  message.Version,
			"remote": remote,
		}).Warn("peer: protocol version mismatch")
	}
	return ok, nil
}

func (p *Peer) String() string {
	return fmt.Sprintf("{Peer %s}", p.ID)
}
