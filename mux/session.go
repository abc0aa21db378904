// Package mux correlates requests and replies over one message
// connection and dispatches inbound requests to a Handler.
package mux

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ensemblecast/ensemble/mux/envelope"
	"github.com/ensemblecast/ensemble/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// An Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger sessions report to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithMetrics reports session activity to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithMaxConcurrency bounds the number of envelopes handled at once.
// Once the bound is reached the receive loop stops reading. Handlers that
// wait on replies of their own can starve a bounded session.
func WithMaxConcurrency(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithKindNamer names kinds in logs and metric labels.
func WithKindNamer(name func(Kind) string) Option {
	return func(s *Session) {
		s.name = name
	}
}

// Session multiplexes requests, replies and one-way messages over a
// single connection.
type Session struct {
	conn    transport.Conn
	enc     *envelope.Encoder
	handler Handler
	pending *pending

	log     logrus.FieldLogger
	metrics *Metrics
	name    func(Kind) string
	sem     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	once sync.Once
	done chan struct{}
	err  error
}

// New returns a session that runs over conn and hands inbound requests
// to h. A nil h treats every inbound envelope as a reply.
func New(conn transport.Conn, h Handler, opts ...Option) *Session {
	if h == nil {
		h = notHandled
	}
	s := &Session{
		conn:    conn,
		enc:     envelope.NewEncoder(conn),
		handler: h,
		log:     logrus.StandardLogger(),
		name:    func(k Kind) string { return fmt.Sprint(uint8(k)) },
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pending = newPending(s.metrics)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.loop()
	return s
}

// Send writes a one-way message. No reply is expected or accepted.
func (s *Session) Send(kind Kind, payload []byte) error {
	select {
	case <-s.done:
		return s.err
	default:
	}
	return s.write(envelope.Envelope{Kind: kind, Payload: payload})
}

// SendWithReply writes a request and waits for its reply. It fails with
// ErrConnectionFailure if the session shuts down first, or with the
// context's error if ctx is done first.
func (s *Session) SendWithReply(ctx context.Context, kind Kind, payload []byte) ([]byte, error) {
	token, ch, err := s.pending.register()
	if err != nil {
		return nil, err
	}
	if err := s.write(envelope.Envelope{Kind: kind, Token: token, Payload: payload}); err != nil {
		s.pending.remove(token)
		return nil, err
	}

	select {
	case r := <-ch:
		return r.payload, r.err
	case <-ctx.Done():
		s.pending.abandon(token)
		// a reply may have landed while abandoning
		select {
		case r := <-ch:
			return r.payload, r.err
		default:
		}
		return nil, ctx.Err()
	}
}

// Close closes the underlying connection. Waiting senders are released
// with ErrConnectionFailure.
func (s *Session) Close() error {
	s.shutdown(io.EOF)
	return nil
}

// Wait blocks until the session has shut down, and returns the error
// causing the shutdown.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the shutdown error, or nil while the session is running.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Pending returns the number of senders waiting for a reply.
func (s *Session) Pending() int {
	return s.pending.len()
}

func (s *Session) write(env envelope.Envelope) error {
	if err := s.enc.Encode(env); err != nil {
		if errors.Is(err, transport.ErrMessageTooLarge) {
			return err
		}
		s.shutdown(errors.Wrap(err, "write"))
		return s.err
	}
	s.metrics.envelopeSent(s.name(env.Kind))
	return nil
}

// shutdown fails every waiter and closes the connection. Only the first
// cause is kept.
func (s *Session) shutdown(cause error) {
	s.once.Do(func() {
		s.err = &FailureError{Cause: cause}
		s.cancel()
		s.pending.failAll(s.err)
		s.conn.Close()

		switch {
		case errors.Is(cause, io.EOF):
			s.log.Debug("mux: session closed")
			s.metrics.sessionFailed("closed")
		case errors.Is(cause, ErrUnknownToken):
			s.log.WithError(cause).Error("mux: protocol defect")
			s.metrics.sessionFailed("unknown_token")
		default:
			s.log.WithError(cause).Info("mux: session failed")
			s.metrics.sessionFailed("error")
		}
		close(s.done)
	})
}

// loop runs the receive side. It will process envelopes until an error
// is encountered. To synchronize on loop exit, use Session.Wait.
func (s *Session) loop() {
	var err error
	for err == nil {
		err = s.oneEnvelope()
	}
	s.shutdown(err)
}

// oneEnvelope reads one envelope and starts handling it.
func (s *Session) oneEnvelope() error {
	msg, err := s.conn.Receive()
	if err != nil {
		return err
	}
	env, err := envelope.Parse(msg)
	if err != nil {
		return err
	}
	s.metrics.envelopeReceived(s.name(env.Kind))

	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
	go s.dispatch(env)
	return nil
}

func (s *Session) dispatch(env envelope.Envelope) {
	if s.sem != nil {
		defer func() { <-s.sem }()
	}

	reply, err := s.handler.HandleMessage(s.ctx, env.Kind, env.Payload)
	switch {
	case err == nil:
		if env.OneWay() {
			return
		}
		if err := s.write(envelope.Envelope{Kind: env.Kind, Token: env.Token, Payload: reply}); err != nil {
			log := s.log.WithError(err).WithField("token", env.Token)
			if errors.Is(err, transport.ErrMessageTooLarge) {
				// The requester hears nothing and waits out its context.
				log.WithField("size", len(reply)).Warnf("mux: reply to %s dropped", s.name(env.Kind))
				return
			}
			log.Debugf("mux: reply to %s", s.name(env.Kind))
		}

	case errors.Is(err, ErrNotHandled):
		if !s.pending.resolve(env.Token, env.Payload) {
			s.shutdown(errors.Wrapf(ErrUnknownToken, "%s token %d", s.name(env.Kind), env.Token))
		}

	default:
		if s.ctx.Err() != nil {
			return
		}
		s.shutdown(errors.Wrapf(err, "handle %s", s.name(env.Kind)))
	}
}
