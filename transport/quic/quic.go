// Package quic runs connections over one bidirectional QUIC stream.
// Importing it registers the "quic" transport.
package quic

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/ensemblecast/ensemble/transport"
	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
)

// ALPN is the application protocol negotiated during the TLS handshake.
const ALPN = "ensemble"

// DialTLSConfig is used by the registered "quic" dialer.
var DialTLSConfig = &tls.Config{
	NextProtos: []string{ALPN},
}

func init() {
	transport.Dialers["quic"] = func(addr string) (transport.Conn, error) {
		return Dial(context.Background(), addr, DialTLSConfig)
	}
	transport.Listeners["quic"] = func(addr string) (transport.Listener, error) {
		tlsConf, err := GenerateTLSConfig()
		if err != nil {
			return nil, err
		}
		return Listen(addr, tlsConf)
	}
}

// stream closes the whole connection with itself, and reports a
// graceful close as io.EOF.
type stream struct {
	quic.Stream
	conn quic.Connection
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.Stream.Read(p)
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) && appErr.ErrorCode == 0 {
		err = io.EOF
	}
	return n, err
}

func (s *stream) Close() error {
	s.Stream.Close()
	return s.conn.CloseWithError(0, "closed")
}

func newConn(s quic.Stream, conn quic.Connection) transport.Conn {
	return transport.NewStreamConn(&stream{Stream: s, conn: conn})
}

// Dial opens a QUIC connection to addr and its single stream.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config) (transport.Conn, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, errors.Wrap(err, "quic: dial")
	}
	s, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "open stream")
		return nil, errors.Wrap(err, "quic: open stream")
	}
	// The peer only learns of the stream once data is sent on it.
	if _, err := s.Write([]byte("!")); err != nil {
		conn.CloseWithError(1, "open stream")
		return nil, errors.Wrap(err, "quic: open stream")
	}
	return newConn(s, conn), nil
}

// Listener accepts QUIC connections.
type Listener struct {
	l *quic.Listener
}

// Listen listens for QUIC connections on addr.
func Listen(addr string, tlsConf *tls.Config) (*Listener, error) {
	l, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, errors.Wrap(err, "quic: listen")
	}
	return &Listener{l: l}, nil
}

func (l *Listener) Accept() (transport.Conn, error) {
	ctx := context.Background()
	conn, err := l.l.Accept(ctx)
	if err != nil {
		return nil, err
	}
	s, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(1, "accept stream")
		return nil, errors.Wrap(err, "quic: accept stream")
	}
	header := make([]byte, 1)
	if _, err := io.ReadFull(s, header); err != nil {
		conn.CloseWithError(1, "accept stream")
		return nil, errors.Wrap(err, "quic: accept stream")
	}
	return newConn(s, conn), nil
}

func (l *Listener) Close() error {
	return l.l.Close()
}

func (l *Listener) Addr() net.Addr {
	return l.l.Addr()
}

// GenerateTLSConfig returns a server configuration with a fresh
// self-signed certificate.
func GenerateTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "quic: generate key")
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "quic: create certificate")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{ALPN},
	}, nil
}
