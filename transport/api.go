// Package transport provides the ordered, reliable, message-oriented
// duplex connections that sessions run over.
package transport

import "net"

// Conn is a duplex connection that preserves message boundaries.
type Conn interface {
	// Send writes one message. Send may be called from several
	// goroutines but callers must not rely on ordering between them.
	Send(msg []byte) error

	// Receive blocks for the next message. It returns io.EOF once the
	// remote end has closed the connection.
	Receive() ([]byte, error)

	// Close closes the connection. Any blocked Receive is unblocked and
	// returns an error.
	Close() error
}

type Listener interface {
	// Close closes the listener.
	// Any blocked Accept operations will be unblocked and return errors.
	Close() error

	// Accept waits for and returns the next incoming connection.
	Accept() (Conn, error)

	// Addr returns the listener's network address, if it has one.
	Addr() net.Addr
}
