package transport

import (
	"io"
	"net"
	"os"
	"sync"
)

type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

func (d *ioduplex) Close() error {
	if err := d.WriteCloser.Close(); err != nil {
		return err
	}
	if err := d.ReadCloser.Close(); err != nil {
		return err
	}
	return nil
}

// DialIO establishes a connection using a WriteCloser and ReadCloser.
func DialIO(out io.WriteCloser, in io.ReadCloser) (Conn, error) {
	return NewStreamConn(&ioduplex{out, in}), nil
}

// DialStdio establishes a connection using Stdout and Stdin.
func DialStdio() (Conn, error) {
	return DialIO(os.Stdout, os.Stdin)
}

// Pipe returns both ends of an in-memory connection.
func Pipe() (Conn, Conn) {
	a, b := net.Pipe()
	return NewStreamConn(a), NewStreamConn(b)
}

// ioListener wraps a single ReadWriteCloser to use as a listener.
type ioListener struct {
	rwc io.ReadWriteCloser

	mu       sync.Mutex
	accepted bool
}

// Accept returns the wrapped ReadWriteCloser as a connection the first
// time and io.EOF after that.
func (l *ioListener) Accept() (Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accepted {
		return nil, io.EOF
	}
	l.accepted = true
	return NewStreamConn(l.rwc), nil
}

func (l *ioListener) Close() error {
	return nil
}

func (l *ioListener) Addr() net.Addr {
	return nil
}

// ListenIO returns a Listener that gives one connection based on
// separate WriteCloser and ReadClosers.
func ListenIO(out io.WriteCloser, in io.ReadCloser) (Listener, error) {
	return &ioListener{rwc: &ioduplex{out, in}}, nil
}

// ListenStdio is a convenience for calling ListenIO with Stdout and Stdin.
func ListenStdio() (Listener, error) {
	return ListenIO(os.Stdout, os.Stdin)
}
