package transport

import (
	"io"
	"net"
	"sync"
)

// NetListener wraps a net.Listener to return framed connections.
type NetListener struct {
	net.Listener
	accepted chan Conn
	closer   chan struct{}
	errs     chan error
	once     sync.Once
}

func newNetListener(l net.Listener) *NetListener {
	return &NetListener{
		Listener: l,
		accepted: make(chan Conn),
		closer:   make(chan struct{}),
		errs:     make(chan error, 1),
	}
}

// Accept waits for and returns the next connection to the listener.
func (l *NetListener) Accept() (Conn, error) {
	select {
	case <-l.closer:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case conn := <-l.accepted:
		return conn, nil
	}
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *NetListener) Close() error {
	l.once.Do(func() { close(l.closer) })
	return l.Listener.Close()
}

// offer hands conn to Accept, closing it if the listener has shut down.
func (l *NetListener) offer(conn Conn) bool {
	select {
	case l.accepted <- conn:
		return true
	case <-l.closer:
		conn.Close()
		return false
	}
}

func (l *NetListener) fail(err error) {
	select {
	case l.errs <- err:
	default:
	}
}

func listenNet(proto, addr string) (*NetListener, error) {
	l, err := net.Listen(proto, addr)
	if err != nil {
		return nil, err
	}
	nl := newNetListener(l)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				nl.fail(err)
				return
			}
			if !nl.offer(NewStreamConn(conn)) {
				return
			}
		}
	}()
	return nl, nil
}

// ListenTCP creates a TCP listener at the given address.
func ListenTCP(addr string) (*NetListener, error) {
	return listenNet("tcp", addr)
}

// ListenUnix creates a Unix domain socket listener at the given path.
func ListenUnix(path string) (*NetListener, error) {
	return listenNet("unix", path)
}
