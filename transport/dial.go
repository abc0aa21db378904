package transport

import (
	"github.com/pkg/errors"
)

// A Dialer connects to address and returns a Conn.
type Dialer func(addr string) (Conn, error)

// A Listen func starts listening on address.
type Listen func(addr string) (Listener, error)

// Dialers and Listeners map transport names to constructors and include
// all builtin transports. Other packages may register more.
var (
	Dialers   map[string]Dialer
	Listeners map[string]Listen
)

func init() {
	Dialers = map[string]Dialer{
		"tcp":  DialTCP,
		"unix": DialUnix,
		"ws":   DialWS,
		"stdio": func(_ string) (Conn, error) {
			return DialStdio()
		},
	}
	Listeners = map[string]Listen{
		"tcp": func(addr string) (Listener, error) {
			return ListenTCP(addr)
		},
		"unix": func(addr string) (Listener, error) {
			return ListenUnix(addr)
		},
		"ws": func(addr string) (Listener, error) {
			return ListenWS(addr)
		},
		"stdio": func(_ string) (Listener, error) {
			return ListenStdio()
		},
	}
}

// Dial connects to a remote address using a registered transport.
// Builtin transports are "tcp", "unix", "ws", and "stdio". In the case of
// "stdio", the addr can be left an empty string.
func Dial(transport, addr string) (Conn, error) {
	d, ok := Dialers[transport]
	if !ok {
		return nil, errors.Errorf("transport '%s' is not available in Dialers", transport)
	}
	return d(addr)
}

// ListenOn listens on addr using a registered transport.
func ListenOn(transport, addr string) (Listener, error) {
	l, ok := Listeners[transport]
	if !ok {
		return nil, errors.Errorf("transport '%s' is not available in Listeners", transport)
	}
	return l(addr)
}
