package transport

import (
	"net"
	"net/http"

	"golang.org/x/net/websocket"
)

// HandleWS takes a WebSocket connection and sends it to a NetListener to
// be accepted. It returns once the connection is closed.
func HandleWS(l *NetListener, ws *websocket.Conn) {
	conn := newWSConn(ws)
	if !l.offer(conn) {
		return
	}
	<-conn.done
}

// ListenWS takes a TCP address and returns a NetListener with an
// HTTP+WebSocket server listening on the given address.
func ListenWS(addr string) (*NetListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nl := newNetListener(l)
	s := &http.Server{
		Addr: addr,
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			HandleWS(nl, ws)
		}),
	}
	go func() {
		nl.fail(s.Serve(l))
	}()
	return nl, nil
}
