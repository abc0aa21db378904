package transport

import (
	"fmt"
	"sync"

	"golang.org/x/net/websocket"
)

// wsConn carries one message per binary WebSocket frame.
type wsConn struct {
	ws   *websocket.Conn
	once sync.Once
	done chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	ws.PayloadType = websocket.BinaryFrame
	ws.MaxPayloadBytes = MaxMessageSize
	return &wsConn{ws: ws, done: make(chan struct{})}
}

func (c *wsConn) Send(msg []byte) error {
	return websocket.Message.Send(c.ws, msg)
}

func (c *wsConn) Receive() ([]byte, error) {
	var msg []byte
	if err := websocket.Message.Receive(c.ws, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *wsConn) Close() error {
	err := c.ws.Close()
	c.once.Do(func() { close(c.done) })
	return err
}

// DialWS establishes a connection via WebSocket.
// The address must be a host and port. Opening a WebSocket
// connection at a particular path is not supported.
func DialWS(addr string) (Conn, error) {
	ws, err := websocket.Dial(fmt.Sprintf("ws://%s/", addr), "", fmt.Sprintf("http://%s/", addr))
	if err != nil {
		return nil, err
	}
	return newWSConn(ws), nil
}
