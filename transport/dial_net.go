package transport

import (
	"net"
)

func dialNet(proto, addr string) (Conn, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return NewStreamConn(conn), nil
}

func DialTCP(addr string) (Conn, error) {
	return dialNet("tcp", addr)
}

func DialUnix(addr string) (Conn, error) {
	return dialNet("unix", addr)
}
