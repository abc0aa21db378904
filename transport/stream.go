package transport

import (
	"bufio"
	"io"
	"sync"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/pkg/errors"
)

// MaxMessageSize bounds the length a peer may announce for one message.
const MaxMessageSize = 64 << 20

var ErrMessageTooLarge = errors.New("transport: message too large")

// StreamConn frames messages over a byte stream, each one prefixed by
// its ULEB128 length.
type StreamConn struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader

	wmu sync.Mutex
}

func NewStreamConn(rwc io.ReadWriteCloser) *StreamConn {
	return &StreamConn{
		rwc: rwc,
		r:   bufio.NewReader(rwc),
	}
}

func (c *StreamConn) Send(msg []byte) error {
	if len(msg) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	b := make([]byte, 0, codec.UintLen(uint64(len(msg)))+len(msg))
	b = codec.AppendUint(b, uint64(len(msg)))
	b = append(b, msg...)

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.rwc.Write(b)
	return err
}

func (c *StreamConn) Receive() ([]byte, error) {
	size, err := codec.ReadUint(c.r)
	if err != nil {
		return nil, err
	}
	if size > MaxMessageSize {
		return nil, errors.Wrapf(ErrMessageTooLarge, "announced %d bytes", size)
	}
	msg := make([]byte, size)
	if _, err := io.ReadFull(c.r, msg); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return msg, nil
}

func (c *StreamConn) Close() error {
	return c.rwc.Close()
}
