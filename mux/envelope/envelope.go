// Package envelope implements encoding and decoding of the envelope
// carried by every message: kind byte, ULEB128 reply token, payload.
package envelope

import (
	"fmt"
	"io"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/pkg/errors"
)

var (
	// Debug can be set to get envelopes as they're encoded and decoded
	Debug io.Writer
)

// Kind identifies the message type of an envelope.
type Kind uint8

// Envelope is one message on the wire. A zero Token marks a one-way
// message; any other token asks for a reply carrying the same token.
type Envelope struct {
	Kind    Kind
	Token   uint64
	Payload []byte
}

func (e Envelope) String() string {
	return fmt.Sprintf("{Envelope Kind:%d Token:%d Length:%d}",
		e.Kind, e.Token, len(e.Payload))
}

// OneWay reports whether the sender expects no reply.
func (e Envelope) OneWay() bool {
	return e.Token == 0
}

func (e Envelope) Bytes() []byte {
	b := make([]byte, 0, 1+codec.UintLen(e.Token)+len(e.Payload))
	b = append(b, byte(e.Kind))
	b = codec.AppendUint(b, e.Token)
	return append(b, e.Payload...)
}

// Parse decodes one envelope. The payload aliases b.
func Parse(b []byte) (Envelope, error) {
	c := codec.NewCursor(b)
	kind, err := c.ReadByte()
	if err != nil {
		return Envelope{}, errors.Wrap(err, "envelope: missing kind")
	}
	token, err := codec.DecodeUint(c)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "envelope: token")
	}
	env := Envelope{
		Kind:    Kind(kind),
		Token:   token,
		Payload: c.Rest(),
	}
	if Debug != nil {
		fmt.Fprintln(Debug, ">>DEC", env)
	}
	return env, nil
}
