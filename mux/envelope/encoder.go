package envelope

import (
	"fmt"
	"sync"
)

// Sender is the part of a message connection the encoder writes to.
type Sender interface {
	Send(msg []byte) error
}

// Encoder writes envelopes to a Sender, one at a time.
type Encoder struct {
	s Sender
	sync.Mutex
}

func NewEncoder(s Sender) *Encoder {
	return &Encoder{s: s}
}

func (enc *Encoder) Encode(env Envelope) error {
	enc.Lock()
	defer enc.Unlock()

	if Debug != nil {
		fmt.Fprintln(Debug, "<<ENC", env)
	}

	return enc.s.Send(env.Bytes())
}
