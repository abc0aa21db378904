package message

import "context"

// Exchange sends our protocol version through op and reports whether
// the remote side answered with the same one. A mismatch is not an error;
// the caller decides how to end the session.
func Exchange(ctx context.Context, c Caller, op Op[Handshake, Handshake, *Handshake, *Handshake]) (ok bool, remote uint64, err error) {
	rep, err := op.Send(ctx, c, Handshake{Version: Version})
	if err != nil {
		return false, 0, err
	}
	return rep.Version == Version, rep.Version, nil
}

// AnswerHandshake is the handler side of a handshake: it always replies
// with our version and reports what the remote side sent.
func AnswerHandshake(m *RespondMux, op Op[Handshake, Handshake, *Handshake, *Handshake], seen func(remote uint64)) {
	Handle(m, op, func(ctx context.Context, req Handshake) (Handshake, error) {
		if seen != nil {
			seen(req.Version)
		}
		return Handshake{Version: Version}, nil
	})
}
