package message

import (
	"context"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/mux"
	"github.com/pkg/errors"
)

// Caller is the sending half of a session.
type Caller interface {
	Send(kind mux.Kind, payload []byte) error
	SendWithReply(ctx context.Context, kind mux.Kind, payload []byte) ([]byte, error)
}

// Payload is satisfied by pointers to wire payload types.
type Payload[T any] interface {
	*T
	codec.Marshaler
	codec.Unmarshaler
}

// Op binds a kind to its request and reply types.
type Op[Req, Rep any, PReq Payload[Req], PRep Payload[Rep]] struct {
	Kind mux.Kind
}

// Send issues req and waits for the typed reply.
func (op Op[Req, Rep, PReq, PRep]) Send(ctx context.Context, c Caller, req Req) (Rep, error) {
	var rep Rep
	b, err := PReq(&req).MarshalBinary()
	if err != nil {
		return rep, errors.Wrapf(err, "message: encode %s", Name(op.Kind))
	}
	out, err := c.SendWithReply(ctx, op.Kind, b)
	if err != nil {
		return rep, errors.Wrapf(err, "message: %s", Name(op.Kind))
	}
	if err := PRep(&rep).UnmarshalBinary(out); err != nil {
		return rep, errors.Wrapf(err, "message: decode %s reply", Name(op.Kind))
	}
	return rep, nil
}

// Notify issues req without waiting for, or accepting, a reply.
func (op Op[Req, Rep, PReq, PRep]) Notify(c Caller, req Req) error {
	b, err := PReq(&req).MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "message: encode %s", Name(op.Kind))
	}
	return errors.Wrapf(c.Send(op.Kind, b), "message: %s", Name(op.Kind))
}

// Handle registers fn to answer op on m.
func Handle[Req, Rep any, PReq Payload[Req], PRep Payload[Rep]](
	m *RespondMux, op Op[Req, Rep, PReq, PRep], fn func(ctx context.Context, req Req) (Rep, error),
) {
	m.Handle(op.Kind, mux.HandlerFunc(func(ctx context.Context, kind mux.Kind, payload []byte) ([]byte, error) {
		var req Req
		if err := PReq(&req).UnmarshalBinary(payload); err != nil {
			return nil, errors.Wrapf(err, "message: decode %s", Name(kind))
		}
		rep, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return PRep(&rep).MarshalBinary()
	}))
}

// Catalog operations.
var (
	ViewerHandshakeOp = Op[Handshake, Handshake, *Handshake, *Handshake]{ViewerHandshake}
	HostHandshakeOp   = Op[Handshake, Handshake, *Handshake, *Handshake]{HostHandshake}
	WindowsOp         = Op[codec.Void, WindowList, *codec.Void, *WindowList]{Windows}
	WindowPreviewOp   = Op[WindowRequest, Preview, *WindowRequest, *Preview]{WindowPreview}

	StartCastingOp          = Op[WindowRequest, codec.Void, *WindowRequest, *codec.Void]{StartCasting}
	StopCastingOp           = Op[WindowRequest, codec.Void, *WindowRequest, *codec.Void]{StopCasting}
	WindowFrameOp           = Op[Frame, codec.Void, *Frame, *codec.Void]{WindowFrame}
	WindowMaskOp            = Op[MaskAck, codec.Void, *MaskAck, *codec.Void]{WindowMask}
	StartWatchingChildrenOp = Op[WindowRequest, codec.Void, *WindowRequest, *codec.Void]{StartWatchingChildren}
	StopWatchingChildrenOp  = Op[WindowRequest, codec.Void, *WindowRequest, *codec.Void]{StopWatchingChildren}
	ChildWindowsOp          = Op[Children, codec.Void, *Children, *codec.Void]{ChildWindows}

	MouseMovedOp    = Op[Pointer, codec.Void, *Pointer, *codec.Void]{MouseMoved}
	ClickedOp       = Op[Pointer, codec.Void, *Pointer, *codec.Void]{Clicked}
	ScrollBeganOp   = Op[WindowRequest, codec.Void, *WindowRequest, *codec.Void]{ScrollBegan}
	ScrollChangedOp = Op[Scroll, codec.Void, *Scroll, *codec.Void]{ScrollChanged}
	ScrollEndedOp   = Op[WindowRequest, codec.Void, *WindowRequest, *codec.Void]{ScrollEnded}
	DragBeganOp     = Op[Pointer, codec.Void, *Pointer, *codec.Void]{DragBegan}
	DragChangedOp   = Op[Pointer, codec.Void, *Pointer, *codec.Void]{DragChanged}
	DragEndedOp     = Op[Pointer, codec.Void, *Pointer, *codec.Void]{DragEnded}
	TypedOp         = Op[Key, codec.Void, *Key, *codec.Void]{Typed}
)
