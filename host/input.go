package host

import (
	"context"

	"github.com/ensemblecast/ensemble/codec"
	"github.com/ensemblecast/ensemble/input"
	"github.com/ensemblecast/ensemble/message"
)

func (h *Host) handleInput(m *message.RespondMux) {
	pointer := func(kind input.Kind) func(context.Context, message.Pointer) (codec.Void, error) {
		return func(ctx context.Context, p message.Pointer) (codec.Void, error) {
			ev := input.Event{Kind: kind, Window: p.WindowID, At: input.Point{X: p.X, Y: p.Y}}
			if kind == input.Click {
				ev.Count = h.clicks.Next()
			}
			return h.inject(ctx, ev)
		}
	}
	window := func(kind input.Kind) func(context.Context, message.WindowRequest) (codec.Void, error) {
		return func(ctx context.Context, req message.WindowRequest) (codec.Void, error) {
			return h.inject(ctx, input.Event{Kind: kind, Window: req.WindowID})
		}
	}

	message.Handle(m, message.MouseMovedOp, pointer(input.MouseMoved))
	message.Handle(m, message.ClickedOp, pointer(input.Click))
	message.Handle(m, message.DragBeganOp, pointer(input.DragBegan))
	message.Handle(m, message.DragChangedOp, pointer(input.DragChanged))
	message.Handle(m, message.DragEndedOp, pointer(input.DragEnded))
	message.Handle(m, message.ScrollBeganOp, window(input.ScrollBegan))
	message.Handle(m, message.ScrollEndedOp, window(input.ScrollEnded))
	message.Handle(m, message.ScrollChangedOp, func(ctx context.Context, s message.Scroll) (codec.Void, error) {
		return h.inject(ctx, input.Event{Kind: input.ScrollChanged, Window: s.WindowID, DX: s.DX, DY: s.DY})
	})
	message.Handle(m, message.TypedOp, func(ctx context.Context, k message.Key) (codec.Void, error) {
		return h.inject(ctx, input.Event{Kind: input.Key, Window: k.WindowID, Code: k.Code, Down: k.Down})
	})
}

// inject never fails the session: an event the windowing system refuses
// is logged and dropped.
func (h *Host) inject(ctx context.Context, ev input.Event) (codec.Void, error) {
	if h.injector == nil {
		return codec.Void{}, nil
	}
	if err := h.injector.Inject(ctx, ev); err != nil {
		h.peer().Log.WithError(err).WithField("event", ev.Kind.String()).Warn("host: inject input")
	}
	return codec.Void{}, nil
}
