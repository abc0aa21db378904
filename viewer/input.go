package viewer

import (
	"context"

	"github.com/ensemblecast/ensemble/input"
	"github.com/ensemblecast/ensemble/message"
	"github.com/pkg/errors"
)

// Inject forwards ev to the host, making a Viewer the Injector of a
// remote machine. Click counts are ignored: the host numbers clicks
// itself.
func (v *Viewer) Inject(ctx context.Context, ev input.Event) error {
	p := v.peer()
	at := message.Pointer{WindowID: ev.Window, X: ev.At.X, Y: ev.At.Y}
	window := message.WindowRequest{WindowID: ev.Window}
	var err error
	switch ev.Kind {
	case input.MouseMoved:
		_, err = message.MouseMovedOp.Send(ctx, p, at)
	case input.Click:
		_, err = message.ClickedOp.Send(ctx, p, at)
	case input.DragBegan:
		_, err = message.DragBeganOp.Send(ctx, p, at)
	case input.DragChanged:
		_, err = message.DragChangedOp.Send(ctx, p, at)
	case input.DragEnded:
		_, err = message.DragEndedOp.Send(ctx, p, at)
	case input.ScrollBegan:
		_, err = message.ScrollBeganOp.Send(ctx, p, window)
	case input.ScrollEnded:
		_, err = message.ScrollEndedOp.Send(ctx, p, window)
	case input.ScrollChanged:
		_, err = message.ScrollChangedOp.Send(ctx, p, message.Scroll{WindowID: ev.Window, DX: ev.DX, DY: ev.DY})
	case input.Key:
		_, err = message.TypedOp.Send(ctx, p, message.Key{WindowID: ev.Window, Code: ev.Code, Down: ev.Down})
	default:
		return errors.Errorf("viewer: cannot send %s", ev.Kind)
	}
	return err
}

func (v *Viewer) MouseMoved(ctx context.Context, id uint32, at input.Point) error {
	return v.Inject(ctx, input.Event{Kind: input.MouseMoved, Window: id, At: at})
}

func (v *Viewer) Click(ctx context.Context, id uint32, at input.Point) error {
	return v.Inject(ctx, input.Event{Kind: input.Click, Window: id, At: at})
}

// Scroll sends a whole gesture: began, one change, ended.
func (v *Viewer) Scroll(ctx context.Context, id uint32, dx, dy float64) error {
	for _, ev := range []input.Event{
		{Kind: input.ScrollBegan, Window: id},
		{Kind: input.ScrollChanged, Window: id, DX: dx, DY: dy},
		{Kind: input.ScrollEnded, Window: id},
	} {
		if err := v.Inject(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Drag sends a drag gesture through path, which needs at least a start
// and an end point.
func (v *Viewer) Drag(ctx context.Context, id uint32, path ...input.Point) error {
	if len(path) < 2 {
		return errors.Errorf("viewer: drag needs 2 points, got %d", len(path))
	}
	for i, at := range path {
		kind := input.DragChanged
		switch i {
		case 0:
			kind = input.DragBegan
		case len(path) - 1:
			kind = input.DragEnded
		}
		if err := v.Inject(ctx, input.Event{Kind: kind, Window: id, At: at}); err != nil {
			return err
		}
	}
	return nil
}

// Type presses and releases a key.
func (v *Viewer) Type(ctx context.Context, id uint32, code uint16) error {
	if err := v.Inject(ctx, input.Event{Kind: input.Key, Window: id, Code: code, Down: true}); err != nil {
		return err
	}
	return v.Inject(ctx, input.Event{Kind: input.Key, Window: id, Code: code})
}
