// Package capture describes the host's window enumeration and capture
// service.
package capture

import (
	"context"

	"github.com/ensemblecast/ensemble/stream"
	"github.com/ensemblecast/ensemble/video"
	"github.com/pkg/errors"
)

// ErrNoWindow is returned for a window ID the source does not know.
var ErrNoWindow = errors.New("capture: no such window")

// Window describes one capturable window.
type Window struct {
	ID       uint32
	Title    string
	App      string
	X, Y     float64
	Width    float64
	Height   float64
	Layer    int
	OnScreen bool
}

// A Source enumerates windows and captures their contents.
type Source interface {
	// Windows lists the windows that may be cast.
	Windows(ctx context.Context) ([]Window, error)

	// Screenshot captures one still of the window, scaled down to fit
	// within maxWidth by maxHeight. It reports false when the window
	// cannot be captured right now.
	Screenshot(ctx context.Context, id uint32, maxWidth, maxHeight int) (video.Image, bool, error)

	// Stream captures the window continuously until ctx is done or the
	// window goes away, at which point the stream is closed.
	Stream(ctx context.Context, id uint32) (*stream.Latest[video.Image], error)

	// WatchChildren reports the set of child windows above id every time
	// it changes, starting with the current set, until ctx is done.
	WatchChildren(ctx context.Context, id uint32) (*stream.Latest[[]uint32], error)
}

// FitWithin scales width by height down, keeping the aspect ratio, so it
// fits within maxWidth by maxHeight. Sizes that already fit are returned
// unchanged and results are at least 1x1.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	scale := float64(maxWidth) / float64(width)
	if s := float64(maxHeight) / float64(height); s < scale {
		scale = s
	}
	w, h := int(float64(width)*scale), int(float64(height)*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
