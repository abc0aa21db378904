package capture

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ensemblecast/ensemble/stream"
	"github.com/ensemblecast/ensemble/video"
	"github.com/pkg/errors"
)

// Synthetic is an in-process Source whose windows draw a moving gradient
// with transparent corners. It backs demos and tests.
type Synthetic struct {
	// Interval between streamed frames.
	Interval time.Duration

	// Radius of the transparent corners, in pixels.
	Radius int

	mu       sync.Mutex
	windows  map[uint32]Window
	children map[uint32][]uint32
	watchers map[uint32][]*stream.Latest[[]uint32]
	gone     map[uint32]chan struct{}
}

func NewSynthetic(interval time.Duration, windows ...Window) *Synthetic {
	s := &Synthetic{
		Interval: interval,
		Radius:   8,
		windows:  make(map[uint32]Window),
		children: make(map[uint32][]uint32),
		watchers: make(map[uint32][]*stream.Latest[[]uint32]),
		gone:     make(map[uint32]chan struct{}),
	}
	for _, w := range windows {
		s.AddWindow(w)
	}
	return s
}

func (s *Synthetic) AddWindow(w Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[w.ID] = w
	if _, ok := s.gone[w.ID]; !ok {
		s.gone[w.ID] = make(chan struct{})
	}
}

// RemoveWindow closes every stream of the window.
func (s *Synthetic) RemoveWindow(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, id)
	if ch, ok := s.gone[id]; ok {
		close(ch)
		delete(s.gone, id)
	}
}

// SetChildren replaces the child windows of parent and tells watchers.
func (s *Synthetic) SetChildren(parent uint32, children []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[parent] = append([]uint32(nil), children...)
	for _, w := range s.watchers[parent] {
		w.Put(append([]uint32(nil), children...))
	}
}

func (s *Synthetic) lookup(id uint32) (Window, <-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	if !ok {
		return Window{}, nil, errors.Wrapf(ErrNoWindow, "%d", id)
	}
	return w, s.gone[id], nil
}

func (s *Synthetic) Windows(ctx context.Context) ([]Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Synthetic) Screenshot(ctx context.Context, id uint32, maxWidth, maxHeight int) (video.Image, bool, error) {
	w, _, err := s.lookup(id)
	if err != nil || !w.OnScreen {
		return video.Image{}, false, nil
	}
	width, height := FitWithin(int(w.Width), int(w.Height), maxWidth, maxHeight)
	return s.Render(width, height, 0), true, nil
}

func (s *Synthetic) Stream(ctx context.Context, id uint32) (*stream.Latest[video.Image], error) {
	w, gone, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	out := stream.NewLatest[video.Image]()
	go func() {
		defer out.Close()
		interval := s.Interval
		if interval <= 0 {
			interval = time.Second / 30
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for n := 0; ; n++ {
			out.Put(s.Render(int(w.Width), int(w.Height), n))
			select {
			case <-t.C:
			case <-gone:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *Synthetic) WatchChildren(ctx context.Context, id uint32) (*stream.Latest[[]uint32], error) {
	if _, _, err := s.lookup(id); err != nil {
		return nil, err
	}
	out := stream.NewLatest[[]uint32]()

	s.mu.Lock()
	out.Put(append([]uint32(nil), s.children[id]...))
	s.watchers[id] = append(s.watchers[id], out)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		ws := s.watchers[id]
		for i, w := range ws {
			if w == out {
				s.watchers[id] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		out.Close()
	}()
	return out, nil
}

// Render draws frame n of a width by height window.
func (s *Synthetic) Render(width, height, n int) video.Image {
	img := video.NewImage(width, height)
	r := s.Radius
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := img.Pix[y*img.Stride+x*video.BytesPerPixel:]
			p[0] = byte(x + n)
			p[1] = byte(y + n)
			p[2] = byte(x ^ y)
			p[3] = 0xff
			if corner(x, y, width, height, r) {
				p[3] = 0
			}
		}
	}
	return img
}

// corner reports whether x, y lies outside the rounded corner of radius r.
func corner(x, y, width, height, r int) bool {
	if r <= 0 {
		return false
	}
	cx, cy := -1, -1
	switch {
	case x < r:
		cx = r
	case x >= width-r:
		cx = width - r - 1
	}
	switch {
	case y < r:
		cy = r
	case y >= height-r:
		cy = height - r - 1
	}
	if cx < 0 || cy < 0 {
		return false
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy > r*r
}
