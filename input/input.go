// Package input describes how remote pointer and keyboard events reach
// the host's windows.
package input

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Kind is the type of an input event.
type Kind int

const (
	MouseMoved Kind = iota
	Click
	ScrollBegan
	ScrollChanged
	ScrollEnded
	DragBegan
	DragChanged
	DragEnded
	Key
)

var kindNames = [...]string{
	MouseMoved:    "mouseMoved",
	Click:         "click",
	ScrollBegan:   "scrollBegan",
	ScrollChanged: "scrollChanged",
	ScrollEnded:   "scrollEnded",
	DragBegan:     "dragBegan",
	DragChanged:   "dragChanged",
	DragEnded:     "dragEnded",
	Key:           "key",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Point is a location in window points from the top-left corner.
type Point struct {
	X, Y float64
}

// Event is one input event aimed at a window. Fields that do not apply
// to the Kind are zero.
type Event struct {
	Kind   Kind
	Window uint32
	At     Point

	// Clicks in a row, for Click.
	Count int

	// Scroll translation, for ScrollChanged.
	DX, DY float64

	// Virtual key code and direction, for Key.
	Code uint16
	Down bool
}

// An Injector delivers events to the host's windowing system.
type Injector interface {
	Inject(ctx context.Context, ev Event) error
}

type InjectorFunc func(ctx context.Context, ev Event) error

func (f InjectorFunc) Inject(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// DoubleClickInterval is the longest gap between clicks that still
// counts them as one multi-click.
const DoubleClickInterval = 500 * time.Millisecond

// ClickCounter numbers consecutive clicks: a click within the interval
// of the previous one continues the run, any other starts a new one.
type ClickCounter struct {
	Interval time.Duration
	Now      func() time.Time

	mu    sync.Mutex
	last  time.Time
	count int
}

func (c *ClickCounter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	interval := c.Interval
	if interval == 0 {
		interval = DoubleClickInterval
	}
	t := now()
	if c.count > 0 && t.Sub(c.last) < interval {
		c.count++
	} else {
		c.count = 1
	}
	c.last = t
	return c.count
}
