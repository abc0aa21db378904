// Package stream delivers a sequence of values to one consumer, keeping
// only the newest undelivered value.
package stream

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned by Next once the stream is closed and drained.
var ErrClosed = errors.New("stream: closed")

// Latest is a single-slot buffer. Put never blocks; a value that has not
// been taken by Next when the next Put arrives is dropped.
type Latest[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	closed  bool
	dropped uint64
	ready   chan struct{}
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ready: make(chan struct{}, 1)}
}

// Put offers v, replacing any value still waiting. It reports false if
// the stream is closed.
func (l *Latest[T]) Put(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	if l.full {
		l.dropped++
	}
	l.value, l.full = v, true
	l.signal()
	return true
}

// Next blocks until a value is available, the stream is closed, or ctx
// is done. A value put before Close is still delivered.
func (l *Latest[T]) Next(ctx context.Context) (T, error) {
	for {
		l.mu.Lock()
		if l.full {
			v := l.value
			var zero T
			l.value, l.full = zero, false
			l.mu.Unlock()
			return v, nil
		}
		if l.closed {
			l.mu.Unlock()
			var zero T
			return zero, ErrClosed
		}
		l.mu.Unlock()

		select {
		case <-l.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Close ends the stream. It is safe to call more than once.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.signal()
}

// Dropped returns how many values were replaced before delivery.
func (l *Latest[T]) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Latest[T]) signal() {
	select {
	case l.ready <- struct{}{}:
	default:
	}
}
