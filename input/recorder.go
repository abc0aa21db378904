package input

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Recorder is an Injector that keeps every event and logs it. It stands
// in where no windowing system is available.
type Recorder struct {
	Log logrus.FieldLogger

	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

func NewRecorder(log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{Log: log, notify: make(chan struct{}, 1)}
}

func (r *Recorder) Inject(ctx context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}

	r.Log.WithFields(logrus.Fields{
		"event":  ev.Kind.String(),
		"window": ev.Window,
	}).Debug("input: injected")
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Wait blocks until at least n events were recorded or ctx is done.
func (r *Recorder) Wait(ctx context.Context, n int) ([]Event, error) {
	for {
		if ev := r.Events(); len(ev) >= n {
			return ev, nil
		}
		select {
		case <-r.notify:
		case <-ctx.Done():
			return r.Events(), ctx.Err()
		}
	}
}
