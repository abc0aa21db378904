package message

import (
	"context"
	"sync"

	"github.com/ensemblecast/ensemble/mux"
	"github.com/pkg/errors"
)

// ErrUnknownKind is the protocol defect of an envelope whose kind is not
// in the catalog.
var ErrUnknownKind = errors.New("message: unknown kind")

// RespondMux is a dispatch table from kind to handler. It implements
// mux.Handler.
type RespondMux struct {
	mu       sync.RWMutex
	handlers map[mux.Kind]mux.Handler
}

func NewRespondMux() *RespondMux {
	return &RespondMux{handlers: make(map[mux.Kind]mux.Handler)}
}

// Handle registers h for kind, replacing any previous handler.
func (m *RespondMux) Handle(kind mux.Kind, h mux.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[kind] = h
}

// Remove unregisters the handler for kind.
func (m *RespondMux) Remove(kind mux.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, kind)
}

// Handler returns the handler registered for kind, if any.
func (m *RespondMux) Handler(kind mux.Kind) mux.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handlers[kind]
}

func (m *RespondMux) HandleMessage(ctx context.Context, kind mux.Kind, payload []byte) ([]byte, error) {
	if !Valid(kind) {
		return nil, errors.Wrapf(ErrUnknownKind, "%d", uint8(kind))
	}
	h := m.Handler(kind)
	if h == nil {
		return nil, mux.ErrNotHandled
	}
	return h.HandleMessage(ctx, kind, payload)
}
