package mux

import "sync"

// maxAbandoned bounds the cancelled tokens remembered for late replies.
// Past it the oldest is forgotten and its reply, should it still come,
// is treated as unknown.
const maxAbandoned = 1024

type result struct {
	payload []byte
	err     error
}

// pending maps reply tokens to the senders waiting on them.
type pending struct {
	mu        sync.Mutex
	next      uint64
	waiters   map[uint64]chan result
	abandoned map[uint64]struct{}
	order     []uint64
	head      int
	err       error

	metrics *Metrics
}

func newPending(m *Metrics) *pending {
	return &pending{
		waiters:   make(map[uint64]chan result),
		abandoned: make(map[uint64]struct{}),
		order:     make([]uint64, maxAbandoned),
		metrics:   m,
	}
}

// register allocates a token and its reply channel. Token 0 is reserved
// for one-way messages and tokens still in use are never reissued.
func (p *pending) register() (uint64, <-chan result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, nil, p.err
	}
	for {
		p.next++
		if p.next == 0 {
			continue
		}
		if _, ok := p.waiters[p.next]; ok {
			continue
		}
		if _, ok := p.abandoned[p.next]; ok {
			continue
		}
		break
	}
	ch := make(chan result, 1)
	p.waiters[p.next] = ch
	p.metrics.pendingAdd(1)
	return p.next, ch, nil
}

// resolve delivers a reply. It reports false when nothing was waiting on
// token, which includes a second reply to the same token.
func (p *pending) resolve(token uint64, payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.waiters[token]; ok {
		delete(p.waiters, token)
		ch <- result{payload: payload}
		p.metrics.pendingAdd(-1)
		p.metrics.replyResolved()
		return true
	}
	if _, ok := p.abandoned[token]; ok {
		delete(p.abandoned, token)
		return true
	}
	return false
}

// abandon drops the waiter for token but remembers the token so that a
// late reply is discarded rather than treated as unknown.
func (p *pending) abandon(token uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.waiters[token]; ok {
		delete(p.waiters, token)
		p.metrics.pendingAdd(-1)

		// order is a ring; the slot being reused holds the oldest token.
		if old := p.order[p.head]; old != 0 {
			delete(p.abandoned, old)
		}
		p.order[p.head] = token
		p.head = (p.head + 1) % len(p.order)
		p.abandoned[token] = struct{}{}
	}
}

// remove drops the waiter for a request that never made it out.
func (p *pending) remove(token uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.waiters[token]; ok {
		delete(p.waiters, token)
		p.metrics.pendingAdd(-1)
	}
}

// failAll resolves every waiter with err and refuses new registrations.
func (p *pending) failAll(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	p.err = err
	p.metrics.pendingAdd(-float64(len(p.waiters)))
	for token, ch := range p.waiters {
		ch <- result{err: err}
		delete(p.waiters, token)
	}
	p.abandoned = nil
}

func (p *pending) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}
