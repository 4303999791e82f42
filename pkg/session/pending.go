package session

import (
	"sync"

	"github.com/urmzd/ipcom/pkg/codec"
)

// pendingTable routes ack and error frames to the request waiting on their sequence byte.
type pendingTable struct {
	mu      sync.Mutex
	waiters map[uint8]chan codec.Frame
}

func newPendingTable() *pendingTable {
	return &pendingTable{waiters: make(map[uint8]chan codec.Frame)}
}

func (p *pendingTable) register(seq uint8) <-chan codec.Frame {
	ch := make(chan codec.Frame, 1)
	p.mu.Lock()
	p.waiters[seq] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingTable) remove(seq uint8) {
	p.mu.Lock()
	delete(p.waiters, seq)
	p.mu.Unlock()
}

// resolve hands f to the waiter for seq. It reports false when nobody waits.
func (p *pendingTable) resolve(seq uint8, f codec.Frame) bool {
	p.mu.Lock()
	ch, ok := p.waiters[seq]
	delete(p.waiters, seq)
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- f
	return true
}
