// Package state holds the latest device snapshot and publishes every new one.
//
// Readers never block: Latest loads a single atomic pointer. Apply is expected to
// be called from one goroutine (the session receive loop) but is safe to call
// concurrently; completion order defines snapshot order.
package state

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/codec"
	"github.com/urmzd/ipcom/pkg/device"
)

// Handler is invoked with every applied snapshot, in apply order.
type Handler func(*device.Snapshot)

// Store is the sole writer of live output values.
type Store struct {
	current atomic.Pointer[device.Snapshot]

	// applyMu orders Apply calls and their notifications. Readers never take it.
	applyMu sync.Mutex
	seq     uint64
	now     func() time.Time

	subsMu   sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		handlers: make(map[int]Handler),
	}
}

// Apply installs a new immutable snapshot built from f and returns it.
// Handlers run after installation on the calling goroutine; they must not call Apply.
func (s *Store) Apply(f codec.SnapshotFrame) *device.Snapshot {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.seq++
	snap := device.NewSnapshot(s.seq, f.Timestamp, s.now(), f.Modules)
	s.current.Store(snap)

	for _, h := range s.snapshotHandlers() {
		h(snap)
	}
	return snap
}

// Latest returns the current snapshot, or nil if no frame has arrived yet.
func (s *Store) Latest() *device.Snapshot {
	return s.current.Load()
}

// ValueOf returns the latest value of one output.
func (s *Store) ValueOf(module, output int) (int, error) {
	snap := s.Latest()
	if snap == nil {
		return 0, fmt.Errorf("%w: no snapshot received yet", device.ErrNotFound)
	}
	v, ok := snap.Value(device.OutputRef{Module: module, Output: output})
	if !ok {
		return 0, fmt.Errorf("%w: output %d/%d", device.ErrNotFound, module, output)
	}
	return v, nil
}

// ModuleValues returns the latest ordered values of a module.
func (s *Store) ModuleValues(module int) ([]int, error) {
	snap := s.Latest()
	if snap == nil {
		return nil, fmt.Errorf("%w: no snapshot received yet", device.ErrNotFound)
	}
	v, ok := snap.ModuleValues(module)
	if !ok {
		return nil, fmt.Errorf("%w: module %d", device.ErrNotFound, module)
	}
	return v, nil
}

// Subscribe registers h for every future snapshot. The returned func removes it.
func (s *Store) Subscribe(h Handler) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = h
	s.order = append(s.order, id)
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(s.handlers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// SubscribeChan delivers snapshots on a bounded channel. When the consumer falls
// behind the oldest buffered snapshot is dropped so the newest always gets through.
// The channel is closed by cancel.
func (s *Store) SubscribeChan(buffer int) (<-chan *device.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *device.Snapshot, buffer)
	var mu sync.Mutex
	closed := false

	unsubscribe := s.Subscribe(func(snap *device.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		for {
			select {
			case ch <- snap:
				return
			default:
			}
			select {
			case <-ch:
				log.Debug().Uint64("seq", snap.Seq()).Msg("Snapshot subscriber behind, dropping oldest")
			default:
			}
		}
	})

	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

func (s *Store) snapshotHandlers() []Handler {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	out := make([]Handler, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.handlers[id])
	}
	return out
}
