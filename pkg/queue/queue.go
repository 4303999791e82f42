// Package queue buffers pending output mutations until the session dispatches them.
//
// Enqueue never blocks. The queue is bounded: when it is full the new command is
// rejected with device.ErrQueueFull and nothing already queued is disturbed.
package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/urmzd/ipcom/pkg/device"
)

// DefaultCapacity bounds the number of pending commands.
const DefaultCapacity = 256

// Result is the outcome of a dispatched command.
type Result struct {
	Command Command
	Err     error
	At      time.Time
}

// Command is a user-intent record. It is never mutated after enqueue.
type Command struct {
	ID         uint64
	Ref        device.OutputRef
	Value      int
	EnqueuedAt time.Time
	Tag        string // free-form origin marker, opaque to the queue
	Done       func(Result)
}

// Resolve reports the outcome to the command's Done callback, if any.
func (c Command) Resolve(err error, at time.Time) {
	if c.Done != nil {
		c.Done(Result{Command: c, Err: err, At: at})
	}
}

// Request describes a command to enqueue.
type Request struct {
	Ref   device.OutputRef
	Value int
	Tag   string
	Done  func(Result)
}

// Queue is a FIFO of pending commands, safe for many producers and one dispatcher.
type Queue struct {
	mu       sync.Mutex
	items    []Command
	capacity int
	nextID   uint64
	closed   bool
	now      func() time.Time

	dispatchMu sync.Mutex
}

// New creates a queue holding at most capacity commands. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		capacity: capacity,
		now:      time.Now,
	}
}

// Enqueue appends a command. It fails with device.ErrQueueFull when at capacity.
func (q *Queue) Enqueue(ref device.OutputRef, value int, done func(Result)) (Command, error) {
	cmds, err := q.EnqueueAll([]Request{{Ref: ref, Value: value, Done: done}})
	if err != nil {
		return Command{}, err
	}
	return cmds[0], nil
}

// EnqueueAll appends every request contiguously, or none of them.
// It fails with device.ErrStopped once the queue is closed.
func (q *Queue) EnqueueAll(reqs []Request) ([]Command, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, fmt.Errorf("%w: queue closed", device.ErrStopped)
	}
	if len(q.items)+len(reqs) > q.capacity {
		return nil, fmt.Errorf("%w: %d pending, capacity %d", device.ErrQueueFull, len(q.items), q.capacity)
	}

	now := q.now()
	out := make([]Command, 0, len(reqs))
	for _, r := range reqs {
		q.nextID++
		cmd := Command{
			ID:         q.nextID,
			Ref:        r.Ref,
			Value:      r.Value,
			EnqueuedAt: now,
			Tag:        r.Tag,
			Done:       r.Done,
		}
		q.items = append(q.items, cmd)
		out = append(out, cmd)
	}
	return out, nil
}

// DequeueBatch removes and returns up to max of the oldest commands.
func (q *Queue) DequeueBatch(max int) []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max <= 0 || len(q.items) == 0 {
		return nil
	}
	if max > len(q.items) {
		max = len(q.items)
	}
	batch := make([]Command, max)
	copy(batch, q.items[:max])

	remaining := copy(q.items, q.items[max:])
	clear(q.items[remaining:])
	q.items = q.items[:remaining]
	return batch
}

// Requeue puts undelivered commands back at the head, preserving their order.
// Capacity is not enforced so a requeue can never lose a command.
func (q *Queue) Requeue(cmds []Command) {
	if len(cmds) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]Command, 0, len(cmds)+len(q.items))
	items = append(items, cmds...)
	items = append(items, q.items...)
	q.items = items
}

// Drain removes and returns every pending command.
func (q *Queue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Close drains the queue and refuses further commands until Open.
func (q *Queue) Close() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	out := q.items
	q.items = nil
	return out
}

// Open accepts commands again after Close.
func (q *Queue) Open() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = false
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TryDispatch claims the single dispatch slot. ok is false while another cycle runs.
func (q *Queue) TryDispatch() (release func(), ok bool) {
	if !q.dispatchMu.TryLock() {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(q.dispatchMu.Unlock) }, true
}
