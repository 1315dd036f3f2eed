package engine

import (
	"sync/atomic"

	"github.com/lixenwraith/voxnav/parameter"
)

// Command is work posted from any goroutine to run on the scheduler timeline
type Command func()

// CommandQueue is a lock-free MPSC ring of commands
//   - Push: CAS on tail, any number of producers
//   - Drain: single consumer (the clock loop)
//   - Published flags keep the consumer off half-written slots
//
// Overflow: the oldest commands are overwritten and counted as dropped
type CommandQueue struct {
	slots     [parameter.CommandQueueSize]Command
	published [parameter.CommandQueueSize]atomic.Bool
	head      atomic.Uint64
	tail      atomic.Uint64
	dropped   atomic.Uint64
}

// NewCommandQueue creates an empty queue
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

// Push enqueues cmd; nil is ignored
func (q *CommandQueue) Push(cmd Command) {
	if cmd == nil {
		return
	}
	for {
		tail := q.tail.Load()
		next := tail + 1
		if !q.tail.CompareAndSwap(tail, next) {
			continue
		}

		idx := tail & parameter.CommandBufferMask
		q.slots[idx] = cmd
		q.published[idx].Store(true) // after the write

		head := q.head.Load()
		if next-head > parameter.CommandQueueSize {
			if q.head.CompareAndSwap(head, next-parameter.CommandQueueSize) {
				q.dropped.Add(next - parameter.CommandQueueSize - head)
			}
		}
		return
	}
}

// Drain removes pending commands in FIFO order and passes each to fn
// Returns the number of commands run
func (q *CommandQueue) Drain(fn func(Command)) int {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		if head == tail {
			return 0
		}

		avail := tail - head
		if avail > parameter.CommandQueueSize {
			avail = parameter.CommandQueueSize
			head = tail - parameter.CommandQueueSize
		}

		batch := make([]Command, 0, avail)
		for i := uint64(0); i < avail; i++ {
			idx := (head + i) & parameter.CommandBufferMask
			if !q.published[idx].Load() {
				break // writer not done
			}
			batch = append(batch, q.slots[idx])
			q.slots[idx] = nil
			q.published[idx].Store(false)
		}

		if q.head.CompareAndSwap(head, head+uint64(len(batch))) {
			for _, cmd := range batch {
				fn(cmd)
			}
			return len(batch)
		}
	}
}

// Dropped returns the number of commands lost to overflow
func (q *CommandQueue) Dropped() uint64 {
	return q.dropped.Load()
}
