// Package uiloop marshals work from background goroutines onto the UI loop.
package uiloop

import "sync/atomic"

// DefaultCapacity bounds how many tasks may wait between two UI ticks.
const DefaultCapacity = 64

// Dispatcher is a bounded task queue owned by one UI loop.
//
// Post may be called from any goroutine. Drain must only be called by the
// owning loop; every task therefore runs on that loop.
type Dispatcher struct {
	tasks   chan func()
	dropped atomic.Int64
}

// New returns a dispatcher holding up to capacity pending tasks.
func New(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Dispatcher{tasks: make(chan func(), capacity)}
}

// Post enqueues task without blocking. It reports false when the queue is full
// and the task was dropped.
func (d *Dispatcher) Post(task func()) bool {
	if task == nil {
		return false
	}
	select {
	case d.tasks <- task:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Drain runs every task queued at the time of the call and returns how many ran.
// Tasks posted by a running task wait for the next Drain.
func (d *Dispatcher) Drain() int {
	pending := len(d.tasks)
	ran := 0
	for ; ran < pending; ran++ {
		select {
		case task := <-d.tasks:
			task()
		default:
			return ran
		}
	}
	return ran
}

// Pending reports the number of queued tasks.
func (d *Dispatcher) Pending() int {
	return len(d.tasks)
}

// Dropped reports how many tasks were rejected because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}
