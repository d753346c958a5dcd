package animation

import "time"

// postRetryDelay spaces redelivery attempts when the UI queue is full.
const postRetryDelay = 5 * time.Millisecond

// Timer is a pending reset that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot callbacks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// PostingScheduler runs timer callbacks through post so they execute on the
// goroutine that owns the Machine instead of the timer goroutine.
type PostingScheduler struct {
	Post func(func()) bool
}

// AfterFunc arms a runtime timer whose expiry is posted, retrying while the
// queue rejects it.
func (s PostingScheduler) AfterFunc(d time.Duration, f func()) Timer {
	var deliver func()
	deliver = func() {
		if s.Post(f) {
			return
		}
		time.AfterFunc(postRetryDelay, deliver)
	}
	return time.AfterFunc(d, deliver)
}
