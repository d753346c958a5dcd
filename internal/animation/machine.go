// Package animation maps trigger events to cat frames with a self-resetting timeout.
package animation

import (
	"math/rand/v2"
	"time"

	"github.com/rbright/bingocat/internal/fsm"
)

// DefaultResetDelay is how long a paw stays down after the last trigger.
const DefaultResetDelay = 100 * time.Millisecond

// Chooser picks the paw for one trigger; true selects LeftHand.
type Chooser func() bool

// Options configures a Machine. Zero values select the defaults.
type Options struct {
	ResetDelay time.Duration
	Scheduler  Scheduler
	Choose     Chooser
	// OnChange observes every frame change, including resets.
	OnChange func(Frame)
}

// Machine is the trigger-and-animate state machine.
//
// It is not safe for concurrent use: every method, and every callback handed
// to the Scheduler, must run on the single goroutine that owns the overlay.
type Machine struct {
	delay     time.Duration
	scheduler Scheduler
	choose    Chooser
	onChange  func(Frame)

	state fsm.State
	frame Frame
	timer Timer
	// generation invalidates reset callbacks that were already in flight when
	// the timer was restarted or stopped.
	generation uint64
}

// New returns a machine showing Idle with no reset armed.
func New(opts Options) *Machine {
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = runtimeScheduler{}
	}
	if opts.Choose == nil {
		opts.Choose = coinFlip
	}
	return &Machine{
		delay:     opts.ResetDelay,
		scheduler: opts.Scheduler,
		choose:    opts.Choose,
		onChange:  opts.OnChange,
		state:     fsm.StateIdle,
		frame:     Idle,
	}
}

// Frame returns the frame currently on screen.
func (m *Machine) Frame() Frame {
	return m.frame
}

// Armed reports whether a reset to Idle is pending.
func (m *Machine) Armed() bool {
	return m.timer != nil
}

// ResetDelay returns the configured countdown.
func (m *Machine) ResetDelay() time.Duration {
	return m.delay
}

// Trigger lowers a randomly chosen paw and restarts the reset countdown.
func (m *Machine) Trigger() Frame {
	next, err := fsm.Transition(m.state, fsm.EventTrigger)
	if err != nil {
		return m.frame
	}

	frame := RightHand
	if m.choose() {
		frame = LeftHand
	}

	m.cancelTimer()
	generation := m.generation
	m.timer = m.scheduler.AfterFunc(m.delay, func() { m.elapsed(generation) })
	m.state = next
	m.setFrame(frame)
	return frame
}

// Stop cancels any pending reset and returns to Idle.
func (m *Machine) Stop() {
	m.cancelTimer()
	if m.state != fsm.StateIdle {
		m.state = fsm.StateIdle
		m.setFrame(Idle)
	}
}

// elapsed handles a reset callback; stale generations are ignored.
func (m *Machine) elapsed(generation uint64) bool {
	if generation != m.generation || m.timer == nil {
		return false
	}
	next, err := fsm.Transition(m.state, fsm.EventElapsed)
	if err != nil {
		return false
	}
	m.timer = nil
	m.state = next
	m.setFrame(Idle)
	return true
}

func (m *Machine) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
}

func (m *Machine) setFrame(frame Frame) {
	m.frame = frame
	if m.onChange != nil {
		m.onChange(frame)
	}
}

func coinFlip() bool {
	return rand.IntN(2) == 0
}

// runtimeScheduler fires callbacks on the timer goroutine. Machines shared with
// another goroutine must be given a PostingScheduler instead.
type runtimeScheduler struct{}

func (runtimeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
