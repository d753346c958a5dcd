package animation

import (
	"sort"
	"testing"
	"time"

	"github.com/rbright/bingocat/internal/uiloop"
	"github.com/stretchr/testify/require"
)

// manualClock is a deterministic Scheduler driven by Advance.
type manualClock struct {
	now    time.Duration
	timers []*manualTimer
	// leaky keeps firing stopped timers, like a callback already queued on the
	// UI loop when Stop ran.
	leaky bool
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	timer := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (c *manualClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		due := make([]*manualTimer, 0)
		for _, timer := range c.timers {
			if timer.fired || timer.at > target {
				continue
			}
			if timer.stopped && !c.leaky {
				continue
			}
			due = append(due, timer)
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		c.now = next.at
		next.fired = true
		next.f()
	}
	c.now = target
}

func alwaysLeft() bool  { return true }
func alwaysRight() bool { return false }

func newTestMachine(clock *manualClock, choose Chooser) *Machine {
	return New(Options{ResetDelay: 100 * time.Millisecond, Scheduler: clock, Choose: choose})
}

func TestNewStartsIdleAndDisarmed(t *testing.T) {
	m := newTestMachine(&manualClock{}, alwaysLeft)
	require.Equal(t, Idle, m.Frame())
	require.False(t, m.Armed())
	require.Equal(t, 100*time.Millisecond, m.ResetDelay())
}

func TestNewAppliesDefaults(t *testing.T) {
	m := New(Options{})
	require.Equal(t, DefaultResetDelay, m.ResetDelay())
	require.NotNil(t, m.choose)
	require.NotNil(t, m.scheduler)
}

func TestTriggerSelectsChosenPawAndArmsReset(t *testing.T) {
	tests := []struct {
		name   string
		choose Chooser
		want   Frame
	}{
		{name: "left", choose: alwaysLeft, want: LeftHand},
		{name: "right", choose: alwaysRight, want: RightHand},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMachine(&manualClock{}, tc.choose)
			require.Equal(t, tc.want, m.Trigger())
			require.Equal(t, tc.want, m.Frame())
			require.True(t, m.Armed())
		})
	}
}

func TestResetReturnsToIdleAfterDelay(t *testing.T) {
	clock := &manualClock{}
	m := newTestMachine(clock, alwaysLeft)

	m.Trigger()
	clock.Advance(99 * time.Millisecond)
	require.Equal(t, LeftHand, m.Frame())
	require.True(t, m.Armed())

	clock.Advance(time.Millisecond)
	require.Equal(t, Idle, m.Frame())
	require.False(t, m.Armed())
}

func TestRetriggerRestartsCountdown(t *testing.T) {
	clock := &manualClock{}
	m := newTestMachine(clock, alwaysRight)

	m.Trigger()
	clock.Advance(50 * time.Millisecond)
	m.Trigger()

	clock.Advance(70 * time.Millisecond) // t=120ms
	require.NotEqual(t, Idle, m.Frame())
	require.True(t, m.Armed())

	clock.Advance(40 * time.Millisecond) // t=160ms
	require.Equal(t, Idle, m.Frame())
	require.False(t, m.Armed())
}

func TestRetriggerStillActiveJustBeforeDelay(t *testing.T) {
	clock := &manualClock{}
	m := newTestMachine(clock, alwaysLeft)

	m.Trigger()
	clock.Advance(30 * time.Millisecond)
	m.Trigger()

	clock.Advance(100*time.Millisecond - time.Millisecond)
	require.Equal(t, LeftHand, m.Frame())

	clock.Advance(time.Millisecond)
	require.Equal(t, Idle, m.Frame())
}

func TestRetriggerReplacesFrameImmediately(t *testing.T) {
	clock := &manualClock{}
	paws := []bool{true, false}
	m := newTestMachine(clock, func() bool {
		next := paws[0]
		paws = paws[1:]
		return next
	})

	require.Equal(t, LeftHand, m.Trigger())
	require.Equal(t, RightHand, m.Trigger())
	require.Equal(t, RightHand, m.Frame())
}

func TestStaleResetCallbackIsIgnored(t *testing.T) {
	clock := &manualClock{leaky: true}
	m := newTestMachine(clock, alwaysLeft)

	m.Trigger()
	clock.Advance(50 * time.Millisecond)
	m.Trigger()

	clock.Advance(60 * time.Millisecond) // first timer leaks through at t=100ms
	require.Equal(t, LeftHand, m.Frame())
	require.True(t, m.Armed())

	clock.Advance(40 * time.Millisecond)
	require.Equal(t, Idle, m.Frame())
}

func TestFrameIsAlwaysPawRightAfterTrigger(t *testing.T) {
	clock := &manualClock{}
	flip := false
	m := newTestMachine(clock, func() bool {
		flip = !flip
		return flip
	})

	steps := []time.Duration{0, 10, 200, 99, 100, 1, 250}
	for _, step := range steps {
		clock.Advance(step * time.Millisecond)
		frame := m.Trigger()
		require.Contains(t, []Frame{LeftHand, RightHand}, frame)
		require.Equal(t, frame, m.Frame())
		require.True(t, m.Armed())
	}
}

func TestIdleImpliesDisarmed(t *testing.T) {
	clock := &manualClock{}
	m := newTestMachine(clock, alwaysLeft)

	check := func() {
		if !m.Armed() {
			require.Equal(t, Idle, m.Frame())
		} else {
			require.NotEqual(t, Idle, m.Frame())
		}
	}

	check()
	for i := 0; i < 5; i++ {
		m.Trigger()
		check()
		clock.Advance(time.Duration(40*i) * time.Millisecond)
		check()
	}
	clock.Advance(time.Second)
	check()
}

func TestStopCancelsPendingReset(t *testing.T) {
	clock := &manualClock{}
	var changes []Frame
	m := New(Options{
		ResetDelay: 100 * time.Millisecond,
		Scheduler:  clock,
		Choose:     alwaysLeft,
		OnChange:   func(f Frame) { changes = append(changes, f) },
	})

	m.Trigger()
	m.Stop()
	require.Equal(t, Idle, m.Frame())
	require.False(t, m.Armed())

	clock.Advance(time.Second)
	require.Equal(t, []Frame{LeftHand, Idle}, changes)

	m.Stop()
	require.Equal(t, []Frame{LeftHand, Idle}, changes)
}

func TestOnChangeObservesTriggerAndReset(t *testing.T) {
	clock := &manualClock{}
	var changes []Frame
	m := New(Options{
		ResetDelay: 100 * time.Millisecond,
		Scheduler:  clock,
		Choose:     alwaysRight,
		OnChange:   func(f Frame) { changes = append(changes, f) },
	})

	m.Trigger()
	clock.Advance(100 * time.Millisecond)
	require.Equal(t, []Frame{RightHand, Idle}, changes)
}

func TestDefaultChooserReachesBothPaws(t *testing.T) {
	seen := map[Frame]bool{}
	m := New(Options{ResetDelay: time.Hour, Scheduler: &manualClock{}})
	for i := 0; i < 256 && len(seen) < 2; i++ {
		seen[m.Trigger()] = true
	}
	require.True(t, seen[LeftHand])
	require.True(t, seen[RightHand])
}

func TestPostingSchedulerDeliversThroughDispatcher(t *testing.T) {
	d := uiloop.New(4)
	fired := false
	PostingScheduler{Post: d.Post}.AfterFunc(time.Millisecond, func() { fired = true })

	require.Eventually(t, func() bool { return d.Pending() == 1 }, time.Second, time.Millisecond)
	require.False(t, fired)
	require.Equal(t, 1, d.Drain())
	require.True(t, fired)
}

func TestPostingSchedulerRetriesWhenQueueFull(t *testing.T) {
	d := uiloop.New(1)
	require.True(t, d.Post(func() {}))

	fired := false
	PostingScheduler{Post: d.Post}.AfterFunc(time.Millisecond, func() { fired = true })

	require.Eventually(t, func() bool { return d.Dropped() > 0 }, time.Second, time.Millisecond)
	require.Equal(t, 1, d.Drain())

	require.Eventually(t, func() bool { return d.Pending() == 1 }, time.Second, time.Millisecond)
	d.Drain()
	require.True(t, fired)
}

func TestFrameString(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "left_hand", LeftHand.String())
	require.Equal(t, "right_hand", RightHand.String())
	require.Equal(t, "frame(9)", Frame(9).String())
}
