// Package input listens for global keyboard and mouse presses.
package input

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// ErrClosed is returned by Start on a listener that was already closed.
var ErrClosed = errors.New("input listener closed")

// ErrNoDisplay is returned by Start when no X11 display is reachable. The
// global hook needs one, and installing it without one never reports failure.
var ErrNoDisplay = errors.New("input hook needs an X11 display (DISPLAY is empty)")

// Press is one physical key or mouse-button press.
type Press struct {
	Mouse   bool
	Keycode uint16
	Button  uint16
}

// Listener forwards presses from the global hook to a callback.
//
// Only one hook can run per process; Listener owns it from Start until Close.
type Listener struct {
	start   func() chan hook.Event
	end     func()
	display func() string

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	once    sync.Once
}

// NewListener returns a listener backed by gohook.
func NewListener() *Listener {
	return newListener(hook.Start, hook.End, func() string { return os.Getenv("DISPLAY") })
}

func newListener(start func() chan hook.Event, end func(), display func() string) *Listener {
	return &Listener{start: start, end: end, display: display, done: make(chan struct{})}
}

// Start installs the hook and calls onPress for every press until ctx is
// done or Close is called. It returns once the hook is installed.
func (l *Listener) Start(ctx context.Context, onPress func(Press)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.started {
		return errors.New("input listener already started")
	}
	if strings.TrimSpace(l.display()) == "" {
		return ErrNoDisplay
	}

	events := l.start()
	l.started = true

	go func() {
		defer l.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if press, isPress := pressFromEvent(ev); isPress && onPress != nil {
					onPress(press)
				}
			}
		}
	}()
	return nil
}

// Close removes the hook. It is safe to call more than once and before Start.
func (l *Listener) Close() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		started := l.started
		l.mu.Unlock()

		close(l.done)
		if started {
			l.end()
		}
	})
	return nil
}

// pressFromEvent keeps key and mouse-button presses. gohook reports a
// physical press as KeyHold / MouseHold; KeyDown carries typed characters
// and MouseDown fires on release.
func pressFromEvent(ev hook.Event) (Press, bool) {
	switch ev.Kind {
	case hook.KeyHold:
		return Press{Keycode: ev.Keycode}, true
	case hook.MouseHold:
		return Press{Mouse: true, Button: ev.Button}, true
	default:
		return Press{}, false
	}
}
