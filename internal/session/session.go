// Package session wires the trigger source, the UI task queue, and the
// animation machine for one overlay run.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/bingocat/internal/animation"
	"github.com/rbright/bingocat/internal/fsm"
	"github.com/rbright/bingocat/internal/ipc"
	"github.com/rbright/bingocat/internal/logging"
	"github.com/rbright/bingocat/internal/trigger"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session closed")

// Options configures a Controller.
type Options struct {
	Logger *slog.Logger
	Source trigger.Source
	// Post hands a task to the UI loop without blocking.
	Post       func(func()) bool
	ResetDelay time.Duration
	Choose     animation.Chooser
	// Scheduler overrides the posting scheduler, mostly for tests.
	Scheduler animation.Scheduler
}

// Controller owns the single trigger subscription and the animation machine.
//
// Start, Handle, and Quit are safe from any goroutine. The machine itself only
// runs inside tasks delivered through Post.
type Controller struct {
	logger  *slog.Logger
	source  trigger.Source
	post    func(func()) bool
	machine *animation.Machine

	mu      sync.Mutex
	sub     *trigger.Subscription
	started bool
	closed  bool

	frame    atomic.Int32
	fired    atomic.Int64
	applied  atomic.Int64
	rejected atomic.Int64

	quit     chan struct{}
	quitOnce sync.Once
}

// NewController builds a controller showing the idle frame.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	c := &Controller{
		logger: logger,
		source: opts.Source,
		post:   opts.Post,
		quit:   make(chan struct{}),
	}

	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = animation.PostingScheduler{Post: opts.Post}
	}
	c.machine = animation.New(animation.Options{
		ResetDelay: opts.ResetDelay,
		Scheduler:  scheduler,
		Choose:     opts.Choose,
		OnChange:   func(f animation.Frame) { c.frame.Store(int32(f)) },
	})
	return c
}

// Start subscribes the source. Every event it fires posts one Trigger to the
// UI loop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.started {
		return errors.New("session already started")
	}
	if c.source == nil {
		return errors.New("session has no trigger source")
	}

	sub, err := c.source.Start(ctx, func() { c.Fire() })
	if err != nil {
		return fmt.Errorf("start %s trigger: %w", c.source.Mode(), err)
	}
	c.sub = sub
	c.started = true
	c.logger.Info("trigger source started", "mode", c.source.Mode())
	return nil
}

// Fire posts one trigger to the UI loop. It reports false when the queue
// rejected it.
func (c *Controller) Fire() bool {
	c.fired.Add(1)
	if c.post == nil || !c.post(c.applyTrigger) {
		c.rejected.Add(1)
		return false
	}
	return true
}

func (c *Controller) applyTrigger() {
	c.machine.Trigger()
	c.applied.Add(1)
}

// Frame returns the last frame published by the machine.
func (c *Controller) Frame() animation.Frame {
	return animation.Frame(c.frame.Load())
}

// State maps the current frame to its machine state.
func (c *Controller) State() fsm.State {
	if c.Frame() == animation.Idle {
		return fsm.StateIdle
	}
	return fsm.StateActive
}

// Stats is a counter snapshot for logs and status replies.
type Stats struct {
	Fired    int64
	Applied  int64
	Rejected int64
}

func (c *Controller) Stats() Stats {
	return Stats{Fired: c.fired.Load(), Applied: c.applied.Load(), Rejected: c.rejected.Load()}
}

// Quit returns a channel closed once a quit is requested.
func (c *Controller) Quit() <-chan struct{} {
	return c.quit
}

// RequestQuit closes the Quit channel. Extra calls are no-ops.
func (c *Controller) RequestQuit() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Handle serves control commands.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.status("status")
	case ipc.CommandTrigger:
		if !c.Fire() {
			resp := c.status("")
			resp.OK = false
			resp.Error = "ui queue full"
			return resp
		}
		return c.status("trigger queued")
	case ipc.CommandQuit:
		c.RequestQuit()
		return c.status("quit requested")
	default:
		resp := ipc.Errorf("unknown command: %s", req.Command)
		resp.State = string(c.State())
		return resp
	}
}

func (c *Controller) status(message string) ipc.Response {
	return ipc.Response{
		OK:       true,
		State:    string(c.State()),
		Frame:    c.Frame().String(),
		Triggers: c.applied.Load(),
		Message:  message,
	}
}

// Close releases the subscription exactly once and cancels the pending reset.
// Call it after the UI loop has stopped draining.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	err := sub.Close()
	c.machine.Stop()
	c.RequestQuit()

	stats := c.Stats()
	c.logger.Info("session closed",
		"fired", stats.Fired,
		"applied", stats.Applied,
		"rejected", stats.Rejected,
	)
	if err != nil {
		return fmt.Errorf("release trigger source: %w", err)
	}
	return nil
}
