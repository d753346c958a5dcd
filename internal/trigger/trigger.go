// Package trigger builds the single event source that animates the cat.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/bingocat/internal/audio"
	"github.com/rbright/bingocat/internal/config"
	"github.com/rbright/bingocat/internal/input"
	"github.com/rbright/bingocat/internal/logging"
)

// ErrUnknownMode is returned by New for a trigger mode it cannot build.
var ErrUnknownMode = errors.New("unknown trigger mode")

// Source produces trigger events. fire may be called from any goroutine.
type Source interface {
	Mode() config.TriggerMode
	Start(ctx context.Context, fire func()) (*Subscription, error)
}

// BlockCapture is a running stream of sample blocks.
type BlockCapture interface {
	Blocks() <-chan []float32
	Stop() error
}

// PressListener is a running global input hook.
type PressListener interface {
	Start(ctx context.Context, onPress func(input.Press)) error
	Close() error
}

// Deps carries the OS-facing constructors. Nil fields use the real backends.
type Deps struct {
	Logger      *slog.Logger
	OpenCapture func(ctx context.Context, sink string) (BlockCapture, error)
	NewListener func() PressListener
}

// New returns the source selected by cfg.TriggerMode.
func New(cfg config.Config, deps Deps) (Source, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	switch cfg.TriggerMode {
	case config.TriggerInput:
		newListener := deps.NewListener
		if newListener == nil {
			newListener = func() PressListener { return input.NewListener() }
		}
		return &InputSource{logger: logger, newListener: newListener}, nil
	case config.TriggerSound:
		open := deps.OpenCapture
		if open == nil {
			open = loopbackOpener(logger)
		}
		return &SoundSource{
			logger:    logger,
			open:      open,
			sink:      cfg.SoundSink,
			threshold: cfg.SoundThreshold,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.TriggerMode)
	}
}

// Subscription is the release handle of a started source.
type Subscription struct {
	once    sync.Once
	release func() error
	err     error
}

// NewSubscription wraps release so it runs at most once.
func NewSubscription(release func() error) *Subscription {
	return &Subscription{release: release}
}

// Close releases the source. Only the first call does any work; nil and
// zero-value subscriptions are no-ops.
func (s *Subscription) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if s.release != nil {
			s.err = s.release()
		}
	})
	return s.err
}

func loopbackOpener(logger *slog.Logger) func(context.Context, string) (BlockCapture, error) {
	return func(ctx context.Context, sink string) (BlockCapture, error) {
		selection, err := audio.SelectDevice(ctx, sink)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			logger.Warn("sound sink fallback", "warning", selection.Warning)
		}
		capture, err := audio.StartLoopback(ctx, selection.Device)
		if err != nil {
			return nil, err
		}
		logger.Info("loopback capture started",
			"sink", selection.Device.ID,
			"monitor", selection.Device.Monitor,
			"fallback", selection.Fallback,
		)
		return capture, nil
	}
}
