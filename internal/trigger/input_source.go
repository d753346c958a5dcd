package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbright/bingocat/internal/config"
	"github.com/rbright/bingocat/internal/input"
)

// InputSource fires on every global key or mouse-button press.
type InputSource struct {
	logger      *slog.Logger
	newListener func() PressListener
}

func (s *InputSource) Mode() config.TriggerMode { return config.TriggerInput }

func (s *InputSource) Start(ctx context.Context, fire func()) (*Subscription, error) {
	listener := s.newListener()
	if err := listener.Start(ctx, func(input.Press) { fire() }); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("start input hook: %w", err)
	}
	s.logger.Info("input hook started")

	return NewSubscription(func() error {
		err := listener.Close()
		s.logger.Info("input hook stopped")
		return err
	}), nil
}
