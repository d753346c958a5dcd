package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbright/bingocat/internal/config"
	"github.com/rbright/bingocat/internal/loudness"
)

// SoundSource fires when loopback loudness crosses the threshold.
type SoundSource struct {
	logger    *slog.Logger
	open      func(context.Context, string) (BlockCapture, error)
	sink      string
	threshold float64
}

func (s *SoundSource) Mode() config.TriggerMode { return config.TriggerSound }

// Start opens the capture and runs the loudness latch on a dedicated
// consumer goroutine, which is the only owner of the latch.
func (s *SoundSource) Start(ctx context.Context, fire func()) (*Subscription, error) {
	capture, err := s.open(ctx, s.sink)
	if err != nil {
		return nil, fmt.Errorf("start loopback capture: %w", err)
	}

	policy := loudness.NewPolicy(s.threshold)
	done := make(chan struct{})
	var fired int

	go func() {
		defer close(done)
		for block := range capture.Blocks() {
			if policy.Observe(block) {
				fired++
				fire()
			}
		}
	}()

	return NewSubscription(func() error {
		err := capture.Stop()
		<-done
		s.logger.Info("loopback capture stopped", "triggers", fired)
		return err
	}), nil
}
