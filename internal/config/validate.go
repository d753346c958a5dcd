package config

import (
	"fmt"
	"math"
	"strings"
)

// Validate enforces settings invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.TriggerMode {
	case TriggerInput, TriggerSound:
	default:
		return nil, fmt.Errorf("triggerMode must be one of: input, sound (got %q)", cfg.TriggerMode)
	}

	imageSet := strings.TrimSpace(cfg.ImageSet)
	if imageSet == "" {
		return nil, fmt.Errorf("imageSet must not be empty")
	}
	if strings.ContainsAny(imageSet, `/\`) || imageSet == "." || imageSet == ".." {
		return nil, fmt.Errorf("imageSet must be a folder name, not a path (got %q)", cfg.ImageSet)
	}

	if cfg.ScaleFactor <= 0 || math.IsNaN(cfg.ScaleFactor) || math.IsInf(cfg.ScaleFactor, 0) {
		return nil, fmt.Errorf("scaleFactor must be > 0")
	}
	if cfg.ScaleFactor > 8 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("scaleFactor %.2f is unusually large", cfg.ScaleFactor)})
	}

	if cfg.ResetDelayMS <= 0 {
		return nil, fmt.Errorf("resetDelayMs must be > 0")
	}

	if cfg.SoundThreshold < 0 || math.IsNaN(cfg.SoundThreshold) {
		return nil, fmt.Errorf("soundThreshold must be >= 0")
	}
	if cfg.SoundThreshold >= 1 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("soundThreshold %.3f is at or above full scale; sound mode will never trigger", cfg.SoundThreshold)})
	}

	if cfg.TriggerMode == TriggerSound && strings.TrimSpace(cfg.SoundSink) == "" {
		return nil, fmt.Errorf("soundSink must not be empty when triggerMode=sound")
	}

	return warnings, nil
}
