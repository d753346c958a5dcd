// Package config resolves, parses, validates, and defaults bingocat settings.
package config

import (
	"strings"
	"time"
)

// TriggerMode selects which source animates the cat.
type TriggerMode string

const (
	TriggerInput TriggerMode = "input"
	TriggerSound TriggerMode = "sound"
)

// Config is the fully materialized runtime configuration. It is immutable
// after Load for the lifetime of one run.
type Config struct {
	XOffset     int
	YOffset     int
	TriggerMode TriggerMode
	ImageSet    string
	ScaleFactor float64

	// ImagesDir is the root holding one folder per image set. Empty selects
	// the XDG data directory.
	ImagesDir      string
	ResetDelayMS   int
	SoundThreshold float64
	SoundSink      string
}

// ResetDelay returns the animation reset countdown.
func (c Config) ResetDelay() time.Duration {
	return time.Duration(c.ResetDelayMS) * time.Millisecond
}

// ParseTriggerMode normalizes a persisted trigger mode string.
func ParseTriggerMode(raw string) TriggerMode {
	return TriggerMode(strings.ToLower(strings.TrimSpace(raw)))
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
