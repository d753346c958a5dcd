// Package doctor runs readiness diagnostics for settings, images, display, and trigger source.
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rbright/bingocat/internal/audio"
	"github.com/rbright/bingocat/internal/config"
	"github.com/rbright/bingocat/internal/ipc"
	"github.com/rbright/bingocat/internal/sprite"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

var selectDevice = audio.SelectDevice

// Run executes settings/environment/runtime checks for loaded settings.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkSettings(loaded), checkImages(cfg), checkDisplay()}

	switch cfg.TriggerMode {
	case config.TriggerSound:
		checks = append(checks, checkSoundSink(ctx, cfg))
	case config.TriggerInput:
		checks = append(checks, checkEnv("DISPLAY", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "X11 display available for the global input hook", "input mode needs an X11 display (DISPLAY is empty)"))
	}

	checks = append(checks, checkControlSocket())
	return Report{Checks: checks}
}

func checkSettings(loaded config.Loaded) Check {
	switch {
	case loaded.Fallback:
		message := "rejected; defaults in effect"
		if len(loaded.Warnings) > 0 {
			message = loaded.Warnings[0].Message
		}
		return Check{Name: "settings", Pass: false, Message: message}
	case !loaded.Exists:
		return Check{Name: "settings", Pass: true, Message: fmt.Sprintf("no file at %q; using defaults", loaded.Path)}
	case len(loaded.Warnings) > 0:
		return Check{Name: "settings", Pass: true, Message: fmt.Sprintf("loaded %q with %d warning(s)", loaded.Path, len(loaded.Warnings))}
	default:
		return Check{Name: "settings", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
	}
}

// checkImages resolves the image set exactly as run does.
func checkImages(cfg config.Config) Check {
	root, err := config.ResolveImagesDir(cfg)
	if err != nil {
		return Check{Name: "images", Pass: false, Message: err.Error()}
	}
	set, err := sprite.Resolve(root, cfg.ImageSet)
	if err != nil {
		return Check{Name: "images", Pass: false, Message: err.Error()}
	}
	if set.Fallback {
		return Check{Name: "images", Pass: true, Message: fmt.Sprintf("image set %q missing; using %q at %s", cfg.ImageSet, set.Name, set.Dir)}
	}
	return Check{Name: "images", Pass: true, Message: fmt.Sprintf("image set %q at %s", set.Name, set.Dir)}
}

func checkDisplay() Check {
	for _, name := range []string{"WAYLAND_DISPLAY", "DISPLAY"} {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return Check{Name: "display", Pass: true, Message: fmt.Sprintf("%s=%s", name, value)}
		}
	}
	return Check{Name: "display", Pass: false, Message: "neither WAYLAND_DISPLAY nor DISPLAY is set"}
}

// checkSoundSink runs live sink selection to surface selection/fallback issues.
func checkSoundSink(ctx context.Context, cfg config.Config) Check {
	selection, err := selectDevice(ctx, cfg.SoundSink)
	if err != nil {
		return Check{Name: "audio.sink", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("loopback from %q via %q", selection.Device.ID, selection.Device.Monitor)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.sink", Pass: true, Message: message}
}

func checkControlSocket() Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "control.socket", Pass: false, Message: err.Error() + "; status/trigger/quit unavailable"}
	}
	return Check{Name: "control.socket", Pass: true, Message: path}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}
