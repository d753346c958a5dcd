package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/ncruces/zenity"

	"github.com/rbright/bingocat/internal/audio"
	"github.com/rbright/bingocat/internal/cli"
	"github.com/rbright/bingocat/internal/config"
	"github.com/rbright/bingocat/internal/doctor"
	"github.com/rbright/bingocat/internal/ipc"
	"github.com/rbright/bingocat/internal/logging"
	"github.com/rbright/bingocat/internal/loudness"
	"github.com/rbright/bingocat/internal/overlay"
	"github.com/rbright/bingocat/internal/session"
	"github.com/rbright/bingocat/internal/sprite"
	"github.com/rbright/bingocat/internal/trigger"
	"github.com/rbright/bingocat/internal/uiloop"
	"github.com/rbright/bingocat/internal/version"
)

const binaryName = "bingocat"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Alert shows a fatal error on the desktop. Nil uses a zenity dialog.
	Alert func(title, message string) error

	triggerDeps trigger.Deps
	present     func(context.Context, overlay.Options) error
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	// Settings problems never stop the program; they only reach the log.
	loaded := config.Load(parsed.ConfigPath)
	for _, w := range loaded.Warnings {
		logger.Warn("settings warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"settings", loaded.Path,
		"settings_fallback", loaded.Fallback,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, loaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, loaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandTrigger:
		return r.forwardOrFail(ctx, ipc.CommandTrigger)
	case cli.CommandQuit:
		return r.forwardOrFail(ctx, ipc.CommandQuit)
	case cli.CommandCalibrate:
		return r.commandCalibrate(ctx, loaded.Config, parsed.Args[0])
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandRun owns the overlay for the lifetime of the process.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	imagesDir, err := config.ResolveImagesDir(cfg)
	if err != nil {
		return r.fatal(logger, "resolve images", err)
	}
	set, err := sprite.Resolve(imagesDir, cfg.ImageSet)
	if err != nil {
		return r.fatal(logger, "load images", err)
	}
	if set.Fallback {
		logger.Warn("image set missing; using default", "image_set", cfg.ImageSet, "dir", set.Dir)
	}

	var (
		listener   net.Listener
		socketPath string
	)
	if path, pathErr := ipc.RuntimeSocketPath(); pathErr != nil {
		logger.Warn("control socket disabled", "error", pathErr.Error())
	} else {
		listener, err = ipc.Acquire(ctx, path, 180*time.Millisecond, 8)
		if err != nil {
			if errors.Is(err, ipc.ErrAlreadyRunning) {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				logger.Warn("another instance owns the control socket", "socket", path)
				return 1
			}
			return r.fatal(logger, "acquire control socket", err)
		}
		socketPath = path
		defer func() { _ = ipc.Release(listener, socketPath) }()
	}

	deps := r.triggerDeps
	if deps.Logger == nil {
		deps.Logger = logger
	}
	source, err := trigger.New(cfg, deps)
	if err != nil {
		return r.fatal(logger, "configure trigger", err)
	}

	dispatcher := uiloop.New(uiloop.DefaultCapacity)
	controller := session.NewController(session.Options{
		Logger:     logger,
		Source:     source,
		Post:       dispatcher.Post,
		ResetDelay: cfg.ResetDelay(),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := controller.Start(runCtx); err != nil {
		_ = controller.Close()
		return r.fatal(logger, "start trigger", err)
	}

	serverErrCh := make(chan error, 1)
	if listener != nil {
		go func() {
			serverErrCh <- ipc.Serve(runCtx, listener, controller)
		}()
	} else {
		serverErrCh <- nil
	}

	present := r.present
	if present == nil {
		present = runOverlay
	}
	presentErr := present(runCtx, overlay.Options{
		Logger:  logger,
		Set:     set,
		Scale:   cfg.ScaleFactor,
		XOffset: cfg.XOffset,
		YOffset: cfg.YOffset,
		Drain:   dispatcher.Drain,
		Frame:   controller.Frame,
		Quit:    controller.Quit(),
	})

	cancel()
	closeErr := controller.Close()
	serverErr := <-serverErrCh

	logger.Info("overlay stopped",
		"ui_tasks_dropped", dispatcher.Dropped(),
		"triggers", controller.Stats().Applied,
	)

	if presentErr != nil {
		return r.fatal(logger, "overlay", presentErr)
	}
	if closeErr != nil {
		logger.Error("release trigger failed", "error", closeErr.Error())
	}
	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	return 0
}

func runOverlay(ctx context.Context, opts overlay.Options) error {
	o, err := overlay.New(opts)
	if err != nil {
		return err
	}
	return o.Run(ctx)
}

// fatal reports an unrecoverable run error on stderr, in the log, and in a
// desktop dialog.
func (r Runner) fatal(logger *slog.Logger, stage string, err error) int {
	message := fmt.Sprintf("%s: %v", stage, err)
	fmt.Fprintf(r.Stderr, "error: %s\n", message)
	logger.Error("run failed", "stage", stage, "error", err.Error())

	alert := r.Alert
	if alert == nil {
		alert = zenityAlert
	}
	if alertErr := alert(binaryName, message); alertErr != nil {
		logger.Warn("error dialog failed", "error", alertErr.Error())
	}
	return 1
}

func zenityAlert(title, message string) error {
	return zenity.Error(message, zenity.Title(title), zenity.ErrorIcon)
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio output devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | monitor=%s | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.Monitor,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

// commandCalibrate replays a recording through the loudness latch and prints
// where it would have fired.
func (r Runner) commandCalibrate(ctx context.Context, cfg config.Config, path string) int {
	recording, err := audio.OpenRecording(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = recording.Close() }()

	policy := loudness.NewPolicy(cfg.SoundThreshold)
	var (
		blocks   int
		triggers int
		peak     float64
	)
	err = recording.Blocks(ctx, audio.DefaultBlockDuration, func(block audio.Block) error {
		blocks++
		rms, ok := loudness.RMS(block.Samples)
		if !ok {
			return nil
		}
		peak = max(peak, rms)
		if policy.ObserveRMS(rms) {
			triggers++
			fmt.Fprintf(r.Stdout, "trigger at %8.3fs rms=%.4f\n", block.Offset.Seconds(), rms)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "%d trigger(s) in %s: blocks=%d peak_rms=%.4f threshold=%.4f\n",
		triggers,
		recording.Duration().Round(time.Millisecond),
		blocks,
		peak,
		policy.Threshold(),
	)
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintf(r.Stdout, "%s frame=%s triggers=%d\n", resp.State, resp.Frame, resp.Triggers)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command ipc.Command) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running bingocat overlay\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, command ipc.Command) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, command, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.Unreachable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
