package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SocketName is the control socket file inside XDG_RUNTIME_DIR.
const SocketName = "bingocat.sock"

// ErrAlreadyRunning reports a responsive overlay on the control socket.
var ErrAlreadyRunning = errors.New("bingocat already running")

// RuntimeSocketPath returns the per-user control socket path.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// Acquire makes this process the single running overlay by binding path.
//
// A socket file left by a crashed overlay is reclaimed. A socket whose owner
// answers a status request yields ErrAlreadyRunning, and one whose owner
// neither answers nor refuses is left in place.
func Acquire(ctx context.Context, path string, probeTimeout time.Duration, retries int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(25*attempt) * time.Millisecond):
			}
		}

		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if err := reclaim(ctx, path, probeTimeout); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("acquire control socket %s: still in use after %d attempts", path, retries+1)
}

// reclaim removes path when no overlay answers on it.
func reclaim(ctx context.Context, path string, probeTimeout time.Duration) error {
	alive, err := Probe(ctx, path, probeTimeout)
	if alive {
		return ErrAlreadyRunning
	}
	if err != nil {
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}

// Release closes listener and unlinks its socket file.
func Release(listener net.Listener, path string) error {
	var errs []error
	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove socket %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
