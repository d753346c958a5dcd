package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// Send delivers command to the overlay listening on path and returns its
// reply. The whole exchange, dial included, is bounded by timeout.
func Send(ctx context.Context, path string, command Command, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Response{}, fmt.Errorf("set deadline: %w", err)
		}
	}

	if err := writeLine(conn, Request{Command: command}); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	var resp Response
	if err := readLine(bufio.NewReader(conn), "response", &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Probe reports whether a responsive overlay owns path. A missing socket or
// one nobody listens on is not an error.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, CommandStatus, timeout)
	switch {
	case err == nil:
		return true, nil
	case Unreachable(err):
		return false, nil
	default:
		return false, fmt.Errorf("probe socket: %w", err)
	}
}

// Unreachable reports dial failures meaning no overlay is running: the socket
// file is absent or nothing accepts on it.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
