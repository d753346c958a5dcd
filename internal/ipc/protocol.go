// Package ipc is the control channel of a running overlay: one JSON request
// line in, one JSON response line out, over a unix socket.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Command names a control action.
type Command string

const (
	CommandStatus  Command = "status"
	CommandTrigger Command = "trigger"
	CommandQuit    Command = "quit"
)

// Valid reports whether a running overlay understands c.
func (c Command) Valid() bool {
	switch c {
	case CommandStatus, CommandTrigger, CommandQuit:
		return true
	default:
		return false
	}
}

// Request is one newline-terminated JSON command.
type Request struct {
	Command Command `json:"command"`
}

// Response is the single JSON line written back for a Request.
type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Frame    string `json:"frame,omitempty"`
	Triggers int64  `json:"triggers,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Errorf builds a failed response.
func Errorf(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}

// writeLine encodes v as one JSON line.
func writeLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// readLine decodes one JSON line into v; kind names the value in errors.
func readLine(r *bufio.Reader, kind string, v any) error {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read %s: %w", kind, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}
