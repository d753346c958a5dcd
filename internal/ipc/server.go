package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// connTimeout bounds one request/response exchange on the server side.
const connTimeout = 2 * time.Second

// Handler answers one validated control request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers control clients on listener until ctx is cancelled or the
// listener is closed. Requests with a missing or unknown command are refused
// without reaching handler.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	var req Request
	var resp Response
	switch err := readLine(bufio.NewReader(conn), "request", &req); {
	case err != nil:
		resp = Errorf("%v", err)
	case req.Command == "":
		resp = Errorf("missing command")
	case !req.Command.Valid():
		resp = Errorf("unknown command %q", req.Command)
	default:
		resp = handler.Handle(ctx, req)
	}
	_ = writeLine(conn, resp)
}
