// Package stdio implements the newline-delimited JSON-RPC transport over
// standard streams. Logging convention (stderr-only, stdout reserved for
// protocol frames) grounded on cmd/brum/main.go's hub-mode stdio path,
// which writes its own errors via fmt.Fprintf(os.Stderr, ...) before
// os.Exit(1).
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/standardbeagle/mcpcore/internal/dispatch"
	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/internal/transport"
	"github.com/standardbeagle/mcpcore/pkg/log"
)

// Transport is the stdio JSON-RPC transport: one message per line in, one
// message per line out.
type Transport struct {
	*transport.Base
	processor *dispatch.Processor
	in        io.Reader
	out       io.Writer
}

// New constructs a stdio Transport reading in and writing out.
func New(processor *dispatch.Processor, in io.Reader, out io.Writer) *Transport {
	return &Transport{
		Base:      transport.NewBase(),
		processor: processor,
		in:        in,
		out:       out,
	}
}

// Run reads one JSON-RPC message per line until end-of-stream or ctx is
// cancelled. Blank lines are ignored. Shutdown is cooperative: once
// BeginShutdown is called, new lines are answered with a -32000 error
// rather than dispatched.
func (t *Transport) Run(ctx context.Context) error {
	logger := log.WithTransport("stdio")
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	writer := bufio.NewWriter(t.out)
	defer writer.Flush()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if t.ShuttingDown() {
			t.write(writer, shutdownError(line))
			continue
		}

		done := t.BeginRequest()
		reply := t.processor.Process(ctx, append([]byte(nil), line...))
		done()

		if reply == nil {
			continue
		}
		t.write(writer, reply)
	}

	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Msg("stdio read error")
		return err
	}
	return nil
}

// Shutdown enters shuttingDown mode and waits up to timeout (polling at
// pollInterval) for in-flight requests to drain. Returns true on clean
// drain, false on timeout.
func (t *Transport) Shutdown(timeout, pollInterval time.Duration) bool {
	t.BeginShutdown()
	return t.WaitForDrain(timeout, pollInterval)
}

func (t *Transport) write(w *bufio.Writer, reply []byte) {
	w.Write(reply)
	w.WriteByte('\n')
	w.Flush()
}

func shutdownError(raw []byte) []byte {
	var req protocol.Request
	_ = json.Unmarshal(raw, &req)
	resp := protocol.NewErrorResponse(req.ID, protocol.NewError(protocol.CodeServerError, "Server is shutting down"))
	b, _ := json.Marshal(resp)
	return b
}
