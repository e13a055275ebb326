package mcptest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// maxLineBytes bounds a single request line. Matches the client side so
// bulk secret payloads survive the round trip.
const maxLineBytes = 10 * 1024 * 1024

// ServeStdio processes newline-delimited requests from in and writes
// responses to out until EOF, a read error, or ctx cancellation. Lines
// that fail to parse get a −32700 response with a null id, mirroring how
// a real server reports garbage input.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var writeMu sync.Mutex
	writeResponse := func(resp *protocol.Response) {
		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		writeMu.Lock()
		_, _ = out.Write(append(data, '\n'))
		writeMu.Unlock()
	}

	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr <- err
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil // EOF
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var req protocol.Request
			if err := json.Unmarshal(line, &req); err != nil {
				// The id is unknowable, so it is null per JSON-RPC 2.0.
				writeResponse(protocol.NewErrorResponse(json.RawMessage("null"), protocol.NewParseError(err.Error())))
				continue
			}

			if resp := s.Handle(ctx, &req); resp != nil {
				writeResponse(resp)
			}
		}
	}
}
