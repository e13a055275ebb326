package mcptest

import (
	"context"
	"io"

	"github.com/dopplerkit/dopplermcp/client"
)

// NewPipeTransport connects a client transport to srv over in-process
// pipes, so a Session can exercise the full wire path (framing, id
// correlation, envelope decoding) without spawning a subprocess. Closing
// the returned transport shuts the serve loop down via EOF.
func NewPipeTransport(srv *Server) *client.StreamTransport {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	go func() {
		_ = srv.ServeStdio(context.Background(), reqR, respW)
		// EOF on the request pipe ends the loop; closing the response
		// pipe propagates the shutdown to the client's reader.
		_ = respW.Close()
	}()

	return client.NewStreamTransport(respR, reqW)
}
