package mcptest

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// WebSocketHandler returns an http.Handler that upgrades connections and
// serves the MCP protocol over them. One message per request, responses
// written as text frames; notifications get no reply.
func (s *Server) WebSocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var writeMu sync.Mutex
		writeJSON := func(v any) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return conn.WriteJSON(v)
		}

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var req protocol.Request
			if err := json.Unmarshal(message, &req); err != nil {
				// The id is unknowable, so it is null per JSON-RPC 2.0.
				_ = writeJSON(protocol.NewErrorResponse(json.RawMessage("null"), protocol.NewParseError(err.Error())))
				continue
			}

			if resp := s.Handle(r.Context(), &req); resp != nil {
				_ = writeJSON(resp)
			}
		}
	})
}
