package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// handleWebSocket upgrades a connection and attaches it to a session's
// broadcast set, following the accept/writePump/readLoop shape the
// reusable card-game framework example uses for its own hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	if _, ok := s.lookupSession(id); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && !s.originList[origin] {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	s.registerSocket(id, client)
	defer s.unregisterSocket(id, client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go client.writePump(ctx)

	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "client disconnected")
			return
		}
		// The wire protocol is broadcast-only from the server's side;
		// inbound frames are currently unused but read to keep the
		// connection's read deadline alive and to detect disconnects.
	}
}
