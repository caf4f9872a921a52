// internal/handlers/server.go

// Package handlers exposes the viewer-facing HTTP surface: roster snapshots,
// a live delta stream over SSE or websocket, and command submission.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/owpug/pugmate/internal/lobby"
	"github.com/owpug/pugmate/internal/middleware"
)

// Server routes viewer traffic to the lobby store.
type Server struct {
	logger  *logrus.Logger
	lobbies *lobby.Store
}

func NewServer(logger *logrus.Logger, lobbies *lobby.Store) *Server {
	return &Server{logger: logger, lobbies: lobbies}
}

// Routes builds the full viewer mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{serverId}/{lobbyName}/{$}", s.handleSnapshot)
	mux.HandleFunc("GET /{serverId}/{lobbyName}/lobbyupdates", s.handleUpdates)
	mux.HandleFunc("POST /{serverId}/{lobbyName}/lobbyupdates", s.handleCommand)
	mux.HandleFunc("GET /{serverId}/{lobbyName}/ws", s.handleWS)
	return middleware.LogMiddleware(s.logger)(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// pathLobby resolves the lobby addressed by the request, or writes a 404.
func (s *Server) pathLobby(w http.ResponseWriter, r *http.Request) (*lobby.Lobby, bool) {
	key := lobby.Key{
		ServerID:  r.PathValue("serverId"),
		LobbyName: r.PathValue("lobbyName"),
	}
	l, ok := s.lobbies.Get(key)
	if !ok {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return nil, false
	}
	return l, true
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	l, ok := s.pathLobby(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"lobbyPlayers": l.Snapshot(),
	}); err != nil {
		s.logger.Warnf("failed to encode snapshot: %v", err)
	}
}

// handleUpdates streams roster deltas as server-sent events. The stream ends
// when the client disconnects or the subscriber falls too far behind and is
// evicted from the bus.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	l, ok := s.pathLobby(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the headers go out so a client that saw the 200
	// cannot miss a delta published right after.
	sub := l.Listen()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-sub:
			if !open {
				// Evicted: the viewer must reconnect and resnapshot.
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Warnf("failed to encode delta: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleCommand applies a single viewer command. Unrecognized commands are
// rejected with 501 and broadcast nothing.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	l, ok := s.pathLobby(w, r)
	if !ok {
		return
	}
	var msg lobby.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !l.ProcessMessage(r.Context(), msg) {
		http.Error(w, fmt.Sprintf("unrecognized command %q", msg.Event), http.StatusNotImplemented)
		return
	}
	w.WriteHeader(http.StatusOK)
}
