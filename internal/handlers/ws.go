// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/owpug/pugmate/internal/lobby"
	"github.com/owpug/pugmate/internal/middleware"
)

// handleWS upgrades a viewer connection, replays the current roster as a
// lobby-state frame, then streams deltas. Incoming frames are treated as
// commands, same as POSTed ones.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	l, ok := s.pathLobby(w, r)
	if !ok {
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")
	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	state := lobby.Message{
		Event: "lobby-state",
		Data:  map[string]interface{}{"lobbyPlayers": l.Snapshot()},
	}
	if err := writeJSON(ctx, c, state); err != nil {
		s.logger.Warnf("failed to send lobby state: %v", err)
		return
	}

	go s.wsWritePump(ctx, cancel, c, l.Listen())
	err = s.wsReadPump(ctx, c, l)

	middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, err)
	c.Close(websocket.StatusNormalClosure, "")
}

// wsReadPump blocks reading command frames until the connection drops.
func (s *Server) wsReadPump(ctx context.Context, c *websocket.Conn, l *lobby.Lobby) error {
	for {
		typ, raw, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg lobby.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warnf("invalid json on lobby websocket: %v", err)
			continue
		}
		if !l.ProcessMessage(ctx, msg) {
			s.logger.Warnf("rejected websocket command %q", msg.Event)
		}
	}
}

// wsWritePump forwards deltas and pings until the subscription or the
// connection ends. Subscriber eviction closes the channel; the viewer is
// expected to reconnect and resnapshot.
func (s *Server) wsWritePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, sub <-chan lobby.Message) {
	defer cancel()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-sub:
			if !open {
				return
			}
			if err := writeJSON(ctx, c, msg); err != nil {
				s.logger.Warnf("failed to write delta: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, c *websocket.Conn, msg lobby.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}
