package gateway

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// handleWebsocket serves one token per text message and answers each with
// one status payload
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, http.Header{DeviceHeader: []string{s.opts.DeviceName}})
	if err != nil {
		s.logger.Debugw("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	id := uuid.NewString()
	s.addSession(id, ws)
	defer s.removeSession(id)

	logger := s.logger.With("session", id, "remote", r.RemoteAddr)
	logger.Infow("websocket session opened")

	buf := make([]byte, 0, 96)
	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warnw("websocket read failed", "error", err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		st, err := s.Dispatch(r.Context(), string(msg))
		if err != nil {
			logger.Warnw("backend failed", "command", string(msg), "error", err)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "backend unavailable"),
				time.Now().Add(time.Second))
			break
		}

		buf = st.AppendJSON(buf[:0])
		if err := ws.WriteMessage(websocket.TextMessage, buf); err != nil {
			logger.Warnw("websocket write failed", "error", err)
			break
		}
	}
	logger.Infow("websocket session closed")
}

func (s *Server) addSession(id string, ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = ws
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sessions returns the number of open websocket sessions
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ws := range s.sessions {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = ws.Close()
	}
}
