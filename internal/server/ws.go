package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/sitechat/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "message"
	SessionID string `json:"session_id"` // empty for new sessions
	Namespace string `json:"namespace"`  // used when creating a session
	Content   string `json:"content"`
}

// chatFrame is the outgoing WebSocket message format. Each assistant
// response arrives as a series of "delta" frames followed by one "done"
// frame carrying the sources.
type chatFrame struct {
	Type      string          `json:"type"` // "delta", "done" or "error"
	SessionID string          `json:"session_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	Sources   []engine.Source `json:"sources,omitempty"`
	Model     string          `json:"model,omitempty"`
}

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "", "invalid message format")
			continue
		}

		if req.Content == "" {
			s.sendError(conn, req.SessionID, "content is required")
			continue
		}

		switch req.Type {
		case "message":
			s.handleChatMessage(conn, r, req)
		default:
			s.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleChatMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	ctx := r.Context()
	sessionID := req.SessionID

	// Create a new session if needed.
	if sessionID == "" {
		if req.Namespace == "" {
			s.sendError(conn, "", "namespace is required for new sessions")
			return
		}
		sess := s.engine.CreateSession(req.Namespace)
		sessionID = sess.ID
	}

	reply, err := s.engine.StreamMessage(ctx, sessionID, req.Content, func(delta string) {
		s.sendFrame(conn, chatFrame{Type: "delta", SessionID: sessionID, Content: delta})
	})
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			s.sendError(conn, sessionID, "session not found")
			return
		}
		s.sendError(conn, sessionID, "chat failed: "+err.Error())
		return
	}

	s.sendFrame(conn, chatFrame{
		Type:      "done",
		SessionID: sessionID,
		Sources:   reply.Sources,
		Model:     reply.Model,
	})
}

func (s *Server) sendFrame(conn *websocket.Conn, frame chatFrame) {
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, msg string) {
	s.sendFrame(conn, chatFrame{Type: "error", SessionID: sessionID, Content: msg})
}
