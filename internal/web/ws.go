package web

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOriginOrNoOrigin,
}

// sameOriginOrNoOrigin accepts browser connections only from the host
// serving the page. Non-browser clients send no Origin header and are
// allowed through.
func sameOriginOrNoOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type wsMessage struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type wsReply struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// handleWebSocket runs a chat session over one connection. Each inbound
// message is processed to completion before the next is read, matching
// the one-turn-at-a-time model.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("websocket read: %v", err)
			}
			return
		}
		if strings.TrimSpace(msg.Message) == "" {
			continue
		}
		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}

		response := s.agent.HandleMessage(c.Request.Context(), sessionID, msg.Message)
		if err := conn.WriteJSON(wsReply{SessionID: sessionID, Response: response}); err != nil {
			log.Printf("websocket write: %v", err)
			return
		}
	}
}
