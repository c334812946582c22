package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"dragon-treasure/internal/models"
	"dragon-treasure/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	sessions *services.SessionManager
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewWebSocketHandler(sessions *services.SessionManager) *WebSocketHandler {
	return &WebSocketHandler{sessions: sessions}
}

// client is one websocket connection following a session's activity log.
// All writes go through send so only writePump touches the connection.
type client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan Message
	done      chan struct{}
}

// HandleWebSocket streams the session's activity log as CONSOLE_UPDATE
// messages. Clients may send PING, GET_CONSOLE and CLEAR_CONSOLE.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	gs, ok := currentSession(c, h.sessions)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade to WebSocket")
		return
	}

	cl := &client{
		sessionID: gs.ID(),
		conn:      conn,
		send:      make(chan Message, wsSendBuffer),
		done:      make(chan struct{}),
	}
	log.WithField("session_id", cl.sessionID).Info("Console client connected")

	go cl.writePump()

	unsubscribe := gs.Activity().Follow(cl.pushConsole)

	defer func() {
		unsubscribe()
		close(cl.done)
		conn.Close()
		log.WithField("session_id", cl.sessionID).Info("Console client disconnected")
	}()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("session_id", cl.sessionID).Warn("WebSocket error")
			}
			return
		}

		h.handleMessage(cl, gs, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(cl *client, gs *services.GameSession, msg *Message) {
	switch msg.Type {
	case "PING":
		cl.push(Message{
			Type: "PONG",
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	case "GET_CONSOLE":
		gs.Activity().Replay(cl.pushConsole)
	case "CLEAR_CONSOLE":
		// subscribers, this client included, get the empty snapshot
		gs.Activity().Clear()
	}
}

func (cl *client) pushConsole(entries []models.ConsoleEntry) {
	cl.push(Message{Type: "CONSOLE_UPDATE", Data: gin.H{"entries": entries}})
}

// push never blocks the activity log. When the buffer is full the oldest
// queued message is dropped; every CONSOLE_UPDATE is a full snapshot.
func (cl *client) push(msg Message) {
	for {
		select {
		case <-cl.done:
			return
		case cl.send <- msg:
			return
		default:
		}
		select {
		case <-cl.send:
		default:
		}
	}
}

func (cl *client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case msg := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteJSON(msg); err != nil {
				cl.conn.Close()
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.conn.Close()
				return
			}
		}
	}
}
