package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/diogoviieira/register-track-bot/internal/log"
)

const sendBufferSize = 16

// connection is one WebSocket client. Messages are handled in the order they
// are read, so replies on a connection keep the order of the messages.
type connection struct {
	id   string
	ws   *websocket.Conn
	send chan ServerMessage
	done chan struct{}
	// owner is bound by the ?owner= query parameter or the first message
	// that names one. Only the read pump touches it.
	owner string

	closeOnce sync.Once
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.ws.Close()
	})
}

// bind ties the connection to the frame's owner on first use and fills an
// omitted owner afterwards. A frame for a different owner is refused.
func (c *connection) bind(msg *ClientMessage) (ServerMessage, bool) {
	msg.Owner = strings.TrimSpace(msg.Owner)
	switch {
	case msg.Owner == "":
		msg.Owner = c.owner
	case c.owner == "":
		c.owner = msg.Owner
	case msg.Owner != c.owner:
		return errorMessage(msg.Owner, ErrorCodeOwnerMismatch, "this connection belongs to another owner"), false
	}
	return ServerMessage{}, true
}

// enqueue hands msg to the write pump unless the connection is closing.
func (c *connection) enqueue(msg ServerMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		s.log.Warn("WebSocket upgrade failed", log.FieldError, err)
		return nil
	}

	conn := &connection{
		id:   uuid.NewString(),
		ws:   ws,
		send:  make(chan ServerMessage, sendBufferSize),
		done:  make(chan struct{}),
		owner: strings.TrimSpace(c.QueryParam("owner")),
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	s.mu.Lock()
	s.conns[conn.id] = conn
	s.mu.Unlock()
	s.log.Info("Chat connection opened", log.FieldConnID, conn.id, log.FieldClientIP, c.RealIP(), log.FieldOwner, conn.owner)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

func (s *Server) readPump(conn *connection) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn.id)
		s.mu.Unlock()
		conn.close()
		s.log.Info("Chat connection closed", log.FieldConnID, conn.id)
	}()

	conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Chat connection error", log.FieldConnID, conn.id, log.FieldError, err)
			}
			return
		}

		var msg ClientMessage
		var out ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			out = errorMessage("", ErrorCodeInvalidMessage, "invalid JSON message")
		} else if refused, ok := conn.bind(&msg); !ok {
			s.log.Warn("Chat frame for another owner", log.FieldConnID, conn.id, log.FieldOwner, msg.Owner)
			out = refused
		} else {
			ctx := log.IntoContext(context.Background(), s.log.With(log.FieldConnID, conn.id))
			out = s.process(ctx, msg)
		}
		if !conn.enqueue(out) {
			return
		}
	}
}

func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.close()
	}()

	for {
		select {
		case msg := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.ws.WriteJSON(msg); err != nil {
				s.log.Warn("Failed to write chat message", log.FieldConnID, conn.id, log.FieldError, err)
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.done:
			return
		}
	}
}
