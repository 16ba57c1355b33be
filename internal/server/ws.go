package server

import (
	"net/http"
	"time"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
	"github.com/shivsaxena91/ChatServiceProtocol/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// WSConn is a WebSocket endpoint. Each text message carries exactly one
// PDU frame; the hub treats it no differently from a TCP connection.
type WSConn struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// closed is touched only from the hub goroutine.
	closed bool
}

func newWSConn(hub *Hub, conn *websocket.Conn) *WSConn {
	return &WSConn{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

func (c *WSConn) Push(frame []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		logger.Debug("Send buffer full for %s, dropping frame", c.conn.RemoteAddr())
	}
}

func (c *WSConn) Close() error {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *WSConn) ReadPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(protocol.MaxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket error: %v", err)
			}
			return
		}
		c.hub.Requests <- Inbound{From: c, Frame: message}
	}
}

func (c *WSConn) WritePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WSHandler upgrades HTTP requests to WebSocket endpoints feeding the
// hub.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	c := newWSConn(h.hub, conn)
	h.hub.Register <- c

	go c.WritePump()
	go c.ReadPump()
}
