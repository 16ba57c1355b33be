package server

import (
	"io"
	"net"
	"time"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
	"github.com/shivsaxena91/ChatServiceProtocol/pkg/logger"
)

// Conn is a TCP endpoint carrying newline-delimited PDU frames.
type Conn struct {
	hub  *Hub
	conn net.Conn
	send chan []byte

	// closed is touched only from the hub goroutine.
	closed bool

	writeTimeout time.Duration
}

func newConn(hub *Hub, netConn net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		hub:          hub,
		conn:         netConn,
		send:         make(chan []byte, 256),
		writeTimeout: writeTimeout,
	}
}

// Push queues a frame for delivery. Frames to a peer that cannot keep up
// are dropped rather than blocking the hub.
func (c *Conn) Push(frame []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		logger.Debug("Send buffer full for %s, dropping frame", c.conn.RemoteAddr())
	}
}

// Close stops deliveries. The writer drains what is already queued and
// then closes the socket, which also unblocks the reader.
func (c *Conn) Close() error {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ReadPump forwards raw frames into the hub until the peer goes away.
func (c *Conn) ReadPump() {
	defer c.hub.unregister(c)

	frames := protocol.NewFrameScanner(c.conn)
	for {
		frame, err := frames.Next()
		if err != nil {
			if err != io.EOF {
				logger.Debug("Read error from %s: %v", c.conn.RemoteAddr(), err)
			}
			return
		}
		buf := make([]byte, len(frame))
		copy(buf, frame)
		c.hub.Requests <- Inbound{From: c, Frame: buf}
	}
}

// WritePump drains the send queue onto the socket.
func (c *Conn) WritePump() {
	defer c.conn.Close()

	for frame := range c.send {
		if c.writeTimeout > 0 {
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}
		if _, err := c.conn.Write(frame); err != nil {
			logger.Debug("Write error to %s: %v", c.conn.RemoteAddr(), err)
			return
		}
	}
}
