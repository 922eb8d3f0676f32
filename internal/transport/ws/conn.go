// Package ws adapts gorilla/websocket connections to the realtime core:
// one reader goroutine dispatching inbound events in order, one writer
// goroutine draining a buffered send channel.
package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mkoval/dealroom/internal/realtime"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// wsConn implements realtime.Conn. TrySend never blocks: a full send
// buffer is reported as backpressure and the core decides what to do
// with the slow consumer.
type wsConn struct {
	conn *websocket.Conn
	send chan realtime.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan realtime.Frame, buffer),
	}
}

func (c *wsConn) TrySend(f realtime.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
