// Package ws exposes the relay protocol over websocket: each websocket
// message carries one frame body, the websocket layer supplies the framing.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/protocol"
)

var errBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// wsConn adapts a websocket connection to the core sink interface.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return protocol.ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errBackpressure
	}
}

// Close stops the queue, waits for the pump to flush queued messages,
// then closes the socket. Must not be called before writePump is running.
func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	<-c.done
	_ = c.conn.Close()
}

func (c *wsConn) writePump() {
	defer close(c.done)
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
			return
		}
	}
}
