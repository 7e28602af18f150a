package handlers

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var errClientClosed = errors.New("client connection closed")

// wsClient adapts a gorilla WebSocket connection to the services.Conn
// interface. Send only enqueues; the write pump goroutine owns the socket
// for writes, so a slow client backs up its own buffer and nothing else.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues data for delivery. Fails fast when the client is closed or
// its buffer is full rather than blocking the broadcaster.
func (c *wsClient) Send(data []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errors.New("send buffer full")
	}
}

// Close shuts the write pump down and closes the socket; safe to call twice
func (c *wsClient) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
