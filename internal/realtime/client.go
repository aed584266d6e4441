package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
)

// Client is one realtime connection. Outbound events are queued on the send
// channel so audience resolution never blocks on the transport; the write
// pump drains the queue onto the socket.
type Client struct {
	conn *websocket.Conn
	send chan Outbound

	// userID is owned by the Registry and mutated only under its lock.
	userID uint
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn, send: make(chan Outbound, sendBufferSize)}
}

// deliver queues an event for this connection. Delivery is best-effort: a
// full queue drops the event rather than blocking the caller.
func (c *Client) deliver(event Outbound) {
	select {
	case c.send <- event:
	default:
	}
}

// ReadPump consumes inbound frames and hands them to the hub until the
// connection closes, then deregisters the connection. Runs as the
// connection's goroutine, so events on one connection are handled in order.
func (c *Client) ReadPump(hub *Hub) {
	defer func() {
		hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				hub.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		var envelope Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			hub.logger.Warn("malformed realtime frame", zap.Error(err))
			continue
		}
		hub.HandleEvent(c, envelope)
	}
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
