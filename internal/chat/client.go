package chat

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ReadPump pumps inbound frames off the WebSocket connection, following the
// teacher's readPump/writePump split in
// services/chat-service/internal/handlers/websocket_handler.go. onMessage
// dispatches by message type (chat/typing/reaction); rate limiting rejects
// a frame instead of blocking the connection.
func (c *Client) ReadPump(logger *logrus.Logger, onMessage func(raw []byte)) {
	defer func() {
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithError(err).WithField("user_id", c.UserID).Warn("websocket read error")
			}
			return
		}

		if !c.Limiter.Allow() {
			continue // drop the frame rather than disconnect the client
		}

		onMessage(raw)
	}
}

// WritePump drains c.Send to the socket, batching any already-queued
// messages into a single WebSocket frame write, matching the teacher's
// batching behavior (up to the channel's buffered backlog per tick).
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Drain any further already-queued messages into the same frame,
			// up to the current channel backlog, mirroring the teacher's
			// write-pump batching.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
