package chat

import (
	"beautyhub-backend/utils"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64

	// inbound frames per socket: sustained rate and burst
	inboundRate  = rate.Limit(5)
	inboundBurst = 20
)

// Client is one connected socket.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	roomID    uuid.UUID
	principal utils.Principal
	inbound   *rate.Limiter
}

func newClient(conn *websocket.Conn, roomID uuid.UUID, p utils.Principal) *Client {
	return &Client{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		roomID:    roomID,
		principal: p,
		inbound:   rate.NewLimiter(inboundRate, inboundBurst),
	}
}

// writePump drains the send queue to the socket. It owns all data writes and
// closes the connection when the queue is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// closeWith sends a close frame with code and reason.
func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
