package handlers

import (
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

type WSClient struct {
	Shop   string
	Conn   *websocket.Conn
	SendCh chan []byte
}

func NewWSClient(shop string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		Shop:   shop,
		Conn:   conn,
		SendCh: make(chan []byte, 32),
	}
}

// Send drops the payload when the client's buffer is full.
func (c *WSClient) Send(payload []byte) {
	select {
	case c.SendCh <- payload:
	default:
	}
}

// WritePump drains SendCh until it is closed or a write stalls.
func (c *WSClient) WritePump() {
	for msg := range c.SendCh {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
