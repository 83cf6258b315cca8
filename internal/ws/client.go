package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	// Submit frames carry a base64 image, so the read limit is generous.
	maxFrameSize = 8 << 20
)

// InboundHandler routes tablet→server frames (submit, progress, test ack).
type InboundHandler interface {
	HandleInbound(c *Client, msg *Message)
}

// Client is one live tablet connection.
type Client struct {
	TabletID  string
	CompanyID string

	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(tabletID, companyID string, conn *websocket.Conn) *Client {
	return &Client{
		TabletID:  tabletID,
		CompanyID: companyID,
		conn:      conn,
		send:      make(chan []byte, 64),
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// trySend enqueues one frame without blocking. False when the client is
// closed or its buffer is full.
func (c *Client) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ReadPump reads frames until the connection dies, routing each one to the
// inbound handler. It unregisters the client on exit and reports whether the
// hub removed it; false means a newer connection already superseded this one.
func (c *Client) ReadPump(hub *Hub, handler InboundHandler) (removed bool) {
	defer func() {
		removed = hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] tablet %s read error: %v", c.TabletID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.SendError("invalid message format")
			continue
		}
		handler.HandleInbound(c, &msg)
	}
	return
}

// WritePump drains the send channel and keeps the connection alive with
// pings. It owns all writes to the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// SendError reports a protocol error back to the tablet, best effort.
func (c *Client) SendError(reason string) {
	data, _ := json.Marshal(map[string]string{"message": reason})
	frame, err := json.Marshal(Message{Type: MsgError, Data: data, Timestamp: time.Now().Unix()})
	if err != nil {
		return
	}
	c.trySend(frame)
}
