package websocket

import (
	"fmt"
	"time"

	"monobase/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers fit comfortably.
	maxMessageSize = 64 * 1024

	maxContentLength = 32 * 1024

	// Buffer size for client send channel
	sendBufferSize = 64
)

var newline = []byte{'\n'}

// Client is one participant's subscription to a call room.
type Client struct {
	Conn *websocket.Conn
	Hub  *Hub

	// Buffered channel of outbound messages
	Send chan []byte

	UserID      string
	RoomID      string
	ConnectedAt time.Time
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, userID, roomID string) *Client {
	return &Client{
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		RoomID:      roomID,
		ConnectedAt: time.Now(),
	}
}

// Serve registers the client and runs its pumps until the connection closes.
func (c *Client) Serve() {
	c.Hub.register(c)
	go c.WritePump()
	c.ReadPump()
}

// ReadPump relays signaling messages from the connection to the other
// participants of the call.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(logrus.Fields{
					"user_id": c.UserID,
					"call_id": c.RoomID,
					"error":   err.Error(),
				}).Error("WebSocket read error")
			}
			return
		}

		msg, err := FromJSON(data)
		if err != nil {
			c.sendError(fmt.Sprintf("Invalid message format: %v", err))
			continue
		}
		if err := msg.Validate(); err != nil {
			c.sendError(fmt.Sprintf("Message validation failed: %v", err))
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg *WSMessage) {
	msg.From = c.UserID
	msg.RoomID = c.RoomID

	if msg.Type == MessageTypeHeartbeat {
		c.Hub.sendTo(c, NewWSMessage(MessageTypeHeartbeat, "pong", nil))
		return
	}
	c.Hub.BroadcastToRoomExcept(c.RoomID, c.UserID, msg)
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current message
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
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

// SendMessage queues a message without blocking. It reports whether the
// message was queued. Only the hub goroutine may call it once the client is
// registered.
func (c *Client) SendMessage(msg *WSMessage) bool {
	data, err := msg.ToJSON()
	if err != nil {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendError(message string) {
	c.Hub.sendTo(c, NewWSMessage(MessageTypeError, message, nil))
}
