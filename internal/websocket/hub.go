package websocket

import (
	"context"
	"sync"

	"monobase/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Hub tracks the clients subscribed to each call room and fans messages out
// to them.
type Hub struct {
	// Clients organized by room (call) ID
	roomClients map[string]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Broadcast messages to specific room
	RoomBroadcast chan *RoomMessage

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// RoomMessage represents a message to be sent to a room
type RoomMessage struct {
	RoomID  string
	Message *WSMessage
	Exclude string // User ID to exclude from broadcast
	Only    *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		roomClients:   make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		RoomBroadcast: make(chan *RoomMessage, 64),
		done:          make(chan struct{}),
	}
}

// Run handles registration and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case roomMsg := <-h.RoomBroadcast:
			h.broadcastToRoom(roomMsg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.roomClients[client.RoomID] == nil {
		h.roomClients[client.RoomID] = make(map[*Client]bool)
	}
	h.roomClients[client.RoomID][client] = true
	roomSize := len(h.roomClients[client.RoomID])
	h.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"user_id":   client.UserID,
		"call_id":   client.RoomID,
		"room_size": roomSize,
	}).Info("Client subscribed to call")

	client.SendMessage(NewWSMessage(MessageTypeSuccess, "Connected successfully", map[string]interface{}{
		"call_id":         client.RoomID,
		"connected_users": h.RoomUsers(client.RoomID),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops the client and closes its send channel. Callers hold mu.
func (h *Hub) removeLocked(client *Client) {
	room, ok := h.roomClients[client.RoomID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.roomClients, client.RoomID)
	}
	close(client.Send)

	logger.WithFields(logrus.Fields{
		"user_id": client.UserID,
		"call_id": client.RoomID,
	}).Info("Client unsubscribed from call")
}

func (h *Hub) broadcastToRoom(roomMsg *RoomMessage) {
	data, err := roomMsg.Message.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal room message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.roomClients[roomMsg.RoomID] {
		if roomMsg.Only != nil && client != roomMsg.Only {
			continue
		}
		if roomMsg.Exclude != "" && client.UserID == roomMsg.Exclude {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// send buffer full, drop the slow client
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.roomClients {
		for client := range room {
			h.removeLocked(client)
		}
	}
}

// BroadcastToRoom broadcasts a message to a room
func (h *Hub) BroadcastToRoom(roomID string, message *WSMessage) {
	h.BroadcastToRoomExcept(roomID, "", message)
}

// BroadcastToRoomExcept broadcasts a message to a room except one user
func (h *Hub) BroadcastToRoomExcept(roomID, excludeUserID string, message *WSMessage) {
	message.RoomID = roomID
	select {
	case h.RoomBroadcast <- &RoomMessage{RoomID: roomID, Message: message, Exclude: excludeUserID}:
	case <-h.done:
	}
}

// sendTo delivers a message to a single client through the hub, so that it
// never races with the hub closing the client's send channel.
func (h *Hub) sendTo(client *Client, message *WSMessage) {
	select {
	case h.RoomBroadcast <- &RoomMessage{RoomID: client.RoomID, Message: message, Only: client}:
	case <-h.done:
	}
}

func (h *Hub) register(client *Client) {
	select {
	case h.Register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// NotifyCall publishes a call state event to everyone subscribed to the call.
func (h *Hub) NotifyCall(callID, event string, data map[string]interface{}) {
	h.BroadcastToRoom(callID, NewWSMessage(MessageType(event), "", data))
}

// RoomUsers returns the user IDs subscribed to a room
func (h *Hub) RoomUsers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.roomClients[roomID]))
	for client := range h.roomClients[roomID] {
		users = append(users, client.UserID)
	}
	return users
}
