package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType represents different types of WebSocket messages
type MessageType string

const (
	// Call state events, sent by the server
	MessageTypeParticipantJoined MessageType = "participant_joined"
	MessageTypeParticipantLeft   MessageType = "participant_left"
	MessageTypeCallEnded         MessageType = "call_ended"

	// System message types
	MessageTypeError     MessageType = "error"
	MessageTypeSuccess   MessageType = "success"
	MessageTypeHeartbeat MessageType = "heartbeat"

	// WebRTC signaling types, relayed between participants
	MessageTypeOffer        MessageType = "webrtc_offer"
	MessageTypeAnswer       MessageType = "webrtc_answer"
	MessageTypeICECandidate MessageType = "webrtc_ice_candidate"
	MessageTypeHangup       MessageType = "webrtc_hangup"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	ID        string                 `json:"id"`
	Type      MessageType            `json:"type"`
	Content   string                 `json:"content,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	From      string                 `json:"from,omitempty"`
	To        string                 `json:"to,omitempty"`
	RoomID    string                 `json:"room_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewWSMessage creates a new WebSocket message
func NewWSMessage(msgType MessageType, content string, data map[string]interface{}) *WSMessage {
	return &WSMessage{
		ID:        uuid.NewString(),
		Type:      msgType,
		Content:   content,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func (msg *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(msg)
}

func FromJSON(data []byte) (*WSMessage, error) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return &msg, nil
}

// IsWebRTCMessage reports whether the message is client signaling that the
// hub relays to the other participants.
func (msg *WSMessage) IsWebRTCMessage() bool {
	switch msg.Type {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate, MessageTypeHangup:
		return true
	}
	return false
}

// Validate checks a message received from a client
func (msg *WSMessage) Validate() error {
	if msg.Type == "" {
		return fmt.Errorf("message type is required")
	}
	if msg.Type != MessageTypeHeartbeat && !msg.IsWebRTCMessage() {
		return fmt.Errorf("message type %q cannot be sent by clients", msg.Type)
	}
	if len(msg.Content) > maxContentLength {
		return fmt.Errorf("message content too long")
	}
	return nil
}
