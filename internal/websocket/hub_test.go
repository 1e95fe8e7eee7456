package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, c *Client) *WSMessage {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubNotifyCall(t *testing.T) {
	hub, _ := startHub(t)

	alice := NewClient(nil, hub, "alice", "call-1")
	bob := NewClient(nil, hub, "bob", "call-1")
	other := NewClient(nil, hub, "carol", "call-2")
	connected := make(map[string][]interface{})
	for _, c := range []*Client{alice, bob, other} {
		hub.register(c)
		msg := receive(t, c)
		assert.Equal(t, MessageTypeSuccess, msg.Type)
		users, ok := msg.Data["connected_users"].([]interface{})
		require.True(t, ok)
		connected[c.UserID] = users
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, hub.RoomUsers("call-1"))
	// the welcome lists who was already in the room, including the newcomer
	assert.Equal(t, []interface{}{"alice"}, connected["alice"])
	assert.ElementsMatch(t, []interface{}{"alice", "bob"}, connected["bob"])
	assert.Equal(t, []interface{}{"carol"}, connected["carol"])

	hub.NotifyCall("call-1", "participant_joined", map[string]interface{}{"user_id": "bob"})

	for _, c := range []*Client{alice, bob} {
		msg := receive(t, c)
		assert.Equal(t, MessageTypeParticipantJoined, msg.Type)
		assert.Equal(t, "call-1", msg.RoomID)
		assert.Equal(t, "bob", msg.Data["user_id"])
		assert.NotEmpty(t, msg.ID)
	}
	assertNoMessage(t, other)
}

func TestHubRelaySkipsSender(t *testing.T) {
	hub, _ := startHub(t)

	alice := NewClient(nil, hub, "alice", "call-1")
	bob := NewClient(nil, hub, "bob", "call-1")
	hub.register(alice)
	hub.register(bob)
	receive(t, alice)
	receive(t, bob)

	alice.handleMessage(&WSMessage{Type: MessageTypeOffer, Content: "v=0"})

	msg := receive(t, bob)
	assert.Equal(t, MessageTypeOffer, msg.Type)
	assert.Equal(t, "alice", msg.From)
	assertNoMessage(t, alice)

	alice.handleMessage(&WSMessage{Type: MessageTypeHeartbeat})
	assert.Equal(t, MessageTypeHeartbeat, receive(t, alice).Type)
	assertNoMessage(t, bob)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)

	alice := NewClient(nil, hub, "alice", "call-1")
	hub.register(alice)
	receive(t, alice)

	hub.unregister(alice)
	_, ok := <-alice.Send
	assert.False(t, ok)
	assert.Empty(t, hub.RoomUsers("call-1"))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := NewClient(nil, hub, "slow", "call-1")
	hub.register(slow)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.NotifyCall("call-1", "participant_left", nil)
	}

	require.Eventually(t, func() bool {
		return len(hub.RoomUsers("call-1")) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHubShutdown(t *testing.T) {
	hub, cancel := startHub(t)

	alice := NewClient(nil, hub, "alice", "call-1")
	hub.register(alice)
	receive(t, alice)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-alice.Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// calls after shutdown must not block
	hub.NotifyCall("call-1", "call_ended", nil)
	hub.unregister(alice)
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, (&WSMessage{Type: MessageTypeICECandidate}).Validate())
	assert.NoError(t, (&WSMessage{Type: MessageTypeHeartbeat}).Validate())
	assert.Error(t, (&WSMessage{}).Validate())
	assert.Error(t, (&WSMessage{Type: MessageTypeCallEnded}).Validate())

	msg, err := FromJSON([]byte(`{"type":"webrtc_answer","content":"v=0"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.True(t, msg.IsWebRTCMessage())
}
