package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRoomSuccess(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(16)
	registerClient(t, hub, client)

	sendInbound(t, hub, client, EventJoinRoom, JoinRequest{Username: "Ana", Room: "lobby"})

	ack := recvJoinAck(t, client)
	assert.True(t, ack.Success)
	assert.Empty(t, ack.Error)

	welcome := recvMessage(t, client)
	assert.Equal(t, SystemUsername, welcome.Username)
	assert.Equal(t, "Welcome to SecureRoom!", welcome.Text)
	assert.True(t, welcome.IsSystem)

	users := recvRoomUsers(t, client)
	assert.Equal(t, "lobby", users.Room)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Ana", users.Users[0].Username)
	assert.Equal(t, client.id, users.Users[0].ID)

	sess := hub.Registry().Get(client.id)
	require.NotNil(t, sess)
	assert.Equal(t, "Ana", sess.Username)
	assert.Equal(t, "lobby", sess.Room)
}

func TestJoinRoomTrimsFields(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(16)
	registerClient(t, hub, client)

	sendInbound(t, hub, client, EventJoinRoom, JoinRequest{Username: "  Ana  ", Room: " lobby "})

	ack := recvJoinAck(t, client)
	require.True(t, ack.Success)

	recvMessage(t, client)
	users := recvRoomUsers(t, client)
	assert.Equal(t, "lobby", users.Room)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Ana", users.Users[0].Username)
}

func TestJoinRoomValidation(t *testing.T) {
	cases := []struct {
		name     string
		username string
		room     string
	}{
		{"empty username", "", "lobby"},
		{"whitespace username", "   ", "lobby"},
		{"empty room", "Ana", ""},
		{"whitespace room", "Ana", "\t "},
		{"both empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hub := newTestHub(t)
			client := newTestClient(16)
			registerClient(t, hub, client)

			sendInbound(t, hub, client, EventJoinRoom, JoinRequest{Username: tc.username, Room: tc.room})

			ack := recvJoinAck(t, client)
			assert.False(t, ack.Success)
			assert.Equal(t, "Username and room are required.", ack.Error)

			expectNoEvent(t, client)
			assert.Zero(t, hub.Registry().Len())
		})
	}
}

func TestJoinRoomDuplicateUsername(t *testing.T) {
	hub := newTestHub(t)
	first := newTestClient(16)
	joinRoom(t, hub, first, "Ana", "lobby")

	second := newTestClient(16)
	registerClient(t, hub, second)
	sendInbound(t, hub, second, EventJoinRoom, JoinRequest{Username: "ANA", Room: "lobby"})

	ack := recvJoinAck(t, second)
	assert.False(t, ack.Success)
	assert.Equal(t, "Username is already taken in this room.", ack.Error)
	assert.Nil(t, hub.Registry().Get(second.id))

	// The same name is free in an independent room.
	sendInbound(t, hub, second, EventJoinRoom, JoinRequest{Username: "ANA", Room: "ops"})
	ack = recvJoinAck(t, second)
	assert.True(t, ack.Success)
}

func TestJoinNoticeTargeting(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")

	bob := newTestClient(16)
	registerClient(t, hub, bob)
	sendInbound(t, hub, bob, EventJoinRoom, JoinRequest{Username: "Bob", Room: "lobby"})

	// Existing member sees the joined notice, then the refreshed user list.
	notice := recvMessage(t, ana)
	assert.Equal(t, SystemUsername, notice.Username)
	assert.Equal(t, "Bob has joined the chat", notice.Text)
	assert.True(t, notice.IsSystem)

	users := recvRoomUsers(t, ana)
	require.Len(t, users.Users, 2)
	assert.Equal(t, "Ana", users.Users[0].Username)
	assert.Equal(t, "Bob", users.Users[1].Username)

	// The joiner gets ack, welcome, and the user list, but never the notice.
	ack := recvJoinAck(t, bob)
	require.True(t, ack.Success)
	welcome := recvMessage(t, bob)
	assert.Equal(t, "Welcome to SecureRoom!", welcome.Text)
	users = recvRoomUsers(t, bob)
	assert.Len(t, users.Users, 2)
	expectNoEvent(t, bob)
}

func TestRepeatJoinIgnored(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(16)
	joinRoom(t, hub, client, "Ana", "lobby")

	sendInbound(t, hub, client, EventJoinRoom, JoinRequest{Username: "Other", Room: "lobby"})

	expectNoEvent(t, client)
	assert.Equal(t, 1, hub.Registry().Len())
	assert.Equal(t, "Ana", hub.Registry().Get(client.id).Username)
}

func TestChatMessageRoomAll(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")
	bob := newTestClient(16)
	joinRoom(t, hub, bob, "Bob", "lobby")
	eve := newTestClient(16)
	joinRoom(t, hub, eve, "Eve", "ops")

	// Drain the join notice and user list Ana saw when Bob arrived.
	recvMessage(t, ana)
	recvRoomUsers(t, ana)

	sendInbound(t, hub, ana, EventChatMessage, "hi")

	for _, member := range []*Client{ana, bob} {
		msg := recvMessage(t, member)
		assert.Equal(t, "Ana", msg.Username)
		assert.Equal(t, "hi", msg.Text)
		assert.False(t, msg.IsSystem)
		assert.NotEmpty(t, msg.ID)
	}

	// Other rooms never see it.
	expectNoEvent(t, eve)
}

func TestChatMessageDroppedWhenUnjoined(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(16)
	registerClient(t, hub, client)

	sendInbound(t, hub, client, EventChatMessage, "hello?")

	expectNoEvent(t, client)
}

func TestChatMessageDroppedWhenBlank(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")
	bob := newTestClient(16)
	joinRoom(t, hub, bob, "Bob", "lobby")
	recvMessage(t, ana)
	recvRoomUsers(t, ana)

	sendInbound(t, hub, ana, EventChatMessage, "   \t  ")

	expectNoEvent(t, ana)
	expectNoEvent(t, bob)
}

func TestTypingRoomOthers(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")
	bob := newTestClient(16)
	joinRoom(t, hub, bob, "Bob", "lobby")
	recvMessage(t, ana)
	recvRoomUsers(t, ana)

	sendInbound(t, hub, ana, EventTyping, nil)

	env := recvEnvelope(t, bob)
	assert.Equal(t, EventTyping, env.Event)
	assert.Equal(t, "Ana", decodeData[string](t, env))
	expectNoEvent(t, ana)

	sendInbound(t, hub, ana, EventStopTyping, nil)

	env = recvEnvelope(t, bob)
	assert.Equal(t, EventStopTyping, env.Event)
	assert.Equal(t, "Ana", decodeData[string](t, env))
	expectNoEvent(t, ana)
}

func TestTypingDroppedWhenUnjoined(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")

	stranger := newTestClient(16)
	registerClient(t, hub, stranger)
	sendInbound(t, hub, stranger, EventTyping, nil)

	expectNoEvent(t, ana)
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")
	bob := newTestClient(16)
	joinRoom(t, hub, bob, "Bob", "lobby")
	recvMessage(t, ana)
	recvRoomUsers(t, ana)

	hub.unregister <- bob

	notice := recvMessage(t, ana)
	assert.Equal(t, "Bob has left the chat", notice.Text)
	assert.True(t, notice.IsSystem)

	users := recvRoomUsers(t, ana)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Ana", users.Users[0].Username)

	assert.Nil(t, hub.Registry().Get(bob.id))
	assert.Equal(t, 1, hub.Registry().Len())
}

func TestDisconnectBeforeJoinIsSilent(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")

	stranger := newTestClient(16)
	registerClient(t, hub, stranger)
	hub.unregister <- stranger

	expectNoEvent(t, ana)
	assert.Equal(t, 1, hub.Registry().Len())
}

func TestUnknownEventIgnored(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")

	sendInbound(t, hub, ana, "selfDestruct", "now")

	expectNoEvent(t, ana)
	assert.Equal(t, 1, hub.Registry().Len())
}

func TestSlowClientDroppedWithoutBlockingFanOut(t *testing.T) {
	hub := newTestHub(t)
	ana := newTestClient(16)
	joinRoom(t, hub, ana, "Ana", "lobby")

	slow := newTestClient(4)
	joinRoom(t, hub, slow, "Slow", "lobby")
	recvMessage(t, ana)
	recvRoomUsers(t, ana)

	// Fill the slow client's send buffer, then overflow it.
	for i := 0; i < 4; i++ {
		sendInbound(t, hub, ana, EventChatMessage, "fill")
		recvMessage(t, ana)
	}
	sendInbound(t, hub, ana, EventChatMessage, "overflow")

	// Ana still receives the overflowing message, then the departure.
	msg := recvMessage(t, ana)
	assert.Equal(t, "overflow", msg.Text)

	notice := recvMessage(t, ana)
	assert.Equal(t, "Slow has left the chat", notice.Text)
	users := recvRoomUsers(t, ana)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Ana", users.Users[0].Username)

	require.Eventually(t, func() bool {
		return hub.Registry().Get(slow.id) == nil
	}, eventWait, 10*time.Millisecond)
}
