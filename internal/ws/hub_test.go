package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(tabletID string) *Client {
	return NewClient(tabletID, "comp_1", nil)
}

func drainOne(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case frame := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(frame, &msg))
		return msg
	default:
		t.Fatal("expected a frame in the send buffer")
		return Message{}
	}
}

func TestHubRegisterAndSend(t *testing.T) {
	hub := NewHub()
	c := newTestClient("tab_1")
	hub.Register(c)

	assert.True(t, hub.IsOnline("tab_1"))
	assert.False(t, hub.IsOnline("tab_2"))

	ok := hub.Send("tab_1", MsgTestPing, map[string]string{"probe_id": "p1"})
	require.True(t, ok)

	msg := drainOne(t, c)
	assert.Equal(t, MsgTestPing, msg.Type)

	assert.False(t, hub.Send("tab_2", MsgTestPing, nil), "offline tablet must report false")
}

func TestHubRegisterSupersedes(t *testing.T) {
	hub := NewHub()
	first := newTestClient("tab_1")
	second := newTestClient("tab_1")

	hub.Register(first)
	hub.Register(second)

	// The superseded client is closed; new frames go to the successor.
	assert.True(t, first.closed)
	assert.False(t, second.closed)
	assert.True(t, hub.IsOnline("tab_1"))

	require.True(t, hub.Send("tab_1", MsgConnected, nil))
	drainOne(t, second)
}

func TestHubUnregisterOnlyRemovesSameClient(t *testing.T) {
	hub := NewHub()
	first := newTestClient("tab_1")
	second := newTestClient("tab_1")

	hub.Register(first)
	hub.Register(second)

	// The stale pump for the first connection exits after the reconnect. Its
	// unregister reports false so teardown must not mark the tablet offline.
	assert.False(t, hub.Unregister(first))
	assert.True(t, hub.IsOnline("tab_1"), "successor must survive the stale unregister")

	assert.True(t, hub.Unregister(second))
	assert.False(t, hub.IsOnline("tab_1"))
}

func TestHubKick(t *testing.T) {
	hub := NewHub()
	c := newTestClient("tab_1")
	hub.Register(c)

	assert.True(t, hub.Kick("tab_1"))
	assert.False(t, hub.IsOnline("tab_1"))
	assert.True(t, c.closed)

	assert.False(t, hub.Kick("tab_1"), "second kick finds nothing")
}

func TestHubSendAfterCloseDoesNotPanic(t *testing.T) {
	hub := NewHub()
	c := newTestClient("tab_1")
	hub.Register(c)

	// Concurrent senders racing a kick must never hit a closed channel.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				hub.Send("tab_1", MsgSessionProgress, map[string]string{"status": "VIEWING_DOCUMENT"})
			}
		}()
	}
	hub.Kick("tab_1")
	wg.Wait()

	assert.False(t, hub.Send("tab_1", MsgSessionProgress, nil))
}
