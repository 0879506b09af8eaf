package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisconnectIsIdempotent(t *testing.T) {
	h := newTestHub()
	s := dial(h)

	assert.NotPanics(t, func() {
		s.client.Disconnect()
		s.client.Disconnect()
	})

	require.Eventually(t, func() bool {
		return h.identityCount() == 0
	}, 2*time.Second, 2*time.Millisecond)
}

func TestSendRawAfterDisconnectIsDropped(t *testing.T) {
	h := newTestHub()
	s := dial(h)

	s.client.Disconnect()
	assert.NotPanics(t, func() {
		s.client.SendRaw([]byte(`{"type":"ROOM_STATE"}`))
	})
}

func TestSendRawDropsWhenBufferFull(t *testing.T) {
	h := newTestHub()
	c := &Client{
		conn: newMockConn(),
		hub:  h,
		send: make(chan []byte, 1),
	}
	// No writePump draining; the second send must drop, not block.
	c.SendRaw([]byte("one"))

	done := make(chan struct{})
	go func() {
		c.SendRaw([]byte("two"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendRaw blocked on a full buffer")
	}
	c.Disconnect()
}

func TestWritePumpDrainsBufferBeforeClosing(t *testing.T) {
	h := newTestHub()
	s := dial(h)

	s.client.SendRaw([]byte(`{"type":"ROOM_STATE","payload":null}`))
	s.conn.waitForEnvelopes(t, 1)

	s.close()
	require.Eventually(t, func() bool {
		return h.identityCount() == 0
	}, 2*time.Second, 2*time.Millisecond)
}
