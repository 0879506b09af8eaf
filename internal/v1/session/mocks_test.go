package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dhakb/vestream/internal/v1/protocol"
	"github.com/dhakb/vestream/internal/v1/types"
)

// mockConn is an in-memory wsConnection. Frames pushed into inbound are
// yielded by ReadMessage; text frames written by the hub are recorded.
type mockConn struct {
	mu     sync.Mutex
	writes [][]byte

	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.inbound:
		return websocket.TextMessage, data, nil
	case <-m.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, append([]byte(nil), data...))
	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *mockConn) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConn) envelopeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

func (m *mockConn) envelopes(t *testing.T) []*protocol.Envelope {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*protocol.Envelope, 0, len(m.writes))
	for _, raw := range m.writes {
		env, err := protocol.Decode(raw)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

// waitForEnvelopes blocks until at least n envelopes have been written.
func (m *mockConn) waitForEnvelopes(t *testing.T, n int) []*protocol.Envelope {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.envelopeCount() >= n
	}, 2*time.Second, 2*time.Millisecond, "expected %d envelopes, have %d", n, m.envelopeCount())
	return m.envelopes(t)
}

// --- test session harness ---

type testSession struct {
	conn   *mockConn
	client *Client
}

func dial(h *Hub) *testSession {
	conn := newMockConn()
	return &testSession{conn: conn, client: h.StartSession(conn)}
}

func (s *testSession) sendFrame(t *testing.T, typ protocol.EnvelopeType, payload any) {
	t.Helper()
	data, err := protocol.Encode(typ, payload, time.Now())
	require.NoError(t, err)
	s.conn.inbound <- data
}

// sendRawFrame pushes arbitrary bytes, for malformed-frame tests.
func (s *testSession) sendRawFrame(data []byte) {
	s.conn.inbound <- data
}

func (s *testSession) close() {
	s.conn.Close()
}

// join issues a JOIN_ROOM and returns the minted user from ROOM_JOINED.
// since is the envelope count before the join; the ROOM_JOINED is the first
// new envelope.
func (s *testSession) join(t *testing.T, roomId, username string, role types.RoleType) types.User {
	t.Helper()
	since := s.conn.envelopeCount()
	s.sendFrame(t, protocol.TypeJoinRoom, protocol.JoinRoomPayload{
		RoomId:   types.RoomIdType(roomId),
		Username: username,
		Role:     role,
	})

	envs := s.conn.waitForEnvelopes(t, since+1)
	env := envs[since]
	require.Equal(t, protocol.TypeRoomJoined, env.Type)

	var p protocol.RoomJoinedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p.User
}

// waitForStreamActive blocks until the single known room reports a live
// stream, making cross-session rendezvous tests deterministic.
func waitForStreamActive(t *testing.T, h *Hub) {
	t.Helper()
	require.Eventually(t, func() bool {
		rooms := h.ListRooms()
		return len(rooms) == 1 && rooms[0].StreamActive
	}, 2*time.Second, 2*time.Millisecond)
}

func payloadAs[T any](t *testing.T, env *protocol.Envelope) T {
	t.Helper()
	var p T
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p
}

// envelopeTypes projects the type tags, for ordering assertions.
func envelopeTypes(envs []*protocol.Envelope) []protocol.EnvelopeType {
	out := make([]protocol.EnvelopeType, len(envs))
	for i, e := range envs {
		out[i] = e.Type
	}
	return out
}
