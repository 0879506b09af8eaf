package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhakb/vestream/internal/v1/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	data, err := Encode(TypeJoinRoom, JoinRoomPayload{
		RoomId:   "r1",
		Username: "alice",
		Role:     types.RoleTypeBroadcaster,
	}, now)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeJoinRoom, env.Type)
	assert.Equal(t, "2025-06-01T12:00:00Z", env.Timestamp)

	p, err := DecodeJoinRoom(env)
	require.NoError(t, err)
	assert.Equal(t, types.RoomIdType("r1"), p.RoomId)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, types.RoleTypeBroadcaster, p.Role)
}

func TestEncodeStampsUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	data, err := Encode(TypeRoomState, nil, time.Date(2025, 6, 1, 7, 0, 0, 0, est))
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T12:00:00Z", env.Timestamp)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type": "JOIN_ROOM",`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"TELEPORT","payload":{},"timestamp":""}`))
	assert.Error(t, err)
}

func TestDecodeJoinRoomValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"complete", `{"room_id":"r1","username":"alice","role":"viewer"}`, false},
		{"missing room_id", `{"username":"alice","role":"viewer"}`, true},
		{"missing username", `{"room_id":"r1","role":"viewer"}`, true},
		{"missing role", `{"room_id":"r1","username":"alice"}`, true},
		// Unknown roles decode fine; the hub rejects them semantically.
		{"unknown role", `{"room_id":"r1","username":"alice","role":"moderator"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Envelope{Type: TypeJoinRoom, Payload: json.RawMessage(tt.payload)}
			_, err := DecodeJoinRoom(env)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeSignalRequiresReceiver(t *testing.T) {
	env := &Envelope{
		Type:    TypeOffer,
		Payload: json.RawMessage(`{"sender":"a","room_id":"r1","data":{"sdp":"v=0"}}`),
	}
	_, err := DecodeSignal(env)
	assert.Error(t, err)

	env.Payload = json.RawMessage(`{"sender":"a","receiver":"b","data":{"sdp":"v=0"}}`)
	p, err := DecodeSignal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(p.Data))
}

func TestDecodeSignalPreservesOpaqueData(t *testing.T) {
	// ICE candidate bodies pass through without interpretation.
	raw := `{"candidate":"candidate:1 1 UDP 2122252543 192.0.2.1 54400 typ host","sdpMid":"0","sdpMLineIndex":0}`
	env := &Envelope{
		Type:    TypeIceCandidate,
		Payload: json.RawMessage(`{"receiver":"b","data":` + raw + `}`),
	}
	p, err := DecodeSignal(env)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(p.Data))
}

func TestDecodeChatMessageValidation(t *testing.T) {
	env := &Envelope{
		Type:    TypeChatMessage,
		Payload: json.RawMessage(`{"message":{"content":"hi"}}`),
	}
	p, err := DecodeChatMessage(env)
	require.NoError(t, err)
	assert.Equal(t, "hi", p.Message.Content)

	env.Payload = json.RawMessage(`{"message":{"content":"hi","kind":"shout"}}`)
	_, err = DecodeChatMessage(env)
	assert.Error(t, err, "kind outside public/private must fail validation")

	env.Payload = json.RawMessage(`{"message":{"kind":"public"}}`)
	_, err = DecodeChatMessage(env)
	assert.Error(t, err, "empty content must fail validation")
}

func TestDecodeMissingPayload(t *testing.T) {
	env := &Envelope{Type: TypeStreamReady}
	_, err := DecodeReady(env)
	assert.Error(t, err)
}

func TestIsSignal(t *testing.T) {
	assert.True(t, IsSignal(TypeOffer))
	assert.True(t, IsSignal(TypeAnswer))
	assert.True(t, IsSignal(TypeIceCandidate))
	assert.False(t, IsSignal(TypeChatMessage))
	assert.False(t, IsSignal(TypeJoinRoom))
}
