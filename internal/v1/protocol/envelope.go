// Package protocol implements the envelope codec for the signaling channel.
//
// Every frame on a session is one JSON envelope: {type, payload, timestamp}.
// The payload is a tagged variant keyed by type; shape validation happens
// here, at the decode boundary, so the dispatcher never re-checks shapes.
// Unknown tags and malformed payloads are decode errors - the caller logs
// and drops the frame, the session stays open.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// EnvelopeType tags one frame on the signaling channel.
type EnvelopeType string

// Client -> Hub tags.
const (
	TypeJoinRoom     EnvelopeType = "JOIN_ROOM"
	TypeStreamReady  EnvelopeType = "STREAM_READY"
	TypeViewerReady  EnvelopeType = "VIEWER_READY"
	TypeChatMessage  EnvelopeType = "CHAT_MESSAGE"
	TypeOffer        EnvelopeType = "OFFER"
	TypeAnswer       EnvelopeType = "ANSWER"
	TypeIceCandidate EnvelopeType = "ICE_CANDIDATE"
)

// Hub -> Client tags. VIEWER_READY is shared; direction distinguishes.
const (
	TypeRoomJoined          EnvelopeType = "ROOM_JOINED"
	TypeRoomState           EnvelopeType = "ROOM_STATE"
	TypeUserJoined          EnvelopeType = "USER_JOINED"
	TypeUserLeft            EnvelopeType = "USER_LEFT"
	TypeBroadcasterReady    EnvelopeType = "BROADCASTER_READY"
	TypeChatMessageReceived EnvelopeType = "CHAT_MESSAGE_RECEIVED"
	TypeError               EnvelopeType = "ERROR"
)

var knownTypes = map[EnvelopeType]struct{}{
	TypeJoinRoom:            {},
	TypeStreamReady:         {},
	TypeViewerReady:         {},
	TypeChatMessage:         {},
	TypeOffer:               {},
	TypeAnswer:              {},
	TypeIceCandidate:        {},
	TypeRoomJoined:          {},
	TypeRoomState:           {},
	TypeUserJoined:          {},
	TypeUserLeft:            {},
	TypeBroadcasterReady:    {},
	TypeChatMessageReceived: {},
	TypeError:               {},
}

// Envelope is one frame on the wire. Timestamp is informational; the server
// re-stamps on every emission.
type Envelope struct {
	Type      EnvelopeType    `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// IsSignal reports whether the tag is one of the relayed signaling types.
func IsSignal(t EnvelopeType) bool {
	return t == TypeOffer || t == TypeAnswer || t == TypeIceCandidate
}

var validate = validator.New()

// Decode parses a raw frame into an Envelope. It fails on malformed JSON
// and on unknown tags.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if _, ok := knownTypes[env.Type]; !ok {
		return nil, fmt.Errorf("unknown envelope type %q", env.Type)
	}
	return &env, nil
}

// Encode builds the wire form of an envelope, stamping the timestamp as
// RFC3339 UTC from the given instant.
func Encode(t EnvelopeType, payload any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{
		Type:      t,
		Payload:   raw,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

// decodeAs unmarshals the envelope payload into T and validates its shape.
func decodeAs[T any](env *Envelope) (*T, error) {
	var p T
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%s: missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("%s: malformed payload: %w", env.Type, err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("%s: invalid payload: %w", env.Type, err)
	}
	return &p, nil
}

// DecodeJoinRoom extracts a JOIN_ROOM payload.
func DecodeJoinRoom(env *Envelope) (*JoinRoomPayload, error) {
	return decodeAs[JoinRoomPayload](env)
}

// DecodeReady extracts a STREAM_READY or VIEWER_READY payload.
func DecodeReady(env *Envelope) (*ReadyPayload, error) {
	return decodeAs[ReadyPayload](env)
}

// DecodeChatMessage extracts a CHAT_MESSAGE payload.
func DecodeChatMessage(env *Envelope) (*ChatMessagePayload, error) {
	return decodeAs[ChatMessagePayload](env)
}

// DecodeSignal extracts an OFFER, ANSWER or ICE_CANDIDATE payload.
func DecodeSignal(env *Envelope) (*SignalPayload, error) {
	return decodeAs[SignalPayload](env)
}
