package protocol

import (
	"encoding/json"

	"github.com/dhakb/vestream/internal/v1/types"
)

// --- Client -> Hub payloads ---

// JoinRoomPayload asks to enter a room under a username and role. Role values
// outside {broadcaster, viewer} are a semantic failure (INVALID_ROLE), not a
// decode failure, so the role is not constrained here.
type JoinRoomPayload struct {
	RoomId   types.RoomIdType `json:"room_id" validate:"required"`
	Username string           `json:"username" validate:"required"`
	Role     types.RoleType   `json:"role" validate:"required"`
}

// ReadyPayload is the inbound shape of STREAM_READY and VIEWER_READY.
// The hub resolves the true sender from the session; user_id is advisory.
type ReadyPayload struct {
	RoomId types.RoomIdType `json:"room_id"`
	UserId types.UserIdType `json:"user_id"`
}

// ChatMessagePayload wraps the client-authored message body.
type ChatMessagePayload struct {
	Message ChatMessageInput `json:"message" validate:"required"`
}

// ChatMessageInput is the client-controlled part of a chat entry. The server
// mints id, timestamp and sender fields.
type ChatMessageInput struct {
	Content     string           `json:"content" validate:"required"`
	Kind        types.ChatKind   `json:"kind" validate:"omitempty,oneof=public private"`
	RecipientId types.UserIdType `json:"recipient_id,omitempty"`
	RoomId      types.RoomIdType `json:"room_id"`
}

// SignalPayload is the shape of OFFER, ANSWER and ICE_CANDIDATE, both
// directions. On relay the hub overwrites Sender with the session's resolved
// identity; Data is forwarded without interpretation.
type SignalPayload struct {
	Sender   types.UserIdType `json:"sender"`
	Receiver types.UserIdType `json:"receiver" validate:"required"`
	RoomId   types.RoomIdType `json:"room_id"`
	Data     json.RawMessage  `json:"data"`
}

// --- Hub -> Client payloads ---

// RoomJoinedPayload is sent only to the joiner.
type RoomJoinedPayload struct {
	Room     types.RoomInfo      `json:"room"`
	User     types.User          `json:"user"`
	Messages []types.ChatMessage `json:"messages"`
}

// RoomStatePayload fans out the current snapshot to all members.
type RoomStatePayload struct {
	Room types.RoomInfo `json:"room"`
}

// UserJoinedPayload announces a new member to the rest of the room.
type UserJoinedPayload struct {
	User types.User `json:"user"`
}

// UserLeftPayload announces a departure, with the snapshot after removal.
type UserLeftPayload struct {
	User types.User     `json:"user"`
	Room types.RoomInfo `json:"room"`
}

// BroadcasterReadyPayload tells a viewer the stream is live.
type BroadcasterReadyPayload struct {
	Broadcaster types.User `json:"broadcaster"`
}

// ViewerReadyPayload tells the broadcaster a viewer is ready to receive.
type ViewerReadyPayload struct {
	Viewer types.User `json:"viewer"`
}

// ChatMessageReceivedPayload delivers a minted chat entry.
type ChatMessageReceivedPayload struct {
	Message types.ChatMessage `json:"message"`
}

// ErrorPayload reports a semantic join failure to the requesting session.
type ErrorPayload struct {
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
}
