package types

import "strings"

// --- Core Domain Types ---

// RoleType defines the different roles a user can hold in a room.
type RoleType string

// UserIdType represents a unique, server-minted identifier for a joined user.
type UserIdType string

// RoomIdType represents the client-chosen identifier for a broadcast room.
type RoomIdType string

// Role constants. A room has at most one broadcaster; everyone else views.
const (
	RoleTypeBroadcaster RoleType = "broadcaster"
	RoleTypeViewer      RoleType = "viewer"
)

// ValidRole reports whether r is one of the two supported roles.
func ValidRole(r RoleType) bool {
	return r == RoleTypeBroadcaster || r == RoleTypeViewer
}

// User is the identity record minted on a successful JOIN_ROOM.
// Role and RoomId are immutable for the lifetime of the identity.
type User struct {
	Id       UserIdType `json:"id"`
	Username string     `json:"username"`
	Role     RoleType   `json:"role"`
	RoomId   RoomIdType `json:"room_id"`
}

// RoomInfo is a fully resolved snapshot of a room: broadcaster first (if
// present), then viewers in join order.
type RoomInfo struct {
	Id           RoomIdType `json:"id"`
	Name         string     `json:"name"`
	Broadcaster  *User      `json:"broadcaster,omitempty"`
	Viewers      []User     `json:"viewers"`
	StreamActive bool       `json:"stream_active"`
}

// RoomListing is the lighter shape served by GET /rooms: ids only.
type RoomListing struct {
	Id            RoomIdType   `json:"id"`
	Name          string       `json:"name"`
	BroadcasterId UserIdType   `json:"broadcaster_id,omitempty"`
	ViewerIds     []UserIdType `json:"viewer_ids"`
	StreamActive  bool         `json:"stream_active"`
}

// --- Chat ---

// ChatKind distinguishes room-wide messages from directed ones.
type ChatKind string

const (
	ChatKindPublic  ChatKind = "public"
	ChatKindPrivate ChatKind = "private"
)

// ChatMessage is one entry in a room's chat log. Id and Timestamp are
// server-minted; Timestamp is RFC3339 UTC.
type ChatMessage struct {
	Id             string     `json:"id"`
	SenderId       UserIdType `json:"sender_id"`
	SenderUsername string     `json:"sender_username"`
	RoomId         RoomIdType `json:"room_id"`
	Content        string     `json:"content"`
	Kind           ChatKind   `json:"kind"`
	RecipientId    UserIdType `json:"recipient_id,omitempty"`
	Timestamp      string     `json:"timestamp"`
}

// --- Error Codes ---

// ErrorCode identifies a semantic join failure reported via an ERROR envelope.
type ErrorCode string

const (
	ErrCodeRoomNotFound      ErrorCode = "ROOM_NOT_FOUND"
	ErrCodeBroadcasterExists ErrorCode = "BROADCASTER_EXISTS"
	ErrCodeUserExists        ErrorCode = "USER_EXISTS"
	ErrCodeInvalidRole       ErrorCode = "INVALID_ROLE"
)

// JoinError carries the typed code back to the dispatcher so it can build
// the ERROR envelope for the requesting session.
type JoinError struct {
	Code    ErrorCode
	Message string
}

func (e *JoinError) Error() string { return string(e.Code) + ": " + e.Message }

// NewJoinError builds a JoinError with the given code and message.
func NewJoinError(code ErrorCode, msg string) *JoinError {
	return &JoinError{Code: code, Message: msg}
}

// FoldUsername is the canonical form used for per-room username uniqueness.
// Uniqueness is checked under ASCII lowercase folding.
func FoldUsername(username string) string {
	return strings.ToLower(username)
}

// RoomName derives the display name for a room.
func RoomName(id RoomIdType) string {
	return "Room " + string(id)
}
