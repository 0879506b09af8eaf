package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dhakb/vestream/internal/v1/protocol"
	"github.com/dhakb/vestream/internal/v1/types"
)

const (
	// maxChatHistoryLength bounds the per-room log; the oldest entries are
	// trimmed on append once the cap is reached.
	maxChatHistoryLength = 512

	// defaultChatTail is the history slice handed to joiners and to REST
	// readers that give no limit.
	defaultChatTail = 50

	maxChatContentLength = 1000
)

// chatLog is a per-room append-only sequence with a soft cap. It is guarded
// by the hub mutex, because room-registry operations may discard it.
type chatLog struct {
	entries []types.ChatMessage
	cap     int
}

func newChatLog(cap int) *chatLog {
	return &chatLog{cap: cap}
}

func (l *chatLog) append(msg types.ChatMessage) {
	l.entries = append(l.entries, msg)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// tail returns a copy of at most limit entries, most-recent-last.
// Non-positive limits fall back to the default.
func (l *chatLog) tail(limit int) []types.ChatMessage {
	if limit <= 0 {
		limit = defaultChatTail
	}
	start := len(l.entries) - limit
	if start < 0 {
		start = 0
	}
	out := make([]types.ChatMessage, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// buildChatMessage mints a chat entry from the client-authored input,
// stamping id, timestamp and the resolved sender.
func buildChatMessage(sender *types.User, in protocol.ChatMessageInput, now time.Time) (types.ChatMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return types.ChatMessage{}, errors.New("chat content cannot be empty")
	}
	if len(content) > maxChatContentLength {
		return types.ChatMessage{}, errors.New("chat content cannot exceed 1000 characters")
	}

	kind := in.Kind
	if kind == "" {
		kind = types.ChatKindPublic
	}
	if kind == types.ChatKindPrivate && in.RecipientId == "" {
		return types.ChatMessage{}, errors.New("private chat requires a recipient")
	}

	msg := types.ChatMessage{
		Id:             uuid.NewString(),
		SenderId:       sender.Id,
		SenderUsername: sender.Username,
		RoomId:         sender.RoomId,
		Content:        content,
		Kind:           kind,
		Timestamp:      now.UTC().Format(time.RFC3339),
	}
	if kind == types.ChatKindPrivate {
		msg.RecipientId = in.RecipientId
	}
	return msg, nil
}
