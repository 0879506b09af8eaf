package session

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhakb/vestream/internal/v1/logging"
	"github.com/dhakb/vestream/internal/v1/metrics"
	"github.com/dhakb/vestream/internal/v1/protocol"
	"github.com/dhakb/vestream/internal/v1/types"
)

// sendError replies with a typed ERROR envelope. The session's identity
// state is unchanged.
func (h *Hub) sendError(c *Client, code types.ErrorCode, msg string) {
	c.sendEnvelope(protocol.TypeError, protocol.ErrorPayload{Code: code, Message: msg})
}

// handleJoin validates and seats a new identity atomically under the hub
// mutex, then emits the join fan-out outside it. Only a broadcaster may
// create a room.
func (h *Hub) handleJoin(c *Client, env *protocol.Envelope) {
	p, err := protocol.DecodeJoinRoom(env)
	if err != nil {
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		logging.Warn(context.Background(), "dropping malformed JOIN_ROOM", zap.Error(err))
		return
	}

	h.mu.Lock()

	if c.user != nil {
		// A session owns at most one identity.
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ignored").Inc()
		logging.Warn(context.Background(), "ignoring JOIN_ROOM from joined session",
			zap.String("user_id", string(c.user.Id)))
		return
	}

	if !types.ValidRole(p.Role) {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "rejected").Inc()
		h.sendError(c, types.ErrCodeInvalidRole, "role must be broadcaster or viewer")
		return
	}

	r, ok := h.rooms[p.RoomId]
	if !ok {
		if p.Role != types.RoleTypeBroadcaster {
			h.mu.Unlock()
			metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "rejected").Inc()
			h.sendError(c, types.ErrCodeRoomNotFound, "room "+string(p.RoomId)+" does not exist")
			return
		}
		r = newRoom(p.RoomId)
		h.rooms[p.RoomId] = r
		metrics.ActiveRooms.Inc()
		logging.Info(context.Background(), "created room", zap.String("room_id", string(p.RoomId)))
	}

	if p.Role == types.RoleTypeBroadcaster && r.broadcaster != "" {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "rejected").Inc()
		h.sendError(c, types.ErrCodeBroadcasterExists, "room already has a broadcaster")
		return
	}

	if r.hasUsernameLocked(p.Username) {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "rejected").Inc()
		h.sendError(c, types.ErrCodeUserExists, "username already taken in this room")
		return
	}

	user := &types.User{
		Id:       types.UserIdType(uuid.NewString()),
		Username: p.Username,
		Role:     p.Role,
		RoomId:   p.RoomId,
	}
	h.identities[user.Id] = &identity{user: user, client: c}
	c.user = user
	r.addMemberLocked(user)

	snapshot := h.snapshotLocked(r)
	recent := r.chat.tail(defaultChatTail)
	members := h.collectMembersLocked(r, "")
	streamActive := r.streamActive
	var broadcaster types.User
	if snapshot.Broadcaster != nil {
		broadcaster = *snapshot.Broadcaster
	}

	metrics.RoomMembers.WithLabelValues(string(r.Id)).Set(float64(r.memberCountLocked()))
	h.mu.Unlock()

	metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ok").Inc()
	logging.Info(context.Background(), "user joined room",
		zap.String("room_id", string(user.RoomId)),
		zap.String("user_id", string(user.Id)),
		zap.String("role", string(user.Role)))

	// Dispatcher step order: ROOM_JOINED first, so the joiner sees it before
	// any fan-out it is part of.
	c.sendEnvelope(protocol.TypeRoomJoined, protocol.RoomJoinedPayload{
		Room:     snapshot,
		User:     *user,
		Messages: recent,
	})

	if streamActive && user.Role == types.RoleTypeViewer {
		c.sendEnvelope(protocol.TypeBroadcasterReady, protocol.BroadcasterReadyPayload{Broadcaster: broadcaster})
	}

	for _, m := range members {
		m.sendEnvelope(protocol.TypeUserJoined, protocol.UserJoinedPayload{User: *user})
	}
	for _, m := range members {
		m.sendEnvelope(protocol.TypeRoomState, protocol.RoomStatePayload{Room: snapshot})
	}
}

// handleChat mints a chat entry, appends it to the room log, and delivers it:
// private entries go to the recipient and a copy to the sender, public ones
// to every member including the sender.
func (h *Hub) handleChat(c *Client, env *protocol.Envelope) {
	p, err := protocol.DecodeChatMessage(env)
	if err != nil {
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		logging.Warn(context.Background(), "dropping malformed CHAT_MESSAGE", zap.Error(err))
		return
	}

	h.mu.Lock()
	user := c.user
	if user == nil {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ignored").Inc()
		return
	}

	r, ok := h.rooms[user.RoomId]
	if !ok {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		return
	}

	msg, err := buildChatMessage(user, p.Message, h.clock.Now())
	if err != nil {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		logging.Warn(context.Background(), "dropping invalid chat message",
			zap.String("user_id", string(user.Id)), zap.Error(err))
		return
	}

	r.chat.append(msg)

	var targets []*Client
	if msg.Kind == types.ChatKindPrivate {
		if id := h.resolveLocked(msg.RecipientId); id != nil {
			targets = append(targets, id.client)
		}
		targets = append(targets, c) // copy to the sender
	} else {
		targets = h.collectMembersLocked(r, "")
	}
	h.mu.Unlock()

	metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ok").Inc()
	metrics.ChatMessagesTotal.WithLabelValues(string(msg.Kind)).Inc()

	for _, t := range targets {
		t.sendEnvelope(protocol.TypeChatMessageReceived, protocol.ChatMessageReceivedPayload{Message: msg})
	}
}

// handleStreamReady marks the broadcaster's stream live and tells every
// viewer. Repeats are idempotent: the flag stays set and the announcement is
// re-emitted.
func (h *Hub) handleStreamReady(c *Client, env *protocol.Envelope) {
	if _, err := protocol.DecodeReady(env); err != nil {
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		logging.Warn(context.Background(), "dropping malformed STREAM_READY", zap.Error(err))
		return
	}

	h.mu.Lock()
	user := c.user
	if user == nil || user.Role != types.RoleTypeBroadcaster {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ignored").Inc()
		return
	}

	r, ok := h.rooms[user.RoomId]
	if !ok || r.broadcaster != user.Id {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		return
	}

	r.streamActive = true
	viewers := h.collectViewersLocked(r)
	broadcaster := *user
	h.mu.Unlock()

	metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ok").Inc()
	logging.Info(context.Background(), "stream ready",
		zap.String("room_id", string(user.RoomId)), zap.String("user_id", string(user.Id)))

	for _, v := range viewers {
		v.sendEnvelope(protocol.TypeBroadcasterReady, protocol.BroadcasterReadyPayload{Broadcaster: broadcaster})
	}
}

// handleViewerReady forwards the viewer's readiness to the room's
// broadcaster. The broadcaster is always the offerer; this one-way rule
// eliminates glare.
func (h *Hub) handleViewerReady(c *Client, env *protocol.Envelope) {
	if _, err := protocol.DecodeReady(env); err != nil {
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		logging.Warn(context.Background(), "dropping malformed VIEWER_READY", zap.Error(err))
		return
	}

	h.mu.Lock()
	user := c.user
	if user == nil || user.Role != types.RoleTypeViewer {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ignored").Inc()
		return
	}

	var target *Client
	if r, ok := h.rooms[user.RoomId]; ok && r.broadcaster != "" {
		if id := h.resolveLocked(r.broadcaster); id != nil {
			target = id.client
		}
	}
	viewer := *user
	h.mu.Unlock()

	if target == nil {
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		return
	}

	metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ok").Inc()
	target.sendEnvelope(protocol.TypeViewerReady, protocol.ViewerReadyPayload{Viewer: viewer})
}

// handleSignal relays OFFER, ANSWER and ICE_CANDIDATE to the addressed
// receiver, rewriting the sender to the session's resolved identity so peers
// cannot impersonate each other. Unknown or stale receivers are a silent
// drop; the peer-to-peer layer owns retransmission.
func (h *Hub) handleSignal(c *Client, env *protocol.Envelope) {
	p, err := protocol.DecodeSignal(env)
	if err != nil {
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		logging.Warn(context.Background(), "dropping malformed signal", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}

	h.mu.Lock()
	user := c.user
	if user == nil {
		h.mu.Unlock()
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ignored").Inc()
		return
	}

	var target *Client
	if id := h.resolveLocked(p.Receiver); id != nil {
		target = id.client
	}
	p.Sender = user.Id
	h.mu.Unlock()

	if target == nil {
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "dropped").Inc()
		return
	}

	metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ok").Inc()
	target.sendEnvelope(env.Type, p)
}

// handleDisconnect is the standard departure path, run exactly once per
// session from its readPump. Re-entry is a no-op.
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	user := c.user
	if user == nil {
		h.mu.Unlock()
		return
	}
	c.user = nil
	delete(h.identities, user.Id)

	var remaining []*Client
	var snapshot types.RoomInfo
	roomAlive := false

	if r, ok := h.rooms[user.RoomId]; ok {
		r.removeMemberLocked(user)
		if !h.deleteRoomIfEmptyLocked(r) {
			roomAlive = true
			snapshot = h.snapshotLocked(r)
			remaining = h.collectMembersLocked(r, "")
			metrics.RoomMembers.WithLabelValues(string(r.Id)).Set(float64(r.memberCountLocked()))
		}
	}
	h.mu.Unlock()

	logging.Info(context.Background(), "user left room",
		zap.String("room_id", string(user.RoomId)),
		zap.String("user_id", string(user.Id)),
		zap.String("role", string(user.Role)))

	if !roomAlive {
		return
	}

	for _, m := range remaining {
		m.sendEnvelope(protocol.TypeUserLeft, protocol.UserLeftPayload{User: *user, Room: snapshot})
	}
	for _, m := range remaining {
		m.sendEnvelope(protocol.TypeRoomState, protocol.RoomStatePayload{Room: snapshot})
	}
}
