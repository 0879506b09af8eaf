package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/dhakb/vestream/internal/v1/logging"
	"github.com/dhakb/vestream/internal/v1/metrics"
	"github.com/dhakb/vestream/internal/v1/protocol"
	"github.com/dhakb/vestream/internal/v1/types"
)

// identity pairs a User record with the session that owns it.
type identity struct {
	user   *types.User
	client *Client
}

// Hub is the process-wide coordinator. It owns the identity registry, the
// room registry and every room's chat log, all behind one mutex: the three
// are semantically one unit of state, and a single lock rules out a relay
// finding a receiver the room registry has already dropped.
//
// Handlers never send while holding the mutex. They collect the target
// sessions under the lock, release it, and write - a slow client must not
// stall membership changes for everyone else.
type Hub struct {
	mu         sync.Mutex
	rooms      map[types.RoomIdType]*Room
	identities map[types.UserIdType]*identity

	clock clock.PassiveClock
}

// NewHub creates a Hub with the real clock.
func NewHub() *Hub {
	return NewHubWithClock(clock.RealClock{})
}

// NewHubWithClock creates a Hub that stamps envelopes and chat entries from
// the given clock. Tests inject a fake.
func NewHubWithClock(clk clock.PassiveClock) *Hub {
	return &Hub{
		rooms:      make(map[types.RoomIdType]*Room),
		identities: make(map[types.UserIdType]*identity),
		clock:      clk,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The signaling channel is open by policy: no authentication, permissive
	// cross-origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades an HTTP request to a WebSocket session. The room is
// chosen in-band via JOIN_ROOM, so the path carries no room id.
func (h *Hub) ServeWs(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to upgrade connection", zap.Error(err))
		return
	}

	h.StartSession(conn)
}

// StartSession attaches a connection to the hub and starts its pumps.
func (h *Hub) StartSession(conn wsConnection) *Client {
	client := &Client{
		conn: conn,
		hub:  h,
		send: make(chan []byte, sendBufferSize),
	}

	metrics.IncConnection()

	go client.writePump()
	go client.readPump()

	return client
}

// Route is the dispatcher step for one inbound frame. Decode failures are
// logged and dropped, the session stays open. Before a session has joined a
// room, only JOIN_ROOM is accepted.
func (h *Hub) Route(c *Client, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		metrics.EnvelopesTotal.WithLabelValues("malformed", "dropped").Inc()
		logging.Warn(context.Background(), "dropping undecodable frame", zap.Error(err))
		return
	}

	switch {
	case env.Type == protocol.TypeJoinRoom:
		h.handleJoin(c, env)
	case env.Type == protocol.TypeChatMessage:
		h.handleChat(c, env)
	case env.Type == protocol.TypeStreamReady:
		h.handleStreamReady(c, env)
	case env.Type == protocol.TypeViewerReady:
		h.handleViewerReady(c, env)
	case protocol.IsSignal(env.Type):
		h.handleSignal(c, env)
	default:
		// Hub->client tags arriving inbound are a protocol error: drop.
		metrics.EnvelopesTotal.WithLabelValues(string(env.Type), "ignored").Inc()
		logging.Warn(context.Background(), "ignoring inbound envelope", zap.String("type", string(env.Type)))
	}
}

// Shutdown disconnects every session. Each departure runs the standard
// cleanup path through its own readPump, so registries drain naturally.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.identities))
	for _, id := range h.identities {
		clients = append(clients, id.client)
	}
	h.mu.Unlock()

	logging.Info(ctx, "shutting down hub", zap.Int("sessions", len(clients)))

	for _, c := range clients {
		c.Disconnect()
	}
	return nil
}

// --- registry helpers (caller holds h.mu) ---

// resolveLocked maps a user id to its identity, or nil when stale.
func (h *Hub) resolveLocked(id types.UserIdType) *identity {
	return h.identities[id]
}

// snapshotLocked builds a fully resolved RoomInfo: broadcaster first, then
// viewers in join order. Dangling ids are self-healed by removal.
func (h *Hub) snapshotLocked(r *Room) types.RoomInfo {
	info := types.RoomInfo{
		Id:           r.Id,
		Name:         types.RoomName(r.Id),
		Viewers:      []types.User{},
		StreamActive: r.streamActive,
	}

	if r.broadcaster != "" {
		if id := h.resolveLocked(r.broadcaster); id != nil {
			u := *id.user
			info.Broadcaster = &u
		} else {
			logging.Warn(context.Background(), "dangling broadcaster id, healing",
				zap.String("room_id", string(r.Id)), zap.String("user_id", string(r.broadcaster)))
			r.broadcaster = ""
			r.streamActive = false
		}
	}

	for _, vid := range append([]types.UserIdType(nil), r.viewers...) {
		if id := h.resolveLocked(vid); id != nil {
			info.Viewers = append(info.Viewers, *id.user)
		} else {
			logging.Warn(context.Background(), "dangling viewer id, healing",
				zap.String("room_id", string(r.Id)), zap.String("user_id", string(vid)))
			r.dropViewerLocked(vid)
		}
	}

	return info
}

// collectMembersLocked resolves the room's members to sessions, skipping
// unknown ids. exclude elides one member, usually the originator.
func (h *Hub) collectMembersLocked(r *Room, exclude types.UserIdType) []*Client {
	var targets []*Client
	for _, uid := range r.memberIdsLocked() {
		if uid == exclude {
			continue
		}
		if id := h.resolveLocked(uid); id != nil {
			targets = append(targets, id.client)
		}
	}
	return targets
}

// collectViewersLocked resolves only the room's viewers to sessions.
func (h *Hub) collectViewersLocked(r *Room) []*Client {
	var targets []*Client
	for _, uid := range r.viewers {
		if id := h.resolveLocked(uid); id != nil {
			targets = append(targets, id.client)
		}
	}
	return targets
}

// deleteRoomIfEmptyLocked drops an empty room and its chat log.
func (h *Hub) deleteRoomIfEmptyLocked(r *Room) bool {
	if !r.isEmptyLocked() {
		return false
	}
	delete(h.rooms, r.Id)
	metrics.ActiveRooms.Dec()
	metrics.RoomMembers.DeleteLabelValues(string(r.Id))
	logging.Info(context.Background(), "removed empty room", zap.String("room_id", string(r.Id)))
	return true
}

// --- read-only accessors for the REST surface ---

// ListRooms returns the id-level listing of every known room.
func (h *Hub) ListRooms() []types.RoomListing {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]types.RoomListing, 0, len(h.rooms))
	for _, r := range h.rooms {
		listing := types.RoomListing{
			Id:            r.Id,
			Name:          types.RoomName(r.Id),
			BroadcasterId: r.broadcaster,
			ViewerIds:     append([]types.UserIdType{}, r.viewers...),
			StreamActive:  r.streamActive,
		}
		out = append(out, listing)
	}
	return out
}

// RoomMessages returns the chat tail for a room, at most limit entries,
// most-recent-last. Absent rooms yield an empty slice.
func (h *Hub) RoomMessages(roomId types.RoomIdType, limit int) []types.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomId]
	if !ok {
		return []types.ChatMessage{}
	}
	return r.chat.tail(limit)
}
