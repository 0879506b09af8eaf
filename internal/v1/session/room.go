package session

import (
	"k8s.io/utils/set"

	"github.com/dhakb/vestream/internal/v1/types"
)

// Room holds the authoritative state of one broadcast room. All fields are
// guarded by the hub mutex; every method here requires it to be held.
//
// Membership invariants (checked by the hub at operation boundaries):
//   - at most one broadcaster at any instant
//   - usernames unique under ASCII lowercase folding
//   - streamActive implies a broadcaster is present
//   - an empty room is removed from the registry together with its chat log
type Room struct {
	Id types.RoomIdType

	broadcaster  types.UserIdType   // "" when absent
	viewers      []types.UserIdType // join order
	names        set.Set[string]    // case-folded usernames of current members
	streamActive bool

	chat *chatLog
}

func newRoom(id types.RoomIdType) *Room {
	return &Room{
		Id:    id,
		names: set.New[string](),
		chat:  newChatLog(maxChatHistoryLength),
	}
}

// hasUsernameLocked reports whether the folded username is taken in the room.
func (r *Room) hasUsernameLocked(username string) bool {
	return r.names.Has(types.FoldUsername(username))
}

// addMemberLocked seats a user in the room. The caller has already checked
// the role and username invariants.
func (r *Room) addMemberLocked(user *types.User) {
	if user.Role == types.RoleTypeBroadcaster {
		r.broadcaster = user.Id
	} else {
		r.viewers = append(r.viewers, user.Id)
	}
	r.names.Insert(types.FoldUsername(user.Username))
}

// removeMemberLocked unseats a user. A departing broadcaster also drops the
// stream-active flag.
func (r *Room) removeMemberLocked(user *types.User) {
	if user.Id == r.broadcaster {
		r.broadcaster = ""
		r.streamActive = false
	} else {
		for i, id := range r.viewers {
			if id == user.Id {
				r.viewers = append(r.viewers[:i], r.viewers[i+1:]...)
				break
			}
		}
	}
	r.names.Delete(types.FoldUsername(user.Username))
}

// dropViewerLocked removes a dangling viewer id found during traversal.
func (r *Room) dropViewerLocked(id types.UserIdType) {
	for i, v := range r.viewers {
		if v == id {
			r.viewers = append(r.viewers[:i], r.viewers[i+1:]...)
			return
		}
	}
}

// isEmptyLocked reports whether the room has no members left.
func (r *Room) isEmptyLocked() bool {
	return r.broadcaster == "" && len(r.viewers) == 0
}

// memberCountLocked returns the current member count.
func (r *Room) memberCountLocked() int {
	n := len(r.viewers)
	if r.broadcaster != "" {
		n++
	}
	return n
}

// memberIdsLocked returns broadcaster first, then viewers in join order.
func (r *Room) memberIdsLocked() []types.UserIdType {
	ids := make([]types.UserIdType, 0, r.memberCountLocked())
	if r.broadcaster != "" {
		ids = append(ids, r.broadcaster)
	}
	return append(ids, r.viewers...)
}
