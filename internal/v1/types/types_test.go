package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleTypeBroadcaster))
	assert.True(t, ValidRole(RoleTypeViewer))
	assert.False(t, ValidRole("moderator"))
	assert.False(t, ValidRole(""))
}

func TestFoldUsername(t *testing.T) {
	assert.Equal(t, FoldUsername("Alice"), FoldUsername("ALICE"))
	assert.Equal(t, "bob", FoldUsername("Bob"))
	assert.NotEqual(t, FoldUsername("alice"), FoldUsername("alicia"))
}

func TestRoomName(t *testing.T) {
	assert.Equal(t, "Room lobby", RoomName("lobby"))
}

func TestJoinErrorMessage(t *testing.T) {
	err := NewJoinError(ErrCodeRoomNotFound, "room does not exist")
	assert.Equal(t, "ROOM_NOT_FOUND: room does not exist", err.Error())
}
