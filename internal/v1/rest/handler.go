// Package rest serves the read-only administrative endpoints.
package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dhakb/vestream/internal/v1/types"
)

// RoomReader is the slice of the hub the REST surface needs.
type RoomReader interface {
	ListRooms() []types.RoomListing
	RoomMessages(roomId types.RoomIdType, limit int) []types.ChatMessage
}

// Handler exposes room listings and chat tails.
type Handler struct {
	rooms RoomReader
}

// NewHandler creates a REST handler over the given room reader.
func NewHandler(rooms RoomReader) *Handler {
	return &Handler{rooms: rooms}
}

// ListRooms handles GET /rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.ListRooms())
}

// RoomMessages handles GET /rooms/:roomId/messages?limit=N.
// Absent rooms return an empty array, not a 404.
func (h *Handler) RoomMessages(c *gin.Context) {
	roomId := types.RoomIdType(c.Param("roomId"))

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, h.rooms.RoomMessages(roomId, limit))
}
