package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"party_server/internal/game"
	"party_server/internal/room"
)

// ListRooms returns public rooms, the same list the lobby pushes over ws.
func (h *Handler) ListRooms(c *gin.Context) {
	list := h.Rooms.ListPublic()
	if list == nil {
		list = []room.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": list})
}

// ListGames returns the game catalog.
func (h *Handler) ListGames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": game.Definitions()})
}
