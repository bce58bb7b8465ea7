package handlers

import (
	"context"

	"party_server/internal/room"
	"party_server/internal/service"
)

// RoomLister is the read side of the room registry.
type RoomLister interface {
	ListPublic() []room.Summary
	Count() int
}

// OutcomeHistory serves stored results for a user.
type OutcomeHistory interface {
	History(ctx context.Context, userID int64, limit int) (*service.OutcomeHistory, error)
}

type Handler struct {
	Rooms    RoomLister
	Outcomes OutcomeHistory
}

func NewHandler(rooms RoomLister, outcomes OutcomeHistory) *Handler {
	return &Handler{Rooms: rooms, Outcomes: outcomes}
}

var _ OutcomeHistory = (*service.OutcomeService)(nil)
