package game

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"party_server/internal/domain"
)

// Participant is a player snapshot taken when the game starts.
type Participant struct {
	ActorID  string           `json:"actorId"`
	Name     string           `json:"name"`
	TeamID   int              `json:"teamId,omitempty"`
	Identity *domain.Identity `json:"-"`
}

// Emitter sends events scoped to the session's room.
type Emitter interface {
	Room(event string, payload any)
	Team(teamID int, event string, payload any)
	Actor(actorID, event string, payload any)
}

// Gate decides whether an actor may change shared state right now.
type Gate interface {
	CanAct(actorID string) bool
}

// ContentSource fetches reusable content documents.
type ContentSource interface {
	FetchDocument(ctx context.Context, id string) (*domain.Document, error)
}

// Env carries everything a session needs from its host room.
type Env struct {
	RoomID  string
	Players []Participant
	Teams   []domain.Team // empty unless the game is team aware and team mode is on
	Options json.RawMessage
	Out     Emitter
	Relay   Gate
	Content ContentSource
	Now     func() time.Time
	Rand    *rand.Rand
}

// Session is one room's running game.
//
// Every method except Initialize is called with the room lock held, so
// implementations keep no locks of their own. Initialize may block on I/O and
// must not emit.
type Session interface {
	Type() domain.GameType
	Initialize(ctx context.Context) error
	// Duration is the hard deadline for time-bounded games, 0 otherwise.
	Duration() time.Duration
	StartUpdateLoop(onComplete func())
	Tick(now time.Time)
	HandleAction(actorID, action string, payload json.RawMessage) error
	CalculateResults() Results
	Snapshot(actorID string) View
}

// View is what one actor is allowed to see.
type View struct {
	Public  any `json:"state"`
	Private any `json:"private,omitempty"`
}

type allowAll struct{}

func (allowAll) CanAct(string) bool { return true }

// AllowAll is the gate used when relay mode is off.
var AllowAll Gate = allowAll{}
