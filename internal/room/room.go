package room

import (
	"sync"
	"time"

	"party_server/internal/domain"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

type Visibility string

const (
	Public   Visibility = "public"
	Unlisted Visibility = "unlisted"
)

// Room is a capacity-bounded group of players. Exported fields are guarded by
// the room lock.
type Room struct {
	mu sync.Mutex

	ID           string
	Name         string
	Capacity     int
	Visibility   Visibility
	Status       Status
	Players      []*domain.Player // Players[0] is the host
	Teams        []domain.Team
	TeamMode     bool
	RelayMode    bool
	SelectedGame domain.GameType
	CreatedAt    time.Time

	destroyed bool
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// Destroyed reports whether the room was removed from the registry.
func (r *Room) Destroyed() bool { return r.destroyed }

func (r *Room) Host() *domain.Player {
	if len(r.Players) == 0 {
		return nil
	}
	return r.Players[0]
}

func (r *Room) IsHost(actorID string) bool {
	h := r.Host()
	return h != nil && h.ActorID == actorID
}

func (r *Room) Member(actorID string) (*domain.Player, bool) {
	for _, p := range r.Players {
		if p.ActorID == actorID {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) MemberIDs() []string {
	out := make([]string, len(r.Players))
	for i, p := range r.Players {
		out[i] = p.ActorID
	}
	return out
}

func (r *Room) TeamMemberIDs(teamID int) []string {
	var out []string
	for _, p := range r.Players {
		if p.TeamID == teamID {
			out = append(out, p.ActorID)
		}
	}
	return out
}

func (r *Room) hasTeam(id int) bool {
	for _, t := range r.Teams {
		if t.ID == id {
			return true
		}
	}
	return false
}

// smallestTeam returns the team with the fewest members, lowest id on tie.
func (r *Room) smallestTeam() int {
	best, bestCount := 0, -1
	for _, t := range r.Teams {
		n := len(r.TeamMemberIDs(t.ID))
		if bestCount < 0 || n < bestCount || (n == bestCount && t.ID < best) {
			best, bestCount = t.ID, n
		}
	}
	return best
}

func (r *Room) nextTeamID() int {
	for id := 1; id <= domain.MaxTeams; id++ {
		if !r.hasTeam(id) {
			return id
		}
	}
	return 0
}

func (r *Room) remove(actorID string) bool {
	for i, p := range r.Players {
		if p.ActorID == actorID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// View is the projection sent to room members.
type View struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Capacity     int             `json:"capacity"`
	Visibility   Visibility      `json:"visibility"`
	Status       Status          `json:"status"`
	HostID       string          `json:"hostId"`
	Players      []domain.Player `json:"players"`
	Teams        []domain.Team   `json:"teams,omitempty"`
	TeamMode     bool            `json:"teamMode"`
	RelayMode    bool            `json:"relayMode"`
	SelectedGame domain.GameType `json:"selectedGame,omitempty"`
}

// Summary is the redacted projection used for the public lobby list.
type Summary struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Occupancy    int             `json:"occupancy"`
	Capacity     int             `json:"capacity"`
	Status       Status          `json:"status"`
	SelectedGame domain.GameType `json:"selectedGame,omitempty"`
}

// View copies the room state. Caller holds the lock.
func (r *Room) View() View {
	v := View{
		ID:           r.ID,
		Name:         r.Name,
		Capacity:     r.Capacity,
		Visibility:   r.Visibility,
		Status:       r.Status,
		TeamMode:     r.TeamMode,
		RelayMode:    r.RelayMode,
		SelectedGame: r.SelectedGame,
		Players:      make([]domain.Player, len(r.Players)),
		Teams:        append([]domain.Team(nil), r.Teams...),
	}
	for i, p := range r.Players {
		v.Players[i] = *p
	}
	if h := r.Host(); h != nil {
		v.HostID = h.ActorID
	}
	return v
}

func (r *Room) Summary() Summary {
	return Summary{
		ID:           r.ID,
		Name:         r.Name,
		Occupancy:    len(r.Players),
		Capacity:     r.Capacity,
		Status:       r.Status,
		SelectedGame: r.SelectedGame,
	}
}
