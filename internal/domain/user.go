package domain

// Identity is the external user linkage attached to a connection.
// A nil *Identity means the actor is anonymous.
type Identity struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatar,omitempty"`
}

// Actor is a connected participant as seen by the room registry.
type Actor struct {
	ID       string
	Name     string
	Avatar   string
	Identity *Identity
}

// Player is a room member.
type Player struct {
	ActorID  string    `json:"actorId"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	TeamID   int       `json:"teamId,omitempty"`
	Identity *Identity `json:"-"`
}

// Team groups players while team mode is on.
type Team struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

var teamPalette = []struct{ name, color string }{
	{"Red", "#e74c3c"},
	{"Blue", "#3498db"},
	{"Green", "#2ecc71"},
	{"Yellow", "#f1c40f"},
	{"Purple", "#9b59b6"},
	{"Orange", "#e67e22"},
	{"Teal", "#1abc9c"},
	{"Pink", "#fd79a8"},
}

const (
	MinTeams = 2
	MaxTeams = 8
)

// NewTeam returns the palette team for id (1-based).
func NewTeam(id int) Team {
	p := teamPalette[(id-1)%len(teamPalette)]
	return Team{ID: id, Name: p.name, Color: p.color}
}
