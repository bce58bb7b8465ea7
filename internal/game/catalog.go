package game

import (
	"fmt"
	"sort"
	"sync"

	"party_server/internal/domain"
)

// Definition registers a game type.
type Definition struct {
	Type       domain.GameType              `json:"type"`
	Title      string                       `json:"title"`
	MinPlayers int                          `json:"minPlayers"`
	MaxPlayers int                          `json:"maxPlayers,omitempty"` // 0: room capacity
	TeamAware  bool                         `json:"teamAware"`
	New        func(env Env) (Session, error) `json:"-"`
}

var (
	catalogMu sync.RWMutex
	catalog   = make(map[domain.GameType]Definition)
)

// Register adds def to the catalog. Called from game package init functions.
func Register(def Definition) {
	if def.Type == "" || def.New == nil {
		panic("game: invalid definition")
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, dup := catalog[def.Type]; dup {
		panic(fmt.Sprintf("game: %s registered twice", def.Type))
	}
	catalog[def.Type] = def
}

func Lookup(t domain.GameType) (Definition, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	def, ok := catalog[t]
	return def, ok
}

// Definitions lists registered games sorted by type.
func Definitions() []Definition {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make([]Definition, 0, len(catalog))
	for _, def := range catalog {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Create builds a session for t after checking the player count.
func Create(t domain.GameType, env Env) (Session, error) {
	def, ok := Lookup(t)
	if !ok {
		return nil, domain.ErrUnknownGame
	}
	if len(env.Players) < def.MinPlayers {
		return nil, domain.ErrNotEnoughPlayers
	}
	if def.MaxPlayers > 0 && len(env.Players) > def.MaxPlayers {
		return nil, domain.Reject("too_many_players", fmt.Sprintf("%s allows at most %d players", t, def.MaxPlayers))
	}
	if !def.TeamAware {
		env.Teams = nil
	}
	if env.Relay == nil {
		env.Relay = AllowAll
	}
	return def.New(env)
}
