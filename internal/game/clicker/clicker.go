package clicker

import (
	"context"
	"encoding/json"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type        domain.GameType = "clicker"
	EventUpdate                 = "clickerUpdate"
)

func init() {
	game.Register(game.Definition{Type: Type, Title: "Clicker", MinPlayers: 1, TeamAware: true, New: New})
}

type Options struct {
	Seconds int `json:"seconds" validate:"min=5,max=600"`
}

// Game counts clicks until the deadline.
type Game struct {
	game.Base
	opts     Options
	clicks   map[string]int
	deadline time.Time
}

func New(env game.Env) (game.Session, error) {
	opts := Options{Seconds: 30}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	return &Game{Base: game.NewBase(env), opts: opts, clicks: make(map[string]int)}, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return game.Seconds(g.opts.Seconds) }

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.deadline = g.StartedAt.Add(g.Duration())
}

func (g *Game) Tick(now time.Time) {
	g.Env.Out.Room(EventUpdate, g.state(now))
}

func (g *Game) HandleAction(actorID, action string, _ json.RawMessage) error {
	if action != "click" {
		return domain.ErrUnknownAction
	}
	if !g.Env.Relay.CanAct(actorID) {
		return domain.ErrNotYourTurn
	}
	g.clicks[actorID]++
	g.Env.Out.Room(EventUpdate, g.state(g.Env.Now()))
	return nil
}

func (g *Game) CalculateResults() game.Results {
	scores := g.Scores()
	for i := range scores {
		scores[i].Score = g.clicks[scores[i].ActorID]
	}
	return game.Rank(Type, "time_up", scores, g.Env.Teams)
}

type state struct {
	Clicks    map[string]int `json:"clicks"`
	Teams     map[int]int    `json:"teams,omitempty"`
	Remaining int            `json:"remaining"`
}

func (g *Game) state(now time.Time) state {
	s := state{Clicks: make(map[string]int, len(g.clicks)), Remaining: game.SecondsLeft(now, g.deadline)}
	for id, n := range g.clicks {
		s.Clicks[id] = n
	}
	if len(g.Env.Teams) > 0 {
		s.Teams = make(map[int]int, len(g.Env.Teams))
		for _, p := range g.Env.Players {
			s.Teams[p.TeamID] += g.clicks[p.ActorID]
		}
	}
	return s
}

func (g *Game) Snapshot(string) game.View {
	return game.View{Public: g.state(g.Env.Now())}
}
