package sumgrid

import (
	"context"
	"encoding/json"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type        domain.GameType = "sumgrid"
	EventUpdate                 = "sumgridUpdate"

	Rows   = 10
	Cols   = 17
	Target = 10
)

func init() {
	game.Register(game.Definition{Type: Type, Title: "Make Ten", MinPlayers: 1, TeamAware: true, New: New})
}

type Options struct {
	Seconds int `json:"seconds" validate:"min=10,max=900"`
}

type cell struct {
	Value int    `json:"v"`
	Owner string `json:"o,omitempty"`
}

// Game is a race to claim rectangles of digits that add up to ten. Claiming
// an already owned cell takes it from its owner.
type Game struct {
	game.Base
	opts     Options
	grid     [Rows][Cols]cell
	owned    map[string]int
	deadline time.Time
}

type selectPayload struct {
	R1 *int `json:"r1" validate:"required,min=0,max=9"`
	C1 *int `json:"c1" validate:"required,min=0,max=16"`
	R2 *int `json:"r2" validate:"required,min=0,max=9"`
	C2 *int `json:"c2" validate:"required,min=0,max=16"`
}

func New(env game.Env) (game.Session, error) {
	opts := Options{Seconds: 120}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	g := &Game{Base: game.NewBase(env), opts: opts, owned: make(map[string]int)}
	for r := range g.grid {
		for c := range g.grid[r] {
			g.grid[r][c].Value = env.Rand.IntN(9) + 1
		}
	}
	return g, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return game.Seconds(g.opts.Seconds) }

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.deadline = g.StartedAt.Add(g.Duration())
}

func (g *Game) Tick(now time.Time) {
	g.Env.Out.Room(EventUpdate, map[string]any{"remaining": game.SecondsLeft(now, g.deadline)})
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	if action != "select" {
		return domain.ErrUnknownAction
	}
	if !g.Env.Relay.CanAct(actorID) {
		return domain.ErrNotYourTurn
	}
	var p selectPayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	r1, r2 := order(*p.R1, *p.R2)
	c1, c2 := order(*p.C1, *p.C2)

	sum := 0
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			sum += g.grid[r][c].Value
		}
	}
	if sum != Target {
		return domain.Reject("bad_sum", "selection must add up to 10")
	}

	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			prev := g.grid[r][c].Owner
			if prev == actorID {
				continue
			}
			if prev != "" {
				g.owned[prev]--
			}
			g.grid[r][c].Owner = actorID
			g.owned[actorID]++
		}
	}

	g.Env.Out.Room(EventUpdate, g.state(g.Env.Now()))
	return nil
}

func order(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

func (g *Game) CalculateResults() game.Results {
	scores := g.Scores()
	for i := range scores {
		scores[i].Score = g.owned[scores[i].ActorID]
	}
	return game.Rank(Type, "time_up", scores, g.Env.Teams)
}

type state struct {
	Grid      [Rows][Cols]cell `json:"grid"`
	Scores    map[string]int   `json:"scores"`
	Remaining int              `json:"remaining"`
}

func (g *Game) state(now time.Time) state {
	s := state{Grid: g.grid, Scores: make(map[string]int, len(g.owned)), Remaining: game.SecondsLeft(now, g.deadline)}
	for id, n := range g.owned {
		s.Scores[id] = n
	}
	return s
}

func (g *Game) Snapshot(string) game.View {
	return game.View{Public: g.state(g.Env.Now())}
}
