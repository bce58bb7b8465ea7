package ballrace

import (
	"context"
	"encoding/json"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type        domain.GameType = "ballrace"
	EventUpdate                 = "ballraceUpdate"
)

func init() {
	game.Register(game.Definition{Type: Type, Title: "Ball Race", MinPlayers: 1, TeamAware: true, New: New})
}

type Options struct {
	Rounds int `json:"rounds" validate:"min=1,max=10"`
	Balls  int `json:"balls" validate:"min=3,max=30"`
}

type Ball struct {
	Number int     `json:"number"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Owner  string  `json:"owner,omitempty"`
}

// Game has players claim numbered balls in ascending order.
type Game struct {
	game.Base
	opts   Options
	round  int
	next   int
	balls  []Ball
	points map[string]int
	over   bool
}

type claimPayload struct {
	Number int `json:"number" validate:"required,min=1"`
}

func New(env game.Env) (game.Session, error) {
	opts := Options{Rounds: 3, Balls: 10}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	g := &Game{Base: game.NewBase(env), opts: opts, points: make(map[string]int)}
	g.deal()
	return g, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return 0 }
func (g *Game) Tick(time.Time) {}

// deal scatters a fresh set of balls for the next round.
func (g *Game) deal() {
	g.round++
	g.next = 1
	g.balls = make([]Ball, g.opts.Balls)
	for i := range g.balls {
		g.balls[i] = Ball{Number: i + 1, X: g.Env.Rand.Float64() * 100, Y: g.Env.Rand.Float64() * 100}
	}
	g.Env.Rand.Shuffle(len(g.balls), func(i, j int) { g.balls[i], g.balls[j] = g.balls[j], g.balls[i] })
}

func (g *Game) ball(n int) *Ball {
	for i := range g.balls {
		if g.balls[i].Number == n {
			return &g.balls[i]
		}
	}
	return nil
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	if action != "claim" {
		return domain.ErrUnknownAction
	}
	if g.over {
		return domain.ErrWrongPhase
	}
	if !g.Env.Relay.CanAct(actorID) {
		return domain.ErrNotYourTurn
	}
	var p claimPayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	b := g.ball(p.Number)
	switch {
	case b == nil:
		return domain.Reject("no_such_ball", "no ball with that number")
	case b.Owner != "":
		return domain.Reject("already_claimed", "someone got there first")
	case p.Number != g.next:
		return domain.Reject("out_of_order", "claim the lowest free number")
	}

	b.Owner = actorID
	g.points[actorID]++
	g.next++

	if g.next > g.opts.Balls {
		if g.round >= g.opts.Rounds {
			g.over = true
		} else {
			g.deal()
		}
	}
	g.Env.Out.Room(EventUpdate, g.state())
	if g.over {
		g.Complete()
	}
	return nil
}

func (g *Game) CalculateResults() game.Results {
	scores := g.Scores()
	for i := range scores {
		scores[i].Score = g.points[scores[i].ActorID]
	}
	reason := "unfinished"
	if g.over {
		reason = "rounds_complete"
	}
	return game.Rank(Type, reason, scores, g.Env.Teams)
}

type state struct {
	Round  int            `json:"round"`
	Rounds int            `json:"rounds"`
	Next   int            `json:"next"`
	Balls  []Ball         `json:"balls"`
	Scores map[string]int `json:"scores"`
}

func (g *Game) state() state {
	s := state{
		Round:  g.round,
		Rounds: g.opts.Rounds,
		Next:   g.next,
		Balls:  append([]Ball(nil), g.balls...),
		Scores: make(map[string]int, len(g.points)),
	}
	for id, n := range g.points {
		s.Scores[id] = n
	}
	return s
}

func (g *Game) Snapshot(string) game.View {
	return game.View{Public: g.state()}
}
