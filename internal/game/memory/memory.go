package memory

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type        domain.GameType = "memory"
	EventUpdate                 = "memoryUpdate"

	baseLength = 3
	cells      = 9
	perStep    = 800 * time.Millisecond
)

func init() {
	game.Register(game.Definition{Type: Type, Title: "Memory", MinPlayers: 1, New: New})
}

type Options struct {
	Rounds        int `json:"rounds" validate:"min=1,max=10"`
	RecallSeconds int `json:"recallSeconds" validate:"min=5,max=120"`
}

type stage string

const (
	stageShow   stage = "show"
	stageRecall stage = "recall"
	stageDone   stage = "done"
)

// Game flashes a growing sequence of cells and asks everyone to repeat it.
type Game struct {
	game.Base
	opts Options

	round     int
	stage     stage
	sequence  []int
	deadline  time.Time
	submitted map[string]bool
	correct   map[string]bool
	points    map[string]int
}

type submitPayload struct {
	Sequence []int `json:"sequence" validate:"required,max=32,dive,min=0,max=8"`
}

func New(env game.Env) (game.Session, error) {
	opts := Options{Rounds: 5, RecallSeconds: 15}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	return &Game{Base: game.NewBase(env), opts: opts, points: make(map[string]int)}, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return 0 }

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.show(g.StartedAt)
}

func (g *Game) length() int { return baseLength + g.round }

func (g *Game) show(now time.Time) {
	g.stage = stageShow
	g.sequence = make([]int, g.length())
	for i := range g.sequence {
		g.sequence[i] = g.Env.Rand.IntN(cells)
	}
	g.submitted = make(map[string]bool)
	g.correct = make(map[string]bool)
	g.deadline = now.Add(time.Duration(g.length()) * perStep)
	g.Env.Out.Room(EventUpdate, g.state(now))
}

func (g *Game) Tick(now time.Time) {
	if g.stage == stageDone || now.Before(g.deadline) {
		return
	}
	switch g.stage {
	case stageShow:
		g.stage = stageRecall
		g.deadline = now.Add(game.Seconds(g.opts.RecallSeconds))
		g.Env.Out.Room(EventUpdate, g.state(now))
	case stageRecall:
		g.nextRound(now)
	}
}

func (g *Game) nextRound(now time.Time) {
	g.round++
	if g.round >= g.opts.Rounds {
		g.stage = stageDone
		g.Env.Out.Room(EventUpdate, g.state(now))
		g.Complete()
		return
	}
	g.show(now)
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	if action != "submit" {
		return domain.ErrUnknownAction
	}
	if _, ok := g.Player(actorID); !ok {
		return domain.ErrNotMember
	}
	if g.stage != stageRecall {
		return domain.ErrWrongPhase
	}
	if g.submitted[actorID] {
		return domain.Reject("already_submitted", "one answer per round")
	}
	var p submitPayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	g.submitted[actorID] = true
	if slices.Equal(p.Sequence, g.sequence) {
		g.correct[actorID] = true
		g.points[actorID] += g.length()
	}

	now := g.Env.Now()
	if len(g.submitted) == len(g.Env.Players) {
		g.nextRound(now)
		return nil
	}
	g.Env.Out.Room(EventUpdate, g.state(now))
	return nil
}

func (g *Game) CalculateResults() game.Results {
	scores := g.Scores()
	for i := range scores {
		scores[i].Score = g.points[scores[i].ActorID]
	}
	reason := "unfinished"
	if g.stage == stageDone {
		reason = "rounds_complete"
	}
	return game.Rank(Type, reason, scores, nil)
}

type state struct {
	Round     int            `json:"round"`
	Rounds    int            `json:"rounds"`
	Stage     stage          `json:"stage"`
	Length    int            `json:"length"`
	Sequence  []int          `json:"sequence,omitempty"` // only while showing
	Submitted []string       `json:"submitted"`
	Scores    map[string]int `json:"scores"`
	Remaining int            `json:"remaining"`
}

func (g *Game) state(now time.Time) state {
	s := state{
		Round:     g.round + 1,
		Rounds:    g.opts.Rounds,
		Stage:     g.stage,
		Length:    g.length(),
		Submitted: []string{},
		Scores:    make(map[string]int, len(g.points)),
		Remaining: game.SecondsLeft(now, g.deadline),
	}
	if g.stage == stageShow {
		s.Sequence = slices.Clone(g.sequence)
	}
	for _, p := range g.Env.Players {
		if g.submitted[p.ActorID] {
			s.Submitted = append(s.Submitted, p.ActorID)
		}
	}
	for id, n := range g.points {
		s.Scores[id] = n
	}
	return s
}

func (g *Game) Snapshot(string) game.View {
	return game.View{Public: g.state(g.Env.Now())}
}
