package tictactoe

import (
	"context"
	"encoding/json"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type        domain.GameType = "tictactoe"
	EventUpdate                 = "tictactoeUpdate"

	markX = "X"
	markO = "O"

	defaultTurnSeconds = 30
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func init() {
	game.Register(game.Definition{Type: Type, Title: "Tic-tac-toe", MinPlayers: 2, New: New})
}

// Options. TurnSeconds 0 disables the move clock.
type Options struct {
	TurnSeconds int `json:"turnSeconds" validate:"min=0,max=300"`
}

// Game is a two-player mark placement game. Players beyond the first two
// watch. A player who lets the move clock run out forfeits.
type Game struct {
	game.Base
	opts     Options
	deadline time.Time
	forfeit  bool
	board    [9]string
	players  [2]string // X, O
	turn     int
	moves    int
	winner   int // -1 none
	line     []int
	finished bool
}

type placePayload struct {
	Position *int `json:"position" validate:"required,min=0,max=8"`
}

func New(env game.Env) (game.Session, error) {
	opts := Options{TurnSeconds: defaultTurnSeconds}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	g := &Game{Base: game.NewBase(env), opts: opts, winner: -1}
	g.players[0] = env.Players[0].ActorID
	g.players[1] = env.Players[1].ActorID
	return g, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return 0 }

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.resetClock(g.StartedAt)
}

func (g *Game) resetClock(now time.Time) {
	if g.opts.TurnSeconds <= 0 {
		return
	}
	g.deadline = now.Add(game.Seconds(g.opts.TurnSeconds))
}

// Tick forfeits the player whose move clock ran out.
func (g *Game) Tick(now time.Time) {
	if g.finished || g.deadline.IsZero() || now.Before(g.deadline) {
		return
	}
	g.winner = 1 - g.turn
	g.forfeit = true
	g.finished = true
	g.deadline = time.Time{}
	g.Env.Out.Room(EventUpdate, g.state(now))
	g.Complete()
}

func (g *Game) seat(actorID string) int {
	for i, id := range g.players {
		if id == actorID {
			return i
		}
	}
	return -1
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	if action != "place" {
		return domain.ErrUnknownAction
	}
	if g.finished {
		return domain.ErrWrongPhase
	}
	seat := g.seat(actorID)
	if seat < 0 {
		return domain.Reject("spectator", "spectators cannot place marks")
	}
	if seat != g.turn {
		return domain.ErrNotYourTurn
	}
	var p placePayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	pos := *p.Position
	if g.board[pos] != "" {
		return domain.Reject("cell_taken", "cell already marked")
	}

	g.board[pos] = mark(seat)
	g.moves++

	if line := g.completedLine(mark(seat)); line != nil {
		g.winner = seat
		g.line = line
		g.finished = true
	} else if g.moves == len(g.board) {
		g.finished = true
	} else {
		g.turn = 1 - g.turn
	}

	now := g.Env.Now()
	if g.finished {
		g.deadline = time.Time{}
	} else {
		g.resetClock(now)
	}
	g.Env.Out.Room(EventUpdate, g.state(now))
	if g.finished {
		g.Complete()
	}
	return nil
}

func (g *Game) completedLine(m string) []int {
	for _, l := range lines {
		if g.board[l[0]] == m && g.board[l[1]] == m && g.board[l[2]] == m {
			return []int{l[0], l[1], l[2]}
		}
	}
	return nil
}

func (g *Game) CalculateResults() game.Results {
	scores := g.Scores()
	reason := "unfinished"
	switch {
	case g.winner >= 0:
		reason = "line"
		if g.forfeit {
			reason = "forfeit"
		}
		for i := range scores {
			if scores[i].ActorID == g.players[g.winner] {
				scores[i].Score = 1
			}
		}
	case g.finished:
		reason = "draw"
	}
	res := game.Rank(Type, reason, scores, nil)
	res.Details = map[string]any{"board": g.board, "line": g.line}
	return res
}

type state struct {
	Board     [9]string         `json:"board"`
	Marks     map[string]string `json:"marks"`
	Turn      string            `json:"turn"`
	Winner    string            `json:"winner,omitempty"`
	Line      []int             `json:"line,omitempty"`
	Finished  bool              `json:"finished"`
	Forfeit   bool              `json:"forfeit,omitempty"`
	Remaining int               `json:"remaining"`
}

func (g *Game) state(now time.Time) state {
	s := state{
		Board:     g.board,
		Marks:     map[string]string{markX: g.players[0], markO: g.players[1]},
		Turn:      mark(g.turn),
		Line:      g.line,
		Finished:  g.finished,
		Forfeit:   g.forfeit,
		Remaining: game.SecondsLeft(now, g.deadline),
	}
	if g.winner >= 0 {
		s.Winner = mark(g.winner)
	}
	return s
}

func (g *Game) Snapshot(string) game.View {
	return game.View{Public: g.state(g.Env.Now())}
}

func mark(seat int) string {
	if seat == 0 {
		return markX
	}
	return markO
}
