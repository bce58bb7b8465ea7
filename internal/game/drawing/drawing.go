package drawing

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type         domain.GameType = "drawing"
	EventUpdate                  = "drawingUpdate"
	EventPrivate                 = "drawingPrivate"
	EventStroke                  = "drawingStroke"
	EventClear                   = "drawingClear"
	EventGuess                   = "drawingGuess"

	revealFor   = 3 * time.Second
	drawerBonus = 5
	maxStrokes  = 2000
)

var words = []string{
	"apple", "bicycle", "rocket", "octopus", "lighthouse", "snowman", "volcano", "guitar",
	"umbrella", "dragon", "pyramid", "cactus", "penguin", "helicopter", "sandwich", "rainbow",
	"anchor", "tornado", "windmill", "skeleton", "pirate", "giraffe", "igloo", "telescope",
}

func init() {
	game.Register(game.Definition{Type: Type, Title: "Draw & Guess", MinPlayers: 2, New: New})
}

type Options struct {
	Rounds       int `json:"rounds" validate:"min=1,max=5"`
	RoundSeconds int `json:"roundSeconds" validate:"min=15,max=240"`
}

type Point struct {
	X float64 `json:"x" validate:"min=0,max=1"`
	Y float64 `json:"y" validate:"min=0,max=1"`
}

type Stroke struct {
	Points []Point `json:"points" validate:"required,min=1,max=512,dive"`
	Color  string  `json:"color" validate:"required,hexcolor"`
	Width  int     `json:"width" validate:"min=1,max=64"`
}

type guessPayload struct {
	Text string `json:"text" validate:"required,max=100"`
}

type phase string

const (
	phaseDrawing phase = "drawing"
	phaseReveal  phase = "reveal"
	phaseDone    phase = "done"
)

// Game rotates the drawer through the players. Everyone else races to guess
// the drawer's word.
type Game struct {
	game.Base
	opts Options

	phase    phase
	turn     int
	drawer   string
	word     string
	deadline time.Time
	strokes  []Stroke
	guessed  map[string]bool
	order    []string // guessers in the order they got it
	points   map[string]int
	used     map[string]bool
	lastWord string
}

func New(env game.Env) (game.Session, error) {
	opts := Options{Rounds: 1, RoundSeconds: 60}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	return &Game{
		Base:   game.NewBase(env),
		opts:   opts,
		points: make(map[string]int),
		used:   make(map[string]bool),
	}, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return 0 }

func (g *Game) turns() int { return g.opts.Rounds * len(g.Env.Players) }

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.beginTurn(g.StartedAt)
}

func (g *Game) pickWord() string {
	free := make([]string, 0, len(words))
	for _, w := range words {
		if !g.used[w] {
			free = append(free, w)
		}
	}
	if len(free) == 0 {
		clear(g.used)
		free = words
	}
	w := free[g.Env.Rand.IntN(len(free))]
	g.used[w] = true
	return w
}

func (g *Game) beginTurn(now time.Time) {
	g.phase = phaseDrawing
	g.drawer = g.Env.Players[g.turn%len(g.Env.Players)].ActorID
	g.word = g.pickWord()
	g.strokes = nil
	g.guessed = make(map[string]bool)
	g.order = nil
	g.deadline = now.Add(game.Seconds(g.opts.RoundSeconds))

	g.Env.Out.Actor(g.drawer, EventPrivate, g.private(g.drawer))
	g.Env.Out.Room(EventUpdate, g.state(now))
}

func (g *Game) endTurn(now time.Time) {
	g.phase = phaseReveal
	g.lastWord = g.word
	g.deadline = now.Add(revealFor)
	g.Env.Out.Room(EventUpdate, g.state(now))
}

func (g *Game) Tick(now time.Time) {
	if g.phase == phaseDone || now.Before(g.deadline) {
		return
	}
	switch g.phase {
	case phaseDrawing:
		g.endTurn(now)
	case phaseReveal:
		g.turn++
		if g.turn >= g.turns() {
			g.phase = phaseDone
			g.Env.Out.Room(EventUpdate, g.state(now))
			g.Complete()
			return
		}
		g.beginTurn(now)
	}
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	if _, ok := g.Player(actorID); !ok {
		return domain.ErrNotMember
	}
	if g.phase != phaseDrawing {
		return domain.ErrWrongPhase
	}
	switch action {
	case "stroke":
		if actorID != g.drawer {
			return domain.ErrNotYourTurn
		}
		var s Stroke
		if err := game.DecodeAction(payload, &s); err != nil {
			return err
		}
		if len(g.strokes) >= maxStrokes {
			return domain.Reject("canvas_full", "clear the canvas first")
		}
		g.strokes = append(g.strokes, s)
		g.Env.Out.Room(EventStroke, s)
		return nil
	case "clear":
		if actorID != g.drawer {
			return domain.ErrNotYourTurn
		}
		g.strokes = nil
		g.Env.Out.Room(EventClear, struct{}{})
		return nil
	case "guess":
		return g.guess(actorID, payload)
	default:
		return domain.ErrUnknownAction
	}
}

func (g *Game) guess(actorID string, payload json.RawMessage) error {
	if actorID == g.drawer {
		return domain.Reject("drawer_cannot_guess", "the drawer cannot guess")
	}
	if g.guessed[actorID] {
		return domain.Reject("already_guessed", "you already found the word")
	}
	var p guessPayload
	if err := game.DecodeAction(payload, &p); err != nil {
		return err
	}
	text := strings.TrimSpace(p.Text)
	now := g.Env.Now()
	if !strings.EqualFold(text, g.word) {
		g.Env.Out.Room(EventGuess, map[string]string{"actorId": actorID, "text": text})
		return nil
	}

	g.guessed[actorID] = true
	g.order = append(g.order, actorID)
	g.points[actorID] += 10 + game.SecondsLeft(now, g.deadline)/6
	g.points[g.drawer] += drawerBonus

	if len(g.guessed) == len(g.Env.Players)-1 {
		g.endTurn(now)
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
	if g.phase == phaseDone {
		reason = "rounds_complete"
	}
	return game.Rank(Type, reason, scores, nil)
}

type state struct {
	Phase     phase          `json:"phase"`
	Turn      int            `json:"turn"`
	Turns     int            `json:"turns"`
	Drawer    string         `json:"drawer"`
	Hint      string         `json:"hint,omitempty"`
	Guessed   []string       `json:"guessed"`
	Strokes   []Stroke       `json:"strokes"`
	Scores    map[string]int `json:"scores"`
	Remaining int            `json:"remaining"`
	Word      string         `json:"word,omitempty"` // set during reveal
}

func (g *Game) state(now time.Time) state {
	s := state{
		Phase:     g.phase,
		Turn:      g.turn + 1,
		Turns:     g.turns(),
		Drawer:    g.drawer,
		Guessed:   append([]string{}, g.order...),
		Strokes:   append([]Stroke{}, g.strokes...),
		Scores:    make(map[string]int, len(g.points)),
		Remaining: game.SecondsLeft(now, g.deadline),
	}
	for id, n := range g.points {
		s.Scores[id] = n
	}
	if g.phase == phaseDrawing {
		s.Hint = mask(g.word)
	} else {
		s.Word = g.lastWord
	}
	return s
}

func mask(w string) string {
	var b strings.Builder
	for i, r := range w {
		if i > 0 {
			b.WriteByte(' ')
		}
		if r == ' ' {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func (g *Game) private(actorID string) any {
	if g.phase == phaseDrawing && actorID == g.drawer {
		return map[string]string{"word": g.word}
	}
	return nil
}

func (g *Game) Snapshot(actorID string) game.View {
	return game.View{Public: g.state(g.Env.Now()), Private: g.private(actorID)}
}
