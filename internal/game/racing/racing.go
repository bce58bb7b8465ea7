package racing

import (
	"context"
	"encoding/json"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

const (
	Type        domain.GameType = "racing"
	EventUpdate                 = "racingUpdate"

	powerUpLife = 4 * time.Second
	boostFor    = 5 * time.Second
	freezeFor   = 2 * time.Second
	maxOnTrack  = 3
)

type Kind string

const (
	Boost  Kind = "boost"
	Freeze Kind = "freeze"
	Shield Kind = "shield"
)

var kinds = []Kind{Boost, Freeze, Shield}

func init() {
	game.Register(game.Definition{Type: Type, Title: "Tap Race", MinPlayers: 1, TeamAware: true, New: New})
}

type Options struct {
	Seconds      int `json:"seconds" validate:"min=10,max=600"`
	TrackLength  int `json:"trackLength" validate:"min=10,max=1000"`
	SpawnSeconds int `json:"spawnSeconds" validate:"min=1,max=60"`
}

type PowerUp struct {
	ID       int       `json:"id"`
	Kind     Kind      `json:"kind"`
	Position int       `json:"position"`
	Expires  time.Time `json:"expires"`
}

type racer struct {
	distance     int
	boostedUntil time.Time
	frozenUntil  time.Time
	shielded     bool
	finished     bool
}

// Game is a tapping race with power-ups scattered along the track.
type Game struct {
	game.Base
	opts Options

	racers    map[string]*racer
	finishers []string
	powerUps  []PowerUp
	nextID    int
	lastSpawn time.Time
	deadline  time.Time
}

type pickupPayload struct {
	ID int `json:"id" validate:"required,min=1"`
}

func New(env game.Env) (game.Session, error) {
	opts := Options{Seconds: 90, TrackLength: 100, SpawnSeconds: 5}
	if err := game.DecodeOptions(env.Options, &opts); err != nil {
		return nil, err
	}
	g := &Game{Base: game.NewBase(env), opts: opts, racers: make(map[string]*racer, len(env.Players))}
	for _, p := range env.Players {
		g.racers[p.ActorID] = &racer{}
	}
	return g, nil
}

func (g *Game) Type() domain.GameType { return Type }
func (g *Game) Initialize(context.Context) error { return nil }
func (g *Game) Duration() time.Duration { return game.Seconds(g.opts.Seconds) }

func (g *Game) StartUpdateLoop(onComplete func()) {
	g.Base.StartUpdateLoop(onComplete)
	g.lastSpawn = g.StartedAt
	g.deadline = g.StartedAt.Add(g.Duration())
}

func (g *Game) Tick(now time.Time) {
	live := g.powerUps[:0]
	for _, pu := range g.powerUps {
		if now.Before(pu.Expires) {
			live = append(live, pu)
		}
	}
	g.powerUps = live

	if now.Sub(g.lastSpawn) >= game.Seconds(g.opts.SpawnSeconds) {
		g.lastSpawn = now
		if len(g.powerUps) < maxOnTrack {
			g.nextID++
			g.powerUps = append(g.powerUps, PowerUp{
				ID:       g.nextID,
				Kind:     kinds[g.Env.Rand.IntN(len(kinds))],
				Position: 1 + g.Env.Rand.IntN(g.opts.TrackLength-1),
				Expires:  now.Add(powerUpLife),
			})
		}
	}
	g.Env.Out.Room(EventUpdate, g.state(now))
}

func (g *Game) HandleAction(actorID, action string, payload json.RawMessage) error {
	r, ok := g.racers[actorID]
	if !ok {
		return domain.ErrNotMember
	}
	if !g.Env.Relay.CanAct(actorID) {
		return domain.ErrNotYourTurn
	}
	if r.finished {
		return domain.Reject("finished", "you already crossed the line")
	}
	now := g.Env.Now()
	switch action {
	case "tap":
		if now.Before(r.frozenUntil) {
			return domain.Reject("frozen", "you are frozen")
		}
		step := 1
		if now.Before(r.boostedUntil) {
			step = 2
		}
		r.distance = min(r.distance+step, g.opts.TrackLength)
		if r.distance == g.opts.TrackLength {
			r.finished = true
			g.finishers = append(g.finishers, actorID)
		}
	case "pickup":
		var p pickupPayload
		if err := game.DecodeAction(payload, &p); err != nil {
			return err
		}
		if err := g.pickup(now, actorID, p.ID); err != nil {
			return err
		}
	default:
		return domain.ErrUnknownAction
	}

	g.Env.Out.Room(EventUpdate, g.state(now))
	if len(g.finishers) == len(g.racers) {
		g.Complete()
	}
	return nil
}

func (g *Game) pickup(now time.Time, actorID string, id int) error {
	idx := -1
	for i, pu := range g.powerUps {
		if pu.ID == id && now.Before(pu.Expires) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Reject("power_up_gone", "power-up is gone")
	}
	pu := g.powerUps[idx]
	g.powerUps = append(g.powerUps[:idx], g.powerUps[idx+1:]...)

	r := g.racers[actorID]
	switch pu.Kind {
	case Boost:
		r.boostedUntil = now.Add(boostFor)
	case Shield:
		r.shielded = true
	case Freeze:
		for other, o := range g.racers {
			if other == actorID || o.finished {
				continue
			}
			if o.shielded {
				o.shielded = false
				continue
			}
			o.frozenUntil = now.Add(freezeFor)
		}
	}
	return nil
}

func (g *Game) CalculateResults() game.Results {
	finishIndex := make(map[string]int, len(g.finishers))
	for i, id := range g.finishers {
		finishIndex[id] = i
	}
	n := len(g.Env.Players)
	scores := g.Scores()
	for i := range scores {
		id := scores[i].ActorID
		if fi, ok := finishIndex[id]; ok {
			scores[i].Score = g.opts.TrackLength + (n - fi)
			continue
		}
		scores[i].Score = g.racers[id].distance
	}
	reason := "time_up"
	if len(g.finishers) == len(g.racers) {
		reason = "all_finished"
	}
	return game.Rank(Type, reason, scores, g.Env.Teams)
}

type racerView struct {
	Distance int  `json:"distance"`
	Boosted  bool `json:"boosted,omitempty"`
	Frozen   bool `json:"frozen,omitempty"`
	Shielded bool `json:"shielded,omitempty"`
	Finished bool `json:"finished,omitempty"`
}

type state struct {
	TrackLength int                  `json:"trackLength"`
	Racers      map[string]racerView `json:"racers"`
	PowerUps    []PowerUp            `json:"powerUps"`
	Finishers   []string             `json:"finishers"`
	Remaining   int                  `json:"remaining"`
}

func (g *Game) state(now time.Time) state {
	s := state{
		TrackLength: g.opts.TrackLength,
		Racers:      make(map[string]racerView, len(g.racers)),
		PowerUps:    append([]PowerUp{}, g.powerUps...),
		Finishers:   append([]string{}, g.finishers...),
		Remaining:   game.SecondsLeft(now, g.deadline),
	}
	for id, r := range g.racers {
		s.Racers[id] = racerView{
			Distance: r.distance,
			Boosted:  now.Before(r.boostedUntil),
			Frozen:   now.Before(r.frozenUntil),
			Shielded: r.shielded,
			Finished: r.finished,
		}
	}
	return s
}

func (g *Game) Snapshot(string) game.View {
	return game.View{Public: g.state(g.Env.Now())}
}
