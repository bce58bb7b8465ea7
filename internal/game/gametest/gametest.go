// Package gametest provides fakes for exercising sessions without a room.
package gametest

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
)

// Message is one emitted event.
type Message struct {
	Audience domain.AudienceKind
	Target   string // actor id for actor messages
	TeamID   int
	Event    string
	Payload  any
}

// Recorder is an Emitter that keeps every message.
type Recorder struct {
	mu   sync.Mutex
	Msgs []Message
}

func (r *Recorder) Room(event string, payload any) {
	r.add(Message{Audience: domain.AudienceRoom, Event: event, Payload: payload})
}

func (r *Recorder) Team(teamID int, event string, payload any) {
	r.add(Message{Audience: domain.AudienceTeam, TeamID: teamID, Event: event, Payload: payload})
}

func (r *Recorder) Actor(actorID, event string, payload any) {
	r.add(Message{Audience: domain.AudienceActor, Target: actorID, Event: event, Payload: payload})
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Msgs = append(r.Msgs, m)
}

// Events returns messages with the given event name.
func (r *Recorder) Events(name string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.Msgs {
		if m.Event == name {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message with the given event name.
func (r *Recorder) Last(name string) (Message, bool) {
	ev := r.Events(name)
	if len(ev) == 0 {
		return Message{}, false
	}
	return ev[len(ev)-1], true
}

// Clock is a manually advanced time source.
type Clock struct {
	T time.Time
}

func NewClock() *Clock { return &Clock{T: time.Unix(1_700_000_000, 0)} }

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) time.Time {
	c.T = c.T.Add(d)
	return c.T
}

// Env builds an Env with one participant per id.
func Env(rec *Recorder, clock *Clock, options any, ids ...string) game.Env {
	players := make([]game.Participant, len(ids))
	for i, id := range ids {
		players[i] = game.Participant{ActorID: id, Name: id}
	}
	return game.Env{
		RoomID:  "room",
		Players: players,
		Options: JSON(options),
		Out:     rec,
		Relay:   game.AllowAll,
		Now:     clock.Now,
		Rand:    rand.New(rand.NewPCG(1, 2)),
	}
}

// JSON marshals v, passing nil and raw messages through.
func JSON(v any) json.RawMessage {
	switch t := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return t
	case string:
		return json.RawMessage(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Start creates the session through the catalog and starts its loop. The
// returned counter tracks onComplete calls.
func Start(t domain.GameType, env game.Env) (game.Session, *int, error) {
	s, err := game.Create(t, env)
	if err != nil {
		return nil, nil, err
	}
	completions := new(int)
	s.StartUpdateLoop(func() { *completions++ })
	return s, completions, nil
}
