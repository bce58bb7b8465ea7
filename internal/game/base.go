package game

import (
	"time"
)

// Base holds the plumbing shared by every session implementation.
type Base struct {
	Env        Env
	StartedAt  time.Time
	onComplete func()
	completed  bool
}

func NewBase(env Env) Base {
	if env.Now == nil {
		env.Now = time.Now
	}
	return Base{Env: env}
}

// StartUpdateLoop records the completion callback and the start time.
func (b *Base) StartUpdateLoop(onComplete func()) {
	b.onComplete = onComplete
	b.StartedAt = b.Env.Now()
}

// Complete invokes the completion callback once.
func (b *Base) Complete() {
	if b.completed {
		return
	}
	b.completed = true
	if b.onComplete != nil {
		b.onComplete()
	}
}

// Player returns the participant with actorID.
func (b *Base) Player(actorID string) (Participant, bool) {
	for _, p := range b.Env.Players {
		if p.ActorID == actorID {
			return p, true
		}
	}
	return Participant{}, false
}

// Scores builds a zeroed score list in participant order.
func (b *Base) Scores() []Score {
	out := make([]Score, len(b.Env.Players))
	for i, p := range b.Env.Players {
		out[i] = Score{ActorID: p.ActorID, Name: p.Name, TeamID: p.TeamID}
	}
	return out
}

// SecondsLeft returns whole seconds until deadline, never negative.
func SecondsLeft(now, deadline time.Time) int {
	if deadline.IsZero() {
		return 0
	}
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Seconds converts a whole-second option to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
