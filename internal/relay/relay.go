// Package relay restricts team games to one active member per team.
package relay

import (
	"sort"
	"time"

	"party_server/internal/domain"
)

var (
	ErrNotActive  = domain.Reject("not_active", "you do not hold the relay baton")
	ErrSoleMember = domain.Reject("sole_member", "nobody to pass the baton to")
	ErrNoTeam     = domain.Reject("no_team", "you are not on a team")
)

type Member struct {
	ActorID string
	TeamID  int
}

type team struct {
	members []string // ascending actor id
	active  int
	since   time.Time
}

// Coordinator tracks the active member of every team. It is not safe for
// concurrent use; callers hold the room lock.
type Coordinator struct {
	enabled bool
	timeout time.Duration
	teams   map[int]*team
	teamOf  map[string]int
}

// Disabled returns a coordinator that lets everyone act.
func Disabled() *Coordinator {
	return &Coordinator{}
}

// New builds an enabled coordinator. timeout 0 means a member keeps the baton
// until they pass it.
func New(members []Member, timeout time.Duration, now time.Time) *Coordinator {
	c := &Coordinator{
		enabled: true,
		timeout: timeout,
		teams:   make(map[int]*team),
		teamOf:  make(map[string]int, len(members)),
	}
	for _, m := range members {
		if m.TeamID == 0 {
			continue
		}
		t, ok := c.teams[m.TeamID]
		if !ok {
			t = &team{since: now}
			c.teams[m.TeamID] = t
		}
		t.members = append(t.members, m.ActorID)
		c.teamOf[m.ActorID] = m.TeamID
	}
	for _, t := range c.teams {
		sort.Strings(t.members)
	}
	return c
}

func (c *Coordinator) Enabled() bool { return c.enabled }

// CanAct reports whether actorID may change shared state.
func (c *Coordinator) CanAct(actorID string) bool {
	if !c.enabled {
		return true
	}
	tid, ok := c.teamOf[actorID]
	if !ok {
		return false
	}
	t := c.teams[tid]
	return t.members[t.active] == actorID
}

// PassTurn hands the baton to the next member of the caller's team.
func (c *Coordinator) PassTurn(actorID string, now time.Time) (next string, err error) {
	if !c.enabled {
		return "", ErrNotActive
	}
	tid, ok := c.teamOf[actorID]
	if !ok {
		return "", ErrNoTeam
	}
	t := c.teams[tid]
	if t.members[t.active] != actorID {
		return "", ErrNotActive
	}
	if len(t.members) < 2 {
		return "", ErrSoleMember
	}
	t.advance(now)
	return t.members[t.active], nil
}

// Expire auto-passes batons held longer than the timeout. It returns the
// teams whose active member changed.
func (c *Coordinator) Expire(now time.Time) []int {
	if !c.enabled || c.timeout <= 0 {
		return nil
	}
	var changed []int
	for tid, t := range c.teams {
		if len(t.members) < 2 {
			continue
		}
		if now.Sub(t.since) >= c.timeout {
			t.advance(now)
			changed = append(changed, tid)
		}
	}
	sort.Ints(changed)
	return changed
}

// Active returns the active member of a team.
func (c *Coordinator) Active(teamID int) (string, bool) {
	t, ok := c.teams[teamID]
	if !ok {
		return "", false
	}
	return t.members[t.active], true
}

// State maps team id to its active member.
func (c *Coordinator) State() map[int]string {
	out := make(map[int]string, len(c.teams))
	for tid, t := range c.teams {
		out[tid] = t.members[t.active]
	}
	return out
}

func (t *team) advance(now time.Time) {
	t.active = (t.active + 1) % len(t.members)
	t.since = now
}
