package room

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"party_server/internal/domain"
	"party_server/internal/game"
	"party_server/internal/logger"
	"party_server/internal/metrics"
)

const (
	maxRoomName   = 40
	maxPlayerName = 24
)

// Notifier receives room projections after every structural change.
type Notifier interface {
	RoomChanged(view View, members []string)
	LobbyChanged(rooms []Summary)
}

// LeaveResult describes the room after a player left.
type LeaveResult struct {
	View      View
	Destroyed bool
}

// Registry owns every room in the process.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	actorRoom map[string]string

	pubMu       sync.Mutex
	notifier    Notifier
	onDestroy   func(roomID string)
	maxCapacity int
	newID       func() string
	now         func() time.Time
}

type Option func(*Registry)

// WithIDs overrides room id generation.
func WithIDs(f func() string) Option {
	return func(r *Registry) { r.newID = f }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(maxCapacity int, n Notifier, opts ...Option) *Registry {
	if maxCapacity < 2 {
		maxCapacity = 2
	}
	r := &Registry{
		rooms:       make(map[string]*Room),
		actorRoom:   make(map[string]string),
		notifier:    n,
		maxCapacity: maxCapacity,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnDestroy registers a callback run after a room is removed.
func (r *Registry) OnDestroy(f func(roomID string)) {
	r.onDestroy = f
}

func (r *Registry) Get(roomID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	return rm, ok
}

// RoomOf returns the room the actor currently belongs to.
func (r *Registry) RoomOf(actorID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.actorRoom[actorID]
	return id, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Create opens a room with actor as host. An actor already in another room
// leaves it first.
func (r *Registry) Create(actor domain.Actor, name string, capacity int, vis Visibility) (View, error) {
	name = clip(strings.TrimSpace(name), maxRoomName)
	if name == "" {
		name = actor.Name + "'s room"
	}
	if capacity == 0 || capacity > r.maxCapacity {
		capacity = r.maxCapacity
	}
	if capacity < 2 {
		capacity = 2
	}
	if vis != Unlisted {
		vis = Public
	}

	rm := &Room{
		ID:         r.newID(),
		Name:       name,
		Capacity:   capacity,
		Visibility: vis,
		Status:     StatusWaiting,
		Players:    []*domain.Player{newPlayer(actor)},
		CreatedAt:  r.now(),
	}

	r.mu.Lock()
	prev, hadPrev := r.actorRoom[actor.ID]
	r.rooms[rm.ID] = rm
	r.actorRoom[actor.ID] = rm.ID
	var prevDestroyed bool
	if hadPrev {
		prevDestroyed = r.detachLocked(prev, actor.ID)
	}
	count := len(r.rooms)
	r.mu.Unlock()

	metrics.RoomsActive.Set(float64(count))
	logger.Info("room created", "room", rm.ID, "host", actor.ID, "capacity", capacity, "visibility", vis)

	rm.Lock()
	view := rm.View()
	rm.Unlock()

	if hadPrev {
		r.afterDetach(prev, prevDestroyed)
	}
	r.Publish(rm.ID)
	return view, nil
}

// Join adds actor to the room. Re-joining returns the existing membership.
func (r *Registry) Join(roomID string, actor domain.Actor) (View, error) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return View{}, domain.ErrRoomNotFound
	}

	rm.Lock()
	if _, member := rm.Member(actor.ID); member {
		view := rm.View()
		rm.Unlock()
		r.mu.Unlock()
		return view, nil
	}
	if rm.Status == StatusPlaying {
		rm.Unlock()
		r.mu.Unlock()
		return View{}, domain.ErrAlreadyPlaying
	}
	if len(rm.Players) >= rm.Capacity {
		rm.Unlock()
		r.mu.Unlock()
		return View{}, domain.ErrRoomFull
	}
	p := newPlayer(actor)
	if rm.TeamMode {
		p.TeamID = rm.smallestTeam()
	}
	rm.Players = append(rm.Players, p)
	view := rm.View()
	rm.Unlock()

	prev, hadPrev := r.actorRoom[actor.ID]
	r.actorRoom[actor.ID] = roomID
	var prevDestroyed bool
	if hadPrev {
		prevDestroyed = r.detachLocked(prev, actor.ID)
	}
	r.mu.Unlock()

	logger.Debug("player joined", "room", roomID, "actor", actor.ID)

	if hadPrev {
		r.afterDetach(prev, prevDestroyed)
	}
	r.Publish(roomID)
	return view, nil
}

// Leave removes actor from the room. The next player becomes host when the
// host leaves; an empty room is destroyed.
func (r *Registry) Leave(roomID, actorID string) (LeaveResult, error) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return LeaveResult{}, domain.ErrRoomNotFound
	}
	rm.Lock()
	_, member := rm.Member(actorID)
	rm.Unlock()
	if !member {
		r.mu.Unlock()
		return LeaveResult{}, domain.ErrNotMember
	}
	if r.actorRoom[actorID] == roomID {
		delete(r.actorRoom, actorID)
	}
	destroyed := r.detachLocked(roomID, actorID)

	var res LeaveResult
	res.Destroyed = destroyed
	if !destroyed {
		rm.Lock()
		res.View = rm.View()
		rm.Unlock()
	} else {
		res.View = View{ID: roomID}
	}
	r.mu.Unlock()

	logger.Debug("player left", "room", roomID, "actor", actorID, "destroyed", destroyed)
	r.afterDetach(roomID, destroyed)
	return res, nil
}

// Disconnect removes the actor from whatever room it is in.
func (r *Registry) Disconnect(actorID string) {
	roomID, ok := r.RoomOf(actorID)
	if !ok {
		return
	}
	if _, err := r.Leave(roomID, actorID); err != nil {
		logger.Debug("disconnect leave", "room", roomID, "actor", actorID, "error", err)
	}
}

// detachLocked removes actorID from roomID and destroys the room when it
// becomes empty. Caller holds r.mu.
func (r *Registry) detachLocked(roomID, actorID string) bool {
	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	rm.Lock()
	defer rm.Unlock()
	rm.remove(actorID)
	if len(rm.Players) > 0 {
		return false
	}
	rm.destroyed = true
	delete(r.rooms, roomID)
	return true
}

func (r *Registry) afterDetach(roomID string, destroyed bool) {
	if destroyed {
		metrics.RoomsActive.Set(float64(r.Count()))
		logger.Info("room destroyed", "room", roomID)
		if r.onDestroy != nil {
			r.onDestroy(roomID)
		}
	}
	r.Publish(roomID)
}

// ListPublic returns public rooms sorted by creation time.
func (r *Registry) ListPublic() []Summary {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	type entry struct {
		s  Summary
		at time.Time
	}
	var list []entry
	for _, rm := range rooms {
		rm.Lock()
		if !rm.destroyed && rm.Visibility == Public {
			list = append(list, entry{rm.Summary(), rm.CreatedAt})
		}
		rm.Unlock()
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].at.Equal(list[j].at) {
			return list[i].at.Before(list[j].at)
		}
		return list[i].s.ID < list[j].s.ID
	})
	out := make([]Summary, len(list))
	for i := range list {
		out[i] = list[i].s
	}
	return out
}

// Publish sends the room projection to its members and the public list to
// everyone. Callers must not hold any room lock.
func (r *Registry) Publish(roomID string) {
	if r.notifier == nil {
		return
	}
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	if rm, ok := r.Get(roomID); ok {
		rm.Lock()
		if !rm.destroyed {
			view, members := rm.View(), rm.MemberIDs()
			rm.Unlock()
			r.notifier.RoomChanged(view, members)
		} else {
			rm.Unlock()
		}
	}
	r.notifier.LobbyChanged(r.ListPublic())
}

// mutate runs fn on a waiting room on behalf of its host and publishes.
func (r *Registry) mutate(roomID, actorID string, fn func(rm *Room) error) (View, error) {
	rm, ok := r.Get(roomID)
	if !ok {
		return View{}, domain.ErrRoomNotFound
	}
	rm.Lock()
	if rm.destroyed {
		rm.Unlock()
		return View{}, domain.ErrRoomNotFound
	}
	if !rm.IsHost(actorID) {
		rm.Unlock()
		return View{}, domain.ErrNotHost
	}
	if rm.Status != StatusWaiting {
		rm.Unlock()
		return View{}, domain.ErrAlreadyPlaying
	}
	if err := fn(rm); err != nil {
		rm.Unlock()
		return View{}, err
	}
	view := rm.View()
	rm.Unlock()

	r.Publish(roomID)
	return view, nil
}

// SelectGame records the host's game choice.
func (r *Registry) SelectGame(roomID, actorID string, t domain.GameType) (View, error) {
	return r.mutate(roomID, actorID, func(rm *Room) error {
		if _, ok := game.Lookup(t); !ok {
			return domain.ErrUnknownGame
		}
		rm.SelectedGame = t
		return nil
	})
}

// SetTeamMode toggles teams. Enabling creates two teams and deals players
// round-robin; disabling clears teams and relay mode.
func (r *Registry) SetTeamMode(roomID, actorID string, enabled bool) (View, error) {
	return r.mutate(roomID, actorID, func(rm *Room) error {
		if enabled == rm.TeamMode {
			return nil
		}
		rm.TeamMode = enabled
		if !enabled {
			rm.Teams = nil
			rm.RelayMode = false
			for _, p := range rm.Players {
				p.TeamID = 0
			}
			return nil
		}
		rm.Teams = []domain.Team{domain.NewTeam(1), domain.NewTeam(2)}
		for i, p := range rm.Players {
			p.TeamID = rm.Teams[i%len(rm.Teams)].ID
		}
		return nil
	})
}

func (r *Registry) AddTeam(roomID, actorID string) (View, error) {
	return r.mutate(roomID, actorID, func(rm *Room) error {
		if !rm.TeamMode {
			return domain.ErrWrongPhase
		}
		if len(rm.Teams) >= domain.MaxTeams {
			return domain.ErrTeamLimit
		}
		rm.Teams = append(rm.Teams, domain.NewTeam(rm.nextTeamID()))
		sort.Slice(rm.Teams, func(i, j int) bool { return rm.Teams[i].ID < rm.Teams[j].ID })
		return nil
	})
}

// RemoveTeam deletes a team and moves its members to the smallest team left.
func (r *Registry) RemoveTeam(roomID, actorID string, teamID int) (View, error) {
	return r.mutate(roomID, actorID, func(rm *Room) error {
		if !rm.TeamMode {
			return domain.ErrWrongPhase
		}
		if !rm.hasTeam(teamID) {
			return domain.ErrUnknownTeam
		}
		if len(rm.Teams) <= domain.MinTeams {
			return domain.ErrTeamLimit
		}
		for i, t := range rm.Teams {
			if t.ID == teamID {
				rm.Teams = append(rm.Teams[:i], rm.Teams[i+1:]...)
				break
			}
		}
		for _, p := range rm.Players {
			if p.TeamID == teamID {
				p.TeamID = rm.smallestTeam()
			}
		}
		return nil
	})
}

func (r *Registry) AssignTeam(roomID, actorID, targetID string, teamID int) (View, error) {
	return r.mutate(roomID, actorID, func(rm *Room) error {
		if !rm.TeamMode {
			return domain.ErrWrongPhase
		}
		if !rm.hasTeam(teamID) {
			return domain.ErrUnknownTeam
		}
		p, ok := rm.Member(targetID)
		if !ok {
			return domain.ErrNotMember
		}
		p.TeamID = teamID
		return nil
	})
}

// SetRelayMode requires team mode when enabling.
func (r *Registry) SetRelayMode(roomID, actorID string, enabled bool) (View, error) {
	return r.mutate(roomID, actorID, func(rm *Room) error {
		if enabled && !rm.TeamMode {
			return domain.ErrWrongPhase
		}
		rm.RelayMode = enabled
		return nil
	})
}

// Rename changes a member's display name.
func (r *Registry) Rename(roomID, actorID, name string) (View, error) {
	name = clip(strings.TrimSpace(name), maxPlayerName)
	if name == "" {
		return View{}, domain.ErrInvalidAction
	}
	rm, ok := r.Get(roomID)
	if !ok {
		return View{}, domain.ErrRoomNotFound
	}
	rm.Lock()
	p, member := rm.Member(actorID)
	if !member {
		rm.Unlock()
		return View{}, domain.ErrNotMember
	}
	p.Name = name
	view := rm.View()
	rm.Unlock()

	r.Publish(roomID)
	return view, nil
}

func newPlayer(a domain.Actor) *domain.Player {
	name := clip(strings.TrimSpace(a.Name), maxPlayerName)
	if name == "" {
		name = "Player"
	}
	return &domain.Player{ActorID: a.ID, Name: name, Avatar: a.Avatar, Identity: a.Identity}
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
