package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
	"party_server/internal/logger"
	"party_server/internal/metrics"
	"party_server/internal/relay"
	"party_server/internal/room"
)

const (
	EventGameStarted  = "gameStarted"
	EventGameEnded    = "gameEnded"
	EventRelayUpdated = "relayUpdated"

	ReasonHostEnded = "host_ended"
	ReasonTimeUp    = "time_up"

	defaultRelaySeconds = 20
)

// OutcomeRecorder persists per-identity results. Implementations must not block.
type OutcomeRecorder interface {
	RecordOutcome(o domain.Outcome)
}

type stopper interface {
	Stop() bool
}

// binding ties one running session to one room. Guarded by the room lock.
type binding struct {
	roomID    string
	room      *room.Room
	gameType  domain.GameType
	session   game.Session
	players   []game.Participant
	teams     []domain.Team
	relay     *relay.Coordinator
	startedAt time.Time
	duration  time.Duration

	active    bool
	done      bool
	published bool

	tick     *Handle
	deadline stopper
}

func (b *binding) isPlayer(actorID string) bool {
	for _, p := range b.players {
		if p.ActorID == actorID {
			return true
		}
	}
	return false
}

// Manager runs game sessions for the rooms in a registry.
type Manager struct {
	rooms    *room.Registry
	sched    *Scheduler
	out      Deliverer
	content  game.ContentSource
	outcomes OutcomeRecorder

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopper
	seed      atomic.Uint64

	mu       sync.Mutex
	bindings map[string]*binding
}

type Option func(*Manager)

func WithContent(c game.ContentSource) Option {
	return func(m *Manager) { m.content = c }
}

func WithOutcomes(r OutcomeRecorder) Option {
	return func(m *Manager) { m.outcomes = r }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithAfterFunc replaces time.AfterFunc for deadline timers.
func WithAfterFunc(f func(d time.Duration, fn func()) stopper) Option {
	return func(m *Manager) { m.afterFunc = f }
}

// WithSeed makes game randomness reproducible.
func WithSeed(seed uint64) Option {
	return func(m *Manager) { m.seed.Store(seed) }
}

func NewManager(rooms *room.Registry, sched *Scheduler, out Deliverer, opts ...Option) *Manager {
	m := &Manager{
		rooms:    rooms,
		sched:    sched,
		out:      out,
		now:      time.Now,
		bindings: make(map[string]*binding),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	m.seed.Store(uint64(time.Now().UnixNano()))
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) binding(roomID string) *binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindings[roomID]
}

func (m *Manager) setBinding(roomID string, b *binding) {
	m.mu.Lock()
	m.bindings[roomID] = b
	m.mu.Unlock()
}

func (m *Manager) dropBinding(roomID string, b *binding) {
	m.mu.Lock()
	if m.bindings[roomID] == b {
		delete(m.bindings, roomID)
	}
	m.mu.Unlock()
}

func (m *Manager) newRand() *rand.Rand {
	s := m.seed.Add(0x9e3779b97f4a7c15)
	return rand.New(rand.NewPCG(s, s>>7|1))
}

// Active reports whether a session is bound to the room.
func (m *Manager) Active(roomID string) bool {
	return m.binding(roomID) != nil
}

type startOptions struct {
	RelayTurnSeconds *int `json:"relayTurnSeconds"`
}

// Start binds a new session of type t to the room.
func (m *Manager) Start(ctx context.Context, roomID, actorID string, t domain.GameType, options json.RawMessage) error {
	rm, ok := m.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	rm.Lock()
	b, err := m.prepare(rm, actorID, t, options)
	rm.Unlock()
	if err != nil {
		return err
	}
	m.rooms.Publish(roomID)

	log := logger.ForRoom(roomID).With("game", b.gameType)
	initErr := m.initialize(ctx, b)

	rm.Lock()
	if m.binding(roomID) != b || rm.Destroyed() || b.done {
		rm.Unlock()
		log.Debug("room changed while initializing, start abandoned")
		return nil
	}
	if initErr != nil {
		m.dropBinding(roomID, b)
		b.done = true
		rm.Status = room.StatusWaiting
		rm.Unlock()
		m.rooms.Publish(roomID)

		log.Warn("game initialize failed, room rolled back", "error", initErr)
		var de *domain.Error
		if errors.As(initErr, &de) {
			return initErr
		}
		return domain.Collaborator("content_unavailable", "could not load game content", initErr)
	}
	m.activate(rm, b)
	rm.Unlock()

	log.Info("game started", "players", len(b.players), "duration", b.duration)
	return nil
}

// prepare validates the request and moves the room to playing. Caller holds
// the room lock.
func (m *Manager) prepare(rm *room.Room, actorID string, t domain.GameType, options json.RawMessage) (*binding, error) {
	if rm.Destroyed() {
		return nil, domain.ErrRoomNotFound
	}
	if !rm.IsHost(actorID) {
		return nil, domain.ErrNotHost
	}
	if rm.Status == room.StatusPlaying || m.binding(rm.ID) != nil {
		return nil, domain.ErrAlreadyPlaying
	}
	if len(rm.Players) == 0 {
		return nil, domain.ErrNotEnoughPlayers
	}
	if t == "" {
		t = rm.SelectedGame
	}
	def, ok := game.Lookup(t)
	if !ok {
		return nil, domain.ErrUnknownGame
	}

	players := make([]game.Participant, len(rm.Players))
	members := make([]relay.Member, len(rm.Players))
	for i, p := range rm.Players {
		players[i] = game.Participant{ActorID: p.ActorID, Name: p.Name, TeamID: p.TeamID, Identity: p.Identity}
		members[i] = relay.Member{ActorID: p.ActorID, TeamID: p.TeamID}
	}
	var teams []domain.Team
	if rm.TeamMode && def.TeamAware {
		teams = append(teams, rm.Teams...)
	}

	now := m.now()
	coord := relay.Disabled()
	if rm.TeamMode && rm.RelayMode && def.TeamAware {
		var so startOptions
		if len(options) > 0 {
			_ = json.Unmarshal(options, &so)
		}
		secs := defaultRelaySeconds
		if so.RelayTurnSeconds != nil && *so.RelayTurnSeconds >= 0 {
			secs = *so.RelayTurnSeconds
		}
		coord = relay.New(members, game.Seconds(secs), now)
	}

	s, err := game.Create(t, game.Env{
		RoomID:  rm.ID,
		Players: players,
		Teams:   teams,
		Options: options,
		Out:     &outbox{room: rm, out: m.out},
		Relay:   coord,
		Content: m.content,
		Now:     m.now,
		Rand:    m.newRand(),
	})
	if err != nil {
		return nil, err
	}

	b := &binding{
		roomID:   rm.ID,
		room:     rm,
		gameType: t,
		session:  s,
		players:  players,
		teams:    teams,
		relay:    coord,
		duration: s.Duration(),
	}
	rm.Status = room.StatusPlaying
	rm.SelectedGame = t
	m.setBinding(rm.ID, b)
	return b, nil
}

// initialize runs outside the room lock; a panic counts as a failure.
func (m *Manager) initialize(ctx context.Context, b *binding) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.Invariant("initialize panicked: %v", r)
		}
	}()
	ctx = logger.NewContext(ctx, logger.ForRoom(b.roomID).With("game", b.gameType))
	return b.session.Initialize(ctx)
}

// activate starts the update loop and timers. Caller holds the room lock.
func (m *Manager) activate(rm *room.Room, b *binding) {
	now := m.now()
	b.active = true
	b.startedAt = now

	b.session.StartUpdateLoop(func() { m.complete(rm, b, "", false) })
	b.tick = m.sched.Schedule(now, m.sched.Resolution(), func(at time.Time) { m.onTick(rm, b, at) })
	if b.duration > 0 {
		b.deadline = m.afterFunc(b.duration, func() { m.onDeadline(rm, b) })
	}

	metrics.GamesStarted.WithLabelValues(string(b.gameType)).Inc()
	metrics.SessionsActive.WithLabelValues(string(b.gameType)).Inc()

	o := &outbox{room: rm, out: m.out}
	for _, p := range rm.Players {
		o.Actor(p.ActorID, EventGameStarted, m.snapshotLocked(b, p.ActorID))
	}
}

// Snapshot is a reconnect projection for one actor.
type Snapshot struct {
	RoomID    string             `json:"roomId"`
	GameType  domain.GameType    `json:"gameType"`
	StartedAt time.Time          `json:"startedAt"`
	Duration  int                `json:"duration,omitempty"`
	Remaining int                `json:"remaining,omitempty"`
	Players   []game.Participant `json:"players"`
	Teams     []domain.Team      `json:"teams,omitempty"`
	Relay     map[int]string     `json:"relay,omitempty"`
	View      game.View          `json:"view"`
}

func (m *Manager) snapshotLocked(b *binding, actorID string) Snapshot {
	s := Snapshot{
		RoomID:    b.roomID,
		GameType:  b.gameType,
		StartedAt: b.startedAt,
		Players:   b.players,
		Teams:     b.teams,
		View:      b.session.Snapshot(actorID),
	}
	if b.relay.Enabled() {
		s.Relay = b.relay.State()
	}
	if b.duration > 0 {
		s.Duration = int(b.duration / time.Second)
		s.Remaining = game.SecondsLeft(m.now(), b.startedAt.Add(b.duration))
	}
	return s
}

// Snapshot rebuilds what actorID should currently see.
func (m *Manager) Snapshot(roomID, actorID string) (Snapshot, error) {
	rm, ok := m.rooms.Get(roomID)
	if !ok {
		return Snapshot{}, domain.ErrRoomNotFound
	}
	rm.Lock()
	b := m.binding(roomID)
	if b == nil || !b.active || b.done {
		rm.Unlock()
		return Snapshot{}, domain.ErrNotPlaying
	}
	var snap Snapshot
	err := m.guard(rm, b, func() error {
		snap = m.snapshotLocked(b, actorID)
		return nil
	})
	rm.Unlock()
	m.settle(b)
	return snap, err
}

// Dispatch routes a game action. Unknown actions and actions with no game
// running are ignored.
func (m *Manager) Dispatch(roomID, actorID, action string, payload json.RawMessage) error {
	rm, ok := m.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	rm.Lock()
	b := m.binding(roomID)
	if b == nil || !b.active || b.done {
		rm.Unlock()
		return nil
	}
	if !b.isPlayer(actorID) {
		rm.Unlock()
		return domain.ErrNotMember
	}
	err := m.guard(rm, b, func() error {
		return b.session.HandleAction(actorID, action, payload)
	})
	rm.Unlock()
	m.settle(b)

	result := "ok"
	switch {
	case errors.Is(err, domain.ErrUnknownAction):
		err = nil
		result = "ignored"
	case err != nil:
		result = domain.Code(err)
	}
	metrics.Actions.WithLabelValues(string(b.gameType), result).Inc()
	return err
}

// PassTurn hands the relay baton to the caller's next teammate.
func (m *Manager) PassTurn(roomID, actorID string) error {
	rm, ok := m.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	rm.Lock()
	defer rm.Unlock()
	b := m.binding(roomID)
	if b == nil || !b.active || b.done {
		return domain.ErrNotPlaying
	}
	if _, err := b.relay.PassTurn(actorID, m.now()); err != nil {
		return err
	}
	m.broadcastRelay(rm, b)
	return nil
}

func (m *Manager) broadcastRelay(rm *room.Room, b *binding) {
	o := &outbox{room: rm, out: m.out}
	o.Room(EventRelayUpdated, map[string]any{"roomId": rm.ID, "active": b.relay.State()})
}

// End force-completes the room's game on behalf of the host.
func (m *Manager) End(roomID, actorID string) error {
	rm, ok := m.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	rm.Lock()
	if !rm.IsHost(actorID) {
		rm.Unlock()
		return domain.ErrNotHost
	}
	b := m.binding(roomID)
	if b == nil || !b.active || b.done {
		rm.Unlock()
		return domain.ErrNotPlaying
	}
	m.complete(rm, b, ReasonHostEnded, false)
	rm.Unlock()
	m.settle(b)
	return nil
}

// Discard drops the session of a destroyed room without results.
func (m *Manager) Discard(roomID string) {
	b := m.binding(roomID)
	if b == nil {
		return
	}
	b.room.Lock()
	defer b.room.Unlock()
	if b.done {
		return
	}
	b.done = true
	b.published = true
	m.stopTimers(b)
	m.dropBinding(roomID, b)
	if b.active {
		metrics.SessionsActive.WithLabelValues(string(b.gameType)).Dec()
	}
	logger.ForRoom(roomID).Info("session discarded", "game", b.gameType)
}

// Shutdown cancels every running session's timers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.bindings))
	for id := range m.bindings {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Discard(id)
	}
}

func (m *Manager) onTick(rm *room.Room, b *binding, now time.Time) {
	rm.Lock()
	if b.done || m.binding(b.roomID) != b || !b.active {
		rm.Unlock()
		return
	}
	if changed := b.relay.Expire(now); len(changed) > 0 {
		m.broadcastRelay(rm, b)
	}
	_ = m.guard(rm, b, func() error {
		b.session.Tick(now)
		return nil
	})
	rm.Unlock()
	m.settle(b)
}

func (m *Manager) onDeadline(rm *room.Room, b *binding) {
	rm.Lock()
	if b.done || m.binding(b.roomID) != b {
		rm.Unlock()
		return
	}
	m.complete(rm, b, ReasonTimeUp, false)
	rm.Unlock()
	m.settle(b)
}

// guard runs a session call and converts panics and invariant violations
// into a failed game. Caller holds the room lock.
func (m *Manager) guard(rm *room.Room, b *binding, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.Invariant("session panicked: %v", r)
		}
		if domain.IsInvariant(err) {
			logger.ForRoom(rm.ID).Error("session invariant violated, terminating game", "game", b.gameType, "error", err)
			m.complete(rm, b, game.ReasonFailure, true)
			err = fmt.Errorf("game terminated: %w", err)
		}
	}()
	return fn()
}

// complete ends the game once. Caller holds the room lock.
func (m *Manager) complete(rm *room.Room, b *binding, reason string, failed bool) {
	if b.done || m.binding(b.roomID) != b {
		return
	}
	b.done = true
	m.stopTimers(b)

	res := m.results(b, failed)
	if reason != "" {
		res.Reason = reason
	}

	m.dropBinding(b.roomID, b)
	rm.Status = room.StatusWaiting

	if !failed {
		m.recordOutcomes(b, res)
	}

	o := &outbox{room: rm, out: m.out}
	o.Room(EventGameEnded, map[string]any{
		"roomId":   b.roomID,
		"gameType": b.gameType,
		"results":  res,
		"winners":  res.Winners(),
	})

	metrics.SessionsActive.WithLabelValues(string(b.gameType)).Dec()
	metrics.GamesFinished.WithLabelValues(string(b.gameType), res.Reason).Inc()
	logger.ForRoom(b.roomID).Info("game ended", "game", b.gameType, "reason", res.Reason, "winners", len(res.Winners()))
}

func (m *Manager) results(b *binding, failed bool) (res game.Results) {
	if failed {
		return game.Failure(b.gameType, b.players)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.ForRoom(b.roomID).Error("results panicked", "game", b.gameType, "panic", r)
			res = game.Failure(b.gameType, b.players)
		}
	}()
	return b.session.CalculateResults()
}

func (m *Manager) recordOutcomes(b *binding, res game.Results) {
	if m.outcomes == nil {
		return
	}
	ids := make(map[string]*domain.Identity, len(b.players))
	for _, p := range b.players {
		if p.Identity != nil {
			ids[p.ActorID] = p.Identity
		}
	}
	if len(ids) == 0 {
		return
	}
	winners := len(res.Winners())
	now := m.now()
	for _, s := range res.Players {
		id, ok := ids[s.ActorID]
		if !ok {
			continue
		}
		result := domain.OutcomeLose
		switch {
		case s.Winner:
			result = domain.OutcomeWin
		case winners == 0:
			result = domain.OutcomeDraw
		}
		m.outcomes.RecordOutcome(domain.Outcome{
			UserID:       id.UserID,
			GameType:     b.gameType,
			RoomID:       b.roomID,
			Rank:         s.Placement(),
			Participants: len(b.players),
			Score:        s.Score,
			Result:       result,
			Reason:       res.Reason,
			CreatedAt:    now,
		})
	}
}

func (m *Manager) stopTimers(b *binding) {
	if b.tick != nil {
		b.tick.Cancel()
	}
	if b.deadline != nil {
		b.deadline.Stop()
	}
}

// settle publishes the room once after its game ended. Callers must not hold
// the room lock.
func (m *Manager) settle(b *binding) {
	if b == nil {
		return
	}
	b.room.Lock()
	need := b.done && !b.published
	if need {
		b.published = true
	}
	b.room.Unlock()
	if need {
		m.rooms.Publish(b.roomID)
	}
}
