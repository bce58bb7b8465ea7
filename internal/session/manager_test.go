package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"party_server/internal/domain"
	"party_server/internal/game"
	"party_server/internal/logger"
	"party_server/internal/room"
)

// stub is a minimal session used to drive the manager.
type stub struct {
	game.Base
	opts   stubOptions
	scores map[string]int
	ticks  int
}

type stubOptions struct {
	FailInit bool `json:"failInit"`
	Seconds  int  `json:"seconds"`
}

func (p *stub) Type() domain.GameType { return "stub" }

func (p *stub) Initialize(context.Context) error {
	if p.opts.FailInit {
		return errors.New("content store down")
	}
	return nil
}

func (p *stub) Duration() time.Duration { return game.Seconds(p.opts.Seconds) }

func (p *stub) Tick(time.Time) { p.ticks++ }

func (p *stub) HandleAction(actorID, action string, _ json.RawMessage) error {
	switch action {
	case "score":
		if !p.Env.Relay.CanAct(actorID) {
			return domain.ErrNotYourTurn
		}
		p.scores[actorID]++
		p.Env.Out.Room("stubUpdate", p.scores)
	case "finish":
		p.Complete()
	case "explode":
		return domain.Invariant("tally exceeds players")
	case "panic":
		panic("boom")
	default:
		return domain.ErrUnknownAction
	}
	return nil
}

func (p *stub) CalculateResults() game.Results {
	scores := p.Scores()
	for i := range scores {
		scores[i].Score = p.scores[scores[i].ActorID]
	}
	return game.Rank("stub", "finished", scores, p.Env.Teams)
}

func (p *stub) Snapshot(actorID string) game.View {
	return game.View{
		Public:  map[string]int{"total": len(p.scores)},
		Private: map[string]string{"secret": "for-" + actorID},
	}
}

func init() {
	game.Register(game.Definition{Type: "stub", MinPlayers: 1, TeamAware: true, New: func(env game.Env) (game.Session, error) {
		p := &stub{Base: game.NewBase(env), scores: map[string]int{}}
		if err := game.DecodeOptions(env.Options, &p.opts); err != nil {
			return nil, err
		}
		return p, nil
	}})
	game.Register(game.Definition{Type: "stub-duo", MinPlayers: 2, New: func(env game.Env) (game.Session, error) {
		return &stub{Base: game.NewBase(env), scores: map[string]int{}}, nil
	}})
}

type delivered struct {
	env        domain.Envelope
	recipients []string
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []delivered
}

func (f *fakeTransport) Deliver(env domain.Envelope, recipients []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivered{env, append([]string(nil), recipients...)})
}

func (f *fakeTransport) RoomChanged(room.View, []string) {}
func (f *fakeTransport) LobbyChanged([]room.Summary)     {}

func (f *fakeTransport) events(name string) []delivered {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []delivered
	for _, d := range f.sent {
		if d.env.Event == name {
			out = append(out, d)
		}
	}
	return out
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fixture struct {
	reg    *room.Registry
	mgr    *Manager
	sched  *Scheduler
	tr     *fakeTransport
	timers []*fakeTimer
	rec    *outcomeSink
}

type outcomeSink struct {
	mu  sync.Mutex
	got []domain.Outcome
}

func (s *outcomeSink) RecordOutcome(o domain.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, o)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.Discard()
	f := &fixture{tr: &fakeTransport{}, rec: &outcomeSink{}}
	seq := 0
	f.reg = room.NewRegistry(8, f.tr, room.WithIDs(func() string {
		seq++
		return fmt.Sprintf("r%d", seq)
	}))
	f.sched = NewScheduler(time.Second)
	clock := time.Unix(1_700_000_000, 0)
	f.mgr = NewManager(f.reg, f.sched, f.tr,
		WithClock(func() time.Time { return clock }),
		WithSeed(42),
		WithOutcomes(f.rec),
		WithAfterFunc(func(d time.Duration, fn func()) stopper {
			ft := &fakeTimer{d: d, fn: fn}
			f.timers = append(f.timers, ft)
			return ft
		}),
	)
	f.reg.OnDestroy(f.mgr.Discard)
	return f
}

func (f *fixture) room(t *testing.T, ids ...string) string {
	t.Helper()
	v, err := f.reg.Create(domain.Actor{ID: ids[0], Name: ids[0]}, "test", 8, room.Public)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, id := range ids[1:] {
		actor := domain.Actor{ID: id, Name: id, Identity: &domain.Identity{UserID: int64(len(id)) + 100}}
		if _, err := f.reg.Join(v.ID, actor); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	return v.ID
}

func status(t *testing.T, reg *room.Registry, roomID string) room.Status {
	t.Helper()
	rm, ok := reg.Get(roomID)
	if !ok {
		t.Fatalf("room %s missing", roomID)
	}
	rm.Lock()
	defer rm.Unlock()
	return rm.Status
}

func TestStartRejections(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host", "guest")
	ctx := context.Background()

	cases := []struct {
		name  string
		actor string
		game  domain.GameType
		want  error
	}{
		{"not host", "guest", "stub", domain.ErrNotHost},
		{"unknown game", "host", "chess", domain.ErrUnknownGame},
		{"missing room", "host", "stub", domain.ErrRoomNotFound},
	}
	for _, tc := range cases {
		roomID := id
		if tc.name == "missing room" {
			roomID = "nope"
		}
		if err := f.mgr.Start(ctx, roomID, tc.actor, tc.game, nil); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}

	solo := f.room(t, "alone")
	if err := f.mgr.Start(ctx, solo, "alone", "stub-duo", nil); !errors.Is(err, domain.ErrNotEnoughPlayers) {
		t.Fatalf("min players: %v", err)
	}
	if status(t, f.reg, solo) != room.StatusWaiting {
		t.Fatalf("rejected start must leave the room waiting")
	}
}

func TestStartSendsActorScopedSnapshots(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host", "guest")

	if err := f.mgr.Start(context.Background(), id, "host", "stub", json.RawMessage(`{"seconds":30}`)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if status(t, f.reg, id) != room.StatusPlaying {
		t.Fatalf("room should be playing")
	}
	started := f.tr.events(EventGameStarted)
	if len(started) != 2 {
		t.Fatalf("want one gameStarted per player, got %d", len(started))
	}
	for _, d := range started {
		if d.env.Audience.Kind != domain.AudienceActor || len(d.recipients) != 1 {
			t.Fatalf("gameStarted must be actor scoped: %+v", d)
		}
		snap := d.env.Payload.(Snapshot)
		want := map[string]string{"secret": "for-" + d.recipients[0]}
		if diff := cmp.Diff(want, snap.View.Private); diff != "" {
			t.Fatalf("private view mismatch (-want +got):\n%s", diff)
		}
	}
	if len(f.timers) != 1 || f.timers[0].d != 30*time.Second {
		t.Fatalf("deadline timer not armed: %+v", f.timers)
	}
	if f.sched.Len() != 1 {
		t.Fatalf("tick not scheduled")
	}
	if err := f.mgr.Start(context.Background(), id, "host", "stub", nil); !errors.Is(err, domain.ErrAlreadyPlaying) {
		t.Fatalf("second start: %v", err)
	}
}

func TestDispatchIgnoresStaleAndUnknownActions(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host", "guest")

	if err := f.mgr.Dispatch(id, "host", "score", nil); err != nil {
		t.Fatalf("action with no game should be ignored, got %v", err)
	}
	f.mgr.Start(context.Background(), id, "host", "stub", nil)
	if err := f.mgr.Dispatch(id, "host", "dance", nil); err != nil {
		t.Fatalf("unknown action should be ignored, got %v", err)
	}
	if err := f.mgr.Dispatch(id, "host", "score", nil); err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(f.tr.events("stubUpdate")) != 1 {
		t.Fatalf("update not broadcast")
	}
}

func TestEndCompletesOnceAndDeadlineAfterwardsIsNoop(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host", "guest")
	f.mgr.Start(context.Background(), id, "host", "stub", json.RawMessage(`{"seconds":10}`))
	f.mgr.Dispatch(id, "guest", "score", nil)

	if err := f.mgr.End(id, "guest"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("guest end: %v", err)
	}
	if err := f.mgr.End(id, "host"); err != nil {
		t.Fatalf("end: %v", err)
	}

	ended := f.tr.events(EventGameEnded)
	if len(ended) != 1 {
		t.Fatalf("want one gameEnded, got %d", len(ended))
	}
	payload := ended[0].env.Payload.(map[string]any)
	res := payload["results"].(game.Results)
	if res.Reason != ReasonHostEnded {
		t.Fatalf("reason = %s", res.Reason)
	}
	if winners := payload["winners"].([]string); len(winners) != 1 || winners[0] != "guest" {
		t.Fatalf("winners = %v", winners)
	}
	if status(t, f.reg, id) != room.StatusWaiting {
		t.Fatalf("room should be waiting")
	}
	if !f.timers[0].stopped || f.sched.Len() != 0 {
		t.Fatalf("timers not cancelled")
	}

	// a deadline that already fired must be harmless
	f.timers[0].fn()
	if len(f.tr.events(EventGameEnded)) != 1 {
		t.Fatalf("deadline after end produced another gameEnded")
	}
	if err := f.mgr.Dispatch(id, "guest", "score", nil); err != nil {
		t.Fatalf("stale action should be ignored: %v", err)
	}

	if len(f.rec.got) != 1 || f.rec.got[0].Result != domain.OutcomeWin || f.rec.got[0].Participants != 2 {
		t.Fatalf("outcomes = %+v", f.rec.got)
	}
}

func TestDeadlineCompletesGame(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host")
	f.mgr.Start(context.Background(), id, "host", "stub", json.RawMessage(`{"seconds":5}`))

	f.timers[0].fn()
	ended := f.tr.events(EventGameEnded)
	if len(ended) != 1 {
		t.Fatalf("deadline did not end the game")
	}
	if ended[0].env.Payload.(map[string]any)["results"].(game.Results).Reason != ReasonTimeUp {
		t.Fatalf("wrong reason")
	}
}

func TestSessionCompletionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host")
	f.mgr.Start(context.Background(), id, "host", "stub", nil)

	f.mgr.Dispatch(id, "host", "finish", nil)
	f.mgr.Dispatch(id, "host", "finish", nil)
	if n := len(f.tr.events(EventGameEnded)); n != 1 {
		t.Fatalf("gameEnded sent %d times", n)
	}
}

func TestInitializeFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host")

	err := f.mgr.Start(context.Background(), id, "host", "stub", json.RawMessage(`{"failInit":true}`))
	if domain.KindOf(err) != domain.KindCollaborator {
		t.Fatalf("want collaborator error, got %v", err)
	}
	if status(t, f.reg, id) != room.StatusWaiting || f.mgr.Active(id) {
		t.Fatalf("room stuck in playing")
	}
	if len(f.tr.events(EventGameStarted)) != 0 {
		t.Fatalf("no gameStarted expected")
	}
}

func TestInvariantViolationOnlyAffectsItsRoom(t *testing.T) {
	f := newFixture(t)
	a := f.room(t, "a1", "a2")
	b := f.room(t, "b1", "b2")
	ctx := context.Background()
	f.mgr.Start(ctx, a, "a1", "stub", nil)
	f.mgr.Start(ctx, b, "b1", "stub", nil)

	if err := f.mgr.Dispatch(a, "a1", "explode", nil); !domain.IsInvariant(err) {
		t.Fatalf("want invariant error, got %v", err)
	}
	ended := f.tr.events(EventGameEnded)
	if len(ended) != 1 || ended[0].env.Audience.RoomID != a {
		t.Fatalf("only room a should end: %+v", ended)
	}
	res := ended[0].env.Payload.(map[string]any)["results"].(game.Results)
	if res.Reason != game.ReasonFailure || len(res.Winners()) != 0 {
		t.Fatalf("failure outcome expected, got %+v", res)
	}
	if !f.mgr.Active(b) || status(t, f.reg, b) != room.StatusPlaying {
		t.Fatalf("room b affected")
	}

	if err := f.mgr.Dispatch(b, "b1", "panic", nil); !domain.IsInvariant(err) {
		t.Fatalf("panic should become invariant failure, got %v", err)
	}
	if f.mgr.Active(b) {
		t.Fatalf("panicking session should be terminated")
	}
	if len(f.rec.got) != 0 {
		t.Fatalf("failed games must not record outcomes")
	}
}

func TestRoomDestroyedDiscardsSession(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host", "guest")
	f.mgr.Start(context.Background(), id, "host", "stub", json.RawMessage(`{"seconds":10}`))

	f.reg.Disconnect("host")
	if !f.mgr.Active(id) {
		t.Fatalf("one player leaving must not cancel the session")
	}
	f.reg.Disconnect("guest")
	if f.mgr.Active(id) {
		t.Fatalf("session should be discarded with the room")
	}
	if f.sched.Len() != 0 || !f.timers[0].stopped {
		t.Fatalf("timers survived room destruction")
	}
	f.timers[0].fn()
	if len(f.tr.events(EventGameEnded)) != 0 {
		t.Fatalf("discarded session must not emit results")
	}
}

func TestSnapshotIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host", "guest")
	if _, err := f.mgr.Snapshot(id, "host"); !errors.Is(err, domain.ErrNotPlaying) {
		t.Fatalf("snapshot without game: %v", err)
	}
	f.mgr.Start(context.Background(), id, "host", "stub", json.RawMessage(`{"seconds":60}`))

	first, err := f.mgr.Snapshot(id, "guest")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	second, _ := f.mgr.Snapshot(id, "guest")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("snapshots differ (-first +second):\n%s", diff)
	}
	if first.Remaining != 60 {
		t.Fatalf("remaining = %d", first.Remaining)
	}
}

func TestRelayGatesTeamActions(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "a", "b", "c", "d")
	f.reg.SetTeamMode(id, "a", true)
	f.reg.SetRelayMode(id, "a", true)
	// teams: a,c on 1 and b,d on 2
	f.mgr.Start(context.Background(), id, "a", "stub", nil)

	if err := f.mgr.Dispatch(id, "c", "score", nil); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("inactive member acted: %v", err)
	}
	if err := f.mgr.PassTurn(id, "c"); err == nil {
		t.Fatalf("non-active pass should fail")
	}
	if err := f.mgr.PassTurn(id, "a"); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if err := f.mgr.Dispatch(id, "c", "score", nil); err != nil {
		t.Fatalf("new active member should act: %v", err)
	}
	if len(f.tr.events(EventRelayUpdated)) != 1 {
		t.Fatalf("relay update not broadcast")
	}
}

func TestTickDrivesSession(t *testing.T) {
	f := newFixture(t)
	id := f.room(t, "host")
	f.mgr.Start(context.Background(), id, "host", "stub", nil)

	f.sched.fire(time.Unix(1_700_000_001, 0), false)
	b := f.mgr.binding(id)
	if b.session.(*stub).ticks != 1 {
		t.Fatalf("tick not delivered")
	}
}
