package tictactoe

import (
	"context"
	"errors"
	"testing"
	"time"

	"party_server/internal/domain"
	"party_server/internal/game"
	"party_server/internal/game/gametest"
)

func start(t *testing.T, ids ...string) (*Game, *gametest.Recorder, *int) {
	t.Helper()
	rec := &gametest.Recorder{}
	s, done, err := gametest.Start(Type, gametest.Env(rec, gametest.NewClock(), nil, ids...))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s.(*Game), rec, done
}

func place(g *Game, actor string, pos int) error {
	return g.HandleAction(actor, "place", gametest.JSON(map[string]int{"position": pos}))
}

func TestOWinsWithColumn(t *testing.T) {
	g, rec, done := start(t, "x", "o")

	moves := []struct {
		actor string
		pos   int
	}{
		{"x", 4}, {"o", 0}, {"x", 2}, {"o", 6}, {"x", 5}, {"o", 3},
	}
	for _, m := range moves {
		if err := place(g, m.actor, m.pos); err != nil {
			t.Fatalf("place %s@%d: %v", m.actor, m.pos, err)
		}
	}

	if *done != 1 {
		t.Fatalf("game should complete once, got %d", *done)
	}
	res := g.CalculateResults()
	winners := res.Winners()
	if len(winners) != 1 || winners[0] != "o" {
		t.Fatalf("winners = %v", winners)
	}
	scores := map[string]int{}
	for _, s := range res.Players {
		scores[s.ActorID] = s.Score
	}
	if scores["o"] != 1 || scores["x"] != 0 {
		t.Fatalf("scores = %v", scores)
	}
	last, _ := rec.Last(EventUpdate)
	if st := last.Payload.(state); st.Winner != markO || len(st.Line) != 3 {
		t.Fatalf("final state = %+v", st)
	}
}

func TestTurnAndCellValidation(t *testing.T) {
	g, _, _ := start(t, "x", "o", "watcher")

	if err := place(g, "o", 0); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("o moved first: %v", err)
	}
	if err := place(g, "watcher", 0); domain.Code(err) != "spectator" {
		t.Fatalf("spectator moved: %v", err)
	}
	if err := place(g, "x", 9); domain.Code(err) != "invalid_payload" {
		t.Fatalf("out of range accepted: %v", err)
	}
	if err := g.HandleAction("x", "place", nil); domain.Code(err) != "invalid_payload" {
		t.Fatalf("missing position accepted: %v", err)
	}
	if err := place(g, "x", 0); err != nil {
		t.Fatalf("x: %v", err)
	}
	if err := place(g, "o", 0); domain.Code(err) != "cell_taken" {
		t.Fatalf("taken cell accepted: %v", err)
	}
	if err := g.HandleAction("x", "spin", nil); !errors.Is(err, domain.ErrUnknownAction) {
		t.Fatalf("unknown action: %v", err)
	}
}

func TestDrawHasNoWinner(t *testing.T) {
	g, _, done := start(t, "x", "o")
	// X O X / X O O / O X X
	for i, pos := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
		actor := "x"
		if i%2 == 1 {
			actor = "o"
		}
		if err := place(g, actor, pos); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}
	if *done != 1 {
		t.Fatalf("draw should complete")
	}
	res := g.CalculateResults()
	if res.Reason != "draw" || len(res.Winners()) != 0 {
		t.Fatalf("unexpected results %+v", res)
	}
	if err := place(g, "x", 0); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("move after end: %v", err)
	}
}

func TestNeedsTwoPlayers(t *testing.T) {
	_, err := game.Create(Type, gametest.Env(&gametest.Recorder{}, gametest.NewClock(), nil, "solo"))
	if !errors.Is(err, domain.ErrNotEnoughPlayers) {
		t.Fatalf("got %v", err)
	}
}

func TestIdlePlayerForfeitsOnTimeout(t *testing.T) {
	rec := &gametest.Recorder{}
	clock := gametest.NewClock()
	s, done, err := gametest.Start(Type, gametest.Env(rec, clock, map[string]int{"turnSeconds": 10}, "x", "o"))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	g := s.(*Game)

	clock.Advance(6 * time.Second)
	if err := place(g, "x", 4); err != nil {
		t.Fatalf("place: %v", err)
	}
	// ход сбрасывает часы
	g.Tick(clock.Advance(6 * time.Second))
	if *done != 0 {
		t.Fatalf("o still has time")
	}
	if st := g.Snapshot("x").Public.(state); st.Remaining != 4 {
		t.Fatalf("remaining = %d", st.Remaining)
	}

	g.Tick(clock.Advance(5 * time.Second))
	if *done != 1 {
		t.Fatalf("idle player should forfeit, done = %d", *done)
	}
	res := g.CalculateResults()
	if res.Reason != "forfeit" {
		t.Fatalf("reason = %s", res.Reason)
	}
	if w := res.Winners(); len(w) != 1 || w[0] != "x" {
		t.Fatalf("winners = %v", w)
	}
	if err := place(g, "o", 0); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("moves after forfeit: %v", err)
	}
	last, _ := rec.Last(EventUpdate)
	if st := last.Payload.(state); !st.Forfeit || st.Winner != markX {
		t.Fatalf("final state = %+v", st)
	}
}

func TestZeroTurnSecondsDisablesClock(t *testing.T) {
	clock := gametest.NewClock()
	s, done, err := gametest.Start(Type, gametest.Env(&gametest.Recorder{}, clock, map[string]int{"turnSeconds": 0}, "x", "o"))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Tick(clock.Advance(time.Hour))
	if *done != 0 {
		t.Fatalf("clock disabled, game must not end")
	}
}
