package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"party_server/internal/domain"
	"party_server/internal/game/gametest"
)

func submit(seq []int) []byte {
	return gametest.JSON(map[string][]int{"sequence": seq})
}

func TestShowThenRecall(t *testing.T) {
	rec := &gametest.Recorder{}
	clock := gametest.NewClock()
	s, done, err := gametest.Start(Type, gametest.Env(rec, clock, map[string]int{"rounds": 2}, "a", "b"))
	require.NoError(t, err)
	g := s.(*Game)

	st := g.Snapshot("a").Public.(state)
	require.Equal(t, stageShow, st.Stage)
	require.Len(t, st.Sequence, 3)
	require.ErrorIs(t, g.HandleAction("a", "submit", submit(st.Sequence)), domain.ErrWrongPhase)

	g.Tick(clock.Advance(3 * perStep))
	st = g.Snapshot("a").Public.(state)
	require.Equal(t, stageRecall, st.Stage)
	require.Empty(t, st.Sequence)

	seq := append([]int(nil), g.sequence...)
	require.NoError(t, g.HandleAction("a", "submit", submit(seq)))
	require.Equal(t, "already_submitted", domain.Code(g.HandleAction("a", "submit", submit(seq))))

	wrong := append([]int(nil), seq...)
	wrong[0] = (wrong[0] + 1) % cells
	require.NoError(t, g.HandleAction("b", "submit", submit(wrong)))

	// everyone answered: round two starts with a longer sequence
	require.Equal(t, stageShow, g.stage)
	require.Len(t, g.sequence, 4)
	require.Equal(t, 3, g.points["a"])
	require.Zero(t, g.points["b"])

	g.Tick(clock.Advance(4 * perStep))
	g.Tick(clock.Advance(15 * time.Second))
	require.Equal(t, stageDone, g.stage)
	require.Equal(t, 1, *done)
	require.Equal(t, []string{"a"}, g.CalculateResults().Winners())
}

func TestRejectsOutOfRangeCells(t *testing.T) {
	clock := gametest.NewClock()
	s, _, err := gametest.Start(Type, gametest.Env(&gametest.Recorder{}, clock, nil, "a"))
	require.NoError(t, err)
	s.Tick(clock.Advance(3 * perStep))
	require.Equal(t, "invalid_payload", domain.Code(s.HandleAction("a", "submit", submit([]int{9, 1, 2}))))
}
