package sumgrid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"party_server/internal/domain"
	"party_server/internal/game/gametest"
)

func newGame(t *testing.T, ids ...string) *Game {
	t.Helper()
	s, _, err := gametest.Start(Type, gametest.Env(&gametest.Recorder{}, gametest.NewClock(), nil, ids...))
	require.NoError(t, err)
	g := s.(*Game)
	for r := range g.grid {
		for c := range g.grid[r] {
			g.grid[r][c].Value = 9
		}
	}
	return g
}

func sel(r1, c1, r2, c2 int) []byte {
	return gametest.JSON(map[string]int{"r1": r1, "c1": c1, "r2": r2, "c2": c2})
}

func score(g *Game, actor string) int {
	for _, s := range g.CalculateResults().Players {
		if s.ActorID == actor {
			return s.Score
		}
	}
	return -1
}

func TestOverlappingClaimStealsCells(t *testing.T) {
	g := newGame(t, "a", "b", "c", "d")
	// 2 3 / 3 2 in the top-left, 4 4 to the right of it
	g.grid[0][0].Value, g.grid[0][1].Value = 2, 3
	g.grid[1][0].Value, g.grid[1][1].Value = 3, 2
	g.grid[0][2].Value, g.grid[1][2].Value = 1, 4

	require.NoError(t, g.HandleAction("a", "select", sel(0, 0, 1, 1)))
	require.Equal(t, 4, score(g, "a"))

	// column 1..2 over both rows: 3+1+2+4 = 10, overlaps a's column 1
	require.NoError(t, g.HandleAction("b", "select", sel(1, 2, 0, 1)))
	require.Equal(t, 2, score(g, "a"))
	require.Equal(t, 4, score(g, "b"))
	require.Equal(t, "b", g.grid[0][1].Owner)
	require.Equal(t, "a", g.grid[0][0].Owner)
}

func TestRejectsWrongSum(t *testing.T) {
	g := newGame(t, "a")
	err := g.HandleAction("a", "select", sel(0, 0, 0, 1))
	require.Equal(t, "bad_sum", domain.Code(err))
	require.Equal(t, 0, score(g, "a"))

	err = g.HandleAction("a", "select", sel(0, 0, 10, 1))
	require.Equal(t, "invalid_payload", domain.Code(err))
}

func TestGridDimensions(t *testing.T) {
	g := newGame(t, "a")
	st := g.Snapshot("a").Public.(state)
	require.Len(t, st.Grid, 10)
	require.Len(t, st.Grid[0], 17)
}
