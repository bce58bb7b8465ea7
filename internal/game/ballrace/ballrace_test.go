package ballrace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"party_server/internal/domain"
	"party_server/internal/game/gametest"
)

func claim(n int) []byte {
	return gametest.JSON(map[string]int{"number": n})
}

func TestFirstClaimWinsAndRoundsAdvance(t *testing.T) {
	rec := &gametest.Recorder{}
	s, done, err := gametest.Start(Type, gametest.Env(rec, gametest.NewClock(), map[string]int{"rounds": 2, "balls": 3}, "a", "b"))
	require.NoError(t, err)

	require.NoError(t, s.HandleAction("a", "claim", claim(1)))
	err = s.HandleAction("b", "claim", claim(1))
	require.Equal(t, "already_claimed", domain.Code(err))
	err = s.HandleAction("b", "claim", claim(3))
	require.Equal(t, "out_of_order", domain.Code(err))

	require.NoError(t, s.HandleAction("b", "claim", claim(2)))
	require.NoError(t, s.HandleAction("b", "claim", claim(3)))

	st := s.Snapshot("a").Public.(state)
	require.Equal(t, 2, st.Round)
	require.Equal(t, 1, st.Next)
	for _, b := range st.Balls {
		require.Empty(t, b.Owner)
	}

	for n := 1; n <= 3; n++ {
		require.NoError(t, s.HandleAction("a", "claim", claim(n)))
	}
	require.Equal(t, 1, *done)

	res := s.CalculateResults()
	require.Equal(t, "rounds_complete", res.Reason)
	require.Equal(t, []string{"a"}, res.Winners())
	require.Equal(t, 4, res.Players[0].Score)
	require.Equal(t, 2, res.Players[1].Score)

	err = s.HandleAction("a", "claim", claim(1))
	require.ErrorIs(t, err, domain.ErrWrongPhase)
}
