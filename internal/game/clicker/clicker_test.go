package clicker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"party_server/internal/domain"
	"party_server/internal/game"
	"party_server/internal/game/gametest"
)

type onlyActor string

func (o onlyActor) CanAct(id string) bool { return id == string(o) }

func TestClicksDecideTheWinner(t *testing.T) {
	rec := &gametest.Recorder{}
	clock := gametest.NewClock()
	s, _, err := gametest.Start(Type, gametest.Env(rec, clock, map[string]int{"seconds": 10}, "a", "b"))
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, s.Duration())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.HandleAction("a", "click", nil))
	}
	require.NoError(t, s.HandleAction("b", "click", nil))

	res := s.CalculateResults()
	require.Equal(t, []string{"a"}, res.Winners())
	require.Equal(t, 3, res.Players[0].Score)

	clock.Advance(4 * time.Second)
	s.Tick(clock.Now())
	last, ok := rec.Last(EventUpdate)
	require.True(t, ok)
	require.Equal(t, 6, last.Payload.(state).Remaining)
}

func TestRelayGatesClicks(t *testing.T) {
	env := gametest.Env(&gametest.Recorder{}, gametest.NewClock(), nil, "a", "b")
	env.Relay = onlyActor("a")
	s, err := game.Create(Type, env)
	require.NoError(t, err)
	s.StartUpdateLoop(func() {})

	require.NoError(t, s.HandleAction("a", "click", nil))
	err = s.HandleAction("b", "click", nil)
	require.True(t, errors.Is(err, domain.ErrNotYourTurn))
}

func TestRejectsBadOptions(t *testing.T) {
	_, err := game.Create(Type, gametest.Env(&gametest.Recorder{}, gametest.NewClock(), map[string]int{"seconds": 1}, "a"))
	require.Equal(t, "invalid_options", domain.Code(err))
}
