package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixture(now time.Time) *Coordinator {
	return New([]Member{
		{ActorID: "c", TeamID: 1},
		{ActorID: "a", TeamID: 1},
		{ActorID: "b", TeamID: 1},
		{ActorID: "z", TeamID: 2},
		{ActorID: "solo", TeamID: 3},
		{ActorID: "loner", TeamID: 0},
	}, 10*time.Second, now)
}

func TestActiveMemberIsLowestActorID(t *testing.T) {
	c := fixture(time.Unix(0, 0))

	require.True(t, c.CanAct("a"))
	require.False(t, c.CanAct("b"))
	require.False(t, c.CanAct("c"))
	require.True(t, c.CanAct("z"))
	require.False(t, c.CanAct("loner"))
}

func TestPassTurnRotatesInSortedOrder(t *testing.T) {
	now := time.Unix(0, 0)
	c := fixture(now)

	next, err := c.PassTurn("a", now)
	require.NoError(t, err)
	require.Equal(t, "b", next)

	next, err = c.PassTurn("b", now)
	require.NoError(t, err)
	require.Equal(t, "c", next)

	next, err = c.PassTurn("c", now)
	require.NoError(t, err)
	require.Equal(t, "a", next)
}

func TestPassTurnByNonActiveMemberChangesNothing(t *testing.T) {
	now := time.Unix(0, 0)
	c := fixture(now)

	for _, actor := range []string{"b", "c", "loner"} {
		before := c.State()
		_, err := c.PassTurn(actor, now)
		require.Error(t, err)
		require.Equal(t, before, c.State())
	}
}

func TestPassTurnSoleMemberFails(t *testing.T) {
	now := time.Unix(0, 0)
	c := fixture(now)

	_, err := c.PassTurn("solo", now)
	require.True(t, errors.Is(err, ErrSoleMember))
	active, _ := c.Active(3)
	require.Equal(t, "solo", active)
}

func TestExpireSkipsIdleHolder(t *testing.T) {
	start := time.Unix(0, 0)
	c := fixture(start)

	require.Empty(t, c.Expire(start.Add(9*time.Second)))
	require.Equal(t, []int{1}, c.Expire(start.Add(10*time.Second)))

	active, _ := c.Active(1)
	require.Equal(t, "b", active)
	// single-member teams never rotate
	active, _ = c.Active(2)
	require.Equal(t, "z", active)
}

func TestDisabledAllowsEveryone(t *testing.T) {
	c := Disabled()
	require.True(t, c.CanAct("anyone"))
	_, err := c.PassTurn("anyone", time.Now())
	require.Error(t, err)
	require.Nil(t, c.Expire(time.Now()))
}
