package selfplay

import (
	"context"
	"testing"

	"github.com/compilegame/compile-server-go/internal/bots"
	"github.com/compilegame/compile-server-go/internal/config"
	"github.com/compilegame/compile-server-go/internal/game"
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newManager(t *testing.T) (*game.Manager, string) {
	t.Helper()
	catalog, err := cards.Default()
	require.NoError(t, err)
	m := game.NewManager(game.NewEngine(catalog, config.DefaultRules(), zap.NewNop()), nil, nil)
	id, _, err := m.Start(game.MatchSetup{
		PlayerProtocols:   []string{"Fire", "Water", "Speed"},
		OpponentProtocols: []string{"Death", "Life", "Light"},
		Seed:              21,
	})
	require.NoError(t, err)
	return m, id
}

func randomSeats() Seats {
	return Seats{
		state.PlayerOne: bots.NewRandomBot("one", 1, 5),
		state.PlayerTwo: bots.NewRandomBot("two", 2, 5),
	}
}

func TestPlayStopsAtTurnLimit(t *testing.T) {
	m, id := newManager(t)

	out, err := Play(context.Background(), m, id, randomSeats(), Options{MaxTurns: 6}, nil)

	require.NoError(t, err)
	assert.Equal(t, id, out.MatchID)
	assert.Greater(t, out.Decisions, 0)
	if !out.Finished {
		assert.Equal(t, 7, out.State.TurnNumber)
	}
	current, err := m.State(id)
	require.NoError(t, err)
	assert.Equal(t, current.TurnNumber, out.State.TurnNumber)
}

func TestPlayNeedsEverySeat(t *testing.T) {
	m, id := newManager(t)

	_, err := Play(context.Background(), m, id, Seats{state.PlayerTwo: bots.NewRandomBot("two", 2, 5)}, Options{}, nil)

	assert.ErrorContains(t, err, "no decision source for player")
}

func TestPlayHonoursCancellation(t *testing.T) {
	m, id := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Play(ctx, m, id, randomSeats(), Options{}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Decisions)
}

func TestPlayUnknownMatch(t *testing.T) {
	m, _ := newManager(t)
	_, err := Play(context.Background(), m, "missing", randomSeats(), Options{}, nil)
	assert.Error(t, err)
}
