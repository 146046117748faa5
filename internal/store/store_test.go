package store

import (
	"context"
	"os"
	"testing"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleState() state.GameState {
	s := state.GameState{Turn: state.PlayerOne, Phase: state.PhaseAction, TurnNumber: 3, Seed: 7}
	s.Player.Protocols = [state.LaneCount]string{"Fire", "Water", "Speed"}
	s.Opponent.Protocols = [state.LaneCount]string{"Death", "Life", "Light"}
	s.Player.Lanes[0] = []state.PlayedCard{{ID: "a", Protocol: "Fire", Value: 3, IsFaceUp: true}}
	s.Player.Hand = []state.PlayedCard{{ID: "b", Protocol: "Water", Value: 1}}
	s.Opponent.Deck = []cards.Card{{Protocol: "Life", Value: 2}}
	return s
}

func TestEncodeDecodeKeepsChecksum(t *testing.T) {
	enc, err := encode(sampleState())
	require.NoError(t, err)
	assert.Equal(t, 3, enc.turn)
	assert.Equal(t, "action", enc.phase)

	gs, sum, err := decode(enc.body, enc.checksum)
	require.NoError(t, err)
	assert.Equal(t, enc.checksum, sum.Hash)
	assert.Equal(t, "Fire", gs.Player.Lanes[0][0].Protocol)
}

func TestDecodeRejectsTamperedState(t *testing.T) {
	enc, err := encode(sampleState())
	require.NoError(t, err)
	_, _, err = decode(enc.body, "not-the-checksum")
	assert.ErrorContains(t, err, "checksum mismatch")
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("COMPILE_TEST_DSN")
	if dsn == "" {
		t.Skip("COMPILE_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	matchID := uuid.NewString()

	_, err := s.Latest(ctx, matchID)
	require.ErrorIs(t, err, ErrNotFound)

	first := sampleState()
	seq, err := s.Save(ctx, matchID, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	second := sampleState()
	second.TurnNumber = 4
	seq, err = s.Save(ctx, matchID, second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	snap, err := s.Latest(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.State.TurnNumber)

	ids, err := s.Matches(ctx, true)
	require.NoError(t, err)
	assert.Contains(t, ids, matchID)
}

func TestImportAndLoadCards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	catalog, err := cards.Default()
	require.NoError(t, err)

	n, err := s.ImportCards(ctx, catalog.Defs())
	require.NoError(t, err)
	assert.Equal(t, len(catalog.Defs()), n)

	loaded, err := s.LoadCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.Protocols(), loaded.Protocols())
}
