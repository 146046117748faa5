package game

import (
	"fmt"
	"strings"
	"testing"

	"github.com/compilegame/compile-server-go/internal/config"
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	catalog, err := cards.Default()
	require.NoError(t, err)
	return NewEngine(catalog, config.DefaultRules(), zap.NewNop())
}

// newEngineWith builds an engine over a hand-written catalog. Cards missing
// from it have no text.
func newEngineWith(t *testing.T, defs ...cards.CardDef) *Engine {
	t.Helper()
	catalog, err := cards.NewCatalog(defs)
	require.NoError(t, err)
	return NewEngine(catalog, config.DefaultRules(), zap.NewNop())
}

// table builds a hand-made position: player's turn 1, waiting for a move.
type table struct {
	s   state.GameState
	seq int
}

func newTable() *table {
	tb := &table{s: state.GameState{
		Turn:       state.PlayerOne,
		Phase:      state.PhaseAction,
		TurnNumber: 1,
		Seed:       1,
	}}
	tb.s.Player.Protocols = [state.LaneCount]string{"Fire", "Hate", "Light"}
	tb.s.Opponent.Protocols = [state.LaneCount]string{"Death", "Life", "Speed"}
	return tb
}

func (tb *table) card(protocol string, value int, faceUp bool) state.PlayedCard {
	tb.seq++
	return state.PlayedCard{
		ID:       fmt.Sprintf("%s-%d#%d", protocol, value, tb.seq),
		Protocol: protocol,
		Value:    value,
		IsFaceUp: faceUp,
	}
}

// board puts a card on top of a lane and returns its ID.
func (tb *table) board(p state.Player, lane int, protocol string, value int, faceUp bool) string {
	c := tb.card(protocol, value, faceUp)
	side := tb.s.Side(p)
	side.Lanes[lane] = append(side.Lanes[lane], c)
	return c.ID
}

func (tb *table) hand(p state.Player, protocol string, value int) string {
	c := tb.card(protocol, value, false)
	side := tb.s.Side(p)
	side.Hand = append(side.Hand, c)
	return c.ID
}

func (tb *table) deck(p state.Player, n int) {
	side := tb.s.Side(p)
	for i := 0; i < n; i++ {
		side.Deck = append(side.Deck, cards.Card{Protocol: "Light", Value: i % 6})
	}
}

func (tb *table) build(e *Engine) state.GameState {
	return e.Recalculate(tb.s)
}

func effectOf(t *testing.T, e *Engine, protocol string, value, index int) cards.EffectDef {
	t.Helper()
	def, ok := e.catalog.Card(protocol, value)
	require.True(t, ok, "%s-%d not in catalog", protocol, value)
	require.Greater(t, len(def.Effects), index)
	return def.Effects[index]
}

func ctxFor(owner state.Player, trigger cards.Trigger) state.EffectContext {
	return state.NewEffectContext(owner, state.PlayerOne, trigger)
}

func choose(p state.Player, ids ...string) state.Choice {
	return state.Choice{Actor: p, CardIDs: ids, Lane: state.NoLane}
}

// logIndex returns the position of the first log line containing text, or -1.
func logIndex(s state.GameState, text string) int {
	for i, entry := range s.Log {
		if strings.Contains(entry.Message, text) {
			return i
		}
	}
	return -1
}

func laneIDs(s state.GameState, p state.Player, lane int) []string {
	var ids []string
	for _, c := range s.Side(p).Lanes[lane] {
		ids = append(ids, c.ID)
	}
	return ids
}
