package resolvers_test

import (
	"testing"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/effects"
	"github.com/compilegame/compile-server-go/internal/game/resolvers"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/game/targeting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t *testing.T
	s *state.GameState
	r *effects.Run
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := cards.Default()
	require.NoError(t, err)
	s := &state.GameState{Turn: state.PlayerOne, Phase: state.PhaseAction, TurnNumber: 1, Seed: 5}
	s.Player.Protocols = [state.LaneCount]string{"Fire", "Hate", "Light"}
	s.Opponent.Protocols = [state.LaneCount]string{"Death", "Life", "Speed"}
	return &fixture{t: t, s: s, r: effects.NewInterpreter(catalog, effects.Config{}, nil).NewRun(s)}
}

func (f *fixture) board(p state.Player, lane int, id, protocol string, value int) {
	side := f.s.Side(p)
	side.Lanes[lane] = append(side.Lanes[lane], state.PlayedCard{ID: id, Protocol: protocol, Value: value, IsFaceUp: true})
	f.r.Recalculate()
}

func (f *fixture) hand(p state.Player, ids ...string) {
	side := f.s.Side(p)
	for i, id := range ids {
		side.Hand = append(side.Hand, state.PlayedCard{ID: id, Protocol: "Fire", Value: i})
	}
}

// effect wraps def as the text of an off-board card owned by the player.
func (f *fixture) effect(def cards.EffectDef) state.PendingEffect {
	return state.PendingEffect{
		SourceCardID: "source",
		SourceName:   "Test-0",
		Lane:         0,
		Effect:       def,
		Context:      state.NewEffectContext(state.PlayerOne, state.PlayerOne, cards.TriggerPlay),
	}
}

func (f *fixture) execute(def cards.EffectDef) {
	f.r.Execute(f.effect(def))
}

func (f *fixture) pending() state.ActionRequired {
	f.t.Helper()
	require.NotNil(f.t, f.s.ActionRequired)
	return *f.s.ActionRequired
}

func TestResolveWithoutPendingAction(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne}), resolvers.ErrNoAction)
}

func TestResolveBoardPick(t *testing.T) {
	f := newFixture(t)
	f.board(state.PlayerOne, 0, "mine", "Fire", 1)
	f.board(state.PlayerTwo, 1, "theirs", "Life", 2)
	f.execute(cards.EffectDef{Action: cards.ActionDelete, Count: cards.CountOf(1)})

	ar := f.pending()
	assert.Equal(t, state.ActionSelectCardsToDelete, ar.Type)
	assert.ElementsMatch(t, []string{"mine", "theirs"}, ar.ValidTargets)

	err := resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerTwo, CardID: "theirs"})
	assert.ErrorIs(t, err, resolvers.ErrWrongActor)
	err = resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Type: state.ActionDiscard, CardID: "theirs"})
	assert.ErrorIs(t, err, resolvers.ErrWrongType)
	err = resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, CardID: "ghost"})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)
	err = resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, CardIDs: []string{"mine", "theirs"}})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)
	err = resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Decline: true})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice, "a mandatory delete cannot be declined")
	require.NotNil(t, f.s.ActionRequired)

	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, CardID: "theirs"}))
	assert.Nil(t, f.s.ActionRequired)
	assert.Empty(t, f.s.Opponent.Lanes[1])
	assert.Len(t, f.s.Player.Lanes[0], 1)
	require.Len(t, f.s.Opponent.Discard, 1)
	assert.Equal(t, cards.Card{Protocol: "Life", Value: 2}, f.s.Opponent.Discard[0])
}

func TestOptionalEffectNeedsAnAnswer(t *testing.T) {
	flip := cards.EffectDef{Action: cards.ActionFlip}
	def := cards.EffectDef{
		Action:   cards.ActionDraw,
		Count:    cards.CountOf(1),
		Optional: true,
		Then:     &cards.Conditional{Type: cards.ConditionIfYouDo, Effect: &flip},
	}

	f := newFixture(t)
	f.s.Player.Deck = []cards.Card{{Protocol: "Fire", Value: 0}}
	f.execute(def)
	assert.Equal(t, state.ActionPromptOptionalEffect, f.pending().Type)
	assert.ErrorIs(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne}), resolvers.ErrInvalidChoice)

	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Decline: true}))
	assert.Empty(t, f.s.Player.Hand)
	assert.Empty(t, f.s.EffectStack, "declining skips the follow-up")

	f = newFixture(t)
	f.s.Player.Deck = []cards.Card{{Protocol: "Fire", Value: 0}}
	f.execute(def)
	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Accept: true}))
	assert.Len(t, f.s.Player.Hand, 1)
	require.Len(t, f.s.EffectStack, 1)
	assert.Equal(t, cards.ActionFlip, f.s.EffectStack[0].Effect.Action)
}

func TestDiscardUpToMayDiscardNothing(t *testing.T) {
	draw := cards.EffectDef{Action: cards.ActionDraw, CountFrom: cards.CountFromDiscarded}
	def := cards.EffectDef{
		Action: cards.ActionDiscard,
		Count:  cards.CountOf(3),
		UpTo:   true,
		Then:   &cards.Conditional{Type: cards.ConditionIfExecuted, Effect: &draw},
	}

	f := newFixture(t)
	f.hand(state.PlayerOne, "h0", "h1")
	f.execute(def)
	ar := f.pending()
	assert.Equal(t, state.ActionDiscard, ar.Type)
	assert.Equal(t, 2, ar.Count)
	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne}))
	assert.Len(t, f.s.Player.Hand, 2)
	assert.Empty(t, f.s.EffectStack)

	f = newFixture(t)
	f.hand(state.PlayerOne, "h0", "h1")
	f.execute(def)
	err := resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, CardIDs: []string{"h0", "h0"}})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)
	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, CardIDs: []string{"h0", "h1"}}))
	assert.Empty(t, f.s.Player.Hand)
	require.Len(t, f.s.EffectStack, 1)
	assert.Equal(t, 2, f.s.EffectStack[0].Chain.DiscardedCount)
}

func TestShiftAsksForDestination(t *testing.T) {
	f := newFixture(t)
	f.board(state.PlayerTwo, 1, "target", "Life", 3)
	f.execute(cards.EffectDef{Action: cards.ActionShift, Target: targeting.Filter{Owner: targeting.OwnerOpponent}})

	ar := f.pending()
	assert.Equal(t, state.ActionSelectLaneForShift, ar.Type)
	assert.Equal(t, "target", ar.CardID)
	assert.Equal(t, []int{0, 2}, ar.ValidLanes)
	assert.False(t, resolvers.Auto(f.r), "two destinations are a real choice")

	assert.ErrorIs(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Lane: 1}), resolvers.ErrInvalidChoice)
	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Lane: 2}))

	assert.True(t, f.s.IsCommitted("target"))
	require.Len(t, f.s.EffectStack, 1)
	assert.Equal(t, state.SystemLand, f.s.EffectStack[0].System)
	assert.Equal(t, 2, f.s.EffectStack[0].Transit.ToLane)
}

func TestAutoAnswersForcedPick(t *testing.T) {
	f := newFixture(t)
	f.board(state.PlayerTwo, 1, "target", "Life", 3)
	pe := f.effect(cards.EffectDef{Action: cards.ActionDelete, Count: cards.CountOf(1)})
	ar := effects.NewAction(state.ActionSelectCardsToDelete, pe)
	ar.Count = 1
	ar.ValidTargets = []string{"target"}
	f.r.Pause(pe, ar)

	require.True(t, resolvers.Auto(f.r))
	assert.Nil(t, f.s.ActionRequired)
	assert.Empty(t, f.s.Opponent.Lanes[1])
	assert.False(t, resolvers.Auto(f.r))
}

func TestAutoLeavesOptionalPicks(t *testing.T) {
	f := newFixture(t)
	f.board(state.PlayerTwo, 1, "target", "Life", 3)
	f.execute(cards.EffectDef{Action: cards.ActionFlip, Optional: true})

	assert.Equal(t, state.ActionSelectCardToFlip, f.pending().Type)
	assert.False(t, resolvers.Auto(f.r))
	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Decline: true}))
	assert.True(t, f.s.Opponent.Lanes[1][0].IsFaceUp)
}

func TestStateNumberFeedsTheChain(t *testing.T) {
	flip := cards.EffectDef{Action: cards.ActionFlip, Target: targeting.Filter{ValueEqualsStated: true}}
	f := newFixture(t)
	f.execute(cards.EffectDef{
		Action: cards.ActionStateNumber,
		Then:   &cards.Conditional{Type: cards.ConditionAfter, Effect: &flip},
	})
	ar := f.pending()
	assert.Len(t, ar.Options, 7)

	assert.ErrorIs(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Number: 9}), resolvers.ErrInvalidChoice)
	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Number: 3}))

	require.Len(t, f.s.EffectStack, 1)
	stated := f.s.EffectStack[0].Chain.StatedNumber
	require.NotNil(t, stated)
	assert.Equal(t, 3, *stated)
}

func TestSwapProtocols(t *testing.T) {
	f := newFixture(t)
	f.execute(cards.EffectDef{Action: cards.ActionSwapProtocols})
	assert.Equal(t, state.ActionPromptSwapProtocols, f.pending().Type)

	err := resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Lanes: []int{1, 1}})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)
	err = resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Lanes: []int{0}})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)

	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Lanes: []int{0, 2}}))
	assert.Equal(t, [state.LaneCount]string{"Light", "Hate", "Fire"}, f.s.Player.Protocols)
	assert.Equal(t, [state.LaneCount]string{"Death", "Life", "Speed"}, f.s.Opponent.Protocols)
}

func TestRearrangeRejectsForeignProtocols(t *testing.T) {
	f := newFixture(t)
	f.execute(cards.EffectDef{Action: cards.ActionRearrangeProtocols, TargetPlayer: cards.WhoOpponent})
	ar := f.pending()
	assert.Equal(t, state.PlayerTwo, ar.TargetPlayer)

	err := resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Order: []string{"Fire", "Life", "Speed"}})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)
	err = resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Decline: true})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)

	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, Order: []string{"Speed", "Death", "Life"}}))
	assert.Equal(t, [state.LaneCount]string{"Speed", "Death", "Life"}, f.s.Opponent.Protocols)
}

func TestHandLimitDiscardClearsCache(t *testing.T) {
	f := newFixture(t)
	f.hand(state.PlayerOne, "h0", "h1", "h2", "h3", "h4", "h5", "h6")
	f.s.Phase = state.PhaseHandLimit
	f.s.ActionRequired = &state.ActionRequired{
		Type:      state.ActionDiscard,
		Actor:     state.PlayerOne,
		Count:     2,
		HandLimit: true,
		LaneLimit: state.NoLane,
	}

	err := resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, CardIDs: []string{"h0"}})
	assert.ErrorIs(t, err, resolvers.ErrInvalidChoice)
	assert.False(t, f.s.HandLimitResolved)

	require.NoError(t, resolvers.Resolve(f.r, state.Choice{Actor: state.PlayerOne, CardIDs: []string{"h0", "h6"}}))
	assert.True(t, f.s.HandLimitResolved)
	assert.Len(t, f.s.Player.Hand, 5)
	assert.Len(t, f.s.Player.Discard, 2)
}
