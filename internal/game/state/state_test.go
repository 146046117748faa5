package state

import (
	"testing"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() GameState {
	s := GameState{Turn: PlayerOne, Phase: PhaseAction, TurnNumber: 1, Seed: 7}
	s.Player.Protocols = [LaneCount]string{"Fire", "Water", "Speed"}
	s.Opponent.Protocols = [LaneCount]string{"Death", "Life", "Light"}
	s.Player.Lanes[0] = []PlayedCard{{ID: "p0", Protocol: "Fire", Value: 1, IsFaceUp: true}, {ID: "p1", Protocol: "Water", Value: 3}}
	s.Opponent.Hand = []PlayedCard{{ID: "h0", Protocol: "Death", Value: 2}}
	s.Player.Deck = []cards.Card{{Protocol: "Fire", Value: 4}}
	return s
}

func TestCloneIsDeep(t *testing.T) {
	s := sampleState()
	s.ActionRequired = &ActionRequired{Type: ActionSelectCardToFlip, ValidTargets: []string{"p1"}, Origin: &PendingEffect{Effect: cards.EffectDef{Action: cards.ActionFlip}}}
	s.PushEffect(PendingEffect{SourceCardID: "p0", Transit: &Transit{ToLane: 1}})

	c := s.Clone()
	c.Player.Lanes[0][0].IsFaceUp = false
	c.Opponent.Hand[0].Value = 9
	c.ActionRequired.ValidTargets[0] = "zzz"
	c.ActionRequired.Origin.Effect.Action = cards.ActionDelete
	c.EffectStack[0].Transit.ToLane = 2

	assert.True(t, s.Player.Lanes[0][0].IsFaceUp)
	assert.Equal(t, 2, s.Opponent.Hand[0].Value)
	assert.Equal(t, "p1", s.ActionRequired.ValidTargets[0])
	assert.Equal(t, cards.ActionFlip, s.ActionRequired.Origin.Effect.Action)
	assert.Equal(t, 1, s.EffectStack[0].Transit.ToLane)
}

func TestLocate(t *testing.T) {
	s := sampleState()

	card, loc, ok := s.Locate("p1")
	require.True(t, ok)
	assert.Equal(t, "Water", card.Protocol)
	assert.Equal(t, Location{Owner: PlayerOne, Zone: ZoneLane, Lane: 0, Index: 1}, loc)
	assert.True(t, s.IsUncovered(loc))

	_, loc, ok = s.Locate("h0")
	require.True(t, ok)
	assert.Equal(t, ZoneHand, loc.Zone)
	_, _, ok = s.OnBoard("h0")
	assert.False(t, ok)
}

func TestCommitment(t *testing.T) {
	s := sampleState()
	s.Commit("p0")
	s.Commit("p0")
	assert.Len(t, s.CommittedCardIDs, 1)
	assert.True(t, s.IsCommitted("p0"))
	s.Release("p0")
	assert.False(t, s.IsCommitted("p0"))
}

func TestEffectStackIsLIFO(t *testing.T) {
	s := sampleState()
	s.PushEffectsInOrder([]PendingEffect{{SourceCardID: "a"}, {SourceCardID: "b"}})
	s.PushEffect(PendingEffect{SourceCardID: "c"})

	var order []string
	for {
		pe, err := s.PopEffect()
		if err != nil {
			assert.ErrorIs(t, err, ErrStackEmpty)
			break
		}
		order = append(order, pe.SourceCardID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestQueuedActionWaitsForStack(t *testing.T) {
	s := sampleState()
	s.QueueAction(ActionRequired{Type: ActionDiscard})
	s.PushEffect(PendingEffect{SourceCardID: "later"})

	_, ok := s.NextQueued()
	assert.False(t, ok, "effects pushed after queueing resolve first")

	_, _ = s.PopEffect()
	ar, ok := s.NextQueued()
	require.True(t, ok)
	assert.Equal(t, ActionDiscard, ar.Type)
	assert.Empty(t, s.QueuedActions)
}

func TestInterruptRoundTrip(t *testing.T) {
	s := sampleState()
	s.QueueAction(ActionRequired{Type: ActionSelectCardToFlip})
	s.PushEffect(PendingEffect{SourceCardID: "below"})

	s.PushInterrupt(PlayerTwo)
	assert.Equal(t, PlayerTwo, s.Turn)
	assert.Empty(t, s.QueuedActions)

	s.PushEffect(PendingEffect{SourceCardID: "reaction"})
	assert.False(t, s.RestoreInterrupt(), "reaction still pending")

	_, _ = s.PopEffect()
	require.True(t, s.RestoreInterrupt())
	assert.Equal(t, PlayerOne, s.Turn)
	assert.Equal(t, PhaseAction, s.Phase)
	assert.Len(t, s.QueuedActions, 1)
	assert.Empty(t, s.Interrupts)
}

func TestMintCardIsDeterministic(t *testing.T) {
	a := sampleState()
	b := sampleState()

	first := a.MintCard(cards.Card{Protocol: "Fire", Value: 1}, false)
	assert.Equal(t, first, b.MintCard(cards.Card{Protocol: "Fire", Value: 1}, false))
	assert.NotEqual(t, first.ID, a.MintCard(cards.Card{Protocol: "Fire", Value: 1}, false).ID)
}

func TestTakeTopReshufflesDiscard(t *testing.T) {
	s := sampleState()
	s.Player.Deck = nil
	s.Player.Discard = []cards.Card{{Protocol: "Fire", Value: 0}, {Protocol: "Fire", Value: 1}}

	_, ok, reshuffled := s.TakeTop(PlayerOne)
	require.True(t, ok)
	assert.True(t, reshuffled)
	assert.Len(t, s.Player.Deck, 1)
	assert.Empty(t, s.Player.Discard)

	s.Player.Deck = nil
	_, ok, _ = s.TakeTop(PlayerOne)
	assert.False(t, ok)
}

func TestAwaiting(t *testing.T) {
	s := sampleState()
	p, ok := s.Awaiting()
	require.True(t, ok)
	assert.Equal(t, PlayerOne, p)

	s.ActionRequired = &ActionRequired{Type: ActionDiscard, Actor: PlayerTwo}
	p, _ = s.Awaiting()
	assert.Equal(t, PlayerTwo, p)

	s.Winner = PlayerOne
	_, ok = s.Awaiting()
	assert.False(t, ok)
}
