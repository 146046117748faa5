package effects

import (
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/game/targeting"
)

// HandCandidates lists the cards in p's hand matching the effect's filter.
func (r *Run) HandCandidates(pe state.PendingEffect, p state.Player) []string {
	perspective := targeting.Perspective{
		SourceCardID:   pe.SourceCardID,
		StatedNumber:   pe.Chain.StatedNumber,
		StatedProtocol: pe.Chain.StatedProtocol,
	}
	var ids []string
	for _, c := range r.S.Side(p).Hand {
		if pe.Effect.Target.MatchesCard(c.Value, c.Protocol, perspective) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (r *Run) discard(pe state.PendingEffect) {
	actor := pe.Context.Actor
	ids := r.HandCandidates(pe, actor)
	if len(ids) == 0 {
		r.Skip(pe, "no cards to discard")
		return
	}
	if pe.Effect.Count.All {
		r.Discard(&pe, actor, ids)
		r.Finish(pe, true)
		return
	}
	n := r.amount(pe)
	if n <= 0 {
		r.Skip(pe, "nothing to discard")
		return
	}
	if !pe.Effect.UpTo && !pe.Effect.Optional && len(ids) <= n {
		r.Discard(&pe, actor, ids)
		r.Finish(pe, true)
		return
	}
	ar := NewAction(state.ActionDiscard, pe)
	ar.Count = min(n, len(ids))
	ar.ValidTargets = ids
	r.Pause(pe, ar)
}

func (r *Run) give(pe state.PendingEffect) {
	actor := pe.Context.Actor
	ids := r.HandCandidates(pe, actor)
	if len(ids) == 0 {
		r.Skip(pe, "no cards to give")
		return
	}
	ar := NewAction(state.ActionSelectCardFromHandToGive, pe)
	ar.Count = 1
	ar.ValidTargets = ids
	r.Pause(pe, ar)
}

func (r *Run) play(pe state.PendingEffect) {
	if pe.Effect.Source == cards.SourceDeck {
		r.playFromDeck(pe)
		return
	}
	actor := pe.Context.Actor
	ids := r.HandCandidates(pe, actor)
	if len(ids) == 0 {
		r.Skip(pe, "no cards to play")
		return
	}
	if len(ids) == 1 && !pe.Effect.Optional {
		r.PlayFromHand(pe, ids[0])
		return
	}
	ar := NewAction(state.ActionSelectCardFromHandToPlay, pe)
	ar.Count = 1
	ar.ValidTargets = ids
	ar.FaceUp = pe.Effect.FaceUp
	r.Pause(pe, ar)
}

// PlayFromHand continues a hand play once the card is known: it asks for the
// lane unless only one is legal.
func (r *Run) PlayFromHand(pe state.PendingEffect, cardID string) {
	actor := pe.Context.Actor
	side := r.S.Side(actor)
	idx := side.HandIndex(cardID)
	if idx < 0 {
		r.Skip(pe, "the card is no longer in hand")
		return
	}
	lanes := r.PlayLanes(pe, actor, side.Hand[idx], pe.Effect.FaceUp)
	switch len(lanes) {
	case 0:
		r.Skip(pe, "no line to play into")
	case 1:
		r.PlayHandCard(pe, cardID, lanes[0])
		r.Finish(pe, true)
	default:
		ar := NewAction(state.ActionSelectLaneForPlay, pe)
		ar.CardID = cardID
		ar.FaceUp = pe.Effect.FaceUp
		ar.ValidLanes = lanes
		ar.Optional = false
		r.Pause(pe, ar)
	}
}

// PlayHandCard takes a card out of hand and starts its move into lane.
func (r *Run) PlayHandCard(pe state.PendingEffect, cardID string, lane int) bool {
	actor := pe.Context.Actor
	side := r.S.Side(actor)
	idx := side.HandIndex(cardID)
	if idx < 0 {
		return false
	}
	card := side.Hand[idx]
	card.IsFaceUp = pe.Effect.FaceUp
	side.Hand = append(side.Hand[:idx:idx], side.Hand[idx+1:]...)
	r.BeginPlay(pe, actor, card, lane, idx)
	return true
}

func (r *Run) playFromDeck(pe state.PendingEffect) {
	actor := pe.Context.Actor
	blank := state.PlayedCard{}
	if pe.Effect.Scope.PerLane() {
		src := r.sourceLane(pe)
		played := 0
		for _, lane := range r.PlayLanes(pe, actor, blank, false) {
			if !pe.Effect.Scope.Allows(lane, src) {
				continue
			}
			if !r.PlayDeckCard(pe, lane) {
				break
			}
			played++
		}
		if played == 0 {
			r.Skip(pe, "no cards in deck")
			return
		}
		r.Finish(pe, true)
		return
	}
	lanes := r.PlayLanes(pe, actor, blank, false)
	switch len(lanes) {
	case 0:
		r.Skip(pe, "no line to play into")
	case 1:
		if !r.PlayDeckCard(pe, lanes[0]) {
			r.Skip(pe, "no cards in deck")
			return
		}
		r.Finish(pe, true)
	default:
		ar := NewAction(state.ActionSelectLaneForPlay, pe)
		ar.ValidLanes = lanes
		r.Pause(pe, ar)
	}
}

// PlayDeckCard plays the top card of the actor's deck face-down into lane.
func (r *Run) PlayDeckCard(pe state.PendingEffect, lane int) bool {
	actor := pe.Context.Actor
	card, ok, reshuffled := r.S.TakeTop(actor)
	if reshuffled {
		r.Logf(actor, pe.SourceName, "%s shuffles their trash into their deck", actor)
		r.Raise(rules.NewEvent(r.S, rules.EventAfterShuffle, actor))
	}
	if !ok {
		return false
	}
	played := r.S.MintCard(card, pe.Effect.FaceUp)
	r.BeginPlay(pe, actor, played, lane, state.NoLane)
	return true
}
