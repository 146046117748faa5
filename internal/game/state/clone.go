package state

import (
	"github.com/compilegame/compile-server-go/internal/game/cards"
)

// Clone returns a deep copy of the state. Engine operations never mutate
// their input; they clone it first.
func (s GameState) Clone() GameState {
	out := s
	out.QueuedActions = nil
	out.Interrupts = nil
	out.EffectStack = nil
	out.Player = s.Player.clone()
	out.Opponent = s.Opponent.clone()
	out.Log = append([]LogEntry(nil), s.Log...)

	if s.ActionRequired != nil {
		ar := s.ActionRequired.Clone()
		out.ActionRequired = &ar
	}
	if len(s.QueuedActions) > 0 {
		out.QueuedActions = cloneQueued(s.QueuedActions)
	}
	out.CompilableLanes = append([]int(nil), s.CompilableLanes...)
	out.StartPhaseEffectSnapshot = s.StartPhaseEffectSnapshot.clone()
	out.EndPhaseEffectSnapshot = s.EndPhaseEffectSnapshot.clone()

	if len(s.Interrupts) > 0 {
		out.Interrupts = make([]Continuation, len(s.Interrupts))
		for i, c := range s.Interrupts {
			c.QueuedActions = cloneQueued(c.QueuedActions)
			out.Interrupts[i] = c
		}
	}
	if len(s.EffectStack) > 0 {
		out.EffectStack = make([]PendingEffect, len(s.EffectStack))
		for i, pe := range s.EffectStack {
			out.EffectStack[i] = pe.Clone()
		}
	}
	out.CommittedCardIDs = append([]string(nil), s.CommittedCardIDs...)
	out.ReactiveFired = append([]string(nil), s.ReactiveFired...)
	return out
}

// Clone deep-copies the pending decision.
func (a ActionRequired) Clone() ActionRequired {
	out := a
	out.TargetFilter = cards.EffectDef{Target: a.TargetFilter}.Clone().Target
	out.ValidTargets = append([]string(nil), a.ValidTargets...)
	out.ValidLanes = append([]int(nil), a.ValidLanes...)
	out.Options = append([]string(nil), a.Options...)
	if a.Origin != nil {
		origin := a.Origin.Clone()
		out.Origin = &origin
	}
	return out
}

func (p PlayerState) clone() PlayerState {
	out := p
	for i := range p.Lanes {
		out.Lanes[i] = append([]PlayedCard(nil), p.Lanes[i]...)
	}
	out.Hand = append([]PlayedCard(nil), p.Hand...)
	out.Deck = append([]cards.Card(nil), p.Deck...)
	out.Discard = append([]cards.Card(nil), p.Discard...)
	return out
}

func (p *PhaseEffectSnapshot) clone() *PhaseEffectSnapshot {
	if p == nil {
		return nil
	}
	return &PhaseEffectSnapshot{
		Entries:   append([]PhaseEffectRef(nil), p.Entries...),
		Processed: append([]string(nil), p.Processed...),
	}
}

func cloneQueued(in []QueuedAction) []QueuedAction {
	if len(in) == 0 {
		return nil
	}
	out := make([]QueuedAction, len(in))
	for i, q := range in {
		out[i] = QueuedAction{Action: q.Action.Clone(), StackHeight: q.StackHeight}
	}
	return out
}
