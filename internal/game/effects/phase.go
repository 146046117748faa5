package effects

import (
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// SnapshotPhaseEffects captures the turn player's start or end effects that
// are active at phase entry.
func (r *Run) SnapshotPhaseEffects(trigger cards.Trigger) *state.PhaseEffectSnapshot {
	snap := &state.PhaseEffectSnapshot{}
	p := r.S.Turn
	side := r.S.Side(p)
	for lane := 0; lane < state.LaneCount; lane++ {
		stack := side.Lanes[lane]
		for i, card := range stack {
			if !card.IsFaceUp {
				continue
			}
			def, ok := r.in.lookup.Card(card.Protocol, card.Value)
			if !ok {
				continue
			}
			for _, eff := range def.Effects {
				if eff.Trigger != trigger {
					continue
				}
				if eff.Position == cards.PositionBottom && i != len(stack)-1 {
					continue
				}
				snap.Entries = append(snap.Entries, state.PhaseEffectRef{CardID: card.ID, EffectID: eff.ID})
			}
		}
	}
	return snap
}

// phaseEffect returns the definition behind a snapshot entry if its card can
// still produce it.
func (r *Run) phaseEffect(ref state.PhaseEffectRef, trigger cards.Trigger) (state.PlayedCard, state.Location, cards.EffectDef, bool) {
	card, loc, ok := r.S.OnBoard(ref.CardID)
	if !ok || loc.Owner != r.S.Turn || !card.IsFaceUp || r.S.IsCommitted(card.ID) {
		return card, loc, cards.EffectDef{}, false
	}
	def, ok := r.in.lookup.Card(card.Protocol, card.Value)
	if !ok {
		return card, loc, cards.EffectDef{}, false
	}
	for _, eff := range def.Effects {
		if eff.ID != ref.EffectID || eff.Trigger != trigger {
			continue
		}
		if eff.Position == cards.PositionBottom && !r.S.IsUncovered(loc) {
			return card, loc, eff, false
		}
		return card, loc, eff, true
	}
	return card, loc, cards.EffectDef{}, false
}

// EligiblePhaseEffects lists the snapshot entries that have not fired and
// whose cards are still able to fire them.
func (r *Run) EligiblePhaseEffects(snap *state.PhaseEffectSnapshot, trigger cards.Trigger) []state.PhaseEffectRef {
	var out []state.PhaseEffectRef
	for _, ref := range snap.Entries {
		if snap.IsProcessed(ref) {
			continue
		}
		if _, _, _, ok := r.phaseEffect(ref, trigger); ok {
			out = append(out, ref)
		}
	}
	return out
}

// FirePhaseEffect marks a snapshot entry processed and puts its effect on the
// stack. It reports whether anything was pushed.
func (r *Run) FirePhaseEffect(snap *state.PhaseEffectSnapshot, ref state.PhaseEffectRef, trigger cards.Trigger) bool {
	snap.Processed = append(snap.Processed, ref.Key())
	card, loc, eff, ok := r.phaseEffect(ref, trigger)
	if !ok {
		return false
	}
	r.frame = frame{}
	origin := state.OriginStart
	if trigger == cards.TriggerEnd {
		origin = state.OriginEnd
	}
	r.Logf(loc.Owner, card.Name(), "%s triggers", card.Name())
	r.S.PushEffect(r.child(card, loc.Owner, loc.Lane, eff, origin, trigger))
	return true
}
