package effects

import (
	"fmt"
	"strings"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/game/targeting"
	"go.uber.org/zap"
)

// React raises ev outside any effect and queues the cards listening to it.
func (r *Run) React(ev rules.Event) {
	r.frame = frame{}
	r.Raise(ev)
	r.Flush()
}

// reactions collects the face-up cards listening to ev: turn player first,
// lanes ascending, bottom to top of each stack.
func (r *Run) reactions(ev rules.Event) []state.PendingEffect {
	trigger := ev.Type.Trigger()
	if r.frame.reactive && strings.HasPrefix(string(trigger), "after_") {
		r.in.logger.Debug("reaction suppressed under reactive origin",
			zap.String("event", string(ev.Type)),
			zap.Uint64("seq", ev.Seq),
		)
		return nil
	}
	root := ev.Seq
	if r.frame.reactive {
		root = r.frame.root
	}
	var out []state.PendingEffect
	for _, owner := range r.S.Players() {
		side := r.S.Side(owner)
		for lane := 0; lane < state.LaneCount; lane++ {
			stack := side.Lanes[lane]
			for i, card := range stack {
				if !card.IsFaceUp || r.S.IsCommitted(card.ID) {
					continue
				}
				def, ok := r.in.lookup.Card(card.Protocol, card.Value)
				if !ok {
					continue
				}
				uncovered := i == len(stack)-1
				for _, eff := range def.Effects {
					if eff.Trigger != trigger || !listens(eff, owner, lane, uncovered, ev) {
						continue
					}
					key := firedKey(ev, root, card.ID, eff.ID)
					if r.S.HasFired(key) {
						continue
					}
					r.S.MarkFired(key)
					pe := r.child(card, owner, lane, eff, state.OriginReactive, trigger)
					pe.Reactive = true
					pe.RootSeq = root
					out = append(out, pe)
				}
			}
		}
	}
	return out
}

func listens(eff cards.EffectDef, owner state.Player, lane int, uncovered bool, ev rules.Event) bool {
	if eff.Position != cards.PositionTop && !uncovered {
		return false
	}
	switch eff.Actor {
	case cards.ActorSelf:
		if ev.Player != owner {
			return false
		}
	case cards.ActorOpponent:
		if ev.Player != state.Opponent(owner) {
			return false
		}
	}
	if eff.LaneScope == targeting.ScopeThisLane && ev.Lane != lane {
		return false
	}
	if ev.Type == rules.EventBeforeCompileDelete && ev.Lane != lane {
		return false
	}
	return true
}

// firedKey identifies one occurrence of a reaction. Inside a reactive chain
// root is the event that started it, so a card answers each trigger once per
// chain. Clearing cache can only be answered once per turn.
func firedKey(ev rules.Event, root uint64, cardID, effectID string) string {
	if ev.Type == rules.EventAfterClearCache {
		return fmt.Sprintf("%s#turn%d#%s#%s", ev.Type, ev.Turn, cardID, effectID)
	}
	return fmt.Sprintf("%s#%d#%s#%s", ev.Type, root, cardID, effectID)
}
