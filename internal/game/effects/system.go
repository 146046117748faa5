package effects

import (
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// SystemEffect builds an engine step that travels through the effect stack.
func SystemEffect(step state.SystemStep, p state.Player, lane int, turn state.Player) state.PendingEffect {
	return state.PendingEffect{
		Lane:    lane,
		Context: state.NewEffectContext(p, turn, ""),
		Origin:  state.OriginSystem,
		System:  step,
		Player:  p,
	}
}

// StartCompile queues the compile of lane by p: the control holder may
// rearrange first, then before_compile_delete fires, then the lane compiles.
func (r *Run) StartCompile(p state.Player, lane int) {
	r.S.CompiledThisTurn = true
	r.S.CompilableLanes = nil
	r.S.PushEffect(SystemEffect(state.SystemCompileLane, p, lane, r.S.Turn))
	r.S.PushEffect(SystemEffect(state.SystemBeforeCompile, p, lane, r.S.Turn))
	if r.S.ControlCardHolder == p {
		r.S.PushEffect(SystemEffect(state.SystemUseControl, p, state.NoLane, r.S.Turn))
	}
}

// StartRefresh queues an action-phase refresh by p.
func (r *Run) StartRefresh(p state.Player) {
	r.S.PushEffect(SystemEffect(state.SystemRefresh, p, state.NoLane, r.S.Turn))
	if r.S.ControlCardHolder == p {
		r.S.PushEffect(SystemEffect(state.SystemUseControl, p, state.NoLane, r.S.Turn))
	}
}

func (r *Run) executeSystem(pe state.PendingEffect) {
	switch pe.System {
	case state.SystemLand:
		r.Land(pe)
	case state.SystemBeforeCompile:
		ev := rules.NewEvent(r.S, rules.EventBeforeCompileDelete, pe.Player)
		ev.Lane = pe.Lane
		r.Raise(ev)
		r.Flush()
	case state.SystemCompileLane:
		r.compileLane(pe)
	case state.SystemUseControl:
		r.useControl(pe)
	case state.SystemRefresh:
		r.Refresh(pe, pe.Player)
		r.Flush()
	case state.SystemLanesDone:
		r.Finish(pe, pe.Chain.Executed)
	default:
		r.Flush()
	}
}

func (r *Run) useControl(pe state.PendingEffect) {
	if r.S.ControlCardHolder != pe.Player {
		r.Flush()
		return
	}
	r.S.ControlCardHolder = state.NoPlayer
	r.Logf(pe.Player, "", "%s uses control", pe.Player)
	r.Raise(rules.NewEvent(r.S, rules.EventControlChanged, pe.Player))
	ar := NewAction(state.ActionPromptRearrangeProtocols, pe)
	ar.Actor = pe.Player
	ar.Optional = true
	ar.FromControl = true
	ar.Prompt = "You may rearrange either player's protocols"
	r.Pause(pe, ar)
}

func (r *Run) compileLane(pe state.PendingEffect) {
	p, lane := pe.Player, pe.Lane
	side := r.S.Side(p)
	opp := r.S.Side(state.Opponent(p))
	recompile := side.Compiled[lane]

	r.Logf(p, "", "%s compiles %s in line %d", p, side.Protocols[lane], lane)
	var ids []string
	for _, c := range side.Lanes[lane] {
		ids = append(ids, c.ID)
	}
	for _, c := range opp.Lanes[lane] {
		ids = append(ids, c.ID)
	}
	if len(ids) > 0 {
		r.deleteAs(pe, ids, state.AnimationCompileDelete)
	}

	if recompile {
		card, ok, reshuffled := r.S.TakeTop(state.Opponent(p))
		if reshuffled {
			r.Raise(rules.NewEvent(r.S, rules.EventAfterShuffle, state.Opponent(p)))
		}
		if ok {
			stolen := r.S.MintCard(card, false)
			side.Hand = append(side.Hand, stolen)
			anim := state.NewAnimation(state.AnimationDraw, p)
			anim.CardIDs = []string{stolen.ID}
			r.animate(anim)
			r.Logf(p, "", "%s takes the top card of %s's deck", p, state.Opponent(p))
		}
	} else {
		side.Compiled[lane] = true
	}

	ev := rules.NewEvent(r.S, rules.EventAfterCompile, p)
	ev.Lane = lane
	r.Raise(ev)

	if side.CompiledCount() == state.LaneCount {
		r.S.Winner = p
		r.Logf(p, "", "%s has compiled every protocol and wins", p)
		r.Raise(rules.NewEvent(r.S, rules.EventGameOver, p))
	}
	r.Flush()
}
