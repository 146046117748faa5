package game

import (
	"fmt"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/effects"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// phaseStep runs one step of the turn state machine. It returns false when
// the match waits for the turn player's move.
func (e *Engine) phaseStep(r *effects.Run) bool {
	s := r.S
	switch s.Phase {
	case state.PhaseStart:
		return e.phaseEffects(r, cards.TriggerStart)
	case state.PhaseControl:
		e.controlStep(r)
		e.advance(r)
		return true
	case state.PhaseCompile:
		return e.compileStep(r)
	case state.PhaseAction:
		if s.ActionTaken {
			e.advance(r)
			return true
		}
		return false
	case state.PhaseHandLimit:
		return e.handLimitStep(r)
	case state.PhaseEnd:
		return e.phaseEffects(r, cards.TriggerEnd)
	}
	e.logger.Error("unknown phase")
	return false
}

// advance moves to the next phase of the turn, ending the turn after the
// last one.
func (e *Engine) advance(r *effects.Run) {
	next, wraps := rules.NextPhase(r.S.Phase)
	if wraps {
		e.endTurn(r)
		return
	}
	e.enter(r, next)
}

func (e *Engine) enter(r *effects.Run, phase state.Phase) {
	r.S.Phase = phase
	ev := rules.NewEvent(r.S, rules.EventPhaseChanged, r.S.Turn)
	r.Events = append(r.Events, ev)
}

// phaseEffects fires the start or end effects captured at phase entry, each
// once. The owner picks the order when several are waiting.
func (e *Engine) phaseEffects(r *effects.Run, trigger cards.Trigger) bool {
	s := r.S
	snap := &s.StartPhaseEffectSnapshot
	if trigger == cards.TriggerEnd {
		snap = &s.EndPhaseEffectSnapshot
	}
	if *snap == nil {
		*snap = r.SnapshotPhaseEffects(trigger)
	}
	eligible := r.EligiblePhaseEffects(*snap, trigger)
	switch len(eligible) {
	case 0:
		*snap = nil
		e.advance(r)
	case 1:
		r.FirePhaseEffect(*snap, eligible[0], trigger)
	default:
		ar := state.ActionRequired{
			Type:      state.ActionSelectTriggerOrder,
			Actor:     s.Turn,
			Prompt:    fmt.Sprintf("Choose which %s effect resolves next", trigger),
			Count:     1,
			LaneLimit: state.NoLane,
		}
		for _, ref := range eligible {
			ar.ValidTargets = append(ar.ValidTargets, ref.Key())
		}
		s.ActionRequired = &ar
	}
	return true
}

func (e *Engine) controlStep(r *effects.Run) {
	s := r.S
	holder := rules.ControlHolder(s)
	if holder == state.NoPlayer || holder == s.ControlCardHolder {
		return
	}
	s.ControlCardHolder = holder
	r.Logf(holder, "", "%s gains control", holder)
	r.Events = append(r.Events, rules.NewEvent(s, rules.EventControlChanged, holder))
}

func (e *Engine) compileStep(r *effects.Run) bool {
	s := r.S
	if s.CompiledThisTurn {
		e.enter(r, state.PhaseHandLimit)
		return true
	}
	side := s.Side(s.Turn)
	if side.CannotCompile {
		r.Logf(s.Turn, "", "%s cannot compile this turn", s.Turn)
		e.advance(r)
		return true
	}
	lanes := rules.CompilableLanes(s, s.Turn, e.rules.CompileThreshold)
	s.CompilableLanes = lanes
	switch len(lanes) {
	case 0:
		e.advance(r)
	case 1:
		r.StartCompile(s.Turn, lanes[0])
	default:
		s.ActionRequired = &state.ActionRequired{
			Type:       state.ActionSelectLaneForCompile,
			Actor:      s.Turn,
			Prompt:     "Choose a protocol to compile",
			ValidLanes: lanes,
			LaneLimit:  state.NoLane,
		}
	}
	return true
}

func (e *Engine) handLimitStep(r *effects.Run) bool {
	s := r.S
	if s.HandLimitResolved {
		e.advance(r)
		return true
	}
	side := s.Side(s.Turn)
	excess := len(side.Hand) - e.rules.HandLimit
	if excess <= 0 {
		e.advance(r)
		return true
	}
	ar := state.ActionRequired{
		Type:      state.ActionDiscard,
		Actor:     s.Turn,
		Prompt:    fmt.Sprintf("Discard %d card%s down to %d", excess, plural(excess), e.rules.HandLimit),
		Count:     excess,
		HandLimit: true,
		LaneLimit: state.NoLane,
	}
	for _, c := range side.Hand {
		ar.ValidTargets = append(ar.ValidTargets, c.ID)
	}
	s.ActionRequired = &ar
	return true
}

// endTurn hands the turn to the other player and clears turn-scoped state.
func (e *Engine) endTurn(r *effects.Run) {
	s := r.S
	ending := s.Turn
	s.Side(ending).CannotCompile = false
	s.ActionTaken = false
	s.CompiledThisTurn = false
	s.HandLimitResolved = false
	s.CompilableLanes = nil
	s.StartPhaseEffectSnapshot = nil
	s.EndPhaseEffectSnapshot = nil
	s.ReactiveFired = nil

	s.Turn = state.Opponent(ending)
	s.TurnNumber++
	s.Phase = state.PhaseStart
	r.Logf(s.Turn, "", "turn %d: %s", s.TurnNumber, s.Turn)
	r.Events = append(r.Events, rules.NewEvent(s, rules.EventTurnStarted, s.Turn))
}

// checkMove validates an action-phase move without changing s.
func (e *Engine) checkMove(s *state.GameState, move state.Move) error {
	switch {
	case s.Done():
		return fmt.Errorf("match is over")
	case s.Phase != state.PhaseAction || s.ActionTaken:
		return fmt.Errorf("not waiting for a move in phase %s", s.Phase)
	case s.ActionRequired != nil:
		return fmt.Errorf("a %s decision is pending", s.ActionRequired.Type)
	case len(s.EffectStack) > 0:
		return fmt.Errorf("effects are still resolving")
	case move.Player != s.Turn:
		return fmt.Errorf("it is %s's turn, not %s's", s.Turn, move.Player)
	}
	side := s.Side(move.Player)
	switch move.Type {
	case state.MovePlay:
		idx := side.HandIndex(move.CardID)
		if idx < 0 {
			return fmt.Errorf("card %s is not in hand", move.CardID)
		}
		if move.Lane < 0 || move.Lane >= state.LaneCount {
			return fmt.Errorf("line %d does not exist", move.Lane)
		}
		if move.FaceUp && !rules.CanPlayFaceUp(s, side.Hand[idx], move.Lane) {
			return fmt.Errorf("%s cannot be played face-up in line %d", side.Hand[idx].Name(), move.Lane)
		}
	case state.MoveRefresh:
		if len(side.Hand) >= e.rules.HandSize {
			return fmt.Errorf("cannot refresh with %d cards in hand", len(side.Hand))
		}
	case state.MovePass:
	default:
		return fmt.Errorf("unknown move %q", move.Type)
	}
	return nil
}

func (e *Engine) applyMove(r *effects.Run, move state.Move) {
	s := r.S
	s.ActionTaken = true
	switch move.Type {
	case state.MovePlay:
		pe := effects.SystemEffect(state.SystemNone, move.Player, move.Lane, s.Turn)
		pe.Effect = cards.EffectDef{Action: cards.ActionPlay, Source: cards.SourceHand, FaceUp: move.FaceUp}
		r.Begin(pe)
		r.PlayHandCard(pe, move.CardID, move.Lane)
		r.Flush()
	case state.MoveRefresh:
		r.StartRefresh(move.Player)
	case state.MovePass:
		r.Logf(move.Player, "", "%s passes", move.Player)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
