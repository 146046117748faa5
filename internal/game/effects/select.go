package effects

import (
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/game/targeting"
)

// Query describes which board cards an effect may pick.
type Query struct {
	Filter       targeting.Filter
	Scope        targeting.Scope
	Owner        state.Player
	SourceCardID string
	SourceLane   int
	// LaneLimit restricts candidates to one lane; NoLane means any.
	LaneLimit int
	Exclude   []string
	Chain     state.ChainContext
}

// QueryFor builds the query of a pending effect.
func (r *Run) QueryFor(pe state.PendingEffect, laneLimit int) Query {
	return Query{
		Filter:       pe.Effect.Target,
		Scope:        pe.Effect.Scope,
		Owner:        pe.Context.CardOwner,
		SourceCardID: pe.SourceCardID,
		SourceLane:   r.sourceLane(pe),
		LaneLimit:    laneLimit,
		Exclude:      pe.Chain.Touched,
		Chain:        pe.Chain,
	}
}

// Candidates lists the IDs of the cards matching q, player's side first,
// lanes ascending, bottom to top.
func (r *Run) Candidates(q Query) []string {
	var out []string
	perspective := targeting.Perspective{
		SourceCardID:   q.SourceCardID,
		StatedNumber:   q.Chain.StatedNumber,
		StatedProtocol: q.Chain.StatedProtocol,
	}
	excluded := make(map[string]bool, len(q.Exclude))
	for _, id := range q.Exclude {
		excluded[id] = true
	}
	for _, p := range [2]state.Player{state.PlayerOne, state.PlayerTwo} {
		side := r.S.Side(p)
		for lane := 0; lane < state.LaneCount; lane++ {
			if q.LaneLimit != state.NoLane && lane != q.LaneLimit {
				continue
			}
			if !q.Scope.Allows(lane, q.SourceLane) {
				continue
			}
			stack := side.Lanes[lane]
			for i, card := range stack {
				if excluded[card.ID] {
					continue
				}
				c := targeting.Candidate{
					CardID:    card.ID,
					Protocol:  card.Protocol,
					Own:       p == q.Owner,
					Lane:      lane,
					Index:     i,
					StackSize: len(stack),
					FaceUp:    card.IsFaceUp,
					Value:     r.in.lanes.CardValue(side, lane, card),
					Committed: r.S.IsCommitted(card.ID),
				}
				if q.Filter.Matches(c, perspective) {
					out = append(out, card.ID)
				}
			}
		}
	}
	return out
}

// BoardCandidates lists what pe may pick. Shift candidates without any legal
// destination are left out.
func (r *Run) BoardCandidates(pe state.PendingEffect, laneLimit int) []string {
	ids := r.Candidates(r.QueryFor(pe, laneLimit))
	if pe.Effect.Action != cards.ActionShift {
		return ids
	}
	out := ids[:0]
	for _, id := range ids {
		if len(r.ShiftLanes(pe, id)) > 0 {
			out = append(out, id)
		}
	}
	return out
}

// CandidateLanes returns the lanes holding at least one candidate.
func (r *Run) CandidateLanes(pe state.PendingEffect) []int {
	var lanes []int
	for lane := 0; lane < state.LaneCount; lane++ {
		if len(r.BoardCandidates(pe, lane)) > 0 {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

var selectCardAction = map[cards.Action]state.ActionType{
	cards.ActionDelete: state.ActionSelectCardsToDelete,
	cards.ActionFlip:   state.ActionSelectCardToFlip,
	cards.ActionShift:  state.ActionSelectCardToShift,
	cards.ActionReturn: state.ActionSelectCardToReturn,
}

var selectLaneAction = map[cards.Action]state.ActionType{
	cards.ActionDelete: state.ActionSelectLaneForDelete,
	cards.ActionFlip:   state.ActionSelectLaneForFlip,
	cards.ActionReturn: state.ActionSelectLaneForReturn,
	cards.ActionShift:  state.ActionSelectLaneForShift,
}

// board resolves flip, shift, delete and return.
func (r *Run) board(pe state.PendingEffect) {
	if len(pe.Targets) > 0 {
		r.shiftEach(pe)
		return
	}
	eff := pe.Effect
	if eff.Self || eff.UseLastTarget {
		id := pe.SourceCardID
		if eff.UseLastTarget {
			id = pe.Chain.LastTargetCardID
		}
		if _, _, ok := r.S.OnBoard(id); !ok || r.S.IsCommitted(id) {
			r.Skip(pe, "the card is no longer in a line")
			return
		}
		if eff.Action == cards.ActionShift {
			if len(r.ShiftLanes(pe, id)) == 0 {
				r.Skip(pe, "no line to shift to")
				return
			}
		}
		r.ApplyPicks(pe, []string{id}, 0)
		return
	}

	switch {
	case eff.Scope == targeting.ScopeChosenLane:
		lanes := r.CandidateLanes(pe)
		if len(lanes) == 0 {
			r.Skip(pe, "no valid targets")
			return
		}
		if len(lanes) == 1 && !eff.Optional {
			r.ApplyLane(pe, lanes[0])
			return
		}
		ar := NewAction(selectLaneAction[eff.Action], pe)
		ar.ValidLanes = lanes
		r.Pause(pe, ar)
		return
	case eff.Scope.PerLane():
		r.queuePerLane(pe)
		return
	}

	ids := r.BoardCandidates(pe, state.NoLane)
	if len(ids) == 0 {
		if pe.Continuation {
			r.Finish(pe, pe.Chain.Executed)
			return
		}
		r.Skip(pe, "no valid targets")
		return
	}
	if eff.Count.All {
		r.ApplyAll(pe, ids)
		return
	}
	n := eff.Amount()
	if !eff.Optional && len(ids) <= n && eff.Action != cards.ActionShift {
		r.ApplyPicks(pe, ids, 0)
		return
	}
	if !eff.Optional && len(ids) == 1 {
		r.ApplyPicks(pe, ids, 0)
		return
	}
	ar := NewAction(selectCardAction[eff.Action], pe)
	ar.Count = n
	ar.ValidTargets = ids
	r.Pause(pe, ar)
}

// queuePerLane defers one selection per lane, in lane order. The follow-up
// waits under the picks and runs once all of them are answered.
func (r *Run) queuePerLane(pe state.PendingEffect) {
	src := r.sourceLane(pe)
	var lanes []int
	for lane := 0; lane < state.LaneCount; lane++ {
		if pe.Effect.Scope.Allows(lane, src) && len(r.BoardCandidates(pe, lane)) > 0 {
			lanes = append(lanes, lane)
		}
	}
	if len(lanes) == 0 {
		r.Skip(pe, "no valid targets")
		return
	}
	done := pe.Clone()
	done.System = state.SystemLanesDone
	done.Chain.Executed = false
	r.S.PushEffect(done)
	for _, lane := range lanes {
		sub := pe.Clone()
		sub.Effect.Scope = targeting.ScopeAnywhere
		sub.Effect.Then = nil
		sub.PerLane = true
		ar := NewAction(selectCardAction[pe.Effect.Action], sub)
		ar.Count = pe.Effect.Amount()
		ar.LaneLimit = lane
		origin := sub.Clone()
		ar.Origin = &origin
		r.S.QueueAction(ar)
	}
	r.Logf(pe.Context.Actor, pe.SourceName, "%s resolves in %d lines", pe.SourceName, len(lanes))
	r.Flush()
}

// laneAnswered records an executed line pick on the entry waiting under it.
func (r *Run) laneAnswered(pe state.PendingEffect) {
	for i := len(r.S.EffectStack) - 1; i >= 0; i-- {
		done := &r.S.EffectStack[i]
		if done.System == state.SystemLanesDone && done.SourceCardID == pe.SourceCardID && done.Effect.ID == pe.Effect.ID {
			done.Chain.Executed = true
			done.Chain.LastTargetCardID = pe.Chain.LastTargetCardID
			return
		}
	}
}

// ApplyLane applies a chosen_lane effect to every candidate of one lane.
func (r *Run) ApplyLane(pe state.PendingEffect, lane int) {
	ids := r.BoardCandidates(pe, lane)
	if len(ids) == 0 {
		r.Skip(pe, "no valid targets in that line")
		return
	}
	r.ApplyAll(pe, ids)
}

// ApplyAll resolves a "count: all" pick atomically.
func (r *Run) ApplyAll(pe state.PendingEffect, ids []string) {
	switch pe.Effect.Action {
	case cards.ActionDelete:
		r.Delete(pe, ids)
	case cards.ActionReturn:
		r.Return(pe, ids)
	case cards.ActionFlip:
		for _, id := range ids {
			r.Flip(pe, id)
		}
	case cards.ActionShift:
		pe.Targets = append([]string(nil), ids...)
		r.shiftEach(pe)
		return
	}
	pe.Chain.LastTargetCardID = ids[len(ids)-1]
	r.Finish(pe, true)
}

// ApplyPicks resolves the picked cards of a board effect. remaining is the
// number of picks still owed afterwards; a continuation is pushed for them.
func (r *Run) ApplyPicks(pe state.PendingEffect, ids []string, remaining int) {
	switch pe.Effect.Action {
	case cards.ActionShift:
		id := ids[0]
		pe.Chain.LastTargetCardID = id
		pe.Chain.Touched = append(pe.Chain.Touched, id)
		lanes := r.ShiftLanes(pe, id)
		switch len(lanes) {
		case 0:
			r.Skip(pe, "no line to shift to")
		case 1:
			r.ShiftTo(pe, id, lanes[0])
		default:
			ar := NewAction(state.ActionSelectLaneForShift, pe)
			ar.CardID = id
			ar.ValidLanes = lanes
			ar.Optional = false
			r.Pause(pe, ar)
		}
		return
	case cards.ActionDelete:
		r.Delete(pe, ids)
	case cards.ActionReturn:
		r.Return(pe, ids)
	case cards.ActionFlip:
		for _, id := range ids {
			r.Flip(pe, id)
		}
	}
	pe.Chain.LastTargetCardID = ids[len(ids)-1]
	pe.Chain.Touched = append(pe.Chain.Touched, ids...)
	if remaining > 0 {
		r.Continue(pe, remaining)
		return
	}
	r.Finish(pe, true)
}

// shiftEach moves the targets of a "count: all" shift one card at a time.
// Each card lands before the next one moves; the follow-up waits for the last.
func (r *Run) shiftEach(pe state.PendingEffect) {
	for len(pe.Targets) > 0 {
		id := pe.Targets[0]
		pe.Targets = pe.Targets[1:]
		card, _, ok := r.S.OnBoard(id)
		if !ok || r.S.IsCommitted(id) {
			continue
		}
		lanes := r.ShiftLanes(pe, id)
		if len(lanes) == 0 {
			r.Logf(pe.Context.Actor, pe.SourceName, "%s: no line to shift %s to", pe.SourceName, card.Name())
			continue
		}
		pe.Chain.LastTargetCardID = id
		pe.Chain.Touched = append(pe.Chain.Touched, id)
		if len(lanes) == 1 {
			r.ShiftTo(pe, id, lanes[0])
			return
		}
		ar := NewAction(state.ActionSelectLaneForShift, pe)
		ar.CardID = id
		ar.ValidLanes = lanes
		ar.Optional = false
		ar.UpTo = false
		r.Pause(pe, ar)
		return
	}
	r.Finish(pe, pe.Chain.Executed)
}

// ShiftTo starts moving cardID to lane. When the effect still has targets to
// shift, it resumes with them once the card has landed.
func (r *Run) ShiftTo(pe state.PendingEffect, cardID string, lane int) {
	r.BeginShift(pe, cardID, lane)
	if len(pe.Targets) == 0 {
		r.Finish(pe, true)
		return
	}
	next := pe.Clone()
	next.Continuation = true
	next.Revalidate = false
	next.Chain.Executed = true
	r.S.PushEffect(next)
	r.Flush()
}

// Continue pushes the remaining picks of a multi-count effect. Consequences of
// the picks made so far resolve before it.
func (r *Run) Continue(pe state.PendingEffect, remaining int) {
	next := pe.Clone()
	next.Continuation = true
	next.Revalidate = false
	next.Effect.Count = cards.CountOf(remaining)
	next.Chain.Executed = true
	r.S.PushEffect(next)
	r.Flush()
}
