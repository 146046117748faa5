// Package resolvers applies a player's choice to the pending ActionRequired
// and continues the suspended effect.
package resolvers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/effects"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/compilegame/compile-server-go/internal/game/targeting"
)

var (
	// ErrNoAction is returned when no decision is pending.
	ErrNoAction = errors.New("no action required")
	// ErrWrongActor is returned when the choice comes from the other player.
	ErrWrongActor = errors.New("choice made by the wrong player")
	// ErrWrongType is returned when the choice answers a different decision.
	ErrWrongType = errors.New("choice does not match the required action")
	// ErrInvalidChoice is returned when the choice is not one of the legal options.
	ErrInvalidChoice = errors.New("invalid choice")
)

type handler func(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error

var handlers = map[state.ActionType]handler{
	state.ActionSelectCardsToDelete:      resolveBoardPick,
	state.ActionSelectCardToFlip:         resolveBoardPick,
	state.ActionSelectCardToShift:        resolveBoardPick,
	state.ActionSelectCardToReturn:       resolveBoardPick,
	state.ActionSelectLaneForShift:       resolveShiftLane,
	state.ActionSelectLaneForDelete:      resolveChosenLane,
	state.ActionSelectLaneForFlip:        resolveChosenLane,
	state.ActionSelectLaneForReturn:      resolveChosenLane,
	state.ActionSelectLaneForPlay:        resolvePlayLane,
	state.ActionSelectLaneForCompile:     resolveCompileLane,
	state.ActionSelectCardFromHandToPlay: resolveHandPlay,
	state.ActionSelectCardFromHandToGive: resolveGive,
	state.ActionDiscard:                  resolveDiscard,
	state.ActionPromptOptionalEffect:     resolveOptional,
	state.ActionPromptRearrangeProtocols: resolveRearrange,
	state.ActionPromptSwapProtocols:      resolveSwap,
	state.ActionStateNumber:              resolveStateNumber,
	state.ActionStateProtocol:            resolveStateProtocol,
	state.ActionSelectTriggerOrder:       resolveTriggerOrder,
}

// Resolve answers the pending ActionRequired of the run's state with c.
// It returns an error, and leaves the decision pending, when c is not a legal
// answer; callers discard the run in that case.
func Resolve(r *effects.Run, c state.Choice) error {
	ar := r.S.ActionRequired
	if ar == nil {
		return ErrNoAction
	}
	if c.Actor != ar.Actor {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongActor, ar.Actor, c.Actor)
	}
	if c.Type != "" && c.Type != ar.Type {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongType, ar.Type, c.Type)
	}
	h, ok := handlers[ar.Type]
	if !ok {
		return fmt.Errorf("%w: unknown action type %s", ErrWrongType, ar.Type)
	}
	var pe state.PendingEffect
	if ar.Origin != nil {
		pe = ar.Origin.Clone()
	}
	return h(r, *ar, pe, c)
}

// Auto answers a decision that has exactly one sensible answer, as used when
// a queued decision turns out to be forced. It reports whether it did.
func Auto(r *effects.Run) bool {
	ar := r.S.ActionRequired
	if ar == nil || ar.Optional || ar.UpTo {
		return false
	}
	c := state.Choice{Actor: ar.Actor, Type: ar.Type}
	switch {
	case ar.Type.BoardSelection() && ar.Type != state.ActionSelectCardToShift:
		if len(ar.ValidTargets) > max(ar.Count, 1) {
			return false
		}
		c.CardIDs = ar.ValidTargets
	case ar.Type.BoardSelection() || ar.Type == state.ActionSelectCardFromHandToPlay:
		if len(ar.ValidTargets) != 1 {
			return false
		}
		c.CardID = ar.ValidTargets[0]
	case ar.Type.LaneSelection():
		if len(ar.ValidLanes) != 1 {
			return false
		}
		c.Lane = ar.ValidLanes[0]
	default:
		return false
	}
	return Resolve(r, c) == nil
}

func picked(c state.Choice) []string {
	if len(c.CardIDs) > 0 {
		return c.CardIDs
	}
	if c.CardID != "" {
		return []string{c.CardID}
	}
	return nil
}

func containsLane(lanes []int, lane int) bool {
	for _, l := range lanes {
		if l == lane {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// decline ends an optional effect without doing it. Remaining picks of a
// multi-count effect keep what was already done.
func decline(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect) error {
	if !ar.Optional {
		return fmt.Errorf("%w: %s is not optional", ErrInvalidChoice, ar.Type)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	r.Logf(ar.Actor, pe.SourceName, "%s declines", ar.Actor)
	r.Finish(pe, pe.Continuation && pe.Chain.Executed)
	return nil
}

func resolveBoardPick(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if c.Decline {
		return decline(r, ar, pe)
	}
	ids := picked(c)
	limit := max(ar.Count, 1)
	if ar.Type == state.ActionSelectCardToShift {
		limit = 1
	}
	sel := targeting.Selection{
		Targets:     ids,
		Requirement: targeting.Requirement{MinTargets: 1, MaxTargets: limit},
	}
	if err := sel.Validate(r.BoardCandidates(pe, ar.LaneLimit)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChoice, err)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	remaining := 0
	if ar.Type != state.ActionSelectCardToShift {
		remaining = limit - len(ids)
	}
	r.ApplyPicks(pe, ids, remaining)
	return nil
}

func resolveShiftLane(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if ar.CardID == "" {
		return resolveChosenLane(r, ar, pe, c)
	}
	if !containsLane(r.ShiftLanes(pe, ar.CardID), c.Lane) {
		return fmt.Errorf("%w: cannot shift to line %d", ErrInvalidChoice, c.Lane)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	r.ShiftTo(pe, ar.CardID, c.Lane)
	return nil
}

func resolveChosenLane(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if c.Decline {
		return decline(r, ar, pe)
	}
	if !containsLane(r.CandidateLanes(pe), c.Lane) {
		return fmt.Errorf("%w: line %d has no valid targets", ErrInvalidChoice, c.Lane)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	r.ApplyLane(pe, c.Lane)
	return nil
}

func resolvePlayLane(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if ar.CardID != "" {
		side := r.S.Side(pe.Context.Actor)
		idx := side.HandIndex(ar.CardID)
		if idx < 0 {
			return fmt.Errorf("%w: card %s is not in hand", ErrInvalidChoice, ar.CardID)
		}
		if !containsLane(r.PlayLanes(pe, pe.Context.Actor, side.Hand[idx], ar.FaceUp), c.Lane) {
			return fmt.Errorf("%w: cannot play into line %d", ErrInvalidChoice, c.Lane)
		}
		r.S.ActionRequired = nil
		r.Begin(pe)
		r.PlayHandCard(pe, ar.CardID, c.Lane)
		r.Finish(pe, true)
		return nil
	}
	if !containsLane(ar.ValidLanes, c.Lane) {
		return fmt.Errorf("%w: cannot play into line %d", ErrInvalidChoice, c.Lane)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	if !r.PlayDeckCard(pe, c.Lane) {
		r.Skip(pe, "no cards in deck")
		return nil
	}
	r.Finish(pe, true)
	return nil
}

func resolveCompileLane(r *effects.Run, ar state.ActionRequired, _ state.PendingEffect, c state.Choice) error {
	if !containsLane(ar.ValidLanes, c.Lane) {
		return fmt.Errorf("%w: line %d cannot compile", ErrInvalidChoice, c.Lane)
	}
	r.S.ActionRequired = nil
	r.StartCompile(ar.Actor, c.Lane)
	return nil
}

func resolveHandPlay(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if c.Decline {
		return decline(r, ar, pe)
	}
	if err := targeting.ValidateSingle(c.CardID, r.HandCandidates(pe, ar.Actor)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChoice, err)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	r.PlayFromHand(pe, c.CardID)
	return nil
}

func resolveGive(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if c.Decline {
		return decline(r, ar, pe)
	}
	if err := targeting.ValidateSingle(c.CardID, r.HandCandidates(pe, ar.Actor)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChoice, err)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	r.Finish(pe, r.Give(pe, ar.Actor, c.CardID))
	return nil
}

func resolveDiscard(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if ar.HandLimit {
		return resolveHandLimit(r, ar, c)
	}
	if c.Decline && !ar.UpTo {
		return decline(r, ar, pe)
	}
	ids := picked(c)
	minimum := ar.Count
	if ar.UpTo || ar.Optional {
		minimum = 0
	}
	sel := targeting.Selection{
		Targets:     ids,
		Requirement: targeting.Requirement{MinTargets: minimum, MaxTargets: ar.Count},
	}
	if err := sel.Validate(r.HandCandidates(pe, ar.Actor)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChoice, err)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	if len(ids) == 0 {
		r.Logf(ar.Actor, pe.SourceName, "%s discards nothing", ar.Actor)
		r.Finish(pe, false)
		return nil
	}
	n := r.Discard(&pe, ar.Actor, ids)
	r.Finish(pe, n > 0)
	return nil
}

// resolveHandLimit discards down to the hand limit. Clearing cache happens
// once per turn and ends the hand limit phase even if reactions draw cards.
func resolveHandLimit(r *effects.Run, ar state.ActionRequired, c state.Choice) error {
	ids := picked(c)
	sel := targeting.Selection{
		Targets:     ids,
		Requirement: targeting.Requirement{MinTargets: ar.Count, MaxTargets: ar.Count},
	}
	var hand []string
	for _, card := range r.S.Side(ar.Actor).Hand {
		hand = append(hand, card.ID)
	}
	if err := sel.Validate(hand); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChoice, err)
	}
	r.S.ActionRequired = nil
	pe := effects.SystemEffect(state.SystemNone, ar.Actor, state.NoLane, r.S.Turn)
	r.Begin(pe)
	r.Discard(&pe, ar.Actor, ids)
	r.S.HandLimitResolved = true
	r.Raise(rules.NewEvent(r.S, rules.EventAfterClearCache, ar.Actor))
	r.Flush()
	return nil
}

func resolveOptional(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if c.Accept == c.Decline {
		return fmt.Errorf("%w: accept or decline", ErrInvalidChoice)
	}
	if c.Decline {
		return decline(r, ar, pe)
	}
	r.S.ActionRequired = nil
	pe.Effect.Optional = false
	pe.Revalidate = false
	r.Execute(pe)
	return nil
}

func resolveRearrange(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if c.Decline {
		if !ar.Optional {
			return fmt.Errorf("%w: rearranging is mandatory", ErrInvalidChoice)
		}
		r.S.ActionRequired = nil
		r.Begin(pe)
		r.Finish(pe, false)
		return nil
	}
	target := ar.TargetPlayer
	if ar.FromControl {
		target = c.TargetPlayer
	}
	if !target.Valid() {
		return fmt.Errorf("%w: no player to rearrange", ErrInvalidChoice)
	}
	side := r.S.Side(target)
	if !rules.Rearrange(side, c.Order) {
		return fmt.Errorf("%w: %v is not an order of %v", ErrInvalidChoice, c.Order, side.Protocols)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	r.Logf(ar.Actor, pe.SourceName, "%s rearranges %s's protocols to %v", ar.Actor, target, side.Protocols)
	r.Finish(pe, true)
	return nil
}

func resolveSwap(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if c.Decline {
		return decline(r, ar, pe)
	}
	if len(c.Lanes) != 2 || !containsLane(ar.ValidLanes, c.Lanes[0]) || !containsLane(ar.ValidLanes, c.Lanes[1]) {
		return fmt.Errorf("%w: pick two lines", ErrInvalidChoice)
	}
	side := r.S.Side(ar.TargetPlayer)
	if !rules.Swap(side, c.Lanes[0], c.Lanes[1]) {
		return fmt.Errorf("%w: cannot swap line %d with itself", ErrInvalidChoice, c.Lanes[0])
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	r.Logf(ar.Actor, pe.SourceName, "%s swaps %s's protocols in lines %d and %d", ar.Actor, ar.TargetPlayer, c.Lanes[0], c.Lanes[1])
	r.Finish(pe, true)
	return nil
}

func resolveStateNumber(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if !containsString(ar.Options, strconv.Itoa(c.Number)) {
		return fmt.Errorf("%w: %d is not an option", ErrInvalidChoice, c.Number)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	n := c.Number
	pe.Chain.StatedNumber = &n
	r.Logf(ar.Actor, pe.SourceName, "%s states %d", ar.Actor, n)
	r.Finish(pe, true)
	return nil
}

func resolveStateProtocol(r *effects.Run, ar state.ActionRequired, pe state.PendingEffect, c state.Choice) error {
	if !containsString(ar.Options, c.Protocol) {
		return fmt.Errorf("%w: %q is not an option", ErrInvalidChoice, c.Protocol)
	}
	r.S.ActionRequired = nil
	r.Begin(pe)
	pe.Chain.StatedProtocol = c.Protocol
	r.Logf(ar.Actor, pe.SourceName, "%s states %s", ar.Actor, c.Protocol)
	r.Finish(pe, true)
	return nil
}

// resolveTriggerOrder fires the chosen start or end effect. The phase manager
// asks again for the rest.
func resolveTriggerOrder(r *effects.Run, ar state.ActionRequired, _ state.PendingEffect, c state.Choice) error {
	if !containsString(ar.ValidTargets, c.CardID) {
		return fmt.Errorf("%w: %q is not a pending trigger", ErrInvalidChoice, c.CardID)
	}
	snap, trigger := r.S.StartPhaseEffectSnapshot, cards.TriggerStart
	if r.S.Phase == state.PhaseEnd {
		snap, trigger = r.S.EndPhaseEffectSnapshot, cards.TriggerEnd
	}
	if snap == nil {
		return fmt.Errorf("%w: no phase effects pending", ErrInvalidChoice)
	}
	for _, ref := range snap.Entries {
		if ref.Key() == c.CardID {
			r.S.ActionRequired = nil
			r.FirePhaseEffect(snap, ref, trigger)
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not a pending trigger", ErrInvalidChoice, c.CardID)
}
