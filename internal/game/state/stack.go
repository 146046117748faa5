package state

import "errors"

// ErrStackEmpty is returned when popping an empty effect stack.
var ErrStackEmpty = errors.New("effect stack empty")

// PushEffect adds an effect to the top of the effect stack.
func (s *GameState) PushEffect(pe PendingEffect) {
	s.EffectStack = append(s.EffectStack, pe)
}

// PushEffectsInOrder pushes effects so that the first one resolves first.
func (s *GameState) PushEffectsInOrder(effects []PendingEffect) {
	for i := len(effects) - 1; i >= 0; i-- {
		s.PushEffect(effects[i])
	}
}

// PopEffect removes the top effect.
func (s *GameState) PopEffect() (PendingEffect, error) {
	if len(s.EffectStack) == 0 {
		return PendingEffect{}, ErrStackEmpty
	}
	idx := len(s.EffectStack) - 1
	pe := s.EffectStack[idx]
	s.EffectStack = s.EffectStack[:idx]
	return pe, nil
}

// PeekEffect returns the top effect without removing it.
func (s *GameState) PeekEffect() (PendingEffect, bool) {
	if len(s.EffectStack) == 0 {
		return PendingEffect{}, false
	}
	return s.EffectStack[len(s.EffectStack)-1], true
}

// QueueAction defers a decision until the stack drains to its current height.
func (s *GameState) QueueAction(ar ActionRequired) {
	s.QueuedActions = append(s.QueuedActions, QueuedAction{Action: ar, StackHeight: len(s.EffectStack)})
}

// NextQueued returns the first queued action if it is due: every effect pushed
// after it was queued has resolved.
func (s *GameState) NextQueued() (ActionRequired, bool) {
	if len(s.QueuedActions) == 0 {
		return ActionRequired{}, false
	}
	head := s.QueuedActions[0]
	if len(s.EffectStack) > head.StackHeight {
		return ActionRequired{}, false
	}
	s.QueuedActions = s.QueuedActions[1:]
	return head.Action, true
}

// PushInterrupt suspends the current turn and hands it to actor.
func (s *GameState) PushInterrupt(actor Player) {
	s.Interrupts = append(s.Interrupts, Continuation{
		Turn:          s.Turn,
		Phase:         s.Phase,
		StackHeight:   len(s.EffectStack),
		QueuedActions: s.QueuedActions,
	})
	s.QueuedActions = nil
	s.Turn = actor
}

// RestoreInterrupt pops the innermost continuation once the interrupting work
// has resolved. It reports whether one was restored.
func (s *GameState) RestoreInterrupt() bool {
	if len(s.Interrupts) == 0 || s.ActionRequired != nil || len(s.QueuedActions) > 0 {
		return false
	}
	idx := len(s.Interrupts) - 1
	top := s.Interrupts[idx]
	if len(s.EffectStack) > top.StackHeight {
		return false
	}
	s.Interrupts = s.Interrupts[:idx]
	s.Turn = top.Turn
	s.Phase = top.Phase
	s.QueuedActions = top.QueuedActions
	return true
}
