package rules

import (
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// turnSequence is the fixed order of phases within a turn.
var turnSequence = []state.Phase{
	state.PhaseStart,
	state.PhaseControl,
	state.PhaseCompile,
	state.PhaseAction,
	state.PhaseHandLimit,
	state.PhaseEnd,
}

// PhaseIndex returns the position of a phase in the turn, or -1.
func PhaseIndex(p state.Phase) int {
	for i, phase := range turnSequence {
		if phase == p {
			return i
		}
	}
	return -1
}

// NextPhase returns the phase after p. wraps is true when the turn ends.
func NextPhase(p state.Phase) (next state.Phase, wraps bool) {
	idx := PhaseIndex(p)
	if idx < 0 || idx == len(turnSequence)-1 {
		return turnSequence[0], true
	}
	return turnSequence[idx+1], false
}
