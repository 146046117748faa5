package rules

import (
	"testing"

	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/stretchr/testify/assert"
)

func TestNextPhaseWalksTheTurn(t *testing.T) {
	expected := []state.Phase{
		state.PhaseStart,
		state.PhaseControl,
		state.PhaseCompile,
		state.PhaseAction,
		state.PhaseHandLimit,
		state.PhaseEnd,
	}

	phase := state.PhaseStart
	for i, exp := range expected {
		assert.Equal(t, exp, phase, "step %d", i)
		next, wraps := NextPhase(phase)
		assert.Equal(t, i == len(expected)-1, wraps, "step %d", i)
		phase = next
	}
	assert.Equal(t, state.PhaseStart, phase)
}

func TestNextPhaseOfUnknownPhaseEndsTurn(t *testing.T) {
	assert.Equal(t, -1, PhaseIndex("bogus"))
	next, wraps := NextPhase("bogus")
	assert.True(t, wraps)
	assert.Equal(t, state.PhaseStart, next)
}
