package rules

import (
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// DefaultFaceDownValue is the value of a face-down card with no modifier.
const DefaultFaceDownValue = 2

// Modifiers looks up the face-down value modifier printed on a card.
type Modifiers interface {
	FaceDownValue(protocol string, value int) int
}

// LaneCalculator derives lane values from the board.
type LaneCalculator struct {
	modifiers     Modifiers
	faceDownValue int
}

// NewLaneCalculator creates a calculator. A non-positive faceDownValue falls
// back to DefaultFaceDownValue.
func NewLaneCalculator(modifiers Modifiers, faceDownValue int) *LaneCalculator {
	if faceDownValue <= 0 {
		faceDownValue = DefaultFaceDownValue
	}
	return &LaneCalculator{modifiers: modifiers, faceDownValue: faceDownValue}
}

// FaceDownValue returns the value of the owner's face-down cards in a lane.
// Face-up modifier cards in the same stack raise it; the highest one wins.
func (lc *LaneCalculator) FaceDownValue(side *state.PlayerState, lane int) int {
	value := lc.faceDownValue
	if lc.modifiers == nil {
		return value
	}
	for _, c := range side.Lanes[lane] {
		if !c.IsFaceUp {
			continue
		}
		if mod := lc.modifiers.FaceDownValue(c.Protocol, c.Value); mod > value {
			value = mod
		}
	}
	return value
}

// CardValue returns a card's contribution to its lane.
func (lc *LaneCalculator) CardValue(side *state.PlayerState, lane int, card state.PlayedCard) int {
	if card.IsFaceUp {
		return card.Value
	}
	return lc.FaceDownValue(side, lane)
}

// Recalculate recomputes every lane value of both players from scratch.
func (lc *LaneCalculator) Recalculate(s *state.GameState) {
	for _, p := range [2]state.Player{state.PlayerOne, state.PlayerTwo} {
		side := s.Side(p)
		for lane := 0; lane < state.LaneCount; lane++ {
			total := 0
			faceDown := lc.FaceDownValue(side, lane)
			for _, c := range side.Lanes[lane] {
				if c.IsFaceUp {
					total += c.Value
				} else {
					total += faceDown
				}
			}
			side.LaneValues[lane] = total
		}
	}
}
