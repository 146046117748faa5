package rules

import (
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// ControlLanesRequired is how many lanes a player must lead to take control.
const ControlLanesRequired = 2

// ControlHolder returns the player who leads in at least two lanes, or
// NoPlayer when neither does.
func ControlHolder(s *state.GameState) state.Player {
	var ahead, behind int
	for lane := 0; lane < state.LaneCount; lane++ {
		switch mine, theirs := s.Player.LaneValues[lane], s.Opponent.LaneValues[lane]; {
		case mine > theirs:
			ahead++
		case theirs > mine:
			behind++
		}
	}
	switch {
	case ahead >= ControlLanesRequired:
		return state.PlayerOne
	case behind >= ControlLanesRequired:
		return state.PlayerTwo
	}
	return state.NoPlayer
}

// CompilableLanes returns the lanes where p reaches the threshold and beats
// the opponent's value.
func CompilableLanes(s *state.GameState, p state.Player, threshold int) []int {
	mine := s.Side(p)
	theirs := s.Side(state.Opponent(p))
	var lanes []int
	for lane := 0; lane < state.LaneCount; lane++ {
		if mine.LaneValues[lane] >= threshold && mine.LaneValues[lane] > theirs.LaneValues[lane] {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

// CanPlayFaceUp reports whether a card may be played face-up into lane: its
// protocol must match either player's protocol for that lane.
func CanPlayFaceUp(s *state.GameState, card state.PlayedCard, lane int) bool {
	if lane < 0 || lane >= state.LaneCount {
		return false
	}
	return s.Player.Protocols[lane] == card.Protocol || s.Opponent.Protocols[lane] == card.Protocol
}

// Rearrange reorders a player's protocols. order must be a permutation of the
// current protocols; the compiled flag travels with its protocol and lanes
// stay where they are.
func Rearrange(side *state.PlayerState, order []string) bool {
	if len(order) != state.LaneCount {
		return false
	}
	used := [state.LaneCount]bool{}
	var protocols [state.LaneCount]string
	var compiled [state.LaneCount]bool
	for i, name := range order {
		found := false
		for j := 0; j < state.LaneCount; j++ {
			if !used[j] && side.Protocols[j] == name {
				used[j] = true
				protocols[i] = name
				compiled[i] = side.Compiled[j]
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	side.Protocols = protocols
	side.Compiled = compiled
	return true
}

// Swap exchanges two protocols of a player together with their compiled flags.
func Swap(side *state.PlayerState, a, b int) bool {
	if a == b || a < 0 || b < 0 || a >= state.LaneCount || b >= state.LaneCount {
		return false
	}
	side.Protocols[a], side.Protocols[b] = side.Protocols[b], side.Protocols[a]
	side.Compiled[a], side.Compiled[b] = side.Compiled[b], side.Compiled[a]
	return true
}
