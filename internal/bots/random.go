// Package bots holds automatic decision sources for self-play and tests.
package bots

import (
	"math/rand"
	"strconv"

	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
)

// DecisionSource produces the next decision for the player a match waits on.
type DecisionSource interface {
	Name() string
	Decide(s state.GameState) (state.Decision, bool)
}

// RandomBot picks uniformly among legal answers. It prefers doing something
// over passing or declining.
type RandomBot struct {
	BotName  string
	HandSize int
	rng      *rand.Rand
}

// NewRandomBot creates a bot with its own seeded generator.
func NewRandomBot(name string, seed int64, handSize int) *RandomBot {
	return &RandomBot{
		BotName:  name,
		HandSize: handSize,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (b *RandomBot) Name() string {
	if b.BotName == "" {
		b.BotName = "RandomBot_" + strconv.Itoa(b.rng.Intn(100))
	}
	return b.BotName
}

// Decide returns a decision for whoever s waits on, or false when it waits on
// nobody.
func (b *RandomBot) Decide(s state.GameState) (state.Decision, bool) {
	p, ok := s.Awaiting()
	if !ok {
		return state.Decision{}, false
	}
	if s.ActionRequired != nil {
		c := b.choose(&s, *s.ActionRequired)
		return state.Decision{Choice: &c}, true
	}
	m := b.move(&s, p)
	return state.Decision{Move: &m}, true
}

func (b *RandomBot) move(s *state.GameState, p state.Player) state.Move {
	side := s.Side(p)
	var moves []state.Move
	for _, card := range side.Hand {
		for lane := 0; lane < state.LaneCount; lane++ {
			moves = append(moves, state.Move{Type: state.MovePlay, Player: p, CardID: card.ID, Lane: lane})
			if rules.CanPlayFaceUp(s, card, lane) {
				moves = append(moves, state.Move{Type: state.MovePlay, Player: p, CardID: card.ID, Lane: lane, FaceUp: true})
			}
		}
	}
	if len(side.Hand) < b.HandSize {
		moves = append(moves, state.Move{Type: state.MoveRefresh, Player: p, Lane: state.NoLane})
	}
	if len(moves) == 0 {
		return state.Move{Type: state.MovePass, Player: p, Lane: state.NoLane}
	}
	return moves[b.rng.Intn(len(moves))]
}

func (b *RandomBot) pick(ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	shuffled := append([]string(nil), ids...)
	b.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

func (b *RandomBot) lane(lanes []int) int {
	if len(lanes) == 0 {
		return state.NoLane
	}
	return lanes[b.rng.Intn(len(lanes))]
}

func (b *RandomBot) choose(s *state.GameState, ar state.ActionRequired) state.Choice {
	c := state.Choice{Actor: ar.Actor, Type: ar.Type, Lane: state.NoLane}
	switch {
	case ar.Type.BoardSelection():
		n := max(ar.Count, 1)
		if ar.Type == state.ActionSelectCardToShift {
			n = 1
		}
		c.CardIDs = b.pick(ar.ValidTargets, n)
		return c
	case ar.Type.LaneSelection():
		c.Lane = b.lane(ar.ValidLanes)
		return c
	}

	switch ar.Type {
	case state.ActionSelectCardFromHandToPlay, state.ActionSelectCardFromHandToGive, state.ActionSelectTriggerOrder:
		c.CardID = b.pick(ar.ValidTargets, 1)[0]
	case state.ActionDiscard:
		n := ar.Count
		if !ar.HandLimit && (ar.UpTo || ar.Optional) {
			n = b.rng.Intn(ar.Count + 1)
		}
		c.CardIDs = b.pick(ar.ValidTargets, n)
		if len(c.CardIDs) == 0 && ar.Optional && !ar.UpTo {
			c.Decline = true
		}
	case state.ActionPromptOptionalEffect:
		c.Accept = b.rng.Intn(4) != 0
		c.Decline = !c.Accept
	case state.ActionPromptRearrangeProtocols:
		target := ar.TargetPlayer
		if ar.FromControl {
			if b.rng.Intn(2) == 0 {
				c.Decline = true
				return c
			}
			seats := [2]state.Player{state.PlayerOne, state.PlayerTwo}
			target = seats[b.rng.Intn(2)]
		}
		c.TargetPlayer = target
		c.Order = b.pick(s.Side(target).Protocols[:], state.LaneCount)
	case state.ActionPromptSwapProtocols:
		lanes := append([]int(nil), ar.ValidLanes...)
		b.rng.Shuffle(len(lanes), func(i, j int) { lanes[i], lanes[j] = lanes[j], lanes[i] })
		if len(lanes) >= 2 {
			c.Lanes = lanes[:2]
		} else {
			c.Decline = true
		}
	case state.ActionStateNumber:
		n, _ := strconv.Atoi(ar.Options[b.rng.Intn(len(ar.Options))])
		c.Number = n
	case state.ActionStateProtocol:
		c.Protocol = ar.Options[b.rng.Intn(len(ar.Options))]
	}
	return c
}
