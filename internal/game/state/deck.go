package state

import (
	"fmt"
	"math/rand/v2"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/google/uuid"
)

// MintCard gives an anonymous card an identity. IDs are derived from the match
// seed and a sequence number, so replays produce the same IDs.
func (s *GameState) MintCard(c cards.Card, faceUp bool) PlayedCard {
	s.NextCardSeq++
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("compile:%d:%d", s.Seed, s.NextCardSeq)))
	return PlayedCard{ID: id.String(), Protocol: c.Protocol, Value: c.Value, IsFaceUp: faceUp}
}

// Shuffle reorders cards with the match's deterministic generator.
func (s *GameState) Shuffle(deck []cards.Card) {
	s.ShuffleCount++
	rng := rand.New(rand.NewPCG(s.Seed, s.ShuffleCount))
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// TakeTop removes the top card of a player's deck, reshuffling the discard
// pile into the deck when it is empty. reshuffled reports whether that happened.
func (s *GameState) TakeTop(p Player) (card cards.Card, ok bool, reshuffled bool) {
	side := s.Side(p)
	if len(side.Deck) == 0 {
		if len(side.Discard) == 0 {
			return cards.Card{}, false, false
		}
		side.Deck = side.Discard
		side.Discard = nil
		s.Shuffle(side.Deck)
		reshuffled = true
	}
	card = side.Deck[0]
	side.Deck = side.Deck[1:]
	return card, true, reshuffled
}
