package state

import (
	"fmt"

	"github.com/compilegame/compile-server-go/internal/game/cards"
)

// LaneCount is the number of protocol lanes per player.
const LaneCount = 3

// NoLane marks lane fields that do not apply.
const NoLane = -1

// Player identifies one of the two seats.
type Player string

const (
	PlayerOne Player = "player"
	PlayerTwo Player = "opponent"
	NoPlayer  Player = ""
)

// Opponent returns the other seat.
func Opponent(p Player) Player {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Valid reports whether p names a seat.
func (p Player) Valid() bool {
	return p == PlayerOne || p == PlayerTwo
}

// Phase is a step of the turn state machine.
type Phase string

const (
	PhaseStart     Phase = "start"
	PhaseControl   Phase = "control"
	PhaseCompile   Phase = "compile"
	PhaseAction    Phase = "action"
	PhaseHandLimit Phase = "hand_limit"
	PhaseEnd       Phase = "end"
)

// PlayedCard is a card with an identity: on the board, in hand or in transit.
type PlayedCard struct {
	ID       string `json:"id"`
	Protocol string `json:"protocol"`
	Value    int    `json:"value"`
	IsFaceUp bool   `json:"isFaceUp"`
}

// Name returns the printed name of the card.
func (c PlayedCard) Name() string {
	return c.Base().Name()
}

// Base drops the card's identity.
func (c PlayedCard) Base() cards.Card {
	return cards.Card{Protocol: c.Protocol, Value: c.Value}
}

// PlayerState is one side of the table.
type PlayerState struct {
	Protocols     [LaneCount]string       `json:"protocols"`
	Compiled      [LaneCount]bool         `json:"compiled"`
	Lanes         [LaneCount][]PlayedCard `json:"lanes"`
	Hand          []PlayedCard            `json:"hand"`
	Deck          []cards.Card            `json:"deck"`
	Discard       []cards.Card            `json:"discard"`
	LaneValues    [LaneCount]int          `json:"laneValues"`
	CannotCompile bool                    `json:"cannotCompile"`
}

// Top returns the uncovered card of a lane.
func (p *PlayerState) Top(lane int) (PlayedCard, bool) {
	if lane < 0 || lane >= LaneCount || len(p.Lanes[lane]) == 0 {
		return PlayedCard{}, false
	}
	return p.Lanes[lane][len(p.Lanes[lane])-1], true
}

// CompiledCount returns how many protocols are compiled.
func (p *PlayerState) CompiledCount() int {
	n := 0
	for _, c := range p.Compiled {
		if c {
			n++
		}
	}
	return n
}

// HandIndex returns the position of a card in hand, or -1.
func (p *PlayerState) HandIndex(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// GameState is the whole match. It is plain data: every engine operation
// clones it and returns a new value.
type GameState struct {
	Player   PlayerState `json:"player"`
	Opponent PlayerState `json:"opponent"`

	Turn              Player `json:"turn"`
	Phase             Phase  `json:"phase"`
	TurnNumber        int    `json:"turnNumber"`
	ControlCardHolder Player `json:"controlCardHolder"`
	Winner            Player `json:"winner"`

	Log            []LogEntry      `json:"log"`
	ActionRequired *ActionRequired `json:"actionRequired"`
	QueuedActions  []QueuedAction  `json:"queuedActions"`

	CompilableLanes          []int                `json:"compilableLanes"`
	StartPhaseEffectSnapshot *PhaseEffectSnapshot `json:"startPhaseEffectSnapshot"`
	EndPhaseEffectSnapshot   *PhaseEffectSnapshot `json:"endPhaseEffectSnapshot"`

	Interrupts       []Continuation  `json:"interrupts"`
	EffectStack      []PendingEffect `json:"effectStack"`
	CommittedCardIDs []string        `json:"committedCardIds"`
	ReactiveFired    []string        `json:"reactiveFired"`

	ActionTaken       bool `json:"actionTaken"`
	CompiledThisTurn  bool `json:"compiledThisTurn"`
	HandLimitResolved bool `json:"handLimitResolved"`

	Seed         uint64 `json:"seed"`
	ShuffleCount uint64 `json:"shuffleCount"`
	NextCardSeq  uint64 `json:"nextCardSeq"`
	EventSeq     uint64 `json:"eventSeq"`
}

// Side returns the state of a seat.
func (s *GameState) Side(p Player) *PlayerState {
	if p == PlayerTwo {
		return &s.Opponent
	}
	return &s.Player
}

// Players returns both seats, turn player first.
func (s *GameState) Players() [2]Player {
	if s.Turn == PlayerTwo {
		return [2]Player{PlayerTwo, PlayerOne}
	}
	return [2]Player{PlayerOne, PlayerTwo}
}

// Location is where a card currently sits.
type Location struct {
	Owner Player
	Zone  Zone
	Lane  int
	Index int
}

// Zone is a card area.
type Zone string

const (
	ZoneLane Zone = "lane"
	ZoneHand Zone = "hand"
)

// Locate finds a card with identity on the board or in a hand.
func (s *GameState) Locate(cardID string) (PlayedCard, Location, bool) {
	if cardID == "" {
		return PlayedCard{}, Location{}, false
	}
	for _, p := range [2]Player{PlayerOne, PlayerTwo} {
		side := s.Side(p)
		for lane := 0; lane < LaneCount; lane++ {
			for i, c := range side.Lanes[lane] {
				if c.ID == cardID {
					return c, Location{Owner: p, Zone: ZoneLane, Lane: lane, Index: i}, true
				}
			}
		}
		if i := side.HandIndex(cardID); i >= 0 {
			return side.Hand[i], Location{Owner: p, Zone: ZoneHand, Lane: NoLane, Index: i}, true
		}
	}
	return PlayedCard{}, Location{}, false
}

// OnBoard finds a card in a lane.
func (s *GameState) OnBoard(cardID string) (PlayedCard, Location, bool) {
	card, loc, ok := s.Locate(cardID)
	if !ok || loc.Zone != ZoneLane {
		return PlayedCard{}, Location{}, false
	}
	return card, loc, true
}

// IsUncovered reports whether the card at loc is the top of its stack.
func (s *GameState) IsUncovered(loc Location) bool {
	return loc.Zone == ZoneLane && loc.Index == len(s.Side(loc.Owner).Lanes[loc.Lane])-1
}

// IsCommitted reports whether a card is mid-transition between zones.
func (s *GameState) IsCommitted(cardID string) bool {
	for _, id := range s.CommittedCardIDs {
		if id == cardID {
			return true
		}
	}
	return false
}

// Commit marks a card as mid-transition.
func (s *GameState) Commit(cardID string) {
	if !s.IsCommitted(cardID) {
		s.CommittedCardIDs = append(s.CommittedCardIDs, cardID)
	}
}

// Release clears a card's commitment.
func (s *GameState) Release(cardID string) {
	out := s.CommittedCardIDs[:0]
	for _, id := range s.CommittedCardIDs {
		if id != cardID {
			out = append(out, id)
		}
	}
	s.CommittedCardIDs = out
}

// HasFired reports whether a reactive occurrence key was recorded.
func (s *GameState) HasFired(key string) bool {
	for _, k := range s.ReactiveFired {
		if k == key {
			return true
		}
	}
	return false
}

// MarkFired records a reactive occurrence key.
func (s *GameState) MarkFired(key string) {
	s.ReactiveFired = append(s.ReactiveFired, key)
}

// NextEventSeq returns a fresh event sequence number.
func (s *GameState) NextEventSeq() uint64 {
	s.EventSeq++
	return s.EventSeq
}

// Done reports whether the match has a winner.
func (s *GameState) Done() bool {
	return s.Winner != NoPlayer
}

// String summarizes the state for logs.
func (s *GameState) String() string {
	return fmt.Sprintf("turn %d %s/%s values %v vs %v", s.TurnNumber, s.Turn, s.Phase, s.Player.LaneValues, s.Opponent.LaneValues)
}
