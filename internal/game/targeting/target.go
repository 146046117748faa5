package targeting

// OwnerFilter restricts targets by who owns them, relative to the owner of the
// card whose effect is resolving.
type OwnerFilter string

const (
	// OwnerAny matches cards of both players
	OwnerAny OwnerFilter = ""
	// OwnerOwn matches cards of the effect's owner
	OwnerOwn OwnerFilter = "own"
	// OwnerOpponent matches cards of the effect owner's opponent
	OwnerOpponent OwnerFilter = "opponent"
)

// Position restricts targets by their place in a lane stack.
type Position string

const (
	// PositionUncovered is the default: only the top card of a stack
	PositionUncovered Position = ""
	// PositionCovered matches every card except the top one
	PositionCovered Position = "covered"
	// PositionAny matches covered and uncovered cards
	PositionAny Position = "any"
)

// FaceState restricts targets by orientation.
type FaceState string

const (
	FaceAny  FaceState = ""
	FaceUp   FaceState = "face_up"
	FaceDown FaceState = "face_down"
)

// Scope restricts targets by lane relative to the source card's lane.
type Scope string

const (
	// ScopeAnywhere matches every lane
	ScopeAnywhere Scope = ""
	// ScopeThisLane matches only the source card's lane
	ScopeThisLane Scope = "this_lane"
	// ScopeOtherLanes matches every lane except the source card's lane
	ScopeOtherLanes Scope = "other_lanes"
	// ScopeEachLane resolves once per lane, in lane order
	ScopeEachLane Scope = "each_lane"
	// ScopeEachOtherLane resolves once per lane other than the source lane
	ScopeEachOtherLane Scope = "each_other_lane"
	// ScopeChosenLane asks for a lane first and then applies to every match in it
	ScopeChosenLane Scope = "chosen_lane"
)

// Allows reports whether a card in lane may be targeted by an effect whose
// source sits in sourceLane.
func (s Scope) Allows(lane, sourceLane int) bool {
	switch s {
	case ScopeThisLane:
		return lane == sourceLane
	case ScopeOtherLanes, ScopeEachOtherLane:
		return lane != sourceLane
	default:
		return true
	}
}

// PerLane reports whether the scope resolves separately for every lane.
func (s Scope) PerLane() bool {
	return s == ScopeEachLane || s == ScopeEachOtherLane
}

// Destination restricts where a shifted or played card may land.
type Destination string

const (
	DestinationAny                 Destination = ""
	DestinationThisLane            Destination = "to_this_lane"
	DestinationAnotherLane         Destination = "to_another_lane"
	DestinationNonMatchingProtocol Destination = "non_matching_protocol"
)

// LaneInfo describes a candidate destination lane from the moving card's
// owner's point of view.
type LaneInfo struct {
	Index    int
	Protocol string
}

// Allows reports whether a card currently in fromLane (-1 when not on the
// board) with the given protocol may move into lane. sourceLane is the lane of
// the card whose effect is resolving.
func (d Destination) Allows(lane LaneInfo, fromLane, sourceLane int, cardProtocol string) bool {
	if lane.Index == fromLane {
		return false
	}
	switch d {
	case DestinationThisLane:
		return lane.Index == sourceLane
	case DestinationAnotherLane:
		return lane.Index != sourceLane
	case DestinationNonMatchingProtocol:
		return lane.Protocol != cardProtocol
	default:
		return true
	}
}

// Filter is the data form of a card's targeting text. The zero value matches
// every uncovered, uncommitted card on the board.
type Filter struct {
	Owner                OwnerFilter `yaml:"owner,omitempty" json:"owner,omitempty"`
	Position             Position    `yaml:"position,omitempty" json:"position,omitempty"`
	Face                 FaceState   `yaml:"face,omitempty" json:"face,omitempty"`
	ExcludeSelf          bool        `yaml:"excludeSelf,omitempty" json:"excludeSelf,omitempty"`
	MinValue             *int        `yaml:"minValue,omitempty" json:"minValue,omitempty"`
	MaxValue             *int        `yaml:"maxValue,omitempty" json:"maxValue,omitempty"`
	ValueEqualsStated    bool        `yaml:"valueEqualsStated,omitempty" json:"valueEqualsStated,omitempty"`
	ProtocolEqualsStated bool        `yaml:"protocolEqualsStated,omitempty" json:"protocolEqualsStated,omitempty"`
}

// Candidate is a card considered for targeting.
type Candidate struct {
	CardID    string
	Protocol  string
	Own       bool
	Lane      int
	Index     int
	StackSize int
	FaceUp    bool
	Value     int
	Committed bool
}

// Uncovered reports whether the candidate is the top card of its stack.
func (c Candidate) Uncovered() bool {
	return c.Index == c.StackSize-1
}

// Perspective carries the resolving effect's context needed by filters.
type Perspective struct {
	SourceCardID   string
	StatedNumber   *int
	StatedProtocol string
}

// Matches reports whether the candidate satisfies the filter. Committed cards
// never match.
func (f Filter) Matches(c Candidate, p Perspective) bool {
	if c.Committed {
		return false
	}
	switch f.Owner {
	case OwnerOwn:
		if !c.Own {
			return false
		}
	case OwnerOpponent:
		if c.Own {
			return false
		}
	}
	switch f.Position {
	case PositionUncovered:
		if !c.Uncovered() {
			return false
		}
	case PositionCovered:
		if c.Uncovered() {
			return false
		}
	}
	switch f.Face {
	case FaceUp:
		if !c.FaceUp {
			return false
		}
	case FaceDown:
		if c.FaceUp {
			return false
		}
	}
	if f.ExcludeSelf && c.CardID == p.SourceCardID {
		return false
	}
	return f.MatchesCard(c.Value, c.Protocol, p)
}

// MatchesCard applies only the value and protocol constraints of the filter.
// It is used for cards in hand, where position and owner do not apply.
func (f Filter) MatchesCard(value int, protocol string, p Perspective) bool {
	if f.MinValue != nil && value < *f.MinValue {
		return false
	}
	if f.MaxValue != nil && value > *f.MaxValue {
		return false
	}
	if f.ValueEqualsStated {
		if p.StatedNumber == nil || value != *p.StatedNumber {
			return false
		}
	}
	if f.ProtocolEqualsStated && (p.StatedProtocol == "" || protocol != p.StatedProtocol) {
		return false
	}
	return true
}
