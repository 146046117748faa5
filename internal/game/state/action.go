package state

import (
	"github.com/compilegame/compile-server-go/internal/game/targeting"
)

// ActionType tags the variant of a pending decision.
type ActionType string

const (
	ActionSelectCardsToDelete      ActionType = "select_cards_to_delete"
	ActionSelectCardToFlip         ActionType = "select_card_to_flip"
	ActionSelectCardToShift        ActionType = "select_card_to_shift"
	ActionSelectCardToReturn       ActionType = "select_card_to_return"
	ActionSelectLaneForShift       ActionType = "select_lane_for_shift"
	ActionSelectLaneForDelete      ActionType = "select_lane_for_delete"
	ActionSelectLaneForFlip        ActionType = "select_lane_for_flip"
	ActionSelectLaneForReturn      ActionType = "select_lane_for_return"
	ActionSelectLaneForPlay        ActionType = "select_lane_for_play"
	ActionSelectLaneForCompile     ActionType = "select_lane_for_compile"
	ActionSelectCardFromHandToPlay ActionType = "select_card_from_hand_to_play"
	ActionSelectCardFromHandToGive ActionType = "select_card_from_hand_to_give"
	ActionDiscard                  ActionType = "discard"
	ActionPromptOptionalEffect     ActionType = "prompt_optional_effect"
	ActionPromptRearrangeProtocols ActionType = "prompt_rearrange_protocols"
	ActionPromptSwapProtocols      ActionType = "prompt_swap_protocols"
	ActionStateNumber              ActionType = "state_number"
	ActionStateProtocol            ActionType = "state_protocol"
	ActionSelectTriggerOrder       ActionType = "select_trigger_order"
)

// BoardSelection reports whether the variant asks for a card on the board.
func (t ActionType) BoardSelection() bool {
	switch t {
	case ActionSelectCardsToDelete, ActionSelectCardToFlip, ActionSelectCardToShift, ActionSelectCardToReturn:
		return true
	}
	return false
}

// LaneSelection reports whether the variant asks for a lane.
func (t ActionType) LaneSelection() bool {
	switch t {
	case ActionSelectLaneForShift, ActionSelectLaneForDelete, ActionSelectLaneForFlip,
		ActionSelectLaneForReturn, ActionSelectLaneForPlay, ActionSelectLaneForCompile:
		return true
	}
	return false
}

// ActionRequired is the single pending decision. Type selects the variant;
// fields that do not apply to a variant stay zero.
type ActionRequired struct {
	Type         ActionType `json:"type"`
	Actor        Player     `json:"actor"`
	SourceCardID string     `json:"sourceCardId,omitempty"`
	Prompt       string     `json:"prompt,omitempty"`

	Count    int  `json:"count,omitempty"`
	Optional bool `json:"optional,omitempty"`
	UpTo     bool `json:"upTo,omitempty"`

	TargetFilter targeting.Filter      `json:"targetFilter"`
	Scope        targeting.Scope       `json:"scope,omitempty"`
	Destination  targeting.Destination `json:"destination,omitempty"`
	LaneLimit    int                   `json:"laneLimit"`

	// ValidTargets lists card IDs, or trigger keys for select_trigger_order.
	ValidTargets []string `json:"validTargets,omitempty"`
	ValidLanes   []int    `json:"validLanes,omitempty"`
	Options      []string `json:"options,omitempty"`

	// CardID is the card being moved by a lane choice.
	CardID       string `json:"cardId,omitempty"`
	FaceUp       bool   `json:"faceUp,omitempty"`
	HandLimit    bool   `json:"handLimit,omitempty"`
	TargetPlayer Player `json:"targetPlayer,omitempty"`
	FromControl  bool   `json:"fromControl,omitempty"`

	// Origin is the suspended effect that asked for the decision.
	Origin *PendingEffect `json:"origin,omitempty"`
}

// QueuedAction is a deferred decision. It becomes current once the effect
// stack has drained back to StackHeight.
type QueuedAction struct {
	Action      ActionRequired `json:"action"`
	StackHeight int            `json:"stackHeight"`
}

// Choice answers the pending ActionRequired.
type Choice struct {
	Actor Player     `json:"actor"`
	Type  ActionType `json:"type,omitempty"`

	CardID  string   `json:"cardId,omitempty"`
	CardIDs []string `json:"cardIds,omitempty"`
	Lane    int      `json:"lane"`
	Lanes   []int    `json:"lanes,omitempty"`

	Accept  bool `json:"accept,omitempty"`
	Decline bool `json:"decline,omitempty"`

	Number       int      `json:"number,omitempty"`
	Protocol     string   `json:"protocol,omitempty"`
	Order        []string `json:"order,omitempty"`
	TargetPlayer Player   `json:"targetPlayer,omitempty"`
}

// MoveType is the turn player's action-phase move.
type MoveType string

const (
	MovePlay    MoveType = "play"
	MoveRefresh MoveType = "refresh"
	MovePass    MoveType = "pass"
)

// Move is an action-phase move.
type Move struct {
	Type   MoveType `json:"type"`
	Player Player   `json:"player"`
	CardID string   `json:"cardId,omitempty"`
	Lane   int      `json:"lane"`
	FaceUp bool     `json:"faceUp,omitempty"`
}

// Decision is whatever a decision source produces next: a move when the
// action phase waits for one, or a choice for the pending ActionRequired.
type Decision struct {
	Move   *Move   `json:"move,omitempty"`
	Choice *Choice `json:"choice,omitempty"`
}

// Awaiting returns the player the match is waiting on, if any.
func (s *GameState) Awaiting() (Player, bool) {
	if s.Done() {
		return NoPlayer, false
	}
	if s.ActionRequired != nil {
		return s.ActionRequired.Actor, true
	}
	if s.Phase == PhaseAction && !s.ActionTaken && len(s.EffectStack) == 0 {
		return s.Turn, true
	}
	return NoPlayer, false
}
