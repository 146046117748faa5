package cards

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/compilegame/compile-server-go/internal/game/targeting"
	"gopkg.in/yaml.v3"
)

// Position is the text box an effect is printed in.
type Position string

const (
	// PositionTop text is active while the card is face-up, covered or not
	PositionTop Position = "top"
	// PositionMiddle text resolves when the card is played, flipped face-up or uncovered
	PositionMiddle Position = "middle"
	// PositionBottom text is active while the card is face-up and uncovered
	PositionBottom Position = "bottom"
)

// Trigger names when a top or bottom effect fires. Middle effects leave it empty.
type Trigger string

const (
	TriggerNone                Trigger = ""
	TriggerStart               Trigger = "start"
	TriggerEnd                 Trigger = "end"
	TriggerOnCover             Trigger = "on_cover"
	TriggerOnFlip              Trigger = "on_flip"
	TriggerAfterDraw           Trigger = "after_draw"
	TriggerAfterDiscard        Trigger = "after_discard"
	TriggerAfterRefresh        Trigger = "after_refresh"
	TriggerAfterShuffle        Trigger = "after_shuffle"
	TriggerAfterClearCache     Trigger = "after_clear_cache"
	TriggerAfterDelete         Trigger = "after_delete"
	TriggerAfterPlay           Trigger = "after_play"
	TriggerAfterCompile        Trigger = "after_compile"
	TriggerBeforeCompileDelete Trigger = "before_compile_delete"
)

// Context trigger types for middle text. They never appear in definitions.
const (
	TriggerPlay    Trigger = "play"
	TriggerFlip    Trigger = "flip"
	TriggerUncover Trigger = "uncover"
)

var reactiveTriggers = map[Trigger]bool{
	TriggerOnCover:             true,
	TriggerOnFlip:              true,
	TriggerAfterDraw:           true,
	TriggerAfterDiscard:        true,
	TriggerAfterRefresh:        true,
	TriggerAfterShuffle:        true,
	TriggerAfterClearCache:     true,
	TriggerAfterDelete:         true,
	TriggerAfterPlay:           true,
	TriggerAfterCompile:        true,
	TriggerBeforeCompileDelete: true,
}

// Reactive reports whether the trigger is driven by game events rather than phases.
func (t Trigger) Reactive() bool {
	return reactiveTriggers[t]
}

// ActorFilter restricts reactive triggers by who caused the event.
type ActorFilter string

const (
	ActorAny      ActorFilter = "any"
	ActorSelf     ActorFilter = "self"
	ActorOpponent ActorFilter = "opponent"
)

// Action is the atomic rules action an effect performs.
type Action string

const (
	ActionDraw               Action = "draw"
	ActionDiscard            Action = "discard"
	ActionFlip               Action = "flip"
	ActionShift              Action = "shift"
	ActionDelete             Action = "delete"
	ActionReturn             Action = "return"
	ActionPlay               Action = "play"
	ActionGive               Action = "give"
	ActionRefresh            Action = "refresh"
	ActionShuffleTrash       Action = "shuffle_trash"
	ActionStateNumber        Action = "state_number"
	ActionStateProtocol      Action = "state_protocol"
	ActionRearrangeProtocols Action = "rearrange_protocols"
	ActionSwapProtocols      Action = "swap_protocols"
	ActionCannotCompile      Action = "cannot_compile"
)

var knownActions = map[Action]bool{
	ActionDraw: true, ActionDiscard: true, ActionFlip: true, ActionShift: true,
	ActionDelete: true, ActionReturn: true, ActionPlay: true, ActionGive: true,
	ActionRefresh: true, ActionShuffleTrash: true, ActionStateNumber: true,
	ActionStateProtocol: true, ActionRearrangeProtocols: true, ActionSwapProtocols: true,
	ActionCannotCompile: true,
}

// Targets reports whether the action selects cards on the board.
func (a Action) Targets() bool {
	switch a {
	case ActionFlip, ActionShift, ActionDelete, ActionReturn:
		return true
	}
	return false
}

// Who names a player relative to the card owner.
type Who string

const (
	WhoSelf     Who = ""
	WhoOpponent Who = "opponent"
)

// Source is the zone a played card comes from.
type Source string

const (
	SourceHand Source = "hand"
	SourceDeck Source = "deck"
)

// CountSource takes an effect's count from the chain instead of the definition.
type CountSource string

const (
	CountFromDiscarded CountSource = "discarded"
	CountFromStated    CountSource = "stated"
)

// ConditionType controls whether a follow-up runs.
type ConditionType string

const (
	// ConditionIfExecuted runs the follow-up only if the effect did something
	ConditionIfExecuted ConditionType = "if_executed"
	// ConditionIfYouDo runs the follow-up only if an optional effect was taken
	ConditionIfYouDo ConditionType = "if_you_do"
	// ConditionAfter always runs the follow-up
	ConditionAfter ConditionType = "after"
)

// Met reports whether the follow-up should run given the effect's outcome.
func (c ConditionType) Met(executed bool) bool {
	if c == ConditionAfter {
		return true
	}
	return executed
}

// Count is either a number of picks or "all".
type Count struct {
	N   int
	All bool
}

// CountOf returns a numeric count.
func CountOf(n int) Count { return Count{N: n} }

// CountAll returns the "all" count.
func CountAll() Count { return Count{All: true} }

// String renders the count the way it is written in catalog files.
func (c Count) String() string {
	if c.All {
		return "all"
	}
	return strconv.Itoa(c.N)
}

// UnmarshalYAML accepts an integer or the string "all".
func (c *Count) UnmarshalYAML(node *yaml.Node) error {
	return c.parse(node.Value)
}

// MarshalYAML writes the count back in catalog form.
func (c Count) MarshalYAML() (interface{}, error) {
	if c.All {
		return "all", nil
	}
	return c.N, nil
}

// MarshalJSON writes a number or "all".
func (c Count) MarshalJSON() ([]byte, error) {
	if c.All {
		return []byte(`"all"`), nil
	}
	return []byte(strconv.Itoa(c.N)), nil
}

// UnmarshalJSON accepts a number or "all".
func (c *Count) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return c.parse(s)
	}
	return c.parse(string(data))
}

func (c *Count) parse(raw string) error {
	if raw == "all" {
		*c = CountAll()
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid count %q", raw)
	}
	*c = CountOf(n)
	return nil
}

// Conditional is a follow-up effect attached to another effect.
type Conditional struct {
	Type   ConditionType `yaml:"type" json:"type"`
	Effect *EffectDef    `yaml:"effect" json:"effect"`
}

// EffectDef is the data form of one effect of a card.
type EffectDef struct {
	ID       string   `yaml:"id,omitempty" json:"id,omitempty"`
	Text     string   `yaml:"text,omitempty" json:"text,omitempty"`
	Position Position `yaml:"position,omitempty" json:"position,omitempty"`
	Trigger  Trigger  `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	// Actor filters reactive triggers by who caused the event.
	Actor ActorFilter `yaml:"actor,omitempty" json:"actor,omitempty"`
	// LaneScope limits reactive triggers to events in the card's own lane.
	LaneScope targeting.Scope `yaml:"laneScope,omitempty" json:"laneScope,omitempty"`

	Action        Action                `yaml:"action" json:"action"`
	Who           Who                   `yaml:"who,omitempty" json:"who,omitempty"`
	Target        targeting.Filter      `yaml:"target,omitempty" json:"target,omitempty"`
	Scope         targeting.Scope       `yaml:"scope,omitempty" json:"scope,omitempty"`
	Destination   targeting.Destination `yaml:"destination,omitempty" json:"destination,omitempty"`
	Count         Count                 `yaml:"count,omitempty" json:"count"`
	CountFrom     CountSource           `yaml:"countFrom,omitempty" json:"countFrom,omitempty"`
	UpTo          bool                  `yaml:"upTo,omitempty" json:"upTo,omitempty"`
	Optional      bool                  `yaml:"optional,omitempty" json:"optional,omitempty"`
	Self          bool                  `yaml:"self,omitempty" json:"self,omitempty"`
	UseLastTarget bool                  `yaml:"useLastTarget,omitempty" json:"useLastTarget,omitempty"`
	Source        Source                `yaml:"source,omitempty" json:"source,omitempty"`
	FaceUp        bool                  `yaml:"faceUp,omitempty" json:"faceUp,omitempty"`
	TargetPlayer  Who                   `yaml:"targetPlayer,omitempty" json:"targetPlayer,omitempty"`
	Then          *Conditional          `yaml:"then,omitempty" json:"then,omitempty"`
}

// Amount returns the numeric count, defaulting to one.
func (e EffectDef) Amount() int {
	if e.Count.N <= 0 {
		return 1
	}
	return e.Count.N
}

// Clone returns a deep copy of the definition.
func (e EffectDef) Clone() EffectDef {
	out := e
	if e.Target.MinValue != nil {
		v := *e.Target.MinValue
		out.Target.MinValue = &v
	}
	if e.Target.MaxValue != nil {
		v := *e.Target.MaxValue
		out.Target.MaxValue = &v
	}
	if e.Then != nil {
		then := *e.Then
		if e.Then.Effect != nil {
			inner := e.Then.Effect.Clone()
			then.Effect = &inner
		}
		out.Then = &then
	}
	return out
}
