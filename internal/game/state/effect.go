package state

import (
	"github.com/compilegame/compile-server-go/internal/game/cards"
)

// EffectContext names the players involved in a resolving effect.
type EffectContext struct {
	CardOwner   Player        `json:"cardOwner"`
	Actor       Player        `json:"actor"`
	CurrentTurn Player        `json:"currentTurn"`
	Opponent    Player        `json:"opponent"`
	TriggerType cards.Trigger `json:"triggerType"`
}

// NewEffectContext builds the context for an effect of a card owned by owner.
func NewEffectContext(owner, turn Player, trigger cards.Trigger) EffectContext {
	return EffectContext{
		CardOwner:   owner,
		Actor:       owner,
		CurrentTurn: turn,
		Opponent:    Opponent(owner),
		TriggerType: trigger,
	}
}

// ChainContext is threaded through the consecutive parts of one effect:
// "that card", the stated number and how many cards were discarded.
type ChainContext struct {
	LastTargetCardID string   `json:"lastTargetCardId,omitempty"`
	StatedNumber     *int     `json:"statedNumber,omitempty"`
	StatedProtocol   string   `json:"statedProtocol,omitempty"`
	DiscardedCount   int      `json:"discardedCount,omitempty"`
	Touched          []string `json:"touched,omitempty"`
	Executed         bool     `json:"executed"`
	SkippedNoTargets bool     `json:"skippedNoTargets"`
}

// Clone deep-copies the chain.
func (c ChainContext) Clone() ChainContext {
	out := c
	if c.StatedNumber != nil {
		v := *c.StatedNumber
		out.StatedNumber = &v
	}
	out.Touched = append([]string(nil), c.Touched...)
	return out
}

// Origin says why an effect was put on the stack.
type Origin string

const (
	OriginPlay     Origin = "play"
	OriginFlip     Origin = "flip"
	OriginUncover  Origin = "uncover"
	OriginStart    Origin = "start"
	OriginEnd      Origin = "end"
	OriginCover    Origin = "cover"
	OriginReactive Origin = "reactive"
	OriginFollowUp Origin = "follow_up"
	OriginDirect   Origin = "direct"
	OriginSystem   Origin = "system"
)

// SystemStep is an engine step that travels through the effect stack so it
// keeps its place relative to card effects.
type SystemStep string

const (
	SystemNone          SystemStep = ""
	SystemLand          SystemStep = "land"
	SystemCompileLane   SystemStep = "compile_lane"
	SystemBeforeCompile SystemStep = "before_compile"
	SystemUseControl    SystemStep = "use_control"
	SystemRefresh       SystemStep = "refresh"
	// SystemLanesDone sits under the picks of an effect resolved line by line
	// and runs its follow-up once every line has been answered.
	SystemLanesDone SystemStep = "lanes_done"
)

// Transit is a card moving into a lane.
type Transit struct {
	Card     PlayedCard `json:"card"`
	Owner    Player     `json:"owner"`
	FromLane int        `json:"fromLane"`
	ToLane   int        `json:"toLane"`
	// HandIndex is the card's position in hand before it was played, or NoLane.
	HandIndex int `json:"handIndex"`
	// OnBoard is true for shifts: the card stays in FromLane until it lands.
	OnBoard bool `json:"onBoard"`
}

// PendingEffect is one deferred entry of the effect stack.
type PendingEffect struct {
	SourceCardID string          `json:"sourceCardId,omitempty"`
	SourceName   string          `json:"sourceName,omitempty"`
	Lane         int             `json:"lane"`
	Effect       cards.EffectDef `json:"effect"`
	Context      EffectContext   `json:"context"`
	Chain        ChainContext    `json:"chain"`
	Origin       Origin          `json:"origin"`

	// Revalidate re-checks that the source is still active before firing.
	Revalidate bool `json:"revalidate,omitempty"`
	// Continuation marks the remaining picks of a multi-count effect.
	Continuation bool `json:"continuation,omitempty"`
	// Reactive marks effects running under the reactive recursion guard.
	Reactive bool `json:"reactive,omitempty"`
	// RootSeq is the event that started a reactive chain. Reactions inside
	// the chain are keyed by it, so each card answers a root event once.
	RootSeq uint64 `json:"rootSeq,omitempty"`
	Depth   int    `json:"depth"`
	// PerLane marks one line's pick of an effect resolved line by line.
	PerLane bool `json:"perLane,omitempty"`
	// Targets are the cards a "count: all" shift still has to move, in order.
	Targets []string `json:"targets,omitempty"`

	System  SystemStep `json:"system,omitempty"`
	Player  Player     `json:"player,omitempty"`
	Transit *Transit   `json:"transit,omitempty"`
}

// Clone deep-copies the pending effect.
func (p PendingEffect) Clone() PendingEffect {
	out := p
	out.Effect = p.Effect.Clone()
	out.Chain = p.Chain.Clone()
	out.Targets = append([]string(nil), p.Targets...)
	if p.Transit != nil {
		t := *p.Transit
		out.Transit = &t
	}
	return out
}

// Continuation is a suspended turn: saved when a reactive effect hands the
// decision to the non-turn player, restored once the stack drains to
// StackHeight.
type Continuation struct {
	Turn          Player         `json:"turn"`
	Phase         Phase          `json:"phase"`
	StackHeight   int            `json:"stackHeight"`
	QueuedActions []QueuedAction `json:"queuedActions"`
}

// PhaseEffectRef identifies one start or end effect captured at phase entry.
type PhaseEffectRef struct {
	CardID   string `json:"cardId"`
	EffectID string `json:"effectId"`
}

// Key returns the identifier used in select_trigger_order choices.
func (r PhaseEffectRef) Key() string {
	return r.CardID + "#" + r.EffectID
}

// PhaseEffectSnapshot is the set of start or end effects eligible at phase entry.
type PhaseEffectSnapshot struct {
	Entries   []PhaseEffectRef `json:"entries"`
	Processed []string         `json:"processed"`
}

// IsProcessed reports whether the entry already fired.
func (p *PhaseEffectSnapshot) IsProcessed(ref PhaseEffectRef) bool {
	for _, k := range p.Processed {
		if k == ref.Key() {
			return true
		}
	}
	return false
}
