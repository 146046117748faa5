package effects

import (
	"fmt"

	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"go.uber.org/zap"
)

// DefaultHandSize is the hand size a refresh draws up to.
const DefaultHandSize = 5

// CardLookup resolves printed card definitions.
type CardLookup interface {
	Card(protocol string, value int) (cards.CardDef, bool)
	FaceDownValue(protocol string, value int) int
	Protocols() []string
}

// Config holds the rule constants the interpreter needs.
type Config struct {
	HandSize      int
	FaceDownValue int
}

// Interpreter executes effect definitions against a game state. It holds no
// match state and is safe for concurrent use.
type Interpreter struct {
	lookup   CardLookup
	lanes    *rules.LaneCalculator
	handSize int
	logger   *zap.Logger
}

// NewInterpreter creates an interpreter over a card catalog.
func NewInterpreter(lookup CardLookup, cfg Config, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HandSize <= 0 {
		cfg.HandSize = DefaultHandSize
	}
	return &Interpreter{
		lookup:   lookup,
		lanes:    rules.NewLaneCalculator(lookup, cfg.FaceDownValue),
		handSize: cfg.HandSize,
		logger:   logger,
	}
}

// Lanes returns the lane value calculator used by the interpreter.
func (in *Interpreter) Lanes() *rules.LaneCalculator {
	return in.lanes
}

// Lookup returns the card catalog.
func (in *Interpreter) Lookup() CardLookup {
	return in.lookup
}

// Logger returns the interpreter's logger.
func (in *Interpreter) Logger() *zap.Logger {
	return in.logger
}

// Run is one engine operation in progress over a cloned state. It collects
// the animation requests and events emitted while the operation runs.
type Run struct {
	in *Interpreter

	S          *state.GameState
	Animations []state.AnimationRequest
	Events     []rules.Event
	// SkippedNoTargets is set when any effect of the run found no valid target.
	SkippedNoTargets bool

	frame frame
}

// frame is the bookkeeping of the effect currently executing. Consequences
// collected here are pushed above the effect's follow-up when it completes.
type frame struct {
	depth     int
	reactive  bool
	root      uint64
	pending   []rules.Event
	triggered []state.PendingEffect
}

// NewRun starts a run over s. The caller owns s; it should be a clone.
func (in *Interpreter) NewRun(s *state.GameState) *Run {
	return &Run{in: in, S: s}
}

// Interpreter returns the interpreter driving the run.
func (r *Run) Interpreter() *Interpreter {
	return r.in
}

// Begin opens a frame for pe. Resolvers call it before continuing a
// suspended effect.
func (r *Run) Begin(pe state.PendingEffect) {
	r.frame = frame{depth: pe.Depth, reactive: pe.Reactive, root: pe.RootSeq}
}

// Logf appends a log line at the current depth and mirrors it to zap.
func (r *Run) Logf(player state.Player, source, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	entry := r.S.AppendLog(player, msg, r.frame.depth, source)
	r.in.logger.Debug(msg,
		zap.Int("turn", entry.Turn),
		zap.String("phase", string(entry.Phase)),
		zap.String("player", string(player)),
		zap.String("source_card", source),
		zap.Int("indent", entry.IndentLevel),
	)
}

func (r *Run) animate(a state.AnimationRequest) {
	r.Animations = append(r.Animations, a)
}

// Raise records an event. Reactive listeners are collected when the frame
// completes.
func (r *Run) Raise(ev rules.Event) {
	r.Events = append(r.Events, ev)
	if ev.Type.Reactive() {
		r.frame.pending = append(r.frame.pending, ev)
	}
}

func (r *Run) trigger(pes ...state.PendingEffect) {
	r.frame.triggered = append(r.frame.triggered, pes...)
}

// Recalculate refreshes every lane value.
func (r *Run) Recalculate() {
	r.in.lanes.Recalculate(r.S)
}

// Flush pushes the frame's consequences so the first one collected resolves
// first: structural triggers, then reactive listeners.
func (r *Run) Flush() {
	var reactions []state.PendingEffect
	for _, ev := range r.frame.pending {
		reactions = append(reactions, r.reactions(ev)...)
	}
	all := append(r.frame.triggered, reactions...)
	r.S.PushEffectsInOrder(all)
	r.frame.pending = nil
	r.frame.triggered = nil
}

// Finish completes an effect: its follow-up goes on the stack first, then
// the consequences collected in the frame above it.
func (r *Run) Finish(pe state.PendingEffect, executed bool) {
	pe.Chain.Executed = executed
	if pe.PerLane && executed {
		r.laneAnswered(pe)
	}
	if then := pe.Effect.Then; then != nil && then.Effect != nil {
		if then.Type.Met(executed) {
			r.S.PushEffect(followUp(pe, *then.Effect))
		} else {
			r.Logf(pe.Context.CardOwner, pe.SourceName, "%s: follow-up does not resolve", pe.SourceName)
		}
	}
	r.Flush()
}

func followUp(pe state.PendingEffect, def cards.EffectDef) state.PendingEffect {
	chain := pe.Chain.Clone()
	chain.Touched = nil
	chain.Executed = false
	chain.SkippedNoTargets = false
	ctx := pe.Context
	ctx.Actor = ctx.CardOwner
	return state.PendingEffect{
		SourceCardID: pe.SourceCardID,
		SourceName:   pe.SourceName,
		Lane:         pe.Lane,
		Effect:       def.Clone(),
		Context:      ctx,
		Chain:        chain,
		Origin:       state.OriginFollowUp,
		Reactive:     pe.Reactive,
		RootSeq:      pe.RootSeq,
		Depth:        pe.Depth,
	}
}

// Skip ends an effect that has nothing to act on. It writes exactly one log
// entry and suppresses conditional follow-ups.
func (r *Run) Skip(pe state.PendingEffect, reason string) {
	r.Logf(pe.Context.Actor, pe.SourceName, "%s: %s, effect skipped", pe.SourceName, reason)
	r.SkippedNoTargets = true
	pe.Chain.SkippedNoTargets = true
	pe.Chain.Executed = false
	if then := pe.Effect.Then; then != nil && then.Effect != nil && then.Type.Met(false) {
		r.S.PushEffect(followUp(pe, *then.Effect))
	}
	r.Flush()
}

// Pause suspends pe behind a decision. A reactive effect that hands the
// decision to the player whose turn it is not interrupts the turn.
func (r *Run) Pause(pe state.PendingEffect, ar state.ActionRequired) {
	origin := pe.Clone()
	ar.Origin = &origin
	if ar.Actor == state.NoPlayer {
		ar.Actor = pe.Context.Actor
	}
	if ar.SourceCardID == "" {
		ar.SourceCardID = pe.SourceCardID
	}
	r.S.ActionRequired = &ar
	if pe.Reactive && ar.Actor != r.S.Turn {
		r.S.PushInterrupt(ar.Actor)
		r.Logf(ar.Actor, pe.SourceName, "%s interrupts the turn", ar.Actor)
	}
	r.Flush()
}

// NewAction returns an ActionRequired for pe with no lane restriction.
func NewAction(t state.ActionType, pe state.PendingEffect) state.ActionRequired {
	return state.ActionRequired{
		Type:         t,
		Actor:        pe.Context.Actor,
		SourceCardID: pe.SourceCardID,
		Prompt:       pe.Effect.Text,
		Optional:     pe.Effect.Optional,
		UpTo:         pe.Effect.UpTo,
		TargetFilter: pe.Effect.Target,
		Scope:        pe.Effect.Scope,
		Destination:  pe.Effect.Destination,
		LaneLimit:    state.NoLane,
	}
}

// child builds a consequence of the current frame.
func (r *Run) child(card state.PlayedCard, owner state.Player, lane int, def cards.EffectDef, origin state.Origin, trigger cards.Trigger) state.PendingEffect {
	return state.PendingEffect{
		SourceCardID: card.ID,
		SourceName:   card.Name(),
		Lane:         lane,
		Effect:       def.Clone(),
		Context:      state.NewEffectContext(owner, r.S.Turn, trigger),
		Origin:       origin,
		Revalidate:   true,
		Reactive:     r.frame.reactive,
		RootSeq:      r.frame.root,
		Depth:        r.frame.depth + 1,
	}
}

// middleText queues the middle effects of a card that was played face-up,
// flipped face-up or uncovered.
func (r *Run) middleText(card state.PlayedCard, owner state.Player, lane int, origin state.Origin, trigger cards.Trigger) {
	def, ok := r.in.lookup.Card(card.Protocol, card.Value)
	if !ok {
		return
	}
	for _, eff := range def.EffectsAt(cards.PositionMiddle) {
		r.trigger(r.child(card, owner, lane, eff, origin, trigger))
	}
}

// Active reports whether the source of pe can still produce its effect.
func (r *Run) Active(pe state.PendingEffect) bool {
	card, loc, ok := r.S.OnBoard(pe.SourceCardID)
	if !ok || !card.IsFaceUp || r.S.IsCommitted(card.ID) {
		return false
	}
	if pe.Effect.Position != cards.PositionTop && !r.S.IsUncovered(loc) {
		return false
	}
	return true
}

// sourceLane is the lane of the effect's source card now, or where it was.
func (r *Run) sourceLane(pe state.PendingEffect) int {
	if _, loc, ok := r.S.OnBoard(pe.SourceCardID); ok {
		return loc.Lane
	}
	return pe.Lane
}

// relative resolves a player named relative to the card owner.
func relative(ctx state.EffectContext, who cards.Who) state.Player {
	if who == cards.WhoOpponent {
		return state.Opponent(ctx.CardOwner)
	}
	return ctx.CardOwner
}

// Execute resolves one pending effect. It either completes the effect, or
// leaves an ActionRequired with the effect suspended inside it.
func (r *Run) Execute(pe state.PendingEffect) {
	r.Begin(pe)
	if pe.System != state.SystemNone {
		r.executeSystem(pe)
		return
	}
	if pe.Revalidate && !r.Active(pe) {
		r.Logf(pe.Context.CardOwner, pe.SourceName, "%s is no longer active", pe.SourceName)
		r.Flush()
		return
	}
	pe.Context.Actor = relative(pe.Context, pe.Effect.Who)
	pe.Context.CurrentTurn = r.S.Turn

	if pe.Effect.Optional && !pe.Continuation && !selectsItself(pe.Effect) {
		ar := NewAction(state.ActionPromptOptionalEffect, pe)
		ar.Optional = true
		r.Pause(pe, ar)
		return
	}

	switch pe.Effect.Action {
	case cards.ActionFlip, cards.ActionShift, cards.ActionDelete, cards.ActionReturn:
		r.board(pe)
	case cards.ActionDraw:
		n := r.amount(pe)
		drawn := r.Draw(pe, pe.Context.Actor, n)
		r.Finish(pe, drawn > 0)
	case cards.ActionDiscard:
		r.discard(pe)
	case cards.ActionGive:
		r.give(pe)
	case cards.ActionPlay:
		r.play(pe)
	case cards.ActionRefresh:
		r.Finish(pe, r.Refresh(pe, pe.Context.Actor))
	case cards.ActionShuffleTrash:
		r.Finish(pe, r.ShuffleTrash(pe, pe.Context.Actor))
	case cards.ActionStateNumber:
		ar := NewAction(state.ActionStateNumber, pe)
		for v := 0; v <= maxCardValue; v++ {
			ar.Options = append(ar.Options, fmt.Sprint(v))
		}
		r.Pause(pe, ar)
	case cards.ActionStateProtocol:
		ar := NewAction(state.ActionStateProtocol, pe)
		ar.Options = r.in.lookup.Protocols()
		r.Pause(pe, ar)
	case cards.ActionRearrangeProtocols:
		ar := NewAction(state.ActionPromptRearrangeProtocols, pe)
		ar.TargetPlayer = relative(pe.Context, pe.Effect.TargetPlayer)
		side := r.S.Side(ar.TargetPlayer)
		ar.Options = append([]string(nil), side.Protocols[:]...)
		r.Pause(pe, ar)
	case cards.ActionSwapProtocols:
		ar := NewAction(state.ActionPromptSwapProtocols, pe)
		ar.TargetPlayer = relative(pe.Context, pe.Effect.TargetPlayer)
		ar.Count = 2
		ar.ValidLanes = []int{0, 1, 2}
		r.Pause(pe, ar)
	case cards.ActionCannotCompile:
		target := relative(pe.Context, pe.Effect.TargetPlayer)
		r.S.Side(target).CannotCompile = true
		r.Logf(pe.Context.Actor, pe.SourceName, "%s: %s cannot compile next turn", pe.SourceName, target)
		r.Finish(pe, true)
	default:
		r.Logf(pe.Context.Actor, pe.SourceName, "%s: unknown action %q", pe.SourceName, pe.Effect.Action)
		r.in.logger.Warn("unknown effect action", zap.String("action", string(pe.Effect.Action)), zap.String("effect", pe.Effect.ID))
		r.Flush()
	}
}

// maxCardValue bounds the numbers offered by state_number.
const maxCardValue = 6

// selectsItself reports whether the optional part of an effect is answered by
// its own selection prompt through Decline, rather than a yes/no prompt.
func selectsItself(def cards.EffectDef) bool {
	switch def.Action {
	case cards.ActionFlip, cards.ActionShift, cards.ActionDelete, cards.ActionReturn:
		return !def.Self && !def.UseLastTarget
	case cards.ActionDiscard, cards.ActionGive, cards.ActionRearrangeProtocols, cards.ActionSwapProtocols:
		return true
	case cards.ActionPlay:
		return def.Source == cards.SourceHand
	}
	return false
}

// amount is the count of an effect, taken from the chain when countFrom is set.
func (r *Run) amount(pe state.PendingEffect) int {
	switch pe.Effect.CountFrom {
	case cards.CountFromDiscarded:
		return pe.Chain.DiscardedCount
	case cards.CountFromStated:
		if pe.Chain.StatedNumber != nil {
			return *pe.Chain.StatedNumber
		}
		return 0
	}
	return pe.Effect.Amount()
}
