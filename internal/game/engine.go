package game

import (
	"fmt"

	"github.com/compilegame/compile-server-go/internal/config"
	"github.com/compilegame/compile-server-go/internal/game/cards"
	"github.com/compilegame/compile-server-go/internal/game/effects"
	"github.com/compilegame/compile-server-go/internal/game/resolvers"
	"github.com/compilegame/compile-server-go/internal/game/rules"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"go.uber.org/zap"
)

// Catalog is the card data the engine needs.
type Catalog interface {
	effects.CardLookup
	Deck(protocols ...string) ([]cards.Card, error)
}

// Engine runs the rules of Compile. Every operation takes a state value and
// returns a new one; the engine itself holds no match state.
type Engine struct {
	catalog Catalog
	rules   config.RulesConfig
	interp  *effects.Interpreter
	bus     *rules.EventBus
	logger  *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithEventBus publishes the events of every operation to bus.
func WithEventBus(bus *rules.EventBus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// NewEngine creates an engine. Zero rule values fall back to the defaults.
func NewEngine(catalog Catalog, cfg config.RulesConfig, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := config.DefaultRules()
	if cfg.HandSize <= 0 {
		cfg.HandSize = def.HandSize
	}
	if cfg.HandLimit <= 0 {
		cfg.HandLimit = def.HandLimit
	}
	if cfg.CompileThreshold <= 0 {
		cfg.CompileThreshold = def.CompileThreshold
	}
	if cfg.FaceDownValue <= 0 {
		cfg.FaceDownValue = def.FaceDownValue
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	e := &Engine{
		catalog: catalog,
		rules:   cfg,
		interp: effects.NewInterpreter(catalog, effects.Config{
			HandSize:      cfg.HandSize,
			FaceDownValue: cfg.FaceDownValue,
		}, logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rule constants in effect.
func (e *Engine) Rules() config.RulesConfig {
	return e.rules
}

// Result is the outcome of an engine operation.
type Result struct {
	State      state.GameState
	Animations []state.AnimationRequest
	Events     []rules.Event
	// SkippedNoTargets is set when an effect found nothing to act on.
	SkippedNoTargets bool
	// Changed is false when the input was rejected and State is the input.
	Changed bool
}

// MatchSetup describes a new match.
type MatchSetup struct {
	PlayerProtocols   []string
	OpponentProtocols []string
	Seed              uint64
	FirstPlayer       state.Player
	// StartingHand overrides the configured starting hand when positive.
	StartingHand int
}

// NewMatch deals a new match. The returned state is at the start of the first
// turn; call Advance to run it to the first decision.
func (e *Engine) NewMatch(setup MatchSetup) (state.GameState, error) {
	if len(setup.PlayerProtocols) != state.LaneCount || len(setup.OpponentProtocols) != state.LaneCount {
		return state.GameState{}, fmt.Errorf("each player needs %d protocols", state.LaneCount)
	}
	first := setup.FirstPlayer
	if !first.Valid() {
		first = state.PlayerOne
	}
	s := state.GameState{
		Turn:       first,
		Phase:      state.PhaseStart,
		TurnNumber: 1,
		Seed:       setup.Seed,
	}
	hand := e.rules.StartingHand
	if setup.StartingHand > 0 {
		hand = setup.StartingHand
	}
	r := e.interp.NewRun(&s)
	for p, protocols := range map[state.Player][]string{
		state.PlayerOne: setup.PlayerProtocols,
		state.PlayerTwo: setup.OpponentProtocols,
	} {
		side := s.Side(p)
		copy(side.Protocols[:], protocols)
		deck, err := e.catalog.Deck(protocols...)
		if err != nil {
			return state.GameState{}, fmt.Errorf("failed to build deck for %s: %w", p, err)
		}
		side.Deck = deck
	}
	for _, p := range [2]state.Player{state.PlayerOne, state.PlayerTwo} {
		s.Shuffle(s.Side(p).Deck)
		r.Draw(effects.SystemEffect(state.SystemNone, p, state.NoLane, first), p, hand)
	}
	r.Recalculate()
	s.Log = nil
	s.EventSeq = 0
	r.Logf(first, "", "turn 1: %s goes first", first)
	e.logger.Info("match dealt",
		zap.Uint64("seed", setup.Seed),
		zap.Strings("player_protocols", setup.PlayerProtocols),
		zap.Strings("opponent_protocols", setup.OpponentProtocols),
		zap.String("first", string(first)),
	)
	return s, nil
}

func (e *Engine) begin(s state.GameState) *effects.Run {
	clone := s.Clone()
	return e.interp.NewRun(&clone)
}

func (e *Engine) finish(r *effects.Run) Result {
	res := Result{
		State:            *r.S,
		Animations:       r.Animations,
		Events:           r.Events,
		SkippedNoTargets: r.SkippedNoTargets,
		Changed:          true,
	}
	if e.bus != nil {
		e.bus.PublishBatch(r.Events)
	}
	return res
}

func (e *Engine) reject(s state.GameState, op string, err error) Result {
	e.logger.Warn("rejected input",
		zap.String("op", op),
		zap.Int("turn", s.TurnNumber),
		zap.String("phase", string(s.Phase)),
		zap.Error(err),
	)
	return Result{State: s}
}

// Advance runs the match until it needs a decision or is over.
func (e *Engine) Advance(s state.GameState) Result {
	r := e.begin(s)
	e.settle(r, true)
	return e.finish(r)
}

// Perform applies the turn player's action-phase move.
func (e *Engine) Perform(s state.GameState, move state.Move) Result {
	if err := e.checkMove(&s, move); err != nil {
		return e.reject(s, "perform", err)
	}
	r := e.begin(s)
	e.applyMove(r, move)
	e.settle(r, true)
	return e.finish(r)
}

// Resolve answers the pending ActionRequired.
func (e *Engine) Resolve(s state.GameState, choice state.Choice) Result {
	if s.Done() {
		return e.reject(s, "resolve", fmt.Errorf("match is over"))
	}
	r := e.begin(s)
	if err := resolvers.Resolve(r, choice); err != nil {
		return e.reject(s, "resolve", err)
	}
	e.settle(r, true)
	return e.finish(r)
}

// Apply dispatches a decision to Perform or Resolve.
func (e *Engine) Apply(s state.GameState, d state.Decision) Result {
	switch {
	case d.Choice != nil:
		return e.Resolve(s, *d.Choice)
	case d.Move != nil:
		return e.Perform(s, *d.Move)
	}
	return e.reject(s, "apply", fmt.Errorf("empty decision"))
}

// ExecuteEffect resolves one effect of a card on the board and everything it
// triggers. It does not advance phases.
func (e *Engine) ExecuteEffect(s state.GameState, cardID string, lane int, ctx state.EffectContext, def cards.EffectDef) Result {
	r := e.begin(s)
	name := ""
	if card, _, ok := r.S.Locate(cardID); ok {
		name = card.Name()
	}
	r.Execute(state.PendingEffect{
		SourceCardID: cardID,
		SourceName:   name,
		Lane:         lane,
		Effect:       def.Clone(),
		Context:      ctx,
		Origin:       state.OriginDirect,
	})
	e.settle(r, false)
	return e.finish(r)
}

// ProcessReactive raises an event and resolves the reactions it triggers. It
// does not advance phases.
func (e *Engine) ProcessReactive(s state.GameState, ev rules.Event) Result {
	if !ev.Type.Reactive() {
		return e.reject(s, "process_reactive", fmt.Errorf("event %s is not reactive", ev.Type))
	}
	r := e.begin(s)
	if ev.Seq == 0 {
		ev.Seq = r.S.NextEventSeq()
	}
	r.React(ev)
	e.settle(r, false)
	return e.finish(r)
}

// Recalculate returns s with every lane value recomputed.
func (e *Engine) Recalculate(s state.GameState) state.GameState {
	clone := s.Clone()
	e.interp.Lanes().Recalculate(&clone)
	return clone
}

// settle drains queued decisions and the effect stack, and with phases set
// runs the turn state machine, until a decision is needed.
func (e *Engine) settle(r *effects.Run, phases bool) {
	for step := 0; step < e.rules.MaxSteps; step++ {
		s := r.S
		if s.Done() || s.ActionRequired != nil {
			return
		}
		if s.RestoreInterrupt() {
			e.logger.Debug("interrupt restored", zap.String("turn", string(s.Turn)), zap.String("phase", string(s.Phase)))
			continue
		}
		if ar, ok := s.NextQueued(); ok {
			e.dispatchQueued(r, ar)
			continue
		}
		if pe, err := s.PopEffect(); err == nil {
			r.Execute(pe)
			continue
		}
		if !phases || !e.phaseStep(r) {
			return
		}
	}
	e.logger.Error("step budget exhausted",
		zap.Int("max_steps", e.rules.MaxSteps),
		zap.Int("turn", r.S.TurnNumber),
		zap.String("phase", string(r.S.Phase)),
		zap.Int("stack", len(r.S.EffectStack)),
	)
}

// dispatchQueued makes a deferred decision current. Its candidates are
// recomputed; it is skipped when none remain and answered automatically when
// the answer is forced.
func (e *Engine) dispatchQueued(r *effects.Run, ar state.ActionRequired) {
	if ar.Origin == nil {
		r.S.ActionRequired = &ar
		return
	}
	pe := ar.Origin.Clone()
	r.Begin(pe)
	if ar.Type.BoardSelection() {
		ids := r.BoardCandidates(pe, ar.LaneLimit)
		if len(ids) == 0 {
			r.Skip(pe, fmt.Sprintf("no valid targets in line %d", ar.LaneLimit))
			return
		}
		ar.ValidTargets = ids
	}
	r.Pause(pe, ar)
	resolvers.Auto(r)
}
