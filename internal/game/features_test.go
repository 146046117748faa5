package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/compilegame/compile-server-go/internal/game/state"
	"github.com/cucumber/godog"
)

type scenarioKey struct{}

// scenario holds the table of one feature scenario. Given steps edit the
// table; the first When step freezes it into a state.
type scenario struct {
	engine *Engine
	table  *table
	ids    map[string]string
	s      state.GameState
	built  bool
	last   Result
}

func scenarioFrom(ctx context.Context) *scenario {
	return ctx.Value(scenarioKey{}).(*scenario)
}

func (sc *scenario) current() state.GameState {
	if !sc.built {
		sc.s = sc.table.build(sc.engine)
		sc.built = true
	}
	return sc.s
}

func (sc *scenario) apply(res Result) {
	sc.last = res
	sc.s = res.State
}

func (sc *scenario) id(name string) (string, error) {
	id, ok := sc.ids[name]
	if !ok {
		return "", fmt.Errorf("no card named %s on the table", name)
	}
	return id, nil
}

func parseName(name string) (string, int, error) {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return "", 0, fmt.Errorf("bad card name %q", name)
	}
	v, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("bad card name %q: %w", name, err)
	}
	return name[:i], v, nil
}

func splitList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func aTableWithProtocols(ctx context.Context, player, opponent string) error {
	sc := scenarioFrom(ctx)
	p, o := splitList(player), splitList(opponent)
	if len(p) != state.LaneCount || len(o) != state.LaneCount {
		return fmt.Errorf("need %d protocols per side", state.LaneCount)
	}
	copy(sc.table.s.Player.Protocols[:], p)
	copy(sc.table.s.Opponent.Protocols[:], o)
	return nil
}

func theGameIsInPhase(ctx context.Context, phase string) error {
	scenarioFrom(ctx).table.s.Phase = state.Phase(phase)
	return nil
}

func playerHolds(ctx context.Context, who, name string) error {
	sc := scenarioFrom(ctx)
	protocol, value, err := parseName(name)
	if err != nil {
		return err
	}
	sc.ids[name] = sc.table.hand(state.Player(who), protocol, value)
	return nil
}

func playerHasOnBoard(ctx context.Context, who, name, face string, lane int) error {
	sc := scenarioFrom(ctx)
	protocol, value, err := parseName(name)
	if err != nil {
		return err
	}
	sc.ids[name] = sc.table.board(state.Player(who), lane, protocol, value, face == "up")
	return nil
}

func playerHasDeck(ctx context.Context, who string, n int) error {
	scenarioFrom(ctx).table.deck(state.Player(who), n)
	return nil
}

func playerAlreadyCompiled(ctx context.Context, who string, lane int) error {
	scenarioFrom(ctx).table.s.Side(state.Player(who)).Compiled[lane] = true
	return nil
}

func playerHoldsControl(ctx context.Context, who string) error {
	scenarioFrom(ctx).table.s.ControlCardHolder = state.Player(who)
	return nil
}

func theGameAdvances(ctx context.Context) error {
	sc := scenarioFrom(ctx)
	sc.apply(sc.engine.Advance(sc.current()))
	return nil
}

func playerPlays(ctx context.Context, who, name, face string, lane int) error {
	sc := scenarioFrom(ctx)
	id, err := sc.id(name)
	if err != nil {
		return err
	}
	sc.apply(sc.engine.Perform(sc.current(), state.Move{
		Type:   state.MovePlay,
		Player: state.Player(who),
		CardID: id,
		Lane:   lane,
		FaceUp: face == "up",
	}))
	return nil
}

func playerRefreshes(ctx context.Context, who string) error {
	sc := scenarioFrom(ctx)
	sc.apply(sc.engine.Perform(sc.current(), state.Move{Type: state.MoveRefresh, Player: state.Player(who), Lane: state.NoLane}))
	return nil
}

func playerPasses(ctx context.Context, who string) error {
	sc := scenarioFrom(ctx)
	sc.apply(sc.engine.Perform(sc.current(), state.Move{Type: state.MovePass, Player: state.Player(who), Lane: state.NoLane}))
	return nil
}

func playerPicks(ctx context.Context, who, name string) error {
	sc := scenarioFrom(ctx)
	id, err := sc.id(name)
	if err != nil {
		return err
	}
	sc.apply(sc.engine.Resolve(sc.current(), choose(state.Player(who), id)))
	return nil
}

func playerRearranges(ctx context.Context, who, target, order string) error {
	sc := scenarioFrom(ctx)
	sc.apply(sc.engine.Resolve(sc.current(), state.Choice{
		Actor:        state.Player(who),
		TargetPlayer: state.Player(target),
		Order:        splitList(order),
		Lane:         state.NoLane,
	}))
	return nil
}

func theMoveIsRejected(ctx context.Context) error {
	if scenarioFrom(ctx).last.Changed {
		return errors.New("expected the engine to reject the input")
	}
	return nil
}

func lineHolds(ctx context.Context, who string, lane int, list string) error {
	var names []string
	for _, c := range scenarioFrom(ctx).s.Side(state.Player(who)).Lanes[lane] {
		names = append(names, c.Name())
	}
	if got, want := strings.Join(names, ", "), strings.Join(splitList(list), ", "); got != want {
		return fmt.Errorf("line %d of %s holds %q, want %q", lane, who, got, want)
	}
	return nil
}

func lineIsEmpty(ctx context.Context, who string, lane int) error {
	return lineHolds(ctx, who, lane, "")
}

func cardFacing(ctx context.Context, name, face string) error {
	sc := scenarioFrom(ctx)
	id, err := sc.id(name)
	if err != nil {
		return err
	}
	card, _, ok := sc.s.OnBoard(id)
	if !ok {
		return fmt.Errorf("%s is not on the board", name)
	}
	if card.IsFaceUp != (face == "up") {
		return fmt.Errorf("%s is not face-%s", name, face)
	}
	return nil
}

func lineValuesAre(ctx context.Context, who string, a, b, c int) error {
	got := scenarioFrom(ctx).s.Side(state.Player(who)).LaneValues
	if want := [state.LaneCount]int{a, b, c}; got != want {
		return fmt.Errorf("line values of %s are %v, want %v", who, got, want)
	}
	return nil
}

func itIsTurnFor(ctx context.Context, turn int, who string) error {
	s := scenarioFrom(ctx).s
	if s.TurnNumber != turn || s.Turn != state.Player(who) {
		return fmt.Errorf("it is turn %d for %s", s.TurnNumber, s.Turn)
	}
	return nil
}

func itIsTurnOf(ctx context.Context, who string) error {
	if s := scenarioFrom(ctx).s; s.Turn != state.Player(who) {
		return fmt.Errorf("it is %s's turn", s.Turn)
	}
	return nil
}

func playerMust(ctx context.Context, who, action string) error {
	ar := scenarioFrom(ctx).s.ActionRequired
	if ar == nil {
		return errors.New("no decision is pending")
	}
	if ar.Actor != state.Player(who) || ar.Type != state.ActionType(action) {
		return fmt.Errorf("%s must %s instead", ar.Actor, ar.Type)
	}
	return nil
}

func handSize(ctx context.Context, who string, n int) error {
	if got := len(scenarioFrom(ctx).s.Side(state.Player(who)).Hand); got != n {
		return fmt.Errorf("%s holds %d cards, want %d", who, got, n)
	}
	return nil
}

func hasCompiled(ctx context.Context, who, not string, lane int) error {
	compiled := scenarioFrom(ctx).s.Side(state.Player(who)).Compiled[lane]
	if compiled != (not == "") {
		return fmt.Errorf("compiled flag of %s line %d is %v", who, lane, compiled)
	}
	return nil
}

func playerWins(ctx context.Context, who string) error {
	if w := scenarioFrom(ctx).s.Winner; w != state.Player(who) {
		return fmt.Errorf("winner is %q", w)
	}
	return nil
}

func protocolsAre(ctx context.Context, who, list string) error {
	got := scenarioFrom(ctx).s.Side(state.Player(who)).Protocols
	if strings.Join(got[:], ", ") != strings.Join(splitList(list), ", ") {
		return fmt.Errorf("%s protocols are %v", who, got)
	}
	return nil
}

func logMentions(ctx context.Context, text string) error {
	if logIndex(scenarioFrom(ctx).s, text) < 0 {
		return fmt.Errorf("no log line mentions %q", text)
	}
	return nil
}

const seat = `(player|opponent)`

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			sc := &scenario{engine: newTestEngine(t), table: newTable(), ids: map[string]string{}}
			return context.WithValue(ctx, scenarioKey{}, sc), nil
		})

		// Given
		ctx.Step(`^a table with player protocols "([^"]*)" and opponent protocols "([^"]*)"$`, aTableWithProtocols)
		ctx.Step(`^the game is in the (start|action) phase$`, theGameIsInPhase)
		ctx.Step(`^the `+seat+` holds ([A-Za-z]+-\d)$`, playerHolds)
		ctx.Step(`^the `+seat+` has ([A-Za-z]+-\d) face-(up|down) in line (\d)$`, playerHasOnBoard)
		ctx.Step(`^the `+seat+` has (\d+) cards in their deck$`, playerHasDeck)
		ctx.Step(`^the `+seat+` has already compiled line (\d)$`, playerAlreadyCompiled)
		ctx.Step(`^the `+seat+` holds the control card$`, playerHoldsControl)

		// When
		ctx.Step(`^the game advances$`, theGameAdvances)
		ctx.Step(`^the `+seat+` plays ([A-Za-z]+-\d) face-(up|down) in line (\d)$`, playerPlays)
		ctx.Step(`^the `+seat+` refreshes$`, playerRefreshes)
		ctx.Step(`^the `+seat+` passes$`, playerPasses)
		ctx.Step(`^the `+seat+` picks ([A-Za-z]+-\d)$`, playerPicks)
		ctx.Step(`^the `+seat+` rearranges the `+seat+`'s protocols to "([^"]*)"$`, playerRearranges)

		// Then
		ctx.Step(`^the (?:move|choice) is rejected$`, theMoveIsRejected)
		ctx.Step(`^the `+seat+`'s line (\d) holds "([^"]*)"$`, lineHolds)
		ctx.Step(`^the `+seat+`'s line (\d) is empty$`, lineIsEmpty)
		ctx.Step(`^([A-Za-z]+-\d) is face-(up|down)$`, cardFacing)
		ctx.Step(`^the `+seat+`'s line values are (\d+), (\d+), (\d+)$`, lineValuesAre)
		ctx.Step(`^it is turn (\d+) for the `+seat+`$`, itIsTurnFor)
		ctx.Step(`^it is the `+seat+`'s turn$`, itIsTurnOf)
		ctx.Step(`^the `+seat+` must ([a-z_]+)$`, playerMust)
		ctx.Step(`^the `+seat+` has (\d+) cards? in hand$`, handSize)
		ctx.Step(`^the `+seat+` has (not )?compiled line (\d)$`, hasCompiled)
		ctx.Step(`^the `+seat+` wins$`, playerWins)
		ctx.Step(`^the `+seat+`'s protocols are "([^"]*)"$`, protocolsAre)
		ctx.Step(`^the log mentions "([^"]*)"$`, logMentions)
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
