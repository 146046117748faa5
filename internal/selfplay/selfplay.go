// Package selfplay drives managed matches with decision sources.
package selfplay

import (
	"context"
	"fmt"
	"time"

	"github.com/compilegame/compile-server-go/internal/bots"
	"github.com/compilegame/compile-server-go/internal/game"
	"github.com/compilegame/compile-server-go/internal/game/state"
	"go.uber.org/zap"
)

// Options bounds a self-play run.
type Options struct {
	// MaxTurns stops the run once the match passes this turn. Zero means no limit.
	MaxTurns int
	// TurnDelay pauses between turns so spectators can follow.
	TurnDelay time.Duration
}

// Outcome is where a run stopped.
type Outcome struct {
	MatchID   string
	State     state.GameState
	Decisions int
	// Finished is false when the run stopped before the match had a winner.
	Finished bool
}

// Seats maps each player to the source of their decisions.
type Seats map[state.Player]bots.DecisionSource

// Play submits decisions for match id until it is over, MaxTurns is passed or
// ctx is done.
func Play(ctx context.Context, m *game.Manager, id string, seats Seats, opts Options, logger *zap.Logger) (Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := m.State(id)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{MatchID: id, State: s}
	turn := s.TurnNumber

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p, ok := s.Awaiting()
		if !ok {
			break
		}
		if opts.MaxTurns > 0 && s.TurnNumber > opts.MaxTurns {
			logger.Info("turn limit reached", zap.String("match_id", id), zap.Int("turn", s.TurnNumber))
			break
		}
		src, ok := seats[p]
		if !ok {
			return out, fmt.Errorf("no decision source for %s", p)
		}
		d, ok := src.Decide(s)
		if !ok {
			return out, fmt.Errorf("%s has no decision for %s", src.Name(), p)
		}
		res, err := m.Submit(id, d)
		if err != nil {
			return out, fmt.Errorf("%s: %w", src.Name(), err)
		}
		out.Decisions++
		s = res.State
		out.State = s

		if s.TurnNumber != turn {
			turn = s.TurnNumber
			logger.Debug("turn started",
				zap.String("match_id", id),
				zap.Int("turn", turn),
				zap.String("player", string(s.Turn)),
			)
			if opts.TurnDelay > 0 {
				select {
				case <-ctx.Done():
					return out, ctx.Err()
				case <-time.After(opts.TurnDelay):
				}
			}
		}
	}

	out.Finished = s.Done()
	return out, nil
}
